// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import (
	"github.com/db47h/simcore"
	"github.com/db47h/simcore/signet"
)

func resistor(name string, l signet.Level) *simcore.PartSpec {
	return &simcore.PartSpec{
		Name:    name,
		Outputs: []string{pOut},
		Mount: func(s *simcore.Socket) error {
			return s.Signals().Set(s.Pin(pOut), l)
		},
	}
}

var (
	pullUp       = resistor("PullUp", signet.PullUp)
	pullDown     = resistor("PullDown", signet.PullDown)
	weakPullUp   = resistor("WeakPullUp", signet.WeakPullUp)
	weakPullDown = resistor("WeakPullDown", signet.WeakPullDown)
)

// PullUp returns a pull-up resistor. Any strong driver on the same net
// overrides it.
//
//	Outputs: out
//
func PullUp(w string) simcore.Part { return pullUp.NewPart(w) }

// PullDown returns a pull-down resistor.
//
//	Outputs: out
//
func PullDown(w string) simcore.Part { return pullDown.NewPart(w) }

// WeakPullUp returns a weak pull-up resistor, as found on MCU pins. It is
// overridden by regular pull resistors.
//
//	Outputs: out
//
func WeakPullUp(w string) simcore.Part { return weakPullUp.NewPart(w) }

// WeakPullDown returns a weak pull-down resistor.
//
//	Outputs: out
//
func WeakPullDown(w string) simcore.Part { return weakPullDown.NewPart(w) }

var openDrain = simcore.PartSpec{
	Name:    "OpenDrain",
	Inputs:  []string{pIn},
	Outputs: []string{pOut},
	Mount: func(s *simcore.Socket) error {
		in, out := s.Pin(pIn), s.Pin(pOut)
		return watch(s, func() {
			if s.Get(in) {
				s.Set(out, signet.Open)
			} else {
				s.Set(out, signet.Low)
			}
		}, in)
	},
}

// OpenDrain returns an open drain buffer. Several open drain outputs on the
// same net with a pull-up form a wired-AND.
//
//	Inputs: in
//	Outputs: out
//	Function: if in { out = Open } else { out = Low }
//
func OpenDrain(w string) simcore.Part { return openDrain.NewPart(w) }
