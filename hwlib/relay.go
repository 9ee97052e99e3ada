// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import (
	"github.com/db47h/simcore"
	"github.com/db47h/simcore/signet"
)

var relay = simcore.PartSpec{
	Name:    "RELAY",
	Inputs:  []string{"coil"},
	Outputs: []string{"a", "b", "x", "y"},
	Mount: func(s *simcore.Socket) error {
		coil := s.Pin("coil")
		a, b, x, y := s.Pin("a"), s.Pin("b"), s.Pin("x"), s.Pin("y")
		sig := s.Signals()
		contacts := func(on bool) [2][2]signet.Node {
			if on {
				return [2][2]signet.Node{{a, y}, {b, x}}
			}
			return [2][2]signet.Node{{a, x}, {b, y}}
		}
		var on, closed bool
		return watch(s, func() {
			v := s.Get(coil)
			if closed && v == on {
				return
			}
			// break before make
			if closed {
				for _, c := range contacts(on) {
					if err := sig.Unlink(c[0], c[1]); err != nil {
						s.Logger().Error("RELAY", "error", err)
					}
				}
			}
			on, closed = v, true
			for _, c := range contacts(on) {
				if err := sig.Link(c[0], c[1]); err != nil {
					s.Logger().Error("RELAY", "error", err)
				}
			}
		}, coil)
	},
}

// Relay returns a crossover relay. The contacts connect the external pins
// (they are linked on the signal network, so signals flow both ways).
//
//	Inputs: coil
//	Pins: a, b, x, y
//	Function: if coil { a <-> y; b <-> x } else { a <-> x; b <-> y }
//
func Relay(w string) simcore.Part { return relay.NewPart(w) }
