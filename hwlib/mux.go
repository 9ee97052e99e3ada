// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import (
	"strconv"

	"github.com/db47h/simcore"
	"github.com/db47h/simcore/signet"
)

// Mux returns a multiplexer.
//
//	Inputs: a, b, sel
//	Outputs: out
//	Function: if sel == 0 { out = a } else { out = b }
//
func Mux(w string) simcore.Part { return mux.NewPart(w) }

var mux = simcore.PartSpec{
	Name:    "MUX",
	Inputs:  []string{pA, pB, pSel},
	Outputs: []string{pOut},
	Mount: func(s *simcore.Socket) error {
		a, b, sel, out := s.Pin(pA), s.Pin(pB), s.Pin(pSel), s.Pin(pOut)
		return watch(s, func() {
			if s.Get(sel) {
				s.Set(out, signet.Bool(s.Get(b)))
			} else {
				s.Set(out, signet.Bool(s.Get(a)))
			}
		}, a, b, sel)
	},
}

// DMux returns a demultiplexer.
//
//	Inputs: in, sel
//	Outputs: a, b
//	Function: if sel == 0 { a = in; b = 0 } else { a = 0; b = in }
//
func DMux(w string) simcore.Part { return dmux.NewPart(w) }

var dmux = simcore.PartSpec{
	Name:    "DMUX",
	Inputs:  []string{pIn, pSel},
	Outputs: []string{pA, pB},
	Mount: func(s *simcore.Socket) error {
		in, sel, a, b := s.Pin(pIn), s.Pin(pSel), s.Pin(pA), s.Pin(pB)
		return watch(s, func() {
			v, sv := s.Get(in), s.Get(sel)
			s.Set(a, signet.Bool(v && !sv))
			s.Set(b, signet.Bool(v && sv))
		}, in, sel)
	},
}

// MuxN returns a N-bits Mux.
//
//	Inputs: a[bits], b[bits], sel
//	Outputs: out[bits]
//	Function: for i := range out { if sel == 0 { out[i] = a[i] } else { out[i] = b[i] } }
//
func MuxN(bits int) simcore.NewPartFn {
	return (&simcore.PartSpec{
		Name:    "MUX" + strconv.Itoa(bits),
		Inputs:  append(bus(bits, pA, pB), pSel),
		Outputs: bus(bits, pOut),
		Mount: func(s *simcore.Socket) error {
			a, b, sel := s.Bus(pA, bits), s.Bus(pB, bits), s.Pin(pSel)
			o := s.Bus(pOut, bits)
			update := func() {
				src := a
				if s.Get(sel) {
					src = b
				}
				for i := range o {
					s.Set(o[i], signet.Bool(s.Get(src[i])))
				}
			}
			return watch(s, update, append(append([]signet.Node{sel}, a...), b...)...)
		}}).NewPart
}

// DMuxN returns a N-bits demultiplexer.
//
//	Inputs: in[bits], sel
//	Outputs: a[bits], b[bits]
//	Function: for i := range in { if sel == 0 { a[i] = in[i]; b[i] = 0 } else { a[i] = 0; b[i] = in[i] } }
//
func DMuxN(bits int) simcore.NewPartFn {
	return (&simcore.PartSpec{
		Name:    "DMUX" + strconv.Itoa(bits),
		Inputs:  append(bus(bits, pIn), pSel),
		Outputs: bus(bits, pA, pB),
		Mount: func(s *simcore.Socket) error {
			in, sel := s.Bus(pIn, bits), s.Pin(pSel)
			a, b := s.Bus(pA, bits), s.Bus(pB, bits)
			update := func() {
				sv := s.Get(sel)
				for i := range in {
					v := s.Get(in[i])
					s.Set(a[i], signet.Bool(v && !sv))
					s.Set(b[i], signet.Bool(v && sv))
				}
			}
			return watch(s, update, append([]signet.Node{sel}, in...)...)
		}}).NewPart
}
