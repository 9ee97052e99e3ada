// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import (
	"strconv"

	"github.com/db47h/simcore"
	"github.com/db47h/simcore/signet"
)

var hAdder = &simcore.PartSpec{
	Name:    "HalfAdder",
	Inputs:  []string{pA, pB},
	Outputs: []string{"s", "c"},
	Mount: func(s *simcore.Socket) error {
		a, b := s.Pin(pA), s.Pin(pB)
		sum, cout := s.Pin("s"), s.Pin("c")
		return watch(s, func() {
			va, vb := s.Get(a), s.Get(b)
			s.Set(sum, signet.Bool(va != vb))
			s.Set(cout, signet.Bool(va && vb))
		}, a, b)
	}}

// HalfAdder returns a half adder.
//
//	Inputs: a, b
//	Outputs: s, c
//	Function: s = lsb(a + b)
//	          c = msb(a + b)
//
func HalfAdder(c string) simcore.Part {
	return hAdder.NewPart(c)
}

var adder = &simcore.PartSpec{
	Name:    "FullAdder",
	Inputs:  []string{pA, pB, "cin"},
	Outputs: []string{"s", "cout"},
	Mount: func(s *simcore.Socket) error {
		a, b, cin := s.Pin(pA), s.Pin(pB), s.Pin("cin")
		sum, cout := s.Pin("s"), s.Pin("cout")
		return watch(s, func() {
			va, vb, vc := s.Get(a), s.Get(b), s.Get(cin)
			s0 := va != vb
			s.Set(sum, signet.Bool(s0 != vc))
			s.Set(cout, signet.Bool(s0 && vc || va && vb))
		}, a, b, cin)
	}}

// FullAdder returns a 3 bit adder.
//
//	Inputs: a, b, cin
//	Outputs: s, cout
//	Function: s = lsb(a + b + cin)
//	          cout = msb(a + b + cin)
//
func FullAdder(c string) simcore.Part {
	return adder.NewPart(c)
}

// AdderN returns a N-bits adder.
//
//	Inputs: a[bits], b[bits]
//	Outputs: out[bits], c
//
func AdderN(bits int) simcore.NewPartFn {
	adderN := &simcore.PartSpec{
		Name:    "Adder" + strconv.Itoa(bits),
		Inputs:  bus(bits, pA, pB),
		Outputs: append(bus(bits, pOut), "c"),
		Mount: func(s *simcore.Socket) error {
			a, b := s.Bus(pA, bits), s.Bus(pB, bits)
			out, cout := s.Bus(pOut, bits), s.Pin("c")
			return watch(s, func() {
				cc := false
				for i, o := range out {
					va, vb := s.Get(a[i]), s.Get(b[i])
					s0 := va != vb
					s.Set(o, signet.Bool(s0 != cc))
					cc = va && vb || s0 && cc
				}
				s.Set(cout, signet.Bool(cc))
			}, append(append([]signet.Node(nil), a...), b...)...)
		}}
	return adderN.NewPart
}
