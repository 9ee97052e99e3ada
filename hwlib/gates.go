// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package hwlib provides a library of reusable parts for simcore.
//
// Combinational parts are trace driven: their outputs are updated
// synchronously whenever one of their inputs changes. Open inputs read as
// false.
//
package hwlib

import (
	"strconv"

	"github.com/db47h/simcore"
	"github.com/db47h/simcore/signet"
)

// common pin names
const (
	pA   = "a"
	pB   = "b"
	pIn  = "in"
	pSel = "sel"
	pOut = "out"
	pClk = "clk"
)

// make a bus name
func bus(bits int, names ...string) []string {
	b := make([]string, len(names)*bits)
	for i, n := range names {
		for j := 0; j < bits; j++ {
			b[i*bits+j] = n + "." + strconv.Itoa(j)
		}
	}
	return b
}

// watch calls fn once, then every time the value of one of the given pins
// changes.
func watch(s *simcore.Socket, fn func(), pins ...signet.Node) error {
	fn()
	tr := func(signet.Node, signet.Level, int) { fn() }
	for _, p := range pins {
		if err := s.Trace(p, tr, 0); err != nil {
			return err
		}
	}
	return nil
}

var notGate = simcore.PartSpec{Name: "NOT", Inputs: []string{pIn}, Outputs: []string{pOut},
	Mount: func(s *simcore.Socket) error {
		in, out := s.Pin(pIn), s.Pin(pOut)
		return watch(s, func() { s.Set(out, signet.Bool(!s.Get(in))) }, in)
	},
}

// Not returns a NOT gate.
//
//	Inputs: in
//	Outputs: out
//	Function: out = !in
//
func Not(w string) simcore.Part {
	return notGate.NewPart(w)
}

// other gates
type gate func(a, b bool) bool

func (g gate) mount(s *simcore.Socket) error {
	a, b, out := s.Pin(pA), s.Pin(pB), s.Pin(pOut)
	return watch(s, func() { s.Set(out, signet.Bool(g(s.Get(a), s.Get(b)))) }, a, b)
}

func newGate(name string, fn func(a, b bool) bool) *simcore.PartSpec {
	return &simcore.PartSpec{
		Name:    name,
		Inputs:  gateIn,
		Outputs: gateOut,
		Mount:   gate(fn).mount,
	}
}

var (
	gateIn  = []string{pA, pB}
	gateOut = []string{pOut}

	and  = newGate("AND", func(a, b bool) bool { return a && b })
	nand = newGate("NAND", func(a, b bool) bool { return !(a && b) })
	or   = newGate("OR", func(a, b bool) bool { return a || b })
	nor  = newGate("NOR", func(a, b bool) bool { return !(a || b) })
	xor  = newGate("XOR", func(a, b bool) bool { return a != b })
	xnor = newGate("XNOR", func(a, b bool) bool { return a == b })
)

// And returns a AND gate.
//
//	Inputs: a, b
//	Outputs: out
//	Function: out = a && b
//
func And(w string) simcore.Part { return and.NewPart(w) }

// Nand returns a NAND gate.
//
//	Inputs: a, b
//	Outputs: out
//	Function: out = !(a && b)
//
func Nand(w string) simcore.Part { return nand.NewPart(w) }

// Or returns a OR gate.
//
//	Inputs: a, b
//	Outputs: out
//	Function: out = a || b
//
func Or(w string) simcore.Part { return or.NewPart(w) }

// Nor returns a NOR gate.
//
//	Inputs: a, b
//	Outputs: out
//	Function: out = !(a || b)
//
func Nor(w string) simcore.Part { return nor.NewPart(w) }

// Xor returns a XOR gate.
//
//	Inputs: a, b
//	Outputs: out
//	Function: out = (a && !b) || (!a && b)
//
func Xor(w string) simcore.Part { return xor.NewPart(w) }

// Xnor returns a XNOR gate.
//
//	Inputs: a, b
//	Outputs: out
//	Function: out = a && b || !a && !b
//
func Xnor(w string) simcore.Part { return xnor.NewPart(w) }

// NotN returns a N-bits NOT gate.
//
//	Inputs: in[bits]
//	Outputs: out[bits]
//	Function: for i := range out { out[i] = !in[i] }
//
func NotN(bits int) simcore.NewPartFn {
	return (&simcore.PartSpec{
		Name:    "NOT" + strconv.Itoa(bits),
		Inputs:  bus(bits, pIn),
		Outputs: bus(bits, pOut),
		Mount: func(s *simcore.Socket) error {
			ins, outs := s.Bus(pIn, bits), s.Bus(pOut, bits)
			for i := range ins {
				in, out := ins[i], outs[i]
				if err := watch(s, func() { s.Set(out, signet.Bool(!s.Get(in))) }, in); err != nil {
					return err
				}
			}
			return nil
		}}).NewPart
}

// GateN returns a N-bits logic gate.
//
//	Inputs: a[bits], b[bits]
//	Outputs: out[bits]
//	Function: for i := range out { out[i] = f(a[i], b[i]) }
//
func GateN(name string, bits int, f func(bool, bool) bool) simcore.NewPartFn {
	return (&simcore.PartSpec{
		Name:    name + strconv.Itoa(bits),
		Inputs:  bus(bits, pA, pB),
		Outputs: bus(bits, pOut),
		Mount: func(s *simcore.Socket) error {
			a, b, out := s.Bus(pA, bits), s.Bus(pB, bits), s.Bus(pOut, bits)
			for i := range a {
				a, b, out := a[i], b[i], out[i]
				if err := watch(s, func() { s.Set(out, signet.Bool(f(s.Get(a), s.Get(b)))) }, a, b); err != nil {
					return err
				}
			}
			return nil
		}}).NewPart
}

// OrNWay returns a N-Way OR gate.
//
//	Inputs: in[n]
//	Outputs: out
//	Function: out = in[0] || in[1] || in[2] || ... || in[n-1]
//
func OrNWay(ways int) simcore.NewPartFn {
	return (&simcore.PartSpec{
		Name:    "OR" + strconv.Itoa(ways) + "Way",
		Inputs:  bus(ways, pIn),
		Outputs: []string{pOut},
		Mount: func(s *simcore.Socket) error {
			in, out := s.Bus(pIn, ways), s.Pin(pOut)
			return watch(s, func() {
				for _, i := range in {
					if s.Get(i) {
						s.Set(out, signet.High)
						return
					}
				}
				s.Set(out, signet.Low)
			}, in...)
		}}).NewPart
}

// AndNWay returns a N-Way AND gate.
//
//	Inputs: in[n]
//	Outputs: out
//	Function: out = in[0] && in[1] && in[2] && ... && in[n-1]
//
func AndNWay(ways int) simcore.NewPartFn {
	return (&simcore.PartSpec{
		Name:    "AND" + strconv.Itoa(ways) + "Way",
		Inputs:  bus(ways, pIn),
		Outputs: []string{pOut},
		Mount: func(s *simcore.Socket) error {
			in, out := s.Bus(pIn, ways), s.Pin(pOut)
			return watch(s, func() {
				for _, i := range in {
					if !s.Get(i) {
						s.Set(out, signet.Low)
						return
					}
				}
				s.Set(out, signet.High)
			}, in...)
		}}).NewPart
}
