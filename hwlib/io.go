// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import (
	"strconv"

	"github.com/db47h/simcore"
	"github.com/db47h/simcore/signet"
	"github.com/pkg/errors"
)

// Int64 returns the value of the nodes as an int64. Node 0 is lsb.
//
func Int64(n *signet.Net, pins []signet.Node) int64 {
	var out int64
	for bit := range pins {
		if n.Value(pins[bit]).IsHigh() {
			out |= 1 << uint(bit)
		}
	}
	return out
}

// SetInt64 drives the nodes High or Low according to the bits of v.
//
func SetInt64(n *signet.Net, pins []signet.Node, v int64) error {
	for bit := range pins {
		if err := n.Set(pins[bit], signet.Bool(v&(1<<uint(bit)) != 0)); err != nil {
			return err
		}
	}
	return nil
}

// A Driver drives the output pins of an Input part from Go code. The zero
// value is ready to use. A Driver can be mounted only once.
//
type Driver struct {
	s    *simcore.Socket
	pins []signet.Node
}

func (d *Driver) mount(s *simcore.Socket, pins []signet.Node) error {
	if d.s != nil {
		return errors.Errorf("driver already mounted in %s", d.s.Name())
	}
	d.s, d.pins = s, pins
	for _, p := range pins {
		s.Set(p, signet.Low)
	}
	return nil
}

func (d *Driver) check() {
	if d.s == nil {
		panic("driver not mounted")
	}
}

// Set drives all pins High if v is true, Low otherwise.
//
func (d *Driver) Set(v bool) {
	d.SetLevel(signet.Bool(v))
}

// SetLevel drives all pins at the given level.
//
func (d *Driver) SetLevel(l signet.Level) {
	d.check()
	for _, p := range d.pins {
		d.s.Set(p, l)
	}
}

// SetInt64 drives the pins with the bits of v. Pin 0 is lsb.
//
func (d *Driver) SetInt64(v int64) {
	d.check()
	if err := SetInt64(d.s.Signals(), d.pins, v); err != nil {
		d.s.Logger().Error("set", "error", err)
	}
}

// Input creates an input driven by d. The output is initially Low.
//
//	Outputs: out
//	Function: out = d
//
func Input(d *Driver) simcore.NewPartFn {
	p := &simcore.PartSpec{
		Name:    "Input",
		Outputs: []string{pOut},
		Mount: func(s *simcore.Socket) error {
			return d.mount(s, []signet.Node{s.Pin(pOut)})
		},
	}
	return p.NewPart
}

// InputN creates an input bus of the given bits size driven by d.
//
//	Outputs: out[bits]
//
func InputN(bits int, d *Driver) simcore.NewPartFn {
	return (&simcore.PartSpec{
		Name:    "INPUT" + strconv.Itoa(bits),
		Outputs: bus(bits, pOut),
		Mount: func(s *simcore.Socket) error {
			return d.mount(s, s.Bus(pOut, bits))
		}}).NewPart
}

// Output creates an output or probe. The fn function is
// called with the pin state on mount and every time it changes.
//
//	Inputs: in
//	Function: f(in)
//
func Output(f func(bool)) simcore.NewPartFn {
	p := &simcore.PartSpec{
		Name:   "Output",
		Inputs: []string{pIn},
		Mount: func(s *simcore.Socket) error {
			in := s.Pin(pIn)
			return watch(s, func() { f(s.Get(in)) }, in)
		},
	}
	return p.NewPart
}

// Probe creates a probe that reports the resolved level of its input.
//
//	Inputs: in
//	Function: f(level(in))
//
func Probe(f func(signet.Level)) simcore.NewPartFn {
	p := &simcore.PartSpec{
		Name:   "Probe",
		Inputs: []string{pIn},
		Mount: func(s *simcore.Socket) error {
			in := s.Pin(pIn)
			f(s.Signals().Value(in))
			return s.Trace(in, func(_ signet.Node, v signet.Level, _ int) { f(v) }, 0)
		},
	}
	return p.NewPart
}

// OutputN creates an output bus of the given bits size. f is called with the
// bus value on mount and every time one of its pins changes.
//
func OutputN(bits int, f func(int64)) simcore.NewPartFn {
	return (&simcore.PartSpec{
		Name:   "OUTPUTBUS" + strconv.Itoa(bits),
		Inputs: bus(bits, pIn),
		Mount: func(s *simcore.Socket) error {
			pins := s.Bus(pIn, bits)
			return watch(s, func() { f(Int64(s.Signals(), pins)) }, pins...)
		}}).NewPart
}
