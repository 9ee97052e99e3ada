// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package simcore

import (
	"strconv"

	"github.com/db47h/simcore/internal/hdl"
	"github.com/pkg/errors"
)

type chip struct {
	PartSpec        // PartSpec for this chip
	parts    []Part // sub parts
}

// mount mounts all sub-parts. Sub-part i is mounted as "<chip instance>.i" and
// internal wires are named "<chip instance>.<wire>".
func (c *chip) mount(s *Socket) error {
	for i, p := range c.parts {
		conns := make([]Connection, len(p.Conns))
		for j, cn := range p.Conns {
			cps := make([]string, len(cn.CP))
			for k, cp := range cn.CP {
				if p.isClock(cn.PP) {
					cps[k] = cp
				} else {
					cps[k] = hostNet(s.Name(), cp)
				}
			}
			conns[j] = Connection{cn.PP, cps}
		}
		if err := s.Mount(strconv.Itoa(i), Part{p.PartSpec, conns}); err != nil {
			return err
		}
	}
	return nil
}

// Chip composes existing parts into a new part packaged into a chip.
// The pin names specified as inputs and outputs will be the inputs
// and outputs of the chip. Other names used in the connections of the
// sub-parts are internal wires, private to each chip instance.
//
// Clock connections of sub-parts refer directly to clocks of the machine.
//
// An Xor gate could be created like this:
//
//	xor, err := Chip(
//		"XOR",
//		"a, b",
//		"out",
//		Nand("a=a, b=b, out=nandAB"),
//		Nand("a=a, b=nandAB, out=w0"),
//		Nand("a=b, b=nandAB, out=w1"),
//		Nand("a=w0, b=w1, out=out"),
//	)
//
// The returned value is a function of type NewPartFn that can be used to
// compose the new part with others into other chips:
//
//	xnor, err := Chip(
//		"XNOR",
//		"a, b",
//		"out",
//		xor("a=a, b=b, out=xorAB"),
//		Not("in=xorAB, out=out"),
//	)
//
func Chip(name string, inputs string, outputs string, parts ...Part) (NewPartFn, error) {
	ins, err := hdl.Expand(inputs)
	if err != nil {
		return nil, errors.Wrapf(err, "chip %s: inputs", name)
	}
	outs, err := hdl.Expand(outputs)
	if err != nil {
		return nil, errors.Wrapf(err, "chip %s: outputs", name)
	}
	wr, err := newWiring(ins, outs)
	if err != nil {
		return nil, errors.Wrapf(err, "chip %s", name)
	}
	for _, p := range parts {
		if p.PartSpec == nil {
			return nil, errors.Errorf("chip %s: nil part", name)
		}
		if err = wr.addPart(p); err != nil {
			return nil, err
		}
	}
	if err = wr.check(); err != nil {
		return nil, err
	}

	c := &chip{
		PartSpec{
			Name:    name,
			Inputs:  ins,
			Outputs: outs,
		},
		parts,
	}
	c.PartSpec.Mount = c.mount
	return c.PartSpec.NewPart, nil
}
