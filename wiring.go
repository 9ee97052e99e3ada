// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package simcore

import (
	"sort"

	"github.com/pkg/errors"
)

// a pin is identified by the part it belongs to and its name in that part's interface
type pin struct {
	p    int // part index, -1 for chip pins
	name string
}

const (
	wireInternal = iota
	wireInput
	wireOutput
	wireConst
)

// a wire is a named net inside a chip.
type wire struct {
	name string
	typ  int
	pins []pin
	outs int // number of part outputs driving the wire
}

type wiring struct {
	specs []*PartSpec
	wires map[string]*wire
}

func newWiring(ins, outs []string) (*wiring, error) {
	wr := &wiring{wires: make(map[string]*wire, len(ins)+len(outs)+2)}
	wr.wires[True] = &wire{name: True, typ: wireConst}
	wr.wires[False] = &wire{name: False, typ: wireConst}
	for _, in := range ins {
		if err := wr.declare(in, wireInput); err != nil {
			return nil, err
		}
	}
	for _, out := range outs {
		if err := wr.declare(out, wireOutput); err != nil {
			return nil, err
		}
	}
	return wr, nil
}

func (wr *wiring) declare(name string, typ int) error {
	if _, ok := wr.wires[name]; ok {
		return errors.New("duplicate pin name " + name)
	}
	wr.wires[name] = &wire{name: name, typ: typ, pins: []pin{{-1, name}}}
	return nil
}

func (wr *wiring) pinName(p pin) string {
	if p.p < 0 {
		return p.name
	}
	return wr.specs[p.p].Name + "." + p.name
}

// addPart adds the connections of a sub-part.
func (wr *wiring) addPart(p Part) error {
	pnum := len(wr.specs)
	wr.specs = append(wr.specs, p.PartSpec)
	for _, c := range p.Conns {
		if p.isClock(c.PP) {
			continue
		}
		if !p.isPin(c.PP) {
			return errors.New("invalid pin name " + c.PP + " for part " + p.Name)
		}
		isOut := false
		for _, o := range p.Outputs {
			if o == c.PP {
				isOut = true
				break
			}
		}
		for _, cp := range c.CP {
			if err := wr.add(pin{pnum, c.PP}, isOut, cp); err != nil {
				return errors.Wrap(err, wr.pinName(pin{pnum, c.PP})+":"+cp)
			}
		}
	}
	return nil
}

func (wr *wiring) add(p pin, isOut bool, name string) error {
	w := wr.wires[name]
	if w == nil {
		w = &wire{name: name, typ: wireInternal}
		wr.wires[name] = w
	}
	if isOut {
		switch {
		case w.typ == wireConst:
			return errors.New("output pin connected to constant " + name + " input")
		case w.typ == wireInput:
			return errors.New("chip input pin used as output")
		}
		w.outs++
	}
	w.pins = append(w.pins, p)
	return nil
}

// check returns an error for chip outputs that are not connected to any part
// and for internal wires that connect a single pin.
func (wr *wiring) check() error {
	names := make([]string, 0, len(wr.wires))
	for n := range wr.wires {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		w := wr.wires[n]
		switch w.typ {
		case wireOutput:
			if w.outs == 0 {
				return errors.New("chip output pin " + n + " not connected to any part output")
			}
		case wireInternal:
			if len(w.pins) < 2 {
				return errors.New("pin " + n + " connected to " + wr.pinName(w.pins[0]) + " only")
			}
		}
	}
	return nil
}

// hostNet returns the name of the machine net for wire name in chip instance.
func hostNet(instance, name string) string {
	if name == True || name == False {
		return name
	}
	return instance + "." + name
}
