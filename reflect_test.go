// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package simcore_test

import (
	"testing"

	sim "github.com/db47h/simcore"
	"github.com/db47h/simcore/clocktree"
	hl "github.com/db47h/simcore/hwlib"
	"github.com/db47h/simcore/hwtest"
	"github.com/db47h/simcore/signet"
)

type testPart struct {
	A   [4]signet.Node `hw:"in"`
	B   [4]signet.Node `hw:"in"`
	Sel signet.Node    `hw:"in"`
	Out [4]signet.Node `hw:"out"`
}

func (p *testPart) Init(s *sim.Socket) error {
	update := func(signet.Node, signet.Level, int) {
		src := p.A
		if s.Get(p.Sel) {
			src = p.B
		}
		for i, n := range src {
			s.Set(p.Out[i], signet.Bool(s.Get(n)))
		}
	}
	update(p.Sel, 0, 0)
	for _, n := range append(append([]signet.Node{p.Sel}, p.A[:]...), p.B[:]...) {
		if err := s.Trace(n, update, 0); err != nil {
			return err
		}
	}
	return nil
}

func Test_MakePart(t *testing.T) {
	hwtest.ComparePart(t, hl.MuxN(4), sim.MakePart((*testPart)(nil)).NewPart)
}

type clocked struct {
	Clk clocktree.ID `hw:"clock,clk"`
	Out signet.Node  `hw:"out"`
	hz  uint64
}

func (c *clocked) Init(s *sim.Socket) error {
	c.hz = s.Machine().Clocks().Freq(c.Clk)
	s.Set(c.Out, signet.Bool(c.hz > 0))
	return nil
}

func Test_MakePart_clock(t *testing.T) {
	sp := sim.MakePart((*clocked)(nil))
	if sp.Name != "clocked" || len(sp.Clocks) != 1 || sp.Clocks[0] != "clk" || len(sp.Outputs) != 1 || sp.Outputs[0] != "out" {
		t.Fatalf("unexpected part spec %+v", sp)
	}
	m := hwtest.NewMachine(t)
	if _, err := m.Clocks().NewRoot("osc", 10); err != nil {
		t.Fatal(err)
	}
	var out bool
	mount(t, m, "c", sp.NewPart("clk=osc, out=o"))
	mount(t, m, "o", hl.Output(func(v bool) { out = v })("in=o"))
	if !out {
		t.Fatal("expected out High")
	}
}

type badType struct {
	In bool `hw:"in"`
}

func (*badType) Init(*sim.Socket) error { return nil }

type badTag struct {
	In signet.Node `hw:"inout"`
}

func (*badTag) Init(*sim.Socket) error { return nil }

type unexported struct {
	in signet.Node `hw:"in"`
}

func (*unexported) Init(*sim.Socket) error { return nil }

func Test_MakePart_panics(t *testing.T) {
	td := []struct {
		name string
		d    sim.Device
	}{
		{"type", (*badType)(nil)},
		{"tag", (*badTag)(nil)},
		{"unexported", (*unexported)(nil)},
	}
	for _, d := range td {
		t.Run(d.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Fatal("expected panic")
				}
			}()
			sim.MakePart(d.d)
		})
	}
}
