// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib_test

import (
	"testing"

	hl "github.com/db47h/simcore/hwlib"
	"github.com/db47h/simcore/hwtest"
	"github.com/db47h/simcore/signet"
)

func TestRelay(t *testing.T) {
	var coil, in hl.Driver
	var x, y signet.Level

	m := hwtest.NewMachine(t)
	mount(t, m, "coil", hl.Input(&coil)("out=coil"))
	mount(t, m, "in", hl.Input(&in)("out=pa"))
	mount(t, m, "r", hl.Relay("coil=coil, a=pa, b=pb, x=px, y=py"))
	mount(t, m, "px", hl.Probe(func(l signet.Level) { x = l })("in=px"))
	mount(t, m, "py", hl.Probe(func(l signet.Level) { y = l })("in=py"))

	in.Set(true)
	td := []struct {
		coil bool
		x, y signet.Level
	}{
		{false, signet.High, signet.Open},
		{true, signet.Open, signet.High},
		{false, signet.High, signet.Open},
	}
	for _, d := range td {
		coil.Set(d.coil)
		run(t, m, 1)
		if x != d.x || y != d.y {
			t.Errorf("coil=%v: expected x=%v y=%v, got x=%v y=%v", d.coil, d.x, d.y, x, y)
		}
	}

	sig := m.Signals()
	pa, _ := sig.Find("pa")
	px, _ := sig.Find("px")
	if !sig.SameNet(pa, px) {
		t.Fatal("pa and px not on the same net")
	}
}

func TestRelay_bidirectional(t *testing.T) {
	var coil, in hl.Driver
	var a signet.Level

	m := hwtest.NewMachine(t)
	mount(t, m, "coil", hl.Input(&coil)("out=coil"))
	mount(t, m, "r", hl.Relay("coil=coil, a=pa, b=pb, x=px, y=py"))
	mount(t, m, "in", hl.Input(&in)("out=py"))
	mount(t, m, "pa", hl.Probe(func(l signet.Level) { a = l })("in=pa"))

	in.Set(true)
	if a != signet.Open {
		t.Fatalf("expected a to float, got %v", a)
	}
	coil.Set(true)
	if a != signet.High {
		t.Fatalf("expected a High, got %v", a)
	}
	in.Set(false)
	if a != signet.Low {
		t.Fatalf("expected a Low, got %v", a)
	}
}
