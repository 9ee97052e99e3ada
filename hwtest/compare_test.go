// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwtest_test

import (
	"testing"

	sim "github.com/db47h/simcore"
	hl "github.com/db47h/simcore/hwlib"
	"github.com/db47h/simcore/hwtest"
)

func TestComparePart(t *testing.T) {
	or, err := sim.Chip("custom_or", "a,b", "out",
		hl.Nand("a=a, b=a, out=notA"),
		hl.Nand("a=b, b=b, out=notB"),
		hl.Nand("a=notA, b=notB, out=out"),
	)
	if err != nil {
		t.Fatal(err)
	}
	hwtest.ComparePart(t, hl.Or, or)
}

func TestRecorder(t *testing.T) {
	m := hwtest.NewMachine(t)
	var d hl.Driver
	if err := m.Mount("in", hl.Input(&d)("out=x")); err != nil {
		t.Fatal(err)
	}
	if _, err := hwtest.Record(m, "x", "nope"); err == nil {
		t.Fatal("expected error for unknown node")
	}
	r, err := hwtest.Record(m, "x")
	if err != nil {
		t.Fatal(err)
	}
	d.Set(true)
	if err = m.Run(5); err != nil {
		t.Fatal(err)
	}
	d.Set(false)
	exp := "0 x High\n5 x Low\n"
	if s := r.String(); s != exp {
		t.Fatalf("expected:\n%sgot:\n%s", exp, s)
	}
	r.Reset()
	r.Stop()
	d.Set(true)
	if len(r.Events()) != 0 {
		t.Fatalf("unexpected events after Stop: %v", r.Events())
	}
}
