// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib_test

import (
	"testing"

	sim "github.com/db47h/simcore"
	hl "github.com/db47h/simcore/hwlib"
	"github.com/db47h/simcore/hwtest"
)

func TestMuxN(t *testing.T) {
	m, err := sim.Chip("myMux4", "a[0..3], b[0..3], sel", "out[0..3]",
		hl.Mux("a=a[0], b=b[0], sel=sel, out=out[0]"),
		hl.Mux("a=a[1], b=b[1], sel=sel, out=out[1]"),
		hl.Mux("a=a[2], b=b[2], sel=sel, out=out[2]"),
		hl.Mux("a=a[3], b=b[3], sel=sel, out=out[3]"),
	)
	if err != nil {
		t.Fatal(err)
	}
	hwtest.ComparePart(t, hl.MuxN(4), m)
}

func TestDMuxN(t *testing.T) {
	dmux4, err := sim.Chip("myDMux4", "in[0..3], sel", "a[0..3], b[0..3]",
		hl.DMux("in=in[0], sel=sel, a=a[0], b=b[0]"),
		hl.DMux("in=in[1], sel=sel, a=a[1], b=b[1]"),
		hl.DMux("in=in[2], sel=sel, a=a[2], b=b[2]"),
		hl.DMux("in=in[3], sel=sel, a=a[3], b=b[3]"),
	)
	if err != nil {
		t.Fatal(err)
	}
	hwtest.ComparePart(t, hl.DMuxN(4), dmux4)
}

func TestMux4Way(t *testing.T) {
	mux4 := hl.MuxN(4)
	mux44, err := sim.Chip("myMux4Way4", "a[0..3], b[0..3], c[0..3], d[0..3], sel[0..1]", "out[0..3]",
		mux4("a[0..3]=a[0..3], b[0..3]=b[0..3], sel=sel[0], out[0..3]=m0[0..3]"),
		mux4("a[0..3]=c[0..3], b[0..3]=d[0..3], sel=sel[0], out[0..3]=m1[0..3]"),
		mux4("a[0..3]=m0[0..3], b[0..3]=m1[0..3], sel=sel[1], out[0..3]=out[0..3]"),
	)
	if err != nil {
		t.Fatal(err)
	}

	var a, b, c, d, sel hl.Driver
	var out int64
	m := hwtest.NewMachine(t)
	mount(t, m, "ia", hl.InputN(4, &a)("out[0..3]=a[0..3]"))
	mount(t, m, "ib", hl.InputN(4, &b)("out[0..3]=b[0..3]"))
	mount(t, m, "ic", hl.InputN(4, &c)("out[0..3]=c[0..3]"))
	mount(t, m, "id", hl.InputN(4, &d)("out[0..3]=d[0..3]"))
	mount(t, m, "isel", hl.InputN(2, &sel)("out[0..1]=sel[0..1]"))
	mount(t, m, "dut", mux44("a[0..3]=a[0..3], b[0..3]=b[0..3], c[0..3]=c[0..3], d[0..3]=d[0..3], sel[0..1]=sel[0..1], out[0..3]=o[0..3]"))
	mount(t, m, "probe", hl.OutputN(4, func(v int64) { out = v })("in[0..3]=o[0..3]"))

	a.SetInt64(1)
	b.SetInt64(2)
	c.SetInt64(4)
	d.SetInt64(8)
	for i, exp := range []int64{1, 2, 4, 8} {
		sel.SetInt64(int64(i))
		run(t, m, 1)
		if out != exp {
			t.Errorf("sel=%d: expected %d, got %d", i, exp, out)
		}
	}
}
