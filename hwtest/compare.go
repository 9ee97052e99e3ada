// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package hwtest provides utility functions for testing parts and machines.
//
package hwtest

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/db47h/simcore"
	"github.com/db47h/simcore/hwlib"
)

// NewMachine returns a machine with a 1 kHz reference rate that discards its
// logs. It fails the test on error.
//
func NewMachine(t testing.TB) *simcore.Machine {
	t.Helper()
	m, err := simcore.New(simcore.Config{
		RefHz:  1000,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func connString(in []string, inPrefix string, out []string, outPrefix string) string {
	var b strings.Builder
	for _, n := range in {
		if b.Len() > 0 {
			b.WriteRune(',')
		}
		b.WriteString(n)
		b.WriteRune('=')
		b.WriteString(inPrefix + n)
	}
	for _, n := range out {
		if b.Len() > 0 {
			b.WriteRune(',')
		}
		b.WriteString(n)
		b.WriteRune('=')
		b.WriteString(outPrefix + n)
	}
	return b.String()
}

// ComparePart takes two parts and compares their outputs given the same inputs.
// Both parts must have the same Input/Output interface.
//
// Up to 12 inputs, all input combinations are tested. Above that, random
// inputs are used.
//
func ComparePart(t *testing.T, part1 simcore.NewPartFn, part2 simcore.NewPartFn) {
	t.Helper()

	ps1, ps2 := part1(""), part2("")

	// compare specs
	if len(ps1.Inputs) != len(ps2.Inputs) {
		t.Fatal("len(ps1.Inputs) != len(ps2.Inputs)")
	}
	if len(ps1.Outputs) != len(ps2.Outputs) {
		t.Fatal("len(ps1.Outputs) != len(ps2.Outputs)")
	}
	for i := range ps1.Inputs {
		if ps1.Inputs[i] != ps2.Inputs[i] {
			t.Fatalf("ps1.Inputs[i] = %q != ps2.Inputs[i] = %q", ps1.Inputs[i], ps2.Inputs[i])
		}
	}
	for i := range ps1.Outputs {
		if ps1.Outputs[i] != ps2.Outputs[i] {
			t.Fatalf("ps1.Outputs[i] = %q != ps2.Outputs[i] = %q", ps1.Outputs[i], ps2.Outputs[i])
		}
	}

	m := NewMachine(t)
	inputs := make([]hwlib.Driver, len(ps1.Inputs))
	values := make([]bool, len(ps1.Inputs))
	outputs := make([][2]bool, len(ps1.Outputs))

	mount := func(name string, p simcore.Part) {
		t.Helper()
		if err := m.Mount(name, p); err != nil {
			t.Fatal(err)
		}
	}
	for i, n := range ps1.Inputs {
		mount(fmt.Sprintf("in%d", i), hwlib.Input(&inputs[i])("out=i."+n))
	}
	mount("part1", part1(connString(ps1.Inputs, "i.", ps1.Outputs, "o1.")))
	mount("part2", part2(connString(ps2.Inputs, "i.", ps2.Outputs, "o2.")))
	for i, n := range ps1.Outputs {
		o := &outputs[i]
		mount(fmt.Sprintf("out1_%d", i), hwlib.Output(func(b bool) { o[0] = b })("in=o1."+n))
		mount(fmt.Sprintf("out2_%d", i), hwlib.Output(func(b bool) { o[1] = b })("in=o2."+n))
	}

	errString := func(oname string, ex, got bool) string {
		var b strings.Builder
		for i, n := range ps1.Inputs {
			if b.Len() > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%v", n, values[i])
		}
		return fmt.Sprintf("\nExpected %s => %s=%v\nGot %v", b.String(), oname, ex, got)
	}
	check := func() {
		t.Helper()
		for i := range inputs {
			inputs[i].Set(values[i])
		}
		// flush updates deferred to the scheduler
		if err := m.Run(1); err != nil {
			t.Fatal(err)
		}
		for o, out := range outputs {
			if out[0] != out[1] {
				t.Fatal(errString(ps1.Outputs[o], out[0], out[1]))
			}
		}
	}

	start := time.Now()

	// try all 0, then all 1
	check()
	for i := range values {
		values[i] = true
	}
	check()

	if n := len(values); n <= 12 {
		for i := 0; i < 1<<uint(n); i++ {
			for bit := range values {
				values[bit] = i&(1<<uint(bit)) != 0
			}
			check()
		}
	} else {
		rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
		for i := 0; i < 1<<12; i++ {
			for bit := range values {
				values[bit] = rnd.Int63()&(1<<62) != 0
			}
			check()
		}
	}

	t.Logf("%d ticks in %v", m.Now(), time.Since(start))
}
