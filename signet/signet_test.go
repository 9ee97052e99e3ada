// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package signet_test

import (
	"bytes"
	"testing"

	"github.com/db47h/simcore/signet"
	"github.com/pkg/errors"
)

func nodes(t *testing.T, s *signet.Net, names ...string) []signet.Node {
	t.Helper()
	ns := make([]signet.Node, len(names))
	for i, name := range names {
		n, err := s.NewNode(name)
		if err != nil {
			t.Fatal(err)
		}
		ns[i] = n
	}
	return ns
}

func link(t *testing.T, s *signet.Net, pairs ...signet.Node) {
	t.Helper()
	for i := 0; i < len(pairs); i += 2 {
		if err := s.Link(pairs[i], pairs[i+1]); err != nil {
			t.Fatal(err)
		}
	}
}

func set(t *testing.T, s *signet.Net, n signet.Node, l signet.Level) {
	t.Helper()
	if err := s.Set(n, l); err != nil {
		t.Fatal(err)
	}
}

func TestDominance(t *testing.T) {
	data := []struct {
		a, b, want signet.Level
	}{
		{signet.Open, signet.Open, signet.Open},
		{signet.WeakPullUp, signet.Open, signet.WeakPullUp},
		{signet.WeakPullUp, signet.WeakPullDown, signet.WeakPullDown},
		{signet.WeakPullUp, signet.PullDown, signet.PullDown},
		{signet.PullUp, signet.WeakPullDown, signet.PullUp},
		{signet.PullUp, signet.Low, signet.Low},
		{signet.High, signet.PullDown, signet.High},
		{signet.High, signet.Low, signet.Low},
		{signet.ForceHigh, signet.Low, signet.ForceHigh},
		{signet.ForceHigh, signet.ForceLow, signet.ForceLow},
	}
	for _, d := range data {
		t.Run(d.a.String()+"_"+d.b.String(), func(t *testing.T) {
			s := signet.New()
			n := nodes(t, s, "a", "b")
			link(t, s, n[0], n[1])
			set(t, s, n[0], d.a)
			set(t, s, n[1], d.b)
			if v := s.Value(n[0]); v != d.want {
				t.Errorf("a: expected %v, got %v", d.want, v)
			}
			if v := s.Value(n[1]); v != d.want {
				t.Errorf("b: expected %v, got %v", d.want, v)
			}
		})
	}
}

func TestLevels(t *testing.T) {
	for l := signet.Open; l <= signet.ForceHigh; l++ {
		p, err := signet.ParseLevel(l.String())
		if err != nil || p != l {
			t.Errorf("ParseLevel(%q): got %v, %v", l.String(), p, err)
		}
		if l.IsHigh() && l.IsLow() {
			t.Errorf("%v: both high and low", l)
		}
		if l != signet.Open && !l.IsHigh() && !l.IsLow() {
			t.Errorf("%v: neither high nor low", l)
		}
	}
	if _, err := signet.ParseLevel("Z"); errors.Cause(err) != signet.ErrBadLevel {
		t.Errorf("expected ErrBadLevel, got %v", err)
	}
	if signet.Bool(true) != signet.High || signet.Bool(false) != signet.Low {
		t.Error("Bool: bad level")
	}
}

func TestNetResolution(t *testing.T) {
	s := signet.New()
	n := nodes(t, s, "dev.a", "dev.b", "dev.c")
	a, b, c := n[0], n[1], n[2]
	link(t, s, a, b, b, c)
	set(t, s, a, signet.WeakPullUp)

	var got []signet.Level
	if _, err := s.Trace(b, func(_ signet.Node, v signet.Level, _ int) { got = append(got, v) }, 0); err != nil {
		t.Fatal(err)
	}
	set(t, s, b, signet.Open)
	set(t, s, c, signet.Low)
	if v := s.Value(a); v != signet.Low {
		t.Fatalf("expected Low, got %v", v)
	}
	set(t, s, c, signet.Open)
	if v := s.Value(a); v != signet.WeakPullUp {
		t.Fatalf("expected WeakPullUp, got %v", v)
	}
	if len(got) != 2 || got[0] != signet.Low || got[1] != signet.WeakPullUp {
		t.Fatalf("expected trace values [Low WeakPullUp], got %v", got)
	}
	if s.Driven(b) != signet.Open {
		t.Errorf("expected b driven Open, got %v", s.Driven(b))
	}
}

func TestCycle(t *testing.T) {
	s := signet.New()
	n := nodes(t, s, "a", "b", "c", "d", "e")
	a, b, c, d, e := n[0], n[1], n[2], n[3], n[4]
	link(t, s, a, b, b, c, c, a, d, e)
	set(t, s, d, signet.Low)

	eHits := 0
	if _, err := s.Trace(e, func(signet.Node, signet.Level, int) { eHits++ }, 0); err != nil {
		t.Fatal(err)
	}
	hits := make([]int, 3)
	for i, x := range n[:3] {
		if _, err := s.Trace(x, func(_ signet.Node, _ signet.Level, i int) { hits[i]++ }, i); err != nil {
			t.Fatal(err)
		}
	}

	set(t, s, b, signet.High)
	for i, x := range n[:3] {
		if v := s.Value(x); v != signet.High {
			t.Errorf("%s: expected High, got %v", s.Name(x), v)
		}
		if hits[i] != 1 {
			t.Errorf("%s: expected 1 trace call, got %d", s.Name(x), hits[i])
		}
	}
	if len(s.Members(a)) != 3 {
		t.Errorf("expected 3 members, got %d", len(s.Members(a)))
	}

	// still connected through c
	if err := s.Unlink(a, b); err != nil {
		t.Fatal(err)
	}
	if !s.SameNet(a, b) || s.Value(a) != signet.High {
		t.Fatal("a and b should still share a net")
	}
	if err := s.Unlink(b, c); err != nil {
		t.Fatal(err)
	}
	if s.SameNet(a, b) || !s.SameNet(a, c) {
		t.Fatal("expected b to be split from a and c")
	}
	if v := s.Value(a); v != signet.Open {
		t.Errorf("a: expected Open, got %v", v)
	}
	if v := s.Value(b); v != signet.High {
		t.Errorf("b: expected High, got %v", v)
	}
	if err := s.Unlink(b, c); errors.Cause(err) != signet.ErrNotLinked {
		t.Errorf("expected ErrNotLinked, got %v", err)
	}
	if s.Value(e) != signet.Low || eHits != 0 {
		t.Errorf("unrelated net changed: e = %v, %d trace calls", s.Value(e), eHits)
	}
}

func TestReentrantSet(t *testing.T) {
	s := signet.New()
	n := nodes(t, s, "x", "y")
	x, y := n[0], n[1]
	var xHits, yHits int
	s.Trace(x, func(_ signet.Node, v signet.Level, _ int) {
		xHits++
		if err := s.Set(y, v); err != nil {
			t.Error(err)
		}
	}, 0)
	s.Trace(y, func(_ signet.Node, v signet.Level, _ int) {
		yHits++
		if err := s.Set(x, v); err != nil {
			t.Error(err)
		}
	}, 0)
	set(t, s, x, signet.High)
	if xHits != 1 || yHits != 1 {
		t.Fatalf("expected 1 call per trace, got x: %d, y: %d", xHits, yHits)
	}
	if s.Value(y) != signet.High {
		t.Fatalf("expected y High, got %v", s.Value(y))
	}
}

func TestStaleNotification(t *testing.T) {
	s := signet.New()
	x := nodes(t, s, "x")[0]
	// the first trace immediately drives x back low.
	s.Trace(x, func(n signet.Node, v signet.Level, _ int) {
		if v == signet.High {
			s.Set(n, signet.Low)
		}
	}, 0)
	var got []signet.Level
	s.Trace(x, func(_ signet.Node, v signet.Level, _ int) { got = append(got, v) }, 0)
	set(t, s, x, signet.High)
	if len(got) != 1 || got[0] != signet.Low {
		t.Fatalf("expected [Low], got %v", got)
	}
}

func TestUntrace(t *testing.T) {
	s := signet.New()
	x := nodes(t, s, "x")[0]
	var hits [2]int
	var h1 signet.TraceHandle
	s.Trace(x, func(signet.Node, signet.Level, int) {
		hits[0]++
		s.Untrace(h1)
	}, 0)
	h1, _ = s.Trace(x, func(signet.Node, signet.Level, int) { hits[1]++ }, 0)
	set(t, s, x, signet.High)
	set(t, s, x, signet.Low)
	s.Untrace(h1)
	if hits[0] != 2 || hits[1] != 0 {
		t.Fatalf("expected [2 0] trace calls, got %v", hits)
	}
	if _, err := s.Trace(x, nil, 0); err == nil {
		t.Fatal("expected error on nil trace function")
	}
}

func TestStaleHandle(t *testing.T) {
	s := signet.New()
	a := nodes(t, s, "a")[0]
	if err := s.Delete(a); err != nil {
		t.Fatal(err)
	}
	b := nodes(t, s, "b")[0]
	if err := s.Set(a, signet.High); errors.Cause(err) != signet.ErrStaleHandle {
		t.Fatalf("expected ErrStaleHandle, got %v", err)
	}
	if s.Value(b) != signet.Open {
		t.Fatalf("stale handle aliased live node: b = %v", s.Value(b))
	}
	if err := s.Link(a, b); errors.Cause(err) != signet.ErrStaleHandle {
		t.Fatalf("expected ErrStaleHandle, got %v", err)
	}
	if err := s.Delete(a); errors.Cause(err) != signet.ErrStaleHandle {
		t.Fatalf("expected ErrStaleHandle, got %v", err)
	}
	if s.Name(a) != "" || s.Value(signet.Node{}) != signet.Open {
		t.Fatal("stale handles should read as unnamed and Open")
	}
	if _, ok := s.Find("a"); ok {
		t.Fatal("deleted node still registered")
	}
}

func TestDelete(t *testing.T) {
	s := signet.New()
	n := nodes(t, s, "a", "b")
	link(t, s, n[0], n[1])
	set(t, s, n[0], signet.High)
	var got signet.Level = signet.High
	s.Trace(n[1], func(_ signet.Node, v signet.Level, _ int) { got = v }, 0)
	if err := s.Delete(n[0]); err != nil {
		t.Fatal(err)
	}
	if got != signet.Open || s.Value(n[1]) != signet.Open {
		t.Fatalf("expected b to float, got %v", got)
	}
}

func TestNames(t *testing.T) {
	s := signet.New()
	if _, err := s.NewNode("uart0.tx"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.NewNode("uart0.tx"); errors.Cause(err) != signet.ErrDuplicateName {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
	if _, err := s.NewNode("uart0..tx"); errors.Cause(err) != signet.ErrBadName {
		t.Fatalf("expected ErrBadName, got %v", err)
	}
	if _, ok := s.Find("uart0.tx"); !ok {
		t.Fatal("uart0.tx not found")
	}
	if _, ok := s.Find("uart0.rx"); ok {
		t.Fatal("uart0.rx found")
	}
}

func TestNewBus(t *testing.T) {
	s := signet.New()
	bus, err := s.NewBus("dev.d[0..3]")
	if err != nil {
		t.Fatal(err)
	}
	if len(bus) != 4 {
		t.Fatalf("expected 4 nodes, got %d", len(bus))
	}
	for i, n := range bus {
		if name := s.Name(n); name != "dev.d."+string(rune('0'+i)) {
			t.Errorf("bad name %q", name)
		}
	}
	if _, err := s.NewNode("io.p.2"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.NewBus("io.p[0..3]"); errors.Cause(err) != signet.ErrDuplicateName {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
	if _, ok := s.Find("io.p.0"); ok {
		t.Fatal("failed NewBus left nodes behind")
	}
	if _, err := s.NewBus("io.q[0..1"); errors.Cause(err) != signet.ErrBadName {
		t.Fatalf("expected ErrBadName, got %v", err)
	}
}

func TestConflict(t *testing.T) {
	data := []struct {
		a, b     signet.Level
		conflict bool
	}{
		{signet.High, signet.Low, true},
		{signet.High, signet.ForceLow, true},
		{signet.ForceHigh, signet.ForceLow, true},
		{signet.PullUp, signet.Low, false},
		{signet.High, signet.High, false},
		{signet.PullUp, signet.PullDown, false},
	}
	for _, d := range data {
		t.Run(d.a.String()+"_"+d.b.String(), func(t *testing.T) {
			s := signet.New()
			n := nodes(t, s, "a", "b")
			var cs []signet.Conflict
			s.OnConflict(func(c signet.Conflict) { cs = append(cs, c) })
			link(t, s, n[0], n[1])
			set(t, s, n[0], d.a)
			set(t, s, n[1], d.b)
			if !d.conflict {
				if len(cs) != 0 {
					t.Fatalf("unexpected conflict %+v", cs[0])
				}
				return
			}
			if len(cs) != 1 {
				t.Fatalf("expected 1 conflict, got %d", len(cs))
			}
			if c := cs[0]; c.Winner != n[1] || c.Loser != n[0] || c.WinLevel != d.b || c.LoseLevel != d.a {
				t.Fatalf("bad conflict %+v", c)
			}
		})
	}
}

func TestConflict_reportedOnce(t *testing.T) {
	s := signet.New()
	n := nodes(t, s, "a", "b", "c")
	link(t, s, n[0], n[1], n[1], n[2])
	var cs []signet.Conflict
	s.OnConflict(func(c signet.Conflict) { cs = append(cs, c) })

	set(t, s, n[0], signet.High)
	set(t, s, n[1], signet.ForceLow)
	for i := 0; i < 5; i++ {
		set(t, s, n[2], signet.WeakPullUp)
		set(t, s, n[2], signet.Open)
	}
	if len(cs) != 1 {
		t.Fatalf("expected 1 conflict, got %d: %+v", len(cs), cs)
	}

	// new winning level
	set(t, s, n[1], signet.Low)
	if len(cs) != 2 || cs[1].WinLevel != signet.Low || cs[1].Loser != n[0] {
		t.Fatalf("expected a second conflict won by Low, got %+v", cs)
	}
	// cleared, then back
	set(t, s, n[1], signet.Open)
	set(t, s, n[1], signet.ForceLow)
	if len(cs) != 3 {
		t.Fatalf("expected 3 conflicts, got %d: %+v", len(cs), cs)
	}
}

func TestLink_drivenNets(t *testing.T) {
	data := []struct {
		name     string
		a, b     signet.Level
		want     signet.Level
		ta, tb   int // traces fired on a and c by Link
		conflict bool
	}{
		{"strong_pull", signet.High, signet.PullDown, signet.High, 0, 1, false},
		{"pull_strong", signet.PullUp, signet.Low, signet.Low, 1, 0, false},
		{"strong_strong", signet.High, signet.Low, signet.Low, 1, 0, true},
		{"same", signet.PullUp, signet.PullUp, signet.PullUp, 0, 0, false},
	}
	for _, d := range data {
		t.Run(d.name, func(t *testing.T) {
			s := signet.New()
			n := nodes(t, s, "a", "b", "c")
			// a | b - c
			link(t, s, n[1], n[2])
			set(t, s, n[0], d.a)
			set(t, s, n[1], d.b)
			var ta, tb, nc int
			if _, err := s.Trace(n[0], func(signet.Node, signet.Level, int) { ta++ }, 0); err != nil {
				t.Fatal(err)
			}
			if _, err := s.Trace(n[2], func(signet.Node, signet.Level, int) { tb++ }, 0); err != nil {
				t.Fatal(err)
			}
			s.OnConflict(func(signet.Conflict) { nc++ })

			link(t, s, n[0], n[1])
			for _, x := range n {
				if v := s.Value(x); v != d.want {
					t.Errorf("%s: expected %v, got %v", s.Name(x), d.want, v)
				}
			}
			if ta != d.ta || tb != d.tb {
				t.Errorf("expected %d/%d traces, got %d/%d", d.ta, d.tb, ta, tb)
			}
			if (nc == 1) != d.conflict || nc > 1 {
				t.Errorf("got %d conflict reports", nc)
			}

			if err := s.Unlink(n[0], n[1]); err != nil {
				t.Fatal(err)
			}
			if v := s.Value(n[0]); v != d.a {
				t.Errorf("a: expected %v after unlink, got %v", d.a, v)
			}
			if v := s.Value(n[2]); v != d.b {
				t.Errorf("c: expected %v after unlink, got %v", d.b, v)
			}
		})
	}
}

func TestFindDominant(t *testing.T) {
	s := signet.New()
	n := nodes(t, s, "a", "b", "c")
	link(t, s, n[0], n[1], n[1], n[2])
	if _, ok := s.FindDominant(n[0]); ok {
		t.Fatal("floating net has no dominant node")
	}
	set(t, s, n[0], signet.WeakPullUp)
	set(t, s, n[2], signet.Low)
	if d, ok := s.FindDominant(n[1]); !ok || d != n[2] {
		t.Fatalf("expected c, got %q", s.Name(d))
	}
	set(t, s, n[2], signet.Open)
	if d, ok := s.FindDominant(n[1]); !ok || d != n[0] {
		t.Fatalf("expected a, got %q", s.Name(d))
	}
}

func TestLinkErrors(t *testing.T) {
	s := signet.New()
	n := nodes(t, s, "a", "b")
	if err := s.Link(n[0], n[0]); err == nil {
		t.Fatal("expected error linking a node to itself")
	}
	link(t, s, n[0], n[1])
	if !s.Linked(n[0], n[1]) || !s.Linked(n[1], n[0]) {
		t.Fatal("expected a and b linked")
	}
	if err := s.Set(n[0], signet.Level(42)); errors.Cause(err) != signet.ErrBadLevel {
		t.Fatalf("expected ErrBadLevel, got %v", err)
	}
}

func TestDump(t *testing.T) {
	s := signet.New()
	n := nodes(t, s, "b", "a")
	link(t, s, n[0], n[1])
	set(t, s, n[0], signet.PullUp)
	var buf bytes.Buffer
	if err := s.Dump(&buf); err != nil {
		t.Fatal(err)
	}
	exp := "a PullUp (driven Open) <-> b\nb PullUp (driven PullUp) <-> a\n"
	if buf.String() != exp {
		t.Fatalf("expected:\n%s\ngot:\n%s", exp, buf.String())
	}
}

func TestStamp(t *testing.T) {
	s := signet.New()
	a := nodes(t, s, "a")[0]
	s0 := s.Stamp(a)
	set(t, s, a, signet.High)
	s1 := s.Stamp(a)
	if s1 == s0 {
		t.Fatal("stamp not bumped on change")
	}
	set(t, s, a, signet.ForceHigh)
	set(t, s, a, signet.ForceHigh)
	if s.Stamp(a) == s1 {
		t.Fatal("stamp not bumped on change")
	}
}
