// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package clocktree implements the clock frequency tree of a simulated machine.
//
// Root clocks (oscillators, crystals) have an explicit frequency. Derived
// clocks (PLLs, prescalers, peripheral clock gates) run at an exact rational
// multiple of their parent. Frequencies are never cached: every query folds
// the multiplier chain up to the root, so a result always reflects the last
// SetRootFreq, Derive, Decouple or SetEnabled call.
//
package clocktree

import (
	"fmt"
	"io"
	"math"
	"math/big"
	"strings"

	"github.com/pkg/errors"
)

// FreqInHz constants.
const (
	Hz  uint64 = 1
	KHz        = 1000 * Hz
	MHz        = 1000 * KHz
	GHz        = 1000 * MHz
)

// Clock tree errors.
var (
	ErrDuplicateName = errors.New("duplicate clock name")
	ErrZeroDivisor   = errors.New("zero divisor")
	ErrCycle         = errors.New("cyclic clock parentage")
	ErrNotRoot       = errors.New("not a root clock")
	ErrBadID         = errors.New("invalid clock id")
	ErrOverflow      = errors.New("clock ratio overflows 64 bits")
)

// An ID identifies a clock in a Graph. The zero ID is invalid.
//
type ID uint32

// A ChangeFunc is called when the effective frequency of a clock changes.
//
type ChangeFunc func(id ID, hz uint64)

// A TraceHandle identifies a ChangeFunc registered with OnChange.
//
type TraceHandle struct {
	id  ID
	seq uint64
}

type trace struct {
	seq uint64
	fn  ChangeFunc
}

type node struct {
	name     string
	parent   ID
	mul, div uint64
	hz       uint64 // frequency of a clock without parent
	enabled  bool
	children []ID
	traces   []trace
}

// Graph is a clock tree. The reference rate is the tick rate of the
// scheduler driving the machine.
//
type Graph struct {
	refHz uint64
	nodes []node
	names map[string]ID
	seq   uint64
}

// New returns a new clock Graph whose reference rate is refHz.
//
func New(refHz uint64) (*Graph, error) {
	if refHz == 0 {
		return nil, errors.New("zero reference frequency")
	}
	return &Graph{refHz: refHz, names: make(map[string]ID)}, nil
}

// RefHz returns the reference rate.
//
func (g *Graph) RefHz() uint64 { return g.refHz }

func (g *Graph) newNode(name string) (ID, error) {
	if name == "" {
		return 0, errors.New("empty clock name")
	}
	if _, ok := g.names[name]; ok {
		return 0, errors.Wrap(ErrDuplicateName, name)
	}
	g.nodes = append(g.nodes, node{name: name, mul: 1, div: 1, enabled: true})
	id := ID(len(g.nodes))
	g.names[name] = id
	return id, nil
}

// NewRoot creates a new root clock running at hz.
//
func (g *Graph) NewRoot(name string, hz uint64) (ID, error) {
	id, err := g.newNode(name)
	if err != nil {
		return 0, err
	}
	g.nodes[id-1].hz = hz
	return id, nil
}

// NewDerived creates a new clock with no parent. It runs at 0 Hz until it
// is given a parent with Derive.
//
func (g *Graph) NewDerived(name string) (ID, error) {
	return g.newNode(name)
}

func (g *Graph) node(id ID) (*node, error) {
	if id == 0 || int(id) > len(g.nodes) {
		return nil, errors.Wrapf(ErrBadID, "clock %d", id)
	}
	return &g.nodes[id-1], nil
}

// Find returns the clock with the given name.
//
func (g *Graph) Find(name string) (ID, bool) {
	id, ok := g.names[name]
	return id, ok
}

// Name returns the name of a clock.
//
func (g *Graph) Name(id ID) string {
	n, err := g.node(id)
	if err != nil {
		return ""
	}
	return n.name
}

// Parent returns the parent of a derived clock.
//
func (g *Graph) Parent(id ID) (ID, bool) {
	n, err := g.node(id)
	if err != nil || n.parent == 0 {
		return 0, false
	}
	return n.parent, true
}

// Children returns the clocks directly derived from id.
//
func (g *Graph) Children(id ID) []ID {
	n, err := g.node(id)
	if err != nil {
		return nil
	}
	return append([]ID(nil), n.children...)
}

// SetRootFreq sets the frequency of a clock without parent. A frequency of 0
// means that the clock is stopped.
//
func (g *Graph) SetRootFreq(id ID, hz uint64) error {
	n, err := g.node(id)
	if err != nil {
		return err
	}
	if n.parent != 0 {
		return errors.Wrap(ErrNotRoot, n.name)
	}
	snap := g.snapshot(id)
	n.hz = hz
	g.notify(snap)
	return nil
}

// Derive makes id run at parent's frequency * mul / div. If id already has a
// parent, it is replaced. The graph is left unchanged on error.
//
func (g *Graph) Derive(id, parent ID, mul, div uint64) error {
	n, err := g.node(id)
	if err != nil {
		return err
	}
	p, err := g.node(parent)
	if err != nil {
		return err
	}
	if div == 0 {
		return errors.Wrapf(ErrZeroDivisor, "%s from %s", n.name, p.name)
	}
	for a := parent; a != 0; a = g.nodes[a-1].parent {
		if a == id {
			return errors.Wrapf(ErrCycle, "%s from %s", n.name, p.name)
		}
	}
	snap := g.snapshot(id)
	g.detach(id)
	n.parent, n.mul, n.div = parent, mul, div
	p.children = append(p.children, id)
	g.notify(snap)
	return nil
}

// Decouple detaches a derived clock from its parent. The clock keeps running
// at its last frequency as a root clock.
//
func (g *Graph) Decouple(id ID) error {
	n, err := g.node(id)
	if err != nil {
		return err
	}
	if n.parent == 0 {
		return nil
	}
	r := g.rate(n.parent)
	r.Mul(r, frac(n.mul, n.div))
	hz := floor(r)
	snap := g.snapshot(id)
	g.detach(id)
	n.parent, n.mul, n.div = 0, 1, 1
	n.hz = hz
	g.notify(snap)
	return nil
}

func (g *Graph) detach(id ID) {
	n := &g.nodes[id-1]
	if n.parent == 0 {
		return
	}
	p := &g.nodes[n.parent-1]
	for i, c := range p.children {
		if c == id {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}
	n.parent = 0
}

// SetEnabled gates a clock. A disabled clock and all clocks derived from it
// run at 0 Hz.
//
func (g *Graph) SetEnabled(id ID, enabled bool) error {
	n, err := g.node(id)
	if err != nil {
		return err
	}
	if n.enabled == enabled {
		return nil
	}
	snap := g.snapshot(id)
	n.enabled = enabled
	g.notify(snap)
	return nil
}

// Enabled returns false if the clock has been disabled by SetEnabled.
//
func (g *Graph) Enabled(id ID) bool {
	n, err := g.node(id)
	return err == nil && n.enabled
}

func frac(a, b uint64) *big.Rat {
	return new(big.Rat).SetFrac(new(big.Int).SetUint64(a), new(big.Int).SetUint64(b))
}

func floor(r *big.Rat) uint64 {
	q := new(big.Int).Quo(r.Num(), r.Denom())
	if !q.IsUint64() {
		return math.MaxUint64
	}
	return q.Uint64()
}

// rate returns the exact frequency of a clock.
func (g *Graph) rate(id ID) *big.Rat {
	r := big.NewRat(1, 1)
	for id != 0 {
		n := &g.nodes[id-1]
		if !n.enabled {
			return r.SetInt64(0)
		}
		if n.parent == 0 {
			return r.Mul(r, frac(n.hz, 1))
		}
		r.Mul(r, frac(n.mul, n.div))
		id = n.parent
	}
	return r
}

// Freq returns the frequency of a clock in Hz, rounded down.
//
func (g *Graph) Freq(id ID) uint64 {
	if _, err := g.node(id); err != nil {
		return 0
	}
	return floor(g.rate(id))
}

// RatioToReference returns the exact ratio between the clock's rate and the
// reference rate, in lowest terms. It returns 0/1 if the clock is stopped.
//
// It returns 0/1 and an error wrapping ErrOverflow if the reduced ratio does
// not fit in 64 bits.
//
func (g *Graph) RatioToReference(id ID) (Ratio, error) {
	if _, err := g.node(id); err != nil {
		return Ratio{0, 1}, err
	}
	r := g.rate(id)
	if r.Sign() == 0 {
		return Ratio{0, 1}, nil
	}
	r.Quo(r, frac(g.refHz, 1))
	if !r.Num().IsUint64() || !r.Denom().IsUint64() {
		return Ratio{0, 1}, errors.Wrapf(ErrOverflow, "%s: %s", g.nodes[id-1].name, r.String())
	}
	return Ratio{r.Num().Uint64(), r.Denom().Uint64()}, nil
}

// OnChange registers fn to be called whenever the effective frequency of id
// changes.
//
func (g *Graph) OnChange(id ID, fn ChangeFunc) (TraceHandle, error) {
	n, err := g.node(id)
	if err != nil {
		return TraceHandle{}, err
	}
	g.seq++
	n.traces = append(n.traces, trace{g.seq, fn})
	return TraceHandle{id, g.seq}, nil
}

// Untrace removes a ChangeFunc. It is a no-op if h has already been removed.
//
func (g *Graph) Untrace(h TraceHandle) {
	n, err := g.node(h.id)
	if err != nil {
		return
	}
	for i, t := range n.traces {
		if t.seq == h.seq {
			// copy so that a notification loop in progress is not disturbed.
			ts := make([]trace, 0, len(n.traces)-1)
			ts = append(ts, n.traces[:i]...)
			n.traces = append(ts, n.traces[i+1:]...)
			return
		}
	}
}

type freqSnap struct {
	id ID
	hz uint64
}

// snapshot records the frequency of id and all its descendants.
func (g *Graph) snapshot(id ID) []freqSnap {
	var s []freqSnap
	var walk func(ID)
	walk = func(id ID) {
		n := &g.nodes[id-1]
		if len(n.traces) > 0 {
			s = append(s, freqSnap{id, g.Freq(id)})
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(id)
	return s
}

func (g *Graph) notify(snap []freqSnap) {
	for _, s := range snap {
		hz := g.Freq(s.id)
		if hz == s.hz {
			continue
		}
		for _, t := range g.nodes[s.id-1].traces {
			t.fn(s.id, hz)
		}
	}
}

// Dump writes the clock tree to w.
//
func (g *Graph) Dump(w io.Writer) error {
	var err error
	var walk func(id ID, depth int)
	walk = func(id ID, depth int) {
		n := &g.nodes[id-1]
		if err != nil {
			return
		}
		var s string
		if n.parent != 0 {
			s = fmt.Sprintf("%s%s %d Hz (x%d/%d)", strings.Repeat("  ", depth), n.name, g.Freq(id), n.mul, n.div)
		} else {
			s = fmt.Sprintf("%s%s %d Hz", strings.Repeat("  ", depth), n.name, g.Freq(id))
		}
		if !n.enabled {
			s += " disabled"
		}
		if _, err = fmt.Fprintln(w, s); err != nil {
			return
		}
		for _, c := range n.children {
			walk(c, depth+1)
		}
	}
	for i := range g.nodes {
		if g.nodes[i].parent == 0 {
			walk(ID(i+1), 0)
		}
	}
	return err
}
