// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package signet implements a network of digital signal nodes with
// multi-driver resolution.
//
// Every node has a drive level set by its owner. Linked nodes form a net:
// the value observed on every node of a net is the dominant drive level among
// all its members. Traces registered on a node are called synchronously,
// depth-first, whenever the node's resolved value changes.
//
// A Net is not safe for concurrent use.
//
package signet

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/db47h/simcore/internal/hdl"
	"github.com/pkg/errors"
)

// Signal network errors.
var (
	ErrDuplicateName = errors.New("duplicate node name")
	ErrBadName       = errors.New("invalid node name")
	ErrStaleHandle   = errors.New("stale or invalid node handle")
	ErrNotLinked     = errors.New("nodes are not linked")
	ErrBadLevel      = errors.New("invalid drive level")
)

// A Node is a handle to a signal node. Handles are generation tagged: once a
// node has been deleted, its handle is rejected even if the slot is reused.
// The zero Node is invalid.
//
type Node struct {
	idx uint32 // slot index + 1
	gen uint32
}

// Valid returns false for the zero Node.
//
func (n Node) Valid() bool { return n.idx != 0 }

// A TraceFunc is called with the node's new resolved value and the payload
// given to Trace.
//
type TraceFunc func(n Node, v Level, arg int)

// A TraceHandle identifies a trace registration.
//
type TraceHandle struct {
	node Node
	id   uint64
}

// Conflict describes two strong or forced drivers of opposite polarity on a
// net. Winner supplies the net value.
//
type Conflict struct {
	Winner, Loser       Node
	WinLevel, LoseLevel Level
}

// A ConflictFunc is called when a net starts resolving with conflicting
// strong or forced drivers, or when the conflicting pair changes.
//
type ConflictFunc func(c Conflict)

type trace struct {
	id     uint64
	fn     TraceFunc
	arg    int
	active bool
}

type node struct {
	name     string
	gen      uint32
	live     bool
	driven   Level
	resolved Level
	stamp    uint64
	mark     uint64   // epoch of the last net walk that reached this node
	conflict Conflict // last conflict seen on the node's net
	links    []uint32 // adjacent node indices; may contain duplicates
	traces   []*trace
}

// Net is a signal network: a registry of named nodes, the links between them
// and their traces.
//
type Net struct {
	nodes    []node
	free     []uint32
	names    map[string]uint32
	stamp    uint64
	epoch    uint64
	traceSeq uint64
	conflict ConflictFunc
}

// New returns an empty signal network.
//
func New() *Net {
	return &Net{names: make(map[string]uint32)}
}

// OnConflict registers fn to be called when a net resolves with conflicting
// drivers. A conflict is reported once, until it is cleared or its winner or
// loser changes. A nil fn disables conflict reporting.
//
func (s *Net) OnConflict(fn ConflictFunc) {
	s.conflict = fn
}

func (s *Net) index(n Node) (uint32, error) {
	if n.idx == 0 || int(n.idx) > len(s.nodes) {
		return 0, ErrStaleHandle
	}
	i := n.idx - 1
	if nd := &s.nodes[i]; !nd.live || nd.gen != n.gen {
		return 0, ErrStaleHandle
	}
	return i, nil
}

func (s *Net) handle(i uint32) Node {
	return Node{i + 1, s.nodes[i].gen}
}

// NewNode creates a new floating node. The name must be a unique dotted name
// like "uart0.tx".
//
func (s *Net) NewNode(name string) (Node, error) {
	if err := hdl.CheckName(name); err != nil {
		return Node{}, errors.Wrap(ErrBadName, err.Error())
	}
	if _, ok := s.names[name]; ok {
		return Node{}, errors.Wrap(ErrDuplicateName, name)
	}
	var i uint32
	if n := len(s.free); n > 0 {
		i = s.free[n-1]
		s.free = s.free[:n-1]
	} else {
		s.nodes = append(s.nodes, node{gen: 1})
		i = uint32(len(s.nodes) - 1)
	}
	nd := &s.nodes[i]
	nd.name = name
	nd.live = true
	nd.driven, nd.resolved = Open, Open
	s.names[name] = i
	return s.handle(i), nil
}

// NewBus creates the nodes described by a bus pattern: "dev.d[0..7]" creates
// nodes "dev.d.0" to "dev.d.7". Comma separated lists are accepted. On error,
// no node is created.
//
func (s *Net) NewBus(pattern string) ([]Node, error) {
	names, err := hdl.Expand(pattern)
	if err != nil {
		return nil, errors.Wrap(ErrBadName, err.Error())
	}
	ns := make([]Node, 0, len(names))
	for _, name := range names {
		n, err := s.NewNode(name)
		if err != nil {
			for _, n := range ns {
				s.Delete(n)
			}
			return nil, err
		}
		ns = append(ns, n)
	}
	return ns, nil
}

// Find returns the node with the given name.
//
func (s *Net) Find(name string) (Node, bool) {
	i, ok := s.names[name]
	if !ok {
		return Node{}, false
	}
	return s.handle(i), true
}

// Name returns the name of a node, or an empty string for stale handles.
//
func (s *Net) Name(n Node) string {
	i, err := s.index(n)
	if err != nil {
		return ""
	}
	return s.nodes[i].name
}

// Delete removes a node from the network. Its links are removed (the nets it
// was part of are resolved again) and its traces are dropped.
//
func (s *Net) Delete(n Node) error {
	i, err := s.index(n)
	if err != nil {
		return errors.Wrap(err, "delete")
	}
	nd := &s.nodes[i]
	peers := nd.links
	nd.links = nil
	for _, t := range nd.traces {
		t.active = false
	}
	nd.traces = nil
	for _, p := range peers {
		s.removeEdge(p, i)
	}
	delete(s.names, nd.name)
	nd.name = ""
	nd.live = false
	nd.gen++
	nd.driven, nd.resolved = Open, Open
	nd.conflict = Conflict{}
	s.free = append(s.free, i)
	for _, p := range peers {
		s.resolve(p)
	}
	return nil
}

// Set sets the drive level of node n, then resolves its net. Traces of the
// nodes whose resolved value changed are called before Set returns.
//
func (s *Net) Set(n Node, l Level) error {
	i, err := s.index(n)
	if err != nil {
		return errors.Wrap(err, "set")
	}
	if l >= levelCount {
		return errors.Wrapf(ErrBadLevel, "set %s", s.nodes[i].name)
	}
	if s.nodes[i].driven == l {
		return nil
	}
	s.nodes[i].driven = l
	s.resolve(i)
	return nil
}

// Value returns the resolved value of node n. Stale handles read as Open.
//
func (s *Net) Value(n Node) Level {
	i, err := s.index(n)
	if err != nil {
		return Open
	}
	return s.nodes[i].resolved
}

// Driven returns the drive level last set on node n itself.
//
func (s *Net) Driven(n Node) Level {
	i, err := s.index(n)
	if err != nil {
		return Open
	}
	return s.nodes[i].driven
}

// Stamp returns the version stamp of node n. It changes every time the
// node's resolved value changes.
//
func (s *Net) Stamp(n Node) uint64 {
	i, err := s.index(n)
	if err != nil {
		return 0
	}
	return s.nodes[i].stamp
}

// Link connects two nodes: they become part of the same net. Nodes can be
// linked in any topology, including cycles.
//
func (s *Net) Link(a, b Node) error {
	ia, err := s.index(a)
	if err != nil {
		return errors.Wrap(err, "link")
	}
	ib, err := s.index(b)
	if err != nil {
		return errors.Wrap(err, "link")
	}
	if ia == ib {
		return errors.Errorf("link %s: cannot link a node to itself", s.nodes[ia].name)
	}
	s.nodes[ia].links = append(s.nodes[ia].links, ib)
	s.nodes[ib].links = append(s.nodes[ib].links, ia)
	s.resolve(ia)
	return nil
}

// Unlink removes one link between a and b added by Link. Both resulting nets
// are resolved again.
//
func (s *Net) Unlink(a, b Node) error {
	ia, err := s.index(a)
	if err != nil {
		return errors.Wrap(err, "unlink")
	}
	ib, err := s.index(b)
	if err != nil {
		return errors.Wrap(err, "unlink")
	}
	if !s.removeEdge(ia, ib) {
		return errors.Wrapf(ErrNotLinked, "%s, %s", s.nodes[ia].name, s.nodes[ib].name)
	}
	s.removeEdge(ib, ia)
	s.resolve(ia)
	// no-op if a and b are still connected through another path.
	s.resolve(ib)
	return nil
}

func (s *Net) removeEdge(from, to uint32) bool {
	nd := &s.nodes[from]
	for k, p := range nd.links {
		if p == to {
			nd.links = append(nd.links[:k:k], nd.links[k+1:]...)
			return true
		}
	}
	return false
}

// Linked returns true if a and b are directly linked.
//
func (s *Net) Linked(a, b Node) bool {
	ia, err := s.index(a)
	if err != nil {
		return false
	}
	ib, err := s.index(b)
	if err != nil {
		return false
	}
	for _, p := range s.nodes[ia].links {
		if p == ib {
			return true
		}
	}
	return false
}

// SameNet returns true if a and b are part of the same net.
//
func (s *Net) SameNet(a, b Node) bool {
	ia, err := s.index(a)
	if err != nil {
		return false
	}
	ib, err := s.index(b)
	if err != nil {
		return false
	}
	s.collect(ia)
	return s.nodes[ib].mark == s.epoch
}

// Members returns all the nodes of n's net, including n.
//
func (s *Net) Members(n Node) []Node {
	i, err := s.index(n)
	if err != nil {
		return nil
	}
	ms := s.collect(i)
	r := make([]Node, len(ms))
	for k, m := range ms {
		r[k] = s.handle(m)
	}
	return r
}

// collect returns the indices of all nodes in the net of node start.
func (s *Net) collect(start uint32) []uint32 {
	s.epoch++
	ep := s.epoch
	s.nodes[start].mark = ep
	ms := []uint32{start}
	for k := 0; k < len(ms); k++ {
		for _, p := range s.nodes[ms[k]].links {
			if nd := &s.nodes[p]; nd.mark != ep {
				nd.mark = ep
				ms = append(ms, p)
			}
		}
	}
	return ms
}

// dominant returns the winning level among ms and the index of the member
// driving it (lowest index on ties). If the winning strength is Strong or
// Forced and another Strong or Forced member drives the opposite polarity, its
// index is returned in loser, otherwise loser is -1.
func (s *Net) dominant(ms []uint32) (win Level, winner int64, loser int64) {
	win, winner, loser = Open, -1, -1
	for _, m := range ms {
		l := s.nodes[m].driven
		if l == Open {
			continue
		}
		if winner < 0 || dominates(l, win) || l == win && int64(m) < winner {
			win, winner = l, int64(m)
		}
	}
	if win.Strength() < Strong {
		return win, winner, -1
	}
	for _, m := range ms {
		l := s.nodes[m].driven
		if l.Strength() >= Strong && l.IsHigh() != win.IsHigh() && (loser < 0 || int64(m) < loser) {
			loser = int64(m)
		}
	}
	return win, winner, loser
}

type notification struct {
	idx   uint32
	stamp uint64
}

// resolve recomputes the value of the net containing node start and notifies
// the nodes whose value changed.
func (s *Net) resolve(start uint32) {
	ms := s.collect(start)
	win, winner, loser := s.dominant(ms)
	var changed []notification
	for _, m := range ms {
		nd := &s.nodes[m]
		if nd.resolved == win {
			continue
		}
		// stamps are updated before any trace runs so that a re-entrant Set
		// sees the new state.
		nd.resolved = win
		s.stamp++
		nd.stamp = s.stamp
		changed = append(changed, notification{m, s.stamp})
	}
	var c Conflict
	report := false
	if loser >= 0 {
		c = Conflict{
			Winner:    s.handle(uint32(winner)),
			Loser:     s.handle(uint32(loser)),
			WinLevel:  win,
			LoseLevel: s.nodes[loser].driven,
		}
		report = s.nodes[winner].conflict != c
	}
	for _, m := range ms {
		s.nodes[m].conflict = c
	}
	if report && s.conflict != nil {
		s.conflict(c)
	}
	for _, c := range changed {
		s.notify(c)
	}
}

func (s *Net) notify(c notification) {
	nd := &s.nodes[c.idx]
	if !nd.live || nd.stamp != c.stamp {
		return
	}
	n, v := s.handle(c.idx), nd.resolved
	for _, t := range nd.traces {
		if !t.active {
			continue
		}
		// a nested Set may have changed the value again and already notified
		// the new one.
		if nd := &s.nodes[c.idx]; !nd.live || nd.stamp != c.stamp {
			return
		}
		t.fn(n, v, t.arg)
	}
}

// Trace registers fn to be called with arg whenever the resolved value of n
// changes.
//
func (s *Net) Trace(n Node, fn TraceFunc, arg int) (TraceHandle, error) {
	i, err := s.index(n)
	if err != nil {
		return TraceHandle{}, errors.Wrap(err, "trace")
	}
	if fn == nil {
		return TraceHandle{}, errors.Errorf("trace %s: nil trace function", s.nodes[i].name)
	}
	s.traceSeq++
	nd := &s.nodes[i]
	nd.traces = append(nd.traces, &trace{id: s.traceSeq, fn: fn, arg: arg, active: true})
	return TraceHandle{n, s.traceSeq}, nil
}

// Untrace removes a trace. It is a no-op if the trace has already been
// removed. A trace removed while a notification is in progress is not called
// anymore.
//
func (s *Net) Untrace(h TraceHandle) {
	i, err := s.index(h.node)
	if err != nil {
		return
	}
	nd := &s.nodes[i]
	for k, t := range nd.traces {
		if t.id == h.id {
			t.active = false
			// copy: a notification loop may be iterating over nd.traces.
			ts := make([]*trace, 0, len(nd.traces)-1)
			ts = append(ts, nd.traces[:k]...)
			nd.traces = append(ts, nd.traces[k+1:]...)
			return
		}
	}
}

// FindDominant returns the node that supplies the resolved value of n's net.
// ok is false if the net is floating.
//
func (s *Net) FindDominant(n Node) (d Node, ok bool) {
	i, err := s.index(n)
	if err != nil {
		return Node{}, false
	}
	_, winner, _ := s.dominant(s.collect(i))
	if winner < 0 {
		return Node{}, false
	}
	return s.handle(uint32(winner)), true
}

// Dump writes the state of all nodes, sorted by name, to w.
//
func (s *Net) Dump(w io.Writer) error {
	names := make([]string, 0, len(s.names))
	for name := range s.names {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		nd := &s.nodes[s.names[name]]
		peers := make([]string, len(nd.links))
		for k, p := range nd.links {
			peers[k] = s.nodes[p].name
		}
		sort.Strings(peers)
		line := fmt.Sprintf("%s %s (driven %s)", name, nd.resolved, nd.driven)
		if len(peers) > 0 {
			line += " <-> " + strings.Join(peers, ", ")
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
