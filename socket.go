// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package simcore

import (
	"log/slog"

	"github.com/db47h/simcore/clocktree"
	"github.com/db47h/simcore/internal/hdl"
	"github.com/db47h/simcore/sched"
	"github.com/db47h/simcore/signet"
	"github.com/pkg/errors"
)

// mountTx records everything allocated while mounting a part so that a failed
// mount leaves the machine unchanged.
type mountTx struct {
	m       *Machine
	nodes   []signet.Node // created nodes, including on-demand nets
	nets    []string      // on-demand nets created
	adopted []adoption    // on-demand nets turned into part pins
	links   [][2]signet.Node
	traces  []signet.TraceHandle
	clkTr   []clocktree.TraceHandle
	timers  []sched.Handle
}

type adoption struct {
	name   string
	node   signet.Node
	driven signet.Level
}

func (tx *mountTx) rollback() {
	m := tx.m
	for _, h := range tx.clkTr {
		m.clocks.Untrace(h)
	}
	for _, h := range tx.traces {
		m.sigs.Untrace(h)
	}
	for _, h := range tx.timers {
		m.sched.DeleteTimer(h)
	}
	for i := len(tx.links) - 1; i >= 0; i-- {
		l := tx.links[i]
		m.sigs.Unlink(l[0], l[1])
	}
	for _, a := range tx.adopted {
		m.sigs.Set(a.node, a.driven)
	}
	for i := len(tx.nodes) - 1; i >= 0; i-- {
		m.sigs.Delete(tx.nodes[i])
	}
	for _, n := range tx.nets {
		delete(m.nets, n)
	}
	for _, a := range tx.adopted {
		m.nets[a.name] = true
	}
}

// A Socket maps a part's pin and clock names to the signal nodes and clocks of
// a machine.
//
type Socket struct {
	m      *Machine
	tx     *mountTx
	name   string
	log    *slog.Logger
	pins   map[string]signet.Node
	clocks map[string]clocktree.ID
}

// Mount mounts part p under the given instance name. Every pin "x" of the part
// gets a signal node named "<instance>.x" which is linked to the nets named in
// the part's connections. Nets that do not exist yet are created.
//
// On error, the machine is left unchanged.
//
func (m *Machine) Mount(instance string, p Part) error {
	if _, ok := m.parts[instance]; ok {
		return errors.Errorf("mount %s: duplicate instance name", instance)
	}
	tx := &mountTx{m: m}
	if err := m.mount(tx, instance, p); err != nil {
		tx.rollback()
		return err
	}
	m.parts[instance] = p.PartSpec
	return nil
}

func (m *Machine) mount(tx *mountTx, instance string, p Part) error {
	if err := hdl.CheckName(instance); err != nil {
		return errors.Wrap(err, "mount: invalid instance name")
	}
	if p.PartSpec == nil || p.Mount == nil {
		return errors.Errorf("mount %s: incomplete part specification", instance)
	}
	s := &Socket{
		m:      m,
		tx:     tx,
		name:   instance,
		log:    m.log.With("part", instance),
		pins:   make(map[string]signet.Node, len(p.Inputs)+len(p.Outputs)),
		clocks: make(map[string]clocktree.ID, len(p.Clocks)),
	}
	for _, pins := range [][]string{p.Inputs, p.Outputs} {
		for _, pin := range pins {
			n, err := s.newPin(pin)
			if err != nil {
				return errors.Wrapf(err, "mount %s (%s)", instance, p.Name)
			}
			s.pins[pin] = n
		}
	}
	for _, c := range p.Conns {
		if err := s.connect(p.PartSpec, c); err != nil {
			return errors.Wrapf(err, "mount %s (%s)", instance, p.Name)
		}
	}
	for _, c := range p.Clocks {
		if _, ok := s.clocks[c]; !ok {
			return errors.Errorf("mount %s (%s): clock %s not connected", instance, p.Name, c)
		}
	}
	if err := p.Mount(s); err != nil {
		return errors.Wrapf(err, "mount %s (%s)", instance, p.Name)
	}
	m.log.Debug("part mounted", "instance", instance, "part", p.Name)
	return nil
}

func (s *Socket) newPin(pin string) (signet.Node, error) {
	if _, ok := s.pins[pin]; ok {
		return signet.Node{}, errors.Errorf("duplicate pin name %s", pin)
	}
	m := s.m
	name := s.name + "." + pin
	if m.nets[name] {
		// a connection made before this part was mounted
		n, _ := m.sigs.Find(name)
		delete(m.nets, name)
		s.tx.adopted = append(s.tx.adopted, adoption{name, n, m.sigs.Driven(n)})
		return n, nil
	}
	n, err := m.sigs.NewNode(name)
	if err != nil {
		return signet.Node{}, err
	}
	s.tx.nodes = append(s.tx.nodes, n)
	return n, nil
}

// net returns the node with the given name, creating it if necessary.
func (s *Socket) net(name string) (signet.Node, error) {
	m := s.m
	if n, ok := m.sigs.Find(name); ok {
		return n, nil
	}
	n, err := m.sigs.NewNode(name)
	if err != nil {
		return signet.Node{}, err
	}
	m.nets[name] = true
	s.tx.nodes = append(s.tx.nodes, n)
	s.tx.nets = append(s.tx.nets, name)
	return n, nil
}

func (s *Socket) connect(p *PartSpec, c Connection) error {
	if p.isClock(c.PP) {
		if len(c.CP) != 1 {
			return errors.Errorf("clock %s connected to more than one clock", c.PP)
		}
		id, ok := s.m.clocks.Find(c.CP[0])
		if !ok {
			return errors.Errorf("%s=%s: unknown clock %s", c.PP, c.CP[0], c.CP[0])
		}
		s.clocks[c.PP] = id
		return nil
	}
	pin, ok := s.pins[c.PP]
	if !ok {
		return errors.Errorf("invalid pin name %s for part %s", c.PP, p.Name)
	}
	for _, cp := range c.CP {
		n, err := s.net(cp)
		if err != nil {
			return errors.Wrapf(err, "%s=%s", c.PP, cp)
		}
		if err = s.m.sigs.Link(pin, n); err != nil {
			return errors.Wrapf(err, "%s=%s", c.PP, cp)
		}
		s.tx.links = append(s.tx.links, [2]signet.Node{pin, n})
	}
	return nil
}

// Name returns the instance name of the part mounted in this socket.
//
func (s *Socket) Name() string { return s.name }

// Machine returns the machine the socket belongs to.
//
func (s *Socket) Machine() *Machine { return s.m }

// Signals returns the signal network of the machine.
//
func (s *Socket) Signals() *signet.Net { return s.m.sigs }

// Logger returns a logger tagged with the part's instance name.
//
func (s *Socket) Logger() *slog.Logger { return s.log }

// Pin returns the signal node allocated to the given pin name.
// This function panics if the pin does not exist.
//
func (s *Socket) Pin(name string) signet.Node {
	n, ok := s.pins[name]
	if !ok {
		panic("pin " + name + " does not exist")
	}
	return n
}

// Bus returns the signal nodes allocated to the pins name.0 to name.<bits-1>.
// This function panics if any of the pins does not exist.
//
func (s *Socket) Bus(name string, bits int) []signet.Node {
	out := make([]signet.Node, bits)
	for i := range out {
		out[i] = s.Pin(hdl.BusPinName(name, i))
	}
	return out
}

// Clock returns the clock connected to the given clock input.
// This function panics if the clock does not exist.
//
func (s *Socket) Clock(name string) clocktree.ID {
	id, ok := s.clocks[name]
	if !ok {
		panic("clock " + name + " does not exist")
	}
	return id
}

// Timer allocates a new scheduler timer for the part. The timer is released if
// the part fails to mount.
//
func (s *Socket) Timer(name string) sched.Handle {
	h := s.m.sched.NewTimer(s.name + "." + name)
	s.tx.timers = append(s.tx.timers, h)
	return h
}

// Trace registers a trace on a signal node. See signet.Net.Trace.
//
func (s *Socket) Trace(n signet.Node, fn signet.TraceFunc, arg int) error {
	h, err := s.m.sigs.Trace(n, fn, arg)
	if err != nil {
		return err
	}
	s.tx.traces = append(s.tx.traces, h)
	return nil
}

// OnClockChange registers fn to be called whenever the frequency of the given
// clock changes.
//
func (s *Socket) OnClockChange(id clocktree.ID, fn clocktree.ChangeFunc) error {
	h, err := s.m.clocks.OnChange(id, fn)
	if err != nil {
		return err
	}
	s.tx.clkTr = append(s.tx.clkTr, h)
	return nil
}

// Get returns true if node n is high.
//
func (s *Socket) Get(n signet.Node) bool {
	return s.m.sigs.Value(n).IsHigh()
}

// Set drives node n at level l. Errors are logged.
//
func (s *Socket) Set(n signet.Node, l signet.Level) {
	if err := s.m.sigs.Set(n, l); err != nil {
		s.log.Error("set", "node", s.m.sigs.Name(n), "error", err)
	}
}

// Mount mounts a sub-part of the part in this socket, under the instance name
// "<socket name>.<instance>". This is mostly useful for chips.
//
func (s *Socket) Mount(instance string, p Part) error {
	return s.m.mount(s.tx, s.name+"."+instance, p)
}
