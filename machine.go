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

// Constant net names. Part pins connected to True are pulled High, pins
// connected to False are pulled Low.
//
const (
	True  = "true"
	False = "false"
	GND   = False
)

// Config holds the configuration of a Machine.
//
type Config struct {
	// Reference rate of the scheduler, in Hz. One scheduler tick lasts
	// 1/RefHz seconds.
	RefHz uint64
	// Logger used by the machine and its parts. Defaults to slog.Default().
	Logger *slog.Logger
	// If set, electrical conflicts on signal nets are logged as warnings.
	ReportConflicts bool
}

// DefaultConfig returns a configuration with a 100 MHz reference rate and
// conflict reporting enabled.
//
func DefaultConfig() Config {
	return Config{
		RefHz:           100 * clocktree.MHz,
		Logger:          slog.Default(),
		ReportConflicts: true,
	}
}

// A MountFn mounts a part into socket s. MountFn's should query the socket for
// the signal nodes and clocks assigned to the part's pins, then register traces
// or timers that implement the part's behavior.
//
// For example, a Not gate can be defined like this:
//
//	not := &simcore.PartSpec{
//		Name:    "Not",
//		Inputs:  simcore.IO("in"),
//		Outputs: simcore.IO("out"),
//		Mount: func(s *simcore.Socket) error {
//			in, out := s.Pin("in"), s.Pin("out")
//			update := func(signet.Node, signet.Level, int) { s.Set(out, signet.Bool(!s.Get(in))) }
//			update(in, 0, 0)
//			return s.Trace(in, update, 0)
//		}}
//
type MountFn func(s *Socket) error

// A PartSpec wraps a part specification (its blueprint).
//
// Custom parts are implemented by creating a PartSpec, then getting a
// NewPartFn for it:
//
//	var notGate = notSpec.NewPart
//
// or:
//
//	func Not(c string) simcore.Part { return notSpec.NewPart(c) }
//
// Which can then be mounted in a machine or used when building chips:
//
//	err := m.Mount("u1", Not("in=a, out=b"))
//
type PartSpec struct {
	// Part name.
	Name string
	// Input pin names. Must be distinct pin names.
	// Use the IO() function to expand an input description like
	// "a, b, bus[0..1]" to []string{"a", "b", "bus.0", "bus.1"}
	Inputs []string
	// Output pin names. Must be distinct pin names. Bidirectional pins are
	// listed as outputs.
	Outputs []string
	// Clock input names. Each must be connected to a clock of the machine's
	// clock tree.
	Clocks []string

	// Mount function (see MountFn).
	Mount MountFn
}

// NewPart is a NewPartFn that wraps p with the given connections into a Part.
// It panics if the connection string cannot be parsed.
//
func (p *PartSpec) NewPart(connections string) Part {
	cs, err := ParseConnections(connections)
	if err != nil {
		panic(err)
	}
	return Part{p, cs}
}

func (p *PartSpec) isPin(name string) bool {
	for _, n := range p.Inputs {
		if n == name {
			return true
		}
	}
	for _, n := range p.Outputs {
		if n == name {
			return true
		}
	}
	return false
}

func (p *PartSpec) isClock(name string) bool {
	for _, n := range p.Clocks {
		if n == name {
			return true
		}
	}
	return false
}

// A NewPartFn is a function that takes a connection configuration and returns a
// new Part. See ParseConnections for the syntax of the connection configuration
// string.
//
type NewPartFn func(c string) Part

// A Part wraps a part specification together with its connections within a
// machine or host chip.
//
type Part struct {
	*PartSpec
	Conns []Connection
}

// IO expands a pin list like "a, b, d[0..7]" into individual pin names. It
// panics on syntax errors.
//
func IO(spec string) []string {
	names, err := hdl.Expand(spec)
	if err != nil {
		panic(err)
	}
	return names
}

// Machine is one emulated machine: it owns the scheduler, the clock tree and
// the signal network shared by all its parts. Machines are independent from
// each other but a single Machine must not be used concurrently.
//
type Machine struct {
	log    *slog.Logger
	sched  *sched.VirtualClock
	clocks *clocktree.Graph
	sigs   *signet.Net

	// nets created on demand by connections, not owned by any part.
	nets  map[string]bool
	parts map[string]*PartSpec
}

// New returns a new machine.
//
func New(cfg Config) (*Machine, error) {
	g, err := clocktree.New(cfg.RefHz)
	if err != nil {
		return nil, errors.Wrap(err, "new machine")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	m := &Machine{
		log:    cfg.Logger,
		sched:  sched.New(),
		clocks: g,
		sigs:   signet.New(),
		nets:   make(map[string]bool),
		parts:  make(map[string]*PartSpec),
	}
	if cfg.ReportConflicts {
		m.sigs.OnConflict(m.conflict)
	}
	for _, c := range []struct {
		name string
		l    signet.Level
	}{{False, signet.Low}, {True, signet.High}} {
		n, err := m.sigs.NewNode(c.name)
		if err != nil {
			return nil, errors.Wrap(err, "new machine")
		}
		if err = m.sigs.Set(n, c.l); err != nil {
			return nil, errors.Wrap(err, "new machine")
		}
	}
	return m, nil
}

func (m *Machine) conflict(c signet.Conflict) {
	m.log.Warn("signal conflict",
		"tick", m.sched.Now(),
		"winner", m.sigs.Name(c.Winner),
		"level", c.WinLevel.String(),
		"loser", m.sigs.Name(c.Loser),
		"loser_level", c.LoseLevel.String())
}

// Sched returns the machine's scheduler.
//
func (m *Machine) Sched() *sched.VirtualClock { return m.sched }

// Clocks returns the machine's clock tree.
//
func (m *Machine) Clocks() *clocktree.Graph { return m.clocks }

// Signals returns the machine's signal network.
//
func (m *Machine) Signals() *signet.Net { return m.sigs }

// Logger returns the machine's logger.
//
func (m *Machine) Logger() *slog.Logger { return m.log }

// Now returns the current scheduler tick.
//
func (m *Machine) Now() uint64 { return m.sched.Now() }

// Run advances virtual time by the given number of scheduler ticks, firing
// all due timers.
//
func (m *Machine) Run(ticks uint64) error {
	return m.sched.Advance(ticks)
}

// RunUntil advances virtual time up to the given tick.
//
func (m *Machine) RunUntil(tick uint64) error {
	return m.sched.AdvanceTo(tick)
}

// Parts returns the number of parts mounted at the top level of the machine.
//
func (m *Machine) Parts() int { return len(m.parts) }
