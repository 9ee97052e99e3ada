/*
Package simcore provides the simulation substrate of a whole-system hardware
emulator: a virtual time scheduler, a clock tree and a network of digital
signals, bundled into a Machine.

The three core components live in their own packages:

	sched      virtual time discrete event scheduler
	clocktree  exact rational clock frequency derivation
	signet     multi-driver signal nodes with net-wide resolution

A Machine owns one instance of each and provides an API to compose device
models (parts) and wire them together using dotted hierarchical names like
"uart0.tx". Parts react to signal changes through traces and to the passing of
time through scheduler timers. Everything runs synchronously on the goroutine
driving the machine.

	m, _ := simcore.New(simcore.DefaultConfig())
	osc, _ := m.Clocks().NewRoot("osc", 1843200)
	err := m.Mount("u1", hwlib.Not("in=a, out=b"))
	...
	err = m.Run(1000)

The hwlib package provides a library of reference parts.
*/
package simcore
