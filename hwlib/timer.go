// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import (
	"math/bits"

	"github.com/db47h/simcore"
	"github.com/db47h/simcore/clocktree"
	"github.com/db47h/simcore/sched"
	"github.com/db47h/simcore/signet"
	"github.com/pkg/errors"
)

// Timer is a prescaled periodic timer peripheral. It counts ticks of its input
// clock divided by Prescale and overflows every Period counts, latching its irq
// output High. A raising edge on ack clears irq.
//
// Clock ticks are converted to scheduler ticks with the exact clock ratio and a
// carried remainder, so overflows never drift. The timer does not count while
// its clock is stopped. When the clock frequency changes, counting restarts
// from zero.
//
//	Inputs: ack
//	Outputs: irq
//	Clocks: clk
//
type Timer struct {
	Prescale uint64 // clock ticks per count. 0 is the same as 1.
	Period   uint64 // counts per overflow. 0 is the same as 1.

	s         *simcore.Socket
	overflows uint64
}

// Overflows returns the number of timer overflows so far.
//
func (t *Timer) Overflows() uint64 { return t.overflows }

// NewPart is a NewPartFn for the timer. A Timer can be mounted only once.
//
func (t *Timer) NewPart(w string) simcore.Part {
	return (&simcore.PartSpec{
		Name:    "Timer",
		Inputs:  []string{"ack"},
		Outputs: []string{"irq"},
		Clocks:  []string{pClk},
		Mount:   t.mount,
	}).NewPart(w)
}

func (t *Timer) mount(s *simcore.Socket) error {
	if t.s != nil {
		return errors.Errorf("timer already mounted in %s", t.s.Name())
	}
	hi, n := bits.Mul64(max(t.Prescale, 1), max(t.Period, 1))
	if hi != 0 {
		return errors.Errorf("timer prescale %d * period %d overflows 64 bits", t.Prescale, t.Period)
	}
	m := s.Machine()
	sc := m.Sched()
	clk, irq, ack := s.Clock(pClk), s.Pin("irq"), s.Pin("ack")
	h := s.Timer("overflow")

	var (
		r        clocktree.Ratio
		rem      uint64
		overflow sched.Callback
	)
	arm := func() {
		if err := sc.Arm(h, r.ToReference(n, &rem), overflow, 0); err != nil {
			s.Logger().Error("Timer", "error", err)
		}
	}
	overflow = func(int) {
		t.overflows++
		s.Set(irq, signet.High)
		arm()
	}
	start := func() {
		sc.Cancel(h)
		rem = 0
		var err error
		if r, err = m.Clocks().RatioToReference(clk); err != nil {
			s.Logger().Error("Timer", "error", err)
			return
		}
		if !r.IsZero() {
			arm()
		}
	}

	s.Set(irq, signet.Low)
	prev := s.Get(ack)
	if err := s.Trace(ack, func(_ signet.Node, l signet.Level, _ int) {
		if l.IsHigh() && !prev {
			s.Set(irq, signet.Low)
		}
		prev = l.IsHigh()
	}, 0); err != nil {
		return err
	}
	if err := s.OnClockChange(clk, func(clocktree.ID, uint64) { start() }); err != nil {
		return err
	}
	start()
	t.s = s
	return nil
}
