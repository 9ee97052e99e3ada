// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import (
	"math"

	"github.com/db47h/simcore"
	"github.com/db47h/simcore/clocktree"
	"github.com/db47h/simcore/sched"
	"github.com/db47h/simcore/signet"
	"github.com/pkg/errors"
)

var clockOut = simcore.PartSpec{
	Name:    "ClockOut",
	Outputs: []string{pOut},
	Clocks:  []string{pClk},
	Mount: func(s *simcore.Socket) error {
		m := s.Machine()
		sc := m.Sched()
		clk, out := s.Clock(pClk), s.Pin(pOut)
		t := s.Timer("edge")
		var (
			half  clocktree.Ratio // half periods
			rem   uint64
			level bool
			edge  sched.Callback
		)
		edge = func(int) {
			level = !level
			s.Set(out, signet.Bool(level))
			if err := sc.Arm(t, half.ToReference(1, &rem), edge, 0); err != nil {
				s.Logger().Error("ClockOut", "error", err)
			}
		}
		start := func() {
			sc.Cancel(t)
			rem = 0
			r, err := m.Clocks().RatioToReference(clk)
			if err != nil {
				s.Logger().Error("ClockOut", "error", err)
				return
			}
			if r.IsZero() {
				return
			}
			switch {
			case r.Den%2 == 0:
				half = clocktree.Ratio{Num: r.Num, Den: r.Den / 2}
			case r.Num > math.MaxUint64/2:
				s.Logger().Error("ClockOut", "error", errors.Wrap(clocktree.ErrOverflow, "half period"))
				return
			default:
				half = clocktree.Ratio{Num: r.Num * 2, Den: r.Den}
			}
			if err := sc.Arm(t, half.ToReference(1, &rem), edge, 0); err != nil {
				s.Logger().Error("ClockOut", "error", err)
			}
		}
		s.Set(out, signet.Low)
		start()
		return s.OnClockChange(clk, func(clocktree.ID, uint64) { start() })
	},
}

// ClockOut returns a clock output buffer. It toggles its output pin at the
// frequency of a clock of the clock tree, starting Low. It restarts a new
// half period whenever the clock frequency changes and holds its output while
// the clock is stopped.
//
//	Clocks: clk
//	Outputs: out
//
func ClockOut(w string) simcore.Part { return clockOut.NewPart(w) }
