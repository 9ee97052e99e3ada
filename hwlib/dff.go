// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import (
	"github.com/db47h/simcore"
	"github.com/db47h/simcore/signet"
)

var dff = simcore.PartSpec{
	Name:    "DFF",
	Inputs:  []string{pIn, pClk},
	Outputs: []string{pOut},
	Mount: func(s *simcore.Socket) error {
		in, clk, out := s.Pin(pIn), s.Pin(pClk), s.Pin(pOut)
		sc := s.Machine().Sched()
		t := s.Timer("q")
		q := func(v int) { s.Set(out, signet.Bool(v != 0)) }
		prev := s.Get(clk)
		s.Set(out, signet.Low)
		return s.Trace(clk, func(_ signet.Node, l signet.Level, _ int) {
			hi := l.IsHigh()
			// raising edge?
			if hi && !prev {
				v := 0
				if s.Get(in) {
					v = 1
				}
				// update the output once every part sensitive to this edge
				// has sampled its inputs.
				if err := sc.Arm(t, 0, q, v); err != nil {
					s.Logger().Error("DFF", "error", err)
				}
			}
			prev = hi
		}, 0)
	}}

// DFF returns a clocked data flip flop.
//
// The input is sampled on the raising edge of clk. The output is updated by the
// scheduler at the same tick, after all traces triggered by the clock edge have
// run.
//
//	Inputs: in, clk
//	Outputs: out
//	Function: out(t) = in(t-1) // where t is the current clock cycle.
//
func DFF(w string) simcore.Part {
	return dff.NewPart(w)
}
