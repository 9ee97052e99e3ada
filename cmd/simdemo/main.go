// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Command simdemo builds a small machine and runs it for a given number of
// scheduler ticks.
//
// A 100 kHz oscillator feeds a 9600 Hz baud clock and a 1 kHz timer clock. The
// timer overflows twice per second; each overflow toggles a flip-flop that
// drives the coil of a relay switching a lamp. The baud clock output
// acknowledges the timer interrupt.
//
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/db47h/simcore"
	"github.com/db47h/simcore/clocktree"
	hl "github.com/db47h/simcore/hwlib"
	"github.com/db47h/simcore/logger"
	"github.com/db47h/simcore/signet"
	"github.com/db47h/simcore/statsview"
	getopt "github.com/pborman/getopt/v2"
	"github.com/pkg/errors"
)

type demo struct {
	m     *simcore.Machine
	timer *hl.Timer
	lamp  int
}

func build(m *simcore.Machine) (*demo, error) {
	g := m.Clocks()
	osc, err := g.NewRoot("osc", 100*clocktree.KHz)
	if err != nil {
		return nil, err
	}
	for _, c := range []struct {
		name     string
		mul, div uint64
	}{
		{"baud", 12, 125},
		{"tim", 1, 100},
	} {
		id, err := g.NewDerived(c.name)
		if err != nil {
			return nil, err
		}
		if err = g.Derive(id, osc, c.mul, c.div); err != nil {
			return nil, err
		}
	}

	d := &demo{m: m, timer: &hl.Timer{Prescale: 10, Period: 50}}
	log := m.Logger()
	parts := []struct {
		name string
		part simcore.Part
	}{
		{"tx", hl.ClockOut("clk=baud, out=txclk")},
		{"tim0", d.timer.NewPart("clk=tim, irq=irq, ack=txclk")},
		{"inv", hl.Not("in=q, out=nq")},
		{"tff", hl.DFF("in=nq, clk=irq, out=q")},
		{"k1", hl.Relay("coil=q, a=true, b=false, x=lamp, y=nlamp")},
		{"r1", hl.PullDown("out=lamp")},
		{"probe", hl.Probe(func(l signet.Level) {
			if l.IsHigh() {
				d.lamp++
			}
			log.Info("lamp", "tick", m.Now(), "level", l.String())
		})("in=lamp")},
	}
	for _, p := range parts {
		if err = m.Mount(p.name, p.part); err != nil {
			return nil, errors.Wrap(err, "build demo machine")
		}
	}
	return d, nil
}

func dump(w io.Writer, m *simcore.Machine) error {
	fmt.Fprintln(w, "clocks:")
	if err := m.Clocks().Dump(w); err != nil {
		return err
	}
	fmt.Fprintln(w, "signals:")
	return m.Signals().Dump(w)
}

func main() {
	optTicks := getopt.Uint64Long("ticks", 't', 2000000, "Number of scheduler ticks to run")
	optRef := getopt.Uint64Long("ref", 'r', clocktree.MHz, "Reference rate in Hz")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optDebug := getopt.BoolLong("debug", 'd', "Log debug to console")
	optDump := getopt.BoolLong("dump", 0, "Dump clocks and signals after the run")
	optStats := getopt.BoolLong("stats", 0, "Launch the statsview server and wait for an interrupt after the run")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var file io.Writer
	if *optLogFile != "" {
		f, err := os.Create(*optLogFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer f.Close()
		file = f
	}
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelDebug)
	log := slog.New(logger.NewHandler(file, &slog.HandlerOptions{Level: programLevel}, *optDebug))
	slog.SetDefault(log)

	if *optStats {
		statsview.Launch(os.Stdout, "")
	}

	cfg := simcore.DefaultConfig()
	cfg.RefHz = *optRef
	cfg.Logger = log
	m, err := simcore.New(cfg)
	if err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
	d, err := build(m)
	if err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}

	log.Info("simdemo started", "ref_hz", cfg.RefHz, "ticks", *optTicks)
	start := time.Now()
	if err = m.Run(*optTicks); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
	log.Info("run complete",
		"ticks", m.Now(),
		"elapsed", time.Since(start).String(),
		"overflows", d.timer.Overflows(),
		"lamp_on", d.lamp)

	if *optDump {
		if err = dump(os.Stdout, m); err != nil {
			log.Error(err.Error())
			os.Exit(1)
		}
	}
	if *optStats {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt)
		<-c
	}
}
