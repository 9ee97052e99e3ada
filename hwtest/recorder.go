// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwtest

import (
	"fmt"
	"strings"

	"github.com/db47h/simcore"
	"github.com/db47h/simcore/signet"
	"github.com/pkg/errors"
)

// An Event is a change of the value of a signal node.
//
type Event struct {
	Tick  uint64
	Node  string
	Level signet.Level
}

func (e Event) String() string {
	return fmt.Sprintf("%d %s %s", e.Tick, e.Node, e.Level)
}

// Recorder records value changes of signal nodes.
//
type Recorder struct {
	m      *simcore.Machine
	hs     []signet.TraceHandle
	events []Event
}

// Record starts recording changes of the named nodes.
//
func Record(m *simcore.Machine, names ...string) (*Recorder, error) {
	r := &Recorder{m: m}
	sig := m.Signals()
	for _, name := range names {
		n, ok := sig.Find(name)
		if !ok {
			r.Stop()
			return nil, errors.Errorf("record: unknown node %s", name)
		}
		h, err := sig.Trace(n, r.trace, 0)
		if err != nil {
			r.Stop()
			return nil, errors.Wrap(err, "record")
		}
		r.hs = append(r.hs, h)
	}
	return r, nil
}

func (r *Recorder) trace(n signet.Node, v signet.Level, _ int) {
	r.events = append(r.events, Event{r.m.Now(), r.m.Signals().Name(n), v})
}

// Events returns the events recorded so far.
//
func (r *Recorder) Events() []Event { return r.events }

// Reset clears recorded events.
//
func (r *Recorder) Reset() { r.events = r.events[:0] }

// Stop stops recording.
//
func (r *Recorder) Stop() {
	for _, h := range r.hs {
		r.m.Signals().Untrace(h)
	}
	r.hs = nil
}

// String returns the recorded events, one per line.
//
func (r *Recorder) String() string {
	var b strings.Builder
	for _, e := range r.events {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	return b.String()
}
