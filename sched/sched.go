// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package sched implements the virtual time scheduler of a simulated machine.
//
// Time is counted in ticks since boot. A device model allocates one timer
// Handle per timer use-site when it is built, then arms, re-arms and cancels
// it as often as it needs to. Callbacks never run from within Arm: they only
// fire from AdvanceTo, which is called by the interpreter loop between
// instructions.
//
package sched

import (
	"container/heap"
	"math"

	"github.com/pkg/errors"
)

// Scheduler errors.
var (
	ErrStaleHandle  = errors.New("stale or invalid timer handle")
	ErrTimeReversal = errors.New("virtual time cannot go backwards")
)

// A Callback is called when a timer expires. arg is the payload given to Arm.
//
type Callback func(arg int)

// A Handle identifies a timer slot. Handles are generation tagged: once the
// timer has been deleted, the handle is rejected even if its slot has been
// reused by another timer.
//
type Handle struct {
	idx uint32 // slot index + 1
	gen uint32
}

// Valid returns false for the zero Handle.
//
func (h Handle) Valid() bool { return h.idx != 0 }

type timer struct {
	name   string
	gen    uint32
	live   bool
	expiry uint64
	seq    uint64 // arming order, FIFO tie-break
	cb     Callback
	arg    int
	pos    int // index in the pending heap, -1 if not armed
}

// VirtualClock is a discrete event scheduler. It is not safe for concurrent
// use: a machine runs on a single logical thread.
//
type VirtualClock struct {
	now    uint64
	seq    uint64
	timers []timer
	free   []uint32
	heap   []uint32 // slot indices, ordered by (expiry, seq)
}

// New returns a new VirtualClock with Now() == 0.
//
func New() *VirtualClock {
	return &VirtualClock{}
}

// Now returns the number of ticks elapsed since boot. While a callback runs,
// Now returns the callback's expiry time.
//
func (c *VirtualClock) Now() uint64 { return c.now }

// NewTimer allocates a new timer. The name is only used for diagnostics.
//
func (c *VirtualClock) NewTimer(name string) Handle {
	var i uint32
	if n := len(c.free); n > 0 {
		i = c.free[n-1]
		c.free = c.free[:n-1]
	} else {
		c.timers = append(c.timers, timer{gen: 1})
		i = uint32(len(c.timers) - 1)
	}
	t := &c.timers[i]
	t.name = name
	t.live = true
	t.pos = -1
	return Handle{idx: i + 1, gen: t.gen}
}

// DeleteTimer cancels the timer and releases its slot. Any later use of h
// fails with ErrStaleHandle.
//
func (c *VirtualClock) DeleteTimer(h Handle) error {
	t, err := c.get(h)
	if err != nil {
		return err
	}
	if t.pos >= 0 {
		heap.Remove((*queue)(c), t.pos)
	}
	t.live = false
	t.gen++
	t.cb = nil
	t.name = ""
	c.free = append(c.free, h.idx-1)
	return nil
}

func (c *VirtualClock) get(h Handle) (*timer, error) {
	if h.idx == 0 || int(h.idx) > len(c.timers) {
		return nil, ErrStaleHandle
	}
	t := &c.timers[h.idx-1]
	if !t.live || t.gen != h.gen {
		return nil, ErrStaleHandle
	}
	return t, nil
}

// Name returns the name given to the timer in NewTimer.
//
func (c *VirtualClock) Name(h Handle) string {
	t, err := c.get(h)
	if err != nil {
		return ""
	}
	return t.name
}

// Arm schedules cb(arg) to be called delay ticks from now. If the timer is
// already armed, it is rescheduled: its previous expiry, callback and payload
// are discarded.
//
// A zero delay does not call cb synchronously. It fires on the next call to
// AdvanceTo.
//
func (c *VirtualClock) Arm(h Handle, delay uint64, cb Callback, arg int) error {
	expiry := c.now + delay
	if expiry < c.now {
		expiry = math.MaxUint64
	}
	return c.ArmAt(h, expiry, cb, arg)
}

// ArmAt is like Arm but takes an absolute expiry time. Expiry times in the
// past are clamped to Now().
//
func (c *VirtualClock) ArmAt(h Handle, expiry uint64, cb Callback, arg int) error {
	t, err := c.get(h)
	if err != nil {
		return errors.Wrap(err, "arm")
	}
	if cb == nil {
		return errors.Errorf("arm %s: nil callback", t.name)
	}
	if expiry < c.now {
		expiry = c.now
	}
	t.expiry = expiry
	t.cb = cb
	t.arg = arg
	t.seq = c.seq
	c.seq++
	if t.pos >= 0 {
		heap.Fix((*queue)(c), t.pos)
	} else {
		heap.Push((*queue)(c), h.idx-1)
	}
	return nil
}

// Cancel removes the pending entry of timer h, if any. Cancelling an inactive,
// deleted or unknown timer is a no-op.
//
func (c *VirtualClock) Cancel(h Handle) {
	t, err := c.get(h)
	if err != nil || t.pos < 0 {
		return
	}
	heap.Remove((*queue)(c), t.pos)
	t.cb = nil
}

// Pending returns true if timer h is armed.
//
func (c *VirtualClock) Pending(h Handle) bool {
	t, err := c.get(h)
	return err == nil && t.pos >= 0
}

// Expiry returns the expiry time of timer h. ok is false if the timer is not
// armed.
//
func (c *VirtualClock) Expiry(h Handle) (expiry uint64, ok bool) {
	t, err := c.get(h)
	if err != nil || t.pos < 0 {
		return 0, false
	}
	return t.expiry, true
}

// Remaining returns the number of ticks until timer h expires, or 0 if it is
// not armed.
//
func (c *VirtualClock) Remaining(h Handle) uint64 {
	e, ok := c.Expiry(h)
	if !ok {
		return 0
	}
	return e - c.now
}

// NextExpiry returns the expiry time of the next pending timer.
//
func (c *VirtualClock) NextExpiry() (uint64, bool) {
	if len(c.heap) == 0 {
		return 0, false
	}
	return c.timers[c.heap[0]].expiry, true
}

// Len returns the number of armed timers.
//
func (c *VirtualClock) Len() int { return len(c.heap) }

// AdvanceTo fires, in expiry order, all timers that expire at or before tick,
// then sets the current time to tick. Timers with the same expiry fire in the
// order they were armed.
//
// Callbacks may arm or cancel any timer, including their own. Timers armed by
// a callback fire within the same call if they expire at or before tick.
//
func (c *VirtualClock) AdvanceTo(tick uint64) error {
	if tick < c.now {
		return errors.Wrapf(ErrTimeReversal, "advance to %d (now %d)", tick, c.now)
	}
	for len(c.heap) > 0 {
		i := c.heap[0]
		t := &c.timers[i]
		if t.expiry > tick {
			break
		}
		heap.Pop((*queue)(c))
		c.now = t.expiry
		cb, arg := t.cb, t.arg
		t.cb = nil
		// t may be invalidated by cb (NewTimer can grow c.timers).
		cb(arg)
	}
	c.now = tick
	return nil
}

// Advance is a shorthand for AdvanceTo(Now() + delta).
//
func (c *VirtualClock) Advance(delta uint64) error {
	tick := c.now + delta
	if tick < c.now {
		tick = math.MaxUint64
	}
	return c.AdvanceTo(tick)
}

// queue implements heap.Interface over the pending timers.
type queue VirtualClock

func (q *queue) Len() int { return len(q.heap) }

func (q *queue) Less(i, j int) bool {
	a, b := &q.timers[q.heap[i]], &q.timers[q.heap[j]]
	if a.expiry != b.expiry {
		return a.expiry < b.expiry
	}
	return a.seq < b.seq
}

func (q *queue) Swap(i, j int) {
	q.heap[i], q.heap[j] = q.heap[j], q.heap[i]
	q.timers[q.heap[i]].pos = i
	q.timers[q.heap[j]].pos = j
}

func (q *queue) Push(x interface{}) {
	i := x.(uint32)
	q.timers[i].pos = len(q.heap)
	q.heap = append(q.heap, i)
}

func (q *queue) Pop() interface{} {
	n := len(q.heap) - 1
	i := q.heap[n]
	q.heap = q.heap[:n]
	q.timers[i].pos = -1
	return i
}
