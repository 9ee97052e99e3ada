// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package signet

import "github.com/pkg/errors"

// Level is the drive level of a signal node. Levels are ordered by strength:
//
//	ForceHigh/ForceLow > High/Low > PullUp/PullDown > WeakPullUp/WeakPullDown > Open
//
// When several drivers of the same strength disagree, the low level wins.
//
type Level uint8

// Drive levels.
const (
	Open Level = iota
	WeakPullDown
	WeakPullUp
	PullDown
	PullUp
	Low
	High
	ForceLow
	ForceHigh
	levelCount
)

var levelNames = [...]string{
	Open:         "Open",
	WeakPullDown: "WeakPullDown",
	WeakPullUp:   "WeakPullUp",
	PullDown:     "PullDown",
	PullUp:       "PullUp",
	Low:          "Low",
	High:         "High",
	ForceLow:     "ForceLow",
	ForceHigh:    "ForceHigh",
}

func (l Level) String() string {
	if l >= levelCount {
		return "Level(?)"
	}
	return levelNames[l]
}

// Strength is the dominance tier of a Level.
//
type Strength uint8

// Strengths, weakest first.
const (
	Floating Strength = iota
	Weak
	Pull
	Strong
	Forced
)

// Strength returns the dominance tier of l.
//
func (l Level) Strength() Strength { return Strength((l + 1) / 2) }

// IsHigh returns true for High, PullUp, WeakPullUp and ForceHigh.
//
func (l Level) IsHigh() bool { return l != Open && l%2 == 0 }

// IsLow returns true for Low, PullDown, WeakPullDown and ForceLow.
//
func (l Level) IsLow() bool { return l%2 == 1 }

// Bool returns a strong level for a logic value.
//
func Bool(v bool) Level {
	if v {
		return High
	}
	return Low
}

// dominates returns true if a wins over b on a shared net.
func dominates(a, b Level) bool {
	sa, sb := a.Strength(), b.Strength()
	if sa != sb {
		return sa > sb
	}
	return a.IsLow() && b.IsHigh()
}

// ParseLevel returns the Level with the given name, as returned by
// Level.String.
//
func ParseLevel(s string) (Level, error) {
	for l, name := range levelNames {
		if name == s {
			return Level(l), nil
		}
	}
	return Open, errors.Wrap(ErrBadLevel, s)
}
