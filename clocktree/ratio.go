// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package clocktree

import (
	"math"
	"math/bits"
	"strconv"
)

// Ratio is an exact rational number Num/Den. Ratios returned by
// RatioToReference are in lowest terms and a stopped clock is 0/1.
//
type Ratio struct {
	Num, Den uint64
}

// IsZero returns true if the ratio is zero, i.e. the clock is absent.
//
func (r Ratio) IsZero() bool { return r.Num == 0 }

func (r Ratio) String() string {
	return strconv.FormatUint(r.Num, 10) + "/" + strconv.FormatUint(r.Den, 10)
}

// ToReference converts n ticks of a clock running at r times the reference
// rate into reference (scheduler) ticks, rounding down.
//
// If rem is not nil, it carries the fractional part of the result between
// calls: feeding it back in makes a sequence of conversions add up to exactly
// what a single conversion of the total would give. A zero ratio converts to 0
// and leaves rem untouched. A result that does not fit in 64 bits saturates to
// math.MaxUint64 and resets rem.
//
func (r Ratio) ToReference(n uint64, rem *uint64) uint64 {
	if r.Num == 0 {
		return 0
	}
	return mulDiv(n, r.Den, r.Num, rem)
}

// FromReference converts m reference ticks into ticks of a clock running at r
// times the reference rate. rem works as in ToReference.
//
func (r Ratio) FromReference(m uint64, rem *uint64) uint64 {
	if r.Num == 0 || r.Den == 0 {
		return 0
	}
	return mulDiv(m, r.Num, r.Den, rem)
}

// mulDiv returns (n*mul + *rem) / div and stores the remainder in *rem, using
// 128 bits intermediate values. The quotient saturates to math.MaxUint64.
func mulDiv(n, mul, div uint64, rem *uint64) uint64 {
	hi, lo := bits.Mul64(n, mul)
	if rem != nil {
		var c uint64
		lo, c = bits.Add64(lo, *rem, 0)
		hi += c
	}
	if hi >= div {
		if rem != nil {
			*rem = 0
		}
		return math.MaxUint64
	}
	q, r := bits.Div64(hi, lo, div)
	if rem != nil {
		*rem = r
	}
	return q
}
