// Frontline Perception System
// Copyright (C) 2020-2025 TurbineOne LLC
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package timerange implements half-open time ranges and sorted range sets.
package timerange

import (
	"github.com/rs/zerolog"

	"github.com/TurbineOne/viewer-output/pkg/rational"
)

// TimeRange is the half-open interval [In, Out). In <= Out always holds.
type TimeRange struct {
	in  rational.Rational
	out rational.Rational
}

// New returns the range between a and b, in either order.
func New(a, b rational.Rational) TimeRange {
	if b.Less(a) {
		a, b = b, a
	}

	return TimeRange{in: a, out: b}
}

// In returns the start of the range.
func (r TimeRange) In() rational.Rational { return r.in }

// Out returns the end of the range, exclusive.
func (r TimeRange) Out() rational.Rational { return r.out }

// Length returns Out - In.
func (r TimeRange) Length() rational.Rational { return r.out.Sub(r.in) }

// IsEmpty reports whether In == Out.
func (r TimeRange) IsEmpty() bool { return r.in == r.out }

// Overlaps reports whether r and o share any time.
func (r TimeRange) Overlaps(o TimeRange) bool {
	return r.in.Less(o.out) && o.in.Less(r.out)
}

// Touches reports whether r and o overlap or are adjacent.
func (r TimeRange) Touches(o TimeRange) bool {
	return r.in.LessEq(o.out) && o.in.LessEq(r.out)
}

// Contains reports whether o lies entirely within r.
func (r TimeRange) Contains(o TimeRange) bool {
	return r.in.LessEq(o.in) && o.out.LessEq(r.out)
}

// ContainsTime reports In <= t < Out.
func (r TimeRange) ContainsTime(t rational.Rational) bool {
	return r.in.LessEq(t) && t.Less(r.out)
}

// Intersected returns the overlap of r and o, and false if there is none.
func (r TimeRange) Intersected(o TimeRange) (TimeRange, bool) {
	in := rational.MaxOf(r.in, o.in)
	out := rational.MinOf(r.out, o.out)

	if !in.Less(out) {
		return TimeRange{}, false
	}

	return TimeRange{in: in, out: out}, true
}

// Shifted returns r moved by d.
func (r TimeRange) Shifted(d rational.Rational) TimeRange {
	return TimeRange{in: r.in.Add(d), out: r.out.Add(d)}
}

// Clamp returns r limited to [lo, hi]. A range entirely outside collapses to
// an empty range at the nearest bound.
func (r TimeRange) Clamp(lo, hi rational.Rational) TimeRange {
	in := rational.MinOf(rational.MaxOf(r.in, lo), hi)
	out := rational.MinOf(rational.MaxOf(r.out, lo), hi)

	return TimeRange{in: in, out: out}
}

// String formats as "[in, out)".
func (r TimeRange) String() string {
	return "[" + r.in.String() + ", " + r.out.String() + ")"
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (r TimeRange) MarshalZerologObject(e *zerolog.Event) {
	e.Stringer(lIn, r.in).Stringer(lOut, r.out)
}

const (
	lIn  = "in"
	lOut = "out"
)
