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

package timerange

import (
	"strings"

	"golang.org/x/exp/slices"

	"github.com/TurbineOne/viewer-output/pkg/rational"
)

// List is a set of time, kept as sorted, non-empty, non-touching ranges.
// The zero value is an empty list. List is not safe for concurrent use.
type List struct {
	ranges []TimeRange
}

// NewList returns a list holding the union of ranges.
func NewList(ranges ...TimeRange) List {
	var l List
	for _, r := range ranges {
		l.Insert(r)
	}

	return l
}

// Insert adds r to the set, merging with anything it touches.
func (l *List) Insert(r TimeRange) {
	if r.IsEmpty() {
		return
	}

	// First range that could touch r.
	i, _ := slices.BinarySearchFunc(l.ranges, r.in, func(e TimeRange, t rational.Rational) int {
		return e.out.Cmp(t)
	})

	j := i
	for j < len(l.ranges) && l.ranges[j].Touches(r) {
		r.in = rational.MinOf(r.in, l.ranges[j].in)
		r.out = rational.MaxOf(r.out, l.ranges[j].out)
		j++
	}

	l.ranges = slices.Replace(l.ranges, i, j, r)
}

// Remove subtracts r from the set.
func (l *List) Remove(r TimeRange) {
	if r.IsEmpty() || len(l.ranges) == 0 {
		return
	}

	out := make([]TimeRange, 0, len(l.ranges)+1)

	for _, e := range l.ranges {
		if !e.Overlaps(r) {
			out = append(out, e)

			continue
		}

		if e.in.Less(r.in) {
			out = append(out, TimeRange{in: e.in, out: r.in})
		}

		if r.out.Less(e.out) {
			out = append(out, TimeRange{in: r.out, out: e.out})
		}
	}

	l.ranges = out
}

// Clear empties the list.
func (l *List) Clear() {
	l.ranges = nil
}

// ContainsTime reports whether t is in the set.
func (l List) ContainsTime(t rational.Rational) bool {
	for _, e := range l.ranges {
		if e.ContainsTime(t) {
			return true
		}
	}

	return false
}

// ContainsRange reports whether all of r is in the set.
func (l List) ContainsRange(r TimeRange) bool {
	if r.IsEmpty() {
		return true
	}

	for _, e := range l.ranges {
		if e.Contains(r) {
			return true
		}
	}

	return false
}

// OverlapsRange reports whether any part of r is in the set.
func (l List) OverlapsRange(r TimeRange) bool {
	for _, e := range l.ranges {
		if e.Overlaps(r) {
			return true
		}
	}

	return false
}

// Intersects returns the parts of the set that fall within r.
func (l List) Intersects(r TimeRange) List {
	var out List

	for _, e := range l.ranges {
		if x, ok := e.Intersected(r); ok {
			out.ranges = append(out.ranges, x)
		}
	}

	return out
}

// Missing returns the parts of r that are not in the set.
func (l List) Missing(r TimeRange) List {
	out := NewList(r)
	for _, e := range l.ranges {
		out.Remove(e)
	}

	return out
}

// Difference returns the parts of the set not in o.
func (l List) Difference(o List) List {
	out := l.Clone()
	for _, e := range o.ranges {
		out.Remove(e)
	}

	return out
}

// Shift moves everything at or after from by (to - from). A range that
// straddles from is split and only its later part moves. When time is spliced
// out (to < from), anything previously in [to, from) is replaced by the
// shifted content. When time is inserted (to > from), [from, to) is left empty.
// Everything before min(from, to) is untouched.
func (l *List) Shift(from, to rational.Rational) {
	if from == to {
		return
	}

	diff := to.Sub(from)
	tail := l.Intersects(New(from, rational.Max))

	l.Remove(New(rational.MinOf(from, to), rational.Max))

	for _, e := range tail.ranges {
		l.Insert(TimeRange{in: e.in.Add(diff), out: e.out.Add(diff)})
	}
}

// Ranges returns a copy of the ranges in order.
func (l List) Ranges() []TimeRange {
	return slices.Clone(l.ranges)
}

// Len returns the number of disjoint ranges.
func (l List) Len() int {
	return len(l.ranges)
}

// IsEmpty reports whether the set holds no time.
func (l List) IsEmpty() bool {
	return len(l.ranges) == 0
}

// Clone returns an independent copy.
func (l List) Clone() List {
	return List{ranges: slices.Clone(l.ranges)}
}

// Equal reports whether both lists hold the same time.
func (l List) Equal(o List) bool {
	return slices.Equal(l.ranges, o.ranges)
}

// String formats the ranges, e.g. "{[0, 1) [2, 3)}".
func (l List) String() string {
	parts := make([]string, len(l.ranges))
	for i, e := range l.ranges {
		parts[i] = e.String()
	}

	return "{" + strings.Join(parts, " ") + "}"
}
