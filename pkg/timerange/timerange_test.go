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
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/TurbineOne/viewer-output/pkg/rational"
)

func sec(n int64) rational.Rational { return rational.FromInt(n) }

func rng(a, b int64) TimeRange { return New(sec(a), sec(b)) }

func TestTimeRange(t *testing.T) {
	t.Parallel()

	r := rng(5, 2)
	assert.Equal(t, sec(2), r.In())
	assert.Equal(t, sec(5), r.Out())
	assert.Equal(t, sec(3), r.Length())
	assert.Equal(t, "[2, 5)", r.String())

	assert.True(t, rng(0, 2).Touches(rng(2, 3)))
	assert.False(t, rng(0, 2).Overlaps(rng(2, 3)))
	assert.True(t, rng(0, 10).Contains(rng(2, 3)))
	assert.True(t, rng(0, 10).ContainsTime(sec(0)))
	assert.False(t, rng(0, 10).ContainsTime(sec(10)))

	x, ok := rng(0, 5).Intersected(rng(3, 8))
	assert.True(t, ok)
	assert.Equal(t, rng(3, 5), x)

	_, ok = rng(0, 5).Intersected(rng(5, 8))
	assert.False(t, ok)

	assert.Equal(t, rng(0, 3), rng(-5, 3).Clamp(sec(0), sec(10)))
	assert.True(t, rng(15, 20).Clamp(sec(0), sec(10)).IsEmpty())
	assert.Equal(t, rng(3, 4), rng(1, 2).Shifted(sec(2)))
}

func TestListInsertRemove(t *testing.T) {
	t.Parallel()

	l := NewList(rng(0, 1), rng(2, 3))
	assert.Equal(t, 2, l.Len())

	l.Insert(rng(1, 2))
	assert.Equal(t, "{[0, 3)}", l.String())

	l.Insert(rng(5, 6))
	l.Insert(rng(8, 9))
	l.Insert(rng(4, 8))
	assert.Equal(t, "{[0, 3) [4, 9)}", l.String())

	l.Insert(rng(7, 7))
	assert.Equal(t, 2, l.Len())

	l.Remove(rng(1, 5))
	assert.Equal(t, "{[0, 1) [5, 9)}", l.String())

	l.Remove(rng(-10, 100))
	assert.True(t, l.IsEmpty())
	assert.Equal(t, "{}", l.String())
}

func TestListQueries(t *testing.T) {
	t.Parallel()

	l := NewList(rng(2, 4), rng(6, 8))

	assert.True(t, l.ContainsTime(sec(3)))
	assert.False(t, l.ContainsTime(sec(4)))
	assert.True(t, l.ContainsRange(rng(6, 8)))
	assert.False(t, l.ContainsRange(rng(3, 7)))
	assert.True(t, l.OverlapsRange(rng(3, 7)))
	assert.False(t, l.OverlapsRange(rng(4, 6)))

	assert.Equal(t, "{[3, 4) [6, 7)}", l.Intersects(rng(3, 7)).String())
	assert.Equal(t, "{[0, 2) [4, 6) [8, 10)}", l.Missing(rng(0, 10)).String())
	assert.Equal(t, "{[2, 3) [7, 8)}", l.Difference(NewList(rng(3, 7))).String())

	c := l.Clone()
	c.Clear()
	assert.Equal(t, 2, l.Len(), "clones are independent")
	assert.True(t, l.Equal(NewList(rng(6, 8), rng(2, 4))))
}

func TestListShift(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		list     List
		from, to int64
		want     string
	}{
		{"insert", NewList(rng(0, 5), rng(10, 20)), 10, 15, "{[0, 5) [15, 25)}"},
		{"remove", NewList(rng(0, 5), rng(10, 20)), 12, 10, "{[0, 5) [10, 18)}"},
		{"straddle insert", NewList(rng(0, 10)), 5, 8, "{[0, 5) [8, 13)}"},
		{"straddle remove", NewList(rng(0, 10)), 6, 4, "{[0, 8)}"},
		{"nothing after", NewList(rng(0, 5)), 6, 9, "{[0, 5)}"},
		{"no-op", NewList(rng(0, 5)), 3, 3, "{[0, 5)}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			l := tt.list.Clone()
			l.Shift(sec(tt.from), sec(tt.to))
			assert.Equal(t, tt.want, l.String())
		})
	}
}
