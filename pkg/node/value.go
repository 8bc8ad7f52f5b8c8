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

package node

import (
	"sync/atomic"

	"github.com/TurbineOne/viewer-output/pkg/rational"
	"github.com/TurbineOne/viewer-output/pkg/timerange"
)

// LengthTag is the table tag under which nodes publish their duration.
const LengthTag = "length"

// Value is one typed, tagged entry of a Table.
type Value struct {
	Type DataType
	Tag  string
	Data any
}

// Table is the set of values a node produces for a time range. Later pushes
// shadow earlier ones with the same type and tag.
type Table struct {
	values []Value
}

// Push appends a value.
func (t *Table) Push(typ DataType, tag string, data any) {
	t.values = append(t.values, Value{Type: typ, Tag: tag, Data: data})
}

// Get returns the most recent value with the given type and tag.
func (t Table) Get(typ DataType, tag string) (Value, bool) {
	for i := len(t.values) - 1; i >= 0; i-- {
		if v := t.values[i]; v.Type == typ && v.Tag == tag {
			return v, true
		}
	}

	return Value{}, false
}

// Rational returns a TypeRational value, or zero if absent.
func (t Table) Rational(tag string) rational.Rational {
	v, ok := t.Get(TypeRational, tag)
	if !ok {
		return rational.Zero
	}

	r, _ := v.Data.(rational.Rational)

	return r
}

// Len returns the number of values pushed.
func (t Table) Len() int {
	return len(t.values)
}

// Valuer is implemented by handlers that can produce values for an output.
type Valuer interface {
	Value(output string, r timerange.TimeRange) Table
}

// Traverser evaluates the graph behind an output. It must not block.
type Traverser interface {
	GenerateTable(out Output, r timerange.TimeRange) Table
}

// NodeTraverser evaluates outputs by asking the upstream node's handler.
type NodeTraverser struct{}

// GenerateTable implements Traverser.
func (NodeTraverser) GenerateTable(out Output, r timerange.TimeRange) Table {
	if !out.IsValid() {
		return Table{}
	}

	if v, ok := out.Node.handler.(Valuer); ok {
		return v.Value(out.Name, r)
	}

	return Table{}
}

//nolint:gochecknoglobals // Process-wide monotonic clock.
var jobClock atomic.Int64

// NextJobTime returns a new, strictly increasing job time. Invalidations and
// render jobs are stamped with it so late results can be recognized.
func NextJobTime() int64 {
	return jobClock.Add(1)
}

// CurrentJobTime returns the most recently issued job time.
func CurrentJobTime() int64 {
	return jobClock.Load()
}
