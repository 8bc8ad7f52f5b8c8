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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/TurbineOne/viewer-output/pkg/rational"
	"github.com/TurbineOne/viewer-output/pkg/timerange"
)

func rng(a, b int64) timerange.TimeRange {
	return timerange.New(rational.FromInt(a), rational.FromInt(b))
}

type invalidation struct {
	r       timerange.TimeRange
	from    string
	element int
	jobTime int64
}

// probe records every hook and then defers to the base behavior. Like real
// nodes, it only acts on invalidations outside of operations.
type probe struct {
	*Node

	invalidations []invalidation
	values        []string
	sizes         [][2]int
	connected     int
	disconnected  int
	begins, ends  int
}

func newProbe(id string) *probe {
	p := &probe{Node: New(id, nil)}
	p.SetHandler(p)
	p.AddInput("in", TypeAny, 0)
	p.AddInput("arr", TypeAny, FlagArray)
	p.AddInput("fixed", TypeAny, FlagNotConnectable)
	p.AddOutput("out")

	return p
}

func (p *probe) InputConnected(input string, element int, out Output) {
	p.connected++
	p.Node.InputConnected(input, element, out)
}

func (p *probe) InputDisconnected(input string, element int, out Output) {
	p.disconnected++
	p.Node.InputDisconnected(input, element, out)
}

func (p *probe) InputValueChanged(input string, element int) {
	p.values = append(p.values, input)
	p.Node.InputValueChanged(input, element)
}

func (p *probe) InputArraySizeChanged(input string, oldSize, newSize int) {
	p.sizes = append(p.sizes, [2]int{oldSize, newSize})
	p.Node.InputArraySizeChanged(input, oldSize, newSize)
}

func (p *probe) InvalidateCache(r timerange.TimeRange, from string, element int, jobTime int64) {
	if !p.InOperation() {
		p.invalidations = append(p.invalidations, invalidation{r: r, from: from, element: element, jobTime: jobTime})
	}

	p.Node.InvalidateCache(r, from, element, jobTime)
}

func (p *probe) BeginOperation() {
	p.begins++
	p.Node.BeginOperation()
}

func (p *probe) EndOperation() {
	p.ends++
	p.Node.EndOperation()
}

func TestConnectDisconnect(t *testing.T) {
	t.Parallel()

	up := New("up", nil)
	up.AddOutput("out")

	p := newProbe("down")

	require.NoError(t, p.Connect(up.Output("out"), "in", 5))
	assert.True(t, p.IsInputConnected("in", NoElement), "scalar inputs ignore the element")
	assert.Equal(t, up.Output("out"), p.ConnectedOutput("in", NoElement))
	assert.Equal(t, 1, p.connected)
	require.Len(t, p.invalidations, 1)
	assert.Equal(t, invalidation{r: All(), from: "in", element: NoElement, jobTime: p.invalidations[0].jobTime},
		p.invalidations[0])

	// Connecting over an existing connection replaces it.
	require.NoError(t, p.Connect(up.Output("alt"), "in", NoElement))
	assert.True(t, up.HasOutput("alt"))
	assert.Equal(t, 1, p.disconnected)
	assert.Equal(t, "alt", p.ConnectedOutput("in", NoElement).Name)

	require.NoError(t, p.Disconnect("in", NoElement))
	assert.False(t, p.IsInputConnected("in", NoElement))
	assert.Equal(t, 2, p.disconnected)

	require.NoError(t, p.Disconnect("in", NoElement))
	assert.Equal(t, 2, p.disconnected, "disconnecting twice is a no-op")

	assert.Error(t, p.Connect(up.Output("out"), "fixed", NoElement))
	assert.Error(t, p.Connect(up.Output("out"), "missing", NoElement))
	assert.Error(t, p.Disconnect("missing", NoElement))
}

func TestArrayInput(t *testing.T) {
	t.Parallel()

	up := New("up", nil)
	up.AddOutput("out")

	p := newProbe("p")
	assert.Equal(t, 0, p.InputArraySize("arr"))
	assert.Error(t, p.SetStandardValue("arr", 1, 0))
	assert.Nil(t, p.StandardValue("arr", 0))

	require.NoError(t, p.InputArrayAppend("arr"))
	require.NoError(t, p.SetStandardValue("arr", 7, 0))
	assert.Equal(t, 7, p.StandardValue("arr", 0))
	assert.Equal(t, []string{"arr"}, p.values)

	require.NoError(t, p.Connect(up.Output("out"), "arr", 0))
	assert.Error(t, p.Connect(up.Output("out"), "arr", 3))

	require.NoError(t, p.InputArrayRemoveLast("arr"))
	assert.False(t, p.IsInputConnected("arr", 0), "removed elements are disconnected")
	assert.Equal(t, 0, p.InputArraySize("arr"))
	assert.Equal(t, [][2]int{{0, 1}, {1, 0}}, p.sizes)

	require.NoError(t, p.InputArrayRemoveLast("arr"))
	assert.Error(t, p.InputArrayResize("in", 2))
	assert.Equal(t, 0, p.InputArraySize("in"))
}

func TestInputMetadata(t *testing.T) {
	t.Parallel()

	p := newProbe("p")
	assert.Equal(t, []string{"in", "arr", "fixed"}, p.Inputs())
	assert.True(t, p.HasInput("arr"))
	assert.Equal(t, "in", p.InputName("in"))

	p.SetInputName("in", "Input")
	p.SetInputProperty("in", "mask", 3)
	assert.Equal(t, "Input", p.InputName("in"))
	assert.Equal(t, 3, p.InputProperty("in", "mask"))
	assert.Nil(t, p.InputProperty("nope", "mask"))
}

func TestInvalidationRelay(t *testing.T) {
	t.Parallel()

	up := New("up", nil)
	up.AddOutput("out")

	mid := newProbe("mid")
	down := newProbe("down")

	require.NoError(t, mid.Connect(up.Output("out"), "in", NoElement))
	require.NoError(t, down.Connect(mid.Output("out"), "in", NoElement))

	mid.invalidations, down.invalidations = nil, nil

	up.InvalidateCache(rng(1, 2), "x", NoElement, 42)
	assert.Equal(t, []invalidation{{r: rng(1, 2), from: "in", element: NoElement, jobTime: 42}}, mid.invalidations)
	assert.Equal(t, mid.invalidations, down.invalidations)
}

func TestOperationQueue(t *testing.T) {
	t.Parallel()

	up := New("up", nil)
	up.AddOutput("out")

	p := newProbe("p")
	require.NoError(t, p.Connect(up.Output("out"), "in", NoElement))

	p.invalidations = nil

	up.BeginOperation()
	up.BeginOperation()
	assert.True(t, p.InOperation())
	assert.Equal(t, 2, p.begins)

	up.InvalidateCache(rng(0, 1), "x", NoElement, 3)
	up.InvalidateCache(rng(1, 2), "x", NoElement, 9)
	up.InvalidateCache(rng(5, 6), "y", NoElement, 4)

	up.EndOperation()
	assert.Empty(t, p.invalidations)
	assert.True(t, p.InOperation())

	up.EndOperation()
	assert.False(t, p.InOperation())
	assert.Equal(t, 2, p.ends)

	// Everything arriving on one input is merged and carries the newest job time.
	assert.Equal(t, []invalidation{
		{r: rng(0, 2), from: "in", element: NoElement, jobTime: 9},
		{r: rng(5, 6), from: "in", element: NoElement, jobTime: 9},
	}, p.invalidations)

	assert.Panics(t, up.EndOperation)
}

func TestConnectJoinsOpenOperation(t *testing.T) {
	t.Parallel()

	up := New("up", nil)
	up.AddOutput("out")

	up.BeginOperation()

	p := newProbe("p")
	require.NoError(t, p.Connect(up.Output("out"), "in", NoElement))
	assert.True(t, p.InOperation())

	q := newProbe("q")
	require.NoError(t, q.Connect(up.Output("out"), "in", NoElement))
	require.NoError(t, q.Disconnect("in", NoElement))
	assert.False(t, q.InOperation(), "leaving the graph leaves its operations")

	up.EndOperation()
	assert.False(t, p.InOperation())
	assert.Equal(t, p.begins, p.ends)
	assert.Equal(t, q.begins, q.ends)
}

func TestRemoveOutputAndDisconnectAll(t *testing.T) {
	t.Parallel()

	up := New("up", nil)
	up.AddOutput("out")

	a, b := newProbe("a"), newProbe("b")
	require.NoError(t, a.Connect(up.Output("out"), "in", NoElement))
	require.NoError(t, b.Connect(a.Output("out"), "in", NoElement))

	up.RemoveOutput("out")
	assert.False(t, up.HasOutput("out"))
	assert.False(t, a.IsInputConnected("in", NoElement))

	require.NoError(t, a.Connect(up.Output("out"), "in", NoElement))
	require.NoError(t, a.InputArrayAppend("arr"))
	require.NoError(t, a.Connect(up.Output("out"), "arr", 0))

	a.DisconnectAll()
	assert.False(t, a.IsInputConnected("in", NoElement))
	assert.False(t, a.IsInputConnected("arr", 0))
	assert.False(t, b.IsInputConnected("in", NoElement))
	assert.Equal(t, []string{"out"}, a.Outputs())
}

type lengthNode struct {
	*Node
}

func (l *lengthNode) Value(output string, _ timerange.TimeRange) Table {
	var t Table
	t.Push(TypeRational, LengthTag, rational.FromInt(1))
	t.Push(TypeRational, LengthTag, rational.FromInt(int64(len(output))))

	return t
}

func TestNodeTraverser(t *testing.T) {
	t.Parallel()

	l := &lengthNode{Node: New("l", nil)}
	l.SetHandler(l)

	var tr NodeTraverser

	table := tr.GenerateTable(l.Output("abc"), All())
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, rational.FromInt(3), table.Rational(LengthTag), "latest push wins")
	assert.Equal(t, rational.Zero, table.Rational("other"))

	_, ok := table.Get(TypeTexture, LengthTag)
	assert.False(t, ok)

	assert.Equal(t, 0, tr.GenerateTable(Output{}, All()).Len())
	assert.Equal(t, 0, tr.GenerateTable(New("plain", nil).Output("out"), All()).Len())
}

func TestJobTime(t *testing.T) {
	t.Parallel()

	a := NextJobTime()
	b := NextJobTime()
	assert.Less(t, a, b)
	assert.GreaterOrEqual(t, CurrentJobTime(), b)
}

func TestCustomPassThrough(t *testing.T) {
	t.Parallel()

	n := New("n", nil)

	require.NoError(t, n.LoadCustom("a", &yaml.Node{Kind: yaml.ScalarNode, Value: "1"}))
	require.NoError(t, n.LoadCustom("b", &yaml.Node{Kind: yaml.ScalarNode, Value: "2"}))
	require.NoError(t, n.LoadCustom("a", &yaml.Node{Kind: yaml.ScalarNode, Value: "3"}))

	blocks := n.SaveCustom()
	require.Len(t, blocks, 2)
	assert.Equal(t, "a", blocks[0].Name)
	assert.Equal(t, "3", blocks[0].Value.Value)
	assert.Equal(t, "b", blocks[1].Name)
}
