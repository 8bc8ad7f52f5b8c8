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

// Package node is the minimal graph engine the viewer output sits on: input
// and output ports, connections, array inputs, nested operations and
// invalidation propagation.
//
// Specialized nodes embed *Node and install themselves as the Handler with
// SetHandler. The engine then calls the embedding type's hooks, and the
// embedding type calls the *Node methods of the same name to get the base
// behavior.
//
// A Node is owned by the graph's thread and is not safe for concurrent use.
package node

import (
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/exp/slices"

	"github.com/TurbineOne/viewer-output/pkg/rational"
	"github.com/TurbineOne/viewer-output/pkg/timerange"
)

// NoElement addresses a scalar input, or an array input as a whole.
const NoElement = -1

const (
	lFrom    = "from"
	lInput   = "input"
	lNewSize = "newSize"
	lNode    = "node"
	lOldSize = "oldSize"
	lOutput  = "output"
	lPending = "pending"
)

// DataType is the type of value an input carries.
type DataType int

const (
	TypeNone DataType = iota
	TypeVideoParams
	TypeAudioParams
	TypeTexture
	TypeSamples
	TypeRational
	TypeAny
)

// InputFlags modify how an input behaves.
type InputFlags uint

const (
	FlagNotConnectable InputFlags = 1 << iota
	FlagNotKeyframable
	FlagArray
)

// Output addresses an output port of a node.
type Output struct {
	Node *Node
	Name string
}

// IsValid reports whether o points at a node.
func (o Output) IsValid() bool {
	return o.Node != nil
}

// Handler receives the engine's events. *Node implements it with the base
// behavior; specialized nodes override what they need.
type Handler interface {
	InputConnected(input string, element int, out Output)
	InputDisconnected(input string, element int, out Output)
	InputValueChanged(input string, element int)
	InputArraySizeChanged(input string, oldSize, newSize int)
	InvalidateCache(r timerange.TimeRange, from string, element int, jobTime int64)
	BeginOperation()
	EndOperation()
}

// edge is one downstream consumer of an output.
type edge struct {
	node    *Node
	input   string
	element int
}

type input struct {
	name        string
	displayName string
	typ         DataType
	flags       InputFlags
	values      []any // one entry for scalar inputs
	connections map[int]Output
	properties  map[string]any
}

func (in *input) isArray() bool {
	return in.flags&FlagArray != 0
}

// pendingKey identifies a deferred invalidation source.
type pendingKey struct {
	from    string
	element int
}

type pendingInvalidation struct {
	key     pendingKey
	ranges  timerange.List
	jobTime int64
}

// Node is the base of every graph node.
type Node struct {
	id      string
	log     zerolog.Logger
	handler Handler

	inputs     map[string]*input
	inputOrder []string

	outputs    []string
	downstream map[string][]edge

	depth   int
	pending []*pendingInvalidation

	custom []CustomBlock
}

// New returns an empty node. If logger is nil, logging is disabled.
func New(id string, logger *zerolog.Logger) *Node {
	n := &Node{
		id:         id,
		inputs:     make(map[string]*input),
		downstream: make(map[string][]edge),
	}

	if logger != nil {
		n.log = logger.With().Str(lNode, id).Logger()
	} else {
		n.log = zerolog.Nop()
	}

	n.handler = n

	return n
}

// ID returns the node's identifier.
func (n *Node) ID() string { return n.id }

// SetHandler installs the specialized node that receives events.
func (n *Node) SetHandler(h Handler) {
	n.handler = h
}

// Handler returns the installed handler.
func (n *Node) Handler() Handler {
	return n.handler
}

// Logger returns the node's logger.
func (n *Node) Logger() *zerolog.Logger {
	return &n.log
}

type unknownInputError struct {
	node, input string
}

func (e *unknownInputError) Error() string {
	return fmt.Sprintf("node %q has no input %q", e.node, e.input)
}

type notArrayError struct {
	input string
}

func (e *notArrayError) Error() string {
	return fmt.Sprintf("input %q is not an array", e.input)
}

type notConnectableError struct {
	input string
}

func (e *notConnectableError) Error() string {
	return fmt.Sprintf("input %q is not connectable", e.input)
}

type elementRangeError struct {
	input   string
	element int
	size    int
}

func (e *elementRangeError) Error() string {
	return fmt.Sprintf("input %q element %d out of range [0, %d)", e.input, e.element, e.size)
}

// AddInput declares an input. Array inputs start empty.
func (n *Node) AddInput(name string, typ DataType, flags InputFlags) {
	in := &input{
		name:        name,
		displayName: name,
		typ:         typ,
		flags:       flags,
		connections: make(map[int]Output),
		properties:  make(map[string]any),
	}

	if !in.isArray() {
		in.values = make([]any, 1)
	}

	n.inputs[name] = in
	n.inputOrder = append(n.inputOrder, name)
}

func (n *Node) getInput(name string) (*input, error) {
	in, ok := n.inputs[name]
	if !ok {
		return nil, &unknownInputError{node: n.id, input: name}
	}

	return in, nil
}

// HasInput reports whether the input exists.
func (n *Node) HasInput(name string) bool {
	_, ok := n.inputs[name]

	return ok
}

// Inputs returns input names in declaration order.
func (n *Node) Inputs() []string {
	return slices.Clone(n.inputOrder)
}

// SetInputName sets an input's human readable name.
func (n *Node) SetInputName(name, display string) {
	if in, ok := n.inputs[name]; ok {
		in.displayName = display
	}
}

// InputName returns an input's human readable name.
func (n *Node) InputName(name string) string {
	if in, ok := n.inputs[name]; ok {
		return in.displayName
	}

	return ""
}

// SetInputProperty attaches an arbitrary property to an input.
func (n *Node) SetInputProperty(name, key string, value any) {
	if in, ok := n.inputs[name]; ok {
		in.properties[key] = value
	}
}

// InputProperty returns a property set with SetInputProperty.
func (n *Node) InputProperty(name, key string) any {
	if in, ok := n.inputs[name]; ok {
		return in.properties[key]
	}

	return nil
}

func (in *input) slot(element int) (int, error) {
	if !in.isArray() {
		return 0, nil
	}

	if element < 0 || element >= len(in.values) {
		return 0, &elementRangeError{input: in.name, element: element, size: len(in.values)}
	}

	return element, nil
}

// StandardValue returns the unconnected value of an input element.
func (n *Node) StandardValue(name string, element int) any {
	in, err := n.getInput(name)
	if err != nil {
		return nil
	}

	i, err := in.slot(element)
	if err != nil {
		return nil
	}

	return in.values[i]
}

// SetStandardValue sets the unconnected value of an input element, then
// reports the change and invalidates everything downstream of it.
func (n *Node) SetStandardValue(name string, value any, element int) error {
	in, err := n.getInput(name)
	if err != nil {
		return err
	}

	i, err := in.slot(element)
	if err != nil {
		return err
	}

	in.values[i] = value

	n.handler.InputValueChanged(name, element)
	n.handler.InvalidateCache(All(), name, element, NextJobTime())

	return nil
}

// InputArraySize returns the element count of an array input.
func (n *Node) InputArraySize(name string) int {
	in, ok := n.inputs[name]
	if !ok || !in.isArray() {
		return 0
	}

	return len(in.values)
}

// InputArrayAppend adds one nil element to an array input.
func (n *Node) InputArrayAppend(name string) error {
	return n.InputArrayResize(name, n.InputArraySize(name)+1)
}

// InputArrayRemoveLast drops the last element of an array input.
func (n *Node) InputArrayRemoveLast(name string) error {
	size := n.InputArraySize(name)
	if size == 0 {
		return nil
	}

	return n.InputArrayResize(name, size-1)
}

// InputArrayResize grows or shrinks an array input, disconnecting any
// removed elements.
func (n *Node) InputArrayResize(name string, size int) error {
	in, err := n.getInput(name)
	if err != nil {
		return err
	}

	if !in.isArray() {
		return &notArrayError{input: name}
	}

	old := len(in.values)
	if size == old || size < 0 {
		return nil
	}

	for i := size; i < old; i++ {
		if _, ok := in.connections[i]; ok {
			_ = n.Disconnect(name, i)
		}
	}

	if size > old {
		in.values = append(in.values, make([]any, size-old)...)
	} else {
		clear(in.values[size:])
		in.values = in.values[:size]
	}

	n.log.Debug().Str(lInput, name).Int(lOldSize, old).Int(lNewSize, size).Msg("input array resized")
	n.handler.InputArraySizeChanged(name, old, size)

	return nil
}

// AddOutput declares an output port.
func (n *Node) AddOutput(name string) {
	if slices.Contains(n.outputs, name) {
		return
	}

	n.outputs = append(n.outputs, name)
}

// RemoveOutput removes an output port, disconnecting its consumers.
func (n *Node) RemoveOutput(name string) {
	i := slices.Index(n.outputs, name)
	if i < 0 {
		return
	}

	for _, e := range slices.Clone(n.downstream[name]) {
		_ = e.node.Disconnect(e.input, e.element)
	}

	n.outputs = slices.Delete(n.outputs, i, i+1)
	delete(n.downstream, name)
}

// HasOutput reports whether the output exists.
func (n *Node) HasOutput(name string) bool {
	return slices.Contains(n.outputs, name)
}

// Outputs returns output names in creation order.
func (n *Node) Outputs() []string {
	return slices.Clone(n.outputs)
}

// Output returns a handle to one of this node's outputs.
func (n *Node) Output(name string) Output {
	return Output{Node: n, Name: name}
}

// Connect feeds out into an input element, replacing any existing connection.
func (n *Node) Connect(out Output, name string, element int) error {
	in, err := n.getInput(name)
	if err != nil {
		return err
	}

	if in.flags&FlagNotConnectable != 0 {
		return &notConnectableError{input: name}
	}

	if in.isArray() {
		if _, err := in.slot(element); err != nil {
			return err
		}
	} else {
		element = NoElement
	}

	if !out.Node.HasOutput(out.Name) {
		out.Node.AddOutput(out.Name)
	}

	if _, ok := in.connections[element]; ok {
		if err := n.Disconnect(name, element); err != nil {
			return err
		}
	}

	in.connections[element] = out
	out.Node.downstream[out.Name] = append(out.Node.downstream[out.Name],
		edge{node: n, input: name, element: element})

	n.log.Debug().Str(lInput, name).Str(lOutput, out.Name).Str(lFrom, out.Node.id).Msg("connected")

	// Join any operation already open upstream so its EndOperation balances.
	for i := 0; i < out.Node.depth; i++ {
		n.handler.BeginOperation()
	}

	n.handler.InputConnected(name, element, out)
	n.handler.InvalidateCache(All(), name, element, NextJobTime())

	return nil
}

// Disconnect removes the connection feeding an input element, if any.
func (n *Node) Disconnect(name string, element int) error {
	in, err := n.getInput(name)
	if err != nil {
		return err
	}

	if !in.isArray() {
		element = NoElement
	}

	out, ok := in.connections[element]
	if !ok {
		return nil
	}

	delete(in.connections, element)

	edges := out.Node.downstream[out.Name]
	edges = slices.DeleteFunc(edges, func(e edge) bool {
		return e.node == n && e.input == name && e.element == element
	})
	out.Node.downstream[out.Name] = edges

	n.log.Debug().Str(lInput, name).Str(lOutput, out.Name).Str(lFrom, out.Node.id).Msg("disconnected")

	n.handler.InputDisconnected(name, element, out)
	n.handler.InvalidateCache(All(), name, element, NextJobTime())

	// Leave operations still open upstream; their EndOperation won't reach us.
	for i := 0; i < out.Node.depth; i++ {
		n.handler.EndOperation()
	}

	return nil
}

// DisconnectAll severs every connection into and out of the node.
func (n *Node) DisconnectAll() {
	for _, name := range n.inputOrder {
		in := n.inputs[name]

		elements := make([]int, 0, len(in.connections))
		for e := range in.connections {
			elements = append(elements, e)
		}

		slices.Sort(elements)

		for _, e := range elements {
			_ = n.Disconnect(name, e)
		}
	}

	for _, out := range n.outputs {
		for _, e := range slices.Clone(n.downstream[out]) {
			_ = e.node.Disconnect(e.input, e.element)
		}
	}
}

// IsInputConnected reports whether an input element has an upstream output.
func (n *Node) IsInputConnected(name string, element int) bool {
	return n.ConnectedOutput(name, element).IsValid()
}

// ConnectedOutput returns the upstream output feeding an input element.
func (n *Node) ConnectedOutput(name string, element int) Output {
	in, ok := n.inputs[name]
	if !ok {
		return Output{}
	}

	if !in.isArray() {
		element = NoElement
	}

	return in.connections[element]
}

// InputConnected is the base hook; it does nothing.
func (n *Node) InputConnected(string, int, Output) {}

// InputDisconnected is the base hook; it does nothing.
func (n *Node) InputDisconnected(string, int, Output) {}

// InputValueChanged is the base hook; it does nothing.
func (n *Node) InputValueChanged(string, int) {}

// InputArraySizeChanged is the base hook; it does nothing.
func (n *Node) InputArraySizeChanged(string, int, int) {}

// InvalidateCache relays an invalidation to every downstream consumer.
// While an operation is open, it is queued instead and replayed through the
// handler when the outermost operation ends.
func (n *Node) InvalidateCache(r timerange.TimeRange, from string, element int, jobTime int64) {
	if n.depth > 0 {
		n.queue(r, from, element, jobTime)

		return
	}

	for _, out := range n.outputs {
		for _, e := range slices.Clone(n.downstream[out]) {
			e.node.handler.InvalidateCache(r, e.input, e.element, jobTime)
		}
	}
}

func (n *Node) queue(r timerange.TimeRange, from string, element int, jobTime int64) {
	key := pendingKey{from: from, element: element}

	for _, p := range n.pending {
		if p.key == key {
			p.ranges.Insert(r)
			p.jobTime = max(p.jobTime, jobTime)

			return
		}
	}

	// An empty range is still recorded; replaying it lets the handler
	// re-verify state.
	p := &pendingInvalidation{key: key, jobTime: jobTime}
	p.ranges.Insert(r)

	n.pending = append(n.pending, p)
}

// InOperation reports whether the engine is suspended.
func (n *Node) InOperation() bool {
	return n.depth > 0
}

// BeginOperation suspends invalidation relaying on this node and everything
// downstream of it.
func (n *Node) BeginOperation() {
	n.depth++

	for _, out := range n.outputs {
		for _, e := range n.downstream[out] {
			e.node.handler.BeginOperation()
		}
	}
}

// EndOperation closes one level of BeginOperation. When the outermost level
// closes, queued invalidations are replayed through the handler. Unbalanced
// calls are a programming error and panic.
func (n *Node) EndOperation() {
	if n.depth == 0 {
		panic(fmt.Sprintf("node %q: EndOperation without BeginOperation", n.id))
	}

	n.depth--

	if n.depth == 0 && len(n.pending) > 0 {
		pending := n.pending
		n.pending = nil

		n.log.Trace().Int(lPending, len(pending)).Msg("replaying deferred invalidations")

		for _, p := range pending {
			if p.ranges.IsEmpty() {
				n.handler.InvalidateCache(timerange.TimeRange{}, p.key.from, p.key.element, p.jobTime)

				continue
			}

			for _, r := range p.ranges.Ranges() {
				n.handler.InvalidateCache(r, p.key.from, p.key.element, p.jobTime)
			}
		}
	}

	for _, out := range n.outputs {
		for _, e := range slices.Clone(n.downstream[out]) {
			e.node.handler.EndOperation()
		}
	}
}

// All returns the range covering all non-negative time.
func All() timerange.TimeRange {
	return timerange.New(rational.Zero, rational.Max)
}
