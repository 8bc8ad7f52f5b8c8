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

// Package viewer implements the output node of a media graph. An Output
// collects the streams an upstream graph produces, derives the timeline
// length from them, and keeps its frame and sample caches consistent while
// the graph is edited.
//
// An Output belongs to the thread that owns the graph. Only its caches may be
// touched from other goroutines.
package viewer

import (
	"github.com/rs/zerolog"

	"github.com/TurbineOne/viewer-output/pkg/cache"
	"github.com/TurbineOne/viewer-output/pkg/node"
	"github.com/TurbineOne/viewer-output/pkg/params"
	"github.com/TurbineOne/viewer-output/pkg/points"
	"github.com/TurbineOne/viewer-output/pkg/rational"
	"github.com/TurbineOne/viewer-output/pkg/track"
)

// Input port names.
const (
	VideoParamsInput = "video_param_in"
	AudioParamsInput = "audio_param_in"
	TextureInput     = "tex_in"
	SamplesInput     = "samples_in"
)

// VideoParamEditMask is the "mask" input property of VideoParamsInput: the
// video parameters a user may edit on an output.
const VideoParamEditMask = EditWidthHeight | EditInterlacing | EditFrameRate | EditPixelAspect

// Bits of VideoParamEditMask.
const (
	EditWidthHeight uint64 = 1 << iota
	EditInterlacing
	EditFrameRate
	EditPixelAspect
)

const (
	lDepth   = "depth"
	lElement = "element"
	lFrom    = "from"
	lInput   = "input"
	lLength  = "length"
	lNewSize = "newSize"
	lOldSize = "oldSize"
	lRange   = "range"
	lTo      = "to"
)

// LengthProvider supplies a length for a media type that takes precedence
// over whatever is connected, e.g. a sequence with its own timeline. A null
// result defers to the connected input.
type LengthProvider interface {
	CustomLength(t track.Type) rational.Rational
}

// ShiftListener is told about cache shifts after they are applied.
type ShiftListener interface {
	ShiftVideo(from, to rational.Rational)
	ShiftAudio(from, to rational.Rational)
}

// Output is the viewer output node.
type Output struct {
	*node.Node

	log zerolog.Logger

	// depth is this node's own operation nesting. The embedded Node keeps a
	// second depth for the engine's suspension.
	depth int

	traverser      node.Traverser
	lengthProvider LengthProvider
	shiftListeners []ShiftListener

	videoCache *cache.FrameCache
	audioCache *cache.SampleCache

	cachedVideoParams params.VideoParams
	lastLength        rational.Rational

	points *points.Points

	events eventHub
}

// Option configures an Output.
type Option func(*settings)

type settings struct {
	id             string
	logger         *zerolog.Logger
	defaultStreams bool
	traverser      node.Traverser
	lengthProvider LengthProvider
	shiftListeners []ShiftListener
}

// WithID sets the node identifier used in logs.
func WithID(id string) Option {
	return func(s *settings) { s.id = id }
}

// WithLogger sets the logger. Without it, logging is disabled.
func WithLogger(l *zerolog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithDefaultStreams creates one video and one audio stream up front.
func WithDefaultStreams() Option {
	return func(s *settings) { s.defaultStreams = true }
}

// WithTraverser replaces the graph traverser used to resolve lengths.
func WithTraverser(t node.Traverser) Option {
	return func(s *settings) { s.traverser = t }
}

// WithLengthProvider installs a custom length source.
func WithLengthProvider(p LengthProvider) Option {
	return func(s *settings) { s.lengthProvider = p }
}

// WithShiftListener adds a listener for cache shifts.
func WithShiftListener(l ShiftListener) Option {
	return func(s *settings) { s.shiftListeners = append(s.shiftListeners, l) }
}

// New returns an output node with its ports declared.
func New(opts ...Option) *Output {
	s := settings{id: "viewer", traverser: node.NodeTraverser{}}
	for _, opt := range opts {
		opt(&s)
	}

	var log zerolog.Logger
	if s.logger != nil {
		log = s.logger.With().Str("pkg", "viewer").Logger()
	} else {
		log = zerolog.Nop()
	}

	o := &Output{
		Node:           node.New(s.id, &log),
		log:            log.With().Str("node", s.id).Logger(),
		traverser:      s.traverser,
		lengthProvider: s.lengthProvider,
		shiftListeners: s.shiftListeners,
		videoCache:     cache.NewFrameCache(&log),
		audioCache:     cache.NewSampleCache(&log),
		points:         points.New(),
	}
	o.SetHandler(o)

	o.AddInput(VideoParamsInput, node.TypeVideoParams,
		node.FlagNotConnectable|node.FlagNotKeyframable|node.FlagArray)
	o.SetInputProperty(VideoParamsInput, "mask", VideoParamEditMask)

	o.AddInput(AudioParamsInput, node.TypeAudioParams,
		node.FlagNotConnectable|node.FlagNotKeyframable|node.FlagArray)

	o.AddInput(TextureInput, node.TypeTexture, node.FlagNotKeyframable)
	o.AddInput(SamplesInput, node.TypeSamples, node.FlagNotKeyframable)

	o.Retranslate()

	if s.defaultStreams {
		o.AddStream(track.Video, nil)
		o.AddStream(track.Audio, nil)
	}

	return o
}

// Retranslate sets the human readable input names.
func (o *Output) Retranslate() {
	o.SetInputName(VideoParamsInput, "Video Parameters")
	o.SetInputName(AudioParamsInput, "Audio Parameters")
	o.SetInputName(TextureInput, "Texture")
	o.SetInputName(SamplesInput, "Samples")
}

// Close detaches the node from the graph. Reactions are suspended first so
// nothing traverses a graph that is being torn down.
func (o *Output) Close() {
	o.BeginOperation()
	o.DisconnectAll()
	o.EndOperation()

	o.events.clear()
}

// AddShiftListener adds a listener for cache shifts.
func (o *Output) AddShiftListener(l ShiftListener) {
	o.shiftListeners = append(o.shiftListeners, l)
}

// BeginOperation opens a batch of edits. Length verification and cache
// invalidation wait until the outermost batch closes.
func (o *Output) BeginOperation() {
	o.depth++
	o.log.Trace().Int(lDepth, o.depth).Msg("begin operation")

	o.Node.BeginOperation()
}

// EndOperation closes a batch opened with BeginOperation. Unbalanced calls
// panic.
func (o *Output) EndOperation() {
	if o.depth == 0 {
		panic("viewer: EndOperation without BeginOperation")
	}

	o.depth--
	o.log.Trace().Int(lDepth, o.depth).Msg("end operation")

	o.Node.EndOperation()
}

// InOperation reports whether a batch is open.
func (o *Output) InOperation() bool {
	return o.depth > 0
}

// VideoFrameCache returns the frame cache.
func (o *Output) VideoFrameCache() *cache.FrameCache {
	return o.videoCache
}

// AudioPlaybackCache returns the sample cache.
func (o *Output) AudioPlaybackCache() *cache.SampleCache {
	return o.audioCache
}

// Points returns the timeline markers persisted with the node.
func (o *Output) Points() *points.Points {
	return o.points
}

// ConnectedTextureOutput returns the output feeding the texture input.
func (o *Output) ConnectedTextureOutput() node.Output {
	return o.ConnectedOutput(TextureInput, node.NoElement)
}

// ConnectedSampleOutput returns the output feeding the samples input.
func (o *Output) ConnectedSampleOutput() node.Output {
	return o.ConnectedOutput(SamplesInput, node.NoElement)
}

// InputConnected implements node.Handler.
func (o *Output) InputConnected(input string, element int, out node.Output) {
	if input == TextureInput {
		o.emit(TextureInputChanged{})
	}

	o.Node.InputConnected(input, element, out)
}

// InputDisconnected implements node.Handler.
func (o *Output) InputDisconnected(input string, element int, out node.Output) {
	if input == TextureInput {
		o.emit(TextureInputChanged{})
	}

	o.Node.InputDisconnected(input, element, out)
}
