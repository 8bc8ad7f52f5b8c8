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

package viewer

import (
	"sync"

	"golang.org/x/exp/slices"

	"github.com/TurbineOne/viewer-output/pkg/params"
	"github.com/TurbineOne/viewer-output/pkg/rational"
)

// Event is a change notification from an Output. It is one of the types
// below.
type Event interface {
	event()
}

// LengthChanged is sent when the node's length changes.
type LengthChanged struct {
	Length rational.Rational
}

// SizeChanged is sent when the primary video stream's dimensions change.
type SizeChanged struct {
	Width, Height int
}

// FrameRateChanged is sent when the primary video stream's frame rate
// changes. The frame cache is already regridded when it arrives.
type FrameRateChanged struct {
	FrameRate rational.Rational
}

// PixelAspectChanged is sent when the primary video stream's pixel aspect
// ratio changes.
type PixelAspectChanged struct {
	PixelAspect rational.Rational
}

// InterlacingChanged is sent when the primary video stream's interlacing
// changes.
type InterlacingChanged struct {
	Interlacing params.Interlacing
}

// VideoParamsChanged is sent on every change to the primary video stream.
type VideoParamsChanged struct{}

// AudioParamsChanged is sent on every change to the primary audio stream.
type AudioParamsChanged struct{}

// TextureInputChanged is sent when the texture input is connected or
// disconnected.
type TextureInputChanged struct{}

func (LengthChanged) event()       {}
func (SizeChanged) event()         {}
func (FrameRateChanged) event()    {}
func (PixelAspectChanged) event()  {}
func (InterlacingChanged) event()  {}
func (VideoParamsChanged) event()  {}
func (AudioParamsChanged) event()  {}
func (TextureInputChanged) event() {}

type subscriber struct {
	id int
	fn func(Event)
}

// eventHub fans events out to subscribers. Subscribing is safe from any
// goroutine; events are delivered on the graph's thread.
type eventHub struct {
	mu     sync.Mutex
	nextID int
	subs   []subscriber
}

func (h *eventHub) subscribe(fn func(Event)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	h.subs = append(h.subs, subscriber{id: id, fn: fn})

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()

		h.subs = slices.DeleteFunc(h.subs, func(s subscriber) bool { return s.id == id })
	}
}

func (h *eventHub) snapshot() []subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()

	return slices.Clone(h.subs)
}

func (h *eventHub) clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.subs = nil
}

// Subscribe registers fn for every event the node sends, and returns a
// function that unregisters it.
func (o *Output) Subscribe(fn func(Event)) (cancel func()) {
	return o.events.subscribe(fn)
}

func (o *Output) emit(e Event) {
	for _, s := range o.events.snapshot() {
		s.fn(e)
	}
}

// InputValueChanged reacts to edits of the primary (index 0) streams.
// Video changes are diffed against the last seen parameters and one event is
// sent per changed property, followed by VideoParamsChanged.
func (o *Output) InputValueChanged(input string, element int) {
	if element == 0 {
		switch input {
		case VideoParamsInput:
			o.videoParamsChanged()
		case AudioParamsInput:
			o.emit(AudioParamsChanged{})
			o.audioCache.SetParameters(o.AudioParams(0))
		}
	}

	o.Node.InputValueChanged(input, element)
}

func (o *Output) videoParamsChanged() {
	p := o.VideoParams(0)
	old := o.cachedVideoParams

	if old.Width != p.Width || old.Height != p.Height {
		o.emit(SizeChanged{Width: p.Width, Height: p.Height})
	}

	if old.PixelAspect != p.PixelAspect {
		o.emit(PixelAspectChanged{PixelAspect: p.PixelAspect})
	}

	if old.Interlacing != p.Interlacing {
		o.emit(InterlacingChanged{Interlacing: p.Interlacing})
	}

	if old.FrameRate != p.FrameRate {
		o.videoCache.SetTimebase(p.FrameRateAsTimeBase())
		o.emit(FrameRateChanged{FrameRate: p.FrameRate})
	}

	o.emit(VideoParamsChanged{})

	o.cachedVideoParams = p
}
