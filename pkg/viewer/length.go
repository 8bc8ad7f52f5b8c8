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
	"github.com/TurbineOne/viewer-output/pkg/node"
	"github.com/TurbineOne/viewer-output/pkg/rational"
	"github.com/TurbineOne/viewer-output/pkg/timerange"
	"github.com/TurbineOne/viewer-output/pkg/track"
)

// Length returns the length computed by the last VerifyLength.
func (o *Output) Length() rational.Rational {
	return o.lastLength
}

func (o *Output) customLength(t track.Type) rational.Rational {
	if o.lengthProvider == nil {
		return rational.Zero
	}

	return o.lengthProvider.CustomLength(t)
}

// connectedLength asks whatever feeds input for its length.
func (o *Output) connectedLength(input string) rational.Rational {
	if !o.IsInputConnected(input, node.NoElement) {
		return rational.Zero
	}

	at := timerange.New(rational.Zero, rational.Zero)
	table := o.traverser.GenerateTable(o.ConnectedOutput(input, node.NoElement), at)

	return table.Rational(node.LengthTag)
}

// VerifyLength recomputes the length from the connected inputs and any
// custom lengths. It does nothing while an operation is open. Each cache gets
// the length of its own media; the node's length is the longest of all.
func (o *Output) VerifyLength() {
	if o.depth != 0 {
		return
	}

	video := o.customLength(track.Video)
	if video.IsNull() {
		video = o.connectedLength(TextureInput)
	}

	o.videoCache.SetLength(video)

	audio := o.customLength(track.Audio)
	if audio.IsNull() {
		audio = o.connectedLength(SamplesInput)
	}

	o.audioCache.SetLength(audio)

	subtitle := o.customLength(track.Subtitle)

	length := rational.MaxOf(subtitle, rational.MaxOf(video, audio))
	if length == o.lastLength {
		return
	}

	o.log.Debug().Stringer(lLength, length).Msg("length changed")

	o.lastLength = length
	o.emit(LengthChanged{Length: length})
}

// InvalidateCache handles an invalidation arriving on one of the inputs,
// then passes it on downstream. While an operation is open only the pass-on
// happens; the engine replays it when the operation closes.
func (o *Output) InvalidateCache(r timerange.TimeRange, from string, element int, jobTime int64) {
	if o.depth == 0 {
		o.invalidateOwnCaches(r, from, jobTime)
		o.VerifyLength()
	}

	o.Node.InvalidateCache(r, from, element, jobTime)
}

func (o *Output) invalidateOwnCaches(r timerange.TimeRange, from string, jobTime int64) {
	clamped := r.Clamp(rational.Zero, o.lastLength)
	if clamped.IsEmpty() {
		return
	}

	switch from {
	case TextureInput, VideoParamsInput:
		o.log.Trace().Object(lRange, clamped).Str(lFrom, from).Msg("invalidating frames")
		o.videoCache.Invalidate(clamped, jobTime)
	case SamplesInput, AudioParamsInput:
		o.log.Trace().Object(lRange, clamped).Str(lFrom, from).Msg("invalidating samples")
		o.audioCache.Invalidate(clamped, jobTime)
	}
}

// ShiftVideoCache ripples the frame cache, then tells the shift listeners.
func (o *Output) ShiftVideoCache(from, to rational.Rational) {
	o.log.Debug().Stringer(lFrom, from).Stringer(lTo, to).Msg("shifting video cache")

	o.videoCache.Shift(from, to)

	for _, l := range o.shiftListeners {
		l.ShiftVideo(from, to)
	}
}

// ShiftAudioCache ripples the sample cache, then tells the shift listeners.
func (o *Output) ShiftAudioCache(from, to rational.Rational) {
	o.log.Debug().Stringer(lFrom, from).Stringer(lTo, to).Msg("shifting audio cache")

	o.audioCache.Shift(from, to)

	for _, l := range o.shiftListeners {
		l.ShiftAudio(from, to)
	}
}

// ShiftCache ripples both caches: validity at or after from moves by
// (to - from).
func (o *Output) ShiftCache(from, to rational.Rational) {
	o.ShiftVideoCache(from, to)
	o.ShiftAudioCache(from, to)
}
