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
	"github.com/TurbineOne/viewer-output/pkg/params"
	"github.com/TurbineOne/viewer-output/pkg/timerange"
	"github.com/TurbineOne/viewer-output/pkg/track"
)

// InvalidIndex is returned by AddStream for types that have no stream array.
const InvalidIndex = -1

func streamInput(t track.Type) (string, bool) {
	switch t {
	case track.Video:
		return VideoParamsInput, true
	case track.Audio:
		return AudioParamsInput, true
	case track.None, track.Subtitle:
	}

	return "", false
}

// AddStream appends a stream of type t holding value (a params.VideoParams or
// params.AudioParams, or nil) and returns its index. Types without a stream
// array return InvalidIndex.
func (o *Output) AddStream(t track.Type, value any) int {
	id, ok := streamInput(t)
	if !ok {
		return InvalidIndex
	}

	index := o.InputArraySize(id)

	if err := o.InputArrayAppend(id); err != nil {
		o.log.Error().Err(err).Str(lInput, id).Msg("appending stream")

		return InvalidIndex
	}

	if err := o.SetStandardValue(id, value, index); err != nil {
		o.log.Error().Err(err).Str(lInput, id).Int(lElement, index).Msg("setting stream value")

		return InvalidIndex
	}

	return index
}

// SetVideoParams replaces video stream index.
func (o *Output) SetVideoParams(p params.VideoParams, index int) error {
	return o.SetStandardValue(VideoParamsInput, p, index)
}

// SetAudioParams replaces audio stream index.
func (o *Output) SetAudioParams(p params.AudioParams, index int) error {
	return o.SetStandardValue(AudioParamsInput, p, index)
}

// VideoParams returns video stream index, or zero parameters if there is
// none.
func (o *Output) VideoParams(index int) params.VideoParams {
	p, _ := o.StandardValue(VideoParamsInput, index).(params.VideoParams)

	return p
}

// AudioParams returns audio stream index, or zero parameters if there is
// none.
func (o *Output) AudioParams(index int) params.AudioParams {
	p, _ := o.StandardValue(AudioParamsInput, index).(params.AudioParams)

	return p
}

// VideoStreamCount returns the number of video streams, enabled or not.
func (o *Output) VideoStreamCount() int {
	return o.InputArraySize(VideoParamsInput)
}

// AudioStreamCount returns the number of audio streams, enabled or not.
func (o *Output) AudioStreamCount() int {
	return o.InputArraySize(AudioParamsInput)
}

// EnabledVideoStreams returns the enabled video streams in index order.
func (o *Output) EnabledVideoStreams() []params.VideoParams {
	var out []params.VideoParams

	for i := 0; i < o.VideoStreamCount(); i++ {
		if p := o.VideoParams(i); p.Enabled {
			out = append(out, p)
		}
	}

	return out
}

// EnabledAudioStreams returns the enabled audio streams in index order.
func (o *Output) EnabledAudioStreams() []params.AudioParams {
	var out []params.AudioParams

	for i := 0; i < o.AudioStreamCount(); i++ {
		if p := o.AudioParams(i); p.Enabled {
			out = append(out, p)
		}
	}

	return out
}

// FirstEnabledVideoStream returns the lowest-index enabled video stream, or
// zero (invalid) parameters if none is enabled.
func (o *Output) FirstEnabledVideoStream() params.VideoParams {
	for i := 0; i < o.VideoStreamCount(); i++ {
		if p := o.VideoParams(i); p.Enabled {
			return p
		}
	}

	return params.VideoParams{}
}

// FirstEnabledAudioStream returns the lowest-index enabled audio stream, or
// zero (invalid) parameters if none is enabled.
func (o *Output) FirstEnabledAudioStream() params.AudioParams {
	for i := 0; i < o.AudioStreamCount(); i++ {
		if p := o.AudioParams(i); p.Enabled {
			return p
		}
	}

	return params.AudioParams{}
}

// HasEnabledVideoStreams reports whether the first enabled video stream is
// usable.
func (o *Output) HasEnabledVideoStreams() bool {
	return o.FirstEnabledVideoStream().IsValid()
}

// HasEnabledAudioStreams reports whether the first enabled audio stream is
// usable.
func (o *Output) HasEnabledAudioStreams() bool {
	return o.FirstEnabledAudioStream().IsValid()
}

// EnabledStreamsAsReferences returns references to every enabled stream,
// video first.
func (o *Output) EnabledStreamsAsReferences() []track.Reference {
	var refs []track.Reference

	for i := 0; i < o.VideoStreamCount(); i++ {
		if o.VideoParams(i).Enabled {
			refs = append(refs, track.Reference{Type: track.Video, Index: i})
		}
	}

	for i := 0; i < o.AudioStreamCount(); i++ {
		if o.AudioParams(i).Enabled {
			refs = append(refs, track.Reference{Type: track.Audio, Index: i})
		}
	}

	return refs
}

// InputArraySizeChanged keeps one output port per stream, named by the
// stream's reference.
func (o *Output) InputArraySizeChanged(input string, oldSize, newSize int) {
	var t track.Type

	switch input {
	case VideoParamsInput:
		t = track.Video
	case AudioParamsInput:
		t = track.Audio
	default:
		o.Node.InputArraySizeChanged(input, oldSize, newSize)

		return
	}

	o.log.Debug().Str(lInput, input).Int(lOldSize, oldSize).Int(lNewSize, newSize).Msg("stream ports resized")

	for i := oldSize; i < newSize; i++ {
		o.AddOutput(track.Reference{Type: t, Index: i}.String())
	}

	for i := newSize; i < oldSize; i++ {
		o.RemoveOutput(track.Reference{Type: t, Index: i}.String())
	}

	o.Node.InputArraySizeChanged(input, oldSize, newSize)
}

// Value publishes a stream's parameters and the node's length on the
// stream's output port.
func (o *Output) Value(output string, _ timerange.TimeRange) node.Table {
	var t node.Table

	ref, err := track.ParseReference(output)
	if err != nil {
		return t
	}

	switch ref.Type {
	case track.Video:
		t.Push(node.TypeVideoParams, output, o.VideoParams(ref.Index))
	case track.Audio:
		t.Push(node.TypeAudioParams, output, o.AudioParams(ref.Index))
	case track.None, track.Subtitle:
	}

	t.Push(node.TypeRational, node.LengthTag, o.lastLength)

	return t
}
