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
	"fmt"
	"strconv"

	"github.com/TurbineOne/viewer-output/pkg/params"
	"github.com/TurbineOne/viewer-output/pkg/rational"
	"github.com/TurbineOne/viewer-output/pkg/timecode"
)

// Duration formats the node's duration for display. Motion video wins over
// audio. Audio durations are shown in seconds when display is frame based.
// Without a usable stream the result is empty.
func (o *Output) Duration(display timecode.Display) string {
	video := o.FirstEnabledVideoStream()

	if video.IsValid() && video.Type != params.VideoTypeStill {
		tb := video.FrameRateAsTimeBase()
		frames := rational.RescaleTimestampCeil(video.Duration, video.TimeBase, tb)

		return timecode.TimestampToTimecode(frames, tb, display)
	}

	audio := o.FirstEnabledAudioStream()

	if audio.IsValid() {
		if display.IsFrameBased() {
			display = timecode.Seconds
		}

		return timecode.TimestampToTimecode(audio.Duration, audio.TimeBase, display)
	}

	return ""
}

// Rate formats the frame rate ("29.97 FPS") or, for audio-only nodes, the
// sample rate ("48000 Hz").
func (o *Output) Rate() string {
	if o.HasEnabledVideoStreams() {
		video := o.FirstEnabledVideoStream()
		if video.Type == params.VideoTypeStill {
			return ""
		}

		return strconv.FormatFloat(video.FrameRate.Float64(), 'g', 6, 64) + " FPS" //nolint:mnd // Six significant digits.
	}

	if o.HasEnabledAudioStreams() {
		return fmt.Sprintf("%d Hz", o.FirstEnabledAudioStream().SampleRate)
	}

	return ""
}
