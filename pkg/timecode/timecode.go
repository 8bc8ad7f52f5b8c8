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

// Package timecode formats timestamps for display.
package timecode

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/TurbineOne/viewer-output/pkg/rational"
)

// Display selects how a timestamp is shown.
type Display int

const (
	DropFrame Display = iota
	NonDropFrame
	Seconds
	Frames
	Milliseconds
)

var displayNames = map[Display]string{ //nolint:gochecknoglobals // Static lookup.
	DropFrame:    "drop-frame",
	NonDropFrame: "non-drop-frame",
	Seconds:      "seconds",
	Frames:       "frames",
	Milliseconds: "milliseconds",
}

// String returns the config name of the display.
func (d Display) String() string {
	if s, ok := displayNames[d]; ok {
		return s
	}

	return "unknown"
}

// IsFrameBased reports whether the display needs a video frame rate to mean anything.
func (d Display) IsFrameBased() bool {
	return d == DropFrame || d == NonDropFrame
}

// MarshalText implements encoding.TextMarshaler.
func (d Display) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Display) UnmarshalText(text []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(text)))
	for k, v := range displayNames {
		if v == s {
			*d = k

			return nil
		}
	}

	return fmt.Errorf("unknown timecode display %q", s)
}

// TimestampToTimecode formats ts, expressed in units of timebase.
// For the frame-based displays, timebase is expected to be a frame duration.
func TimestampToTimecode(ts int64, timebase rational.Rational, display Display) string {
	if timebase.IsNull() {
		return ""
	}

	switch display {
	case Frames:
		return strconv.FormatInt(ts, 10)

	case Seconds:
		return strconv.FormatFloat(rational.TimestampToTime(ts, timebase).Float64(), 'f', 3, 64) + "s"

	case Milliseconds:
		t := rational.TimestampToTime(ts, timebase).Mul(rational.FromInt(1000))

		return strconv.FormatInt(int64(math.Round(t.Float64())), 10) + "ms"

	case DropFrame, NonDropFrame:
		return frameTimecode(ts, timebase, display == DropFrame)
	}

	return ""
}

func frameTimecode(ts int64, timebase rational.Rational, dropFrame bool) string {
	sign := ""
	if ts < 0 {
		sign = "-"
		ts = -ts
	}

	fps := int64(math.Round(timebase.Flipped().Float64()))
	if fps <= 0 {
		return ""
	}

	sep := ":"

	// Drop-frame only means something for NTSC rates.
	if dropFrame && timebase.Den()%1000 == 0 && timebase.Num() == 1001 {
		ts = dropFrameAdjust(ts, fps)
		sep = ";"
	}

	frames := ts % fps
	totalSeconds := ts / fps
	secs := totalSeconds % 60
	mins := (totalSeconds / 60) % 60
	hours := totalSeconds / 3600

	return fmt.Sprintf("%s%02d:%02d:%02d%s%02d", sign, hours, mins, secs, sep, frames)
}

// dropFrameAdjust converts a real frame count to the drop-frame label count,
// skipping the first two (four at 59.94) labels of every minute except each
// tenth minute.
func dropFrameAdjust(frames, fps int64) int64 {
	drop := fps / 15 //nolint:mnd // 2 at 29.97, 4 at 59.94.
	framesPer10Min := fps*600 - drop*9
	framesPerMin := fps*60 - drop

	d := frames / framesPer10Min
	m := frames % framesPer10Min

	if m > drop {
		return frames + drop*9*d + drop*((m-drop)/framesPerMin)
	}

	return frames + drop*9*d
}
