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

package timecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TurbineOne/viewer-output/pkg/rational"
)

func TestTimestampToTimecode(t *testing.T) {
	t.Parallel()

	ntsc := rational.New(1001, 30000)

	tests := []struct {
		name    string
		ts      int64
		tb      rational.Rational
		display Display
		want    string
	}{
		{"ndf", 300, rational.New(1, 30), NonDropFrame, "00:00:10:00"},
		{"ndf hours", 30*3600 + 31, rational.New(1, 30), NonDropFrame, "01:00:01:01"},
		{"ndf negative", -30, rational.New(1, 30), NonDropFrame, "-00:00:01:00"},
		{"df first minute", 1800, ntsc, DropFrame, "00:01:00;02"},
		{"df tenth minute", 17982, ntsc, DropFrame, "00:10:00;00"},
		{"df at integer rate", 300, rational.New(1, 30), DropFrame, "00:00:10:00"},
		{"frames", 1234, ntsc, Frames, "1234"},
		{"seconds", 480000, rational.New(1, 48000), Seconds, "10.000s"},
		{"milliseconds", 1, rational.New(1, 3), Milliseconds, "333ms"},
		{"null time base", 10, rational.Zero, Seconds, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, TimestampToTimecode(tt.ts, tt.tb, tt.display))
		})
	}
}

func TestDisplayText(t *testing.T) {
	t.Parallel()

	var d Display

	require.NoError(t, d.UnmarshalText([]byte("Frames")))
	assert.Equal(t, Frames, d)
	assert.False(t, d.IsFrameBased())
	assert.True(t, DropFrame.IsFrameBased())
	assert.Error(t, d.UnmarshalText([]byte("beats")))

	b, err := Milliseconds.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "milliseconds", string(b))
	assert.Equal(t, "unknown", Display(99).String())
}
