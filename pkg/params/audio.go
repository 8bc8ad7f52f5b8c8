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

package params

import (
	"fmt"
	"strings"

	"github.com/nareix/joy4/av"
	"github.com/rs/zerolog"

	"github.com/TurbineOne/viewer-output/pkg/rational"
)

// InternalSampleFormat is the sample format audio is processed in.
const InternalSampleFormat = av.FLTP

var channelLayoutNames = map[string]av.ChannelLayout{ //nolint:gochecknoglobals // Static lookup.
	"mono":     av.CH_MONO,
	"stereo":   av.CH_STEREO,
	"2.1":      av.CH_2POINT1,
	"3.0":      av.CH_SURROUND,
	"3.0-back": av.CH_2_1,
	"3.1":      av.CH_3POINT1,
}

// ParseChannelLayout maps a layout name such as "stereo" to its joy4 layout.
func ParseChannelLayout(name string) (av.ChannelLayout, error) {
	l, ok := channelLayoutNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return 0, fmt.Errorf("unknown channel layout %q", name)
	}

	return l, nil
}

// ChannelLayoutName is the inverse of ParseChannelLayout. Layouts without a
// name fall back to joy4's channel-count form.
func ChannelLayoutName(l av.ChannelLayout) string {
	for k, v := range channelLayoutNames {
		if v == l {
			return k
		}
	}

	return l.String()
}

// Layout is an av.ChannelLayout that reads and writes as its name in config
// files, e.g. "stereo".
type Layout av.ChannelLayout

// ChannelLayout returns the joy4 layout.
func (l Layout) ChannelLayout() av.ChannelLayout {
	return av.ChannelLayout(l)
}

// MarshalText implements encoding.TextMarshaler.
func (l Layout) MarshalText() ([]byte, error) {
	return []byte(ChannelLayoutName(av.ChannelLayout(l))), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Layout) UnmarshalText(text []byte) error {
	v, err := ParseChannelLayout(string(text))
	if err != nil {
		return err
	}

	*l = Layout(v)

	return nil
}

// AudioParams describes one audio stream.
type AudioParams struct {
	SampleRate  int
	Layout      av.ChannelLayout
	Format      av.SampleFormat
	TimeBase    rational.Rational // unit of StartTime and Duration, usually 1/SampleRate
	Enabled     bool
	StreamIndex int
	StartTime   int64
	Duration    int64
}

// NewAudioParams returns enabled parameters with a 1/rate time base.
func NewAudioParams(sampleRate int, layout av.ChannelLayout, format av.SampleFormat) AudioParams {
	return AudioParams{
		SampleRate: sampleRate,
		Layout:     layout,
		Format:     format,
		TimeBase:   rational.New(1, int64(sampleRate)),
		Enabled:    true,
	}
}

// IsValid reports whether p describes a usable stream.
func (p AudioParams) IsValid() bool {
	return p.SampleRate > 0 && p.Layout.Count() > 0 && p.Format != 0
}

// Channels returns the channel count of the layout.
func (p AudioParams) Channels() int {
	return p.Layout.Count()
}

// SameFormat reports whether p and o store samples identically, ignoring
// stream bookkeeping such as duration and enabled state.
func (p AudioParams) SameFormat(o AudioParams) bool {
	return p.SampleRate == o.SampleRate && p.Layout == o.Layout && p.Format == o.Format
}

// BytesPerSecond returns the size of one second of interleaved samples.
func (p AudioParams) BytesPerSecond() int64 {
	return int64(p.SampleRate) * int64(p.Channels()) * int64(p.Format.BytesPerSample())
}

// TimeToSamples converts time to a sample count, rounding down.
func (p AudioParams) TimeToSamples(t rational.Rational) int64 {
	return rational.TimeToTimestamp(t, rational.New(1, int64(p.SampleRate)))
}

// SamplesToTime converts a sample count to time.
func (p AudioParams) SamplesToTime(samples int64) rational.Rational {
	return rational.New(samples, int64(p.SampleRate))
}

// DurationTime returns Duration in timeline time.
func (p AudioParams) DurationTime() rational.Rational {
	return rational.TimestampToTime(p.Duration, p.TimeBase)
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (p AudioParams) MarshalZerologObject(e *zerolog.Event) {
	e.Int(lSampleRate, p.SampleRate).
		Str(lLayout, ChannelLayoutName(p.Layout)).
		Int(lChannels, p.Channels()).
		Stringer(lFormat, p.Format).
		Bool(lEnabled, p.Enabled)
}
