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

// Package params holds the immutable stream descriptors for video and audio
// tracks, and the rendering parameters derived from them.
package params

import (
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"github.com/TurbineOne/viewer-output/pkg/rational"
)

// InternalChannelCount is the number of channels used for rendered frames (RGBA).
const InternalChannelCount = 4

// PixelFormat is the per-channel storage type of rendered pixels.
type PixelFormat int

const (
	FormatInvalid PixelFormat = iota
	FormatU8
	FormatU16
	FormatF16
	FormatF32
)

var pixelFormatNames = map[PixelFormat]string{ //nolint:gochecknoglobals // Static lookup.
	FormatInvalid: "invalid",
	FormatU8:      "u8",
	FormatU16:     "u16",
	FormatF16:     "f16",
	FormatF32:     "f32",
}

// String returns the short name of the format.
func (f PixelFormat) String() string {
	if s, ok := pixelFormatNames[f]; ok {
		return s
	}

	return pixelFormatNames[FormatInvalid]
}

// IsValid reports whether f names a real format.
func (f PixelFormat) IsValid() bool {
	return f > FormatInvalid && f <= FormatF32
}

// BytesPerChannel returns the size of one channel of one pixel.
func (f PixelFormat) BytesPerChannel() int {
	switch f {
	case FormatU8:
		return 1
	case FormatU16, FormatF16:
		return 2 //nolint:mnd // Self explanatory.
	case FormatF32:
		return 4 //nolint:mnd // Self explanatory.
	case FormatInvalid:
	}

	return 0
}

// MarshalText implements encoding.TextMarshaler.
func (f PixelFormat) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *PixelFormat) UnmarshalText(text []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(text)))
	for k, v := range pixelFormatNames {
		if v == s && k != FormatInvalid {
			*f = k

			return nil
		}
	}

	return fmt.Errorf("unknown pixel format %q", s)
}

// Interlacing describes field order.
type Interlacing int

const (
	InterlaceNone Interlacing = iota
	InterlacedTopFirst
	InterlacedBottomFirst
)

var interlacingNames = map[Interlacing]string{ //nolint:gochecknoglobals // Static lookup.
	InterlaceNone:         "none",
	InterlacedTopFirst:    "top",
	InterlacedBottomFirst: "bottom",
}

// String returns "none", "top" or "bottom".
func (i Interlacing) String() string {
	return interlacingNames[i]
}

// MarshalText implements encoding.TextMarshaler.
func (i Interlacing) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *Interlacing) UnmarshalText(text []byte) error {
	s := strings.ToLower(strings.TrimSpace(string(text)))
	for k, v := range interlacingNames {
		if v == s {
			*i = k

			return nil
		}
	}

	return fmt.Errorf("unknown interlacing %q", s)
}

// VideoType classifies a video stream.
type VideoType int

const (
	VideoTypeVideo VideoType = iota
	VideoTypeStill
	VideoTypeImageSequence
)

// String returns a readable name.
func (t VideoType) String() string {
	switch t {
	case VideoTypeStill:
		return "still"
	case VideoTypeImageSequence:
		return "sequence"
	case VideoTypeVideo:
	}

	return "video"
}

// VideoParams describes one video stream. Values are immutable; setters on
// the owning node replace the whole descriptor.
type VideoParams struct {
	Width       int
	Height      int
	TimeBase    rational.Rational // unit of StartTime and Duration
	FrameRate   rational.Rational
	Format      PixelFormat
	Channels    int
	PixelAspect rational.Rational
	Interlacing Interlacing
	Divider     int // proxy downscale factor, >= 1
	Enabled     bool
	Type        VideoType
	StreamIndex int
	StartTime   int64
	Duration    int64
}

// NewVideoParams returns enabled motion-video parameters. The frame rate is
// derived from the time base.
func NewVideoParams(width, height int, timeBase rational.Rational, format PixelFormat,
	channels int, pixelAspect rational.Rational, interlacing Interlacing, divider int,
) VideoParams {
	return VideoParams{
		Width:       width,
		Height:      height,
		TimeBase:    timeBase,
		FrameRate:   timeBase.Flipped(),
		Format:      format,
		Channels:    channels,
		PixelAspect: pixelAspect,
		Interlacing: interlacing,
		Divider:     divider,
		Enabled:     true,
		Type:        VideoTypeVideo,
	}
}

// IsValid reports whether p describes a usable stream.
func (p VideoParams) IsValid() bool {
	return p.Width > 0 && p.Height > 0 &&
		!p.PixelAspect.IsNull() &&
		p.Format.IsValid() &&
		p.Channels > 0
}

// FrameRateAsTimeBase returns 1/FrameRate.
func (p VideoParams) FrameRateAsTimeBase() rational.Rational {
	return p.FrameRate.Flipped()
}

// EffectiveWidth returns the width after applying the divider.
func (p VideoParams) EffectiveWidth() int {
	return divide(p.Width, p.Divider)
}

// EffectiveHeight returns the height after applying the divider.
func (p VideoParams) EffectiveHeight() int {
	return divide(p.Height, p.Divider)
}

// SquarePixelWidth returns the display width once pixel aspect is applied.
func (p VideoParams) SquarePixelWidth() int {
	if p.PixelAspect.IsNull() {
		return p.Width
	}

	return int(math.Round(float64(p.Width) * p.PixelAspect.Float64()))
}

// DurationTime returns Duration in timeline time.
func (p VideoParams) DurationTime() rational.Rational {
	return rational.TimestampToTime(p.Duration, p.TimeBase)
}

func divide(v, divider int) int {
	if divider <= 1 {
		return v
	}

	// Keep dimensions even; most pixel pipelines want that.
	d := v / divider

	return d + d%2
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (p VideoParams) MarshalZerologObject(e *zerolog.Event) {
	e.Int(lWidth, p.Width).
		Int(lHeight, p.Height).
		Stringer(lFrameRate, p.FrameRate).
		Stringer(lFormat, p.Format).
		Stringer(lPixelAspect, p.PixelAspect).
		Stringer(lInterlacing, p.Interlacing).
		Bool(lEnabled, p.Enabled).
		Stringer(lVideoType, p.Type)
}

// GenerateAutoDivider picks a proxy divider that brings the frame close to
// one megapixel.
func GenerateAutoDivider(width, height int) int {
	const targetPixels = 1 << 20

	pixels := float64(width) * float64(height)
	divider := math.Sqrt(pixels / targetPixels)

	if divider <= 1 {
		return 1
	}

	return int(math.Ceil(divider))
}

const (
	lChannels    = "channels"
	lEnabled     = "enabled"
	lFormat      = "format"
	lFrameRate   = "frameRate"
	lHeight      = "height"
	lInterlacing = "interlacing"
	lLayout      = "layout"
	lPixelAspect = "pixelAspect"
	lSampleRate  = "sampleRate"
	lVideoType   = "videoType"
	lWidth       = "width"
)
