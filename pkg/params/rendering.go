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
	"github.com/nareix/joy4/av"

	"github.com/TurbineOne/viewer-output/pkg/rational"
)

// RenderMode says whether a render is for interactive viewing or final output.
type RenderMode int

const (
	RenderModeOffline RenderMode = iota
	RenderModeOnline
)

// VideoRenderingParams is what a render task produces frames at. It may
// differ from the node's native VideoParams, e.g. for proxies.
type VideoRenderingParams struct {
	Width    int
	Height   int
	TimeBase rational.Rational
	Format   PixelFormat
	Mode     RenderMode
}

// NewVideoRenderingParams derives rendering parameters from native ones,
// applying the proxy divider and overriding the pixel format.
func NewVideoRenderingParams(p VideoParams, format PixelFormat, mode RenderMode) VideoRenderingParams {
	return VideoRenderingParams{
		Width:    p.EffectiveWidth(),
		Height:   p.EffectiveHeight(),
		TimeBase: p.FrameRateAsTimeBase(),
		Format:   format,
		Mode:     mode,
	}
}

// IsValid reports whether frames can be produced at these parameters.
func (p VideoRenderingParams) IsValid() bool {
	return p.Width > 0 && p.Height > 0 && !p.TimeBase.IsNull() && p.Format.IsValid()
}

// FrameSize returns the size in bytes of one RGBA frame.
func (p VideoRenderingParams) FrameSize() int {
	return p.Width * p.Height * InternalChannelCount * p.Format.BytesPerChannel()
}

// AudioRenderingParams is what a render task produces samples at.
type AudioRenderingParams struct {
	SampleRate int
	Layout     av.ChannelLayout
	Format     av.SampleFormat
}

// NewAudioRenderingParams derives rendering parameters from native ones.
func NewAudioRenderingParams(p AudioParams, format av.SampleFormat) AudioRenderingParams {
	return AudioRenderingParams{
		SampleRate: p.SampleRate,
		Layout:     p.Layout,
		Format:     format,
	}
}

// IsValid reports whether samples can be produced at these parameters.
func (p AudioRenderingParams) IsValid() bool {
	return p.SampleRate > 0 && p.Layout.Count() > 0 && p.Format != 0
}

// Channels returns the channel count.
func (p AudioRenderingParams) Channels() int {
	return p.Layout.Count()
}
