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

// Package media defines the rendered frame and sample types passed between
// render tasks, renderers and caches.
package media

import (
	"github.com/TurbineOne/viewer-output/pkg/params"
	"github.com/TurbineOne/viewer-output/pkg/rational"
)

// Frame is one rendered RGBA picture.
type Frame struct {
	Time     rational.Rational
	Width    int
	Height   int
	Format   params.PixelFormat
	Linesize int // bytes per row, >= Width*4*bytes-per-channel
	Data     []byte
}

// NewFrame allocates a frame with tightly packed rows.
func NewFrame(t rational.Rational, width, height int, format params.PixelFormat) *Frame {
	linesize := width * params.InternalChannelCount * format.BytesPerChannel()

	return &Frame{
		Time:     t,
		Width:    width,
		Height:   height,
		Format:   format,
		Linesize: linesize,
		Data:     make([]byte, linesize*height),
	}
}

// SampleBuffer holds planar float samples, one slice per channel.
type SampleBuffer struct {
	SampleRate int
	Data       [][]float32
}

// NewSampleBuffer allocates silence.
func NewSampleBuffer(sampleRate, channels, samples int) *SampleBuffer {
	data := make([][]float32, channels)
	for i := range data {
		data[i] = make([]float32, samples)
	}

	return &SampleBuffer{SampleRate: sampleRate, Data: data}
}

// Channels returns the channel count.
func (b *SampleBuffer) Channels() int {
	return len(b.Data)
}

// Samples returns the per-channel sample count.
func (b *SampleBuffer) Samples() int {
	if len(b.Data) == 0 {
		return 0
	}

	return len(b.Data[0])
}

// Duration returns the length of the buffer in time.
func (b *SampleBuffer) Duration() rational.Rational {
	if b.SampleRate == 0 {
		return rational.Zero
	}

	return rational.New(int64(b.Samples()), int64(b.SampleRate))
}
