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

package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/TurbineOne/viewer-output/pkg/media"
	"github.com/TurbineOne/viewer-output/pkg/node"
	"github.com/TurbineOne/viewer-output/pkg/params"
	"github.com/TurbineOne/viewer-output/pkg/rational"
	"github.com/TurbineOne/viewer-output/pkg/timerange"
)

const (
	patternOutput = "out"
	barCount      = 8
	toneHz        = 440
	toneLevel     = 0.25
)

// barLevels are the per-byte fill values of the bars, brightest first.
var barLevels = [barCount]byte{235, 210, 180, 150, 120, 90, 60, 16} //nolint:gochecknoglobals // Static table.

// pattern is a synthetic source: moving color bars and a sine tone. The bars
// advance one step per frame and repeat every barCount frames, or stand still
// when the source is a still image.
type pattern struct {
	*node.Node

	length rational.Rational
	still  bool
}

func newPattern(length rational.Rational, still bool, logger *zerolog.Logger) *pattern {
	p := &pattern{
		Node:   node.New("pattern", logger),
		length: length,
		still:  still,
	}
	p.SetHandler(p)
	p.AddOutput(patternOutput)

	return p
}

// Value publishes the pattern's length.
func (p *pattern) Value(string, timerange.TimeRange) node.Table {
	var t node.Table
	t.Push(node.TypeRational, node.LengthTag, p.length)

	return t
}

func (p *pattern) phase(t rational.Rational, vp params.VideoRenderingParams) int {
	if p.still {
		return 0
	}

	i := rational.TimeToTimestamp(t, vp.TimeBase) % barCount
	if i < 0 {
		i += barCount
	}

	return int(i)
}

// FrameHash names a frame by its phase and geometry. Frames sharing a phase
// are identical.
func (p *pattern) FrameHash(t rational.Rational, vp params.VideoRenderingParams) (string, error) {
	if !vp.IsValid() {
		return "", fmt.Errorf("invalid rendering params %dx%d", vp.Width, vp.Height)
	}

	sum := sha256.Sum256(fmt.Appendf(nil, "bars/%dx%d/%s/%d", vp.Width, vp.Height, vp.Format, p.phase(t, vp)))

	return hex.EncodeToString(sum[:]), nil
}

func (p *pattern) RenderFrame(ctx context.Context, t rational.Rational,
	vp params.VideoRenderingParams,
) (*media.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !vp.IsValid() {
		return nil, fmt.Errorf("invalid rendering params %dx%d", vp.Width, vp.Height)
	}

	f := media.NewFrame(t, vp.Width, vp.Height, vp.Format)
	pixel := params.InternalChannelCount * vp.Format.BytesPerChannel()
	phase := p.phase(t, vp)

	row := f.Data[:f.Linesize]
	for x := range vp.Width {
		level := barLevels[(x*barCount/vp.Width+phase)%barCount]
		for b := range pixel {
			row[x*pixel+b] = level
		}
	}

	for y := 1; y < vp.Height; y++ {
		copy(f.Data[y*f.Linesize:], row)
	}

	return f, nil
}

func (p *pattern) RenderAudio(ctx context.Context, r timerange.TimeRange,
	ap params.AudioRenderingParams,
) (*media.SampleBuffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !ap.IsValid() {
		return nil, fmt.Errorf("invalid audio rendering params at %d Hz", ap.SampleRate)
	}

	tb := rational.New(1, int64(ap.SampleRate))
	first := rational.TimeToTimestamp(r.In(), tb)
	count := rational.TimeToTimestamp(r.Out(), tb) - first

	buf := media.NewSampleBuffer(ap.SampleRate, ap.Channels(), int(count))
	for i := range buf.Data[0] {
		s := float32(toneLevel * math.Sin(2*math.Pi*toneHz*float64(first+int64(i))/float64(ap.SampleRate)))
		for c := range buf.Data {
			buf.Data[c][i] = s
		}
	}

	return buf, nil
}
