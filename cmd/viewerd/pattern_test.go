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
	"math"
	"testing"

	"github.com/nareix/joy4/av"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TurbineOne/viewer-output/pkg/node"
	"github.com/TurbineOne/viewer-output/pkg/params"
	"github.com/TurbineOne/viewer-output/pkg/rational"
	"github.com/TurbineOne/viewer-output/pkg/timerange"
)

func videoParams() params.VideoRenderingParams {
	return params.VideoRenderingParams{
		Width:    16,
		Height:   2,
		TimeBase: rational.New(1, 10),
		Format:   params.FormatU8,
	}
}

func frameAt(n int64) rational.Rational {
	return rational.New(n, 10)
}

func TestPatternPublishesLength(t *testing.T) {
	t.Parallel()

	p := newPattern(rational.FromInt(3), false, nil)

	assert.Equal(t, rational.FromInt(3), p.Value(patternOutput, node.All()).Rational(node.LengthTag))
}

func TestPatternHashesRepeat(t *testing.T) {
	t.Parallel()

	p := newPattern(rational.FromInt(3), false, nil)
	vp := videoParams()

	h0, err := p.FrameHash(frameAt(0), vp)
	require.NoError(t, err)

	h1, err := p.FrameHash(frameAt(1), vp)
	require.NoError(t, err)

	h8, err := p.FrameHash(frameAt(barCount), vp)
	require.NoError(t, err)

	assert.NotEqual(t, h0, h1)
	assert.Equal(t, h0, h8)

	f0, err := p.RenderFrame(context.Background(), frameAt(0), vp)
	require.NoError(t, err)

	f8, err := p.RenderFrame(context.Background(), frameAt(barCount), vp)
	require.NoError(t, err)

	assert.Equal(t, f0.Data, f8.Data)
	assert.Equal(t, barLevels[0], f0.Data[0])
	assert.Equal(t, f0.Data[:f0.Linesize], f0.Data[f0.Linesize:])
}

func TestStillPatternHasOneFrame(t *testing.T) {
	t.Parallel()

	p := newPattern(rational.FromInt(3), true, nil)
	vp := videoParams()

	h0, err := p.FrameHash(frameAt(0), vp)
	require.NoError(t, err)

	h5, err := p.FrameHash(frameAt(5), vp)
	require.NoError(t, err)

	assert.Equal(t, h0, h5)
}

func TestPatternRejectsInvalidParams(t *testing.T) {
	t.Parallel()

	p := newPattern(rational.FromInt(1), false, nil)

	_, err := p.FrameHash(frameAt(0), params.VideoRenderingParams{})
	require.Error(t, err)

	_, err = p.RenderFrame(context.Background(), frameAt(0), params.VideoRenderingParams{})
	require.Error(t, err)

	_, err = p.RenderAudio(context.Background(), timerange.New(rational.Zero, rational.FromInt(1)),
		params.AudioRenderingParams{})
	require.Error(t, err)
}

func TestPatternTone(t *testing.T) {
	t.Parallel()

	p := newPattern(rational.FromInt(1), false, nil)
	ap := params.AudioRenderingParams{SampleRate: 8000, Layout: av.CH_STEREO, Format: av.FLTP}

	buf, err := p.RenderAudio(context.Background(), timerange.New(rational.New(1, 2), rational.FromInt(1)), ap)
	require.NoError(t, err)

	require.Equal(t, 2, buf.Channels())
	require.Equal(t, 4000, buf.Samples())
	assert.Equal(t, buf.Data[0], buf.Data[1])

	// Sample 4000 of a 440 Hz tone at 8 kHz.
	want := float32(toneLevel * math.Sin(2*math.Pi*toneHz*4000/8000))
	assert.InDelta(t, want, buf.Data[0][0], 1e-6)
}

func TestPatternHonorsCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newPattern(rational.FromInt(1), false, nil)

	_, err := p.RenderFrame(ctx, frameAt(0), videoParams())
	require.ErrorIs(t, err, context.Canceled)
}
