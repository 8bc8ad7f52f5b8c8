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

package cache

import (
	"sync"
	"testing"

	"github.com/nareix/joy4/av"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TurbineOne/viewer-output/pkg/params"
	"github.com/TurbineOne/viewer-output/pkg/rational"
	"github.com/TurbineOne/viewer-output/pkg/timerange"
)

func sec(n int64) rational.Rational { return rational.FromInt(n) }

func rng(a, b int64) timerange.TimeRange { return timerange.New(sec(a), sec(b)) }

func TestValidateClampsToLength(t *testing.T) {
	t.Parallel()

	c := NewPlaybackCache(nil)
	c.SetLength(sec(50))

	ok := c.Validate(rng(40, 60), NewJobTime())
	assert.Equal(t, "{[40, 50)}", ok.String())
	assert.True(t, c.IsValid(rng(40, 50)))
	assert.False(t, c.IsValid(rng(40, 51)))
}

func TestSetLengthTruncates(t *testing.T) {
	t.Parallel()

	c := NewPlaybackCache(nil)
	c.SetLength(sec(100))
	c.Validate(rng(0, 100), NewJobTime())

	c.SetLength(sec(30))
	assert.Equal(t, "{[0, 30)}", c.Validated().String())

	c.SetLength(sec(100))
	assert.Equal(t, "{[0, 30)}", c.Validated().String())
	assert.Equal(t, "{[30, 100)}", c.Missing(rng(0, 200)).String())
}

func TestLateValidationRejected(t *testing.T) {
	t.Parallel()

	c := NewPlaybackCache(nil)
	c.SetLength(sec(100))

	started := NewJobTime()
	c.Invalidate(rng(0, 10), NewJobTime())

	ok := c.Validate(rng(0, 20), started)
	assert.Equal(t, "{[10, 20)}", ok.String())
	assert.Equal(t, "{[10, 20)}", c.Validated().String())

	// A job started after the invalidation is accepted everywhere.
	ok = c.Validate(rng(0, 20), NewJobTime())
	assert.Equal(t, "{[0, 20)}", ok.String())
}

func TestInvalidate(t *testing.T) {
	t.Parallel()

	c := NewPlaybackCache(nil)
	c.SetLength(sec(100))
	c.Validate(rng(0, 100), NewJobTime())

	j := NewJobTime()
	c.Invalidate(rng(20, 30), j)

	assert.Equal(t, "{[0, 20) [30, 100)}", c.Validated().String())
	assert.Equal(t, j, c.LastInvalidation(rng(25, 26)))
	assert.Zero(t, c.LastInvalidation(rng(50, 60)))
}

func TestShift(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		from, to int64
		want     string
	}{
		{"insert", 30, 35, "{[10, 20) [45, 55)}"},
		{"remove", 30, 25, "{[10, 20) [35, 45)}"},
		{"straddle insert", 15, 18, "{[10, 15) [18, 23) [43, 53)}"},
		{"straddle remove", 15, 12, "{[10, 17) [37, 47)}"},
		{"before zero", 10, 0, "{[0, 10) [30, 40)}"},
		{"no-op", 40, 40, "{[10, 20) [40, 50)}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := NewPlaybackCache(nil)
			c.SetLength(sec(100))
			c.Validate(rng(10, 20), NewJobTime())
			c.Validate(rng(40, 50), NewJobTime())

			c.Shift(sec(tt.from), sec(tt.to))
			assert.Equal(t, tt.want, c.Validated().String())
		})
	}
}

func TestShiftClipsToLength(t *testing.T) {
	t.Parallel()

	c := NewPlaybackCache(nil)
	c.SetLength(sec(10))
	c.Validate(rng(0, 10), NewJobTime())

	c.Shift(sec(5), sec(8))
	assert.Equal(t, "{[0, 5) [8, 10)}", c.Validated().String())

	// Growing the length later must not resurrect the clipped tail.
	c.SetLength(sec(20))
	assert.Equal(t, "{[0, 5) [8, 10)}", c.Validated().String())
}

func TestShiftMovesJobStamps(t *testing.T) {
	t.Parallel()

	c := NewPlaybackCache(nil)
	c.SetLength(sec(100))

	started := NewJobTime()
	c.Invalidate(rng(0, 10), NewJobTime())
	c.Shift(sec(0), sec(5))

	ok := c.Validate(rng(0, 20), started)
	assert.Equal(t, "{[0, 5) [15, 20)}", ok.String())
}

func TestConcurrentValidate(t *testing.T) {
	t.Parallel()

	c := NewPlaybackCache(nil)
	c.SetLength(sec(100))

	var wg sync.WaitGroup

	for i := int64(0); i < 100; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()
			c.Validate(rng(i, i+1), NewJobTime())
		}()
	}

	wg.Wait()
	assert.Equal(t, "{[0, 100)}", c.Validated().String())
}

func TestFrameCacheHashes(t *testing.T) {
	t.Parallel()

	c := NewFrameCache(nil)
	c.SetLength(sec(10))

	assert.False(t, c.SetHash(sec(0), "a", NewJobTime()), "no timebase yet")

	c.SetTimebase(rational.New(1, 2))

	j := NewJobTime()
	require.True(t, c.SetHash(sec(0), "a", j))
	require.True(t, c.SetHash(rational.New(1, 2), "b", j))
	require.True(t, c.SetHash(sec(1), "a", j))

	h, ok := c.Hash(rational.New(3, 4))
	require.True(t, ok)
	assert.Equal(t, "b", h)

	assert.Equal(t, []rational.Rational{sec(0), sec(1)}, c.TimesForHash("a"))
	assert.Equal(t, []string{"a", "b"}, c.Hashes())
	assert.Equal(t, "{[0, 3/2)}", c.Validated().String())

	c.Invalidate(timerange.New(rational.New(1, 2), sec(1)), NewJobTime())

	_, ok = c.Hash(rational.New(1, 2))
	assert.False(t, ok)
	assert.Equal(t, []string{"a"}, c.Hashes())
	assert.Equal(t, []rational.Rational{sec(0), rational.New(1, 2)}, c.FramesInRange(rng(0, 1)))
	assert.Equal(t, []rational.Rational{rational.New(1, 2)}, c.MissingFrames(rng(0, 1)))
}

func TestFrameCacheShift(t *testing.T) {
	t.Parallel()

	c := NewFrameCache(nil)
	c.SetLength(sec(10))
	c.SetTimebase(sec(1))

	j := NewJobTime()
	for i := int64(0); i < 5; i++ {
		require.True(t, c.SetHash(sec(i), string(rune('a'+i)), j))
	}

	// Remove [1, 3): frames 3 and 4 move to 1 and 2.
	c.Shift(sec(3), sec(1))

	for i, want := range []string{"a", "d", "e"} {
		h, ok := c.Hash(sec(int64(i)))
		require.True(t, ok)
		assert.Equal(t, want, h)
	}

	_, ok := c.Hash(sec(3))
	assert.False(t, ok)
	assert.Equal(t, "{[0, 3)}", c.Validated().String())
}

func TestFrameCacheShiftDropsFramesPastLength(t *testing.T) {
	t.Parallel()

	c := NewFrameCache(nil)
	c.SetLength(sec(5))
	c.SetTimebase(sec(1))

	j := NewJobTime()
	for i := int64(0); i < 5; i++ {
		require.True(t, c.SetHash(sec(i), string(rune('a'+i)), j))
	}

	// Insert 2s at 2: frames 2 and 3 land at 4 and 5, frame 4 at 6.
	c.Shift(sec(2), sec(4))

	h, ok := c.Hash(sec(4))
	require.True(t, ok)
	assert.Equal(t, "c", h)

	for _, gone := range []int64{2, 3, 5, 6} {
		_, ok := c.Hash(sec(gone))
		assert.False(t, ok, "frame %d", gone)
	}

	assert.Equal(t, "{[0, 2) [4, 5)}", c.Validated().String())
}

func TestFrameCacheSetTimebase(t *testing.T) {
	t.Parallel()

	c := NewFrameCache(nil)
	c.SetLength(sec(10))
	c.SetTimebase(rational.New(1, 2))

	j := NewJobTime()
	require.True(t, c.SetHash(sec(0), "a", j))
	require.True(t, c.SetHash(rational.New(1, 2), "b", j))

	c.SetTimebase(sec(1))

	h, ok := c.Hash(sec(0))
	require.True(t, ok)
	assert.Equal(t, "a", h)
	assert.Equal(t, []string{"a"}, c.Hashes())
	assert.Equal(t, "{[0, 1/2)}", c.Validated().String())
}

func TestFrameCacheLateHashRejected(t *testing.T) {
	t.Parallel()

	c := NewFrameCache(nil)
	c.SetLength(sec(10))
	c.SetTimebase(sec(1))

	started := NewJobTime()
	c.Invalidate(rng(0, 10), NewJobTime())

	assert.False(t, c.SetHash(sec(2), "x", started))
	assert.Empty(t, c.Hashes())
}

func TestSampleCacheSetParameters(t *testing.T) {
	t.Parallel()

	c := NewSampleCache(nil)
	c.SetLength(sec(10))

	stereo := params.NewAudioParams(48000, av.CH_STEREO, av.FLTP)
	c.SetParameters(stereo)
	c.Validate(rng(0, 10), NewJobTime())

	// Bookkeeping changes keep the cache.
	disabled := stereo
	disabled.Enabled = false
	c.SetParameters(disabled)
	assert.Equal(t, "{[0, 10)}", c.Validated().String())

	c.SetParameters(params.NewAudioParams(44100, av.CH_STEREO, av.FLTP))
	assert.True(t, c.Validated().IsEmpty())
	assert.Equal(t, 44100, c.Parameters().SampleRate)

	first, count := c.SamplesInRange(rng(1, 2))
	assert.Equal(t, int64(44100), first)
	assert.Equal(t, int64(44100), count)
}
