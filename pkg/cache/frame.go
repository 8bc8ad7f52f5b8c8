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
	"github.com/rs/zerolog"
	"golang.org/x/exp/slices"

	"github.com/TurbineOne/viewer-output/pkg/rational"
	"github.com/TurbineOne/viewer-output/pkg/timerange"
)

const lTimebase = "timebase"

// FrameCache is the video cache. On top of validity it maps each frame time
// on the timebase grid to the content hash of the frame rendered there.
type FrameCache struct {
	PlaybackCache

	timebase rational.Rational
	hashes   map[rational.Rational]string
}

// NewFrameCache returns an empty frame cache with no timebase.
func NewFrameCache(logger *zerolog.Logger) *FrameCache {
	c := &FrameCache{hashes: make(map[rational.Rational]string)}
	c.init(logger, "frame")

	return c
}

// Timebase returns the frame duration the cache is gridded on.
func (c *FrameCache) Timebase() rational.Rational {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.timebase
}

// SetTimebase regrids the cache. Hashes that do not fall on the new grid are
// dropped along with the validity of the frames they covered.
func (c *FrameCache) SetTimebase(tb rational.Rational) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if tb == c.timebase {
		return
	}

	c.log.Debug().Stringer(lTimebase, tb).Msg("timebase changed")

	old := c.timebase
	c.timebase = tb

	for t := range c.hashes {
		if tb.IsNull() || c.snap(t) != t {
			delete(c.hashes, t)

			if !old.IsNull() {
				c.validated.Remove(timerange.New(t, t.Add(old)))
			}
		}
	}
}

// snap returns the start of the frame containing t.
func (c *FrameCache) snap(t rational.Rational) rational.Rational {
	return rational.TimestampToTime(rational.TimeToTimestamp(t, c.timebase), c.timebase)
}

// SetLength changes the length, dropping hashes of frames past the end.
func (c *FrameCache) SetLength(length rational.Rational) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setLengthLocked(length)

	for t := range c.hashes {
		if !t.Less(length) {
			delete(c.hashes, t)
		}
	}
}

// Invalidate marks r invalid and forgets the hashes of frames starting in it.
func (c *FrameCache) Invalidate(r timerange.TimeRange, jobTime int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.invalidateLocked(r, jobTime)

	for t := range c.hashes {
		if r.ContainsTime(t) {
			delete(c.hashes, t)
		}
	}
}

// Shift moves validity and hashes at or after from by (to - from). Whatever
// lands outside [0, length) is dropped.
func (c *FrameCache) Shift(from, to rational.Rational) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if from == to {
		return
	}

	c.shiftLocked(from, to)

	diff := to.Sub(from)
	cut := rational.MinOf(from, to)
	moved := make(map[rational.Rational]string)

	for t, h := range c.hashes {
		if !t.Less(from) {
			moved[t.Add(diff)] = h
		}

		if !t.Less(cut) {
			delete(c.hashes, t)
		}
	}

	for t, h := range moved {
		if t.Sign() >= 0 && t.Less(c.length) {
			c.hashes[t] = h
		}
	}
}

// SetHash records that the frame at t was rendered with content hash by a
// job started at jobTime, and validates that frame. It reports false, and
// records nothing, if the frame was invalidated after the job started.
func (c *FrameCache) SetHash(t rational.Rational, hash string, jobTime int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timebase.IsNull() {
		return false
	}

	t = c.snap(t)
	frame := timerange.New(t, t.Add(c.timebase))

	ok := c.validateLocked(frame, jobTime)
	if !ok.ContainsTime(t) {
		return false
	}

	c.hashes[t] = hash

	return true
}

// Hash returns the hash of the frame containing t.
func (c *FrameCache) Hash(t rational.Rational) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timebase.IsNull() {
		return "", false
	}

	h, ok := c.hashes[c.snap(t)]

	return h, ok
}

// TimesForHash returns, in order, every frame time rendered with hash.
func (c *FrameCache) TimesForHash(hash string) []rational.Rational {
	c.mu.Lock()
	defer c.mu.Unlock()

	var times []rational.Rational

	for t, h := range c.hashes {
		if h == hash {
			times = append(times, t)
		}
	}

	slices.SortFunc(times, rational.Rational.Cmp)

	return times
}

// Hashes returns the distinct hashes currently referenced.
func (c *FrameCache) Hashes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]string, 0, len(c.hashes))
	for _, h := range c.hashes {
		out = append(out, h)
	}

	slices.Sort(out)

	return slices.Compact(out)
}

// FramesInRange returns the start time of every frame that overlaps r,
// limited to [0, length).
func (c *FrameCache) FramesInRange(r timerange.TimeRange) []rational.Rational {
	c.mu.Lock()
	defer c.mu.Unlock()

	return framesInRange(r.Clamp(rational.Zero, c.length), c.timebase)
}

// MissingFrames returns the start time of every frame overlapping r that is
// not fully valid.
func (c *FrameCache) MissingFrames(r timerange.TimeRange) []rational.Rational {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []rational.Rational

	for _, t := range framesInRange(r.Clamp(rational.Zero, c.length), c.timebase) {
		end := rational.MinOf(t.Add(c.timebase), c.length)
		if !c.validated.ContainsRange(timerange.New(t, end)) {
			out = append(out, t)
		}
	}

	return out
}

func framesInRange(r timerange.TimeRange, tb rational.Rational) []rational.Rational {
	if tb.IsNull() || r.IsEmpty() {
		return nil
	}

	first := rational.TimeToTimestamp(r.In(), tb)
	last := rational.TimeToTimestampCeil(r.Out(), tb)

	out := make([]rational.Rational, 0, last-first)
	for ts := first; ts < last; ts++ {
		out = append(out, rational.TimestampToTime(ts, tb))
	}

	return out
}
