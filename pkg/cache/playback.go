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

// Package cache tracks which parts of a node's timeline hold valid rendered
// data. The data itself lives elsewhere (see pkg/diskcache); these types only
// record validity, the job that produced it, and for video the content hash
// of each frame.
package cache

import (
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/exp/slices"

	"github.com/TurbineOne/viewer-output/pkg/node"
	"github.com/TurbineOne/viewer-output/pkg/rational"
	"github.com/TurbineOne/viewer-output/pkg/timerange"
)

const (
	lCache   = "cache"
	lFrom    = "from"
	lJobTime = "jobTime"
	lLength  = "length"
	lRange   = "range"
	lTo      = "to"
)

// jobSegment records the job time of the most recent invalidation of a range.
type jobSegment struct {
	r       timerange.TimeRange
	jobTime int64
}

// PlaybackCache is the validity core shared by FrameCache and SampleCache.
// It is safe for concurrent use: render workers validate while the graph
// thread invalidates and shifts.
type PlaybackCache struct {
	mu  sync.Mutex
	log zerolog.Logger

	length    rational.Rational
	validated timerange.List
	jobs      []jobSegment
}

// NewPlaybackCache returns an empty, zero-length cache.
func NewPlaybackCache(logger *zerolog.Logger) *PlaybackCache {
	c := &PlaybackCache{}
	c.init(logger, "playback")

	return c
}

func (c *PlaybackCache) init(logger *zerolog.Logger, kind string) {
	if logger == nil {
		c.log = zerolog.Nop()

		return
	}

	c.log = logger.With().Str("pkg", "cache").Str(lCache, kind).Logger()
}

// NewJobTime returns a job time later than every invalidation issued so far.
func NewJobTime() int64 {
	return node.NextJobTime()
}

// Length returns the cache's timeline length.
func (c *PlaybackCache) Length() rational.Rational {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.length
}

// SetLength changes the timeline length. Validity beyond the new length is
// dropped.
func (c *PlaybackCache) SetLength(length rational.Rational) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setLengthLocked(length)
}

func (c *PlaybackCache) setLengthLocked(length rational.Rational) {
	if length == c.length {
		return
	}

	c.log.Debug().Stringer(lLength, length).Msg("length changed")

	if length.Less(c.length) {
		c.validated.Remove(timerange.New(length, rational.Max))
	}

	c.length = length
}

// Invalidate marks r as no longer valid. Validations from jobs started
// before jobTime will no longer be accepted inside r.
func (c *PlaybackCache) Invalidate(r timerange.TimeRange, jobTime int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.invalidateLocked(r, jobTime)
}

func (c *PlaybackCache) invalidateLocked(r timerange.TimeRange, jobTime int64) {
	if r.IsEmpty() {
		return
	}

	c.log.Trace().Object(lRange, r).Int64(lJobTime, jobTime).Msg("invalidate")

	c.validated.Remove(r)
	c.stampLocked(r, jobTime)
}

// stampLocked records jobTime over r, keeping any newer stamps already there.
func (c *PlaybackCache) stampLocked(r timerange.TimeRange, jobTime int64) {
	add := timerange.NewList(r)
	keep := make([]jobSegment, 0, len(c.jobs)+2) //nolint:mnd // A split adds at most two.

	for _, s := range c.jobs {
		switch {
		case !s.r.Overlaps(r):
			keep = append(keep, s)
		case s.jobTime > jobTime:
			keep = append(keep, s)
			add.Remove(s.r)
		default:
			rest := timerange.NewList(s.r)
			rest.Remove(r)

			for _, e := range rest.Ranges() {
				keep = append(keep, jobSegment{r: e, jobTime: s.jobTime})
			}
		}
	}

	for _, e := range add.Ranges() {
		keep = append(keep, jobSegment{r: e, jobTime: jobTime})
	}

	slices.SortFunc(keep, func(a, b jobSegment) int {
		return a.r.In().Cmp(b.r.In())
	})

	c.jobs = keep
}

// Validate marks r valid on behalf of a job started at jobTime, and returns
// the parts actually accepted. Parts invalidated after jobTime, or outside
// [0, length), are rejected.
func (c *PlaybackCache) Validate(r timerange.TimeRange, jobTime int64) timerange.List {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.validateLocked(r, jobTime)
}

func (c *PlaybackCache) validateLocked(r timerange.TimeRange, jobTime int64) timerange.List {
	ok := timerange.NewList(r.Clamp(rational.Zero, c.length))

	for _, s := range c.jobs {
		if s.jobTime > jobTime {
			ok.Remove(s.r)
		}
	}

	for _, e := range ok.Ranges() {
		c.validated.Insert(e)
	}

	if !ok.Equal(timerange.NewList(r)) {
		c.log.Debug().Object(lRange, r).Int64(lJobTime, jobTime).Stringer("accepted", ok).
			Msg("late validation partially rejected")
	}

	return ok
}

// Shift moves validity at or after from by (to - from). Anything before
// min(from, to) is left alone. Nothing is kept outside [0, length).
func (c *PlaybackCache) Shift(from, to rational.Rational) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.shiftLocked(from, to)
}

func (c *PlaybackCache) shiftLocked(from, to rational.Rational) {
	if from == to {
		return
	}

	c.log.Debug().Stringer(lFrom, from).Stringer(lTo, to).Msg("shift")

	c.validated.Shift(from, to)
	c.validated.Remove(timerange.New(rational.Min, rational.Zero))
	c.validated.Remove(timerange.New(c.length, rational.Max))

	diff := to.Sub(from)
	cut := rational.MinOf(from, to)
	jobs := make([]jobSegment, 0, len(c.jobs))
	moved := make([]jobSegment, 0, len(c.jobs))

	for _, s := range c.jobs {
		if head, ok := s.r.Intersected(timerange.New(rational.Min, cut)); ok {
			jobs = append(jobs, jobSegment{r: head, jobTime: s.jobTime})
		}

		if tail, ok := s.r.Intersected(timerange.New(from, rational.Max)); ok {
			moved = append(moved, jobSegment{r: tail.Shifted(diff), jobTime: s.jobTime})
		}
	}

	c.jobs = jobs
	for _, s := range moved {
		if r, ok := s.r.Intersected(timerange.New(rational.Zero, rational.Max)); ok {
			c.stampLocked(r, s.jobTime)
		}
	}
}

// Validated returns a snapshot of the valid ranges.
func (c *PlaybackCache) Validated() timerange.List {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.validated.Clone()
}

// IsValid reports whether all of r is valid.
func (c *PlaybackCache) IsValid(r timerange.TimeRange) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.validated.ContainsRange(r)
}

// Missing returns the parts of r, limited to [0, length), that are not valid.
func (c *PlaybackCache) Missing(r timerange.TimeRange) timerange.List {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.validated.Missing(r.Clamp(rational.Zero, c.length))
}

// LastInvalidation returns the job time of the newest invalidation that
// touched r, or zero if none did.
func (c *PlaybackCache) LastInvalidation(r timerange.TimeRange) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	var t int64

	for _, s := range c.jobs {
		if s.r.Overlaps(r) {
			t = max(t, s.jobTime)
		}
	}

	return t
}
