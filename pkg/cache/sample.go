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

	"github.com/TurbineOne/viewer-output/pkg/params"
	"github.com/TurbineOne/viewer-output/pkg/rational"
	"github.com/TurbineOne/viewer-output/pkg/timerange"
)

// SampleCache is the audio cache. Samples cannot be regridded, so a format
// change throws everything away.
type SampleCache struct {
	PlaybackCache

	params params.AudioParams
}

// NewSampleCache returns an empty sample cache.
func NewSampleCache(logger *zerolog.Logger) *SampleCache {
	c := &SampleCache{}
	c.init(logger, "sample")

	return c
}

// Parameters returns the audio format the cache holds.
func (c *SampleCache) Parameters() params.AudioParams {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.params
}

// SetParameters applies a new audio format. If rate, layout or sample format
// differ from the current ones, every cached range is invalidated.
func (c *SampleCache) SetParameters(p params.AudioParams) {
	c.mu.Lock()
	defer c.mu.Unlock()

	changed := !c.params.SameFormat(p)
	c.params = p

	if !changed {
		return
	}

	c.log.Debug().Object("params", p).Msg("format changed, invalidating")
	c.invalidateLocked(timerange.New(rational.Zero, rational.Max), NewJobTime())
}

// SamplesInRange returns the sample span of r in the cache's format.
func (c *SampleCache) SamplesInRange(r timerange.TimeRange) (first, count int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.params.SampleRate <= 0 {
		return 0, 0
	}

	first = c.params.TimeToSamples(r.In())

	return first, c.params.TimeToSamples(r.Out()) - first
}
