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

package render

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"github.com/rs/zerolog"

	"github.com/TurbineOne/viewer-output/pkg/cache"
	"github.com/TurbineOne/viewer-output/pkg/diskcache"
	"github.com/TurbineOne/viewer-output/pkg/media"
	"github.com/TurbineOne/viewer-output/pkg/rational"
	"github.com/TurbineOne/viewer-output/pkg/timerange"
)

const (
	lHash  = "hash"
	lRange = "range"
	lTime  = "time"
)

// FrameHash returns the content hash of a rendered frame: SHA-256 over its
// geometry and pixels, hex encoded.
func FrameHash(f *media.Frame) string {
	h := sha256.New()

	var geom []byte
	geom = binary.LittleEndian.AppendUint32(geom, uint32(f.Width))    //nolint:gosec // Frame sizes fit.
	geom = binary.LittleEndian.AppendUint32(geom, uint32(f.Height))   //nolint:gosec // Frame sizes fit.
	geom = binary.LittleEndian.AppendUint32(geom, uint32(f.Format))   //nolint:gosec // Small enum.
	geom = binary.LittleEndian.AppendUint32(geom, uint32(f.Linesize)) //nolint:gosec // Frame sizes fit.

	h.Write(geom)
	h.Write(f.Data)

	return hex.EncodeToString(h.Sum(nil))
}

// CacheSink stores frames in a disk cache and records results in a frame
// cache and a sample cache. Results from a job that started before the
// target range was last invalidated are dropped by the caches.
type CacheSink struct {
	log     zerolog.Logger
	store   *diskcache.Store
	frames  *cache.FrameCache
	samples *cache.SampleCache
}

// NewCacheSink returns a sink writing to store and recording into frames and
// samples. Either cache may be nil. Results arrive offset by the task's anchor
// point, so with a non-zero anchor frames and samples must be the caches of
// the enclosing timeline, not those of the viewer being rendered.
func NewCacheSink(store *diskcache.Store, frames *cache.FrameCache, samples *cache.SampleCache,
	logger *zerolog.Logger,
) *CacheSink {
	s := &CacheSink{
		log:     zerolog.Nop(),
		store:   store,
		frames:  frames,
		samples: samples,
	}

	if logger != nil {
		s.log = logger.With().Str("pkg", "render").Logger()
	}

	return s
}

// DownloadFrame implements FrameSink.
func (s *CacheSink) DownloadFrame(ctx context.Context, f *media.Frame, hash string) error {
	if err := ctx.Err(); err != nil {
		return err //nolint:wrapcheck // Context errors are returned as-is.
	}

	return s.store.Write(hash, f) //nolint:wrapcheck // Already descriptive.
}

// HasFrame implements DiskChecker.
func (s *CacheSink) HasFrame(hash string) bool {
	return s.store.Has(hash)
}

// FrameDownloaded implements FrameSink.
func (s *CacheSink) FrameDownloaded(hash string, times []rational.Rational, jobTime int64) {
	if s.frames == nil {
		return
	}

	for _, t := range times {
		if !s.frames.SetHash(t, hash, jobTime) {
			s.log.Debug().Str(lHash, hash).Stringer(lTime, t).Msg("dropping superseded frame")
		}
	}
}

// AudioDownloaded implements FrameSink.
func (s *CacheSink) AudioDownloaded(r timerange.TimeRange, _ *media.SampleBuffer, jobTime int64) {
	if s.samples == nil {
		return
	}

	if ok := s.samples.Validate(r, jobTime); !ok.ContainsRange(r) {
		s.log.Debug().Object(lRange, r).Msg("audio partially superseded")
	}
}
