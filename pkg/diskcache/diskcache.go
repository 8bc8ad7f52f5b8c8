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

// Package diskcache stores rendered frames on disk, addressed by content hash.
// Identical hashes are assumed to hold identical frames, so a hash is only
// ever written once.
package diskcache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/golang/groupcache/lru"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/TurbineOne/viewer-output/pkg/media"
)

const (
	lDir   = "dir"
	lHash  = "hash"
	lPath  = "path"
	lBytes = "bytes"
)

const (
	entryExt    = ".frame"
	dirPerm     = 0o755
	shardSize   = 2
	unknownSize = -1
)

//nolint:gochecknoglobals // allows logging from non-method funcs
var log = zerolog.Nop()

// Config configures a Store.
type Config struct { //nolint:govet // Don't care about alignment.
	Dir       string `yaml:"dir" env:"DIR" doc:"Directory holding cached frames"`
	IndexSize int    `yaml:"indexSize" env:"INDEX_SIZE" doc:"Number of known hashes remembered in memory"`
	LogLevel  string `yaml:"logLevel" env:"LOG_LEVEL" doc:"Overrides the logger level for this package"`
}

// ConfigDefault returns the default configuration.
func ConfigDefault() Config {
	return Config{
		Dir:       "frame-cache",
		IndexSize: 4096, //nolint:mnd // A few minutes of 30fps footage.
		LogLevel:  "",
	}
}

type invalidHashError struct {
	hash string
}

func (e *invalidHashError) Error() string {
	return fmt.Sprintf("invalid frame hash %q", e.hash)
}

type hashMismatchError struct {
	hash          string
	stored, given int
}

func (e *hashMismatchError) Error() string {
	return fmt.Sprintf("hash %s already stores %d bytes, refusing %d different bytes",
		e.hash, e.stored, e.given)
}

type corruptEntryError struct {
	path   string
	reason string
}

func (e *corruptEntryError) Error() string {
	return fmt.Sprintf("corrupt cache entry %s: %s", e.path, e.reason)
}

// Store is a hash-addressed frame store. It is safe for concurrent use.
type Store struct {
	dir string

	// mu protects index.
	mu    sync.Mutex
	index *lru.Cache // hash -> payload size

	writes singleflight.Group
}

// Open returns a Store rooted at c.Dir, creating the directory if needed.
func Open(c *Config, logger *zerolog.Logger) (*Store, error) {
	if logger != nil {
		log = logger.With().Str("pkg", "diskcache").Logger()
	}

	if c.LogLevel != "" {
		level, err := zerolog.ParseLevel(c.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("diskcache log level: %w", err)
		}

		log = log.Level(level)
	}

	if err := os.MkdirAll(c.Dir, dirPerm); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	log.Info().Str(lDir, c.Dir).Int("indexSize", c.IndexSize).Msg("disk cache opened")

	return &Store{
		dir:   c.Dir,
		index: lru.New(c.IndexSize),
	}, nil
}

// Dir returns the root directory.
func (s *Store) Dir() string {
	return s.dir
}

func validHash(hash string) bool {
	if len(hash) < shardSize {
		return false
	}

	for _, c := range hash {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '-', c == '_':
		default:
			return false
		}
	}

	return true
}

// path returns the entry path, sharded by the first hash characters.
func (s *Store) path(hash string) string {
	return filepath.Join(s.dir, hash[:shardSize], hash+entryExt)
}

// known returns the payload size of a hash that is on disk.
func (s *Store) known(hash string) (int, bool) {
	s.mu.Lock()
	v, ok := s.index.Get(hash)
	s.mu.Unlock()

	if ok {
		return v.(int), true //nolint:forcetypeassert // Only ints are stored.
	}

	if _, err := os.Stat(s.path(hash)); err != nil {
		return 0, false
	}

	// On disk but not read yet.
	s.remember(hash, unknownSize)

	return unknownSize, true
}

func (s *Store) remember(hash string, size int) {
	s.mu.Lock()
	s.index.Add(hash, size)
	s.mu.Unlock()
}

func (s *Store) forget(hash string) {
	s.mu.Lock()
	s.index.Remove(hash)
	s.mu.Unlock()
}

// Has reports whether a frame is stored under hash.
func (s *Store) Has(hash string) bool {
	if !validHash(hash) {
		return false
	}

	_, ok := s.known(hash)

	return ok
}

// HasFrame is Has, so a Store can answer disk checks for render tasks.
func (s *Store) HasFrame(hash string) bool {
	return s.Has(hash)
}

// Write stores f under hash. Writing a hash that is already stored is a
// no-op, unless the stored payload is known to differ in size.
func (s *Store) Write(hash string, f *media.Frame) error {
	if !validHash(hash) {
		return &invalidHashError{hash: hash}
	}

	_, err, _ := s.writes.Do(hash, func() (any, error) {
		if size, ok := s.known(hash); ok {
			if size != unknownSize && size != len(f.Data) {
				return nil, &hashMismatchError{hash: hash, stored: size, given: len(f.Data)}
			}

			log.Trace().Str(lHash, hash).Msg("already cached")

			return nil, nil
		}

		return nil, s.write(hash, f)
	})

	return err
}

func (s *Store) write(hash string, f *media.Frame) error {
	path := s.path(hash)

	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return fmt.Errorf("creating shard dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), hash+".tmp*")
	if err != nil {
		return fmt.Errorf("creating temp entry: %w", err)
	}

	defer os.Remove(tmp.Name()) //nolint:errcheck // Gone after a successful rename.

	b := encodeEntry(f)

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("writing entry: %w", err)
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing entry: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("publishing entry: %w", err)
	}

	s.remember(hash, len(f.Data))
	log.Debug().Str(lHash, hash).Int(lBytes, len(b)).Msg("frame cached")

	return nil
}

// Read returns the frame stored under hash. A missing entry wraps
// fs.ErrNotExist.
func (s *Store) Read(hash string) (*media.Frame, error) {
	if !validHash(hash) {
		return nil, &invalidHashError{hash: hash}
	}

	path := s.path(hash)

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.forget(hash)
		}

		return nil, fmt.Errorf("reading %s: %w", hash, err)
	}

	f, err := decodeEntry(path, b)
	if err != nil {
		log.Warn().Err(err).Str(lPath, path).Msg("dropping corrupt entry")
		_ = s.Remove(hash)

		return nil, err
	}

	s.remember(hash, len(f.Data))

	return f, nil
}

// Remove deletes the entry for hash, if any.
func (s *Store) Remove(hash string) error {
	if !validHash(hash) {
		return &invalidHashError{hash: hash}
	}

	s.forget(hash)

	if err := os.Remove(s.path(hash)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", hash, err)
	}

	return nil
}
