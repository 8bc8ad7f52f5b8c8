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

package diskcache

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/TurbineOne/viewer-output/pkg/media"
	"github.com/TurbineOne/viewer-output/pkg/params"
	"github.com/TurbineOne/viewer-output/pkg/rational"
)

func openStore(t *testing.T, dir string, indexSize int) *Store {
	t.Helper()

	c := ConfigDefault()
	c.Dir = dir
	c.IndexSize = indexSize

	s, err := Open(&c, nil)
	require.NoError(t, err)

	return s
}

func testFrame(width int, fill byte) *media.Frame {
	f := media.NewFrame(rational.Zero, width, 2, params.FormatU8)
	for i := range f.Data {
		f.Data[i] = fill + byte(i)
	}

	return f
}

func TestWriteRead(t *testing.T) {
	t.Parallel()

	s := openStore(t, t.TempDir(), 0)
	f := testFrame(4, 1)

	assert.False(t, s.Has("abc123"))
	require.NoError(t, s.Write("abc123", f))
	assert.True(t, s.Has("abc123"))
	assert.FileExists(t, filepath.Join(s.Dir(), "ab", "abc123"+entryExt))

	got, err := s.Read("abc123")
	require.NoError(t, err)
	assert.Equal(t, 4, got.Width)
	assert.Equal(t, 2, got.Height)
	assert.Equal(t, params.FormatU8, got.Format)
	assert.Equal(t, 16, got.Linesize)
	assert.Equal(t, f.Data, got.Data)
}

func TestReopen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, openStore(t, dir, 0).Write("feed01", testFrame(4, 9)))

	s := openStore(t, dir, 0)
	assert.True(t, s.Has("feed01"))
	assert.True(t, s.HasFrame("feed01"))

	got, err := s.Read("feed01")
	require.NoError(t, err)
	assert.Equal(t, testFrame(4, 9).Data, got.Data)
}

func TestWriteDedup(t *testing.T) {
	t.Parallel()

	s := openStore(t, t.TempDir(), 0)
	require.NoError(t, s.Write("dup0", testFrame(4, 1)))

	// Same hash, same size: assumed identical and not rewritten.
	require.NoError(t, s.Write("dup0", testFrame(4, 50)))

	got, err := s.Read("dup0")
	require.NoError(t, err)
	assert.Equal(t, testFrame(4, 1).Data, got.Data)

	err = s.Write("dup0", testFrame(8, 1))

	var mismatch *hashMismatchError

	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 32, mismatch.stored)
	assert.Equal(t, 64, mismatch.given)
}

func TestInvalidHash(t *testing.T) {
	t.Parallel()

	s := openStore(t, t.TempDir(), 0)

	var invalid *invalidHashError

	for _, h := range []string{"", "a", "../etc", "ab/cd", "ab cd"} {
		assert.ErrorAs(t, s.Write(h, testFrame(1, 0)), &invalid, h)
		assert.False(t, s.Has(h), h)

		_, err := s.Read(h)
		assert.ErrorAs(t, err, &invalid, h)
	}
}

func TestReadMissingAndRemove(t *testing.T) {
	t.Parallel()

	s := openStore(t, t.TempDir(), 0)

	_, err := s.Read("missing")
	assert.ErrorIs(t, err, fs.ErrNotExist)

	require.NoError(t, s.Write("gone42", testFrame(2, 0)))
	require.NoError(t, s.Remove("gone42"))
	assert.False(t, s.Has("gone42"))
	require.NoError(t, s.Remove("gone42"))
}

func TestCorruptEntry(t *testing.T) {
	t.Parallel()

	s := openStore(t, t.TempDir(), 0)
	require.NoError(t, s.Write("bad000", testFrame(4, 0)))

	path := s.path("bad000")
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b[:len(b)-3], 0o600))

	_, err = s.Read("bad000")

	var corrupt *corruptEntryError

	require.ErrorAs(t, err, &corrupt)
	assert.False(t, s.Has("bad000"), "corrupt entries are dropped")
}

func TestIndexEviction(t *testing.T) {
	t.Parallel()

	s := openStore(t, t.TempDir(), 1)
	require.NoError(t, s.Write("aa01", testFrame(1, 0)))
	require.NoError(t, s.Write("bb02", testFrame(1, 0)))

	assert.True(t, s.Has("aa01"), "evicted hashes are found on disk")
	assert.True(t, s.Has("bb02"))
}

func TestConcurrentWrites(t *testing.T) {
	t.Parallel()

	s := openStore(t, t.TempDir(), 0)

	var wg sync.WaitGroup

	errs := make(chan error, 64)

	for i := 0; i < 64; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			errs <- s.Write(fmt.Sprintf("hash%02d", i%4), testFrame(4, byte(i%4)))
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	for i := 0; i < 4; i++ {
		got, err := s.Read(fmt.Sprintf("hash%02d", i))
		require.NoError(t, err)
		assert.Equal(t, testFrame(4, byte(i)).Data, got.Data)
	}

	// No temp files are left behind.
	matches, err := filepath.Glob(filepath.Join(s.Dir(), "ha", "*.tmp*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestEntrySkipsUnknownFields(t *testing.T) {
	t.Parallel()

	h := appendVarintField(nil, fieldWidth, 3)
	h = protowire.AppendTag(h, 99, protowire.Fixed32Type)
	h = protowire.AppendFixed32(h, 7)
	h = appendVarintField(h, fieldDataLen, 2)

	b := protowire.AppendBytes(nil, h)
	b = append(b, 1, 2)

	f, err := decodeEntry("test", b)
	require.NoError(t, err)
	assert.Equal(t, 3, f.Width)
	assert.Equal(t, []byte{1, 2}, f.Data)

	_, err = decodeEntry("test", []byte{0xff})
	assert.True(t, errors.As(err, new(*corruptEntryError)))
}
