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
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/TurbineOne/viewer-output/pkg/media"
	"github.com/TurbineOne/viewer-output/pkg/params"
)

// Entry header fields. Unknown fields are skipped when reading, so new ones
// can be appended without invalidating old caches.
const (
	fieldWidth    protowire.Number = 1
	fieldHeight   protowire.Number = 2
	fieldFormat   protowire.Number = 3
	fieldLinesize protowire.Number = 4
	fieldDataLen  protowire.Number = 5
)

type header struct {
	width, height int
	format        params.PixelFormat
	linesize      int
	dataLen       int
}

func appendVarintField(b []byte, num protowire.Number, v int) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)

	return protowire.AppendVarint(b, uint64(v)) //nolint:gosec // Sizes are never negative.
}

// encodeEntry lays out a length-delimited header followed by the payload.
func encodeEntry(f *media.Frame) []byte {
	var h []byte
	h = appendVarintField(h, fieldWidth, f.Width)
	h = appendVarintField(h, fieldHeight, f.Height)
	h = appendVarintField(h, fieldFormat, int(f.Format))
	h = appendVarintField(h, fieldLinesize, f.Linesize)
	h = appendVarintField(h, fieldDataLen, len(f.Data))

	b := make([]byte, 0, len(h)+len(f.Data)+protowire.SizeVarint(uint64(len(h))))
	b = protowire.AppendBytes(b, h)

	return append(b, f.Data...)
}

func decodeHeader(path string, b []byte) (header, error) {
	var h header

	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return h, &corruptEntryError{path: path, reason: protowire.ParseError(n).Error()}
		}

		b = b[n:]

		if typ != protowire.VarintType {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return h, &corruptEntryError{path: path, reason: protowire.ParseError(n).Error()}
			}

			b = b[n:]

			continue
		}

		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return h, &corruptEntryError{path: path, reason: protowire.ParseError(n).Error()}
		}

		b = b[n:]

		switch num {
		case fieldWidth:
			h.width = int(v) //nolint:gosec // Bounded by what was written.
		case fieldHeight:
			h.height = int(v) //nolint:gosec // Bounded by what was written.
		case fieldFormat:
			h.format = params.PixelFormat(v) //nolint:gosec // Bounded by what was written.
		case fieldLinesize:
			h.linesize = int(v) //nolint:gosec // Bounded by what was written.
		case fieldDataLen:
			h.dataLen = int(v) //nolint:gosec // Bounded by what was written.
		}
	}

	return h, nil
}

func decodeEntry(path string, b []byte) (*media.Frame, error) {
	hb, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return nil, &corruptEntryError{path: path, reason: protowire.ParseError(n).Error()}
	}

	h, err := decodeHeader(path, hb)
	if err != nil {
		return nil, err
	}

	payload := b[n:]
	if len(payload) != h.dataLen {
		return nil, &corruptEntryError{path: path, reason: "truncated payload"}
	}

	return &media.Frame{
		Width:    h.width,
		Height:   h.height,
		Format:   h.format,
		Linesize: h.linesize,
		Data:     payload,
	}, nil
}
