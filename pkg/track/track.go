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

// Package track defines media types and stream references.
package track

import (
	"fmt"
	"strconv"
	"strings"
)

// Type is the media type of a stream.
type Type int

const (
	None Type = iota
	Video
	Audio
	Subtitle
)

var typeToString = map[Type]string{ //nolint:gochecknoglobals // Static lookup.
	Video:    "v",
	Audio:    "a",
	Subtitle: "s",
}

// String returns the short type tag used in references, e.g. "v".
func (t Type) String() string {
	if s, ok := typeToString[t]; ok {
		return s
	}

	return "none"
}

// ParseType is the inverse of Type.String.
func ParseType(s string) Type {
	for t, name := range typeToString {
		if name == s {
			return t
		}
	}

	return None
}

type invalidReferenceError struct {
	text string
}

func (e *invalidReferenceError) Error() string {
	return fmt.Sprintf("invalid stream reference %q", e.text)
}

// Reference addresses one stream of a node by type and array index.
type Reference struct {
	Type  Type
	Index int
}

// IsValid reports whether r names a real stream.
func (r Reference) IsValid() bool {
	return r.Type != None && r.Index >= 0
}

// String returns the stable port name for the stream, e.g. "v:0".
func (r Reference) String() string {
	return r.Type.String() + ":" + strconv.Itoa(r.Index)
}

// ParseReference parses the output of Reference.String.
func ParseReference(s string) (Reference, error) {
	tag, idx, ok := strings.Cut(s, ":")
	if !ok {
		return Reference{}, &invalidReferenceError{text: s}
	}

	t := ParseType(tag)
	if t == None {
		return Reference{}, &invalidReferenceError{text: s}
	}

	i, err := strconv.Atoi(idx)
	if err != nil || i < 0 {
		return Reference{}, &invalidReferenceError{text: s}
	}

	return Reference{Type: t, Index: i}, nil
}
