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

package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReference(t *testing.T) {
	t.Parallel()

	r := Reference{Type: Audio, Index: 3}
	assert.Equal(t, "a:3", r.String())
	assert.True(t, r.IsValid())
	assert.False(t, Reference{Type: Video, Index: -1}.IsValid())
	assert.False(t, Reference{}.IsValid())

	got, err := ParseReference("a:3")
	require.NoError(t, err)
	assert.Equal(t, r, got)

	for _, bad := range []string{"", "v", "x:0", "v:-1", "v:one", "none:0"} {
		_, err := ParseReference(bad)
		assert.Error(t, err, bad)
	}
}

func TestType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "s", Subtitle.String())
	assert.Equal(t, "none", None.String())
	assert.Equal(t, Video, ParseType("v"))
	assert.Equal(t, None, ParseType("video"))
}
