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

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type innerConfig struct {
	Rate int `yaml:"rate" env:"RATE"`
}

type testConfig struct { //nolint:govet // Don't care about alignment.
	Name  string      `yaml:"name" env:"NAME"`
	Size  int         `yaml:"size" env:"SIZE"`
	Inner innerConfig `yaml:"inner" envPrefix:"INNER_"`
}

// These tests set process environment variables, so they don't run in parallel.

func TestInitFileOverridesEnv(t *testing.T) {
	t.Setenv("CFGTEST_NAME", "from-env")
	t.Setenv("CFGTEST_SIZE", "3")
	t.Setenv("CFGTEST_INNER_RATE", "48000")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: from-file\n"), 0o600))

	c := testConfig{Size: 1}
	require.NoError(t, Init(path, "CFGTEST_", &c))
	assert.Equal(t, "from-file", c.Name)
	assert.Equal(t, 3, c.Size)
	assert.Equal(t, 48000, c.Inner.Rate)
}

func TestInitMissingFile(t *testing.T) {
	t.Setenv("CFGTEST_SIZE", "7")

	c := testConfig{}
	err := Init(filepath.Join(t.TempDir(), "nope.yaml"), "CFGTEST_", &c)

	var ncErr *NoConfigError

	require.True(t, errors.As(err, &ncErr))
	assert.Contains(t, ncErr.Error(), "nope.yaml")
	assert.Equal(t, 7, c.Size, "environment still applies")
}

func TestInitFromReader(t *testing.T) {
	t.Setenv("CFGTEST_NAME", "from-env")

	c := testConfig{}
	require.NoError(t, InitFromReader(strings.NewReader("size: 9\ninner:\n  rate: 44100\n"), "CFGTEST_", &c))
	assert.Equal(t, "from-env", c.Name)
	assert.Equal(t, 9, c.Size)
	assert.Equal(t, 44100, c.Inner.Rate)

	assert.Error(t, InitFromReader(strings.NewReader("size: [\n"), "CFGTEST_", &c))
	require.NoError(t, InitFromReader(strings.NewReader(""), "CFGTEST_", &c))
}
