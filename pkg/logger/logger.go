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

package logger

import (
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

func init() {
	// Users of our logging will always adhere to these global settings:
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldInteger = false
	zerolog.DurationFieldUnit = time.Second
}

// Config configures the logger.
type Config struct { //nolint:govet // Don't care about alignment.
	Level      string `yaml:"level" json:"level" env:"LEVEL" doc:"Log level. One of: trace, debug, info, warn, error, fatal, panic"`
	Console    bool   `yaml:"console" json:"console" env:"CONSOLE" doc:"Logging includes terminal colors"`
	File       string `yaml:"file" json:"file" env:"FILE" doc:"Also log JSON to this file, rotated. Empty disables"`
	MaxSizeMB  int    `yaml:"maxSizeMB" json:"maxSizeMB" env:"MAX_SIZE_MB" doc:"Rotate the log file at this size"`
	MaxBackups int    `yaml:"maxBackups" json:"maxBackups" env:"MAX_BACKUPS" doc:"Rotated files to keep. 0 keeps all"`
	MaxAgeDays int    `yaml:"maxAgeDays" json:"maxAgeDays" env:"MAX_AGE_DAYS" doc:"Days to keep rotated files. 0 keeps all"`
	Compress   bool   `yaml:"compress" json:"compress" env:"COMPRESS" doc:"Gzip rotated files"`
}

// ConfigDefault returns the default values for a Config.
func ConfigDefault() Config {
	return Config{
		Level:      zerolog.InfoLevel.String(),
		Console:    false,
		File:       "",
		MaxSizeMB:  100, //nolint:mnd // lumberjack's default.
		MaxBackups: 3,   //nolint:mnd // A few rotations is plenty.
		MaxAgeDays: 0,
		Compress:   false,
	}
}

// termOut returns a ConsoleWriter if we detect a tty or console config,
// otherwise returns os.Stdout since we're assuming we're running under docker.
func termOut(c *Config) io.Writer {
	if c.Console || isatty.IsTerminal(os.Stdout.Fd()) {
		return zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "2006-01-02T15:04:05.000000", // Omitting timezone on console.
		}
	}

	return os.Stdout
}

// fileOut returns a rotating writer for c.File, or nil if file logging is off.
func fileOut(c *Config) io.Writer {
	if c.File == "" {
		return nil
	}

	return &lumberjack.Logger{
		Filename:   c.File,
		MaxSize:    c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAge:     c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// New returns a new logger as described by the config. With c.File set,
// everything is also written as JSON to a rotating file.
// Panics in case of an invalid configuration.
func New(c *Config) (log zerolog.Logger) {
	zLevel, err := zerolog.ParseLevel(c.Level)
	if err != nil {
		panic(err.Error())
	}

	out := termOut(c)
	if f := fileOut(c); f != nil {
		out = zerolog.MultiLevelWriter(out, f)
	}

	log = zerolog.New(out).
		Level(zLevel).
		With().Timestamp().Caller().
		Logger()

	return log
}
