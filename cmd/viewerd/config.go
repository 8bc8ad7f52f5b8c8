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

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"

	"github.com/TurbineOne/viewer-output/pkg/config"
	"github.com/TurbineOne/viewer-output/pkg/diskcache"
	"github.com/TurbineOne/viewer-output/pkg/logger"
	"github.com/TurbineOne/viewer-output/pkg/timecode"
	"github.com/TurbineOne/viewer-output/pkg/viewer"
)

const (
	configFileName = "viewerd.yaml"
	envPrefix      = "VIEWERD_"
)

//nolint:gochecknoglobals // Needed for makefile injection.
var (
	// Version is provided by the makefile.
	Version = "v0"
	// Revision is a git tag provided by the makefile.
	Revision = "0"
	// Created is a date provided by the makefile.
	Created = "0000-00-00"
)

// serviceConfig configures the daemon itself.
type serviceConfig struct { //nolint:govet // Don't care about alignment.
	SocketRoot      string           `yaml:"socketRoot" env:"SOCKET_ROOT" doc:"Directory holding the health socket"`
	Footage         string           `yaml:"footage" env:"FOOTAGE" doc:"Optional footage file. Images make the pattern a still"`
	DurationSeconds int              `yaml:"durationSeconds" env:"DURATION_SECONDS" doc:"Length of the test pattern"`
	Workers         int              `yaml:"workers" env:"WORKERS" doc:"Frames rendered concurrently"`
	UseDiskCache    bool             `yaml:"useDiskCache" env:"USE_DISK_CACHE" doc:"Skip frames already in the disk cache"`
	Display         timecode.Display `yaml:"display" env:"DISPLAY" doc:"Duration display. One of: drop-frame, non-drop-frame, seconds, frames, milliseconds"`
}

// mainConfig is the master config for the executable.
type mainConfig struct { //nolint:govet // Don't care about alignment.
	Service   serviceConfig           `yaml:"service" envPrefix:"SERVICE_"`
	Sequence  viewer.SequenceDefaults `yaml:"sequence" envPrefix:"SEQUENCE_"`
	DiskCache diskcache.Config        `yaml:"diskCache" envPrefix:"DISK_CACHE_"`
	Logger    logger.Config           `yaml:"logger" envPrefix:"LOGGER_"`
}

var currentConfig = mainConfig{ //nolint:gochecknoglobals  // Static config
	Service: serviceConfig{
		SocketRoot:      os.TempDir(),
		DurationSeconds: 10, //nolint:mnd // Long enough to see dedup at work.
		Workers:         4,  //nolint:mnd // Modest default.
		UseDiskCache:    true,
		Display:         timecode.NonDropFrame,
	},
	Sequence:  viewer.SequenceDefaultsDefault(),
	DiskCache: diskcache.ConfigDefault(),
	Logger:    logger.ConfigDefault(),
}

// flags holds command-line overrides, applied after the config file.
type flags struct {
	configPath string
	footage    string
	socketRoot string
	version    bool
}

func parseFlags(args []string) (flags, error) {
	var f flags

	fs := pflag.NewFlagSet(filepath.Base(args[0]), pflag.ContinueOnError)
	fs.StringVarP(&f.configPath, "config", "c", configFileName, "config file")
	fs.StringVar(&f.footage, "footage", "", "footage file to classify, overrides service.footage")
	fs.StringVar(&f.socketRoot, "socket-root", "", "health socket directory, overrides service.socketRoot")
	fs.BoolVarP(&f.version, "version", "v", false, "print the version and exit")

	if err := fs.Parse(args[1:]); err != nil {
		return f, fmt.Errorf("parsing flags: %w", err)
	}

	return f, nil
}

// initConfig initializes the config by calling config.Init() and handling
// the results. May exit the program if there is an error.
func initConfig(f flags) {
	err := config.Init(f.configPath, envPrefix, &currentConfig)
	if err != nil {
		// A missing config file is not fatal. Anything else is.
		ncError := &config.NoConfigError{}
		if !errors.As(err, &ncError) {
			fmt.Println(err.Error()) //nolint:forbidigo // OK to print here.
			os.Exit(-1)
		}
	}

	if f.footage != "" {
		currentConfig.Service.Footage = f.footage
	}

	if f.socketRoot != "" {
		currentConfig.Service.SocketRoot = f.socketRoot
	}

	log = logger.New(&currentConfig.Logger)

	binName := filepath.Base(os.Args[0])
	log.Info().Msg(fmt.Sprintf("%s %s rev:%s created:%s", binName, Version, Revision, Created))
	log.Info().Interface("config", &currentConfig).Msg("effective config")

	// If there was no config file, we log it here.
	if err != nil {
		log.Info().Msg(err.Error())
	}

	if err := currentConfig.Sequence.Validate(); err != nil {
		log.Error().Err(err).Msg("invalid sequence defaults")
		os.Exit(-1)
	}
}
