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
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/nareix/joy4/av"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/TurbineOne/viewer-output/pkg/diskcache"
	"github.com/TurbineOne/viewer-output/pkg/mimer"
	"github.com/TurbineOne/viewer-output/pkg/node"
	"github.com/TurbineOne/viewer-output/pkg/params"
	"github.com/TurbineOne/viewer-output/pkg/rational"
	"github.com/TurbineOne/viewer-output/pkg/render"
	"github.com/TurbineOne/viewer-output/pkg/timerange"
	"github.com/TurbineOne/viewer-output/pkg/track"
	"github.com/TurbineOne/viewer-output/pkg/viewer"
)

const socketName = "viewerd.sock"

var log zerolog.Logger //nolint:gochecknoglobals // Don't care.

type unsupportedFootageError struct {
	path        string
	contentType string
}

func (e *unsupportedFootageError) Error() string {
	return fmt.Sprintf("footage %s has no picture (content type %s)", e.path, e.contentType)
}

func main() {
	f, err := parseFlags(os.Args)
	if errors.Is(err, pflag.ErrHelp) {
		return
	}

	if err != nil {
		fmt.Println(err.Error()) //nolint:forbidigo // OK to print here.
		os.Exit(-1)
	}

	if f.version {
		fmt.Printf("%s rev:%s created:%s\n", Version, Revision, Created) //nolint:forbidigo // OK to print here.

		return
	}

	initConfig(f) // May early exit if config init fails.

	serviceSocket := filepath.Join(currentConfig.Service.SocketRoot, socketName)
	if err := os.RemoveAll(serviceSocket); err != nil {
		log.Error().Err(err).Msg("failed to remove existing socket")
	}

	l, err := net.Listen("unix", serviceSocket)
	if err != nil {
		log.Error().Err(err).Msg("failed to listen on socket")

		return
	}

	defer func() {
		_ = l.Close()
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	seq, pat, err := buildSequence()
	if err != nil {
		log.Error().Err(err).Msg("failed to build sequence")

		return
	}
	defer seq.Close()

	store, err := diskcache.Open(&currentConfig.DiskCache, &log)
	if err != nil {
		log.Error().Err(err).Msg("failed to open disk cache")

		return
	}

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	opts := make([]grpc.ServerOption, 0)
	server := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(server, healthServer)

	task := render.NewTask(seq,
		params.NewVideoRenderingParams(seq.VideoParams(0), currentConfig.Sequence.OfflinePixelFormat,
			params.RenderModeOffline),
		params.NewAudioRenderingParams(seq.AudioParams(0), av.FLTP),
		pat,
		render.NewCacheSink(store, seq.VideoFrameCache(), seq.AudioPlaybackCache(), &log),
		render.WithWorkers(currentConfig.Service.Workers),
		render.WithLogger(&log))

	go func() {
		renderSequence(ctx, seq, task)

		if task.State() == render.StateCompleted {
			healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		}

		<-ctx.Done()
		healthServer.Shutdown()
		server.Stop()
	}()

	log.Info().Str("socket", serviceSocket).Msg("starting server")

	err = server.Serve(l)
	if err != nil {
		log.Error().Err(err).Msg("gRPC server failed")
	}

	log.Info().Msg("server stopped")
	cancel()
}

// buildSequence returns a sequence fed by a test pattern as long as the
// configured duration.
func buildSequence() (*viewer.Output, *pattern, error) {
	seq := viewer.New(viewer.WithID("sequence"), viewer.WithLogger(&log), viewer.WithDefaultStreams())
	seq.AddShiftListener(seq.Points())

	if err := seq.SetDefaultParameters(currentConfig.Sequence); err != nil {
		return nil, nil, err
	}

	still := false

	if path := currentConfig.Service.Footage; path != "" {
		footage, err := footageStreams(path)
		if err != nil {
			return nil, nil, err
		}

		if err := seq.SetParametersFromFootage(currentConfig.Sequence, []*viewer.Output{footage}); err != nil {
			return nil, nil, err
		}

		still = footage.FirstEnabledVideoStream().Type == params.VideoTypeStill
	}

	length := rational.FromInt(int64(currentConfig.Service.DurationSeconds))
	pat := newPattern(length, still, &log)

	seq.BeginOperation()
	defer seq.EndOperation()

	if err := seq.Connect(pat.Output(patternOutput), viewer.TextureInput, node.NoElement); err != nil {
		return nil, nil, fmt.Errorf("connecting pattern video: %w", err)
	}

	if err := seq.Connect(pat.Output(patternOutput), viewer.SamplesInput, node.NoElement); err != nil {
		return nil, nil, fmt.Errorf("connecting pattern audio: %w", err)
	}

	return seq, pat, nil
}

// footageStreams describes a footage file as a viewer with one video and one
// audio stream at the sequence defaults. Only the picture type comes from
// the file.
func footageStreams(path string) (*viewer.Output, error) {
	vt, ok := mimer.ProbeVideoType(path)
	if !ok {
		return nil, &unsupportedFootageError{path: path, contentType: mimer.GetContentType(path)}
	}

	footage := viewer.New(viewer.WithID(filepath.Base(path)), viewer.WithLogger(&log))

	vp := currentConfig.Sequence.VideoParams()
	vp.Type = vt
	footage.AddStream(track.Video, vp)
	footage.AddStream(track.Audio, currentConfig.Sequence.AudioParams())

	log.Info().Str("footage", path).Stringer("type", vt).Msg("probed footage")

	return footage, nil
}

// renderSequence fills the sequence caches with its whole length.
func renderSequence(ctx context.Context, seq *viewer.Output, task *render.Task) {
	length := seq.Length()
	if length.Sign() <= 0 {
		log.Warn().Msg("sequence is empty, nothing to render")

		return
	}

	log.Info().
		Str("duration", seq.Duration(currentConfig.Service.Display)).
		Str("rate", seq.Rate()).
		Msg("rendering sequence")

	all := timerange.NewList(timerange.New(rational.Zero, length))

	if err := task.Render(ctx, all, all, currentConfig.Service.UseDiskCache); err != nil {
		log.Error().Err(err).Object("task", task).Msg("render failed")

		return
	}

	log.Info().Object("task", task).Float64("progress", task.Progress()).Msg("render finished")
}
