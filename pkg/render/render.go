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

// Package render fills a viewer output's caches by rendering the frames and
// samples they are missing.
//
// A Task decides which times need rendering and in what order. How a frame is
// produced is up to a Renderer, and where it ends up is up to a FrameSink, so
// tasks can be pointed at different storage without touching range logic.
package render

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"github.com/TurbineOne/viewer-output/pkg/cache"
	"github.com/TurbineOne/viewer-output/pkg/media"
	"github.com/TurbineOne/viewer-output/pkg/params"
	"github.com/TurbineOne/viewer-output/pkg/rational"
	"github.com/TurbineOne/viewer-output/pkg/timerange"
	"github.com/TurbineOne/viewer-output/pkg/viewer"
)

const (
	lAnchor  = "anchor"
	lChunks  = "audioChunks"
	lFrames  = "frames"
	lJobTime = "jobTime"
	lJobs    = "frameJobs"
	lState   = "state"
	lWorkers = "workers"
)

const defaultAudioChunkSeconds = 2

// Renderer produces pixels and samples. It is called from worker goroutines.
type Renderer interface {
	RenderFrame(ctx context.Context, t rational.Rational, p params.VideoRenderingParams) (*media.Frame, error)
	RenderAudio(ctx context.Context, r timerange.TimeRange, p params.AudioRenderingParams) (*media.SampleBuffer, error)
}

// Hasher is an optional Renderer capability. A renderer that can hash a
// frame's content without rendering it lets the task render each distinct
// frame once and skip frames the disk already holds.
type Hasher interface {
	FrameHash(t rational.Rational, p params.VideoRenderingParams) (string, error)
}

// FrameSink receives rendered results. Its methods are called from worker
// goroutines. Times and ranges passed to FrameDownloaded and AudioDownloaded
// are already offset by the task's anchor point.
type FrameSink interface {
	DownloadFrame(ctx context.Context, f *media.Frame, hash string) error
	FrameDownloaded(hash string, times []rational.Rational, jobTime int64)
	AudioDownloaded(r timerange.TimeRange, samples *media.SampleBuffer, jobTime int64)
}

// DiskChecker is an optional FrameSink capability reporting whether a hash is
// already stored.
type DiskChecker interface {
	HasFrame(hash string) bool
}

// State is where a Task is in its lifecycle.
type State int32

const (
	StateConstructed State = iota
	StateEnumerating
	StateRendering
	StateDownloading
	StateCompleted
	StateCancelled
	StateFailed
)

var stateNames = map[State]string{ //nolint:gochecknoglobals // Static lookup.
	StateConstructed: "constructed",
	StateEnumerating: "enumerating",
	StateRendering:   "rendering",
	StateDownloading: "downloading",
	StateCompleted:   "completed",
	StateCancelled:   "cancelled",
	StateFailed:      "failed",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}

	return fmt.Sprintf("State(%d)", int32(s))
}

// IsFinal reports whether a task in state s is done.
func (s State) IsFinal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

type alreadyStartedError struct {
	state State
}

func (e *alreadyStartedError) Error() string {
	return fmt.Sprintf("render task already started (state %s)", e.state)
}

// Option configures a Task.
type Option func(*Task)

// WithWorkers bounds how many frames and audio chunks render at once.
func WithWorkers(n int) Option {
	return func(t *Task) {
		if n > 0 {
			t.workers = n
		}
	}
}

// WithAudioChunk sets how much audio one job renders.
func WithAudioChunk(d rational.Rational) Option {
	return func(t *Task) {
		if d.Sign() > 0 {
			t.audioChunk = d
		}
	}
}

// WithLogger sets the task's logger.
func WithLogger(l *zerolog.Logger) Option {
	return func(t *Task) {
		if l != nil {
			t.log = l.With().Str("pkg", "render").Logger()
		}
	}
}

// Task renders the parts of a viewer output its caches are missing. A task
// is single use: its rendering parameters never change, and Render may only
// be called once.
type Task struct {
	log    zerolog.Logger
	viewer *viewer.Output

	video params.VideoRenderingParams
	audio params.AudioRenderingParams

	renderer Renderer
	sink     FrameSink

	workers    int
	audioChunk rational.Rational

	// mu protects anchor and cancel.
	mu     sync.Mutex
	anchor rational.Rational
	cancel context.CancelFunc

	state     atomic.Int32
	cancelled atomic.Bool
	done      atomic.Int64
	total     atomic.Int64
}

// NewTask returns a task rendering v at the given parameters.
func NewTask(v *viewer.Output, video params.VideoRenderingParams, audio params.AudioRenderingParams,
	r Renderer, sink FrameSink, opts ...Option,
) *Task {
	t := &Task{
		log:        zerolog.Nop(),
		viewer:     v,
		video:      video,
		audio:      audio,
		renderer:   r,
		sink:       sink,
		workers:    1,
		audioChunk: rational.FromInt(defaultAudioChunkSeconds),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// MarshalZerologObject implements zerolog.LogObjectMarshaler.
func (t *Task) MarshalZerologObject(e *zerolog.Event) {
	e.Stringer(lState, t.State()).
		Stringer(lAnchor, t.AnchorPoint()).
		Int64("done", t.done.Load()).
		Int64("total", t.total.Load())
}

// VideoParams returns the parameters frames are rendered at.
func (t *Task) VideoParams() params.VideoRenderingParams { return t.video }

// AudioParams returns the parameters samples are rendered at.
func (t *Task) AudioParams() params.AudioRenderingParams { return t.audio }

// SetAnchorPoint sets the offset added to every reported time, placing the
// task's local, zero-based times within a larger timeline.
func (t *Task) SetAnchorPoint(a rational.Rational) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.anchor = a
}

// AnchorPoint returns the offset set by SetAnchorPoint.
func (t *Task) AnchorPoint() rational.Rational {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.anchor
}

// State returns the task's current state.
func (t *Task) State() State {
	return State(t.state.Load())
}

func (t *Task) setState(s State) {
	t.state.Store(int32(s))
	t.log.Debug().Stringer(lState, s).Msg("render task state")
}

// Cancel stops dispatching new work. Jobs already running may still finish
// and report; their results land only where the caches still want them.
func (t *Task) Cancel() {
	t.cancelled.Store(true)

	t.mu.Lock()
	cancel := t.cancel
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// IsCancelled reports whether Cancel was called.
func (t *Task) IsCancelled() bool {
	return t.cancelled.Load()
}

// Progress returns the finished fraction of the task's frames and chunks.
func (t *Task) Progress() float64 {
	total := t.total.Load()
	if total == 0 {
		if t.State() == StateCompleted {
			return 1
		}

		return 0
	}

	return float64(t.done.Load()) / float64(total)
}

// frameJob renders one frame and reports it for every time sharing its hash.
// The hash is empty when it can only be known after rendering.
type frameJob struct {
	hash  string
	times []rational.Rational
}

// Render renders whatever videoRanges and audioRanges are missing from the
// viewer's caches, and blocks until done. Cancellation, whether through
// Cancel or ctx, is not an error: the task ends in StateCancelled and Render
// returns nil. With useDiskCache, frames whose hash the sink already stores
// are reported without being rendered or downloaded.
func (t *Task) Render(ctx context.Context, videoRanges, audioRanges timerange.List, useDiskCache bool) error {
	if !t.state.CompareAndSwap(int32(StateConstructed), int32(StateEnumerating)) {
		return &alreadyStartedError{state: t.State()}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	t.mu.Lock()
	t.cancel = cancel
	anchor := t.anchor
	t.mu.Unlock()

	if t.cancelled.Load() {
		t.setState(StateCancelled)

		return nil
	}

	jobTime := cache.NewJobTime()

	times := t.missingFrames(videoRanges)
	chunks := t.missingAudio(audioRanges)
	t.total.Store(int64(len(times) + len(chunks)))

	frames, err := t.groupFrames(times, useDiskCache, jobTime, anchor)
	if err != nil {
		t.setState(StateFailed)

		return err
	}

	t.log.Info().Int(lFrames, len(times)).Int(lJobs, len(frames)).Int(lChunks, len(chunks)).
		Int64(lJobTime, jobTime).Int(lWorkers, t.workers).Msg("rendering")

	jobs := make([]func(context.Context) error, 0, len(frames)+len(chunks))

	for _, j := range frames {
		jobs = append(jobs, func(ctx context.Context) error {
			return t.renderFrame(ctx, j, useDiskCache, jobTime, anchor)
		})
	}

	for _, c := range chunks {
		jobs = append(jobs, func(ctx context.Context) error {
			return t.renderAudio(ctx, c, jobTime, anchor)
		})
	}

	t.setState(StateRendering)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.workers)

	for _, job := range jobs {
		if t.cancelled.Load() || gctx.Err() != nil {
			break
		}

		g.Go(func() error { return job(gctx) })
	}

	t.setState(StateDownloading)

	err = g.Wait()

	switch {
	case t.cancelled.Load() || ctx.Err() != nil:
		t.setState(StateCancelled)

		return nil
	case err != nil:
		t.setState(StateFailed)

		return err
	}

	t.setState(StateCompleted)

	return nil
}

// missingFrames returns, in order, the frame times in ranges the viewer's
// frame cache doesn't hold.
func (t *Task) missingFrames(ranges timerange.List) []rational.Rational {
	if ranges.IsEmpty() {
		return nil
	}

	if !t.video.IsValid() {
		t.log.Warn().Msg("invalid video rendering params, skipping video")

		return nil
	}

	fc := t.viewer.VideoFrameCache()

	var times []rational.Rational
	for _, r := range ranges.Ranges() {
		times = append(times, fc.MissingFrames(r)...)
	}

	slices.SortFunc(times, rational.Rational.Cmp)

	return slices.Compact(times)
}

// missingAudio splits what the viewer's sample cache doesn't hold into
// chunks of at most audioChunk.
func (t *Task) missingAudio(ranges timerange.List) []timerange.TimeRange {
	if ranges.IsEmpty() {
		return nil
	}

	if !t.audio.IsValid() {
		t.log.Warn().Msg("invalid audio rendering params, skipping audio")

		return nil
	}

	sc := t.viewer.AudioPlaybackCache()

	var missing timerange.List
	for _, r := range ranges.Ranges() {
		for _, m := range sc.Missing(r).Ranges() {
			missing.Insert(m)
		}
	}

	var chunks []timerange.TimeRange

	for _, m := range missing.Ranges() {
		for in := m.In(); in.Less(m.Out()); in = in.Add(t.audioChunk) {
			chunks = append(chunks, timerange.New(in, rational.MinOf(in.Add(t.audioChunk), m.Out())))
		}
	}

	return chunks
}

// groupFrames turns frame times into jobs. Without a Hasher every time is its
// own job. With one, times sharing a hash share a job, and hashes already on
// disk are reported right away.
func (t *Task) groupFrames(times []rational.Rational, useDiskCache bool, jobTime int64,
	anchor rational.Rational,
) ([]frameJob, error) {
	hasher, ok := t.renderer.(Hasher)
	if !ok {
		jobs := make([]frameJob, len(times))
		for i, tm := range times {
			jobs[i] = frameJob{times: []rational.Rational{tm}}
		}

		return jobs, nil
	}

	var order []string

	byHash := make(map[string][]rational.Rational)

	for _, tm := range times {
		h, err := hasher.FrameHash(tm, t.video)
		if err != nil {
			return nil, fmt.Errorf("hashing frame at %v: %w", tm, err)
		}

		if _, seen := byHash[h]; !seen {
			order = append(order, h)
		}

		byHash[h] = append(byHash[h], tm)
	}

	jobs := make([]frameJob, 0, len(order))

	for _, h := range order {
		if t.onDisk(h, useDiskCache) {
			t.report(h, byHash[h], jobTime, anchor)

			continue
		}

		jobs = append(jobs, frameJob{hash: h, times: byHash[h]})
	}

	return jobs, nil
}

func (t *Task) onDisk(hash string, useDiskCache bool) bool {
	if !useDiskCache {
		return false
	}

	checker, ok := t.sink.(DiskChecker)

	return ok && checker.HasFrame(hash)
}

func (t *Task) report(hash string, times []rational.Rational, jobTime int64, anchor rational.Rational) {
	placed := make([]rational.Rational, len(times))
	for i, tm := range times {
		placed[i] = tm.Add(anchor)
	}

	t.sink.FrameDownloaded(hash, placed, jobTime)
	t.done.Add(int64(len(times)))
}

func (t *Task) renderFrame(ctx context.Context, j frameJob, useDiskCache bool, jobTime int64,
	anchor rational.Rational,
) error {
	f, err := t.renderer.RenderFrame(ctx, j.times[0], t.video)
	if err != nil {
		return fmt.Errorf("rendering frame at %v: %w", j.times[0], err)
	}

	hash := j.hash
	if hash == "" {
		hash = FrameHash(f)
	}

	// Hashed jobs were already checked against the disk.
	if j.hash != "" || !t.onDisk(hash, useDiskCache) {
		if err := t.sink.DownloadFrame(ctx, f, hash); err != nil {
			return fmt.Errorf("downloading frame %s: %w", hash, err)
		}
	}

	t.report(hash, j.times, jobTime, anchor)

	return nil
}

func (t *Task) renderAudio(ctx context.Context, r timerange.TimeRange, jobTime int64, anchor rational.Rational) error {
	samples, err := t.renderer.RenderAudio(ctx, r, t.audio)
	if err != nil {
		return fmt.Errorf("rendering audio %v: %w", r, err)
	}

	t.sink.AudioDownloaded(r.Shifted(anchor), samples, jobTime)
	t.done.Add(1)

	return nil
}
