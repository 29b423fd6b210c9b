// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package batch drives background replacement over sets of videos.
package batch

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/evolution-gaming/chromaswap/internal/framestat"
	"github.com/evolution-gaming/chromaswap/internal/keying"
	"github.com/evolution-gaming/chromaswap/internal/logging"
	"github.com/evolution-gaming/chromaswap/internal/raster"
	"github.com/evolution-gaming/chromaswap/internal/video"
)

var (
	// ErrResource marks failures to open, create or finalize inputs and outputs.
	ErrResource = errors.New("resource error")
	// ErrProcessing marks failures while streaming frames.
	ErrProcessing = errors.New("processing error")
)

// progressEvery sets how often frame progress is logged.
const progressEvery = 10

// State is a frame loop state.
type State int

const (
	StateOpening State = iota
	StateStreaming
	StateClosing
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateOpening:
		return "opening"
	case StateStreaming:
		return "streaming"
	case StateClosing:
		return "closing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Observer receives per-frame timing of a running job. metric.Collector is the
// production implementation.
type Observer interface {
	ObserveFrame(d time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveFrame(time.Duration) {}

// Job replaces the background of a single video.
type Job struct {
	// Name is the source file name without extension.
	Name       string
	SourceFile string
	OutputFile string
	Background string
	Params     keying.Params
}

// RunResult contains the outcome of a single Job run.
type RunResult struct {
	Job
	// State is StateDone on success and StateFailed otherwise.
	State State
	// FailedIn is the state the job was in when it failed.
	FailedIn State
	Meta     video.Metadata
	Frames   uint
	Stats    framestat.FrameStats
	Elapsed  time.Duration
	Err      error
}

// OK reports whether the job finished without errors.
func (r *RunResult) OK() bool {
	return r.State == StateDone
}

func (r *RunResult) fail(err error) {
	if r.Err == nil {
		r.FailedIn = r.State
		r.Err = err
	}
	r.State = StateFailed
}

// Run executes the job. It never panics, every failure ends up in RunResult.Err
// wrapping ErrResource or ErrProcessing.
func (j *Job) Run(backend video.Backend, obs Observer) RunResult {
	if obs == nil {
		obs = nopObserver{}
	}
	r := RunResult{Job: *j, State: StateOpening}
	start := time.Now()
	defer func() { r.Elapsed = time.Since(start) }()

	log := logging.WithFields(logging.Fields{"video": j.Name})
	log.Debugf("Opening %s with %s backend", j.SourceFile, backend.Name())

	src, sink, pipeline, err := j.open(backend)
	if err != nil {
		r.fail(err)
		return r
	}
	r.Meta = src.Meta()
	log.Infof("Processing %s (%dx%d @ %s fps, ~%d frames)",
		j.SourceFile, r.Meta.Width, r.Meta.Height, r.Meta.FrameRate, r.Meta.FrameCount)

	r.State = StateStreaming
	if err := j.stream(src, sink, pipeline, obs, &r); err != nil {
		r.fail(err)
	}

	if r.State != StateFailed {
		r.State = StateClosing
	}
	if err := sink.Close(); err != nil {
		r.fail(fmt.Errorf("%w: finalizing %s: %w", ErrResource, j.OutputFile, err))
	}
	if err := src.Close(); err != nil {
		// Decoder was already drained, close errors carry no information about output.
		log.Debugf("Closing source: %s", err)
	}

	if r.State == StateFailed {
		log.Infof("Failed after %d frames: %s", r.Frames, r.Err)
		return r
	}
	r.State = StateDone
	log.Infof("Done %s -> %s (%d frames)", j.SourceFile, j.OutputFile, r.Frames)
	return r
}

// open acquires source, background and sink. Anything acquired is released on error.
func (j *Job) open(backend video.Backend) (video.FrameSource, video.FrameSink, *keying.Pipeline, error) {
	src, err := backend.OpenSource(j.SourceFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w: opening %s: %w", ErrResource, j.SourceFile, err)
	}
	meta := src.Meta()
	if meta.Width <= 0 || meta.Height <= 0 {
		src.Close()
		return nil, nil, nil, fmt.Errorf("%w: %s has invalid frame size %dx%d",
			ErrResource, j.SourceFile, meta.Width, meta.Height)
	}

	bg, err := raster.LoadImage(j.Background)
	if err != nil {
		src.Close()
		return nil, nil, nil, fmt.Errorf("%w: loading background: %w", ErrResource, err)
	}
	pipeline, err := keying.NewPipeline(bg.Resize(meta.Width, meta.Height), j.Params)
	if err != nil {
		src.Close()
		return nil, nil, nil, fmt.Errorf("%w: %w", ErrResource, err)
	}

	sink, err := backend.CreateSink(j.OutputFile, meta)
	if err != nil {
		src.Close()
		return nil, nil, nil, fmt.Errorf("%w: creating %s: %w", ErrResource, j.OutputFile, err)
	}
	return src, sink, pipeline, nil
}

func (j *Job) stream(src video.FrameSource, sink video.FrameSink, p *keying.Pipeline, obs Observer, r *RunResult) error {
	log := logging.WithFields(logging.Fields{"video": j.Name})
	total := r.Meta.FrameCount

	for {
		frame, err := src.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: reading frame %d: %w", ErrProcessing, r.Frames+1, err)
		}

		start := time.Now()
		out, st, err := processFrame(p, frame)
		if err != nil {
			return fmt.Errorf("%w: frame %d: %w", ErrProcessing, r.Frames+1, err)
		}
		if err := sink.Write(out); err != nil {
			return fmt.Errorf("%w: writing frame %d: %w", ErrResource, r.Frames+1, err)
		}
		obs.ObserveFrame(time.Since(start))

		r.Frames++
		r.Stats = append(r.Stats, st)
		if r.Frames == 1 || r.Frames%progressEvery == 0 {
			if total > 0 {
				log.Infof("Progress: %d/%d frames (%.1f%%)", r.Frames, total, float64(r.Frames)/float64(total)*100)
			} else {
				log.Infof("Progress: %d frames", r.Frames)
			}
		}
	}
}

// processFrame runs the pipeline and turns a panic into an error.
func processFrame(p *keying.Pipeline, frame *raster.Frame) (out *raster.Frame, st framestat.FrameStat, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pipeline panic: %v", rec)
		}
	}()
	return p.Process(frame)
}
