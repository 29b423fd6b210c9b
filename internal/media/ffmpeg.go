// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package media

import (
	"errors"
	"fmt"
	"io"
	"os/exec"

	"github.com/evolution-gaming/chromaswap/internal/logging"
	"github.com/evolution-gaming/chromaswap/internal/lw"
	"github.com/evolution-gaming/chromaswap/internal/raster"
	"github.com/evolution-gaming/chromaswap/internal/tools"
	"github.com/evolution-gaming/chromaswap/internal/video"
	"github.com/google/shlex"
)

// FfmpegBackend decodes and encodes through ffmpeg child processes exchanging raw
// bgr24 frames over pipes.
type FfmpegBackend struct {
	ffmpegPath  string
	prober      video.MetadataExtractor
	encoderArgs []string
}

// NewFfmpegBackend creates FfmpegBackend, tool paths default to tools lookup.
func NewFfmpegBackend(opts Options) (*FfmpegBackend, error) {
	var err error
	ffmpegPath := opts.FfmpegPath
	if ffmpegPath == "" {
		if ffmpegPath, err = tools.FfmpegPath(); err != nil {
			return nil, err
		}
	}
	ffprobePath := opts.FfprobePath
	if ffprobePath == "" {
		if ffprobePath, err = tools.FfprobePath(); err != nil {
			return nil, err
		}
	}
	encArgs := opts.EncoderArgs
	if encArgs == "" {
		encArgs = DefaultEncoderArgs
	}
	args, err := shlex.Split(encArgs)
	if err != nil {
		return nil, fmt.Errorf("NewFfmpegBackend() encoder args: %w", err)
	}

	return &FfmpegBackend{
		ffmpegPath:  ffmpegPath,
		prober:      tools.Ffprobe{ExePath: ffprobePath},
		encoderArgs: args,
	}, nil
}

func (b *FfmpegBackend) Name() string { return DefaultBackend }

// Rotated input is decoded upright (ffmpeg autorotate), prober metadata reports the
// geometry swapped accordingly.
func (b *FfmpegBackend) decodeArgs(videoFile string) []string {
	return []string{
		"-hide_banner", "-loglevel", "error", "-nostdin",
		"-i", videoFile,
		"-map", "0:v:0",
		"-f", "rawvideo", "-pix_fmt", "bgr24",
		"pipe:1",
	}
}

func (b *FfmpegBackend) encodeArgs(videoFile string, meta video.Metadata) []string {
	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "rawvideo", "-pix_fmt", "bgr24",
		"-s", fmt.Sprintf("%dx%d", meta.Width, meta.Height),
		"-r", meta.FrameRate,
		"-i", "pipe:0",
	}
	args = append(args, b.encoderArgs...)
	return append(args, videoFile)
}

// OpenSource starts a decoder process for videoFile.
func (b *FfmpegBackend) OpenSource(videoFile string) (video.FrameSource, error) {
	meta, err := b.prober.ExtractMetadata(videoFile)
	if err != nil {
		return nil, err
	}
	if meta.Width <= 0 || meta.Height <= 0 {
		return nil, fmt.Errorf("%s: %w: %dx%d", videoFile, raster.ErrGeometry, meta.Width, meta.Height)
	}

	s := &ffmpegSource{meta: meta, stderr: lw.NewTailWriter(stderrTailSize)}
	s.cmd = exec.Command(b.ffmpegPath, b.decodeArgs(videoFile)...) //#nosec G204
	s.cmd.Stderr = s.stderr
	stdout, err := s.cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("decoder stdout: %w", err)
	}
	logging.Debugf("Decoder command: %s", s.cmd)
	if err := s.cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting decoder: %w", err)
	}
	s.raw = video.NewRawReader(stdout, meta.Width, meta.Height)
	return s, nil
}

// CreateSink starts an encoder process writing videoFile.
func (b *FfmpegBackend) CreateSink(videoFile string, meta video.Metadata) (video.FrameSink, error) {
	if meta.Width <= 0 || meta.Height <= 0 {
		return nil, fmt.Errorf("%s: %w: %dx%d", videoFile, raster.ErrGeometry, meta.Width, meta.Height)
	}
	if _, err := meta.FPS(); err != nil {
		return nil, err
	}

	s := &ffmpegSink{stderr: lw.NewTailWriter(stderrTailSize)}
	s.cmd = exec.Command(b.ffmpegPath, b.encodeArgs(videoFile, meta)...) //#nosec G204
	s.cmd.Stderr = s.stderr
	stdin, err := s.cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("encoder stdin: %w", err)
	}
	logging.Debugf("Encoder command: %s", s.cmd)
	if err := s.cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting encoder: %w", err)
	}
	s.stdin = stdin
	s.raw = video.NewRawWriter(stdin, meta.Width, meta.Height)
	return s, nil
}

type ffmpegSource struct {
	cmd     *exec.Cmd
	raw     *video.RawReader
	meta    video.Metadata
	stderr  *lw.TailWriter
	waited  bool
	waitErr error
}

func (s *ffmpegSource) Meta() video.Metadata { return s.meta }

func (s *ffmpegSource) Next() (*raster.Frame, error) {
	f, err := s.raw.Next()
	if err == nil {
		return f, nil
	}
	if errors.Is(err, io.EOF) {
		// Clean end of pipe, but the decoder may still have failed.
		if werr := s.wait(); werr != nil {
			return nil, fmt.Errorf("decoder: %w: %s", werr, s.stderr)
		}
		return nil, io.EOF
	}
	return nil, fmt.Errorf("decoder: %w: %s", err, s.stderr)
}

func (s *ffmpegSource) wait() error {
	if !s.waited {
		s.waitErr = s.cmd.Wait()
		s.waited = true
	}
	return s.waitErr
}

// Close terminates the decoder if it is still running.
func (s *ffmpegSource) Close() error {
	if !s.waited && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
		_ = s.wait()
	}
	return nil
}

type ffmpegSink struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	raw    *video.RawWriter
	stderr *lw.TailWriter
	closed bool
}

func (s *ffmpegSink) Write(f *raster.Frame) error {
	if err := s.raw.Write(f); err != nil {
		return fmt.Errorf("encoder: %w: %s", err, s.stderr)
	}
	return nil
}

// Close signals end of input and waits for encoder to finalize the file.
func (s *ffmpegSink) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	cerr := s.stdin.Close()
	if err := s.cmd.Wait(); err != nil {
		return fmt.Errorf("encoder: %w: %s", err, s.stderr)
	}
	if cerr != nil {
		return fmt.Errorf("encoder stdin: %w", cerr)
	}
	return nil
}
