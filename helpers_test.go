// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path"
	"path/filepath"
	"testing"

	"github.com/evolution-gaming/chromaswap/internal/batch"
	"github.com/evolution-gaming/chromaswap/internal/media"
	"github.com/evolution-gaming/chromaswap/internal/raster"
	"github.com/evolution-gaming/chromaswap/internal/tools"
	"github.com/evolution-gaming/chromaswap/internal/video"
	"github.com/stretchr/testify/require"
)

const (
	fixWidth  = 8
	fixHeight = 6
)

var errBrokenVideo = errors.New("broken video")

// fixGreenFrame creates a green screen frame with a 2x2 red subject.
func fixGreenFrame() *raster.Frame {
	f := raster.NewFrame(fixWidth, fixHeight)
	f.Fill(0, 255, 0)
	for y := 2; y < 4; y++ {
		for x := 3; x < 5; x++ {
			f.SetBGR(x, y, 0, 0, 255)
		}
	}
	return f
}

type memSource struct {
	frames []*raster.Frame
	pos    int
}

func (s *memSource) Meta() video.Metadata {
	return video.Metadata{Width: fixWidth, Height: fixHeight, FrameRate: "25/1", Duration: 0.12, FrameCount: len(s.frames)}
}

func (s *memSource) Next() (*raster.Frame, error) {
	if s.pos >= len(s.frames) {
		return nil, io.EOF
	}
	f := s.frames[s.pos]
	s.pos++
	return f, nil
}

func (s *memSource) Close() error { return nil }

type memSink struct {
	frames []*raster.Frame
}

func (s *memSink) Write(f *raster.Frame) error {
	s.frames = append(s.frames, f)
	return nil
}

func (s *memSink) Close() error { return nil }

// memBackend decodes every video as three synthetic frames and keeps encoded frames in
// memory. Videos named "broken.*" fail to open.
type memBackend struct {
	sinks map[string]*memSink
}

func newMemBackend() *memBackend {
	return &memBackend{sinks: map[string]*memSink{}}
}

func (b *memBackend) Name() string { return "mem" }

func (b *memBackend) OpenSource(videoFile string) (video.FrameSource, error) {
	if batch.Stem(videoFile) == "broken" {
		return nil, errBrokenVideo
	}
	return &memSource{frames: []*raster.Frame{fixGreenFrame(), fixGreenFrame(), fixGreenFrame()}}, nil
}

func (b *memBackend) CreateSink(videoFile string, _ video.Metadata) (video.FrameSink, error) {
	s := &memSink{}
	b.sinks[videoFile] = s
	return s, nil
}

// backendFactory returns App.newBackend replacement serving given backend.
func backendFactory(b video.Backend) func(string, media.Options) (video.Backend, error) {
	return func(string, media.Options) (video.Backend, error) {
		return b, nil
	}
}

// fixImage writes a solid color PNG image.
func fixImage(t *testing.T, file string, w, h int, c color.RGBA) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	fd, err := os.Create(file)
	require.NoError(t, err)
	defer fd.Close()
	require.NoError(t, png.Encode(fd, img))
}

// fixProject creates base directory with bg/ holding given background images and green/
// holding empty video files.
func fixProject(t *testing.T, backgrounds []string, videos []string) string {
	t.Helper()
	base := t.TempDir()
	for _, d := range []string{batch.BackgroundDirName, batch.GreenDirName} {
		require.NoError(t, os.Mkdir(path.Join(base, d), 0o755))
	}
	for _, bg := range backgrounds {
		fixImage(t, path.Join(base, batch.BackgroundDirName, bg), 16, 12, color.RGBA{B: 255, A: 255})
	}
	for _, v := range videos {
		require.NoError(t, os.WriteFile(path.Join(base, batch.GreenDirName, v), nil, 0o644))
	}
	// Resolve symlinks (e.g. /tmp on macOS) since App works with absolute paths.
	base, err := filepath.EvalSymlinks(base)
	require.NoError(t, err)
	return base
}

// fixToolsConfig writes config file which points to fake ffmpeg tools so configuration
// verification passes without ffmpeg installed.
func fixToolsConfig(t *testing.T) string {
	t.Helper()
	ffmpeg, ffprobe := fixFakeTools(t)
	return fixConfigFile(t, "config.yaml", "ffmpeg_path: "+ffmpeg+"\nffprobe_path: "+ffprobe+"\n")
}

// fakeFfmpegScript records its arguments into the output file (last argument) and fails
// for inputs with "broken" in their name.
const fakeFfmpegScript = `#!/bin/sh
for a in "$@"; do out="$a"; done
case "$*" in
*broken*) echo "moov atom not found" >&2; exit 1 ;;
esac
echo "$@" > "$out"
`

// fixFakeFfmpegOnPath puts a fake ffmpeg executable first on PATH.
func fixFakeFfmpegOnPath(t *testing.T) {
	t.Helper()
	binDir := t.TempDir()
	require.NoError(t, os.WriteFile(path.Join(binDir, "ffmpeg"), []byte(fakeFfmpegScript), 0o755))
	t.Setenv("PATH", binDir+":"+os.Getenv("PATH"))
	t.Setenv(tools.FfmpegEnvVar, "")
}

// fixVideoDir creates a directory with empty files of given names.
func fixVideoDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		require.NoError(t, os.WriteFile(path.Join(dir, n), nil, 0o644))
	}
	return dir
}
