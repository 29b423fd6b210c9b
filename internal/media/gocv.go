// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build gocv

package media

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/evolution-gaming/chromaswap/internal/raster"
	"github.com/evolution-gaming/chromaswap/internal/video"
	"gocv.io/x/gocv"
)

// GocvFourCC is the output codec of the OpenCV backend.
const GocvFourCC = "mp4v"

func init() {
	registry["gocv"] = func(Options) (video.Backend, error) { return &GocvBackend{}, nil }
}

// GocvBackend decodes and encodes in process through OpenCV.
type GocvBackend struct{}

func (b *GocvBackend) Name() string { return "gocv" }

func (b *GocvBackend) OpenSource(videoFile string) (video.FrameSource, error) {
	vc, err := gocv.VideoCaptureFile(videoFile)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", videoFile, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("opening %s: capture not opened", videoFile)
	}
	fps := vc.Get(gocv.VideoCaptureFPS)
	meta := video.Metadata{
		Width:      int(vc.Get(gocv.VideoCaptureFrameWidth)),
		Height:     int(vc.Get(gocv.VideoCaptureFrameHeight)),
		FrameRate:  strconv.FormatFloat(fps, 'f', -1, 64),
		FrameCount: int(vc.Get(gocv.VideoCaptureFrameCount)),
		CodecName:  vc.CodecString(),
	}
	if fps > 0 && meta.FrameCount > 0 {
		meta.Duration = math.Round(float64(meta.FrameCount)/fps*1000) / 1000
	}
	if meta.Width <= 0 || meta.Height <= 0 {
		vc.Close()
		return nil, fmt.Errorf("%s: %w: %dx%d", videoFile, raster.ErrGeometry, meta.Width, meta.Height)
	}
	return &gocvSource{cap: vc, meta: meta, mat: gocv.NewMat()}, nil
}

func (b *GocvBackend) CreateSink(videoFile string, meta video.Metadata) (video.FrameSink, error) {
	fps, err := meta.FPS()
	if err != nil {
		return nil, err
	}
	w, err := gocv.VideoWriterFile(videoFile, GocvFourCC, fps, meta.Width, meta.Height, true)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", videoFile, err)
	}
	if !w.IsOpened() {
		w.Close()
		return nil, fmt.Errorf("creating %s: writer not opened", videoFile)
	}
	return &gocvSink{w: w, width: meta.Width, height: meta.Height}, nil
}

type gocvSource struct {
	cap  *gocv.VideoCapture
	meta video.Metadata
	mat  gocv.Mat
}

func (s *gocvSource) Meta() video.Metadata { return s.meta }

// Next returns io.EOF on any failed read, OpenCV does not tell end of stream apart
// from decoding errors.
func (s *gocvSource) Next() (*raster.Frame, error) {
	if ok := s.cap.Read(&s.mat); !ok || s.mat.Empty() {
		return nil, io.EOF
	}
	if s.mat.Type() != gocv.MatTypeCV8UC3 {
		return nil, fmt.Errorf("unsupported frame type %v", s.mat.Type())
	}
	return raster.FrameFromBytes(s.mat.Cols(), s.mat.Rows(), s.mat.ToBytes())
}

func (s *gocvSource) Close() error {
	s.mat.Close()
	return s.cap.Close()
}

type gocvSink struct {
	w             *gocv.VideoWriter
	width, height int
}

func (s *gocvSink) Write(f *raster.Frame) error {
	if f.Width != s.width || f.Height != s.height {
		return fmt.Errorf("%w: frame %dx%d, stream %dx%d",
			raster.ErrGeometry, f.Width, f.Height, s.width, s.height)
	}
	mat, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC3, f.Pix)
	if err != nil {
		return fmt.Errorf("frame to Mat: %w", err)
	}
	defer mat.Close()
	return s.w.Write(mat)
}

func (s *gocvSink) Close() error {
	return s.w.Close()
}
