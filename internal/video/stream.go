// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package video

import (
	"errors"
	"fmt"
	"io"

	"github.com/evolution-gaming/chromaswap/internal/raster"
)

// ErrTruncatedFrame is returned when a stream ends in the middle of a frame.
var ErrTruncatedFrame = errors.New("truncated frame")

// FrameSource is a forward only, single pass sequence of decoded frames.
type FrameSource interface {
	// Meta returns stream metadata known at open time.
	Meta() Metadata
	// Next returns the next frame, or io.EOF once the stream is exhausted. Any other
	// error means the stream broke and no more frames follow.
	Next() (*raster.Frame, error)
	Close() error
}

// FrameSink consumes frames in presentation order.
type FrameSink interface {
	Write(*raster.Frame) error
	// Close flushes and finalizes the output.
	Close() error
}

// Backend opens frame sources and creates frame sinks for video files.
type Backend interface {
	Name() string
	OpenSource(videoFile string) (FrameSource, error)
	// CreateSink creates an output video with geometry and rate taken from meta.
	CreateSink(videoFile string, meta Metadata) (FrameSink, error)
}

// RawReader splits a stream of packed bgr24 pixels into frames.
type RawReader struct {
	r      io.Reader
	width  int
	height int
}

// NewRawReader creates RawReader for frames of given size.
func NewRawReader(r io.Reader, width, height int) *RawReader {
	return &RawReader{r: r, width: width, height: height}
}

// Next reads one frame. A clean end of stream on a frame boundary yields io.EOF.
func (s *RawReader) Next() (*raster.Frame, error) {
	buf := make([]byte, s.width*s.height*3)
	n, err := io.ReadFull(s.r, buf)
	switch {
	case err == io.EOF:
		return nil, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		return nil, fmt.Errorf("%w: got %d of %d bytes", ErrTruncatedFrame, n, len(buf))
	case err != nil:
		return nil, fmt.Errorf("reading frame: %w", err)
	}
	return raster.FrameFromBytes(s.width, s.height, buf)
}

// RawWriter serializes frames as packed bgr24 pixels.
type RawWriter struct {
	w      io.Writer
	width  int
	height int
}

// NewRawWriter creates RawWriter accepting frames of given size only.
func NewRawWriter(w io.Writer, width, height int) *RawWriter {
	return &RawWriter{w: w, width: width, height: height}
}

// Write writes a single frame.
func (s *RawWriter) Write(f *raster.Frame) error {
	if f.Width != s.width || f.Height != s.height {
		return fmt.Errorf("%w: frame %dx%d, stream %dx%d",
			raster.ErrGeometry, f.Width, f.Height, s.width, s.height)
	}
	if _, err := s.w.Write(f.Pix); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	return nil
}
