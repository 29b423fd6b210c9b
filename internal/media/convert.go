// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package media

import (
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/evolution-gaming/chromaswap/internal/logging"
	"github.com/evolution-gaming/chromaswap/internal/lw"
	"github.com/evolution-gaming/chromaswap/internal/tools"
)

// Defaults for preparing source footage.
const (
	DefaultConvertFPS  = 10
	DefaultConvertSize = "1920x1080"
)

// ErrConvert is returned when a conversion can not be done.
var ErrConvert = errors.New("conversion failed")

// ConvertOptions define geometry and rate of converted video.
type ConvertOptions struct {
	FPS    int
	Width  int
	Height int
}

// Validate checks that options describe a usable output.
func (o ConvertOptions) Validate() error {
	if o.FPS <= 0 {
		return fmt.Errorf("%w: fps must be positive, got %d", ErrConvert, o.FPS)
	}
	if o.Width <= 0 || o.Height <= 0 {
		return fmt.Errorf("%w: invalid size %dx%d", ErrConvert, o.Width, o.Height)
	}
	return nil
}

// ParseSize parses "WxH" (ffmpeg's "W:H" is accepted as well).
func ParseSize(s string) (width, height int, err error) {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == 'x' || r == 'X' || r == ':' })
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("size %q: expecting WxH", s)
	}
	if width, err = strconv.Atoi(parts[0]); err != nil {
		return 0, 0, fmt.Errorf("size %q: %w", s, err)
	}
	if height, err = strconv.Atoi(parts[1]); err != nil {
		return 0, 0, fmt.Errorf("size %q: %w", s, err)
	}
	return width, height, nil
}

// Converter re-encodes videos to H.264 mp4 with fixed size and frame rate, which is how
// green screen footage is prepared before background replacement.
type Converter struct {
	ffmpegPath string
}

// NewConverter creates Converter, empty ffmpegPath means tools lookup.
func NewConverter(ffmpegPath string) (*Converter, error) {
	if ffmpegPath == "" {
		p, err := tools.FfmpegPath()
		if err != nil {
			return nil, err
		}
		ffmpegPath = p
	}
	return &Converter{ffmpegPath: ffmpegPath}, nil
}

func (c *Converter) args(in, out string, o ConvertOptions) []string {
	return []string{
		"-hide_banner", "-loglevel", "error", "-nostdin", "-y",
		"-i", in,
		"-c:v", "libx264",
		"-vf", fmt.Sprintf("scale=%d:%d", o.Width, o.Height),
		"-r", strconv.Itoa(o.FPS),
		"-f", "mp4",
		out,
	}
}

// Convert encodes in into out, overwriting out.
func (c *Converter) Convert(in, out string, o ConvertOptions) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if absIn, absOut := absPath(in), absPath(out); absIn == absOut {
		return fmt.Errorf("%w: output %s would overwrite input", ErrConvert, out)
	}

	stderr := lw.NewTailWriter(stderrTailSize)
	cmd := exec.Command(c.ffmpegPath, c.args(in, out, o)...) //#nosec G204
	cmd.Stderr = stderr
	logging.Debugf("Convert command: %s", cmd)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %s: %v: %s", ErrConvert, in, err, stderr)
	}
	return nil
}

func absPath(p string) string {
	if a, err := filepath.Abs(p); err == nil {
		return a
	}
	return filepath.Clean(p)
}
