// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package media provides video.Backend implementations that decode and encode video
// files frame by frame.
package media

import (
	"errors"
	"fmt"
	"sort"

	"github.com/evolution-gaming/chromaswap/internal/video"
)

// ErrUnknownBackend is returned by NewBackend for unregistered backend names.
var ErrUnknownBackend = errors.New("unknown media backend")

const (
	// DefaultBackend is always compiled in.
	DefaultBackend = "ffmpeg"
	// DefaultEncoderArgs produce MPEG-4 Part 2 video, the codec behind the "mp4v" FourCC.
	DefaultEncoderArgs = "-c:v mpeg4 -q:v 5"
	// Size of child process diagnostics kept for error messages.
	stderrTailSize = 4 * 1024
)

// Options configure backend creation. Each backend uses the subset relevant to it.
type Options struct {
	FfmpegPath  string
	FfprobePath string
	// Output encoder arguments for ffmpeg, shell quoting rules apply.
	EncoderArgs string
}

type factory func(Options) (video.Backend, error)

var registry = map[string]factory{
	DefaultBackend: func(o Options) (video.Backend, error) { return NewFfmpegBackend(o) },
}

// NewBackend creates a backend by name.
func NewBackend(name string, opts Options) (video.Backend, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q, available: %v", ErrUnknownBackend, name, Backends())
	}
	return f(opts)
}

// Backends lists names of compiled in backends.
func Backends() []string {
	names := make([]string, 0, len(registry))
	for k := range registry {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
