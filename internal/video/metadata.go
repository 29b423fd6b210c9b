// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Video metadata related constructs.

package video

import (
	"fmt"
	"strconv"
	"strings"
)

// Metadata type contains useful video stream metadata.
type Metadata struct {
	CodecName string  `json:"codec_name,omitempty"`
	FrameRate string  `json:"r_frame_rate,omitempty"`
	Duration  float64 `json:"duration,omitempty,string"`
	Width     int     `json:"width,omitempty"`
	Height    int     `json:"height,omitempty"`
	BitRate   int     `json:"bit_rate,omitempty,string"`
	// Container estimate, 0 when unknown.
	FrameCount int `json:"nb_frames,omitempty,string"`
	// Display rotation in degrees (0, 90, 180, 270). Width and Height are given as
	// displayed, i.e. already swapped for 90 and 270.
	Rotation int `json:"-"`
}

// FPS parses FrameRate, which is either a plain number or a "num/den" fraction.
func (m Metadata) FPS() (float64, error) {
	return ParseFrameRate(m.FrameRate)
}

// ParseFrameRate converts "30000/1001" or "25" notation into frames per second.
func ParseFrameRate(s string) (float64, error) {
	num, den, isFraction := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
	if err != nil {
		return 0, fmt.Errorf("frame rate %q: %w", s, err)
	}
	d := 1.0
	if isFraction {
		d, err = strconv.ParseFloat(strings.TrimSpace(den), 64)
		if err != nil {
			return 0, fmt.Errorf("frame rate %q: %w", s, err)
		}
	}
	if d == 0 || n <= 0 {
		return 0, fmt.Errorf("frame rate %q: not a positive rate", s)
	}
	return n / d, nil
}

// MetadataExtractor is the interface that wraps ExtractMetadata method.
type MetadataExtractor interface {
	ExtractMetadata(videoFile string) (Metadata, error)
}
