// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package keying implements the per-frame chroma key pipeline: color segmentation,
// subject placement, brightness/saturation matching and binary compositing.
package keying

import (
	"fmt"

	"github.com/evolution-gaming/chromaswap/internal/raster"
)

// HSV is an 8-bit hue, saturation, value triple. Hue spans 0-179, saturation and value
// span 0-255. Fields are plain ints so that out of range bounds remain representable.
type HSV struct {
	H, S, V int
}

func (c HSV) String() string {
	return fmt.Sprintf("%d,%d,%d", c.H, c.S, c.V)
}

// ColorRange is an inclusive HSV box. Bounds are compared linearly per channel, so a hue
// band wrapping around 0/179 can not be expressed.
type ColorRange struct {
	Lower HSV `json:"lower" yaml:"lower"`
	Upper HSV `json:"upper" yaml:"upper"`
}

// Contains reports whether given HSV pixel lies inside the range.
func (r ColorRange) Contains(h, s, v uint8) bool {
	return int(h) >= r.Lower.H && int(h) <= r.Upper.H &&
		int(s) >= r.Lower.S && int(s) <= r.Upper.S &&
		int(v) >= r.Lower.V && int(v) <= r.Upper.V
}

// Segment marks every pixel of frame whose HSV value lies within rng.
func Segment(frame *raster.Frame, rng ColorRange) *raster.Mask {
	mask := raster.NewMask(frame.Width, frame.Height)
	for i, j := 0, 0; i < len(frame.Pix); i, j = i+3, j+1 {
		h, s, v := raster.BGRToHSV(frame.Pix[i], frame.Pix[i+1], frame.Pix[i+2])
		if rng.Contains(h, s, v) {
			mask.Pix[j] = raster.MaskOn
		}
	}
	return mask
}
