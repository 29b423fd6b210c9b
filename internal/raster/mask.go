// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package raster

import (
	"image"

	"golang.org/x/image/draw"
)

const (
	// MaskOn marks a selected mask cell.
	MaskOn uint8 = 255
	// MaskOff marks an unselected mask cell.
	MaskOff uint8 = 0
	// Resized masks are cut back to binary at this level.
	maskThreshold uint8 = 128
)

// Mask is a single channel binary grid, cells are either MaskOn or MaskOff.
type Mask struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewMask allocates an all-off mask.
func NewMask(width, height int) *Mask {
	if width < 0 || height < 0 {
		width, height = 0, 0
	}
	return &Mask{Width: width, Height: height, Pix: make([]uint8, width*height)}
}

// NewFilledMask allocates a mask with all cells set to v.
func NewFilledMask(width, height int, v uint8) *Mask {
	m := NewMask(width, height)
	if v != 0 {
		for i := range m.Pix {
			m.Pix[i] = v
		}
	}
	return m
}

// Bounds returns mask rectangle anchored at origin.
func (m *Mask) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.Width, m.Height)
}

// At returns mask value at (x, y).
func (m *Mask) At(x, y int) uint8 {
	return m.Pix[y*m.Width+x]
}

// Set sets mask value at (x, y).
func (m *Mask) Set(x, y int, v uint8) {
	m.Pix[y*m.Width+x] = v
}

// Clone returns a deep copy of the mask.
func (m *Mask) Clone() *Mask {
	c := &Mask{Width: m.Width, Height: m.Height, Pix: make([]uint8, len(m.Pix))}
	copy(c.Pix, m.Pix)
	return c
}

// Inverted returns a new mask with every cell flipped.
func (m *Mask) Inverted() *Mask {
	c := NewMask(m.Width, m.Height)
	for i, v := range m.Pix {
		c.Pix[i] = ^v
	}
	return c
}

// Count returns number of non-zero cells.
func (m *Mask) Count() int {
	var n int
	for _, v := range m.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

// Coverage returns fraction of non-zero cells, 0 for an empty mask.
func (m *Mask) Coverage() float64 {
	if len(m.Pix) == 0 {
		return 0
	}
	return float64(m.Count()) / float64(len(m.Pix))
}

// ClearRect switches off every cell of r that lies inside the mask.
func (m *Mask) ClearRect(r image.Rectangle) {
	r = r.Intersect(m.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := m.Pix[y*m.Width : (y+1)*m.Width]
		for x := r.Min.X; x < r.Max.X; x++ {
			row[x] = MaskOff
		}
	}
}

// Resize scales the mask with bilinear interpolation and thresholds the result so it
// stays binary.
func (m *Mask) Resize(width, height int) *Mask {
	if width == m.Width && height == m.Height {
		return m.Clone()
	}
	if width <= 0 || height <= 0 {
		return NewMask(0, 0)
	}
	dst := image.NewGray(image.Rect(0, 0, width, height))
	if len(m.Pix) != 0 {
		src := &image.Gray{Pix: m.Pix, Stride: m.Width, Rect: m.Bounds()}
		draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	}
	out := &Mask{Width: width, Height: height, Pix: dst.Pix}
	for i, v := range out.Pix {
		if v >= maskThreshold {
			out.Pix[i] = MaskOn
		} else {
			out.Pix[i] = MaskOff
		}
	}
	return out
}
