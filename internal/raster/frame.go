// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package raster contains in-memory representations of decoded video frames and masks.
//
// Frames are stored as packed 8-bit BGR triplets, which is the native pixel order of
// both the ffmpeg "bgr24" raw video format and OpenCV matrices, so frames can be moved
// between decoder, pipeline and encoder without reordering.
package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// ErrGeometry is returned when pixel buffers do not match declared dimensions.
var ErrGeometry = errors.New("invalid frame geometry")

// Frame is a fixed size grid of 8-bit BGR pixels.
type Frame struct {
	Width  int
	Height int
	// Pix holds pixels in B, G, R order, row by row, stride is 3*Width.
	Pix []byte
}

// NewFrame allocates a black frame of given size.
func NewFrame(width, height int) *Frame {
	if width < 0 || height < 0 {
		width, height = 0, 0
	}
	return &Frame{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*3),
	}
}

// FrameFromBytes wraps raw BGR bytes into a Frame without copying.
func FrameFromBytes(width, height int, pix []byte) (*Frame, error) {
	if width < 0 || height < 0 || len(pix) != width*height*3 {
		return nil, fmt.Errorf("%w: %dx%d with %d bytes", ErrGeometry, width, height, len(pix))
	}
	return &Frame{Width: width, Height: height, Pix: pix}, nil
}

// Stride returns row length in bytes.
func (f *Frame) Stride() int {
	return f.Width * 3
}

// Bounds returns frame rectangle anchored at origin.
func (f *Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, f.Width, f.Height)
}

// Empty reports whether frame has no pixels.
func (f *Frame) Empty() bool {
	return f.Width == 0 || f.Height == 0
}

// SameSize reports whether two frames have identical dimensions.
func (f *Frame) SameSize(o *Frame) bool {
	return f.Width == o.Width && f.Height == o.Height
}

// BGR returns pixel at (x, y).
func (f *Frame) BGR(x, y int) (b, g, r uint8) {
	i := y*f.Stride() + x*3
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// SetBGR sets pixel at (x, y).
func (f *Frame) SetBGR(x, y int, b, g, r uint8) {
	i := y*f.Stride() + x*3
	f.Pix[i], f.Pix[i+1], f.Pix[i+2] = b, g, r
}

// Fill paints the whole frame with a single color.
func (f *Frame) Fill(b, g, r uint8) {
	for i := 0; i < len(f.Pix); i += 3 {
		f.Pix[i], f.Pix[i+1], f.Pix[i+2] = b, g, r
	}
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	c := &Frame{Width: f.Width, Height: f.Height, Pix: make([]byte, len(f.Pix))}
	copy(c.Pix, f.Pix)
	return c
}

// Masked returns a copy of the frame where pixels with zero mask value are black.
func (f *Frame) Masked(m *Mask) (*Frame, error) {
	if f.Width != m.Width || f.Height != m.Height {
		return nil, fmt.Errorf("%w: frame %dx%d, mask %dx%d", ErrGeometry, f.Width, f.Height, m.Width, m.Height)
	}
	out := NewFrame(f.Width, f.Height)
	for i, v := range m.Pix {
		if v != 0 {
			j := i * 3
			out.Pix[j], out.Pix[j+1], out.Pix[j+2] = f.Pix[j], f.Pix[j+1], f.Pix[j+2]
		}
	}
	return out, nil
}

// RGBA converts the frame into an opaque *image.RGBA.
func (f *Frame) RGBA() *image.RGBA {
	img := image.NewRGBA(f.Bounds())
	for i, j := 0, 0; i < len(f.Pix); i, j = i+3, j+4 {
		img.Pix[j+0] = f.Pix[i+2]
		img.Pix[j+1] = f.Pix[i+1]
		img.Pix[j+2] = f.Pix[i+0]
		img.Pix[j+3] = 0xff
	}
	return img
}

// FrameFromImage converts any image.Image into a Frame. Alpha is dropped, translucent
// pixels end up composed over black.
func FrameFromImage(img image.Image) *Frame {
	b := img.Bounds()
	f := NewFrame(b.Dx(), b.Dy())

	// Fast path for the most common decoder output.
	if rgba, ok := img.(*image.RGBA); ok {
		for y := 0; y < f.Height; y++ {
			off := rgba.PixOffset(b.Min.X, b.Min.Y+y)
			src := rgba.Pix[off : off+f.Width*4]
			dst := f.Pix[y*f.Stride() : (y+1)*f.Stride()]
			for i, j := 0, 0; j < len(dst); i, j = i+4, j+3 {
				dst[j+0] = src[i+2]
				dst[j+1] = src[i+1]
				dst[j+2] = src[i+0]
			}
		}
		return f
	}

	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			c := color.RGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.RGBA)
			f.SetBGR(x, y, c.B, c.G, c.R)
		}
	}
	return f
}

// Resize returns a copy of the frame scaled to width x height with bilinear
// interpolation. Same size requests return a plain copy.
func (f *Frame) Resize(width, height int) *Frame {
	if width == f.Width && height == f.Height {
		return f.Clone()
	}
	if width <= 0 || height <= 0 {
		return NewFrame(0, 0)
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	if !f.Empty() {
		draw.BiLinear.Scale(dst, dst.Bounds(), f.RGBA(), f.Bounds(), draw.Src, nil)
	}
	return FrameFromImage(dst)
}
