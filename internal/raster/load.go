// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package raster

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"

	// Register decoders for supported background image formats.
	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DecodeImage decodes any registered image format into a Frame.
func DecodeImage(r io.Reader) (*Frame, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	f := FrameFromImage(img)
	if f.Empty() {
		return nil, fmt.Errorf("decoded %s image is empty: %w", format, ErrGeometry)
	}
	return f, nil
}

// LoadImage reads and decodes an image file into a Frame.
func LoadImage(path string) (*Frame, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening image: %w", err)
	}
	defer fd.Close()

	f, err := DecodeImage(fd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// SavePNG writes frame to a PNG file.
func SavePNG(path string, f *Frame) error {
	fd, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating PNG file: %w", err)
	}
	defer fd.Close()

	if err := png.Encode(fd, f.RGBA()); err != nil {
		return fmt.Errorf("encoding PNG: %w", err)
	}
	return nil
}
