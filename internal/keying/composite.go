// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package keying

import (
	"fmt"
	"image"

	"github.com/evolution-gaming/chromaswap/internal/raster"
)

// Composite returns a copy of bg with fg pasted at rect.Min wherever fgMask is on.
// Foreground cells that fall outside bg are dropped. Neither input is modified.
func Composite(bg, fg *raster.Frame, fgMask *raster.Mask, rect image.Rectangle) (*raster.Frame, error) {
	if fg.Width != fgMask.Width || fg.Height != fgMask.Height {
		return nil, fmt.Errorf("%w: foreground %dx%d, mask %dx%d",
			raster.ErrGeometry, fg.Width, fg.Height, fgMask.Width, fgMask.Height)
	}
	if rect.Dx() != fg.Width || rect.Dy() != fg.Height {
		return nil, fmt.Errorf("%w: foreground %dx%d does not fit rect %v",
			raster.ErrGeometry, fg.Width, fg.Height, rect)
	}

	out := bg.Clone()
	// Visible part of rect, in foreground coordinates.
	vis := rect.Intersect(bg.Bounds()).Sub(rect.Min)
	for y := vis.Min.Y; y < vis.Max.Y; y++ {
		for x := vis.Min.X; x < vis.Max.X; x++ {
			if fgMask.At(x, y) != raster.MaskOn {
				continue
			}
			b, g, r := fg.BGR(x, y)
			out.SetBGR(rect.Min.X+x, rect.Min.Y+y, b, g, r)
		}
	}
	return out, nil
}
