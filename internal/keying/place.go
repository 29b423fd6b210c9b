// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package keying

import "image"

// PlacementSpec describes where the subject goes on the background.
type PlacementSpec struct {
	// Scale factor applied to both frame dimensions.
	Scale float64 `json:"scale" yaml:"scale"`
	// YPosition maps [0,1] onto the vertical space left over after scaling.
	YPosition float64 `json:"y_position" yaml:"y_position"`
}

// Place computes the destination rectangle of the scaled subject inside a width x height
// frame. Subject is centered horizontally, sizes and vertical offset are truncated.
//
// Result is not clamped, with large Scale or YPosition outside [0,1] it may extend past
// the frame.
func Place(width, height int, spec PlacementSpec) image.Rectangle {
	sw := int(float64(width) * spec.Scale)
	sh := int(float64(height) * spec.Scale)
	x := floorDiv(width-sw, 2)
	y := int(float64(height-sh) * spec.YPosition)
	return image.Rect(x, y, x+sw, y+sh)
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
