// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package raster

import "math"

// 8-bit HSV conversion with hue in [0, 180). Forward conversion is integer fixed point
// with 12 fractional bits, which reproduces the numbers OpenCV's COLOR_BGR2HSV yields, so
// HSV thresholds tuned with OpenCV tools carry over.

const (
	hsvShift = 12
	hueRange = 180
)

var (
	sdivTable [256]int
	hdivTable [256]int
	// Maps hue sector to indexes into {v, p, q, t} for b, g and r.
	sectorData = [6][3]int{{1, 3, 0}, {1, 0, 2}, {3, 0, 1}, {0, 2, 1}, {0, 1, 3}, {2, 1, 0}}
)

func init() {
	for i := 1; i < 256; i++ {
		sdivTable[i] = int(math.RoundToEven(float64(255<<hsvShift) / float64(i)))
		hdivTable[i] = int(math.RoundToEven(float64(hueRange<<hsvShift) / (6 * float64(i))))
	}
}

// BGRToHSV converts a single pixel.
func BGRToHSV(b, g, r uint8) (h, s, v uint8) {
	bi, gi, ri := int(b), int(g), int(r)

	vi, vmin := bi, bi
	if gi > vi {
		vi = gi
	}
	if ri > vi {
		vi = ri
	}
	if gi < vmin {
		vmin = gi
	}
	if ri < vmin {
		vmin = ri
	}
	diff := vi - vmin

	si := (diff*sdivTable[vi] + (1 << (hsvShift - 1))) >> hsvShift

	var hi int
	switch {
	case vi == ri:
		hi = gi - bi
	case vi == gi:
		hi = bi - ri + 2*diff
	default:
		hi = ri - gi + 4*diff
	}
	hi = (hi*hdivTable[diff] + (1 << (hsvShift - 1))) >> hsvShift
	if hi < 0 {
		hi += hueRange
	}

	return uint8(hi), uint8(si), uint8(vi)
}

// HSVToBGR converts a single pixel back, hue wraps modulo 180.
func HSVToBGR(h, s, v uint8) (b, g, r uint8) {
	vf := float32(v) * (1.0 / 255)
	if s == 0 {
		c := saturateByte(vf * 255)
		return c, c, c
	}
	sf := float32(s) * (1.0 / 255)
	hf := float32(h) * 6 / hueRange
	for hf < 0 {
		hf += 6
	}
	for hf >= 6 {
		hf -= 6
	}
	sector := int(math.Floor(float64(hf)))
	hf -= float32(sector)
	if sector < 0 || sector >= 6 {
		sector, hf = 0, 0
	}

	tab := [4]float32{
		vf,
		vf * (1 - sf),
		vf * (1 - sf*hf),
		vf * (1 - sf*(1-hf)),
	}
	idx := sectorData[sector]
	return saturateByte(tab[idx[0]] * 255), saturateByte(tab[idx[1]] * 255), saturateByte(tab[idx[2]] * 255)
}

func saturateByte(x float32) uint8 {
	r := math.RoundToEven(float64(x))
	switch {
	case r <= 0:
		return 0
	case r >= 255:
		return 255
	}
	return uint8(r)
}
