// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package keying

import (
	"fmt"

	"github.com/evolution-gaming/chromaswap/internal/raster"
)

// SaturationDamping is the share of the raw saturation ratio that is applied.
const SaturationDamping = 0.3

// MatchResult describes the correction applied by a Matcher.
type MatchResult struct {
	BrightnessRatio float64
	SaturationRatio float64
	// Masked means of the value and saturation channels.
	ForegroundV float64
	ForegroundS float64
	BackgroundV float64
	BackgroundS float64
}

// Matcher rescales foreground brightness and saturation towards a fixed background
// reference. Background statistics are computed once by NewMatcher.
type Matcher struct {
	bgV, bgS float64
	// False when background mask selects nothing.
	hasRef bool
}

// NewMatcher computes masked HSV means of the background. The mask selects the region
// the subject is not covering.
func NewMatcher(bg *raster.Frame, bgMask *raster.Mask) (*Matcher, error) {
	v, s, n, err := maskedMeans(bg, bgMask)
	if err != nil {
		return nil, fmt.Errorf("background: %w", err)
	}
	return &Matcher{bgV: v, bgS: s, hasRef: n > 0}, nil
}

// Apply returns a copy of fg with the value channel scaled by bgV/fgV and the saturation
// channel scaled by a dampened bgS/fgS ratio. Hue is kept.
//
// A zero foreground mean leaves the corresponding channel alone. Pixels that come out of
// the scaling with unchanged S and V keep their exact original bytes.
func (m *Matcher) Apply(fg *raster.Frame, fgMask *raster.Mask) (*raster.Frame, MatchResult, error) {
	res := MatchResult{
		BrightnessRatio: 1,
		SaturationRatio: 1,
		BackgroundV:     m.bgV,
		BackgroundS:     m.bgS,
	}
	fgV, fgS, _, err := maskedMeans(fg, fgMask)
	if err != nil {
		return nil, res, fmt.Errorf("foreground: %w", err)
	}
	res.ForegroundV, res.ForegroundS = fgV, fgS

	if m.hasRef {
		if fgV > 0 {
			res.BrightnessRatio = m.bgV / fgV
		}
		if fgS > 0 {
			res.SaturationRatio = 1 + (m.bgS/fgS-1)*SaturationDamping
		}
	}

	out := fg.Clone()
	if res.BrightnessRatio == 1 && res.SaturationRatio == 1 {
		return out, res, nil
	}

	for i := 0; i < len(out.Pix); i += 3 {
		h, s, v := raster.BGRToHSV(out.Pix[i], out.Pix[i+1], out.Pix[i+2])
		s2 := scaleChannel(s, res.SaturationRatio)
		v2 := scaleChannel(v, res.BrightnessRatio)
		if s2 == s && v2 == v {
			continue
		}
		out.Pix[i], out.Pix[i+1], out.Pix[i+2] = raster.HSVToBGR(h, s2, v2)
	}
	return out, res, nil
}

// Match is a single shot form of NewMatcher followed by Apply.
func Match(fg *raster.Frame, fgMask *raster.Mask, bg *raster.Frame, bgMask *raster.Mask) (*raster.Frame, MatchResult, error) {
	m, err := NewMatcher(bg, bgMask)
	if err != nil {
		return nil, MatchResult{}, err
	}
	return m.Apply(fg, fgMask)
}

// scaleChannel multiplies c by ratio, clamps to [0,255] and truncates.
func scaleChannel(c uint8, ratio float64) uint8 {
	x := float64(c) * ratio
	switch {
	case x <= 0:
		return 0
	case x >= 255:
		return 255
	}
	return uint8(x)
}

// maskedMeans returns mean V and S of pixels under non-zero mask cells and number of
// such cells. Means are 0 when nothing is selected.
func maskedMeans(f *raster.Frame, m *raster.Mask) (meanV, meanS float64, n int, err error) {
	if f.Width != m.Width || f.Height != m.Height {
		return 0, 0, 0, fmt.Errorf("%w: frame %dx%d, mask %dx%d",
			raster.ErrGeometry, f.Width, f.Height, m.Width, m.Height)
	}
	var sumV, sumS uint64
	for j, c := range m.Pix {
		if c == 0 {
			continue
		}
		i := j * 3
		_, s, v := raster.BGRToHSV(f.Pix[i], f.Pix[i+1], f.Pix[i+2])
		sumV += uint64(v)
		sumS += uint64(s)
		n++
	}
	if n == 0 {
		return 0, 0, 0, nil
	}
	return float64(sumV) / float64(n), float64(sumS) / float64(n), n, nil
}
