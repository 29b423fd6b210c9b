// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package keying

import (
	"image"
	"math"
	"testing"

	"github.com/evolution-gaming/chromaswap/internal/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	green = [3]uint8{0, 255, 0}
	red   = [3]uint8{0, 0, 255}
	blue  = [3]uint8{255, 0, 0}
)

func solidFrame(w, h int, c [3]uint8) *raster.Frame {
	f := raster.NewFrame(w, h)
	f.Fill(c[0], c[1], c[2])
	return f
}

func pixel(f *raster.Frame, x, y int) [3]uint8 {
	b, g, r := f.BGR(x, y)
	return [3]uint8{b, g, r}
}

func defaultRange() ColorRange {
	return ColorRange{Lower: DefaultLower, Upper: DefaultUpper}
}

func Test_Segment(t *testing.T) {
	tests := map[string]struct {
		frame *raster.Frame
		want  uint8
	}{
		"All pixels outside range": {frame: solidFrame(3, 2, red), want: raster.MaskOff},
		"All pixels inside range":  {frame: solidFrame(3, 2, green), want: raster.MaskOn},
		"Dark green below V bound": {frame: solidFrame(3, 2, [3]uint8{0, 60, 0}), want: raster.MaskOff},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got := Segment(tc.frame, defaultRange())
			require.Equal(t, tc.frame.Width, got.Width)
			require.Equal(t, tc.frame.Height, got.Height)
			for _, v := range got.Pix {
				assert.Equal(t, tc.want, v)
			}
		})
	}
}

func Test_Segment_IsDeterministic(t *testing.T) {
	f := raster.NewFrame(16, 16)
	for i := range f.Pix {
		f.Pix[i] = uint8(i * 37)
	}
	a := Segment(f, defaultRange())
	b := Segment(f, defaultRange())
	assert.Equal(t, a.Pix, b.Pix)
}

func Test_Segment_InvertedRangeSelectsNothing(t *testing.T) {
	rng := ColorRange{Lower: HSV{85, 255, 255}, Upper: HSV{35, 80, 80}}
	got := Segment(solidFrame(2, 2, green), rng)
	assert.Equal(t, 0, got.Count())
}

func Test_Segment_HueDoesNotWrap(t *testing.T) {
	// Hue 0 (red) is not matched by a band ending at 179.
	rng := ColorRange{Lower: HSV{170, 0, 0}, Upper: HSV{179, 255, 255}}
	got := Segment(solidFrame(1, 1, red), rng)
	assert.Equal(t, 0, got.Count())
}

func Test_Place(t *testing.T) {
	tests := map[string]struct {
		w, h int
		spec PlacementSpec
		want image.Rectangle
	}{
		"Full frame": {
			w: 640, h: 480, spec: PlacementSpec{Scale: 1, YPosition: 0},
			want: image.Rect(0, 0, 640, 480),
		},
		"Defaults on 1080p": {
			w: 1920, h: 1080, spec: PlacementSpec{Scale: 0.7, YPosition: 0.2},
			want: image.Rect(288, 64, 288+1344, 64+756),
		},
		"Bottom aligned": {
			w: 10, h: 10, spec: PlacementSpec{Scale: 0.5, YPosition: 1},
			want: image.Rect(2, 5, 7, 10),
		},
		"Odd leftover floors": {
			w: 5, h: 4, spec: PlacementSpec{Scale: 0.5, YPosition: 0},
			want: image.Rect(1, 0, 3, 2),
		},
		"Upscaled runs off frame": {
			w: 640, h: 480, spec: PlacementSpec{Scale: 1.5, YPosition: 0.2},
			want: image.Rect(-160, -48, 800, 672),
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got := Place(tc.w, tc.h, tc.spec)
			assert.Equal(t, tc.want, got)
		})
	}
}

func Test_Composite(t *testing.T) {
	bg := solidFrame(4, 3, blue)
	fg := solidFrame(2, 2, red)
	mask := raster.NewMask(2, 2)
	mask.Set(0, 0, raster.MaskOn)
	mask.Set(1, 1, raster.MaskOn)
	rect := image.Rect(1, 1, 3, 3)

	got, err := Composite(bg, fg, mask, rect)
	require.NoError(t, err)

	assert.Equal(t, red, pixel(got, 1, 1))
	assert.Equal(t, blue, pixel(got, 2, 1))
	assert.Equal(t, blue, pixel(got, 1, 2))
	assert.Equal(t, red, pixel(got, 2, 2))
	assert.Equal(t, blue, pixel(got, 0, 0))
	// Inputs untouched.
	assert.Equal(t, solidFrame(4, 3, blue), bg)
	assert.Equal(t, solidFrame(2, 2, red), fg)
}

func Test_Composite_OffFrameIsClipped(t *testing.T) {
	bg := solidFrame(2, 2, blue)
	fg := solidFrame(3, 3, red)
	mask := raster.NewFilledMask(3, 3, raster.MaskOn)

	got, err := Composite(bg, fg, mask, image.Rect(-1, -1, 2, 2))
	require.NoError(t, err)
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			assert.Equal(t, red, pixel(got, x, y))
		}
	}
}

func Test_Composite_Negative(t *testing.T) {
	bg := solidFrame(4, 4, blue)
	t.Run("Mask geometry mismatch", func(t *testing.T) {
		_, err := Composite(bg, solidFrame(2, 2, red), raster.NewMask(1, 2), image.Rect(0, 0, 2, 2))
		assert.ErrorIs(t, err, raster.ErrGeometry)
	})
	t.Run("Rect geometry mismatch", func(t *testing.T) {
		_, err := Composite(bg, solidFrame(2, 2, red), raster.NewMask(2, 2), image.Rect(0, 0, 3, 2))
		assert.ErrorIs(t, err, raster.ErrGeometry)
	})
}

func Test_Match_BrightnessRatio(t *testing.T) {
	fg := solidFrame(2, 2, [3]uint8{100, 100, 100})
	bg := solidFrame(4, 4, [3]uint8{200, 200, 200})

	got, res, err := Match(fg, raster.NewFilledMask(2, 2, raster.MaskOn), bg, raster.NewFilledMask(4, 4, raster.MaskOn))
	require.NoError(t, err)

	assert.InDelta(t, 2.0, res.BrightnessRatio, 1e-9)
	// Gray has no saturation, so nothing to match.
	assert.Equal(t, 1.0, res.SaturationRatio)
	assert.Equal(t, solidFrame(2, 2, [3]uint8{200, 200, 200}), got)
}

func Test_Match_BrightnessIsClamped(t *testing.T) {
	fg := solidFrame(1, 2, [3]uint8{50, 50, 50})
	fg.SetBGR(0, 1, 200, 200, 200)
	bg := solidFrame(2, 2, [3]uint8{250, 250, 250})

	got, res, err := Match(fg, raster.NewFilledMask(1, 2, raster.MaskOn), bg, raster.NewFilledMask(2, 2, raster.MaskOn))
	require.NoError(t, err)

	assert.InDelta(t, 2.0, res.BrightnessRatio, 1e-9)
	assert.Equal(t, [3]uint8{100, 100, 100}, pixel(got, 0, 0))
	assert.Equal(t, [3]uint8{255, 255, 255}, pixel(got, 0, 1))
}

func Test_Match_SaturationIsDampened(t *testing.T) {
	fg := solidFrame(1, 1, red)                     // S 255, V 255
	bg := solidFrame(1, 1, [3]uint8{128, 128, 255}) // S 127, V 255

	got, res, err := Match(fg, raster.NewFilledMask(1, 1, raster.MaskOn), bg, raster.NewFilledMask(1, 1, raster.MaskOn))
	require.NoError(t, err)

	assert.InDelta(t, 1.0, res.BrightnessRatio, 1e-9)
	assert.InDelta(t, 1+(127.0/255-1)*SaturationDamping, res.SaturationRatio, 1e-9)
	// S becomes 216, hue and value stay.
	assert.Equal(t, [3]uint8{39, 39, 255}, pixel(got, 0, 0))
}

func Test_Match_EqualMeansIsNoop(t *testing.T) {
	fg := raster.NewFrame(2, 1)
	fg.SetBGR(0, 0, 100, 100, 100)
	fg.SetBGR(1, 0, 200, 200, 200)
	bg := solidFrame(3, 3, [3]uint8{150, 150, 150})

	got, res, err := Match(fg, raster.NewFilledMask(2, 1, raster.MaskOn), bg, raster.NewFilledMask(3, 3, raster.MaskOn))
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.BrightnessRatio)
	assert.Equal(t, 1.0, res.SaturationRatio)
	assert.Equal(t, fg, got)

	t.Run("Same image as reference", func(t *testing.T) {
		f := raster.NewFrame(8, 8)
		for i := range f.Pix {
			f.Pix[i] = uint8(i * 13)
		}
		m := raster.NewFilledMask(8, 8, raster.MaskOn)
		got, res, err := Match(f, m, f, m)
		require.NoError(t, err)
		assert.Equal(t, 1.0, res.BrightnessRatio)
		assert.Equal(t, f, got)
	})
}

func Test_Match_EmptyForegroundMask(t *testing.T) {
	fg := raster.NewFrame(4, 4)
	for i := range fg.Pix {
		fg.Pix[i] = uint8(i * 7)
	}
	bg := solidFrame(4, 4, [3]uint8{10, 10, 10})

	got, res, err := Match(fg, raster.NewMask(4, 4), bg, raster.NewFilledMask(4, 4, raster.MaskOn))
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.BrightnessRatio)
	assert.Equal(t, 1.0, res.SaturationRatio)
	assert.False(t, math.IsNaN(res.ForegroundV))
	assert.Equal(t, fg, got)
}

func Test_Match_EmptyBackgroundMask(t *testing.T) {
	fg := solidFrame(2, 2, [3]uint8{100, 100, 100})
	bg := solidFrame(2, 2, [3]uint8{10, 10, 10})

	got, res, err := Match(fg, raster.NewFilledMask(2, 2, raster.MaskOn), bg, raster.NewMask(2, 2))
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.BrightnessRatio)
	assert.Equal(t, fg, got)
}

func Test_Match_Negative(t *testing.T) {
	fg := solidFrame(2, 2, red)
	bg := solidFrame(2, 2, blue)
	t.Run("Background mask mismatch", func(t *testing.T) {
		_, _, err := Match(fg, raster.NewMask(2, 2), bg, raster.NewMask(3, 3))
		assert.ErrorIs(t, err, raster.ErrGeometry)
	})
	t.Run("Foreground mask mismatch", func(t *testing.T) {
		_, _, err := Match(fg, raster.NewMask(1, 1), bg, raster.NewMask(2, 2))
		assert.ErrorIs(t, err, raster.ErrGeometry)
	})
}

func fullFrameParams() Params {
	p := DefaultParams()
	p.Placement = PlacementSpec{Scale: 1, YPosition: 0}
	return p
}

func Test_Pipeline_GreenRedScenario(t *testing.T) {
	frame := raster.NewFrame(2, 1)
	frame.SetBGR(0, 0, green[0], green[1], green[2])
	frame.SetBGR(1, 0, red[0], red[1], red[2])

	mask := Segment(frame, defaultRange())
	assert.Equal(t, []uint8{255, 0}, mask.Pix)

	p, err := NewPipeline(solidFrame(2, 1, blue), fullFrameParams())
	require.NoError(t, err)
	got, st, err := p.Process(frame)
	require.NoError(t, err)

	assert.Equal(t, blue, pixel(got, 0, 0))
	assert.Equal(t, red, pixel(got, 1, 0))
	assert.Equal(t, uint(1), st.FrameNum)
	assert.InDelta(t, 0.5, st.KeyedCoverage, 1e-9)
}

func Test_Pipeline_AllOutsideRangeYieldsPlacedForeground(t *testing.T) {
	frame := raster.NewFrame(6, 4)
	for i := range frame.Pix {
		// Dark reddish noise, never inside the green box.
		frame.Pix[i] = uint8(i % 60)
	}
	for i := 0; i < len(frame.Pix); i += 3 {
		frame.Pix[i+2] = 200
	}
	require.Equal(t, 0, Segment(frame, defaultRange()).Count())

	for _, match := range []bool{true, false} {
		params := fullFrameParams()
		params.BrightnessMatch = match
		p, err := NewPipeline(solidFrame(6, 4, blue), params)
		require.NoError(t, err)

		got, _, err := p.Process(frame)
		require.NoError(t, err)
		assert.Equal(t, frame, got)
	}
}

func Test_Pipeline_AllInsideRangeYieldsBackground(t *testing.T) {
	bg := raster.NewFrame(10, 8)
	for i := range bg.Pix {
		bg.Pix[i] = uint8(i * 11)
	}
	p, err := NewPipeline(bg, DefaultParams())
	require.NoError(t, err)

	got, st, err := p.Process(solidFrame(10, 8, green))
	require.NoError(t, err)
	assert.Equal(t, bg, got)
	assert.Equal(t, 1.0, st.KeyedCoverage)
}

func Test_Pipeline_ScaledPlacement(t *testing.T) {
	params := DefaultParams()
	params.Placement = PlacementSpec{Scale: 0.5, YPosition: 0}
	p, err := NewPipeline(solidFrame(4, 4, blue), params)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(1, 0, 3, 2), p.Rect())
	assert.Equal(t, params, p.Params())

	got, _, err := p.Process(solidFrame(4, 4, red))
	require.NoError(t, err)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			want := blue
			if (image.Point{x, y}).In(p.Rect()) {
				want = red
			}
			assert.Equal(t, want, pixel(got, x, y), "pixel %d,%d", x, y)
		}
	}
}

func Test_Pipeline_EmptyPlacement(t *testing.T) {
	params := DefaultParams()
	params.Placement.Scale = 0.1
	bg := solidFrame(4, 4, blue)
	p, err := NewPipeline(bg, params)
	require.NoError(t, err)

	got, _, err := p.Process(solidFrame(4, 4, red))
	require.NoError(t, err)
	assert.Equal(t, bg, got)
}

func Test_Pipeline_FramesAreNumbered(t *testing.T) {
	p, err := NewPipeline(solidFrame(2, 2, blue), DefaultParams())
	require.NoError(t, err)
	for i := uint(1); i <= 3; i++ {
		_, st, err := p.Process(solidFrame(2, 2, red))
		require.NoError(t, err)
		assert.Equal(t, i, st.FrameNum)
	}
}

func Test_Pipeline_Negative(t *testing.T) {
	t.Run("Empty background", func(t *testing.T) {
		_, err := NewPipeline(raster.NewFrame(0, 0), DefaultParams())
		assert.ErrorIs(t, err, raster.ErrGeometry)
	})
	t.Run("Frame size mismatch", func(t *testing.T) {
		p, err := NewPipeline(solidFrame(4, 4, blue), DefaultParams())
		require.NoError(t, err)
		_, _, err = p.Process(solidFrame(3, 4, red))
		assert.ErrorIs(t, err, ErrFrameSize)
	})
}

func Test_Params_Validate(t *testing.T) {
	tests := map[string]struct {
		placement PlacementSpec
		reasons   int
	}{
		"Defaults":          {placement: PlacementSpec{Scale: 0.7, YPosition: 0.2}},
		"Upscale":           {placement: PlacementSpec{Scale: 1.5, YPosition: 1.2}},
		"Zero scale":        {placement: PlacementSpec{Scale: 0}, reasons: 1},
		"Negative scale":    {placement: PlacementSpec{Scale: -1}, reasons: 1},
		"NaN scale":         {placement: PlacementSpec{Scale: math.NaN()}, reasons: 1},
		"Infinite position": {placement: PlacementSpec{Scale: 1, YPosition: math.Inf(1)}, reasons: 1},
		"Both broken":       {placement: PlacementSpec{Scale: 0, YPosition: math.NaN()}, reasons: 2},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			p := DefaultParams()
			p.Placement = tc.placement
			err := p.Validate()
			if tc.reasons == 0 {
				assert.NoError(t, err)
				return
			}
			var perr *ParamsError
			require.ErrorAs(t, err, &perr)
			assert.Len(t, perr.Reasons(), tc.reasons)
		})
	}
}

func Test_Params_ValidateIgnoresColorRange(t *testing.T) {
	p := DefaultParams()
	p.Range = ColorRange{Lower: HSV{500, -1, 300}, Upper: HSV{-5, 0, 0}}
	assert.NoError(t, p.Validate())
}

func Test_ParseHSV(t *testing.T) {
	tests := map[string]struct {
		given   string
		want    HSV
		wantErr bool
	}{
		"Plain":         {given: "35,80,80", want: HSV{35, 80, 80}},
		"Spaces":        {given: " 85, 255 ,255", want: HSV{85, 255, 255}},
		"Out of range":  {given: "200,-3,999", want: HSV{200, -3, 999}},
		"Too few":       {given: "1,2", wantErr: true},
		"Not numbers":   {given: "a,b,c", wantErr: true},
		"Trailing junk": {given: "1,2,3x", wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ParseHSV(tc.given)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func Test_HSV_Text(t *testing.T) {
	var c HSV
	require.NoError(t, c.Set("1,2,3"))
	assert.Equal(t, HSV{1, 2, 3}, c)

	b, err := c.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1,2,3", string(b))
}
