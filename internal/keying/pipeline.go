// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package keying

import (
	"errors"
	"fmt"
	"image"

	"github.com/evolution-gaming/chromaswap/internal/framestat"
	"github.com/evolution-gaming/chromaswap/internal/raster"
)

// ErrFrameSize is returned by Process for frames not matching the background size.
var ErrFrameSize = errors.New("frame size does not match background")

// Pipeline turns source frames into composited output frames against a fixed
// background. Background, placement and background statistics are computed once.
//
// Pipeline is not safe for concurrent use.
type Pipeline struct {
	params  Params
	bg      *raster.Frame
	rect    image.Rectangle
	matcher *Matcher
	frames  uint
}

// NewPipeline creates a Pipeline for frames of the same size as bg.
func NewPipeline(bg *raster.Frame, params Params) (*Pipeline, error) {
	if bg.Empty() {
		return nil, fmt.Errorf("NewPipeline() empty background: %w", raster.ErrGeometry)
	}
	p := &Pipeline{
		params: params,
		bg:     bg.Clone(),
		rect:   Place(bg.Width, bg.Height, params.Placement),
	}
	if params.BrightnessMatch {
		// Reference region is whatever the subject does not cover.
		bgMask := raster.NewFilledMask(bg.Width, bg.Height, raster.MaskOn)
		bgMask.ClearRect(p.rect)
		m, err := NewMatcher(p.bg, bgMask)
		if err != nil {
			return nil, fmt.Errorf("NewPipeline(): %w", err)
		}
		p.matcher = m
	}
	return p, nil
}

// Rect returns placement rectangle of the subject.
func (p *Pipeline) Rect() image.Rectangle {
	return p.rect
}

// Params returns parameters the pipeline was created with.
func (p *Pipeline) Params() Params {
	return p.params
}

// Process composites a single frame. Frames are numbered from 1 in call order.
func (p *Pipeline) Process(frame *raster.Frame) (*raster.Frame, framestat.FrameStat, error) {
	p.frames++
	st := framestat.FrameStat{FrameNum: p.frames, BrightnessRatio: 1, SaturationRatio: 1}

	if !frame.SameSize(p.bg) {
		return nil, st, fmt.Errorf("%w: frame %dx%d, background %dx%d",
			ErrFrameSize, frame.Width, frame.Height, p.bg.Width, p.bg.Height)
	}

	key := Segment(frame, p.params.Range)
	st.KeyedCoverage = key.Coverage()

	if p.rect.Empty() {
		return p.bg.Clone(), st, nil
	}

	subjectMask := key.Inverted()
	subject, err := frame.Masked(subjectMask)
	if err != nil {
		return nil, st, err
	}
	w, h := p.rect.Dx(), p.rect.Dy()
	subject = subject.Resize(w, h)
	subjectMask = subjectMask.Resize(w, h)

	if p.matcher != nil {
		var res MatchResult
		subject, res, err = p.matcher.Apply(subject, subjectMask)
		if err != nil {
			return nil, st, err
		}
		st.BrightnessRatio = res.BrightnessRatio
		st.SaturationRatio = res.SaturationRatio
		st.SubjectV = res.ForegroundV
		st.BackgroundV = res.BackgroundV
	}

	out, err := Composite(p.bg, subject, subjectMask, p.rect)
	if err != nil {
		return nil, st, err
	}
	return out, st, nil
}
