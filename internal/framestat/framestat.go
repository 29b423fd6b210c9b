// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Per-frame keying statistics and their aggregation.
package framestat

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrNoFrames is returned when aggregating an empty set of frame stats.
var ErrNoFrames = errors.New("no frame stats")

// FrameStat holds keying measurements of a single frame.
type FrameStat struct {
	FrameNum uint `json:"frameNum"`
	// Fraction of source pixels that matched the key color range.
	KeyedCoverage   float64 `json:"keyed_coverage"`
	BrightnessRatio float64 `json:"brightness_ratio"`
	SaturationRatio float64 `json:"saturation_ratio"`
	// Masked mean brightness of the subject before correction and of the background.
	SubjectV    float64 `json:"subject_v"`
	BackgroundV float64 `json:"background_v"`
}

type FrameStats []FrameStat

func (fs *FrameStats) FromJSON(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("FromJSON() Read from io.Reader: %w", err)
	}

	if err := json.Unmarshal(data, fs); err != nil {
		return fmt.Errorf("FromJSON() JSON unmarshal: %w", err)
	}

	return nil
}

func (fs *FrameStats) ToJSON(w io.Writer) error {
	jDoc, err := json.MarshalIndent(fs, "", "  ")
	if err != nil {
		return fmt.Errorf("ToJSON() marshal: %w", err)
	}

	if _, err := w.Write(jDoc); err != nil {
		return fmt.Errorf("ToJSON() write to Writer: %w", err)
	}

	return nil
}

// Columns returns per-frame series in frame order.
func (fs FrameStats) Columns() (coverage, brightness, saturation []float64) {
	coverage = make([]float64, len(fs))
	brightness = make([]float64, len(fs))
	saturation = make([]float64, len(fs))
	for i, v := range fs {
		coverage[i] = v.KeyedCoverage
		brightness[i] = v.BrightnessRatio
		saturation[i] = v.SaturationRatio
	}
	return coverage, brightness, saturation
}

// Aggregate holds aggregations of all FrameStat series of a video.
type Aggregate struct {
	KeyedCoverage   Metric
	BrightnessRatio Metric
	SaturationRatio Metric
}

type Metric struct {
	Mean     float64
	Median   float64
	Min      float64
	Max      float64
	StDev    float64
	Variance float64
}

// NewMetric calculates aggregations over values. Sample of length one has zero variance.
func NewMetric(values []float64) Metric {
	var m Metric
	if len(values) == 0 {
		return m
	}
	m.Min = floats.Min(values)
	m.Max = floats.Max(values)
	if len(values) > 1 {
		m.Variance = stat.Variance(values, nil)
		m.Mean, m.StDev = stat.MeanStdDev(values, nil)
	} else {
		m.Mean = values[0]
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	m.Median = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	return m
}

// Aggregate calculates aggregate metrics over all frames.
func (fs FrameStats) Aggregate() (Aggregate, error) {
	if len(fs) == 0 {
		return Aggregate{}, ErrNoFrames
	}
	cov, br, sat := fs.Columns()
	return Aggregate{
		KeyedCoverage:   NewMetric(cov),
		BrightnessRatio: NewMetric(br),
		SaturationRatio: NewMetric(sat),
	}, nil
}
