// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package framestat

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureStats() FrameStats {
	return FrameStats{
		{FrameNum: 1, KeyedCoverage: 0.5, BrightnessRatio: 1.0, SaturationRatio: 1.0},
		{FrameNum: 2, KeyedCoverage: 0.6, BrightnessRatio: 1.2, SaturationRatio: 0.9},
		{FrameNum: 3, KeyedCoverage: 0.7, BrightnessRatio: 1.4, SaturationRatio: 0.8},
	}
}

func TestFrameStats_JSON(t *testing.T) {
	want := fixtureStats()
	var buf bytes.Buffer
	require.NoError(t, want.ToJSON(&buf))
	assert.Contains(t, buf.String(), `"keyed_coverage": 0.6`)

	var got FrameStats
	require.NoError(t, got.FromJSON(&buf))
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("FrameStats mismatch (-want +got):\n%s", diff)
	}
}

func TestFrameStats_FromJSON_Negative(t *testing.T) {
	var fs FrameStats
	err := fs.FromJSON(strings.NewReader("{not json"))
	assert.Error(t, err)
}

func TestFrameStats_Aggregate(t *testing.T) {
	got, err := fixtureStats().Aggregate()
	require.NoError(t, err)

	assert.InDelta(t, 0.6, got.KeyedCoverage.Mean, 1e-9)
	assert.InDelta(t, 0.6, got.KeyedCoverage.Median, 1e-9)
	assert.InDelta(t, 1.0, got.BrightnessRatio.Min, 1e-9)
	assert.InDelta(t, 1.4, got.BrightnessRatio.Max, 1e-9)
	assert.InDelta(t, 0.04, got.BrightnessRatio.Variance, 1e-9)
	assert.InDelta(t, 0.2, got.BrightnessRatio.StDev, 1e-9)
	assert.InDelta(t, 0.9, got.SaturationRatio.Mean, 1e-9)
}

func TestFrameStats_Aggregate_Negative(t *testing.T) {
	_, err := FrameStats{}.Aggregate()
	assert.ErrorIs(t, err, ErrNoFrames)
}

func TestNewMetric_SingleValue(t *testing.T) {
	got := NewMetric([]float64{3})
	assert.Equal(t, Metric{Mean: 3, Median: 3, Min: 3, Max: 3}, got)
}
