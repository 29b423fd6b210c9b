// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Plot generation related functionality.

package analysis

import (
	"fmt"
	"image/color"
	"log"
	"os"
	"sort"

	"github.com/evolution-gaming/chromaswap/internal/framestat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

var (
	defaultPlotWidth  = vg.Centimeter * 24
	defaultPlotHeight = vg.Centimeter * 7
)

// histogramBins is the number of bins used for ratio histograms.
const histogramBins = 50

// A custom color palette: color1 as base color and color2 as a darker variant.
var ColorPalette = []color.RGBA{
	// red1
	{R: 230, G: 57, B: 70, A: 255},
	// red2
	{R: 143, G: 35, B: 43, A: 255},
	// green1
	{R: 84, G: 184, B: 50, A: 255},
	// green2
	{R: 50, G: 110, B: 30, A: 255},
	// blue1
	{R: 63, G: 55, B: 201, A: 255},
	// blue2
	{R: 51, G: 45, B: 163, A: 255},
	// purple1
	{R: 86, G: 11, B: 173, A: 255},
	// purple2
	{R: 62, G: 8, B: 125, A: 255},
	// orange1
	{R: 255, G: 174, B: 0, A: 255},
	// orange2
	{R: 173, G: 118, B: 0, A: 255},
}

// frameSeries turns per-frame values into XYs keyed by frame number.
func frameSeries(stats framestat.FrameStats, value func(framestat.FrameStat) float64) plotter.XYs {
	xys := make(plotter.XYs, len(stats))
	for i, s := range stats {
		xys[i].X = float64(s.FrameNum)
		xys[i].Y = value(s)
	}
	return xys
}

// CreateCoveragePlot plots keyed pixel fraction per frame.
func CreateCoveragePlot(stats framestat.FrameStats) (*plot.Plot, error) {
	p := plot.New()
	p.X.Label.Text = "Frame #"
	p.Y.Label.Text = "Keyed fraction"
	p.Y.Min = 0
	p.Y.Max = 1

	line, err := plotter.NewLine(frameSeries(stats, func(s framestat.FrameStat) float64 { return s.KeyedCoverage }))
	if err != nil {
		return p, fmt.Errorf("CreateCoveragePlot() creating new Line: %w", err)
	}
	line.Color = ColorPalette[2]
	line.FillColor = color.RGBA{R: 84, G: 184, B: 50, A: 64}

	p.Add(line, plotter.NewGrid())
	return p, nil
}

// CreateRatioPlot plots brightness and saturation correction ratios per frame. Unit
// ratio, i.e. no correction, is drawn as a reference line.
func CreateRatioPlot(stats framestat.FrameStats) (*plot.Plot, error) {
	p := plot.New()
	p.X.Label.Text = "Frame #"
	p.Y.Label.Text = "Ratio"

	vLine, err := plotter.NewLine(frameSeries(stats, func(s framestat.FrameStat) float64 { return s.BrightnessRatio }))
	if err != nil {
		return p, fmt.Errorf("CreateRatioPlot() creating brightness Line: %w", err)
	}
	vLine.Color = ColorPalette[0]

	sLine, err := plotter.NewLine(frameSeries(stats, func(s framestat.FrameStat) float64 { return s.SaturationRatio }))
	if err != nil {
		return p, fmt.Errorf("CreateRatioPlot() creating saturation Line: %w", err)
	}
	sLine.Color = ColorPalette[4]

	first := float64(stats[0].FrameNum)
	last := float64(stats[len(stats)-1].FrameNum)
	unit, unitLabel := horizontalLineWithLabel(1, first, last, "no correction")

	p.Add(vLine, sLine, unit, unitLabel, plotter.NewGrid())
	p.Legend.Add("Brightness (V)", vLine)
	p.Legend.Add("Saturation (S)", sLine)
	p.Legend.Top = true
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	return p, nil
}

// CreateHistogramPlot creates histogram plot for given values.
func CreateHistogramPlot(values []float64, name string) (*plot.Plot, error) {
	p := plot.New()
	p.X.Label.Text = name
	p.Y.Label.Text = "N"

	pHist, err := plotter.NewHist(plotter.Values(values), histogramBins)
	if err != nil {
		return p, fmt.Errorf("CreateHistogramPlot() creating new histogram: %w", err)
	}
	pHist.Color = color.Transparent
	pHist.FillColor = ColorPalette[7]

	p.Add(pHist, plotter.NewGrid())
	return p, nil
}

// CreateCDFPlot creates Cumulative Distribution Function plot for given values.
func CreateCDFPlot(values []float64, name string) (*plot.Plot, error) {
	p := plot.New()
	p.X.Label.Text = name
	p.Y.Label.Text = "Probability"
	p.Y.Min = 0

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	cdfValues := make(plotter.XYs, len(sorted))
	for i, v := range sorted {
		cdfValues[i].X = v
		cdfValues[i].Y = stat.CDF(v, stat.Empirical, sorted, nil)
	}

	cdfLine, err := plotter.NewLine(cdfValues)
	if err != nil {
		return p, fmt.Errorf("CreateCDFPlot() creating new Line: %w", err)
	}
	cdfLine.Color = ColorPalette[2]

	p.Add(cdfLine, plotter.NewGrid())
	p.Add(createQuantileLines(p, sorted, 0.05, 0.5, 0.95)...)

	return p, nil
}

// MultiPlotFrameStats renders per-frame keying stats of a single video into a PNG file.
//
// Resulting canvas has keyed coverage and correction ratios per frame followed by
// histogram and CDF of brightness ratio.
func MultiPlotFrameStats(stats framestat.FrameStats, title, outFile string) (err error) {
	if len(stats) == 0 {
		return fmt.Errorf("MultiPlotFrameStats(): %w", framestat.ErrNoFrames)
	}
	_, brightness, _ := stats.Columns()

	const rows, cols = 4, 1
	plots := make([][]*plot.Plot, rows)
	for i := range plots {
		plots[i] = make([]*plot.Plot, cols)
	}

	if plots[0][0], err = CreateCoveragePlot(stats); err != nil {
		return err
	}
	if plots[1][0], err = CreateRatioPlot(stats); err != nil {
		return err
	}
	if plots[2][0], err = CreateHistogramPlot(brightness, "Brightness ratio"); err != nil {
		return err
	}
	if plots[3][0], err = CreateCDFPlot(brightness, "Brightness ratio"); err != nil {
		return err
	}

	// Less busy layout: titles carry the names, x labels only where they differ.
	plots[0][0].Title.Text = title + "\n\nKeyed coverage"
	plots[0][0].X.Label.Text = ""
	plots[1][0].Title.Text = "Correction ratios"
	plots[2][0].Title.Text = "Brightness ratio histogram"
	plots[2][0].X.Label.Text = ""
	plots[3][0].Title.Text = "Cumulative Distribution Function (CDF)"

	img := vgimg.New(defaultPlotWidth, defaultPlotHeight*rows)
	dc := draw.New(img)

	t := draw.Tiles{
		Rows: rows,
		Cols: cols,
		PadY: vg.Points(10),
	}

	canvases := plot.Align(plots, t, dc)
	for j := 0; j < rows; j++ {
		for i := 0; i < cols; i++ {
			if plots[j][i] != nil {
				plots[j][i].Draw(canvases[j][i])
			}
		}
	}

	w, err := os.Create(outFile)
	if err != nil {
		return fmt.Errorf("MultiPlotFrameStats() creating %s: %w", outFile, err)
	}
	defer w.Close()

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(w); err != nil {
		return fmt.Errorf("MultiPlotFrameStats() failed writing png file: %w", err)
	}
	return nil
}

// verticalLine is helper to create a vertical line.
func verticalLine(x, ymin, ymax float64) *plotter.Line {
	line, err := plotter.NewLine(plotter.XYs{
		{X: x, Y: ymin},
		{X: x, Y: ymax},
	})
	// Only fails on NaN or Inf input.
	if err != nil {
		log.Panic(err)
	}
	return line
}

// horizontalLine is helper to create a horizontal line.
func horizontalLine(y, xmin, xmax float64) *plotter.Line {
	line, err := plotter.NewLine(plotter.XYs{
		{X: xmin, Y: y},
		{X: xmax, Y: y},
	})
	if err != nil {
		log.Panic(err)
	}
	return line
}

// horizontalLineWithLabel wraps horizontalLine and adds label at xMin.
func horizontalLineWithLabel(y, xMin, xMax float64, label string) (*plotter.Line, *plotter.Labels) {
	hLine := horizontalLine(y, xMin, xMax)
	hLine.Color = ColorPalette[6]
	hLine.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	hLabel, _ := plotter.NewLabels(plotter.XYLabels{
		XYs:    plotter.XYs{{X: xMin, Y: y}},
		Labels: []string{label},
	})
	hLabel.Offset.X = 5
	hLabel.Offset.Y = 5

	return hLine, hLabel
}

// createQuantileLines is helper to create vertical quantile lines plus a mean line.
// values must be sorted.
func createQuantileLines(p *plot.Plot, values []float64, quantiles ...float64) []plot.Plotter {
	var plotters []plot.Plotter
	colorCount := len(ColorPalette)
	for i, q := range quantiles {
		qVal := stat.Quantile(q, stat.Empirical, values, nil)
		qLine := verticalLine(qVal, p.Y.Min, p.Y.Max)
		qLine.LineStyle.Width = vg.Points(1)
		qLine.LineStyle.Dashes = []vg.Length{vg.Points(5), vg.Points(5)}
		qLine.Color = ColorPalette[i*3%colorCount]

		labels, _ := plotter.NewLabels(plotter.XYLabels{
			XYs:    plotter.XYs{{X: qVal, Y: q}},
			Labels: []string{fmt.Sprintf("q(%.2f)=%.3f", q, qVal)},
		})
		labels.Offset.X = 5
		labels.Offset.Y = -5

		plotters = append(plotters, qLine, labels)
	}

	meanVal := stat.Mean(values, nil)
	meanLine := verticalLine(meanVal, p.Y.Min, p.Y.Max)
	meanLine.Color = ColorPalette[colorCount-1]
	meanLabel, _ := plotter.NewLabels(plotter.XYLabels{
		XYs:    plotter.XYs{{X: meanVal, Y: stat.CDF(meanVal, stat.Empirical, values, nil)}},
		Labels: []string{fmt.Sprintf("mean=%.3f", meanVal)},
	})
	meanLabel.Offset.X = 5
	meanLabel.Offset.Y = -5
	plotters = append(plotters, meanLine, meanLabel)

	return plotters
}
