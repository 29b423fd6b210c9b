// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Reusable parts of chromaswap application and subcommand infrastructure.
package main

import (
	"flag"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/evolution-gaming/chromaswap/internal/analysis"
	"github.com/evolution-gaming/chromaswap/internal/batch"
	"github.com/evolution-gaming/chromaswap/internal/keying"
	"github.com/evolution-gaming/chromaswap/internal/logging"
	"github.com/evolution-gaming/chromaswap/internal/metric"
)

// Commander interface should be implemented by commands and sub-commands.
type Commander interface {
	Run([]string) error
	Name() string
	Help()
}

// AppError a custom error returned from CLI application.
//
// AppError is handy error type envisioned to be used in CLI's main.
// ExitCode() should be used as argument for os.Exit().
type AppError struct {
	msg      string
	exitCode int
}

// Error implements error interface for AppError.
func (e *AppError) Error() string {
	return e.msg
}

// ExitCode returns CLI application's exit code.
func (e *AppError) ExitCode() int {
	return e.exitCode
}

// printSubCommandUsage helper to format ad print subcommand's usage.
func printSubCommandUsage(longHelp string, fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage of sub-command %s:\n\n", fs.Name())
	fmt.Fprintf(fs.Output(), "%s\n\n", longHelp)
	fs.PrintDefaults()
}

// keyingFlags are command line overrides of keying configuration.
type keyingFlags struct {
	lower             keying.HSV
	upper             keying.HSV
	scale             float64
	yPosition         float64
	noBrightnessMatch bool
}

func (k *keyingFlags) Register(fs *flag.FlagSet) {
	k.lower, k.upper = keying.DefaultLower, keying.DefaultUpper
	fs.Var(&k.lower, "lower", "Lower HSV bound of key color as H,S,V (H:0-179, S,V:0-255)")
	fs.Var(&k.upper, "upper", "Upper HSV bound of key color as H,S,V (H:0-179, S,V:0-255)")
	fs.Float64Var(&k.scale, "scale", keying.DefaultScale, "Subject size relative to frame")
	fs.Float64Var(&k.yPosition, "y-position", keying.DefaultYPosition, "Subject vertical position, 0.0=top, 1.0=bottom")
	fs.BoolVar(&k.noBrightnessMatch, "no-brightness-match", false, "Disable brightness and saturation matching")
}

// Apply overrides configuration with flags explicitly set on command line, so flags
// take precedence over config file which takes precedence over defaults.
func (k *keyingFlags) Apply(fs *flag.FlagSet, cfg *Config) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "lower":
			cfg.Lower = NewConfigVal(k.lower)
		case "upper":
			cfg.Upper = NewConfigVal(k.upper)
		case "scale":
			cfg.Scale = NewConfigVal(k.scale)
		case "y-position":
			cfg.YPosition = NewConfigVal(k.yPosition)
		case "no-brightness-match":
			cfg.BrightnessMatch = NewConfigVal(!k.noBrightnessMatch)
		}
	})
}

// isFlagSet reports whether flag has been given on command line.
func isFlagSet(fs *flag.FlagSet, name string) (found bool) {
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// describeParams renders keying parameters for humans.
func describeParams(p keying.Params) string {
	match := "ON"
	if !p.BrightnessMatch {
		match = "OFF"
	}
	return fmt.Sprintf("HSV range: lower(%s) upper(%s), scale: %v, y position: %v, brightness match: %s",
		p.Range.Lower, p.Range.Upper, p.Placement.Scale, p.Placement.YPosition, match)
}

// newRecord creates metric store record from a job run result.
func newRecord(runID string, res *batch.RunResult) metric.Record {
	r := metric.Record{
		RunID:      runID,
		Name:       res.Name,
		SourceFile: res.SourceFile,
		OutputFile: res.OutputFile,
		Background: res.Background,
		Status:     metric.StatusOK,
		State:      res.State.String(),
		Frames:     res.Frames,
		Elapsed:    res.Elapsed,
		HElapsed:   res.Elapsed.String(),
		Width:      res.Meta.Width,
		Height:     res.Meta.Height,
		FrameRate:  res.Meta.FrameRate,
		Duration:   res.Meta.Duration,
	}
	if !res.OK() {
		r.Status = metric.StatusFailed
		r.State = res.FailedIn.String()
		if res.Err != nil {
			r.Error = res.Err.Error()
		}
	}
	if s := res.Elapsed.Seconds(); s > 0 {
		r.FPS = float64(res.Frames) / s
	}

	agg, err := res.Stats.Aggregate()
	if err != nil {
		return r
	}
	r.KeyedCoverageMean = agg.KeyedCoverage.Mean
	r.KeyedCoverageMin = agg.KeyedCoverage.Min
	r.KeyedCoverageMax = agg.KeyedCoverage.Max
	r.BrightnessRatioMean = agg.BrightnessRatio.Mean
	r.BrightnessRatioMin = agg.BrightnessRatio.Min
	r.BrightnessRatioMax = agg.BrightnessRatio.Max
	r.BrightnessRatioStDev = agg.BrightnessRatio.StDev
	r.SaturationRatioMean = agg.SaturationRatio.Mean
	r.SaturationRatioStDev = agg.SaturationRatio.StDev
	return r
}

// saveFrameArtifacts writes per-frame stats JSON and, unless skipped, the stats plot
// next to given base path.
func saveFrameArtifacts(res *batch.RunResult, base string, withPlot bool) error {
	if len(res.Stats) == 0 {
		logging.Debugf("No frame stats for %s, skipping artifacts", res.Name)
		return nil
	}
	jsonFile := base + "_frames.json"
	fd, err := os.Create(jsonFile)
	if err != nil {
		return fmt.Errorf("creating frame stats file: %w", err)
	}
	err = res.Stats.ToJSON(fd)
	fd.Close()
	if err != nil {
		return fmt.Errorf("writing frame stats: %w", err)
	}
	logging.Debugf("Frame stats saved: %s", jsonFile)

	if !withPlot {
		return nil
	}
	plotFile := base + "_stats.png"
	if err := analysis.MultiPlotFrameStats(res.Stats, path.Base(res.SourceFile), plotFile); err != nil {
		return fmt.Errorf("creating stats plot: %w", err)
	}
	logging.Infof("Stats plot done: %s", plotFile)
	return nil
}

// unrollResultErrors helper to unroll all errors from RunResults into a string.
func unrollResultErrors(results []batch.RunResult) string {
	sb := strings.Builder{}
	for i := range results {
		rr := &results[i]
		if rr.Err != nil {
			sb.WriteString(fmt.Sprintf("%s:\n\t%s\n", rr.Name, rr.Err.Error()))
		}
	}
	return sb.String()
}

// fileExists check if file exists.
func fileExists(f string) bool {
	fi, err := os.Stat(f)
	if err != nil {
		return false
	}
	return !fi.IsDir()
}
