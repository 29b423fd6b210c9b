// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Implementation of plot subcommand.

package main

import (
	"flag"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/evolution-gaming/chromaswap/internal/analysis"
	"github.com/evolution-gaming/chromaswap/internal/framestat"
	"github.com/evolution-gaming/chromaswap/internal/logging"
)

// CreatePlotCommand will create instance of PlotApp.
func CreatePlotCommand() *PlotApp {
	longHelp := `Subcommand "plot" will (re)create stats plot from per-frame stats JSON file
written by "run" or "test" subcommands.

Examples:

  chromaswap plot -i output/interview_frames.json
  chromaswap plot -i output/interview_frames.json -o interview.png`

	app := &PlotApp{
		fs: flag.NewFlagSet("plot", flag.ContinueOnError),
	}
	app.gf.Register(app.fs)
	app.fs.StringVar(&app.flInFile, "i", "", "Per-frame stats JSON file (mandatory)")
	app.fs.StringVar(&app.flOutFile, "o", "", "Output PNG file (default derived from input)")
	app.fs.Usage = func() {
		printSubCommandUsage(longHelp, app.fs)
	}

	return app
}

// Make sure PlotApp implements Commander interface.
var _ Commander = (*PlotApp)(nil)

// PlotApp is subcommand application context that implements Commander interface.
type PlotApp struct {
	fs        *flag.FlagSet
	gf        globalFlags
	flInFile  string
	flOutFile string
}

// Name returns subcommand name.
func (p *PlotApp) Name() string {
	return p.fs.Name()
}

// Help prints subcommand usage.
func (p *PlotApp) Help() {
	p.fs.Usage()
}

// Run is main entry point into PlotApp execution.
func (p *PlotApp) Run(args []string) error {
	if err := p.fs.Parse(args); err != nil {
		return &AppError{exitCode: 2, msg: "usage error"}
	}
	if p.gf.Debug {
		logging.EnableDebugLogger()
	}

	if p.flInFile == "" {
		p.fs.Usage()
		return &AppError{exitCode: 2, msg: "mandatory option -i is missing"}
	}
	if p.flOutFile == "" {
		p.flOutFile = strings.TrimSuffix(strings.TrimSuffix(p.flInFile, ".json"), "_frames") + "_stats.png"
	}

	fd, err := os.Open(p.flInFile)
	if err != nil {
		return &AppError{exitCode: 1, msg: err.Error()}
	}
	defer fd.Close()

	var stats framestat.FrameStats
	if err := stats.FromJSON(fd); err != nil {
		return &AppError{exitCode: 1, msg: err.Error()}
	}

	title := strings.TrimSuffix(path.Base(p.flInFile), "_frames.json")
	if err := analysis.MultiPlotFrameStats(stats, title, p.flOutFile); err != nil {
		return &AppError{exitCode: 1, msg: fmt.Sprintf("creating plot: %s", err)}
	}
	logging.Infof("Stats plot done: %s", p.flOutFile)

	return nil
}
