// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// chromaswap tool's still subcommand implementation.

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/evolution-gaming/chromaswap/internal/keying"
	"github.com/evolution-gaming/chromaswap/internal/logging"
	"github.com/evolution-gaming/chromaswap/internal/raster"
)

// CreateStillCommand will create instance of StillApp.
func CreateStillCommand() *StillApp {
	longHelp := `Subcommand "still" runs background replacement on a single green screen image
(e.g. a frame exported from video) and writes PNG result. Handy for tuning HSV
range and placement without encoding a whole video.

Examples:

  chromaswap still -i frame.png -bg bg/studio.jpg
  chromaswap still -i frame.png -bg bg/studio.jpg -o preview.png -scale 0.5`

	app := &StillApp{
		fs:  flag.NewFlagSet("still", flag.ContinueOnError),
		out: os.Stdout,
	}
	app.gf.Register(app.fs)
	app.kf.Register(app.fs)
	app.fs.StringVar(&app.flInFile, "i", "", "Green screen image file (mandatory)")
	app.fs.StringVar(&app.flBgFile, "bg", "", "Background image file (mandatory)")
	app.fs.StringVar(&app.flOutFile, "o", "", "Output PNG file (default <input>_still.png)")
	app.fs.Usage = func() {
		printSubCommandUsage(longHelp, app.fs)
	}

	return app
}

// Make sure StillApp implements Commander interface.
var _ Commander = (*StillApp)(nil)

// StillApp is subcommand application context that implements Commander interface.
type StillApp struct {
	out       io.Writer
	fs        *flag.FlagSet
	gf        globalFlags
	kf        keyingFlags
	flInFile  string
	flBgFile  string
	flOutFile string
}

// Name returns subcommand name.
func (s *StillApp) Name() string {
	return s.fs.Name()
}

// Help prints subcommand usage.
func (s *StillApp) Help() {
	s.fs.Usage()
}

// Run is main entry point into StillApp execution.
func (s *StillApp) Run(args []string) error {
	if err := s.fs.Parse(args); err != nil {
		return &AppError{exitCode: 2, msg: "usage error"}
	}
	if s.gf.Debug {
		logging.EnableDebugLogger()
	}

	if s.flInFile == "" || s.flBgFile == "" {
		s.fs.Usage()
		return &AppError{exitCode: 2, msg: "mandatory options -i and -bg are required"}
	}
	if s.flOutFile == "" {
		s.flOutFile = strings.TrimSuffix(s.flInFile, filepath.Ext(s.flInFile)) + "_still.png"
	}

	cfg, err := s.gf.loadConfig()
	if err != nil {
		return &AppError{exitCode: 1, msg: err.Error()}
	}
	s.kf.Apply(s.fs, &cfg)
	params := cfg.Params()
	if err := params.Validate(); err != nil {
		return &AppError{exitCode: 1, msg: err.Error()}
	}

	frame, err := raster.LoadImage(s.flInFile)
	if err != nil {
		return &AppError{exitCode: 1, msg: err.Error()}
	}
	bg, err := raster.LoadImage(s.flBgFile)
	if err != nil {
		return &AppError{exitCode: 1, msg: err.Error()}
	}

	pipeline, err := keying.NewPipeline(bg.Resize(frame.Width, frame.Height), params)
	if err != nil {
		return &AppError{exitCode: 1, msg: err.Error()}
	}
	out, st, err := pipeline.Process(frame)
	if err != nil {
		return &AppError{exitCode: 1, msg: err.Error()}
	}
	if err := raster.SavePNG(s.flOutFile, out); err != nil {
		return &AppError{exitCode: 1, msg: err.Error()}
	}

	fmt.Fprintf(s.out, "%s\n", describeParams(pipeline.Params()))
	fmt.Fprintf(s.out, "Subject placed at %v\n", pipeline.Rect())
	fmt.Fprintf(s.out, "Keyed coverage: %.1f%%\n", st.KeyedCoverage*100)
	fmt.Fprintf(s.out, "Brightness ratio: %.3f, saturation ratio: %.3f\n", st.BrightnessRatio, st.SaturationRatio)
	fmt.Fprintf(s.out, "Output file: %s\n", s.flOutFile)
	return nil
}
