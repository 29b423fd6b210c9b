// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// chromaswap tool's convert subcommand implementation.

package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/evolution-gaming/chromaswap/internal/batch"
	"github.com/evolution-gaming/chromaswap/internal/logging"
	"github.com/evolution-gaming/chromaswap/internal/media"
)

const convertedDirName = "converted"

func CreateConvertCommand() *ConvertApp {
	longHelp := `Subcommand "convert" re-encodes every video in a directory to H.264 mp4 with
given frame rate and size, which keeps background replacement fast. Converted
videos are named after the source with .mp4 extension and are meant to go to
green/ directory.

Examples:

  chromaswap convert -i raw
  chromaswap convert -i raw -o green -fps 15 -scale 1280x720`

	app := &ConvertApp{
		fs:  flag.NewFlagSet("convert", flag.ContinueOnError),
		out: os.Stdout,
	}
	app.gf.Register(app.fs)
	app.fs.StringVar(&app.flInDir, "i", "", "Directory with source videos (mandatory)")
	app.fs.StringVar(&app.flOutDir, "o", "", "Output directory (default <input>/converted)")
	app.fs.IntVar(&app.flFPS, "fps", media.DefaultConvertFPS, "Output frame rate")
	app.fs.StringVar(&app.flSize, "scale", media.DefaultConvertSize, "Output size as WxH")
	app.fs.Usage = func() {
		printSubCommandUsage(longHelp, app.fs)
	}

	return app
}

var _ Commander = (*ConvertApp)(nil)

type ConvertApp struct {
	out      io.Writer
	fs       *flag.FlagSet
	gf       globalFlags
	flInDir  string
	flOutDir string
	flFPS    int
	flSize   string
}

func (c *ConvertApp) Name() string {
	return c.fs.Name()
}

func (c *ConvertApp) Help() {
	c.fs.Usage()
}

func (c *ConvertApp) Run(args []string) error {
	if err := c.fs.Parse(args); err != nil {
		return &AppError{exitCode: 2, msg: "usage error"}
	}
	if c.gf.Debug {
		logging.EnableDebugLogger()
	}

	if c.flInDir == "" {
		c.fs.Usage()
		return &AppError{exitCode: 2, msg: "mandatory option -i is missing"}
	}
	if c.flOutDir == "" {
		c.flOutDir = path.Join(c.flInDir, convertedDirName)
	}
	w, h, err := media.ParseSize(c.flSize)
	if err != nil {
		return &AppError{exitCode: 2, msg: err.Error()}
	}
	opts := media.ConvertOptions{FPS: c.flFPS, Width: w, Height: h}
	if err := opts.Validate(); err != nil {
		return &AppError{exitCode: 2, msg: err.Error()}
	}

	cfg, err := c.gf.loadConfig()
	if err != nil {
		return &AppError{exitCode: 1, msg: err.Error()}
	}
	conv, err := media.NewConverter(cfg.FfmpegPath.Value())
	if err != nil {
		return &AppError{exitCode: 1, msg: err.Error()}
	}

	videos, err := batch.FindVideos(c.flInDir)
	if err != nil {
		return &AppError{exitCode: 1, msg: err.Error()}
	}
	if len(videos) == 0 {
		return &AppError{exitCode: 1, msg: fmt.Sprintf("no videos found in %s (supported: MP4, MOV, AVI, MKV)", c.flInDir)}
	}
	if groups := batch.StemCollisions(videos); len(groups) != 0 {
		var names []string
		for _, g := range groups {
			names = append(names, strings.Join(batch.BaseNames(g), ", "))
		}
		return &AppError{exitCode: 1, msg: fmt.Sprintf("videos would convert to the same file: %s", strings.Join(names, "; "))}
	}
	if err := os.MkdirAll(c.flOutDir, os.FileMode(0o755)); err != nil {
		return &AppError{exitCode: 1, msg: err.Error()}
	}

	fmt.Fprintf(c.out, "Videos: %d\n", len(videos))
	fmt.Fprintf(c.out, "Target: H.264 mp4, %dx%d, %d fps\n", w, h, c.flFPS)

	var failed int
	for i, v := range videos {
		outFile := path.Join(c.flOutDir, batch.Stem(v)+".mp4")
		logging.Infof("Converting %d/%d: %s -> %s", i+1, len(videos), v, outFile)
		if err := conv.Convert(v, outFile, opts); err != nil {
			failed++
			logging.Infof("Conversion of %s failed: %s", path.Base(v), err)
		}
	}

	fmt.Fprintf(c.out, "Converted: %d\n", len(videos)-failed)
	fmt.Fprintf(c.out, "Failed: %d\n", failed)
	fmt.Fprintf(c.out, "Output: %s\n", c.flOutDir)
	if failed != 0 {
		return &AppError{exitCode: 1, msg: fmt.Sprintf("%d of %d videos failed to convert", failed, len(videos))}
	}
	return nil
}
