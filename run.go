// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// chromaswap tool's run and test subcommand implementation.

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/evolution-gaming/chromaswap/internal/batch"
	"github.com/evolution-gaming/chromaswap/internal/logging"
	"github.com/evolution-gaming/chromaswap/internal/media"
	"github.com/evolution-gaming/chromaswap/internal/metric"
	"github.com/evolution-gaming/chromaswap/internal/video"
	"github.com/google/uuid"
)

// CreateRunCommand will create instance of App for batch processing of all videos.
func CreateRunCommand() *App {
	longHelp := `Subcommand "run" will replace green screen background of every video in
<base-dir>/green with an image from <base-dir>/bg and write results to
<base-dir>/output. Missing directories are created on first run.

A CSV report, per-frame stats and stats plots are written to output directory.

Examples:

  chromaswap run
  chromaswap run -base-dir path/to/project -bg 2
  chromaswap run -scale 0.5 -y-position 0.1 -lower 30,60,60 -upper 90,255,255`

	return newApp("run", longHelp, false)
}

// CreateTestCommand will create instance of App for a single video parameter test.
func CreateTestCommand() *App {
	longHelp := `Subcommand "test" will process a single video from <base-dir>/green to tune
keying parameters. Output goes to <base-dir>/test_output and file name encodes
parameters used, so several attempts can be compared side by side.

Examples:

  chromaswap test
  chromaswap test -video interview.mp4 -scale 0.5
  chromaswap test -no-brightness-match -lower 30,60,60`

	app := newApp("test", longHelp, true)
	app.fs.StringVar(&app.flVideo, "video", "", "Video file name in green directory (default first video)")
	return app
}

func newApp(name, longHelp string, testMode bool) *App {
	app := &App{
		fs:         flag.NewFlagSet(name, flag.ContinueOnError),
		gf:         globalFlags{},
		mStore:     metric.NewStore(),
		testMode:   testMode,
		in:         os.Stdin,
		out:        os.Stdout,
		newBackend: media.NewBackend,
	}
	app.gf.Register(app.fs)
	app.kf.Register(app.fs)
	app.fs.StringVar(&app.flBaseDir, "base-dir", ".", "Project directory containing bg/, green/ and output/")
	app.fs.IntVar(&app.flBg, "bg", 0, "Background image number (1-based) when bg/ has several images")
	app.fs.StringVar(&app.flBackend, "backend", media.DefaultBackend,
		fmt.Sprintf("Video backend, one of: %s", strings.Join(media.Backends(), ", ")))
	app.fs.BoolVar(&app.flNoPlots, "no-plots", false, "Do not create per-video stats plots")
	app.fs.StringVar(&app.flMetricsFile, "metrics-file", "", "Write Prometheus metrics in text format to this file (optional)")
	app.fs.BoolVar(&app.flDryRun, "dry-run", false, "Do not actually run, just do checks and validation")
	app.fs.Usage = func() {
		printSubCommandUsage(longHelp, app.fs)
	}
	return app
}

// App is subcommand application context that implements Commander interface.
type App struct {
	// Configuration object
	cfg *Config
	// FlagSet instance
	fs *flag.FlagSet
	// Global flags
	gf globalFlags
	// Keying parameter flags
	kf keyingFlags

	flBaseDir     string
	flBg          int
	flBackend     string
	flNoPlots     bool
	flMetricsFile string
	flVideo       string
	flDryRun      bool

	// Single video parameter test mode
	testMode bool
	// Interactive input and report output
	in  io.Reader
	out io.Writer
	// Per-video metric store
	mStore *metric.Store
	// Backend factory, replaceable in tests
	newBackend func(name string, opts media.Options) (video.Backend, error)
}

// Make sure App implements Commander interface.
var _ Commander = (*App)(nil)

// Name returns subcommand name.
func (a *App) Name() string {
	return a.fs.Name()
}

// Help prints subcommand usage.
func (a *App) Help() {
	a.fs.Usage()
}

// init will do App state initialization.
func (a *App) init(args []string) error {
	if err := a.fs.Parse(args); err != nil {
		return &AppError{
			exitCode: 2,
			msg:      fmt.Sprintf("%s usage error", a.fs.Name()),
		}
	}

	if a.gf.Debug {
		logging.EnableDebugLogger()
	}

	c, err := a.gf.loadConfig()
	if err != nil {
		return &AppError{exitCode: 1, msg: err.Error()}
	}
	a.kf.Apply(a.fs, &c)
	if isFlagSet(a.fs, "backend") {
		c.Backend = NewConfigVal(a.flBackend)
	}
	a.cfg = &c

	return nil
}

// Run is main entry point into App execution.
func (a *App) Run(args []string) error {
	logging.Infof("chromaswap version: %s", vInfo)
	if err := a.init(args); err != nil {
		return err
	}

	logging.Debugf("Application configuration: %#v", a.cfg)
	if err := a.cfg.Verify(); err != nil {
		return &AppError{exitCode: 1, msg: fmt.Sprintf("configuration validation: %s", err)}
	}

	pc, err := a.createPlanConfig()
	if err != nil {
		return err
	}
	plan := batch.NewPlan(pc)

	fmt.Fprintf(a.out, "Background: %s\n", path.Base(pc.Background))
	fmt.Fprintf(a.out, "Videos: %d\n", len(plan.Jobs))
	fmt.Fprintf(a.out, "%s\n", describeParams(pc.Params))
	fmt.Fprintf(a.out, "Output: %s\n", pc.OutDir)

	if a.flDryRun {
		for _, j := range plan.Jobs {
			fmt.Fprintf(a.out, "  %s -> %s\n", j.SourceFile, j.OutputFile)
		}
		logging.Info("Dry run mode finished!")
		return nil
	}

	backend, err := a.backend()
	if err != nil {
		return &AppError{exitCode: 1, msg: err.Error()}
	}

	runID := uuid.NewString()
	logging.WithFields(logging.Fields{"run_id": runID, "backend": backend.Name()}).Info("Starting run")
	collector := metric.NewCollector()

	result, runErr := plan.Run(backend, collector)
	if ur := unrollResultErrors(result.RunResults); ur != "" {
		logging.Infof("Run had following ERRORS:\n%s", ur)
	}
	if runErr != nil && !errors.Is(runErr, batch.ErrPlanFailures) {
		return &AppError{exitCode: 1, msg: runErr.Error()}
	}

	var artifactErr bool
	for i := range result.RunResults {
		res := &result.RunResults[i]
		collector.ObserveVideo(res.OK())
		id := a.mStore.Insert(newRecord(runID, res))
		logging.Debugf("Storing record (id=%v) for %s", id, res.Name)

		if err := saveFrameArtifacts(res, a.artifactBase(res), !a.flNoPlots); err != nil {
			artifactErr = true
			logging.Infof("Artifacts for %s: %s", res.Name, err)
		}
	}
	collector.MarkRunDone(time.Now())

	if err := a.saveReport(pc.OutDir); err != nil {
		return &AppError{exitCode: 1, msg: err.Error()}
	}
	if a.flMetricsFile != "" {
		if err := collector.WriteTextfile(a.flMetricsFile); err != nil {
			return &AppError{exitCode: 1, msg: err.Error()}
		}
		logging.Infof("Metrics written: %s", a.flMetricsFile)
	}

	fmt.Fprintf(a.out, "Succeeded: %d\n", result.Succeeded())
	fmt.Fprintf(a.out, "Failed: %d\n", result.Failed())
	if a.testMode && result.Succeeded() == 1 {
		fmt.Fprintf(a.out, "Output file: %s\n%s", result.RunResults[0].OutputFile, tuningHints)
	}

	if result.Failed() != 0 {
		return &AppError{exitCode: 1, msg: fmt.Sprintf("%d of %d videos failed", result.Failed(), len(result.RunResults))}
	}
	if artifactErr {
		return &AppError{exitCode: 1, msg: "failed writing stats artifacts, see log for reasons"}
	}
	logging.Info("Done")
	return nil
}

// createPlanConfig discovers inputs under base directory and selects background.
func (a *App) createPlanConfig() (pc batch.PlanConfig, err error) {
	baseDir, err := filepath.Abs(a.flBaseDir)
	if err != nil {
		return pc, &AppError{exitCode: 1, msg: err.Error()}
	}
	layout := batch.Layout{BaseDir: baseDir}

	instructions, err := layout.EnsureDirs()
	if errors.Is(err, batch.ErrSetupRequired) {
		fmt.Fprint(a.out, instructions)
		return pc, &AppError{exitCode: 1, msg: err.Error()}
	}
	if err != nil {
		return pc, &AppError{exitCode: 1, msg: err.Error()}
	}

	images, err := batch.FindImages(layout.BackgroundDir())
	if err != nil {
		return pc, &AppError{exitCode: 1, msg: err.Error()}
	}
	bg, err := batch.SelectBackground(images, a.flBg, a.in, a.out)
	if errors.Is(err, batch.ErrSelectionCancelled) {
		return pc, &AppError{exitCode: 0, msg: err.Error()}
	}
	if err != nil {
		return pc, &AppError{exitCode: 1, msg: fmt.Sprintf("%s (supported: PNG, JPG, JPEG)", err)}
	}

	videos, err := batch.FindVideos(layout.GreenDir())
	if err != nil {
		return pc, &AppError{exitCode: 1, msg: err.Error()}
	}
	if len(videos) == 0 {
		return pc, &AppError{exitCode: 1, msg: fmt.Sprintf("no videos found in %s (supported: MP4, MOV, AVI, MKV)", layout.GreenDir())}
	}

	pc = batch.PlanConfig{
		Inputs:     videos,
		Background: bg,
		OutDir:     layout.OutputDir(),
		Params:     a.cfg.Params(),
	}
	if a.testMode {
		pc.OutDir = layout.TestOutputDir()
		pc.TestMode = true
		pc.Inputs, err = pickVideo(videos, a.flVideo)
		if err != nil {
			return pc, &AppError{exitCode: 1, msg: err.Error()}
		}
	}

	if ok, err := pc.IsValid(); !ok {
		ev := &batch.PlanConfigError{}
		if errors.As(err, &ev) {
			logging.Debugf("PlanConfig validation failures:\n%s", strings.Join(ev.Reasons(), "\n"))
		}
		return pc, &AppError{exitCode: 1, msg: fmt.Sprintf("PlanConfig not valid: %s", err)}
	}
	return pc, nil
}

// pickVideo returns the video with given file name, or the first one.
func pickVideo(videos []string, name string) ([]string, error) {
	if name == "" {
		return videos[:1], nil
	}
	names := make([]string, 0, len(videos))
	for _, v := range videos {
		if path.Base(v) == name {
			return []string{v}, nil
		}
		names = append(names, path.Base(v))
	}
	return nil, fmt.Errorf("video %s not found, available: %s", name, strings.Join(names, ", "))
}

// backend creates configured video backend.
func (a *App) backend() (video.Backend, error) {
	return a.newBackend(a.cfg.Backend.Value(), a.cfg.MediaOptions())
}

// artifactBase returns path prefix for per-video stats files.
func (a *App) artifactBase(res *batch.RunResult) string {
	if a.testMode {
		return strings.TrimSuffix(res.OutputFile, filepath.Ext(res.OutputFile))
	}
	return path.Join(path.Dir(res.OutputFile), res.Name)
}

// saveReport writes recorded metrics to report file.
func (a *App) saveReport(outDir string) error {
	reportPath := path.Join(outDir, a.cfg.ReportFileName.Value())
	reportOut, err := os.Create(reportPath)
	if err != nil {
		return fmt.Errorf("creating CSV report file: %w", err)
	}
	defer reportOut.Close()

	if err := a.mStore.WriteCSV(reportOut); err != nil {
		return err
	}
	logging.Infof("Report written: %s", reportPath)
	return nil
}

const tuningHints = `
Parameter tuning hints:
  Size and placement:
    smaller subject:       -scale 0.5
    larger subject:        -scale 1.0
    place at top:          -y-position 0.0
    place at center:       -y-position 0.5
    place near bottom:     -y-position 0.8
  Brightness:
    subject looks pasted on: brightness matching is on by default
    keep original colors:    -no-brightness-match
  Green remains around subject:
    widen key range:       -lower 30,60,60 -upper 90,255,255
  Parts of subject disappear:
    narrow key range:      -lower 40,100,100 -upper 80,255,255
`
