// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Application configuration structures.

package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/evolution-gaming/chromaswap/internal/keying"
	"github.com/evolution-gaming/chromaswap/internal/logging"
	"github.com/evolution-gaming/chromaswap/internal/media"
	"github.com/evolution-gaming/chromaswap/internal/tools"
	"github.com/google/shlex"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var (
	ErrInvalidConfig  = errors.New("invalid configuration")
	defaultReportFile = "report.csv"
	defaultEnvFile    = ".env"
)

// Config represent application configuration.
type Config struct {
	FfmpegPath      ConfigVal[string]     `json:"ffmpeg_path,omitempty" yaml:"ffmpeg_path,omitempty"`
	FfprobePath     ConfigVal[string]     `json:"ffprobe_path,omitempty" yaml:"ffprobe_path,omitempty"`
	Backend         ConfigVal[string]     `json:"backend,omitempty" yaml:"backend,omitempty"`
	EncoderArgs     ConfigVal[string]     `json:"encoder_args,omitempty" yaml:"encoder_args,omitempty"`
	ReportFileName  ConfigVal[string]     `json:"report_file_name,omitempty" yaml:"report_file_name,omitempty"`
	Lower           ConfigVal[keying.HSV] `json:"lower,omitempty" yaml:"lower,omitempty"`
	Upper           ConfigVal[keying.HSV] `json:"upper,omitempty" yaml:"upper,omitempty"`
	Scale           ConfigVal[float64]    `json:"scale,omitempty" yaml:"scale,omitempty"`
	YPosition       ConfigVal[float64]    `json:"y_position,omitempty" yaml:"y_position,omitempty"`
	BrightnessMatch ConfigVal[bool]       `json:"brightness_match,omitempty" yaml:"brightness_match,omitempty"`
}

// Params assembles keying parameters from configuration.
func (c *Config) Params() keying.Params {
	return keying.Params{
		Range: keying.ColorRange{
			Lower: c.Lower.Value(),
			Upper: c.Upper.Value(),
		},
		Placement: keying.PlacementSpec{
			Scale:     c.Scale.Value(),
			YPosition: c.YPosition.Value(),
		},
		BrightnessMatch: c.BrightnessMatch.Value(),
	}
}

// MediaOptions returns options for media backend creation.
func (c *Config) MediaOptions() media.Options {
	return media.Options{
		FfmpegPath:  c.FfmpegPath.Value(),
		FfprobePath: c.FfprobePath.Value(),
		EncoderArgs: c.EncoderArgs.Value(),
	}
}

// Verify will check that configuration is valid.
//
// Will check that configuration option values are sensible.
func (c *Config) Verify() error {
	msgs := []string{}
	backend := c.Backend.Value()
	if !slices.Contains(media.Backends(), backend) {
		msgs = append(msgs, fmt.Sprintf("unknown backend %q", backend))
	}
	// ffmpeg tools are only needed by ffmpeg backend.
	if backend == media.DefaultBackend {
		if !fileExists(c.FfmpegPath.Value()) {
			msgs = append(msgs, "invalid ffmpeg path")
		}
		if !fileExists(c.FfprobePath.Value()) {
			msgs = append(msgs, "invalid ffprobe path")
		}
	}
	if _, err := shlex.Split(c.EncoderArgs.Value()); err != nil {
		msgs = append(msgs, fmt.Sprintf("invalid encoder args: %s", err))
	}
	if c.ReportFileName.Value() == "" {
		msgs = append(msgs, "empty report file name")
	}
	if err := c.Params().Validate(); err != nil {
		var pe *keying.ParamsError
		if errors.As(err, &pe) {
			msgs = append(msgs, pe.Reasons()...)
		} else {
			msgs = append(msgs, err.Error())
		}
	}

	if len(msgs) != 0 {
		return fmt.Errorf("%s: %w", strings.Join(msgs, ", "), ErrInvalidConfig)
	}
	return nil
}

// OverrideFrom will overwrite fields from given Config object.
//
// Only fields that are "not-nil" (as per IsNil() method) in src Config object will be
// overwritten.
func (c *Config) OverrideFrom(src Config) {
	overrideVal(&c.FfmpegPath, src.FfmpegPath)
	overrideVal(&c.FfprobePath, src.FfprobePath)
	overrideVal(&c.Backend, src.Backend)
	overrideVal(&c.EncoderArgs, src.EncoderArgs)
	overrideVal(&c.ReportFileName, src.ReportFileName)
	overrideVal(&c.Lower, src.Lower)
	overrideVal(&c.Upper, src.Upper)
	overrideVal(&c.Scale, src.Scale)
	overrideVal(&c.YPosition, src.YPosition)
	overrideVal(&c.BrightnessMatch, src.BrightnessMatch)
}

func overrideVal[T any](dst *ConfigVal[T], src ConfigVal[T]) {
	if !src.IsNil() {
		*dst = src
	}
}

// loadDefaultConfig will create a default configuration.
//
// Tool paths are auto-detected. Missing tools do not fail loading, since only the ffmpeg
// backend needs them, Verify reports them instead.
func loadDefaultConfig() (Config, error) {
	cfg := Config{
		Backend:         NewConfigVal(media.DefaultBackend),
		EncoderArgs:     NewConfigVal(media.DefaultEncoderArgs),
		ReportFileName:  NewConfigVal(defaultReportFile),
		Lower:           NewConfigVal(keying.DefaultLower),
		Upper:           NewConfigVal(keying.DefaultUpper),
		Scale:           NewConfigVal(keying.DefaultScale),
		YPosition:       NewConfigVal(keying.DefaultYPosition),
		BrightnessMatch: NewConfigVal(true),
	}

	if ffmpeg, err := tools.FfmpegPath(); err != nil {
		logging.Debugf("DefaultConfig: %s", err)
	} else {
		cfg.FfmpegPath = NewConfigVal(ffmpeg)
	}
	if ffprobe, err := tools.FfprobePath(); err != nil {
		logging.Debugf("DefaultConfig: %s", err)
	} else {
		cfg.FfprobePath = NewConfigVal(ffprobe)
	}

	return cfg, nil
}

// loadConfigFromFile will load configuration from file, format is chosen by extension.
func loadConfigFromFile(f string) (cfg Config, err error) {
	fileExt := strings.ToLower(filepath.Ext(f))
	switch fileExt {
	case ".json":
		return loadJSON(f)
	case ".yaml", ".yml":
		return loadYAML(f)
	default:
		return cfg, fmt.Errorf("unknown config format: %s", fileExt)
	}
}

// LoadConfig will return merged default config and config from file. This is main
// function to use for config loading. Configuration file is optional e.g. can be "".
func LoadConfig(configFile string) (cfg Config, err error) {
	cfg, err = loadDefaultConfig()
	if err != nil {
		return cfg, err
	}

	if configFile != "" {
		c, err := loadConfigFromFile(configFile)
		if err != nil {
			return cfg, err
		}
		// Configuration file can specify full set or partial set of configuration
		// options, the rest remains as per default config.
		cfg.OverrideFrom(c)
	}

	return cfg, nil
}

// loadEnvFile loads environment overrides (e.g. CHROMASWAP_FFMPEG) from a dotenv file.
// Variables already present in environment win. A missing default file is not an error.
func loadEnvFile(f string) error {
	if f == "" {
		return nil
	}
	if f == defaultEnvFile && !fileExists(f) {
		return nil
	}
	if err := godotenv.Load(f); err != nil {
		return fmt.Errorf("loading env file %s: %w", f, err)
	}
	logging.Debugf("Loaded environment from %s", f)
	return nil
}

func loadJSON(f string) (cfg Config, err error) {
	b, err := os.ReadFile(f)
	if err != nil {
		return cfg, fmt.Errorf("config from JSON file: %w", err)
	}

	if len(b) == 0 {
		return cfg, fmt.Errorf("JSON file is empty: %w", ErrInvalidConfig)
	}

	if err = json.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("config from JSON document: %w", err)
	}

	return cfg, nil
}

func loadYAML(f string) (cfg Config, err error) {
	b, err := os.ReadFile(f)
	if err != nil {
		return cfg, fmt.Errorf("config from YAML file: %w", err)
	}

	if len(b) == 0 {
		return cfg, fmt.Errorf("YAML file is empty: %w", ErrInvalidConfig)
	}

	if err = yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("config from YAML document: %w", err)
	}

	return cfg, nil
}

// In order to support Config overriding we have to implement wrapper type for Config
// fields. Otherwise it is hard to distinguish skipped fields, for instance when loading
// partial configuration from file: in that case it would be impossible to distinguish
// between say string fields zero value and empty string values as explicitly specified in
// configuration file.

// NewConfigVal is constructor for ConfigVal. It will wrap its argument into ConfigVal.
func NewConfigVal[T any](v T) ConfigVal[T] {
	return ConfigVal[T]{v: &v}
}

// ConfigVal is a wrapper for Config field value.
type ConfigVal[T any] struct {
	// Store wrapped value as pointer in order to have ability to distinguish between
	// unspecified ConfigVal and a value that is the same as zero value for wrapped type.
	v *T
}

// Value will return wrapped value, or zero value of T when unset.
func (o *ConfigVal[T]) Value() T {
	if o.IsNil() {
		var v T
		return v
	}
	return *o.v
}

// IsNil check if wrapped value is nil.
func (o *ConfigVal[T]) IsNil() bool {
	return o.v == nil
}

// UnmarshalJSON implements json.Unmarshaler interface for ConfigVal.
func (o *ConfigVal[T]) UnmarshalJSON(b []byte) error {
	var val T
	if err := json.Unmarshal(b, &val); err != nil {
		return err
	}
	o.v = &val
	return nil
}

// MarshalJSON implements json.Marshaler interface for ConfigVal.
func (o ConfigVal[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.Value())
}

// UnmarshalYAML implements yaml.Unmarshaler interface for ConfigVal.
func (o *ConfigVal[T]) UnmarshalYAML(node *yaml.Node) error {
	var val T
	if err := node.Decode(&val); err != nil {
		return err
	}
	o.v = &val
	return nil
}

// MarshalYAML implements yaml.Marshaler interface for ConfigVal.
func (o ConfigVal[T]) MarshalYAML() (interface{}, error) {
	return o.Value(), nil
}

// IsZero lets omitempty drop unset values when marshalling YAML.
func (o ConfigVal[T]) IsZero() bool {
	return o.v == nil
}

func CreateDumpConfCommand() *DumpConfApp {
	longHelp := `Command "dump-conf" will print actual application configuration taking into account
configuration file provided and default configuration values.

Examples:

	chromaswap dump-conf
	chromaswap dump-conf -conf path/to/config.json
	chromaswap dump-conf -conf path/to/config.yaml -format yaml`

	app := &DumpConfApp{
		fs:  flag.NewFlagSet("dump-conf", flag.ContinueOnError),
		gf:  globalFlags{},
		out: os.Stdout,
	}
	app.gf.Register(app.fs)
	app.fs.StringVar(&app.flFormat, "format", "json", "Output format: json or yaml")
	app.fs.Usage = func() {
		printSubCommandUsage(longHelp, app.fs)
	}

	return app
}

// Make sure App implements Commander interface.
var _ Commander = (*DumpConfApp)(nil)

// DumpConfApp is subcommand application context that implements Commander interface.
// Although this is very simple application, but for consistency sake is is implemented in
// similar style as other subcommands.
type DumpConfApp struct {
	out      io.Writer
	fs       *flag.FlagSet
	gf       globalFlags
	flFormat string
}

// Name returns subcommand name.
func (d *DumpConfApp) Name() string {
	return d.fs.Name()
}

// Help prints subcommand usage.
func (d *DumpConfApp) Help() {
	d.fs.Usage()
}

// Run is main entry point into DumpConfApp execution.
func (d *DumpConfApp) Run(args []string) error {
	if err := d.fs.Parse(args); err != nil {
		return &AppError{
			exitCode: 2,
			msg:      "usage error",
		}
	}

	if d.gf.Debug {
		logging.EnableDebugLogger()
	}

	cfg, err := d.gf.loadConfig()
	if err != nil {
		return &AppError{exitCode: 1, msg: err.Error()}
	}

	switch d.flFormat {
	case "json":
		enc := json.NewEncoder(d.out)
		enc.SetIndent("", "  ")
		err = enc.Encode(cfg)
	case "yaml":
		enc := yaml.NewEncoder(d.out)
		enc.SetIndent(2)
		err = enc.Encode(cfg)
		if err == nil {
			err = enc.Close()
		}
	default:
		return &AppError{exitCode: 2, msg: fmt.Sprintf("unknown format: %s", d.flFormat)}
	}
	if err != nil {
		return &AppError{exitCode: 1, msg: err.Error()}
	}

	// Also, report if configuration is valid.
	if err := cfg.Verify(); err != nil {
		return &AppError{exitCode: 1, msg: fmt.Sprintf("configuration validation: %s", err)}
	}

	return nil
}
