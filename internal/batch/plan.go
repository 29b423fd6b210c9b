// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package batch

import (
	"errors"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/evolution-gaming/chromaswap/internal/logging"
	"github.com/evolution-gaming/chromaswap/internal/video"
)

// ErrPlanFailures is returned by Plan.Run when at least one job failed.
var ErrPlanFailures = errors.New("plan run executed with errors")

// Plan is an ordered list of jobs sharing background and parameters.
type Plan struct {
	// Embed PlanConfig struct
	PlanConfig
	Jobs []Job
	// Flag to signal if output dir has been created
	outDirCreated bool
}

// NewPlan will create Plan instance from given PlanConfig.
func NewPlan(pc PlanConfig) Plan {
	p := Plan{PlanConfig: pc}
	for _, in := range pc.Inputs {
		name := OutputName(in)
		if pc.TestMode {
			name = TestOutputName(in, pc.Params)
		}
		p.Jobs = append(p.Jobs, Job{
			Name:       Stem(in),
			SourceFile: in,
			OutputFile: path.Join(pc.OutDir, name),
			Background: pc.Background,
			Params:     pc.Params,
		})
	}
	return p
}

// Run executes jobs one after another. A failed job does not stop the plan.
func (p *Plan) Run(backend video.Backend, obs Observer) (PlanResult, error) {
	result := PlanResult{
		StartTime:  time.Now(),
		RunResults: make([]RunResult, len(p.Jobs)),
	}

	if err := p.ensureOutDir(); err != nil {
		return result, err
	}

	for i := range p.Jobs {
		logging.Infof("Start %d/%d: %s -> %s", i+1, len(p.Jobs), p.Jobs[i].SourceFile, p.Jobs[i].OutputFile)
		result.RunResults[i] = p.Jobs[i].Run(backend, obs)
	}
	result.EndTime = time.Now()

	if result.Failed() != 0 {
		return result, ErrPlanFailures
	}
	return result, nil
}

// ensureOutDir will create output directory if it does not exist.
func (p *Plan) ensureOutDir() error {
	if p.outDirCreated {
		return nil
	}
	logging.Debugf("Creating output directory: %s", p.OutDir)
	if err := os.MkdirAll(p.OutDir, os.FileMode(0o755)); err != nil {
		return fmt.Errorf("ensureOutDir(): %w", err)
	}
	p.outDirCreated = true
	return nil
}

// PlanResult holds Plan execution result state.
type PlanResult struct {
	StartTime  time.Time
	EndTime    time.Time
	RunResults []RunResult
}

// Succeeded returns number of successful jobs.
func (r *PlanResult) Succeeded() int {
	var n int
	for i := range r.RunResults {
		if r.RunResults[i].OK() {
			n++
		}
	}
	return n
}

// Failed returns number of failed jobs.
func (r *PlanResult) Failed() int {
	return len(r.RunResults) - r.Succeeded()
}
