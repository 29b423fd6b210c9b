// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Batch plan configuration related abstractions.

package batch

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/evolution-gaming/chromaswap/internal/keying"
)

// PlanConfigError error type defines PlanConfig validation failures.
type PlanConfigError struct {
	msg     string
	reasons []string
}

func (e *PlanConfigError) Error() string {
	if len(e.reasons) > 0 {
		return fmt.Sprintf("%s with reasons:\n%s", e.msg, strings.Join(e.reasons, "\n"))
	}
	return e.msg
}

func (e *PlanConfigError) Reasons() []string {
	return e.reasons
}

func (e *PlanConfigError) addReason(reason string) {
	e.reasons = append(e.reasons, reason)
}

// PlanConfig holds configuration for new Plan creation.
type PlanConfig struct {
	// Source green screen videos.
	Inputs     []string
	Background string
	OutDir     string
	Params     keying.Params
	// TestMode switches output naming to parameter encoding test names.
	TestMode bool
}

// IsValid checks that inputs exist and parameters are usable.
func (p *PlanConfig) IsValid() (bool, error) {
	errPlanConfig := &PlanConfigError{msg: "validation error"}

	if len(p.Inputs) == 0 {
		errPlanConfig.addReason("Inputs missing")
	}
	if hasDuplicates(p.Inputs) {
		errPlanConfig.addReason("Duplicate inputs detected")
	} else {
		for _, g := range StemCollisions(p.Inputs) {
			errPlanConfig.addReason(fmt.Sprintf("Inputs share output name %s: %s",
				OutputName(g[0]), strings.Join(BaseNames(g), ", ")))
		}
	}
	for _, i := range p.Inputs {
		if _, err := os.Stat(i); err != nil {
			errPlanConfig.addReason(err.Error())
		}
	}

	if p.Background == "" {
		errPlanConfig.addReason("Background missing")
	} else if _, err := os.Stat(p.Background); err != nil {
		errPlanConfig.addReason(err.Error())
	}
	if p.OutDir == "" {
		errPlanConfig.addReason("Output directory missing")
	}

	if err := p.Params.Validate(); err != nil {
		var pe *keying.ParamsError
		if errors.As(err, &pe) {
			for _, r := range pe.Reasons() {
				errPlanConfig.addReason(r)
			}
		} else {
			errPlanConfig.addReason(err.Error())
		}
	}

	if len(errPlanConfig.reasons) != 0 {
		return false, errPlanConfig
	}
	return true, nil
}

// hasDuplicates checks if slice has duplicate elements.
func hasDuplicates(items []string) bool {
	seen := make(map[string]struct{}, len(items))
	for _, v := range items {
		if _, ok := seen[v]; ok {
			return true
		}
		seen[v] = struct{}{}
	}
	return false
}
