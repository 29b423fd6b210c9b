// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package keying

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Default keying parameters, tuned for a typical studio green screen.
var (
	DefaultLower = HSV{35, 80, 80}
	DefaultUpper = HSV{85, 255, 255}
)

const (
	DefaultScale     = 0.7
	DefaultYPosition = 0.2
)

// ParamsError error type defines Params validation failures.
type ParamsError struct {
	msg     string
	reasons []string
}

func (e *ParamsError) Error() string {
	if len(e.reasons) > 0 {
		return fmt.Sprintf("%s with reasons:\n%s", e.msg, strings.Join(e.reasons, "\n"))
	}
	return e.msg
}

func (e *ParamsError) Reasons() []string {
	return e.reasons
}

func (e *ParamsError) addReason(reason string) {
	e.reasons = append(e.reasons, reason)
}

// Params holds everything the per-frame pipeline needs besides the frames themselves.
type Params struct {
	Range           ColorRange
	Placement       PlacementSpec
	BrightnessMatch bool
}

// DefaultParams returns green screen defaults with brightness matching on.
func DefaultParams() Params {
	return Params{
		Range:           ColorRange{Lower: DefaultLower, Upper: DefaultUpper},
		Placement:       PlacementSpec{Scale: DefaultScale, YPosition: DefaultYPosition},
		BrightnessMatch: true,
	}
}

// Validate rejects placement values that make the pipeline meaningless. HSV bounds are
// not checked, an inverted or out of range box selects nothing.
func (p Params) Validate() error {
	errParams := &ParamsError{msg: "invalid keying parameters"}

	s := p.Placement.Scale
	if math.IsNaN(s) || math.IsInf(s, 0) || s <= 0 {
		errParams.addReason(fmt.Sprintf("scale must be a positive number, got %v", s))
	}
	y := p.Placement.YPosition
	if math.IsNaN(y) || math.IsInf(y, 0) {
		errParams.addReason(fmt.Sprintf("y position must be a finite number, got %v", y))
	}

	if len(errParams.reasons) != 0 {
		return errParams
	}
	return nil
}

// ParseHSV parses "H,S,V" notation into an HSV triple.
func ParseHSV(s string) (HSV, error) {
	var c HSV
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return c, fmt.Errorf("HSV triple %q: expecting 3 comma separated integers", s)
	}
	vals := make([]int, 3)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return c, fmt.Errorf("HSV triple %q: %w", s, err)
		}
		vals[i] = v
	}
	return HSV{vals[0], vals[1], vals[2]}, nil
}

// MarshalText implements encoding.TextMarshaler.
func (c HSV) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *HSV) UnmarshalText(text []byte) error {
	v, err := ParseHSV(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Set implements flag.Value.
func (c *HSV) Set(s string) error {
	return c.UnmarshalText([]byte(s))
}
