// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package tools

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// ErrToolNotFound is returned when an executable can not be located.
var ErrToolNotFound = errors.New("tool not found")

// FindTool will find tool executable in $PATH with possibility to override it
// via environment variable. An override pointing nowhere is an error, it is not
// silently replaced by whatever is in $PATH.
func FindTool(exeName, overrideEnvVar string) (string, error) {
	if overrideEnvVar != "" {
		if p := os.Getenv(overrideEnvVar); p != "" {
			return ResolveTool(p)
		}
	}

	if p, err := exec.LookPath(exeName); err == nil {
		return p, nil
	}

	return "", fmt.Errorf("%w: binary (%s) not in $PATH", ErrToolNotFound, exeName)
}

// ResolveTool accepts either an explicit path to an existing file or a bare command
// name to be searched in $PATH.
func ResolveTool(p string) (string, error) {
	if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
		return p, nil
	}
	if lp, err := exec.LookPath(p); err == nil {
		return lp, nil
	}
	return "", fmt.Errorf("%w: %s", ErrToolNotFound, p)
}
