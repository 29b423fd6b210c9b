// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Application version string related functionality.
//
// Version is either injected with -ldflags="-X main.version={ver}" or taken from
// debug.BuildInfo when installed via "go install".

package main

import (
	"fmt"
	"os"
	"runtime/debug"
	"strings"
	"time"
)

var (
	version string
	vInfo   = readVersionInfo(version, debug.ReadBuildInfo)
)

// versionInfo is struct that includes relevant version information.
type versionInfo struct {
	time      time.Time
	version   string
	revision  string
	modified  bool
	goVersion string
}

func readVersionInfo(injected string, read func() (*debug.BuildInfo, bool)) versionInfo {
	v := versionInfo{version: injected}
	bi, ok := read()
	if !ok {
		return v
	}
	if v.version == "" {
		v.version = bi.Main.Version
	}
	v.goVersion = bi.GoVersion

	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			v.revision = s.Value
		case "vcs.time":
			v.time, _ = time.Parse(time.RFC3339, s.Value)
		case "vcs.modified":
			v.modified = s.Value == "true"
		}
	}
	return v
}

func (v versionInfo) String() string {
	parts := []string{v.version}
	if v.revision != "" {
		rev := v.revision
		if v.modified {
			rev += "-dirty"
		}
		parts = append(parts, rev)
	}
	if !v.time.IsZero() {
		parts = append(parts, v.time.UTC().Format(time.RFC3339))
	}
	if v.goVersion != "" {
		parts = append(parts, v.goVersion)
	}
	return strings.Join(parts, " ")
}

func printVersion() {
	fmt.Fprintln(os.Stdout, vInfo)
}
