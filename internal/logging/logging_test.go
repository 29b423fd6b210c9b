// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package logging_test

import (
	"io"
	"regexp"
	"strings"
	"testing"

	"github.com/evolution-gaming/chromaswap/internal/logging"
	"github.com/sirupsen/logrus"
)

func withDebug(t *testing.T) *strings.Builder {
	var out strings.Builder
	logging.SetOutput(&out)
	logging.Logger.SetLevel(logrus.DebugLevel)
	t.Cleanup(func() {
		logging.SetOutput(io.Discard)
		logging.Logger.SetLevel(logrus.InfoLevel)
	})
	return &out
}

func TestUnformattedLogging(t *testing.T) {
	tests := map[string]struct {
		given   string
		want    *regexp.Regexp
		logFunc func(...interface{})
	}{
		"Simple Info": {
			given:   "info message",
			want:    regexp.MustCompile(`level=info msg="info message"`),
			logFunc: logging.Info,
		},
		"Simple Debug": {
			given:   "debug message",
			want:    regexp.MustCompile(`level=debug msg="debug message"`),
			logFunc: logging.Debug,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			out := withDebug(t)
			tc.logFunc(tc.given)
			got := out.String()
			if !tc.want.MatchString(got) {
				t.Errorf("Log message not found (-want/+got)\n\t-%s\n\t+%s", tc.want.String(), got)
			}
		})
	}
}

func TestFormattedLogging(t *testing.T) {
	tests := map[string]struct {
		given1  string
		given2  string
		want    *regexp.Regexp
		format  string
		logFunc func(string, ...interface{})
	}{
		"Complex Info": {
			given1:  "info message 1",
			given2:  "info message 2",
			want:    regexp.MustCompile(`level=info msg="info message 1 -- info message 2"`),
			format:  "%s -- %s",
			logFunc: logging.Infof,
		},
		"Complex Debug": {
			given1:  "debug message 1",
			given2:  "debug message 2",
			format:  "%s -- %s",
			want:    regexp.MustCompile(`level=debug msg="debug message 1 -- debug message 2"`),
			logFunc: logging.Debugf,
		},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			out := withDebug(t)
			tc.logFunc(tc.format, tc.given1, tc.given2)
			got := out.String()
			if !tc.want.MatchString(got) {
				t.Errorf("Log message not found (-want/+got)\n\t-%s\n\t+%s", tc.want.String(), got)
			}
		})
	}
}

func TestDebugHiddenAtInfoLevel(t *testing.T) {
	var out strings.Builder
	logging.SetOutput(&out)
	t.Cleanup(func() { logging.SetOutput(io.Discard) })

	logging.Debug("hidden")
	logging.Info("shown")
	if strings.Contains(out.String(), "hidden") {
		t.Errorf("Debug message leaked at info level: %s", out.String())
	}
	if !strings.Contains(out.String(), "shown") {
		t.Errorf("Info message missing: %s", out.String())
	}
}

func TestWithFields(t *testing.T) {
	out := withDebug(t)
	logging.WithFields(logging.Fields{"video": "a.mp4", "frames": 10}).Info("done")
	got := out.String()
	for _, want := range []string{"video=a.mp4", "frames=10", "msg=done"} {
		if !strings.Contains(got, want) {
			t.Errorf("Missing %q in %q", want, got)
		}
	}
}
