// Copyright ©2022 Evolution. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Two level (Info and Debug) logging facade over logrus. Nothing is logged until a
// level is explicitly enabled via call to Enable*Logger().
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Fields is a set of structured key/value pairs attached to a log entry.
type Fields = logrus.Fields

var (
	defaultOutput io.Writer = os.Stderr
	// Logger is the shared logger, output is discarded until a level is enabled.
	Logger = newLogger()
)

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006/01/02 15:04:05",
	})
	return l
}

// EnableInfoLogger helper function to explicitly enable Info level.
func EnableInfoLogger() {
	Logger.SetOutput(defaultOutput)
}

// EnableDebugLogger helper function to explicitly enable Debug level, which implies Info.
func EnableDebugLogger() {
	Logger.SetOutput(defaultOutput)
	Logger.SetLevel(logrus.DebugLevel)
}

// SetOutput redirects all enabled levels to w.
func SetOutput(w io.Writer) {
	Logger.SetOutput(w)
}

// WithFields returns an entry carrying structured fields.
func WithFields(f Fields) *logrus.Entry {
	return Logger.WithFields(f)
}

func Info(v ...interface{}) {
	Logger.Info(v...)
}

func Infof(format string, v ...interface{}) {
	Logger.Infof(format, v...)
}

func Debug(v ...interface{}) {
	Logger.Debug(v...)
}

func Debugf(format string, v ...interface{}) {
	Logger.Debugf(format, v...)
}
