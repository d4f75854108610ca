// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

// Package logging wraps charmbracelet/log with a package-level logger and the
// printf-style helpers used across votekeeper. The worker uses L directly for
// structured key/value lines.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	clog "github.com/charmbracelet/log"
)

// L is the package-level logger.
var L = newLogger(os.Stderr)

func newLogger(w io.Writer) *clog.Logger {
	return clog.NewWithOptions(w, clog.Options{
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Prefix:          "votekeeper",
	})
}

// SetOutput replaces L with a logger writing to w, keeping the current level.
func SetOutput(w io.Writer) {
	lvl := L.GetLevel()
	L = newLogger(w)
	L.SetLevel(lvl)
}

// SetDebug switches L between debug and info level.
func SetDebug(enabled bool) {
	if enabled {
		L.SetLevel(clog.DebugLevel)
		return
	}
	L.SetLevel(clog.InfoLevel)
}

// DebugEnabled reports whether debug lines are emitted.
func DebugEnabled() bool {
	return L.GetLevel() <= clog.DebugLevel
}

// Debugf logs a debug-level formatted message.
func Debugf(format string, v ...any) {
	L.Debug(fmt.Sprintf(format, v...))
}

// Infof logs an info-level formatted message.
func Infof(format string, v ...any) {
	L.Info(fmt.Sprintf(format, v...))
}

// Warnf logs a warning-level formatted message.
func Warnf(format string, v ...any) {
	L.Warn(fmt.Sprintf(format, v...))
}

// Errorf logs an error-level formatted message.
func Errorf(format string, v ...any) {
	L.Error(fmt.Sprintf(format, v...))
}
