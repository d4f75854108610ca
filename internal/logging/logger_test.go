// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

package logging

import (
	"bytes"
	"strings"
	"testing"

	clog "github.com/charmbracelet/log"
)

// TestLoggingHelpers_WriteToBuffer swaps L for a buffer-backed logger and
// checks every helper reaches it.
func TestLoggingHelpers_WriteToBuffer(t *testing.T) {
	var buf bytes.Buffer
	prev := L
	defer func() { L = prev }()
	SetOutput(&buf)
	SetDebug(true)

	Debugf("hello %s", "dbg")
	Infof("info %d", 1)
	Warnf("warn")
	Errorf("err %v", "E")
	L.Info("cycle finished", "cycle", "01J0")

	out := buf.String()
	for _, want := range []string{"hello dbg", "info 1", "warn", "err E", "cycle=01J0"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output: %s", want, out)
		}
	}
}

func TestSetDebugTogglesLevel(t *testing.T) {
	prev := L
	defer func() { L = prev }()
	var buf bytes.Buffer
	SetOutput(&buf)

	SetDebug(false)
	if DebugEnabled() {
		t.Fatalf("expected debug disabled")
	}
	Debugf("hidden")
	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("debug line emitted at info level")
	}
	SetDebug(true)
	if !DebugEnabled() || L.GetLevel() != clog.DebugLevel {
		t.Fatalf("expected debug level")
	}
}
