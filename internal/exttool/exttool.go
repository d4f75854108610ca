// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

// Package exttool runs external programs (pg_dump, psql, mysqldump, sqlite3,
// scp) behind a narrow Runner interface so callers can be tested with a fake
// and a native client can replace a binary without touching them.
package exttool // import "github.com/one2talk/votekeeper/internal/exttool"

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/one2talk/votekeeper/internal/logging"
)

var (
	// ErrNotFound is returned when the program is not on PATH.
	ErrNotFound = errors.New("external tool not found")
	// ErrTimeout is returned when the program exceeds Options.Timeout.
	ErrTimeout = errors.New("external tool timed out")
	// ErrExit is returned when the program exits with a non-zero status.
	ErrExit = errors.New("external tool failed")
)

// Options controls one invocation.
type Options struct {
	// Env entries (KEY=VALUE) are appended to the current environment.
	Env []string
	// Stdin, when set, is fed to the program.
	Stdin io.Reader
	// Stdout, when set, receives standard output instead of Result.Stdout.
	Stdout io.Writer
	Dir    string
	// Timeout bounds the run; zero means no limit beyond ctx.
	Timeout time.Duration
}

// Result is what a finished program left behind.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Runner starts external programs.
type Runner interface {
	LookPath(name string) (string, error)
	Run(ctx context.Context, name string, args []string, opts Options) (Result, error)
}

// ExecRunner runs programs with os/exec.
type ExecRunner struct{}

// NewExecRunner returns the process-backed Runner.
func NewExecRunner() *ExecRunner { return &ExecRunner{} }

// LookPath resolves name on PATH.
func (ExecRunner) LookPath(name string) (string, error) {
	p, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return p, nil
}

// Run starts name with args and waits for it. A non-zero exit yields ErrExit
// with the trimmed stderr in the message; the Result is returned either way.
func (r ExecRunner) Run(ctx context.Context, name string, args []string, opts Options) (Result, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = opts.Dir
	cmd.WaitDelay = time.Second
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}
	cmd.Stdin = opts.Stdin
	var stdout, stderr bytes.Buffer
	if opts.Stdout != nil {
		cmd.Stdout = opts.Stdout
	} else {
		cmd.Stdout = &stdout
	}
	cmd.Stderr = &stderr

	start := time.Now()
	logging.Debugf("exttool: running %s %s", name, strings.Join(args, " "))
	err := cmd.Run()
	res := Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}
	logging.Debugf("exttool: %s finished in %s (exit %d)", name, time.Since(start), res.ExitCode)

	switch {
	case err == nil:
		return res, nil
	case errors.Is(err, exec.ErrNotFound):
		return res, fmt.Errorf("%w: %s", ErrNotFound, name)
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return res, fmt.Errorf("%w: %s after %s", ErrTimeout, name, opts.Timeout)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return res, fmt.Errorf("%w: %s exited with status %d: %s", ErrExit, name, res.ExitCode, strings.TrimSpace(string(res.Stderr)))
	}
	return res, fmt.Errorf("run %s: %w", name, err)
}
