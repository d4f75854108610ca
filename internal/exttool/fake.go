// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

package exttool

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Call records one FakeRunner invocation.
type Call struct {
	Name  string
	Args  []string
	Env   []string
	Stdin []byte
}

// FakeRunner is a Runner for tests. Handler decides the outcome of each call;
// Stdout from the handler's Result is copied to Options.Stdout when set.
// Missing lists program names LookPath should fail for.
type FakeRunner struct {
	Handler func(call Call) (Result, error)
	Missing map[string]bool

	mu    sync.Mutex
	calls []Call
}

// LookPath fails for names listed in Missing.
func (f *FakeRunner) LookPath(name string) (string, error) {
	if f.Missing[name] {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return "/usr/bin/" + name, nil
}

// Run records the call and delegates to Handler.
func (f *FakeRunner) Run(ctx context.Context, name string, args []string, opts Options) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	call := Call{Name: name, Args: append([]string(nil), args...), Env: opts.Env}
	if opts.Stdin != nil {
		b, err := io.ReadAll(opts.Stdin)
		if err != nil {
			return Result{}, err
		}
		call.Stdin = b
	}
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	if f.Missing[name] {
		return Result{ExitCode: -1}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	var res Result
	var err error
	if f.Handler != nil {
		res, err = f.Handler(call)
	}
	if opts.Stdout != nil && len(res.Stdout) > 0 {
		if _, werr := opts.Stdout.Write(res.Stdout); werr != nil {
			return res, werr
		}
		res.Stdout = nil
	}
	return res, err
}

// Calls returns a copy of the recorded invocations.
func (f *FakeRunner) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}
