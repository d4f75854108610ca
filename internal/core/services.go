// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

// Package core holds the operations the command line and the interactive menu
// share: backups, restores, database transfers, remote copies and the
// delivery worker. Front-ends build a Services value once and call into it.
package core // import "github.com/one2talk/votekeeper/internal/core"

import (
	"context"
	"fmt"
	"time"

	"github.com/one2talk/votekeeper/internal/config"
	"github.com/one2talk/votekeeper/internal/db"
	"github.com/one2talk/votekeeper/internal/exttool"
)

// Reporter is used by facades to emit progress or human-readable messages.
// Implementations may write to stdout, logs, or test buffers.
type Reporter interface {
	Reportf(format string, args ...any)
}

// ReporterFunc adapts a plain function to Reporter.
type ReporterFunc func(format string, args ...any)

// Reportf implements Reporter.
func (f ReporterFunc) Reportf(format string, args ...any) { f(format, args...) }

type nopReporter struct{}

func (nopReporter) Reportf(string, ...any) {}

// Services bundles the open database with the settings every operation needs.
type Services struct {
	store  *db.Store
	cfg    *config.Config
	runner exttool.Runner
	rep    Reporter
	now    func() time.Time
	owned  bool
}

// Option customises Services.
type Option func(*Services)

// WithRunner sets the external tool runner (dump tools, scp).
func WithRunner(r exttool.Runner) Option { return func(s *Services) { s.runner = r } }

// WithReporter sets where progress messages go.
func WithReporter(r Reporter) Option { return func(s *Services) { s.rep = r } }

// WithClock overrides time.Now for file names and timestamps.
func WithClock(now func() time.Time) Option { return func(s *Services) { s.now = now } }

// Open connects to cfg.Database.URL, creating absent tables. The returned
// Services owns the store and closes it in Close.
func Open(ctx context.Context, cfg *config.Config, opts ...Option) (*Services, error) {
	store, err := db.Open(ctx, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", db.MaskDSN(cfg.Database.URL), err)
	}
	s := New(store, cfg, opts...)
	s.owned = true
	return s, nil
}

// New wraps an already open store. The caller keeps ownership of store.
func New(store *db.Store, cfg *config.Config, opts ...Option) *Services {
	s := &Services{
		store:  store,
		cfg:    cfg,
		runner: exttool.NewExecRunner(),
		rep:    nopReporter{},
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Store returns the local database.
func (s *Services) Store() *db.Store { return s.store }

// Config returns the settings the Services were built with.
func (s *Services) Config() *config.Config { return s.cfg }

// Close releases the store if Open created it.
func (s *Services) Close() error {
	if s.owned && s.store != nil {
		return s.store.Close()
	}
	return nil
}

// Reporting returns a copy of s that sends progress to r. The copy does not
// own the store.
func (s *Services) Reporting(r Reporter) *Services {
	c := *s
	c.rep = r
	c.owned = false
	return &c
}
