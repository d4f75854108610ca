// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

// Package snapshot captures the voting database, either as structured
// per-table records or as a backend-specific SQL dump, and reads and writes
// the resulting files.
package snapshot // import "github.com/one2talk/votekeeper/internal/snapshot"

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/one2talk/votekeeper/internal/db"
	"github.com/one2talk/votekeeper/internal/exttool"
	"github.com/one2talk/votekeeper/internal/logging"
	"github.com/one2talk/votekeeper/internal/model"
	"github.com/uptrace/bun"
)

var (
	// ErrToolUnavailable is returned when the backend's dump or load tool is
	// not installed.
	ErrToolUnavailable = errors.New("native dump tool unavailable")
	// ErrToolFailed is returned when the dump or load tool fails or times out.
	ErrToolFailed = errors.New("native dump tool failed")
	// ErrCredentialLeak is returned when a dump still carries an excluded table.
	ErrCredentialLeak = errors.New("dump contains excluded table")
)

// DefaultToolTimeout bounds one dump or load tool run.
const DefaultToolTimeout = 300 * time.Second

// Source is the database being captured. *db.Store satisfies it.
type Source interface {
	BunDB() *bun.DB
	Type() string
	DSN() string
}

// Result is the outcome of Export. Exactly one of Dataset and Dump is set.
type Result struct {
	Strategy string
	Dataset  *model.DatasetSnapshot
	Dump     *Dump
	// Reports has one entry per exported table (structured only).
	Reports []model.TableReport
}

// Exporter drives the row codec or the native dump tool over a Source.
type Exporter struct {
	src         Source
	registry    *db.Registry
	runner      exttool.Runner
	toolTimeout time.Duration
	now         func() time.Time
}

// Option customises an Exporter.
type Option func(*Exporter)

// WithRegistry replaces the default table registry.
func WithRegistry(r *db.Registry) Option { return func(e *Exporter) { e.registry = r } }

// WithRunner sets the external tool runner used by NativeDump.
func WithRunner(r exttool.Runner) Option { return func(e *Exporter) { e.runner = r } }

// WithToolTimeout bounds each dump tool run.
func WithToolTimeout(d time.Duration) Option { return func(e *Exporter) { e.toolTimeout = d } }

// WithClock overrides time.Now for timestamps.
func WithClock(now func() time.Time) Option { return func(e *Exporter) { e.now = now } }

// NewExporter returns an Exporter for src.
func NewExporter(src Source, opts ...Option) *Exporter {
	e := &Exporter{
		src:         src,
		registry:    db.DefaultRegistry(),
		runner:      exttool.NewExecRunner(),
		toolTimeout: DefaultToolTimeout,
		now:         time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Export captures the database with the given strategy.
func (e *Exporter) Export(ctx context.Context, s Strategy) (*Result, error) {
	switch st := s.(type) {
	case Structured:
		return e.exportStructured(ctx, st)
	case NativeDump:
		return e.exportNative(ctx, st)
	default:
		return nil, fmt.Errorf("unknown export strategy %T", s)
	}
}

func (e *Exporter) exportStructured(ctx context.Context, st Structured) (*Result, error) {
	tables := e.registry.Order()
	if st.Tables != nil {
		var err error
		if tables, err = e.registry.Subset(st.Tables); err != nil {
			return nil, err
		}
	}
	ds := model.NewDatasetSnapshot(e.now(), db.MaskDSN(e.src.DSN()), e.src.Type())
	res := &Result{Strategy: st.Name(), Dataset: ds}
	// All tables are read in one transaction; a failing table only rolls
	// back its own savepoint.
	err := db.WithReadTx(ctx, e.src.BunDB(), func(ctx context.Context, tx bun.Tx) error {
		for _, d := range tables {
			if st.ExcludeCredentials && d.Credentials {
				continue
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			var recs []model.Record
			err := db.Savepoint(ctx, tx, "read_"+d.Name, func(ctx context.Context) error {
				var err error
				recs, err = db.Encode(ctx, tx, d)
				return err
			})
			if err != nil {
				logging.Warnf("export: table %s failed: %v", d.Name, err)
				if ds.Metadata.Failures == nil {
					ds.Metadata.Failures = map[string]string{}
				}
				ds.Metadata.Failures[d.Name] = err.Error()
				ds.Tables[d.Name] = []model.Record{}
				res.Reports = append(res.Reports, model.TableReport{Table: d.Name, Err: err})
				continue
			}
			ds.Tables[d.Name] = recs
			res.Reports = append(res.Reports, model.TableReport{Table: d.Name, Rows: len(recs)})
			logging.Debugf("export: %s: %d records", d.Name, len(recs))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	return res, nil
}

func (e *Exporter) exportNative(ctx context.Context, st NativeDump) (*Result, error) {
	exclude := append(e.registry.CredentialTables(), st.Exclude...)
	slices.Sort(exclude)
	exclude = slices.Compact(exclude)

	var include []string
	for _, n := range e.registry.Names() {
		if !slices.Contains(exclude, n) {
			include = append(include, n)
		}
	}
	dump, err := runDump(ctx, e.runner, e.src.Type(), e.src.DSN(), include, exclude, e.toolTimeout)
	if err != nil {
		return nil, err
	}
	dump.CreatedAt = e.now()
	return &Result{Strategy: st.Name(), Dump: dump}, nil
}
