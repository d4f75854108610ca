// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

// Package restore puts an archive, a database-only snapshot or a SQL dump
// back into the live database and upload directory.
//
// A structured restore runs in one transaction: every table present in the
// snapshot is wiped (dependents first) and refilled (dependencies first), and
// the transaction commits only after the last table. Uploads are replaced
// only after the tables committed.
package restore // import "github.com/one2talk/votekeeper/internal/restore"

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/one2talk/votekeeper/internal/archive"
	"github.com/one2talk/votekeeper/internal/assets"
	"github.com/one2talk/votekeeper/internal/db"
	"github.com/one2talk/votekeeper/internal/exttool"
	"github.com/one2talk/votekeeper/internal/logging"
	"github.com/one2talk/votekeeper/internal/model"
	"github.com/one2talk/votekeeper/internal/snapshot"
	"github.com/uptrace/bun"
)

// State is a step of a restore run.
type State string

const (
	StateIdle            State = "idle"
	StateExtracting      State = "extracting"
	StateExtractFailed   State = "extract-failed"
	StateRestoringTables State = "restoring-tables"
	StateRestoringAssets State = "restoring-assets"
	StateDone            State = "done"
	StateFailed          State = "failed"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed || s == StateExtractFailed
}

// ErrBusy is returned when Restore is called on an engine that already ran.
var ErrBusy = errors.New("restore engine already used")

var transitions = map[State][]State{
	StateIdle:            {StateExtracting, StateRestoringTables, StateRestoringAssets},
	StateExtracting:      {StateExtractFailed, StateRestoringTables, StateRestoringAssets},
	StateRestoringTables: {StateRestoringAssets, StateDone, StateFailed},
	StateRestoringAssets: {StateDone, StateFailed},
}

// Result summarises a restore run.
type Result struct {
	State State
	// History lists every state entered, starting with idle.
	History []State
	Kind    archive.Kind
	Tables  []model.TableReport
	// Assets is the number of upload files put in place; AssetsReplaced is
	// false when the source carried no uploads.
	Assets         int
	AssetsReplaced bool
	Duration       time.Duration
}

// Engine restores into one target database and upload directory. An Engine
// runs once; create a new one per restore.
type Engine struct {
	target      snapshot.Source
	registry    *db.Registry
	runner      exttool.Runner
	toolTimeout time.Duration
	uploadsDir  string
	tmpDir      string
	onState     func(State)

	res *Result
}

// Option customises an Engine.
type Option func(*Engine)

// WithRegistry replaces the default table registry.
func WithRegistry(r *db.Registry) Option { return func(e *Engine) { e.registry = r } }

// WithRunner sets the tool runner used to replay SQL dumps.
func WithRunner(r exttool.Runner) Option { return func(e *Engine) { e.runner = r } }

// WithToolTimeout bounds the dump replay.
func WithToolTimeout(d time.Duration) Option { return func(e *Engine) { e.toolTimeout = d } }

// WithUploadsDir sets the live upload directory. Without it uploads in an
// archive are ignored.
func WithUploadsDir(dir string) Option { return func(e *Engine) { e.uploadsDir = dir } }

// WithTempDir sets where archives are extracted.
func WithTempDir(dir string) Option { return func(e *Engine) { e.tmpDir = dir } }

// WithStateHook is called on every state change, for progress output.
func WithStateHook(fn func(State)) Option { return func(e *Engine) { e.onState = fn } }

// NewEngine returns an idle Engine for target.
func NewEngine(target snapshot.Source, opts ...Option) *Engine {
	e := &Engine{
		target:      target,
		registry:    db.DefaultRegistry(),
		runner:      exttool.NewExecRunner(),
		toolTimeout: snapshot.DefaultToolTimeout,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// State returns the current state.
func (e *Engine) State() State {
	if e.res == nil {
		return StateIdle
	}
	return e.res.State
}

func (e *Engine) enter(s State) {
	cur := e.res.State
	allowed := false
	for _, next := range transitions[cur] {
		if next == s {
			allowed = true
			break
		}
	}
	if !allowed {
		panic(fmt.Sprintf("restore: illegal transition %s -> %s", cur, s))
	}
	e.res.State = s
	e.res.History = append(e.res.History, s)
	logging.Debugf("restore: state %s", s)
	if e.onState != nil {
		e.onState(s)
	}
}

func (e *Engine) start() error {
	if e.res != nil {
		return ErrBusy
	}
	e.res = &Result{State: StateIdle, History: []State{StateIdle}}
	return nil
}

// fail moves to the matching failure state and returns err.
func (e *Engine) fail(err error) (*Result, error) {
	if e.res.State == StateExtracting {
		e.enter(StateExtractFailed)
	} else {
		e.enter(StateFailed)
	}
	logging.Errorf("restore: %v", err)
	return e.res, err
}

// RestoreFile restores from path, choosing the route by file name: zip
// archives are extracted, .json/.json.zst files are database-only snapshots
// and .sql files are dumps.
func (e *Engine) RestoreFile(ctx context.Context, path string) (*Result, error) {
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		return e.RestoreArchive(ctx, path)
	}
	if err := e.start(); err != nil {
		return nil, err
	}
	began := time.Now()
	defer func() { e.res.Duration = time.Since(began) }()

	kind := archive.KindOf(filepath.Base(path))
	if kind == archive.KindNone {
		e.enter(StateExtracting)
		return e.fail(fmt.Errorf("%w: unsupported backup file %s", archive.ErrCorrupt, filepath.Base(path)))
	}
	e.res.Kind = kind
	e.enter(StateRestoringTables)
	if err := e.restorePayload(ctx, path, kind); err != nil {
		return e.fail(err)
	}
	e.enter(StateDone)
	return e.res, nil
}

// RestoreArchive extracts the archive at path and restores its payload and
// uploads. The extraction workspace is always removed.
func (e *Engine) RestoreArchive(ctx context.Context, path string) (*Result, error) {
	if err := e.start(); err != nil {
		return nil, err
	}
	began := time.Now()
	defer func() { e.res.Duration = time.Since(began) }()

	e.enter(StateExtracting)
	logging.Infof("restore: extracting %s", path)
	ws, err := archive.Unpack(ctx, path, e.tmpDir)
	if err != nil {
		return e.fail(fmt.Errorf("extract %s: %w", filepath.Base(path), err))
	}
	defer func() { _ = ws.Close() }()

	e.res.Kind = ws.PayloadKind
	if ws.PayloadPath != "" {
		e.enter(StateRestoringTables)
		if err := e.restorePayload(ctx, ws.PayloadPath, ws.PayloadKind); err != nil {
			return e.fail(err)
		}
	} else {
		logging.Infof("restore: archive carries uploads only")
	}
	if ws.HasAssets() {
		e.enter(StateRestoringAssets)
		if err := e.restoreAssets(ctx, ws.AssetDir); err != nil {
			return e.fail(err)
		}
	}
	e.enter(StateDone)
	return e.res, nil
}

// RestoreDataset restores an in-memory snapshot, without touching uploads.
func (e *Engine) RestoreDataset(ctx context.Context, ds *model.DatasetSnapshot) (*Result, error) {
	if err := e.start(); err != nil {
		return nil, err
	}
	began := time.Now()
	defer func() { e.res.Duration = time.Since(began) }()

	e.res.Kind = archive.KindDataset
	e.enter(StateRestoringTables)
	reports, err := RestoreTables(ctx, e.target.BunDB(), e.registry, ds)
	e.res.Tables = reports
	if err != nil {
		return e.fail(err)
	}
	e.enter(StateDone)
	return e.res, nil
}

func (e *Engine) restorePayload(ctx context.Context, path string, kind archive.Kind) error {
	switch kind {
	case archive.KindDataset:
		ds, err := snapshot.ReadDatasetFile(path)
		if err != nil {
			return fmt.Errorf("%w: %v", archive.ErrCorrupt, err)
		}
		logging.Infof("restore: %d records in %d tables", ds.Tables.RecordCount(), len(ds.Tables))
		reports, err := RestoreTables(ctx, e.target.BunDB(), e.registry, ds)
		e.res.Tables = reports
		return err
	case archive.KindDump:
		return e.applyDump(ctx, path)
	default:
		return fmt.Errorf("%w: unknown payload %s", archive.ErrCorrupt, filepath.Base(path))
	}
}

func (e *Engine) restoreAssets(ctx context.Context, from string) error {
	if e.uploadsDir == "" {
		logging.Warnf("restore: no upload directory configured, skipping uploads")
		return nil
	}
	n, err := assets.Replace(ctx, e.uploadsDir, from)
	if err != nil {
		return fmt.Errorf("restore uploads: %w", err)
	}
	e.res.Assets = n
	e.res.AssetsReplaced = true
	return nil
}

// RestoreTables wipes and refills every table present in ds inside a single
// transaction. Tables the snapshot marks as failed are left alone. Any error
// rolls back all tables; the returned reports then describe the attempt up to
// the failing table.
func RestoreTables(ctx context.Context, bdb *bun.DB, reg *db.Registry, ds *model.DatasetSnapshot) ([]model.TableReport, error) {
	for _, name := range ds.Tables.Tables() {
		if _, err := reg.Lookup(name); err != nil {
			return nil, err
		}
	}
	var targets []db.TableDescriptor
	for _, d := range reg.Order() {
		if !ds.HasTable(d.Name) {
			continue
		}
		if ds.Failed(d.Name) {
			logging.Warnf("restore: skipping %s, it failed during export", d.Name)
			continue
		}
		targets = append(targets, d)
	}

	var reports []model.TableReport
	err := db.WithTx(ctx, bdb, func(ctx context.Context, tx bun.Tx) error {
		for i := len(targets) - 1; i >= 0; i-- {
			if err := db.Wipe(ctx, tx, targets[i]); err != nil {
				reports = append(reports, model.TableReport{Table: targets[i].Name, Err: err})
				return err
			}
		}
		for _, d := range targets {
			recs := db.StripAllGenerated(d, ds.Tables[d.Name])
			n, err := db.Decode(ctx, tx, d, recs)
			reports = append(reports, model.TableReport{Table: d.Name, Rows: n, Err: err})
			if err != nil {
				return err
			}
			logging.Infof("restore: %s: %d rows", d.Name, n)
		}
		return nil
	})
	if err != nil {
		return reports, fmt.Errorf("restore tables (rolled back): %w", err)
	}
	return reports, nil
}
