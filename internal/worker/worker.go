// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

// Package worker runs delivery cycles: dump the database, pack the dump with
// the uploads, count rows and hand the archive to every configured sink.
package worker // import "github.com/one2talk/votekeeper/internal/worker"

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/one2talk/votekeeper/internal/archive"
	"github.com/one2talk/votekeeper/internal/db"
	"github.com/one2talk/votekeeper/internal/delivery"
	"github.com/one2talk/votekeeper/internal/logging"
	"github.com/one2talk/votekeeper/internal/model"
	"github.com/one2talk/votekeeper/internal/snapshot"
)

const (
	DefaultInterval    = time.Hour
	DefaultGracePeriod = 30 * time.Second
)

// Cycle stages, in execution order.
const (
	StageExport  = "export"
	StagePack    = "pack"
	StageCount   = "count"
	StageDeliver = "deliver"
)

// Config controls the worker.
type Config struct {
	BackupDir  string
	UploadsDir string
	// Interval is the pause between the end of one cycle and the next.
	Interval time.Duration
	// GracePeriod is waited once before the first cycle.
	GracePeriod time.Duration
}

// Worker owns the delivery loop. Cycles never overlap.
type Worker struct {
	src      snapshot.Source
	exporter *snapshot.Exporter
	registry *db.Registry
	sinks    []delivery.Sink
	cfg      Config

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
	cycle func(ctx context.Context) model.DeliveryCycle
}

// Option customises a Worker.
type Option func(*Worker)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(w *Worker) { w.now = now } }

// WithSleep overrides the wait between cycles.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(w *Worker) { w.sleep = fn }
}

// WithExporter replaces the exporter built from the source.
func WithExporter(e *snapshot.Exporter) Option { return func(w *Worker) { w.exporter = e } }

// WithCycleFunc replaces the cycle body; Run still provides isolation and
// scheduling around it.
func WithCycleFunc(fn func(ctx context.Context) model.DeliveryCycle) Option {
	return func(w *Worker) { w.cycle = fn }
}

// New returns a worker delivering to sinks. At least one sink is required.
func New(src snapshot.Source, cfg Config, sinks []delivery.Sink, opts ...Option) (*Worker, error) {
	if len(sinks) == 0 {
		return nil, fmt.Errorf("%w: no delivery sink configured", delivery.ErrNotConfigured)
	}
	if cfg.BackupDir == "" {
		return nil, errors.New("backup directory is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.GracePeriod < 0 {
		cfg.GracePeriod = 0
	}
	w := &Worker{
		src:      src,
		registry: db.DefaultRegistry(),
		sinks:    sinks,
		cfg:      cfg,
		now:      time.Now,
		sleep:    sleepContext,
	}
	for _, o := range opts {
		o(w)
	}
	if w.exporter == nil {
		w.exporter = snapshot.NewExporter(src, snapshot.WithClock(w.now))
	}
	if w.cycle == nil {
		w.cycle = w.RunCycle
	}
	return w, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RunCycle performs one delivery cycle. Any stage failure ends the cycle; an
// archive that was already written stays on disk.
func (w *Worker) RunCycle(ctx context.Context) model.DeliveryCycle {
	c := model.DeliveryCycle{ID: ulid.Make().String(), StartedAt: w.now()}
	log := logging.L.With("cycle", c.ID)
	log.Info("cycle started")

	fail := func(stage string, err error) model.DeliveryCycle {
		c.Stage = stage
		c.Err = fmt.Errorf("%s: %w", stage, err)
		c.FinishedAt = w.now()
		log.Error("cycle failed", "stage", stage, "err", err, "archive", c.ArchivePath)
		return c
	}

	c.Stage = StageExport
	res, err := w.exporter.Export(ctx, snapshot.NativeDump{})
	if err != nil {
		return fail(StageExport, err)
	}
	dump := res.Dump
	log.Info("dump created", "bytes", len(dump.SQL), "excluded", dump.Excluded)

	c.Stage = StagePack
	dest := filepath.Join(w.cfg.BackupDir, archive.FileName(dump.Database, dump.CreatedAt))
	packed, err := archive.Pack(ctx, dest, archive.PackInput{
		Payload:  archive.Payload{Name: dump.FileName(), Data: dump.SQL},
		AssetDir: w.cfg.UploadsDir,
	})
	if err != nil {
		return fail(StagePack, err)
	}
	c.ArchivePath, c.ArchiveSize, c.AssetCount = packed.Path, packed.Size, packed.AssetCount
	log.Info("archive created", "archive", packed.Path, "size", packed.Size, "uploads", packed.AssetCount)

	c.Stage = StageCount
	c.Counts = w.countTables(ctx)

	c.Stage = StageDeliver
	report := delivery.Report{
		ArchivePath: c.ArchivePath,
		Size:        c.ArchiveSize,
		AssetCount:  c.AssetCount,
		Counts:      c.Counts,
		Tables:      w.statTables(),
		CreatedAt:   dump.CreatedAt,
	}
	var errs []error
	for _, s := range w.sinks {
		if err := s.Deliver(ctx, report); err != nil {
			log.Error("delivery failed", "sink", s.Name(), "err", err)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		c.Delivered = append(c.Delivered, s.Name())
	}
	if err := errors.Join(errs...); err != nil {
		return fail(StageDeliver, err)
	}
	c.FinishedAt = w.now()
	log.Info("cycle finished", "archive", c.ArchivePath, "delivered", c.Delivered, "duration", c.Duration())
	return c
}

// statTables are the tables reported with an archive; credential tables are
// left out as they are never dumped.
func (w *Worker) statTables() []string {
	var out []string
	for _, d := range w.registry.Order() {
		if !d.Credentials {
			out = append(out, d.Name)
		}
	}
	return out
}

func (w *Worker) countTables(ctx context.Context) model.TableCounts {
	counts := model.TableCounts{}
	for _, name := range w.statTables() {
		n, err := db.CountRows(ctx, w.src.BunDB(), name)
		if err != nil {
			logging.Warnf("worker: %v", err)
			n = -1
		}
		counts[name] = n
	}
	return counts
}

// RunOnce runs a single cycle and returns its error.
func (w *Worker) RunOnce(ctx context.Context) (model.DeliveryCycle, error) {
	c := w.safeCycle(ctx)
	return c, c.Err
}

// safeCycle runs one cycle and turns a panic into a failed cycle.
func (w *Worker) safeCycle(ctx context.Context) (c model.DeliveryCycle) {
	defer func() {
		if r := recover(); r != nil {
			c.Err = fmt.Errorf("cycle panicked: %v", r)
			c.FinishedAt = w.now()
			logging.L.Error("cycle panicked", "cycle", c.ID, "stage", c.Stage, "panic", r)
		}
	}()
	return w.cycle(ctx)
}

// Run waits for the grace period and then runs cycles until ctx is done.
// A failed cycle is logged and the next one is scheduled as usual. Run
// returns ctx.Err().
func (w *Worker) Run(ctx context.Context) error {
	logging.L.Info("worker started", "interval", w.cfg.Interval, "grace", w.cfg.GracePeriod, "sinks", len(w.sinks))
	if err := w.sleep(ctx, w.cfg.GracePeriod); err != nil {
		return err
	}
	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		c := w.safeCycle(ctx)
		if c.Err != nil {
			logging.L.Warn("cycle did not complete", "n", n, "cycle", c.ID, "err", c.Err)
		}
		logging.L.Info("sleeping", "for", w.cfg.Interval, "next", w.now().Add(w.cfg.Interval).Format(time.TimeOnly))
		if err := w.sleep(ctx, w.cfg.Interval); err != nil {
			return err
		}
	}
}
