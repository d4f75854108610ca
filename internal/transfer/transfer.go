// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

// Package transfer copies tables directly between the local database and a
// remote Postgres database, without an intermediate archive.
//
// Copies are best effort: a failing table is reported and keeps its earlier
// rows while the others carry on.
package transfer // import "github.com/one2talk/votekeeper/internal/transfer"

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/one2talk/votekeeper/internal/db"
	"github.com/one2talk/votekeeper/internal/logging"
	"github.com/one2talk/votekeeper/internal/model"
	"github.com/one2talk/votekeeper/internal/snapshot"
	"github.com/uptrace/bun"
)

// ErrInvalidURL is returned for remote URLs that do not name a Postgres server.
var ErrInvalidURL = errors.New("remote url must use the postgresql:// scheme")

// Direction selects which side is read and which is overwritten.
type Direction int

const (
	// ExportToRemote overwrites the remote database with local data.
	ExportToRemote Direction = iota
	// ImportFromRemote overwrites the local database with remote data.
	ImportFromRemote
)

func (d Direction) String() string {
	if d == ImportFromRemote {
		return "import"
	}
	return "export"
}

// Session pairs the local store with one remote store for a single copy.
type Session struct {
	local    *db.Store
	remote   *db.Store
	registry *db.Registry
	owned    bool
}

// Option customises a Session.
type Option func(*Session)

// WithRegistry replaces the default table registry.
func WithRegistry(r *db.Registry) Option { return func(s *Session) { s.registry = r } }

// ValidateURL checks that raw names a Postgres server and returns its DSN.
func ValidateURL(raw string) (string, error) {
	scheme, _, ok := strings.Cut(strings.TrimSpace(raw), "://")
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrInvalidURL, db.MaskDSN(raw))
	}
	if i := strings.IndexByte(scheme, '+'); i >= 0 {
		scheme = scheme[:i]
	}
	switch strings.ToLower(scheme) {
	case "postgres", "postgresql":
	default:
		return "", fmt.Errorf("%w: got %q", ErrInvalidURL, scheme)
	}
	_, dsn, err := db.ParseURL(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	return dsn, nil
}

// Open validates remoteURL, connects and makes sure every table exists on the
// remote side. The session owns the remote connection; Close releases it.
func Open(ctx context.Context, local *db.Store, remoteURL string, opts ...Option) (*Session, error) {
	dsn, err := ValidateURL(remoteURL)
	if err != nil {
		return nil, err
	}
	logging.Infof("transfer: connecting to %s", db.MaskDSN(remoteURL))
	remote, err := db.NewStoreFromDSN(ctx, db.TypePostgres, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to remote database: %w", err)
	}
	s, err := New(ctx, local, remote, opts...)
	if err != nil {
		_ = remote.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// New builds a session over two open stores and creates absent tables on both.
// The caller keeps ownership of both stores.
func New(ctx context.Context, local, remote *db.Store, opts ...Option) (*Session, error) {
	s := &Session{local: local, remote: remote, registry: db.DefaultRegistry()}
	for _, o := range opts {
		o(s)
	}
	for _, st := range []*db.Store{local, remote} {
		if err := db.EnsureSchema(ctx, st.BunDB(), s.registry); err != nil {
			return nil, fmt.Errorf("prepare schema: %w", err)
		}
	}
	return s, nil
}

// Close releases the remote connection when the session opened it.
func (s *Session) Close() error {
	if s.owned && s.remote != nil {
		return s.remote.Close()
	}
	return nil
}

// Report lists the outcome per table in processing order.
type Report struct {
	Direction Direction
	Tables    []model.TableReport
}

// Failed returns the names of the tables that could not be copied.
func (r *Report) Failed() []string {
	var out []string
	for _, t := range r.Tables {
		if !t.OK() {
			out = append(out, t.Table)
		}
	}
	return out
}

// Rows is the number of rows written across all tables.
func (r *Report) Rows() int {
	n := 0
	for _, t := range r.Tables {
		n += t.Rows
	}
	return n
}

// Copy reads the given tables (nil means all) from the source side and
// overwrites them on the destination side. Reads happen first. All writes then
// share one destination transaction: tables are wiped dependents first and
// refilled dependencies first, each step in its own savepoint. When a table
// cannot be refilled its savepoint is rolled back and the rows it held before
// the copy are put back, so a failing table keeps its earlier contents while
// the others carry on. The returned error covers only problems that stop the
// copy from starting or committing.
func (s *Session) Copy(ctx context.Context, dir Direction, tables []string) (*Report, error) {
	src, dst := s.local, s.remote
	if dir == ImportFromRemote {
		src, dst = s.remote, s.local
	}
	descs := s.registry.Order()
	if tables != nil {
		var err error
		if descs, err = s.registry.Subset(tables); err != nil {
			return nil, err
		}
	}
	names := make([]string, 0, len(descs))
	for _, d := range descs {
		names = append(names, d.Name)
	}

	logging.Infof("transfer: %s of %d tables started", dir, len(descs))
	exp, err := snapshot.NewExporter(src, snapshot.WithRegistry(s.registry)).
		Export(ctx, snapshot.Structured{Tables: names})
	if err != nil {
		return nil, err
	}
	ds := exp.Dataset

	failed := map[string]error{}
	for _, r := range exp.Reports {
		if !r.OK() {
			failed[r.Table] = fmt.Errorf("read: %w", r.Err)
		}
	}

	var report *Report
	err = db.WithTx(ctx, dst.BunDB(), func(ctx context.Context, tx bun.Tx) error {
		report = &Report{Direction: dir}
		previous := make(map[string][]model.Record, len(descs))
		for i := len(descs) - 1; i >= 0; i-- {
			d := descs[i]
			if failed[d.Name] != nil {
				continue
			}
			err := db.Savepoint(ctx, tx, "wipe_"+d.Name, func(ctx context.Context) error {
				rows, err := db.Encode(ctx, tx, d)
				if err != nil {
					return err
				}
				if err := db.Wipe(ctx, tx, d); err != nil {
					return err
				}
				previous[d.Name] = rows
				return nil
			})
			if err != nil {
				failed[d.Name] = err
			}
		}

		for _, d := range descs {
			if err := failed[d.Name]; err != nil {
				logging.Errorf("transfer: %s failed, table left untouched: %v", d.Name, err)
				report.Tables = append(report.Tables, model.TableReport{Table: d.Name, Err: err})
				continue
			}
			var n int
			err := db.Savepoint(ctx, tx, "fill_"+d.Name, func(ctx context.Context) error {
				var err error
				n, err = db.Decode(ctx, tx, d, db.StripAllGenerated(d, ds.Tables[d.Name]))
				return err
			})
			if err != nil {
				report.Tables = append(report.Tables, model.TableReport{Table: d.Name, Err: err})
				s.putBack(ctx, tx, d, previous[d.Name], err)
				continue
			}
			logging.Infof("transfer: %s: %d rows", d.Name, n)
			report.Tables = append(report.Tables, model.TableReport{Table: d.Name, Rows: n})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("transfer %s: %w", dir, err)
	}

	if f := report.Failed(); len(f) > 0 {
		logging.Warnf("transfer: %s finished with %d failed tables: %s", dir, len(f), strings.Join(f, ", "))
	} else {
		logging.Infof("transfer: %s finished, %d rows", dir, report.Rows())
	}
	return report, nil
}

// putBack reinserts the rows a table held before it was wiped.
func (s *Session) putBack(ctx context.Context, tx bun.Tx, d db.TableDescriptor, rows []model.Record, cause error) {
	err := db.Savepoint(ctx, tx, "restore_"+d.Name, func(ctx context.Context) error {
		_, err := db.Decode(ctx, tx, d, rows)
		return err
	})
	if err != nil {
		logging.Errorf("transfer: %s failed and its previous %d rows could not be put back: %v (%v)", d.Name, len(rows), cause, err)
		return
	}
	logging.Errorf("transfer: %s failed, previous %d rows kept: %v", d.Name, len(rows), cause)
}
