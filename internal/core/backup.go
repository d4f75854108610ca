// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/one2talk/votekeeper/internal/archive"
	"github.com/one2talk/votekeeper/internal/model"
	"github.com/one2talk/votekeeper/internal/snapshot"
)

// BackupResult describes a backup written to the backup directory.
type BackupResult struct {
	Path       string
	Size       int64
	Records    int
	AssetCount int
	Reports    []model.TableReport
	CreatedAt  time.Time
}

// Failed returns the tables whose export failed. Their data is missing from
// the backup; the remaining tables are complete.
func (r *BackupResult) Failed() []string {
	var out []string
	for _, tr := range r.Reports {
		if !tr.OK() {
			out = append(out, tr.Table)
		}
	}
	return out
}

func (s *Services) exportAll(ctx context.Context, ts time.Time) (*snapshot.Result, error) {
	exp := snapshot.NewExporter(s.store,
		snapshot.WithRunner(s.runner),
		snapshot.WithToolTimeout(s.cfg.ToolTimeout()),
		snapshot.WithClock(func() time.Time { return ts }),
	)
	res, err := exp.Export(ctx, snapshot.Structured{})
	if err != nil {
		return nil, err
	}
	for _, tr := range res.Reports {
		if tr.OK() {
			s.rep.Reportf("  %s: %d records", tr.Table, tr.Rows)
		} else {
			s.rep.Reportf("  %s: export failed: %v", tr.Table, tr.Err)
		}
	}
	return res, nil
}

// FullBackup exports every table, credentials included, together with the
// uploads directory into backup_<timestamp>.zip.
func (s *Services) FullBackup(ctx context.Context) (*BackupResult, error) {
	ts := s.now()
	s.rep.Reportf("Exporting database...")
	res, err := s.exportAll(ctx, ts)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := snapshot.WriteDataset(&buf, res.Dataset, false); err != nil {
		return nil, err
	}

	s.rep.Reportf("Packing archive...")
	dest := filepath.Join(s.cfg.Paths.BackupDir, archive.FileName("", ts))
	pr, err := archive.Pack(ctx, dest, archive.PackInput{
		Payload:  archive.Payload{Name: snapshot.DatasetFileName, Data: buf.Bytes()},
		AssetDir: s.cfg.Paths.UploadsDir,
	})
	if err != nil {
		return nil, fmt.Errorf("full backup: %w", err)
	}
	out := &BackupResult{
		Path:       pr.Path,
		Size:       pr.Size,
		Records:    res.Dataset.Tables.RecordCount(),
		AssetCount: pr.AssetCount,
		Reports:    res.Reports,
		CreatedAt:  ts,
	}
	s.rep.Reportf("Backup written to %s (%d records, %d uploads)", out.Path, out.Records, out.AssetCount)
	return out, nil
}

// DatabaseOnlyBackup writes database_<timestamp>.json, or .json.zst when
// compress is set, without uploads.
func (s *Services) DatabaseOnlyBackup(ctx context.Context, compress bool) (*BackupResult, error) {
	ts := s.now()
	s.rep.Reportf("Exporting database...")
	res, err := s.exportAll(ctx, ts)
	if err != nil {
		return nil, err
	}
	dest := filepath.Join(s.cfg.Paths.BackupDir, snapshot.DatasetOnlyFileName(res.Dataset, compress))
	if err := snapshot.WriteDatasetFile(dest, res.Dataset); err != nil {
		return nil, fmt.Errorf("database backup: %w", err)
	}
	fi, err := os.Stat(dest)
	if err != nil {
		return nil, err
	}
	out := &BackupResult{
		Path:      dest,
		Size:      fi.Size(),
		Records:   res.Dataset.Tables.RecordCount(),
		Reports:   res.Reports,
		CreatedAt: ts,
	}
	s.rep.Reportf("Backup written to %s (%d records)", out.Path, out.Records)
	return out, nil
}

// Listing is the content of the backup directory, newest first.
type Listing struct {
	Dir       string
	Backups   []archive.Info
	TotalSize int64
}

// Latest returns the newest backup, if any.
func (l *Listing) Latest() (archive.Info, bool) {
	if len(l.Backups) == 0 {
		return archive.Info{}, false
	}
	return l.Backups[0], true
}

// ListBackups lists archives and database-only snapshots in the backup directory.
func (s *Services) ListBackups() (*Listing, error) {
	infos, err := archive.List(s.cfg.Paths.BackupDir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", s.cfg.Paths.BackupDir, err)
	}
	l := &Listing{Dir: s.cfg.Paths.BackupDir, Backups: infos}
	for _, in := range infos {
		l.TotalSize += in.Size
	}
	return l, nil
}
