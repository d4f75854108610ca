// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/one2talk/votekeeper/internal/db"
	"github.com/one2talk/votekeeper/internal/logging"
	"github.com/one2talk/votekeeper/internal/restore"
)

// ResolveBackup maps a bare file name to the backup directory when no file of
// that name exists in the working directory.
func (s *Services) ResolveBackup(name string) string {
	if _, err := os.Stat(name); err == nil || filepath.Base(name) != name {
		return name
	}
	candidate := filepath.Join(s.cfg.Paths.BackupDir, name)
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return name
}

// Restore replaces the database, and the uploads when the backup carries
// them, with the content of path. hook, when set, sees every state change.
// A successful restore is followed by database maintenance; a maintenance
// failure is reported but does not fail the restore.
func (s *Services) Restore(ctx context.Context, path string, hook func(restore.State)) (*restore.Result, error) {
	path = s.ResolveBackup(path)
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	eng := restore.NewEngine(s.store,
		restore.WithRunner(s.runner),
		restore.WithToolTimeout(s.cfg.ToolTimeout()),
		restore.WithUploadsDir(s.cfg.Paths.UploadsDir),
		restore.WithStateHook(func(st restore.State) {
			s.rep.Reportf("restore: %s", st)
			if hook != nil {
				hook(st)
			}
		}),
	)
	res, err := eng.RestoreFile(ctx, path)
	if err != nil {
		return res, err
	}
	for _, tr := range res.Tables {
		s.rep.Reportf("  %s: %d records", tr.Table, tr.Rows)
	}
	if res.AssetsReplaced {
		s.rep.Reportf("  uploads: %d files", res.Assets)
	}
	if err := s.Maintain(ctx); err != nil {
		logging.Warnf("restore: maintenance after restore failed: %v", err)
		s.rep.Reportf("Warning: database maintenance failed: %v", err)
	}
	return res, nil
}

// Maintain runs backend housekeeping (VACUUM and friends) on the local database.
func (s *Services) Maintain(ctx context.Context) error {
	if s.store == nil {
		return errors.New("no database open")
	}
	return db.Maintain(ctx, s.store)
}
