// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"context"
	"fmt"

	"github.com/one2talk/votekeeper/internal/remotecopy"
	"github.com/one2talk/votekeeper/internal/transfer"
)

// ExportToRemote overwrites tables of the database at url with the local
// rows. An empty tables list copies every table.
func (s *Services) ExportToRemote(ctx context.Context, url string, tables []string) (*transfer.Report, error) {
	return s.transfer(ctx, url, transfer.ExportToRemote, tables)
}

// ImportFromRemote overwrites local tables with the rows of the database at url.
func (s *Services) ImportFromRemote(ctx context.Context, url string, tables []string) (*transfer.Report, error) {
	return s.transfer(ctx, url, transfer.ImportFromRemote, tables)
}

func (s *Services) transfer(ctx context.Context, url string, dir transfer.Direction, tables []string) (*transfer.Report, error) {
	sess, err := transfer.Open(ctx, s.store, url)
	if err != nil {
		return nil, err
	}
	defer func() { _ = sess.Close() }()

	s.rep.Reportf("Starting %s...", dir)
	if len(tables) == 0 {
		tables = nil
	}
	rep, err := sess.Copy(ctx, dir, tables)
	if err != nil {
		return nil, err
	}
	for _, tr := range rep.Tables {
		if tr.OK() {
			s.rep.Reportf("  %s: %d records", tr.Table, tr.Rows)
		} else {
			s.rep.Reportf("  %s: failed: %v", tr.Table, tr.Err)
		}
	}
	return rep, nil
}

// RemoteTarget returns the configured copy destination with the given
// overrides applied; empty overrides keep the configured value.
func (s *Services) RemoteTarget(host, user, path string) remotecopy.Target {
	t := remotecopy.Target{Host: s.cfg.Remote.Host, User: s.cfg.Remote.User, Path: s.cfg.Remote.Path}
	if host != "" {
		t.Host = host
	}
	if user != "" {
		t.User = user
	}
	if path != "" {
		t.Path = path
	}
	return t
}

// CopyToRemote ships a backup file to t. A nil copier uses the scp binary.
func (s *Services) CopyToRemote(ctx context.Context, file string, t remotecopy.Target, c remotecopy.Copier) error {
	file = s.ResolveBackup(file)
	if c == nil {
		c = remotecopy.NewSCP(s.runner, s.cfg.ToolTimeout())
	}
	s.rep.Reportf("Copying %s to %s...", file, t)
	if err := c.Copy(ctx, file, t); err != nil {
		return fmt.Errorf("copy to %s: %w", t.Host, err)
	}
	s.rep.Reportf("Copy complete")
	return nil
}
