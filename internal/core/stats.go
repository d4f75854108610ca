// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"context"

	"github.com/one2talk/votekeeper/internal/db"
	"github.com/one2talk/votekeeper/internal/model"
)

// Stats summarises the local database.
type Stats struct {
	// Database is the connection string with the password masked.
	Database string
	Backend  string
	// Tables lists every tracked table in processing order.
	Tables []string
	// Counts holds the row count per table; -1 marks a table that could not
	// be counted.
	Counts model.TableCounts
}

// Stats counts the rows of every tracked table.
func (s *Services) Stats(ctx context.Context) *Stats {
	reg := db.DefaultRegistry()
	return &Stats{
		Database: db.MaskDSN(s.cfg.Database.URL),
		Backend:  s.store.Type(),
		Tables:   reg.Names(),
		Counts:   db.CountAll(ctx, s.store.BunDB(), reg),
	}
}
