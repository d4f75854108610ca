// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// Maintain runs engine-specific housekeeping after bulk changes such as a
// restore. For SQLite it runs PRAGMA optimize, VACUUM, a WAL checkpoint and an
// integrity check. For Postgres it runs VACUUM ANALYZE. For MySQL it runs
// OPTIMIZE TABLE for every tracked table.
func Maintain(ctx context.Context, s *Store) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	bdb := s.BunDB()
	switch s.Type() {
	case TypeSQLite:
		// PRAGMA optimize may not be supported in some environments; treat
		// optimize errors as non-fatal.
		if _, err := ExecRaw(ctx, bdb, "PRAGMA optimize"); err != nil {
			dbLogf("db: sqlite optimize failed (ignored): %v", err)
		}
		if _, err := ExecRaw(ctx, bdb, "VACUUM"); err != nil {
			return fmt.Errorf("sqlite vacuum failed: %w", err)
		}
		_, _ = ExecRaw(ctx, bdb, "PRAGMA wal_checkpoint(TRUNCATE)")
		var res string
		if err := QueryRawInto(ctx, bdb, &res, "PRAGMA integrity_check"); err != nil {
			return fmt.Errorf("sqlite integrity_check failed: %w", err)
		}
		if res != "ok" {
			return fmt.Errorf("sqlite integrity_check failed: %s", res)
		}
	case TypePostgres:
		if _, err := ExecRaw(ctx, bdb, "VACUUM ANALYZE"); err != nil {
			return fmt.Errorf("postgres vacuum failed: %w", err)
		}
	case TypeMySQL:
		var lastErr error
		for _, d := range DefaultRegistry().Order() {
			if _, err := ExecRaw(ctx, bdb, "OPTIMIZE TABLE ?", bun.Ident(d.Name)); err != nil {
				// Non-fatal per table: remember last error and continue.
				dbLogf("db: mysql optimize table %s failed: %v", d.Name, err)
				lastErr = err
			}
		}
		if lastErr != nil {
			return fmt.Errorf("mysql optimize encountered errors: %w", lastErr)
		}
	default:
		return fmt.Errorf("unsupported db type for maintenance: %s", s.Type())
	}
	return nil
}
