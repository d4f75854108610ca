// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

package restore

import (
	"context"
	"fmt"
	"os"

	"github.com/one2talk/votekeeper/internal/logging"
	"github.com/one2talk/votekeeper/internal/snapshot"
)

// applyDump replays a SQL dump with the backend's load tool. The dump never
// contains credential tables, so those keep their current rows.
func (e *Engine) applyDump(ctx context.Context, path string) error {
	sql, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read dump: %w", err)
	}
	logging.Infof("restore: replaying %d byte dump into %s database", len(sql), e.target.Type())
	if err := snapshot.ApplyDump(ctx, e.runner, e.target.Type(), e.target.DSN(), sql, e.toolTimeout); err != nil {
		return fmt.Errorf("replay dump: %w", err)
	}
	return nil
}
