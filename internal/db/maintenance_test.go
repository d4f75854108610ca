// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"testing"
)

func TestMaintain_Sqlite(t *testing.T) {
	s := newTestStore(t)
	seedVotingData(t, s)
	if err := Maintain(context.Background(), s); err != nil {
		t.Fatalf("Maintain(sqlite) failed: %v", err)
	}
	// The store stays usable afterwards.
	n, err := CountRows(context.Background(), s.BunDB(), "votes")
	if err != nil || n != 2 {
		t.Fatalf("expected 2 votes after maintenance, got %d (%v)", n, err)
	}
}
