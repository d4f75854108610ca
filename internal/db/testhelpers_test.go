// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"strings"
	"testing"
)

// newTestStore opens a private in-memory sqlite store for the test and closes
// it when the test ends.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := "file:" + name + "?mode=memory&cache=shared"
	s, err := NewStoreFromDSN(context.Background(), TypeSQLite, dsn)
	if err != nil {
		t.Fatalf("NewStoreFromDSN failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// seedVotingData inserts a small consistent dataset: one setting, one admin,
// two users, two categories, three cards and two votes.
func seedVotingData(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	stmts := []string{
		"INSERT INTO settings (id, key, value) VALUES (1, 'voting_open', 'true')",
		"INSERT INTO admins (id, username, password_hash, role) VALUES (1, 'root', '$2b$12$hash', 'admin')",
		"INSERT INTO users (id, name, email, phone) VALUES (1, 'Ann', 'ann@example.com', '0100')",
		"INSERT INTO users (id, name, email, phone) VALUES (2, 'Ben', 'ben@example.com', '0200')",
		`INSERT INTO categories (id, name, "order") VALUES (1, 'Best Song', 0)`,
		`INSERT INTO categories (id, name, "order") VALUES (2, 'Best Film', 1)`,
		`INSERT INTO cards (id, category_id, title, subtitle, image_url, "order") VALUES (1, 1, 'Song A', NULL, '/uploads/a.jpg', 0)`,
		`INSERT INTO cards (id, category_id, title, subtitle, image_url, "order") VALUES (2, 1, 'Song B', 'live', '/uploads/b.png', 1)`,
		`INSERT INTO cards (id, category_id, title, subtitle, image_url, "order") VALUES (3, 2, 'Film A', NULL, '/uploads/c.jpg', 0)`,
		"INSERT INTO votes (id, user_id, category_id, card_id) VALUES (1, 1, 1, 2)",
		"INSERT INTO votes (id, user_id, category_id, card_id) VALUES (2, 2, 2, 3)",
	}
	for _, q := range stmts {
		if _, err := ExecRaw(ctx, s.BunDB(), q); err != nil {
			t.Fatalf("seed %q: %v", q, err)
		}
	}
}
