// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

// Package testutil holds fixtures shared by package tests: in-memory stores,
// a seeded voting dataset and upload directories.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/one2talk/votekeeper/internal/db"
)

// MemoryDSN returns a private in-memory sqlite DSN for the running test.
// Suffix distinguishes several databases inside one test.
func MemoryDSN(t *testing.T, suffix string) string {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()) + suffix
	return "file:" + name + "?mode=memory&cache=shared"
}

// NewStore opens an in-memory sqlite store with every table created.
func NewStore(t *testing.T, suffix string) *db.Store {
	t.Helper()
	s, err := db.NewStoreFromDSN(context.Background(), db.TypeSQLite, MemoryDSN(t, suffix))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// NewFileStore opens a file-backed sqlite store inside t.TempDir. It returns
// the store and the database path, which external tools can use.
func NewFileStore(t *testing.T) (*db.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "votes.db")
	s, err := db.NewStoreFromDSN(context.Background(), db.TypeSQLite, path)
	if err != nil {
		t.Fatalf("open file store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

// Seed statements for a small consistent dataset: one setting, one admin, two
// users, two categories, three cards and two votes.
var seed = []string{
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

// SeedCounts is the row count per table after Seed.
var SeedCounts = map[string]int{
	"settings": 1, "admins": 1, "users": 2, "categories": 2, "cards": 3, "votes": 2,
}

// Seed inserts the fixture dataset into s.
func Seed(t *testing.T, s *db.Store) {
	t.Helper()
	for _, q := range seed {
		if _, err := db.ExecRaw(context.Background(), s.BunDB(), q); err != nil {
			t.Fatalf("seed %q: %v", q, err)
		}
	}
}

// WriteFiles creates files under dir; keys are slash-separated relative paths.
func WriteFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
}

// ReadFiles returns every regular file under dir keyed by slash-separated
// relative path. A missing dir yields an empty map.
func ReadFiles(t *testing.T, dir string) map[string]string {
	t.Helper()
	out := map[string]string{}
	err := filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		b, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(dir, p)
		out[filepath.ToSlash(rel)] = string(b)
		return nil
	})
	if err != nil {
		t.Fatalf("walk %s: %v", dir, err)
	}
	return out
}
