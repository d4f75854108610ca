// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"os"
	"testing"
)

// Cross-backend integration checks. These tests run only when the corresponding
// DSN environment variable is set. They are skipped by default to keep local
// developer test runs fast.
func TestCrossBackend_Postgres(t *testing.T) {
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN not set; skipping Postgres integration test")
	}
	s, err := NewStoreFromDSN(context.Background(), TypePostgres, dsn)
	if err != nil {
		t.Fatalf("postgres open failed: %v", err)
	}
	defer func() { _ = s.Close() }()
	if _, err := ParseConnParams(TypePostgres, dsn); err != nil {
		t.Fatalf("ParseConnParams: %v", err)
	}
}

func TestCrossBackend_MySQL(t *testing.T) {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		t.Skip("MYSQL_DSN not set; skipping MySQL integration test")
	}
	s, err := NewStoreFromDSN(context.Background(), TypeMySQL, dsn)
	if err != nil {
		t.Fatalf("mysql open failed: %v", err)
	}
	defer func() { _ = s.Close() }()
}
