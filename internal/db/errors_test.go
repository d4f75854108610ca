// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"errors"
	"testing"
)

func TestMapDBError_DuplicateStrings(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"mysql duplicate entry", errors.New("Error 1062: Duplicate entry 'x' for key 'PRIMARY'")},
		{"postgres unique violation", errors.New("ERROR: duplicate key value violates unique constraint \"users_pkey\" (SQLSTATE 23505)")},
		{"sqlite unique constraint", errors.New("constraint failed: UNIQUE constraint failed: users.email (2067)")},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			mapped := MapDBError(c.err)
			if !errors.Is(mapped, ErrDuplicate) {
				t.Fatalf("expected ErrDuplicate for case %s, got: %v", c.name, mapped)
			}
		})
	}
}

func TestMapDBError_ForeignKeyStrings(t *testing.T) {
	cases := []error{
		errors.New("constraint failed: FOREIGN KEY constraint failed (787)"),
		errors.New("ERROR: insert or update on table \"cards\" violates foreign key constraint (SQLSTATE 23503)"),
		errors.New("Error 1452 (23000): Cannot add or update a child row"),
	}
	for _, e := range cases {
		if !errors.Is(MapDBError(e), ErrForeignKey) {
			t.Fatalf("expected ErrForeignKey for %q", e)
		}
	}
}

func TestMapDBError_NonDuplicatePassthrough(t *testing.T) {
	e := errors.New("some network error")
	mapped := MapDBError(e)
	if errors.Is(mapped, ErrDuplicate) || errors.Is(mapped, ErrForeignKey) {
		t.Fatalf("did not expect a sentinel for %v", e)
	}
	if mapped.Error() != e.Error() {
		t.Fatalf("expected original error to be returned unchanged, got: %v", mapped)
	}
	if MapDBError(nil) != nil {
		t.Fatalf("expected nil for nil input")
	}
}
