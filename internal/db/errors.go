// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDuplicate is returned when attempting to insert a record that already exists.
	ErrDuplicate = errors.New("duplicate record")
	// ErrForeignKey is returned when a row references a missing parent row.
	ErrForeignKey = errors.New("foreign key violation")
	// ErrUnknownField is returned when a record carries a column the table
	// does not declare.
	ErrUnknownField = errors.New("unknown field")
)

// MapDBError inspects low-level driver errors and maps common constraint
// violations to package-level sentinel errors. The driver message is kept in
// the wrapped error. This is a string-based mapping so all three drivers are
// handled the same way.
func MapDBError(err error) error {
	if err == nil {
		return nil
	}
	le := strings.ToLower(err.Error())
	switch {
	// Postgres 23503, MySQL 1451/1452, SQLite "FOREIGN KEY constraint failed".
	case strings.Contains(le, "foreign key") || strings.Contains(le, "23503") || strings.Contains(le, "1452") || strings.Contains(le, "1451"):
		return fmt.Errorf("%w: %v", ErrForeignKey, err)
	// MySQL duplicate entry, Postgres unique violation (23505), SQLite unique constraint
	case strings.Contains(le, "duplicate") || strings.Contains(le, "unique") || strings.Contains(le, "23505") || strings.Contains(le, "1062"):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}
