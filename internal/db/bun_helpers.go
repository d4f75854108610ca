// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// execRawProvider is a small interface used to accept either *bun.DB or *bun.Tx
// since both expose NewRaw(...).* methods returning *bun.RawQuery.
type execRawProvider interface {
	NewRaw(query string, args ...interface{}) *bun.RawQuery
}

// ExecRaw executes a raw SQL statement using the provided Bun DB or transaction.
func ExecRaw(ctx context.Context, exec execRawProvider, query string, args ...interface{}) (sql.Result, error) {
	return exec.NewRaw(query, args...).Exec(ctx)
}

// QueryRawInto runs a raw query and scans the result into dest using Bun's RawQuery.Scan.
func QueryRawInto(ctx context.Context, exec execRawProvider, dest interface{}, query string, args ...interface{}) error {
	return exec.NewRaw(query, args...).Scan(ctx, dest)
}

// BeginTx starts a transaction on bdb.
func BeginTx(ctx context.Context, bdb *bun.DB, opts *sql.TxOptions) (bun.Tx, error) {
	return bdb.BeginTx(ctx, opts)
}

// WithTx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back otherwise, including on panic.
func WithTx(ctx context.Context, bdb *bun.DB, fn func(ctx context.Context, tx bun.Tx) error) error {
	return bdb.RunInTx(ctx, nil, fn)
}

// WithReadTx runs fn inside a transaction used only for reading. On Postgres
// it runs at repeatable read so every query sees the same snapshot.
func WithReadTx(ctx context.Context, bdb *bun.DB, fn func(ctx context.Context, tx bun.Tx) error) error {
	return bdb.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if bdb.Dialect().Name() == dialect.PG {
			if _, err := ExecRaw(ctx, tx, "SET TRANSACTION ISOLATION LEVEL REPEATABLE READ READ ONLY"); err != nil {
				return fmt.Errorf("start read transaction: %w", err)
			}
		}
		return fn(ctx, tx)
	})
}

// Savepoint runs fn inside the named savepoint of tx. When fn fails only its
// work is rolled back and tx stays usable; the error from fn is returned.
func Savepoint(ctx context.Context, tx bun.Tx, name string, fn func(ctx context.Context) error) error {
	if _, err := ExecRaw(ctx, tx, "SAVEPOINT ?", bun.Ident(name)); err != nil {
		return fmt.Errorf("savepoint %s: %w", name, err)
	}
	if err := fn(ctx); err != nil {
		if _, rbErr := ExecRaw(ctx, tx, "ROLLBACK TO SAVEPOINT ?", bun.Ident(name)); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback to savepoint %s: %w", name, rbErr))
		}
		return err
	}
	if _, err := ExecRaw(ctx, tx, "RELEASE SAVEPOINT ?", bun.Ident(name)); err != nil {
		return fmt.Errorf("release savepoint %s: %w", name, err)
	}
	return nil
}
