// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

// Package db is the data access layer for votekeeper.
//
// It opens bun-backed stores for SQLite, PostgreSQL and MySQL, knows the six
// tables of the voting application and their dependency order (Registry), and
// converts rows to and from portable records (Encode/Decode).
//
// Processing order
//   - Registry.Order lists every table after the tables it depends on. Inserts
//     follow it; wipes follow Registry.Reverse.
//   - EnsureSchema creates absent tables in the same order so foreign keys can
//     be declared.
//
// Testing notes
//   - Tests open an in-memory sqlite store with a DSN derived from t.Name().
//   - Cross-backend tests run only when POSTGRES_DSN or MYSQL_DSN is set.
package db
