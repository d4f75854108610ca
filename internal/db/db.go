// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

package db // import "github.com/one2talk/votekeeper/internal/db"

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite"

	// SQL drivers for the server backends.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Supported database types.
const (
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
	TypeMySQL    = "mysql"
)

// sqlOpenFunc allows tests to override database opening behavior.
var sqlOpenFunc = sql.Open

// Store is one open connection pool to a tracked database. It is safe to share
// between sequential operations but each restore/transfer assumes exclusive
// access to the tables while it runs.
type Store struct {
	bun    *bun.DB
	dbType string
	dsn    string
}

// BunDB exposes the underlying bun handle.
func (s *Store) BunDB() *bun.DB { return s.bun }

// Type returns the backend type (sqlite, postgres or mysql).
func (s *Store) Type() string { return s.dbType }

// DSN returns the connection string the store was opened with. Callers must
// mask it before display.
func (s *Store) DSN() string { return s.dsn }

// Close releases the pool.
func (s *Store) Close() error {
	if s == nil || s.bun == nil {
		return nil
	}
	return s.bun.Close()
}

// Open parses a database URL (sqlite:///path, postgres://, postgresql://,
// mysql://) and opens a Store for it.
func Open(ctx context.Context, url string) (*Store, error) {
	dbType, dsn, err := ParseURL(url)
	if err != nil {
		return nil, err
	}
	return NewStoreFromDSN(ctx, dbType, dsn)
}

// NewStoreFromDSN opens a sql.DB for the given DSN, checks connectivity, makes
// sure every tracked table exists and returns a Store backed by a long-lived
// *bun.DB.
func NewStoreFromDSN(ctx context.Context, dbType, dsn string) (*Store, error) {
	var driverName string
	switch dbType {
	case TypeSQLite:
		driverName = "sqlite"
		dsn = sqliteDSN(dsn)
	case TypePostgres:
		// The pgx stdlib registers driver name "pgx"; map "postgres" to that driver.
		driverName = "pgx"
	case TypeMySQL:
		driverName = "mysql"
	default:
		return nil, fmt.Errorf("unsupported database type: '%s'", dbType)
	}

	start := time.Now()
	sqlDB, err := sqlOpenFunc(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	configurePool(sqlDB, dbType)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	dbLogf("db: opened %s driver in %s", driverName, time.Since(start))

	s := &Store{bun: createBunDB(sqlDB, dbType), dbType: dbType, dsn: dsn}
	schemaStart := time.Now()
	if err := EnsureSchema(ctx, s.bun, DefaultRegistry()); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}
	dbLogf("db: schema for %s ensured in %s", dbType, time.Since(schemaStart))
	return s, nil
}

// configurePool applies pool limits. Values can be overridden through
// VOTEKEEPER_DB_* environment variables.
func configurePool(sqlDB *sql.DB, dbType string) {
	const (
		defaultMaxOpenConns    = 10
		defaultMaxIdleConns    = 10
		defaultConnMaxLifetime = 5 * time.Minute
		defaultConnMaxIdle     = 60 * time.Second
	)

	maxOpen := envInt("VOTEKEEPER_DB_MAX_OPEN_CONNS", defaultMaxOpenConns)
	maxIdle := envInt("VOTEKEEPER_DB_MAX_IDLE_CONNS", defaultMaxIdleConns)
	connMax := time.Duration(envInt("VOTEKEEPER_DB_CONN_MAX_LIFETIME_SECONDS", int(defaultConnMaxLifetime/time.Second))) * time.Second
	connIdle := time.Duration(envInt("VOTEKEEPER_DB_CONN_MAX_IDLE_SECONDS", int(defaultConnMaxIdle/time.Second))) * time.Second

	// SQLite allows a single writer; in-memory databases are also private to
	// their connection unless shared cache is used. One connection avoids both
	// problems.
	if dbType == TypeSQLite {
		maxOpen = 1
		maxIdle = 1
		connMax = 0
		connIdle = 0
	}

	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(connMax)
	sqlDB.SetConnMaxIdleTime(connIdle)
}

func envInt(name string, def int) int {
	if v := os.Getenv(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

// sqliteDSN turns on foreign key enforcement, which SQLite leaves off by default.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "foreign_keys") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)"
}

// createBunDB constructs a *bun.DB for the provided *sql.DB and dbType.
func createBunDB(sqlDB *sql.DB, dbType string) *bun.DB {
	switch dbType {
	case TypePostgres:
		return bun.NewDB(sqlDB, pgdialect.New())
	case TypeMySQL:
		return bun.NewDB(sqlDB, mysqldialect.New())
	default:
		return bun.NewDB(sqlDB, sqlitedialect.New())
	}
}
