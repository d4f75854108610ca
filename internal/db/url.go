// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
)

// ErrUnsupportedURL is returned for database URLs with an unknown scheme.
var ErrUnsupportedURL = errors.New("unsupported database url")

// ParseURL maps a database URL to a (type, driver DSN) pair. It accepts the
// SQLAlchemy style URLs the web application is configured with
// (sqlite:///./votes.db, postgresql://, postgresql+psycopg2://, mysql+pymysql://).
func ParseURL(raw string) (dbType, dsn string, err error) {
	raw = strings.TrimSpace(raw)
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		if strings.HasPrefix(raw, "file:") {
			return TypeSQLite, raw, nil
		}
		return "", "", fmt.Errorf("%w: %q", ErrUnsupportedURL, raw)
	}
	// Drop SQLAlchemy driver suffixes such as "+psycopg2".
	if i := strings.IndexByte(scheme, '+'); i >= 0 {
		scheme = scheme[:i]
	}
	switch strings.ToLower(scheme) {
	case "sqlite", "sqlite3":
		// sqlite:///relative and sqlite:////absolute
		path := strings.TrimPrefix(rest, "/")
		if path == "" {
			path = ":memory:"
		}
		return TypeSQLite, path, nil
	case "postgres", "postgresql":
		return TypePostgres, "postgres://" + rest, nil
	case "mysql", "mariadb":
		dsn, err := mysqlDSNFromURL("mysql://" + rest)
		if err != nil {
			return "", "", err
		}
		return TypeMySQL, dsn, nil
	default:
		return "", "", fmt.Errorf("%w: scheme %q", ErrUnsupportedURL, scheme)
	}
}

func mysqlDSNFromURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedURL, err)
	}
	cfg := mysql.NewConfig()
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	if u.Port() == "" {
		cfg.Addr = net.JoinHostPort(u.Hostname(), "3306")
	}
	if u.User != nil {
		cfg.User = u.User.Username()
		cfg.Passwd, _ = u.User.Password()
	}
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

// ConnParams are the connection settings the native dump tools need.
type ConnParams struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	// Path is the database file for sqlite.
	Path string
}

// ParseConnParams extracts tool-level connection settings from a driver DSN.
func ParseConnParams(dbType, dsn string) (ConnParams, error) {
	switch dbType {
	case TypePostgres:
		cfg, err := pgx.ParseConfig(dsn)
		if err != nil {
			return ConnParams{}, fmt.Errorf("parse postgres dsn: %w", err)
		}
		return ConnParams{
			Host:     cfg.Host,
			Port:     int(cfg.Port),
			User:     cfg.User,
			Password: cfg.Password,
			Database: cfg.Database,
		}, nil
	case TypeMySQL:
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return ConnParams{}, fmt.Errorf("parse mysql dsn: %w", err)
		}
		p := ConnParams{User: cfg.User, Password: cfg.Passwd, Database: cfg.DBName, Host: cfg.Addr}
		if host, port, err := net.SplitHostPort(cfg.Addr); err == nil {
			p.Host = host
			p.Port, _ = strconv.Atoi(port)
		}
		return p, nil
	case TypeSQLite:
		path := strings.TrimPrefix(dsn, "file:")
		if i := strings.IndexByte(path, '?'); i >= 0 {
			path = path[:i]
		}
		return ConnParams{Path: path, Database: path}, nil
	default:
		return ConnParams{}, fmt.Errorf("unsupported database type: '%s'", dbType)
	}
}

var kvPassword = regexp.MustCompile(`(?i)(password\s*=\s*)(\S+)`)

// MaskDSN hides the password of a URL, key=value or MySQL style connection
// string so it can be displayed or logged.
func MaskDSN(dsn string) string {
	if strings.Contains(dsn, "://") {
		if u, err := url.Parse(dsn); err == nil {
			return u.Redacted()
		}
	}
	if kvPassword.MatchString(dsn) {
		return kvPassword.ReplaceAllString(dsn, "${1}xxxxx")
	}
	if strings.Contains(dsn, "@") {
		if cfg, err := mysql.ParseDSN(dsn); err == nil && cfg.Passwd != "" {
			cfg.Passwd = "xxxxx"
			return cfg.FormatDSN()
		}
	}
	return dsn
}
