// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/one2talk/votekeeper/internal/db"
	"github.com/one2talk/votekeeper/internal/exttool"
	"github.com/one2talk/votekeeper/internal/logging"
	"github.com/one2talk/votekeeper/internal/model"
)

// Dump is a backend-specific SQL dump of the whole database minus the
// excluded tables.
type Dump struct {
	CreatedAt time.Time
	Backend   string
	Database  string
	SQL       []byte
	Excluded  []string
}

// FileName is the name the dump gets inside an archive.
func (d *Dump) FileName() string {
	return fmt.Sprintf("backup_%s_%s.sql", d.Database, d.CreatedAt.Format(model.TimestampLayout))
}

type toolCommand struct {
	name  string
	args  []string
	env   []string
	stdin []byte
}

// dumpCommand builds the dump invocation for the backend.
func dumpCommand(dbType string, p db.ConnParams, include, exclude []string) (toolCommand, error) {
	switch dbType {
	case db.TypePostgres:
		args := pgConnArgs(p)
		args = append(args, "--clean", "--if-exists", "--no-owner", "--no-privileges")
		for _, t := range exclude {
			args = append(args, "--exclude-table="+t)
		}
		return toolCommand{name: "pg_dump", args: args, env: pgEnv(p)}, nil
	case db.TypeMySQL:
		args := mysqlConnArgs(p)
		args = append(args, "--single-transaction", "--skip-lock-tables")
		for _, t := range exclude {
			args = append(args, "--ignore-table="+p.Database+"."+t)
		}
		args = append(args, p.Database)
		return toolCommand{name: "mysqldump", args: args, env: mysqlEnv(p)}, nil
	case db.TypeSQLite:
		return toolCommand{name: "sqlite3", args: []string{p.Path, ".dump " + strings.Join(include, " ")}}, nil
	default:
		return toolCommand{}, fmt.Errorf("native dump not supported for %q", dbType)
	}
}

// loadCommand builds the invocation that replays a dump. replace lists the
// tables the dump recreates, dependents first; sqlite dumps do not drop
// existing tables themselves.
func loadCommand(dbType string, p db.ConnParams, sql []byte, replace []string) (toolCommand, error) {
	switch dbType {
	case db.TypePostgres:
		args := pgConnArgs(p)
		args = append(args, "-q", "-v", "ON_ERROR_STOP=1", "--single-transaction", "-f", "-")
		return toolCommand{name: "psql", args: args, env: pgEnv(p), stdin: sql}, nil
	case db.TypeMySQL:
		args := mysqlConnArgs(p)
		args = append(args, p.Database)
		return toolCommand{name: "mysql", args: args, env: mysqlEnv(p), stdin: sql}, nil
	case db.TypeSQLite:
		var b bytes.Buffer
		b.WriteString("PRAGMA foreign_keys=OFF;\n")
		for _, t := range replace {
			fmt.Fprintf(&b, "DROP TABLE IF EXISTS %q;\n", t)
		}
		b.Write(sql)
		return toolCommand{name: "sqlite3", args: []string{"-bail", p.Path}, stdin: b.Bytes()}, nil
	default:
		return toolCommand{}, fmt.Errorf("native restore not supported for %q", dbType)
	}
}

func pgConnArgs(p db.ConnParams) []string {
	var args []string
	if p.Host != "" {
		args = append(args, "-h", p.Host)
	}
	if p.Port != 0 {
		args = append(args, "-p", strconv.Itoa(p.Port))
	}
	if p.User != "" {
		args = append(args, "-U", p.User)
	}
	return append(args, "-d", p.Database)
}

func pgEnv(p db.ConnParams) []string {
	if p.Password == "" {
		return nil
	}
	return []string{"PGPASSWORD=" + p.Password}
}

func mysqlConnArgs(p db.ConnParams) []string {
	var args []string
	if p.Host != "" {
		args = append(args, "-h", p.Host)
	}
	if p.Port != 0 {
		args = append(args, "-P", strconv.Itoa(p.Port))
	}
	if p.User != "" {
		args = append(args, "-u", p.User)
	}
	return args
}

func mysqlEnv(p db.ConnParams) []string {
	if p.Password == "" {
		return nil
	}
	return []string{"MYSQL_PWD=" + p.Password}
}

func runTool(ctx context.Context, runner exttool.Runner, cmd toolCommand, timeout time.Duration) (exttool.Result, error) {
	if _, err := runner.LookPath(cmd.name); err != nil {
		return exttool.Result{}, fmt.Errorf("%w: %v", ErrToolUnavailable, err)
	}
	opts := exttool.Options{Env: cmd.env, Timeout: timeout}
	if cmd.stdin != nil {
		opts.Stdin = bytes.NewReader(cmd.stdin)
	}
	res, err := runner.Run(ctx, cmd.name, cmd.args, opts)
	if err != nil {
		if errors.Is(err, exttool.ErrNotFound) {
			return res, fmt.Errorf("%w: %v", ErrToolUnavailable, err)
		}
		return res, fmt.Errorf("%w: %v", ErrToolFailed, err)
	}
	return res, nil
}

func runDump(ctx context.Context, runner exttool.Runner, dbType, dsn string, include, exclude []string, timeout time.Duration) (*Dump, error) {
	p, err := db.ParseConnParams(dbType, dsn)
	if err != nil {
		return nil, err
	}
	cmd, err := dumpCommand(dbType, p, include, exclude)
	if err != nil {
		return nil, err
	}
	logging.Infof("export: running %s for %s", cmd.name, p.Database)
	res, err := runTool(ctx, runner, cmd, timeout)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(res.Stdout)) == 0 {
		return nil, fmt.Errorf("%w: %s produced no output", ErrToolFailed, cmd.name)
	}
	if err := verifyExcluded(res.Stdout, exclude); err != nil {
		return nil, err
	}
	name := p.Database
	if dbType == db.TypeSQLite {
		name = strings.TrimSuffix(filepath.Base(p.Path), filepath.Ext(p.Path))
	}
	return &Dump{Backend: dbType, Database: name, SQL: res.Stdout, Excluded: exclude}, nil
}

// ApplyDump replays a dump produced by NativeDump into the database at dsn.
func ApplyDump(ctx context.Context, runner exttool.Runner, dbType, dsn string, sql []byte, timeout time.Duration) error {
	p, err := db.ParseConnParams(dbType, dsn)
	if err != nil {
		return err
	}
	var replace []string
	reg := db.DefaultRegistry()
	for _, d := range reg.Reverse() {
		if !d.Credentials {
			replace = append(replace, d.Name)
		}
	}
	cmd, err := loadCommand(dbType, p, sql, replace)
	if err != nil {
		return err
	}
	logging.Infof("restore: replaying dump with %s", cmd.name)
	if _, err := runTool(ctx, runner, cmd, timeout); err != nil {
		return err
	}
	return nil
}

// verifyExcluded scans a dump for data or definitions of excluded tables.
func verifyExcluded(sql []byte, exclude []string) error {
	for _, t := range exclude {
		re := regexp.MustCompile(`(?im)^\s*(INSERT\s+INTO|COPY|CREATE\s+TABLE(\s+IF\s+NOT\s+EXISTS)?)\s+([\w"` + "`" + `]+\.)?["` + "`" + `]?` + regexp.QuoteMeta(t) + `["` + "`" + `]?[\s(]`)
		if re.Match(sql) {
			return fmt.Errorf("%w: %s", ErrCredentialLeak, t)
		}
	}
	return nil
}
