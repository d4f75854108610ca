// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/one2talk/votekeeper/internal/db"
	"github.com/one2talk/votekeeper/internal/i18n"
	"github.com/one2talk/votekeeper/internal/remotecopy"
	"github.com/one2talk/votekeeper/internal/transfer"
)

// operation returns the command that performs act in the background. The
// lines reported by the service while it runs precede the summary.
func operation(ctx context.Context, svc Service, progress *lineCollector, act action, file, value string) tea.Cmd {
	return func() tea.Msg {
		summary, err := perform(ctx, svc, act, file, value)
		lines := append(progress.take(), summary...)
		return doneMsg{lines: lines, err: err}
	}
}

func perform(ctx context.Context, svc Service, act action, file, value string) ([]string, error) {
	switch act {
	case actFullBackup:
		res, err := svc.FullBackup(ctx)
		if err != nil {
			return nil, err
		}
		return []string{i18n.T("backup.full_done", res.Path, humanize.Bytes(uint64(res.Size)), res.Records, res.AssetCount)}, nil

	case actDBBackup:
		res, err := svc.DatabaseOnlyBackup(ctx, false)
		if err != nil {
			return nil, err
		}
		return []string{i18n.T("backup.db_done", res.Path, humanize.Bytes(uint64(res.Size)), res.Records)}, nil

	case actRestore:
		res, err := svc.Restore(ctx, file, nil)
		if err != nil {
			state := "-"
			if res != nil {
				state = string(res.State)
			}
			return nil, errors.New(i18n.T("restore.failed", state, err))
		}
		records := 0
		for _, t := range res.Tables {
			records += t.Rows
		}
		return []string{i18n.T("restore.done", res.Duration.Round(time.Millisecond), records, res.Assets)}, nil

	case actList:
		l, err := svc.ListBackups()
		if err != nil {
			return nil, err
		}
		if len(l.Backups) == 0 {
			return []string{i18n.T("list.empty", l.Dir)}, nil
		}
		lines := make([]string, 0, len(l.Backups)+1)
		for i, b := range l.Backups {
			lines = append(lines, fmt.Sprintf("%2d. %-40s %10s  %s", i+1, b.Name, humanize.Bytes(uint64(b.Size)), b.ModTime.Format("2006-01-02 15:04:05")))
		}
		return append(lines, i18n.T("list.total", len(l.Backups), humanize.Bytes(uint64(l.TotalSize)))), nil

	case actExport, actImport:
		var (
			rep *transfer.Report
			err error
		)
		if act == actExport {
			rep, err = svc.ExportToRemote(ctx, value, nil)
		} else {
			rep, err = svc.ImportFromRemote(ctx, value, nil)
		}
		if err != nil {
			return nil, err
		}
		lines := []string{i18n.T("transfer.done", rep.Direction, rep.Rows(), len(rep.Failed()))}
		if failed := rep.Failed(); len(failed) > 0 {
			return lines, errors.New(i18n.T("transfer.failed_tables", strings.Join(failed, ", ")))
		}
		return lines, nil

	case actCopy:
		t, err := parseTarget(value)
		if err != nil {
			return nil, err
		}
		if err := svc.CopyToRemote(ctx, file, t, nil); err != nil {
			return nil, err
		}
		return []string{i18n.T("copy.done", file, t)}, nil

	case actStats:
		st := svc.Stats(ctx)
		lines := []string{i18n.T("stats.database", st.Database, st.Backend), ""}
		for _, name := range st.Tables {
			n := st.Counts[name]
			cell := fmt.Sprint(n)
			if n < 0 {
				cell = i18n.T("stats.error")
			}
			lines = append(lines, fmt.Sprintf("  %-24s %8s", name, cell))
		}
		return append(lines, fmt.Sprintf("  %-24s %8d", i18n.T("stats.total"), st.Counts.Total())), nil
	}
	return nil, fmt.Errorf("unknown action %d", act)
}

// parseTarget reads "user@host[:path]".
func parseTarget(s string) (remotecopy.Target, error) {
	user, rest, ok := strings.Cut(strings.TrimSpace(s), "@")
	if !ok {
		return remotecopy.Target{}, fmt.Errorf("%w: expected user@host[:path]", remotecopy.ErrInvalidTarget)
	}
	host, path, _ := strings.Cut(rest, ":")
	t := remotecopy.Target{Host: host, User: user, Path: path}
	if err := t.Validate(); err != nil {
		return remotecopy.Target{}, err
	}
	return t, nil
}

func maskURL(raw string) string {
	return db.MaskDSN(raw)
}
