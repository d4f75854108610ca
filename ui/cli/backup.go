// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/one2talk/votekeeper/internal/i18n"
	"github.com/one2talk/votekeeper/internal/model"
	"github.com/spf13/cobra"
)

// copyToClipboard is replaced in tests; headless machines have no clipboard.
var copyToClipboard = clipboard.WriteAll

func newBackupCmd() *cobra.Command {
	var dbOnly, compress bool
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create a full backup (database and uploads) or a database-only snapshot",
		Long: `Writes backup_<timestamp>.zip holding database.json and the uploads tree into
the backup directory. With --db-only only database_<timestamp>.json is written,
compressed with zstd when --compress is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openServices(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			out := cmd.OutOrStdout()
			if dbOnly {
				res, err := svc.DatabaseOnlyBackup(cmd.Context(), compress)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, i18n.T("backup.db_done", res.Path, humanize.Bytes(uint64(res.Size)), res.Records))
				warnFailed(cmd, res.Failed())
				return nil
			}
			res, err := svc.FullBackup(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(out, i18n.T("backup.full_done", res.Path, humanize.Bytes(uint64(res.Size)), res.Records, res.AssetCount))
			warnFailed(cmd, res.Failed())
			return nil
		},
	}
	cmd.Flags().BoolVar(&dbOnly, "db-only", false, "Only export the database, without uploads")
	cmd.Flags().BoolVar(&compress, "compress", false, "Compress the database-only snapshot with zstd")
	return cmd
}

func warnFailed(cmd *cobra.Command, tables []string) {
	if len(tables) > 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), i18n.T("backup.failed_tables", strings.Join(tables, ", ")))
	}
}

func newRestoreCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "restore <file>",
		Short: "Restore the database and uploads from a backup",
		Long: `Replaces every table contained in the backup, and the uploads directory when
the backup carries one. Accepts full archives (.zip), database-only snapshots
(.json, .json.zst) and SQL dumps (.sql). A bare file name is looked up in the
backup directory. The table restore is all-or-nothing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openServices(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			path := svc.ResolveBackup(args[0])
			if !yes {
				warning := i18n.T("restore.warning", maskedURL(), path)
				if !confirm(cmd, warning) {
					fmt.Fprintln(cmd.OutOrStdout(), i18n.T("common.aborted"))
					return nil
				}
			}
			res, err := svc.Restore(cmd.Context(), path, nil)
			if err != nil {
				state := "-"
				if res != nil {
					state = string(res.State)
				}
				return errors.New(i18n.T("restore.failed", state, err))
			}
			records := 0
			for _, tr := range res.Tables {
				records += tr.Rows
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("restore.done", res.Duration.Round(time.Millisecond), records, res.Assets))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func newListCmd() *cobra.Command {
	var copyLatest, asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List backups in the backup directory, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openServices(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			l, err := svc.ListBackups()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(l.Backups)
			}
			if len(l.Backups) == 0 {
				fmt.Fprintln(out, i18n.T("list.empty", l.Dir))
				return nil
			}
			tw := tablewriter.NewWriter(out)
			tw.SetHeader([]string{"#", i18n.T("list.name"), i18n.T("list.size"), i18n.T("list.modified")})
			for i, b := range l.Backups {
				tw.Append([]string{strconv.Itoa(i + 1), b.Name, humanize.Bytes(uint64(b.Size)), b.ModTime.Format("2006-01-02 15:04:05")})
			}
			tw.Render()
			fmt.Fprintln(out, i18n.T("list.total", len(l.Backups), humanize.Bytes(uint64(l.TotalSize))))

			if copyLatest {
				latest, _ := l.Latest()
				if err := copyToClipboard(latest.Path); err != nil {
					return fmt.Errorf("copy to clipboard: %w", err)
				}
				fmt.Fprintln(out, i18n.T("list.copied", latest.Path))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&copyLatest, "copy-latest", false, "Copy the path of the newest backup to the clipboard")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the listing as JSON")
	return cmd
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show the database location and the row count of every table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openServices(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			st := svc.Stats(cmd.Context())
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, i18n.T("stats.database", st.Database, st.Backend))
			renderCounts(cmd, st.Tables, st.Counts)
			return nil
		},
	}
}

func renderCounts(cmd *cobra.Command, tables []string, counts model.TableCounts) {
	tw := tablewriter.NewWriter(cmd.OutOrStdout())
	tw.SetHeader([]string{i18n.T("stats.table"), i18n.T("stats.rows")})
	for _, t := range tables {
		n := counts[t]
		cell := strconv.FormatInt(n, 10)
		if n < 0 {
			cell = i18n.T("stats.error")
		}
		tw.Append([]string{t, cell})
	}
	tw.SetFooter([]string{i18n.T("stats.total"), strconv.FormatInt(counts.Total(), 10)})
	tw.Render()
}

func newMaintainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "maintain",
		Short: "Run database maintenance (VACUUM/OPTIMIZE) on the configured database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openServices(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			if err := svc.Maintain(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("maintain.done"))
			return nil
		},
	}
}
