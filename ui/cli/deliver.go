// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/one2talk/votekeeper/internal/i18n"
	"github.com/spf13/cobra"
)

func newDeliverCmd() *cobra.Command {
	var loop bool
	cmd := &cobra.Command{
		Use:   "deliver",
		Short: "Dump the database, pack it with the uploads and send it to the configured sinks",
		Long: `Runs one delivery cycle: a native SQL dump without the admin credentials,
packed with the uploads into a zip archive and sent to Telegram and, when
configured, the object store. With --worker the cycle repeats every
worker.interval seconds after an initial grace period until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openServices(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			w, err := svc.NewWorker(cmd.Context())
			if err != nil {
				return err
			}
			if loop {
				ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()
				if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					return err
				}
				return nil
			}
			c, err := w.RunOnce(cmd.Context())
			if err != nil {
				return errors.New(i18n.T("deliver.failed", c.Stage, err))
			}
			fmt.Fprintln(cmd.OutOrStdout(), i18n.T("deliver.done", c.ArchivePath, strings.Join(c.Delivered, ", ")))
			return nil
		},
	}
	cmd.Flags().BoolVar(&loop, "worker", false, "Keep running and deliver every worker.interval seconds")
	return cmd
}
