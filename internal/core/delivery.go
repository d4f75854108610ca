// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"context"

	"github.com/one2talk/votekeeper/internal/delivery"
	"github.com/one2talk/votekeeper/internal/snapshot"
	"github.com/one2talk/votekeeper/internal/worker"
)

// Sinks builds every configured delivery target. Telegram is configured when
// either of its credentials is set, the object store when it has a bucket and
// keys. It fails with delivery.ErrNotConfigured when nothing is configured.
func (s *Services) Sinks(ctx context.Context) ([]delivery.Sink, error) {
	var sinks []delivery.Sink
	if s.cfg.Telegram.BotToken != "" || s.cfg.Telegram.ChatID != "" {
		tg, err := delivery.NewTelegram(s.cfg.Telegram.BotToken, s.cfg.Telegram.ChatID, s.cfg.TelegramTimeout())
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, tg)
	}
	if osc := s.cfg.ObjectStore(); osc.Enabled() {
		store, err := delivery.NewObjectStore(ctx, osc)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, store)
	}
	if len(sinks) == 0 {
		return nil, delivery.ErrNotConfigured
	}
	return sinks, nil
}

// NewWorker returns the delivery worker for the local database and the
// configured sinks.
func (s *Services) NewWorker(ctx context.Context, opts ...worker.Option) (*worker.Worker, error) {
	sinks, err := s.Sinks(ctx)
	if err != nil {
		return nil, err
	}
	exp := snapshot.NewExporter(s.store,
		snapshot.WithRunner(s.runner),
		snapshot.WithToolTimeout(s.cfg.ToolTimeout()),
	)
	cfg := worker.Config{
		BackupDir:   s.cfg.Paths.BackupDir,
		UploadsDir:  s.cfg.Paths.UploadsDir,
		Interval:    s.cfg.WorkerInterval(),
		GracePeriod: s.cfg.WorkerGracePeriod(),
	}
	return worker.New(s.store, cfg, sinks, append([]worker.Option{worker.WithExporter(exp)}, opts...)...)
}
