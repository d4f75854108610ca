// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

package model

import "time"

// DeliveryCycle is one run of the delivery worker. It is never persisted;
// only its log lines and the archive file outlive it.
type DeliveryCycle struct {
	ID          string
	StartedAt   time.Time
	FinishedAt  time.Time
	ArchivePath string
	ArchiveSize int64
	AssetCount  int
	Counts      TableCounts
	// Stage is the last stage entered; on failure it names the failing stage.
	Stage     string
	Delivered []string
	Err       error
}

// Succeeded reports whether the cycle reached delivery without error.
func (c DeliveryCycle) Succeeded() bool { return c.Err == nil && len(c.Delivered) > 0 }

// Duration is the wall time of the cycle, zero while it is still running.
func (c DeliveryCycle) Duration() time.Duration {
	if c.FinishedAt.IsZero() {
		return 0
	}
	return c.FinishedAt.Sub(c.StartedAt)
}
