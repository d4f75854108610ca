// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

// Package delivery ships finished archives off the host: to a Telegram
// channel as a document and, optionally, to an S3 compatible bucket.
package delivery // import "github.com/one2talk/votekeeper/internal/delivery"

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/one2talk/votekeeper/internal/model"
)

var (
	// ErrNotConfigured is returned when a sink lacks its credentials.
	ErrNotConfigured = errors.New("delivery not configured")
	// ErrRejected is returned when the remote side refuses an upload.
	ErrRejected = errors.New("delivery rejected")
)

// Report is what gets delivered: the archive plus the numbers shown next to it.
type Report struct {
	ArchivePath string
	Size        int64
	AssetCount  int
	Counts      model.TableCounts
	// Tables orders Counts in the caption; sorted names are used when empty.
	Tables    []string
	CreatedAt time.Time
}

// Name is the archive file name.
func (r Report) Name() string { return filepath.Base(r.ArchivePath) }

// Sink accepts archives.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, r Report) error
}

// Caption renders the Markdown text sent with an archive.
func Caption(r Report) string {
	var b strings.Builder
	b.WriteString("🗄️ *Database Backup*\n\n")
	fmt.Fprintf(&b, "📅 *Date:* `%s`\n", r.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "📦 *File:* `%s`\n", r.Name())
	fmt.Fprintf(&b, "💾 *Size:* `%.2f KB`\n", float64(r.Size)/1024)
	fmt.Fprintf(&b, "🖼️ *Uploads:* `%d files`\n", r.AssetCount)
	if len(r.Counts) > 0 {
		b.WriteString("\n📊 *Table Statistics:*\n")
		tables := r.Tables
		if len(tables) == 0 {
			tables = sortedKeys(r.Counts)
		}
		for _, t := range tables {
			n, ok := r.Counts[t]
			if !ok {
				continue
			}
			if n < 0 {
				fmt.Fprintf(&b, "  • %s: `error`\n", t)
				continue
			}
			fmt.Fprintf(&b, "  • %s: `%d` rows\n", t, n)
		}
	}
	return b.String()
}

func sortedKeys(c model.TableCounts) []string {
	return slices.Sorted(maps.Keys(c))
}
