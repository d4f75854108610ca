// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

// Package archive packs a snapshot or dump plus the upload directory into a
// zip file and extracts such files into throwaway workspaces.
//
// Layout: exactly one payload file at the root (database.json[.zst] or a
// .sql dump) and an optional uploads/ tree.
package archive // import "github.com/one2talk/votekeeper/internal/archive"

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/one2talk/votekeeper/internal/model"
)

var (
	// ErrCorrupt is returned for unreadable archives or ones that break the layout.
	ErrCorrupt = errors.New("corrupt archive")
	// ErrMissingPayload is returned when an archive holds neither a payload
	// nor uploads.
	ErrMissingPayload = errors.New("archive has no snapshot or dump")
)

// Kind classifies a payload file.
type Kind int

const (
	KindNone Kind = iota
	KindDataset
	KindDump
)

func (k Kind) String() string {
	switch k {
	case KindDataset:
		return "snapshot"
	case KindDump:
		return "dump"
	default:
		return "none"
	}
}

// KindOf classifies a file by name.
func KindOf(name string) Kind {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".sql"):
		return KindDump
	case strings.HasSuffix(lower, ".json"), strings.HasSuffix(lower, ".json.zst"):
		return KindDataset
	default:
		return KindNone
	}
}

// FileName returns the archive name for a backup taken at ts. label is
// inserted when non-empty: backup_<label>_<ts>.zip.
func FileName(label string, ts time.Time) string {
	if label == "" {
		return "backup_" + ts.Format(model.TimestampLayout) + ".zip"
	}
	return fmt.Sprintf("backup_%s_%s.zip", label, ts.Format(model.TimestampLayout))
}

// Workspace is an extracted archive. The caller must Close it.
type Workspace struct {
	Dir         string
	PayloadPath string
	PayloadKind Kind
	// AssetDir is empty when the archive carried no uploads.
	AssetDir string
}

// HasAssets reports whether the archive carried an uploads tree.
func (w *Workspace) HasAssets() bool { return w.AssetDir != "" }

// Close deletes the workspace directory.
func (w *Workspace) Close() error {
	if w == nil || w.Dir == "" {
		return nil
	}
	return os.RemoveAll(w.Dir)
}

// Info describes an archive or snapshot file in the backup directory.
type Info struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

// List returns backup files (zip archives and database-only snapshots) in dir,
// newest first. A missing dir yields an empty list.
func List(dir string) ([]Info, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []Info
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".zip") && KindOf(name) != KindDataset {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			return nil, err
		}
		out = append(out, Info{Name: name, Path: filepath.Join(dir, name), Size: fi.Size(), ModTime: fi.ModTime()})
	}
	slices.SortFunc(out, func(a, b Info) int {
		if c := b.ModTime.Compare(a.ModTime); c != 0 {
			return c
		}
		return strings.Compare(b.Name, a.Name)
	})
	return out, nil
}
