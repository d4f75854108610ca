// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

// Package assets mirrors the upload directory into and out of working areas.
package assets // import "github.com/one2talk/votekeeper/internal/assets"

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/one2talk/votekeeper/internal/logging"
)

// DirName is the fixed folder name of uploads inside archives.
const DirName = "uploads"

// Count returns the number of regular files under dir. A missing dir counts
// as empty.
func Count(dir string) (int, error) {
	n := 0
	err := walkFiles(context.Background(), dir, func(string, string, fs.FileInfo) error {
		n++
		return nil
	})
	return n, err
}

// CopyTree copies every regular file under src to the same relative path
// under dst and returns the number of files copied. Symlinks and other
// special files are skipped. A missing src copies nothing.
func CopyTree(ctx context.Context, src, dst string) (int, error) {
	n := 0
	err := walkFiles(ctx, src, func(path, rel string, info fs.FileInfo) error {
		if err := copyFile(path, filepath.Join(dst, rel), info.Mode().Perm()); err != nil {
			return err
		}
		n++
		return nil
	})
	return n, err
}

// Replace makes live an exact copy of from: the previous contents of live are
// removed, not merged. The new tree is staged next to live first so a copy
// failure leaves live untouched.
func Replace(ctx context.Context, live, from string) (int, error) {
	staging := live + ".incoming"
	_ = os.RemoveAll(staging)
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return 0, fmt.Errorf("create staging dir: %w", err)
	}
	n, err := CopyTree(ctx, from, staging)
	if err != nil {
		_ = os.RemoveAll(staging)
		return 0, err
	}
	if err := os.RemoveAll(live); err != nil {
		_ = os.RemoveAll(staging)
		return 0, fmt.Errorf("remove %s: %w", live, err)
	}
	if err := os.Rename(staging, live); err != nil {
		return 0, fmt.Errorf("move uploads into place: %w", err)
	}
	logging.Infof("assets: replaced %s with %d files", live, n)
	return n, nil
}

func walkFiles(ctx context.Context, root string, fn func(path, rel string, info fs.FileInfo) error) error {
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		return fn(path, rel, info)
	})
}

func copyFile(src, dst string, perm fs.FileMode) (err error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()
	if perm == 0 {
		perm = 0o644
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return nil
}
