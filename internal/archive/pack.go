// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

package archive

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"
	"github.com/one2talk/votekeeper/internal/assets"
	"github.com/one2talk/votekeeper/internal/logging"
)

// Payload is the root-level file of an archive.
type Payload struct {
	Name string
	Data []byte
}

// PackInput is what goes into an archive.
type PackInput struct {
	Payload Payload
	// AssetDir is copied under uploads/ when set.
	AssetDir string
}

// PackResult describes a finished archive.
type PackResult struct {
	Path       string
	Size       int64
	AssetCount int
}

// Pack stages the payload and uploads in a temporary tree next to dest, zips
// the tree and renames the zip to dest. The staging tree is always removed; on
// failure no file exists under dest.
func Pack(ctx context.Context, dest string, in PackInput) (*PackResult, error) {
	if in.Payload.Name == "" || filepath.Base(in.Payload.Name) != in.Payload.Name {
		return nil, fmt.Errorf("invalid payload name %q", in.Payload.Name)
	}
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}
	staging, err := os.MkdirTemp(dir, ".staging-*")
	if err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(staging) }()

	if err := os.WriteFile(filepath.Join(staging, in.Payload.Name), in.Payload.Data, 0o600); err != nil {
		return nil, fmt.Errorf("stage payload: %w", err)
	}
	count := 0
	if in.AssetDir != "" {
		if count, err = assets.CopyTree(ctx, in.AssetDir, filepath.Join(staging, assets.DirName)); err != nil {
			return nil, fmt.Errorf("stage uploads: %w", err)
		}
	}

	partial := dest + ".partial"
	if err := zipTree(ctx, staging, partial); err != nil {
		_ = os.Remove(partial)
		return nil, err
	}
	if err := os.Rename(partial, dest); err != nil {
		_ = os.Remove(partial)
		return nil, fmt.Errorf("finalize archive: %w", err)
	}
	fi, err := os.Stat(dest)
	if err != nil {
		return nil, err
	}
	logging.Infof("archive: wrote %s (%d bytes, %d uploads)", dest, fi.Size(), count)
	return &PackResult{Path: dest, Size: fi.Size(), AssetCount: count}, nil
}

func zipTree(ctx context.Context, root, target string) (err error) {
	f, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close archive: %w", cerr)
		}
	}()
	zw := zip.NewWriter(f)
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		hdr, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)
		hdr.Method = zip.Deflate
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		_, err = io.Copy(w, src)
		_ = src.Close()
		return err
	})
	if walkErr != nil {
		_ = zw.Close()
		return fmt.Errorf("write archive: %w", walkErr)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	return nil
}
