// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/one2talk/votekeeper/internal/assets"
)

// Unpack extracts the archive at src into a fresh temporary directory under
// tmpDir (os.TempDir when empty). The workspace is removed again on any error.
func Unpack(ctx context.Context, src, tmpDir string) (ws *Workspace, err error) {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	defer func() { _ = zr.Close() }()

	dir, err := os.MkdirTemp(tmpDir, "votekeeper-restore-*")
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	// Error returns have already set ws to nil, so the deferred cleanup
	// works on dir.
	defer func() {
		if err != nil {
			_ = os.RemoveAll(dir)
		}
	}()
	ws = &Workspace{Dir: dir}

	hasAssets := false
	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name, err := cleanEntryName(f.Name)
		if err != nil {
			return nil, err
		}
		if f.FileInfo().IsDir() {
			continue
		}
		target := filepath.Join(dir, filepath.FromSlash(name))
		if !strings.Contains(name, "/") {
			if ws.PayloadPath != "" {
				return nil, fmt.Errorf("%w: more than one root file (%s, %s)", ErrCorrupt, filepath.Base(ws.PayloadPath), name)
			}
			kind := KindOf(name)
			if kind == KindNone {
				return nil, fmt.Errorf("%w: unexpected root file %s", ErrCorrupt, name)
			}
			ws.PayloadPath, ws.PayloadKind = target, kind
		} else if strings.HasPrefix(name, assets.DirName+"/") {
			hasAssets = true
		} else {
			return nil, fmt.Errorf("%w: unexpected entry %s", ErrCorrupt, name)
		}
		if err := extractFile(f, target); err != nil {
			return nil, err
		}
	}
	if hasAssets {
		ws.AssetDir = filepath.Join(dir, assets.DirName)
	}
	if ws.PayloadPath == "" && !hasAssets {
		return nil, ErrMissingPayload
	}
	return ws, nil
}

// cleanEntryName rejects absolute paths and entries escaping the workspace.
func cleanEntryName(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	clean := path.Clean(name)
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") || filepath.VolumeName(clean) != "" {
		return "", fmt.Errorf("%w: unsafe entry %q", ErrCorrupt, name)
	}
	return clean, nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, f.Name, err)
	}
	defer func() { _ = rc.Close() }()
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, f.Name, err)
	}
	return out.Close()
}
