// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

package assets

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/one2talk/votekeeper/internal/testutil"
)

func TestCopyTreeAndCount(t *testing.T) {
	src := t.TempDir()
	testutil.WriteFiles(t, src, map[string]string{
		"a.jpg":         "A",
		"cards/b.png":   "B",
		"cards/x/c.gif": "C",
	})
	dst := filepath.Join(t.TempDir(), "out")

	n, err := CopyTree(context.Background(), src, dst)
	if err != nil || n != 3 {
		t.Fatalf("CopyTree: n=%d err=%v", n, err)
	}
	got := testutil.ReadFiles(t, dst)
	if got["cards/x/c.gif"] != "C" || len(got) != 3 {
		t.Fatalf("unexpected copy %v", got)
	}
	if c, err := Count(dst); err != nil || c != 3 {
		t.Fatalf("Count: %d %v", c, err)
	}
}

func TestMissingSourceIsEmpty(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	if c, err := Count(missing); err != nil || c != 0 {
		t.Fatalf("Count(missing): %d %v", c, err)
	}
	n, err := CopyTree(context.Background(), missing, t.TempDir())
	if err != nil || n != 0 {
		t.Fatalf("CopyTree(missing): %d %v", n, err)
	}
}

func TestReplaceRemovesOldFiles(t *testing.T) {
	live := filepath.Join(t.TempDir(), "uploads")
	testutil.WriteFiles(t, live, map[string]string{"old.jpg": "old", "keep/a.jpg": "stale"})
	from := t.TempDir()
	testutil.WriteFiles(t, from, map[string]string{"keep/a.jpg": "fresh", "new.png": "n"})

	n, err := Replace(context.Background(), live, from)
	if err != nil || n != 2 {
		t.Fatalf("Replace: n=%d err=%v", n, err)
	}
	got := testutil.ReadFiles(t, live)
	if len(got) != 2 || got["keep/a.jpg"] != "fresh" || got["new.png"] != "n" {
		t.Fatalf("expected exact mirror, got %v", got)
	}
	if _, ok := got["old.jpg"]; ok {
		t.Fatalf("old files must be removed")
	}
}
