// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

package snapshot

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/one2talk/votekeeper/internal/model"
)

func sampleDataset() *model.DatasetSnapshot {
	ds := model.NewDatasetSnapshot(fixedNow(), "sqlite:///votes.db", "sqlite")
	ds.Tables["settings"] = []model.Record{{"id": int64(1), "key": "a", "value": "b"}}
	ds.Tables["users"] = []model.Record{
		{"id": int64(1), "name": "Ann"},
		{"id": int64(2), "name": "Ben"},
	}
	return ds
}

func TestDatasetFile_PlainAndCompressed(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"database.json", "database.json.zst"} {
		path := filepath.Join(dir, name)
		if err := WriteDatasetFile(path, sampleDataset()); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		if _, err := os.Stat(path + ".partial"); !os.IsNotExist(err) {
			t.Fatalf("partial file left behind for %s", name)
		}
		back, err := ReadDatasetFile(path)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if back.Tables.RecordCount() != 3 || back.Tables["users"][1]["name"] != "Ben" {
			t.Fatalf("%s: unexpected content %+v", name, back.Tables)
		}
	}
	raw, _ := os.ReadFile(filepath.Join(dir, "database.json.zst"))
	if len(raw) < 4 || raw[0] != 0x28 || raw[1] != 0xb5 {
		t.Fatalf("expected zstd magic in compressed file")
	}
}

func TestReadDataset_KeepsLargeIntegers(t *testing.T) {
	const big = int64(1)<<53 + 1
	raw := `{"_metadata": {"timestamp": "20260501_120000"}, "votes": [{"id": 9007199254740993, "weight": 1.5}]}`
	ds, err := ReadDataset(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("ReadDataset: %v", err)
	}
	rec := ds.Tables["votes"][0]
	if id, ok := rec["id"].(int64); !ok || id != big {
		t.Fatalf("expected int64 %d, got %#v", big, rec["id"])
	}
	if w, ok := rec["weight"].(float64); !ok || w != 1.5 {
		t.Fatalf("expected float64 1.5, got %#v", rec["weight"])
	}
}

func TestDatasetOnlyFileName(t *testing.T) {
	ds := sampleDataset()
	if got := DatasetOnlyFileName(ds, true); got != "database_20260501_120000.json.zst" {
		t.Fatalf("unexpected name %q", got)
	}
}
