// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

package archive

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/one2talk/votekeeper/internal/model"
	"github.com/one2talk/votekeeper/internal/snapshot"
	"github.com/one2talk/votekeeper/internal/testutil"
)

func datasetPayload(t *testing.T) Payload {
	t.Helper()
	ds := model.NewDatasetSnapshot(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC), "sqlite:///votes.db", "sqlite")
	ds.Tables["categories"] = []model.Record{
		{"id": int64(1), "name": "Best Song", "order": int64(0)},
		{"id": int64(2), "name": "Best Film", "order": int64(1)},
		{"id": int64(3), "name": "Best Book", "order": int64(2)},
	}
	var buf bytes.Buffer
	if err := snapshot.WriteDataset(&buf, ds, false); err != nil {
		t.Fatalf("WriteDataset: %v", err)
	}
	return Payload{Name: snapshot.DatasetFileName, Data: buf.Bytes()}
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestPackUnpack_Completeness(t *testing.T) {
	uploads := t.TempDir()
	testutil.WriteFiles(t, uploads, map[string]string{"a.jpg": "jpeg", "b.png": "png"})
	backups := t.TempDir()
	dest := filepath.Join(backups, FileName("", time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)))

	res, err := Pack(context.Background(), dest, PackInput{Payload: datasetPayload(t), AssetDir: uploads})
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if res.AssetCount != 2 || res.Size == 0 || res.Path != dest {
		t.Fatalf("unexpected result %+v", res)
	}
	if names := dirEntries(t, backups); len(names) != 1 || names[0] != "backup_20260501_120000.zip" {
		t.Fatalf("staging or partial files left behind: %v", names)
	}

	ws, err := Unpack(context.Background(), dest, t.TempDir())
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	defer func() { _ = ws.Close() }()
	if ws.PayloadKind != KindDataset || !ws.HasAssets() {
		t.Fatalf("unexpected workspace %+v", ws)
	}
	files := testutil.ReadFiles(t, ws.AssetDir)
	if len(files) != 2 || files["a.jpg"] != "jpeg" || files["b.png"] != "png" {
		t.Fatalf("unexpected uploads %v", files)
	}
	ds, err := snapshot.ReadDatasetFile(ws.PayloadPath)
	if err != nil {
		t.Fatalf("ReadDatasetFile: %v", err)
	}
	if n := ds.Tables.RecordCount(); n != 3 {
		t.Fatalf("expected 3 records, got %d", n)
	}
}

func TestPack_WithoutAssets(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "backup.zip")
	res, err := Pack(context.Background(), dest, PackInput{Payload: Payload{Name: "backup_votes_20260501_120000.sql", Data: []byte("CREATE TABLE x(id int);\n")}})
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if res.AssetCount != 0 {
		t.Fatalf("expected no assets, got %d", res.AssetCount)
	}
	ws, err := Unpack(context.Background(), dest, t.TempDir())
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	defer func() { _ = ws.Close() }()
	if ws.PayloadKind != KindDump || ws.HasAssets() {
		t.Fatalf("unexpected workspace %+v", ws)
	}
}

func TestPack_FailureLeavesNothingUnderFinalName(t *testing.T) {
	uploads := t.TempDir()
	testutil.WriteFiles(t, uploads, map[string]string{"a.jpg": "jpeg"})
	backups := t.TempDir()
	dest := filepath.Join(backups, "backup.zip")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Pack(ctx, dest, PackInput{Payload: datasetPayload(t), AssetDir: uploads}); err == nil {
		t.Fatalf("expected error for cancelled context")
	}
	if names := dirEntries(t, backups); len(names) != 0 {
		t.Fatalf("expected empty backup dir, got %v", names)
	}
}

func TestPack_FinalizeFailureRemovesPartial(t *testing.T) {
	backups := t.TempDir()
	dest := filepath.Join(backups, "backup.zip")
	// A directory under the final name makes the rename fail.
	if err := os.MkdirAll(filepath.Join(dest, "keep"), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := Pack(context.Background(), dest, PackInput{Payload: datasetPayload(t)}); err == nil {
		t.Fatalf("expected finalize error")
	}
	if names := dirEntries(t, backups); len(names) != 1 || names[0] != "backup.zip" {
		t.Fatalf("unexpected leftovers %v", names)
	}
}

func TestPack_RejectsNestedPayloadName(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "b.zip")
	if _, err := Pack(context.Background(), dest, PackInput{Payload: Payload{Name: "x/database.json"}}); err == nil {
		t.Fatalf("expected error")
	}
}

func writeZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for name, body := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestUnpack_Errors(t *testing.T) {
	garbage := filepath.Join(t.TempDir(), "garbage.zip")
	if err := os.WriteFile(garbage, []byte("not a zip"), 0o600); err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		name string
		path string
		want error
	}{
		{"not a zip", garbage, ErrCorrupt},
		{"two payloads", writeZip(t, map[string]string{"database.json": "{}", "dump.sql": ""}), ErrCorrupt},
		{"zip slip", writeZip(t, map[string]string{"../evil.sql": "x"}), ErrCorrupt},
		{"foreign dir", writeZip(t, map[string]string{"other/x.txt": "x"}), ErrCorrupt},
		{"empty", writeZip(t, map[string]string{}), ErrMissingPayload},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tmp := t.TempDir()
			ws, err := Unpack(context.Background(), tc.path, tmp)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if ws != nil {
				t.Fatalf("expected nil workspace")
			}
			if names := dirEntries(t, tmp); len(names) != 0 {
				t.Fatalf("workspace not cleaned up: %v", names)
			}
		})
	}
}

func TestUnpack_CancelledRemovesWorkspace(t *testing.T) {
	path := writeZip(t, map[string]string{"database.json": "{}"})
	tmp := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ws, err := Unpack(ctx, path, tmp)
	if !errors.Is(err, context.Canceled) || ws != nil {
		t.Fatalf("expected context.Canceled and no workspace, got %v %v", ws, err)
	}
	if names := dirEntries(t, tmp); len(names) != 0 {
		t.Fatalf("workspace not cleaned up: %v", names)
	}
}

func TestUnpack_AssetOnlyArchive(t *testing.T) {
	path := writeZip(t, map[string]string{"uploads/cards/a.jpg": "jpeg"})
	ws, err := Unpack(context.Background(), path, t.TempDir())
	if err != nil {
		t.Fatalf("Unpack: %v", err)
	}
	defer func() { _ = ws.Close() }()
	if ws.PayloadPath != "" || ws.PayloadKind != KindNone || !ws.HasAssets() {
		t.Fatalf("unexpected workspace %+v", ws)
	}
	if got := testutil.ReadFiles(t, ws.AssetDir); got["cards/a.jpg"] != "jpeg" {
		t.Fatalf("unexpected uploads %v", got)
	}
}

func TestList_NewestFirst(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFiles(t, dir, map[string]string{
		"backup_20260101_000000.zip":         "a",
		"database_20260102_000000.json":      "b",
		"notes.txt":                          "c",
		"backup_20260103_000000.zip.partial": "d",
	})
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(filepath.Join(dir, "backup_20260101_000000.zip"), old, old); err != nil {
		t.Fatal(err)
	}
	infos, err := List(dir)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 backups, got %+v", infos)
	}
	if !strings.HasPrefix(infos[0].Name, "database_") || infos[1].Size != 1 {
		t.Fatalf("unexpected order %+v", infos)
	}
	if missing, err := List(filepath.Join(dir, "nope")); err != nil || len(missing) != 0 {
		t.Fatalf("missing dir: %v %v", missing, err)
	}
}

func TestKindOf(t *testing.T) {
	cases := map[string]Kind{
		"database.json":     KindDataset,
		"database.json.zst": KindDataset,
		"backup_x.SQL":      KindDump,
		"readme.md":         KindNone,
	}
	for name, want := range cases {
		if got := KindOf(name); got != want {
			t.Fatalf("%s: got %v, want %v", name, got, want)
		}
	}
}
