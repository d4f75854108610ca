// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

package snapshot

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/one2talk/votekeeper/internal/model"
)

// zstdMagic starts every zstd frame.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// DatasetFileName is the name of a structured snapshot inside an archive.
const DatasetFileName = "database.json"

// WriteDataset encodes ds as indented JSON, zstd-compressed when compress is set.
func WriteDataset(w io.Writer, ds *model.DatasetSnapshot, compress bool) error {
	if !compress {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(ds)
	}
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("could not create zstd writer: %w", err)
	}
	enc := json.NewEncoder(zw)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ds); err != nil {
		_ = zw.Close()
		return fmt.Errorf("could not encode json to zstd writer: %w", err)
	}
	return zw.Close()
}

// WriteDatasetFile writes ds to path. Paths ending in .zst are compressed.
// The file appears under its final name only once fully written.
func WriteDatasetFile(path string, ds *model.DatasetSnapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".partial"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("could not create file: %w", err)
	}
	bw := bufio.NewWriter(f)
	err = WriteDataset(bw, ds, strings.HasSuffix(path, ".zst"))
	if err == nil {
		err = bw.Flush()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// ReadDataset decodes a snapshot, detecting zstd compression from the stream.
func ReadDataset(r io.Reader) (*model.DatasetSnapshot, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(len(zstdMagic))
	var src io.Reader = br
	if bytes.Equal(head, zstdMagic) {
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("could not create zstd reader: %w", err)
		}
		defer zr.Close()
		src = zr
	}
	var ds model.DatasetSnapshot
	if err := json.NewDecoder(src).Decode(&ds); err != nil {
		return nil, fmt.Errorf("could not decode snapshot json: %w", err)
	}
	return &ds, nil
}

// ReadDatasetFile opens and decodes a snapshot file.
func ReadDatasetFile(path string) (*model.DatasetSnapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ReadDataset(f)
}

// DatasetOnlyFileName is the name of a database-only backup file.
func DatasetOnlyFileName(ds *model.DatasetSnapshot, compress bool) string {
	name := "database_" + ds.Metadata.Timestamp + ".json"
	if compress {
		name += ".zst"
	}
	return name
}
