// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// MetadataKey is the reserved top-level key holding snapshot metadata in the
// serialized form. Table names never start with an underscore.
const MetadataKey = "_metadata"

// TimestampLayout is used for file names and the metadata timestamp.
const TimestampLayout = "20060102_150405"

// SnapshotMetadata describes where and when a snapshot was taken. Source is
// always the masked connection string.
type SnapshotMetadata struct {
	Timestamp string            `json:"timestamp"`
	CreatedAt time.Time         `json:"created_at"`
	Source    string            `json:"database_url"`
	Backend   string            `json:"backend,omitempty"`
	Failures  map[string]string `json:"errors,omitempty"`
}

// DatasetSnapshot is a structured export: every tracked table's records plus
// metadata. It is created once by the exporter and not modified afterwards.
type DatasetSnapshot struct {
	Metadata SnapshotMetadata
	Tables   TableSnapshot
}

// NewDatasetSnapshot returns an empty snapshot stamped with createdAt.
func NewDatasetSnapshot(createdAt time.Time, source, backend string) *DatasetSnapshot {
	return &DatasetSnapshot{
		Metadata: SnapshotMetadata{
			Timestamp: createdAt.Format(TimestampLayout),
			CreatedAt: createdAt.UTC(),
			Source:    source,
			Backend:   backend,
		},
		Tables: TableSnapshot{},
	}
}

// Failed reports whether the export of table recorded an error.
func (s *DatasetSnapshot) Failed(table string) bool {
	_, ok := s.Metadata.Failures[table]
	return ok
}

// HasTable reports whether the snapshot carries data (possibly empty) for table.
func (s *DatasetSnapshot) HasTable(table string) bool {
	_, ok := s.Tables[table]
	return ok
}

// MarshalJSON writes the flat layout: one key per table plus _metadata.
func (s DatasetSnapshot) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Tables)+1)
	for name, recs := range s.Tables {
		if recs == nil {
			recs = []Record{}
		}
		out[name] = recs
	}
	out[MetadataKey] = s.Metadata
	return json.Marshal(out)
}

// UnmarshalJSON accepts the flat layout with or without _metadata. Numbers are
// decoded as int64 when integral.
func (s *DatasetSnapshot) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Tables = TableSnapshot{}
	for key, msg := range raw {
		if key == MetadataKey {
			if err := json.Unmarshal(msg, &s.Metadata); err != nil {
				return fmt.Errorf("metadata: %w", err)
			}
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(msg))
		dec.UseNumber()
		var rows []map[string]any
		if err := dec.Decode(&rows); err != nil {
			return fmt.Errorf("table %s: %w", key, err)
		}
		recs := make([]Record, 0, len(rows))
		for _, row := range rows {
			for k, v := range row {
				row[k] = NormalizeJSONValue(v)
			}
			recs = append(recs, Record(row))
		}
		s.Tables[key] = recs
	}
	return nil
}
