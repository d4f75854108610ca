// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestRecordWithout(t *testing.T) {
	r := Record{"id": int64(1), "name": "a", "created_at": "2026-01-01T00:00:00Z"}
	got := r.Without("created_at", "updated_at")
	if _, ok := got["created_at"]; ok {
		t.Fatalf("created_at not stripped: %v", got)
	}
	if _, ok := r["created_at"]; !ok {
		t.Fatalf("Without must not modify the receiver")
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(got))
	}
}

func TestDatasetSnapshotJSONLayout(t *testing.T) {
	ts := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	s := NewDatasetSnapshot(ts, "sqlite:///./votes.db", "sqlite")
	s.Tables["users"] = []Record{{"id": int64(1), "name": "Ann"}}
	s.Tables["votes"] = nil

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(data, &flat); err != nil {
		t.Fatalf("unmarshal flat: %v", err)
	}
	for _, k := range []string{"users", "votes", MetadataKey} {
		if _, ok := flat[k]; !ok {
			t.Fatalf("missing top-level key %q in %s", k, data)
		}
	}
	if string(flat["votes"]) != "[]" {
		t.Fatalf("nil table should encode as [], got %s", flat["votes"])
	}

	var back DatasetSnapshot
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.Metadata.Timestamp != "20260304_050607" {
		t.Fatalf("unexpected timestamp %q", back.Metadata.Timestamp)
	}
	id, ok := back.Tables["users"][0]["id"].(int64)
	if !ok || id != 1 {
		t.Fatalf("expected int64 id 1, got %#v", back.Tables["users"][0]["id"])
	}
	if !back.HasTable("votes") || len(back.Tables["votes"]) != 0 {
		t.Fatalf("expected empty votes table to survive")
	}
}

func TestDatasetSnapshotWithoutMetadata(t *testing.T) {
	var s DatasetSnapshot
	if err := json.Unmarshal([]byte(`{"settings":[{"id":1,"key":"k","value":"v","ratio":0.5}]}`), &s); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	rec := s.Tables["settings"][0]
	if _, ok := rec["ratio"].(float64); !ok {
		t.Fatalf("expected float64 ratio, got %T", rec["ratio"])
	}
	if s.Metadata.Timestamp != "" {
		t.Fatalf("expected empty metadata")
	}
}

func TestTableCountsTotalIgnoresFailures(t *testing.T) {
	c := TableCounts{"users": 3, "votes": -1, "cards": 2}
	if c.Total() != 5 {
		t.Fatalf("expected 5, got %d", c.Total())
	}
}

func TestDeliveryCycleSucceeded(t *testing.T) {
	c := DeliveryCycle{StartedAt: time.Unix(0, 0)}
	if c.Succeeded() {
		t.Fatalf("cycle without deliveries must not succeed")
	}
	c.Delivered = []string{"telegram"}
	c.FinishedAt = c.StartedAt.Add(time.Second)
	if !c.Succeeded() || c.Duration() != time.Second {
		t.Fatalf("unexpected cycle state: %+v", c)
	}
}
