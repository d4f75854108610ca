// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/one2talk/votekeeper/internal/model"
)

func TestEncode_ReadsDeclaredFieldsInIDOrder(t *testing.T) {
	s := newTestStore(t)
	seedVotingData(t, s)
	d, _ := DefaultRegistry().Lookup("cards")

	recs, err := Encode(context.Background(), s.BunDB(), d)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("expected 3 cards, got %d", len(recs))
	}
	for i, r := range recs {
		if len(r) != len(d.Fields) {
			t.Fatalf("record %d has fields %v, want %v", i, r.Fields(), d.Fields)
		}
		if id, _ := r["id"].(int64); id != int64(i+1) {
			t.Fatalf("record %d has id %v", i, r["id"])
		}
	}
	if recs[0]["subtitle"] != nil {
		t.Fatalf("expected NULL subtitle, got %#v", recs[0]["subtitle"])
	}
	if recs[1]["subtitle"] != "live" {
		t.Fatalf("expected subtitle live, got %#v", recs[1]["subtitle"])
	}
}

func TestEncode_TimestampsBecomeStrings(t *testing.T) {
	s := newTestStore(t)
	seedVotingData(t, s)
	d, _ := DefaultRegistry().Lookup("users")

	recs, err := Encode(context.Background(), s.BunDB(), d)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if _, ok := recs[0]["created_at"].(string); !ok {
		t.Fatalf("expected created_at to be a string, got %T", recs[0]["created_at"])
	}
}

func TestNormalizeValue(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("x", 3600))
	if got := normalizeValue(ts); got != "2026-01-02T02:04:05Z" {
		t.Fatalf("unexpected time form %v", got)
	}
	if got := normalizeValue([]byte("abc")); got != "abc" {
		t.Fatalf("unexpected bytes form %v", got)
	}
	if got := normalizeValue(int32(7)); got != int64(7) {
		t.Fatalf("unexpected int form %#v", got)
	}
	if got := normalizeValue("x"); got != "x" {
		t.Fatalf("strings must pass through")
	}
}

func TestDecode_InsertsAndRejectsUnknownFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	d, _ := DefaultRegistry().Lookup("settings")

	n, err := Decode(ctx, s.BunDB(), d, []model.Record{
		{"id": int64(5), "key": "a", "value": "1"},
		{"id": int64(6), "key": "b", "value": "2"},
	})
	if err != nil || n != 2 {
		t.Fatalf("Decode: n=%d err=%v", n, err)
	}

	_, err = Decode(ctx, s.BunDB(), d, []model.Record{{"id": int64(7), "key": "c", "colour": "red"}})
	if !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}

	_, err = Decode(ctx, s.BunDB(), d, []model.Record{{"id": int64(8), "key": "a", "value": "dup"}})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestDecode_MissingParentFails(t *testing.T) {
	s := newTestStore(t)
	d, _ := DefaultRegistry().Lookup("cards")
	_, err := Decode(context.Background(), s.BunDB(), d, []model.Record{
		{"id": int64(1), "category_id": int64(99), "title": "orphan", "image_url": "/x.jpg", "order": int64(0)},
	})
	if !errors.Is(err, ErrForeignKey) {
		t.Fatalf("expected ErrForeignKey, got %v", err)
	}
}

func TestStripGenerated(t *testing.T) {
	d, _ := DefaultRegistry().Lookup("settings")
	rec := model.Record{"id": int64(1), "key": "k", "value": "v", "created_at": "x", "updated_at": "y"}
	got := StripGenerated(d, rec)
	if len(got) != 3 {
		t.Fatalf("expected 3 fields after strip, got %v", got.Fields())
	}
}

func TestWipeAndCountAll(t *testing.T) {
	s := newTestStore(t)
	seedVotingData(t, s)
	ctx := context.Background()
	counts := CountAll(ctx, s.BunDB(), DefaultRegistry())
	if counts["cards"] != 3 || counts["votes"] != 2 || counts["admins"] != 1 {
		t.Fatalf("unexpected counts %v", counts)
	}
	for _, d := range DefaultRegistry().Reverse() {
		if err := Wipe(ctx, s.BunDB(), d); err != nil {
			t.Fatalf("Wipe %s: %v", d.Name, err)
		}
	}
	if total := CountAll(ctx, s.BunDB(), DefaultRegistry()).Total(); total != 0 {
		t.Fatalf("expected empty database, got %d rows", total)
	}
}

func TestWipe_ParentWithChildrenFails(t *testing.T) {
	s := newTestStore(t)
	seedVotingData(t, s)
	d, _ := DefaultRegistry().Lookup("categories")
	if err := Wipe(context.Background(), s.BunDB(), d); !errors.Is(err, ErrForeignKey) {
		t.Fatalf("expected ErrForeignKey wiping categories with cards present, got %v", err)
	}
}
