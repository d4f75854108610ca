// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

// Package model holds the plain data types shared by the backup, restore and
// transfer packages. Nothing in here talks to a database or the filesystem.
package model // import "github.com/one2talk/votekeeper/internal/model"

import (
	"encoding/json"
	"sort"
)

// Record is a single row in portable form: field name to scalar value.
type Record map[string]any

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Without returns a copy of r with the named fields removed.
func (r Record) Without(fields ...string) Record {
	out := r.Clone()
	for _, f := range fields {
		delete(out, f)
	}
	return out
}

// Fields returns the record's field names in sorted order.
func (r Record) Fields() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// TableSnapshot maps a table name to its records in source query order.
type TableSnapshot map[string][]Record

// RecordCount returns the total number of records across all tables.
func (t TableSnapshot) RecordCount() int {
	n := 0
	for _, recs := range t {
		n += len(recs)
	}
	return n
}

// Tables returns the table names present in the snapshot, sorted.
func (t TableSnapshot) Tables() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TableCounts maps a table name to its row count. A negative count means the
// count query failed.
type TableCounts map[string]int64

// Total sums all non-negative counts.
func (c TableCounts) Total() int64 {
	var n int64
	for _, v := range c {
		if v > 0 {
			n += v
		}
	}
	return n
}

// TableReport is the outcome of exporting or copying one table.
type TableReport struct {
	Table string
	Rows  int
	Err   error
}

// OK reports whether the table was processed without error.
func (r TableReport) OK() bool { return r.Err == nil }

// NormalizeJSONValue converts values produced by a json.Decoder with
// UseNumber enabled into int64 or float64, recursing into slices and maps.
func NormalizeJSONValue(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case []any:
		for i := range t {
			t[i] = NormalizeJSONValue(t[i])
		}
		return t
	case map[string]any:
		for k := range t {
			t[k] = NormalizeJSONValue(t[k])
		}
		return t
	default:
		return v
	}
}
