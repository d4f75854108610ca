// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"fmt"
	"time"

	"github.com/one2talk/votekeeper/internal/model"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// TimeLayout is the canonical string form of timestamps in records.
const TimeLayout = time.RFC3339Nano

// Encode reads every declared field of every row of the table, ordered by id.
// Timestamps become strings in TimeLayout, byte slices become strings and
// integer types are widened to int64.
func Encode(ctx context.Context, q bun.IDB, d TableDescriptor) ([]model.Record, error) {
	var rows []map[string]interface{}
	err := q.NewSelect().
		Table(d.Name).
		Column(d.Fields...).
		OrderExpr("id ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", d.Name, err)
	}
	out := make([]model.Record, 0, len(rows))
	for _, row := range rows {
		rec := make(model.Record, len(row))
		for k, v := range row {
			rec[k] = normalizeValue(v)
		}
		out = append(out, rec)
	}
	return out, nil
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(TimeLayout)
	case *time.Time:
		if t == nil {
			return nil
		}
		return t.UTC().Format(TimeLayout)
	case []byte:
		return string(t)
	case int:
		return int64(t)
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case float32:
		return float64(t)
	default:
		return v
	}
}

// Decode inserts one row per record and returns the number of rows inserted.
// Every record field must be a declared column; a record carrying anything
// else fails with ErrUnknownField. Callers that want generated columns
// regenerated strip them first with StripGenerated.
func Decode(ctx context.Context, q bun.IDB, d TableDescriptor, records []model.Record) (int, error) {
	n := 0
	for i, rec := range records {
		values := make(map[string]interface{}, len(rec))
		for k, v := range rec {
			if !d.HasField(k) {
				return n, fmt.Errorf("decode %s record %d: %w: %s", d.Name, i, ErrUnknownField, k)
			}
			values[k] = v
		}
		if len(values) == 0 {
			return n, fmt.Errorf("decode %s record %d: empty record", d.Name, i)
		}
		if _, err := q.NewInsert().Model(&values).TableExpr(d.Name).Exec(ctx); err != nil {
			return n, fmt.Errorf("decode %s record %d: %w", d.Name, i, MapDBError(err))
		}
		n++
	}
	if n > 0 {
		if err := ResetSequence(ctx, q, d.Name); err != nil {
			return n, err
		}
	}
	return n, nil
}

// StripGenerated drops the table's generated fields from rec.
func StripGenerated(d TableDescriptor, rec model.Record) model.Record {
	return rec.Without(d.Generated...)
}

// StripAllGenerated applies StripGenerated to every record.
func StripAllGenerated(d TableDescriptor, recs []model.Record) []model.Record {
	out := make([]model.Record, len(recs))
	for i, r := range recs {
		out[i] = StripGenerated(d, r)
	}
	return out
}

// Wipe deletes every row of the table.
func Wipe(ctx context.Context, q bun.IDB, d TableDescriptor) error {
	if _, err := q.NewDelete().TableExpr(d.Name).Where("1 = 1").Exec(ctx); err != nil {
		return fmt.Errorf("wipe %s: %w", d.Name, MapDBError(err))
	}
	return nil
}

// ResetSequence moves a Postgres id sequence past the highest id after rows
// were inserted with explicit ids. Other backends adjust automatically.
func ResetSequence(ctx context.Context, q bun.IDB, table string) error {
	if q.Dialect().Name() != dialect.PG {
		return nil
	}
	query := "SELECT setval(pg_get_serial_sequence(?, 'id'), COALESCE(MAX(id), 1), MAX(id) IS NOT NULL) FROM ?"
	if _, err := ExecRaw(ctx, q, query, table, bun.Ident(table)); err != nil {
		return fmt.Errorf("reset sequence for %s: %w", table, err)
	}
	return nil
}

// CountRows returns the number of rows in the table.
func CountRows(ctx context.Context, q bun.IDB, table string) (int64, error) {
	n, err := q.NewSelect().Table(table).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return int64(n), nil
}

// CountAll counts every table of reg. A table whose count fails is reported
// as -1 and logged; the other tables are still counted.
func CountAll(ctx context.Context, q bun.IDB, reg *Registry) model.TableCounts {
	counts := make(model.TableCounts, len(reg.Order()))
	for _, d := range reg.Order() {
		n, err := CountRows(ctx, q, d.Name)
		if err != nil {
			dbLogf("db: %v", err)
			counts[d.Name] = -1
			continue
		}
		counts[d.Name] = n
	}
	return counts
}
