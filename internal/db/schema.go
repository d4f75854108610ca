// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// EnsureSchema creates every registered table that does not exist yet, in
// dependency order so foreign keys can be declared. Existing tables are left
// untouched.
func EnsureSchema(ctx context.Context, bdb *bun.DB, reg *Registry) error {
	for _, d := range reg.Order() {
		if d.Model == nil {
			continue
		}
		q := bdb.NewCreateTable().Model(d.Model).IfNotExists()
		for _, fk := range d.ForeignKeys {
			q = q.ForeignKey(fk)
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("create table %s: %w", d.Name, err)
		}
		dbLogf("db: ensured table %s", d.Name)
	}
	return nil
}
