// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrUnknownTable is returned when a table name is not registered.
	ErrUnknownTable = errors.New("unknown table")
	// ErrDependencyCycle is returned when table dependencies form a cycle.
	ErrDependencyCycle = errors.New("table dependency cycle")
)

// TableDescriptor describes one tracked table.
type TableDescriptor struct {
	Name string
	// Fields are the declared columns, in export order.
	Fields []string
	// Generated are fields filled in by the database (timestamps). They are
	// stripped before records are reinserted.
	Generated []string
	// DependsOn lists tables that must be populated before this one.
	DependsOn []string
	// Credentials marks tables holding login secrets. Native dumps skip them.
	Credentials bool
	// Model is a nil pointer to the bun model used to create the table.
	Model any
	// ForeignKeys are raw REFERENCES clauses added on table creation.
	ForeignKeys []string
}

// HasField reports whether name is a declared column.
func (d TableDescriptor) HasField(name string) bool {
	return slices.Contains(d.Fields, name)
}

// Registry is a fixed set of tables with a processing order derived from
// their declared dependencies.
type Registry struct {
	tables []TableDescriptor
	order  []int
	byName map[string]int
}

// NewRegistry validates the dependency graph and computes a topological order.
// Ties are broken by declaration order so the result is deterministic.
func NewRegistry(tables ...TableDescriptor) (*Registry, error) {
	r := &Registry{tables: tables, byName: make(map[string]int, len(tables))}
	for i, t := range tables {
		if _, dup := r.byName[t.Name]; dup {
			return nil, fmt.Errorf("table %s registered twice", t.Name)
		}
		r.byName[t.Name] = i
	}
	indegree := make([]int, len(tables))
	for i, t := range tables {
		for _, dep := range t.DependsOn {
			if _, ok := r.byName[dep]; !ok {
				return nil, fmt.Errorf("%w: %s depends on %s", ErrUnknownTable, t.Name, dep)
			}
			indegree[i]++
		}
	}
	done := make([]bool, len(tables))
	for len(r.order) < len(tables) {
		next := -1
		for i := range tables {
			if !done[i] && indegree[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			var stuck []string
			for i, t := range tables {
				if !done[i] {
					stuck = append(stuck, t.Name)
				}
			}
			return nil, fmt.Errorf("%w among %v", ErrDependencyCycle, stuck)
		}
		done[next] = true
		r.order = append(r.order, next)
		for i, t := range tables {
			if slices.Contains(t.DependsOn, tables[next].Name) {
				indegree[i]--
			}
		}
	}
	return r, nil
}

// Order returns the tables with every table after its dependencies.
func (r *Registry) Order() []TableDescriptor {
	out := make([]TableDescriptor, 0, len(r.order))
	for _, i := range r.order {
		out = append(out, r.tables[i])
	}
	return out
}

// Reverse returns the tables with dependents first, the order for wiping.
func (r *Registry) Reverse() []TableDescriptor {
	out := r.Order()
	slices.Reverse(out)
	return out
}

// Names returns the table names in processing order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.order))
	for _, d := range r.Order() {
		names = append(names, d.Name)
	}
	return names
}

// Lookup returns the descriptor for name.
func (r *Registry) Lookup(name string) (TableDescriptor, error) {
	i, ok := r.byName[name]
	if !ok {
		return TableDescriptor{}, fmt.Errorf("%w: %s", ErrUnknownTable, name)
	}
	return r.tables[i], nil
}

// Subset returns the descriptors for names in processing order, whatever the
// order of names.
func (r *Registry) Subset(names []string) ([]TableDescriptor, error) {
	for _, n := range names {
		if _, ok := r.byName[n]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTable, n)
		}
	}
	var out []TableDescriptor
	for _, d := range r.Order() {
		if slices.Contains(names, d.Name) {
			out = append(out, d)
		}
	}
	return out, nil
}

// CredentialTables returns the names of tables marked as holding credentials.
func (r *Registry) CredentialTables() []string {
	var out []string
	for _, d := range r.Order() {
		if d.Credentials {
			out = append(out, d.Name)
		}
	}
	return out
}

var defaultRegistry = mustRegistry(
	TableDescriptor{
		Name:      "settings",
		Fields:    []string{"id", "key", "value", "created_at", "updated_at"},
		Generated: []string{"created_at", "updated_at"},
		Model:     (*SettingModel)(nil),
	},
	TableDescriptor{
		Name:        "admins",
		Fields:      []string{"id", "username", "password_hash", "role", "created_at"},
		Generated:   []string{"created_at"},
		Credentials: true,
		Model:       (*AdminModel)(nil),
	},
	TableDescriptor{
		Name:      "users",
		Fields:    []string{"id", "name", "email", "phone", "created_at"},
		Generated: []string{"created_at"},
		DependsOn: []string{"settings", "admins"},
		Model:     (*UserModel)(nil),
	},
	TableDescriptor{
		Name:      "categories",
		Fields:    []string{"id", "name", "order"},
		DependsOn: []string{"users"},
		Model:     (*CategoryModel)(nil),
	},
	TableDescriptor{
		Name:        "cards",
		Fields:      []string{"id", "category_id", "title", "subtitle", "image_url", "order"},
		DependsOn:   []string{"categories"},
		Model:       (*CardModel)(nil),
		ForeignKeys: []string{"(category_id) REFERENCES categories (id)"},
	},
	TableDescriptor{
		Name:      "votes",
		Fields:    []string{"id", "user_id", "category_id", "card_id", "created_at"},
		Generated: []string{"created_at"},
		DependsOn: []string{"users", "categories", "cards"},
		Model:     (*VoteModel)(nil),
		ForeignKeys: []string{
			"(user_id) REFERENCES users (id)",
			"(category_id) REFERENCES categories (id)",
			"(card_id) REFERENCES cards (id)",
		},
	},
)

func mustRegistry(tables ...TableDescriptor) *Registry {
	r, err := NewRegistry(tables...)
	if err != nil {
		panic(err)
	}
	return r
}

// DefaultRegistry returns the voting application's tables.
func DefaultRegistry() *Registry { return defaultRegistry }
