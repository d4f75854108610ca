// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

package db

import (
	"errors"
	"slices"
	"testing"
)

func TestDefaultRegistryOrder(t *testing.T) {
	got := DefaultRegistry().Names()
	want := []string{"settings", "admins", "users", "categories", "cards", "votes"}
	if !slices.Equal(got, want) {
		t.Fatalf("unexpected order: got %v want %v", got, want)
	}
	rev := DefaultRegistry().Reverse()
	if rev[0].Name != "votes" || rev[len(rev)-1].Name != "settings" {
		t.Fatalf("unexpected reverse order: %v", rev)
	}
}

func TestDefaultRegistryDependenciesComeFirst(t *testing.T) {
	pos := map[string]int{}
	for i, n := range DefaultRegistry().Names() {
		pos[n] = i
	}
	for _, d := range DefaultRegistry().Order() {
		for _, dep := range d.DependsOn {
			if pos[dep] >= pos[d.Name] {
				t.Fatalf("%s must come after %s", d.Name, dep)
			}
		}
	}
}

func TestNewRegistry_TiesFollowDeclarationOrder(t *testing.T) {
	r, err := NewRegistry(
		TableDescriptor{Name: "c", DependsOn: []string{"a"}},
		TableDescriptor{Name: "b"},
		TableDescriptor{Name: "a"},
	)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if got := r.Names(); !slices.Equal(got, []string{"b", "a", "c"}) {
		t.Fatalf("unexpected order %v", got)
	}
}

func TestNewRegistry_Errors(t *testing.T) {
	_, err := NewRegistry(
		TableDescriptor{Name: "a", DependsOn: []string{"b"}},
		TableDescriptor{Name: "b", DependsOn: []string{"a"}},
	)
	if !errors.Is(err, ErrDependencyCycle) {
		t.Fatalf("expected ErrDependencyCycle, got %v", err)
	}
	_, err = NewRegistry(TableDescriptor{Name: "a", DependsOn: []string{"missing"}})
	if !errors.Is(err, ErrUnknownTable) {
		t.Fatalf("expected ErrUnknownTable, got %v", err)
	}
}

func TestRegistrySubsetAndCredentials(t *testing.T) {
	reg := DefaultRegistry()
	sub, err := reg.Subset([]string{"votes", "users"})
	if err != nil {
		t.Fatalf("Subset: %v", err)
	}
	if len(sub) != 2 || sub[0].Name != "users" || sub[1].Name != "votes" {
		t.Fatalf("subset not in dependency order: %v", sub)
	}
	if _, err := reg.Subset([]string{"nope"}); !errors.Is(err, ErrUnknownTable) {
		t.Fatalf("expected ErrUnknownTable, got %v", err)
	}
	if got := reg.CredentialTables(); !slices.Equal(got, []string{"admins"}) {
		t.Fatalf("unexpected credential tables %v", got)
	}
}
