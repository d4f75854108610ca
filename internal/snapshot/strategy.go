// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

package snapshot

// Strategy selects how Export captures the database. It is a closed set:
// Structured or NativeDump.
type Strategy interface {
	strategy()
	// Name is used in logs.
	Name() string
}

// Structured exports every table to portable records through the row codec.
// A failing table is recorded and skipped; the rest of the export continues.
type Structured struct {
	// Tables limits the export; nil means every registered table.
	Tables []string
	// ExcludeCredentials leaves out tables marked as holding credentials.
	ExcludeCredentials bool
}

// NativeDump runs the backend's own dump tool once for the whole database.
// Credential tables are always excluded; Exclude adds more. Any tool failure
// fails the export.
type NativeDump struct {
	Exclude []string
}

func (Structured) strategy() {}
func (NativeDump) strategy() {}

// Name implements Strategy.
func (Structured) Name() string { return "structured" }

// Name implements Strategy.
func (NativeDump) Name() string { return "native-dump" }
