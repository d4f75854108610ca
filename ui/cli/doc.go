// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.
//
// Package cli implements the command-line interface for Votekeeper using Cobra.
// It loads configuration, opens the database through core.Services and
// provides one command per maintenance operation. Commands stay thin and
// delegate the work to core.
package cli
