// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

// Command votekeeper backs up, restores and syncs the One2Talk voting
// database. It is the same program as the module root, installable with
// go install .../cmd/votekeeper.
package main

import (
	"os"

	log "github.com/charmbracelet/log"
	"github.com/one2talk/votekeeper/ui/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		log.Errorf("votekeeper: %v", err)
		os.Exit(1)
	}
}
