// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

// Command-line entrypoint for Votekeeper.
//
// Usage:
//
//	go run . [flags]
//	./votekeeper [flags]
//
// Without a subcommand the interactive menu starts. See --help for options.
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
