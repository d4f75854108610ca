//go:build windows
// +build windows

// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

package remotecopy

import (
	"os"

	"github.com/Microsoft/go-winio"
	"github.com/davidmz/go-pageant"
	"golang.org/x/crypto/ssh/agent"
)

// getSSHAgent prefers a Pageant-compatible agent and falls back to the
// OpenSSH agent's named pipe.
func getSSHAgent() agent.Agent {
	if pageant.Available() {
		return pageant.New()
	}

	pipe := os.Getenv("SSH_AUTH_SOCK")
	if pipe == "" {
		pipe = `\\.\pipe\openssh-ssh-agent`
	}
	conn, err := winio.DialPipe(pipe, nil)
	if err == nil && conn != nil {
		return agent.NewClient(conn)
	}
	return nil
}
