// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

package remotecopy

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/one2talk/votekeeper/internal/exttool"
	"github.com/one2talk/votekeeper/internal/logging"
)

// SCP copies with the system scp client, so the user's ssh config, keys and
// password prompts apply unchanged.
type SCP struct {
	runner  exttool.Runner
	timeout time.Duration
}

// NewSCP returns an scp-backed Copier. A zero timeout means no limit.
func NewSCP(runner exttool.Runner, timeout time.Duration) *SCP {
	if runner == nil {
		runner = exttool.NewExecRunner()
	}
	return &SCP{runner: runner, timeout: timeout}
}

// Args builds the scp argument list for copying local to t.
func (c *SCP) Args(local string, t Target) []string {
	var args []string
	if t.Port != 0 && t.Port != DefaultPort {
		args = append(args, "-P", strconv.Itoa(t.Port))
	}
	return append(args, local, t.String())
}

// Copy implements Copier.
func (c *SCP) Copy(ctx context.Context, local string, t Target) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if _, err := checkLocal(local); err != nil {
		return err
	}
	if _, err := c.runner.LookPath("scp"); err != nil {
		return err
	}
	logging.Infof("copy: scp %s -> %s", local, t)
	if _, err := c.runner.Run(ctx, "scp", c.Args(local, t), exttool.Options{Timeout: c.timeout}); err != nil {
		return fmt.Errorf("scp to %s: %w", t.Host, err)
	}
	return nil
}
