// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

// Package remotecopy ships backup files to another machine over SSH, either
// through the scp binary or an in-process SFTP session.
package remotecopy // import "github.com/one2talk/votekeeper/internal/remotecopy"

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
)

// DefaultPath is the remote directory used when a Target has no Path.
const DefaultPath = "~/backups/"

// DefaultPort is the SSH port used when a Target has no Port.
const DefaultPort = 22

var (
	// ErrInvalidTarget is returned when host or user are missing or malformed.
	ErrInvalidTarget = errors.New("invalid remote target")
	// ErrNotAFile is returned when the local path is not a regular file.
	ErrNotAFile = errors.New("not a regular file")
)

// Target names the destination of a copy.
type Target struct {
	Host string
	User string
	// Path is a remote directory (trailing slash) or file name.
	Path string
	Port int
}

// Validate checks that host and user are usable on a command line.
func (t Target) Validate() error {
	if t.Host == "" || t.User == "" {
		return fmt.Errorf("%w: host and user are required", ErrInvalidTarget)
	}
	for _, s := range []string{t.Host, t.User, t.Path} {
		if strings.ContainsAny(s, " \t\r\n\"'") {
			return fmt.Errorf("%w: %q contains whitespace or quotes", ErrInvalidTarget, s)
		}
	}
	if strings.ContainsAny(t.User, "@:") || strings.Contains(t.Host, "@") {
		return fmt.Errorf("%w: %s@%s", ErrInvalidTarget, t.User, t.Host)
	}
	if t.Port < 0 || t.Port > 65535 {
		return fmt.Errorf("%w: port %d", ErrInvalidTarget, t.Port)
	}
	return nil
}

// RemotePath returns Path or DefaultPath.
func (t Target) RemotePath() string {
	if t.Path == "" {
		return DefaultPath
	}
	return t.Path
}

// Addr is host:port for dialing.
func (t Target) Addr() string {
	port := t.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(t.Host, strconv.Itoa(port))
}

// String renders the target the way scp expects it.
func (t Target) String() string {
	return t.User + "@" + t.Host + ":" + t.RemotePath()
}

// Copier transfers one local file to a Target.
type Copier interface {
	Copy(ctx context.Context, local string, t Target) error
}

func checkLocal(local string) (os.FileInfo, error) {
	st, err := os.Stat(local)
	if err != nil {
		return nil, err
	}
	if !st.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", ErrNotAFile, local)
	}
	return st, nil
}
