// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

package remotecopy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/one2talk/votekeeper/internal/logging"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
	"golang.org/x/term"
)

// ErrNoAuth is returned when neither an agent nor a password prompt is available.
var ErrNoAuth = errors.New("no ssh authentication method available")

// PasswordPrompt asks for the password of user@host.
type PasswordPrompt func(user, host string) (string, error)

// SFTP copies over an in-process SSH connection. Host keys are checked
// against the user's known_hosts file unless another callback is given.
type SFTP struct {
	hostKeys ssh.HostKeyCallback
	auth     []ssh.AuthMethod
	prompt   PasswordPrompt
	timeout  time.Duration
	dial     func(network, addr string, cfg *ssh.ClientConfig) (*ssh.Client, error)
}

// SFTPOption customises an SFTP copier.
type SFTPOption func(*SFTP)

// WithHostKeyCallback replaces known_hosts verification.
func WithHostKeyCallback(cb ssh.HostKeyCallback) SFTPOption {
	return func(s *SFTP) { s.hostKeys = cb }
}

// WithAuth adds authentication methods tried before the agent.
func WithAuth(methods ...ssh.AuthMethod) SFTPOption {
	return func(s *SFTP) { s.auth = append(s.auth, methods...) }
}

// WithPasswordPrompt sets the prompt used when key authentication fails.
func WithPasswordPrompt(p PasswordPrompt) SFTPOption {
	return func(s *SFTP) { s.prompt = p }
}

// WithDialTimeout bounds the TCP connect and SSH handshake.
func WithDialTimeout(d time.Duration) SFTPOption {
	return func(s *SFTP) { s.timeout = d }
}

// NewSFTP builds an SFTP copier. Without WithHostKeyCallback it loads
// ~/.ssh/known_hosts and fails if that file is missing. The running SSH agent
// is used when present; an interactive terminal adds a password prompt.
func NewSFTP(opts ...SFTPOption) (*SFTP, error) {
	s := &SFTP{timeout: 10 * time.Second, dial: ssh.Dial}
	if term.IsTerminal(int(os.Stdin.Fd())) {
		s.prompt = TerminalPrompt
	}
	for _, o := range opts {
		o(s)
	}
	if s.hostKeys == nil {
		cb, err := defaultKnownHosts()
		if err != nil {
			return nil, err
		}
		s.hostKeys = cb
	}
	if a := getSSHAgent(); a != nil {
		s.auth = append(s.auth, ssh.PublicKeysCallback(a.Signers))
	}
	if len(s.auth) == 0 && s.prompt == nil {
		return nil, ErrNoAuth
	}
	return s, nil
}

func defaultKnownHosts() (ssh.HostKeyCallback, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("locate known_hosts: %w", err)
	}
	p := filepath.Join(home, ".ssh", "known_hosts")
	cb, err := knownhosts.New(p)
	if err != nil {
		return nil, fmt.Errorf("load %s (connect once with ssh to record the host key): %w", p, err)
	}
	return cb, nil
}

// TerminalPrompt reads a password from the controlling terminal without echo.
func TerminalPrompt(user, host string) (string, error) {
	fmt.Fprintf(os.Stderr, "%s@%s's password: ", user, host)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (s *SFTP) clientConfig(t Target) *ssh.ClientConfig {
	auth := append([]ssh.AuthMethod(nil), s.auth...)
	if s.prompt != nil {
		auth = append(auth, ssh.PasswordCallback(func() (string, error) { return s.prompt(t.User, t.Host) }))
	}
	return &ssh.ClientConfig{
		User:            t.User,
		Auth:            auth,
		HostKeyCallback: s.hostKeys,
		Timeout:         s.timeout,
	}
}

// Copy implements Copier.
func (s *SFTP) Copy(ctx context.Context, local string, t Target) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if _, err := checkLocal(local); err != nil {
		return err
	}
	client, err := s.dial("tcp", t.Addr(), s.clientConfig(t))
	if err != nil {
		return fmt.Errorf("connect to %s: %w", t.Addr(), err)
	}
	defer func() { _ = client.Close() }()

	sc, err := sftp.NewClient(client)
	if err != nil {
		return fmt.Errorf("failed to create sftp client: %w", err)
	}
	defer func() { _ = sc.Close() }()

	dst, err := Upload(ctx, sc, local, t.RemotePath())
	if err != nil {
		return err
	}
	logging.Infof("copy: uploaded %s to %s:%s", local, t.Host, dst)
	return nil
}

// Upload writes local to dest on the server through a temporary name and
// returns the final remote path. dest is a directory when it ends in a slash
// or already exists as one; "~/" prefixes are resolved against the login
// directory.
func Upload(ctx context.Context, sc *sftp.Client, local, dest string) (string, error) {
	f, err := os.Open(local)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	dst, err := resolveDest(sc, dest, filepath.Base(local))
	if err != nil {
		return "", err
	}
	if dir := path.Dir(dst); dir != "." && dir != "/" {
		if err := sc.MkdirAll(dir); err != nil {
			return "", fmt.Errorf("create remote directory %s: %w", dir, err)
		}
	}

	tmp := dst + ".partial"
	w, err := sc.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", tmp, err)
	}
	_, err = io.Copy(struct{ io.Writer }{w}, &ctxReader{ctx: ctx, r: f})
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = sc.Remove(tmp)
		return "", fmt.Errorf("upload %s: %w", dst, err)
	}
	if err := sc.PosixRename(tmp, dst); err != nil {
		_ = sc.Remove(dst)
		if err := sc.Rename(tmp, dst); err != nil {
			_ = sc.Remove(tmp)
			return "", fmt.Errorf("move %s into place: %w", dst, err)
		}
	}
	return dst, nil
}

func resolveDest(sc *sftp.Client, dest, base string) (string, error) {
	switch {
	case dest == "" || dest == "~" || dest == "~/":
		return base, nil
	case strings.HasPrefix(dest, "~/"):
		dest = strings.TrimPrefix(dest, "~/")
	}
	if strings.HasSuffix(dest, "/") {
		return path.Join(dest, base), nil
	}
	if st, err := sc.Stat(dest); err == nil && st.IsDir() {
		return path.Join(dest, base), nil
	}
	return dest, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
