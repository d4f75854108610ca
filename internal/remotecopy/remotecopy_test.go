// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

package remotecopy

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/one2talk/votekeeper/internal/exttool"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

func TestTargetValidate(t *testing.T) {
	good := []Target{
		{Host: "backup.example.com", User: "deploy"},
		{Host: "10.0.0.5", User: "root", Path: "/srv/backups/", Port: 2222},
	}
	for _, tg := range good {
		if err := tg.Validate(); err != nil {
			t.Fatalf("Validate(%+v): %v", tg, err)
		}
	}
	bad := []Target{
		{Host: "", User: "deploy"},
		{Host: "h", User: ""},
		{Host: "h", User: "a b"},
		{Host: "h", User: "u", Path: "/tmp/x\"; rm -rf /"},
		{Host: "u@h", User: "u"},
		{Host: "h", User: "u", Port: 70000},
	}
	for _, tg := range bad {
		if err := tg.Validate(); !errors.Is(err, ErrInvalidTarget) {
			t.Fatalf("Validate(%+v) = %v, want ErrInvalidTarget", tg, err)
		}
	}
}

func TestTargetDefaults(t *testing.T) {
	tg := Target{Host: "h", User: "u"}
	if got := tg.String(); got != "u@h:~/backups/" {
		t.Fatalf("String = %q", got)
	}
	if got := tg.Addr(); got != "h:22" {
		t.Fatalf("Addr = %q", got)
	}
}

func writeLocal(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "backup_20260101_120000.zip")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return p
}

func TestSCPCopy(t *testing.T) {
	local := writeLocal(t, "zip")
	fr := &exttool.FakeRunner{}
	c := NewSCP(fr, 0)
	if err := c.Copy(context.Background(), local, Target{Host: "h", User: "u", Port: 2222}); err != nil {
		t.Fatalf("Copy: %v", err)
	}
	calls := fr.Calls()
	if len(calls) != 1 || calls[0].Name != "scp" {
		t.Fatalf("calls = %+v", calls)
	}
	want := []string{"-P", "2222", local, "u@h:~/backups/"}
	if !slices.Equal(calls[0].Args, want) {
		t.Fatalf("args = %v, want %v", calls[0].Args, want)
	}
}

func TestSCPFailures(t *testing.T) {
	local := writeLocal(t, "zip")
	missing := NewSCP(&exttool.FakeRunner{Missing: map[string]bool{"scp": true}}, 0)
	if err := missing.Copy(context.Background(), local, Target{Host: "h", User: "u"}); !errors.Is(err, exttool.ErrNotFound) {
		t.Fatalf("missing scp: %v", err)
	}

	failing := NewSCP(&exttool.FakeRunner{Handler: func(exttool.Call) (exttool.Result, error) {
		return exttool.Result{ExitCode: 1}, exttool.ErrExit
	}}, 0)
	if err := failing.Copy(context.Background(), local, Target{Host: "h", User: "u"}); !errors.Is(err, exttool.ErrExit) {
		t.Fatalf("failing scp: %v", err)
	}

	if err := failing.Copy(context.Background(), t.TempDir(), Target{Host: "h", User: "u"}); !errors.Is(err, ErrNotAFile) {
		t.Fatalf("directory source: %v", err)
	}
}

// startPipe connects an sftp client to an in-process server over a
// synchronous in-memory connection. shutdown closes both sides and waits for
// the server to stop.
func startPipe(t *testing.T) (client *sftp.Client, shutdown func()) {
	t.Helper()
	clientConn, serverConn := net.Pipe()
	srv, err := sftp.NewServer(serverConn)
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	served := make(chan struct{})
	go func() {
		defer close(served)
		_ = srv.Serve()
	}()
	client, err = sftp.NewClientPipe(clientConn, clientConn)
	if err != nil {
		_ = srv.Close()
		t.Fatalf("client: %v", err)
	}
	return client, func() {
		_ = srv.Close()
		_ = client.Close()
		<-served
	}
}

func pipeClient(t *testing.T) *sftp.Client {
	t.Helper()
	client, shutdown := startPipe(t)
	t.Cleanup(shutdown)
	return client
}

func TestPipeShutdownDoesNotBlock(t *testing.T) {
	client, shutdown := startPipe(t)
	if _, err := client.Getwd(); err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		shutdown()
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("closing the sftp client and server blocked")
	}
}

func TestUploadIntoDirectory(t *testing.T) {
	sc := pipeClient(t)
	local := writeLocal(t, "archive bytes")
	remote := filepath.ToSlash(filepath.Join(t.TempDir(), "nested", "backups")) + "/"

	dst, err := Upload(context.Background(), sc, local, remote)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if dst != remote+"backup_20260101_120000.zip" {
		t.Fatalf("dst = %q", dst)
	}
	b, err := os.ReadFile(filepath.FromSlash(dst))
	if err != nil || string(b) != "archive bytes" {
		t.Fatalf("remote content = %q, %v", b, err)
	}
	if _, err := os.Stat(filepath.FromSlash(dst) + ".partial"); !os.IsNotExist(err) {
		t.Fatalf("partial file left behind: %v", err)
	}
}

func TestUploadOverwritesFile(t *testing.T) {
	sc := pipeClient(t)
	dir := t.TempDir()
	target := filepath.Join(dir, "latest.zip")
	if err := os.WriteFile(target, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	local := writeLocal(t, "new")

	dst, err := Upload(context.Background(), sc, local, filepath.ToSlash(target))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if dst != filepath.ToSlash(target) {
		t.Fatalf("dst = %q", dst)
	}
	if b, _ := os.ReadFile(target); string(b) != "new" {
		t.Fatalf("content = %q", b)
	}

	// An existing directory without a trailing slash still receives the file.
	dst, err = Upload(context.Background(), sc, local, filepath.ToSlash(dir))
	if err != nil {
		t.Fatalf("Upload into dir: %v", err)
	}
	if filepath.Base(dst) != "backup_20260101_120000.zip" {
		t.Fatalf("dst = %q", dst)
	}
}

func TestUploadCancelled(t *testing.T) {
	sc := pipeClient(t)
	local := writeLocal(t, "data")
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Upload(ctx, sc, local, filepath.ToSlash(dir)+"/"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("leftovers: %v", entries)
	}
}

func TestSFTPCopyDialFailure(t *testing.T) {
	dialErr := errors.New("connection refused")
	s := &SFTP{
		hostKeys: ssh.InsecureIgnoreHostKey(),
		auth:     []ssh.AuthMethod{ssh.Password("x")},
		dial: func(network, addr string, cfg *ssh.ClientConfig) (*ssh.Client, error) {
			if addr != "h:2200" || cfg.User != "u" {
				t.Fatalf("dial %s as %s", addr, cfg.User)
			}
			return nil, dialErr
		},
	}
	err := s.Copy(context.Background(), writeLocal(t, "x"), Target{Host: "h", User: "u", Port: 2200})
	if !errors.Is(err, dialErr) {
		t.Fatalf("err = %v", err)
	}
}

func TestNewSFTPWithExplicitAuth(t *testing.T) {
	s, err := NewSFTP(WithHostKeyCallback(ssh.InsecureIgnoreHostKey()), WithAuth(ssh.Password("pw")))
	if err != nil {
		t.Fatalf("NewSFTP: %v", err)
	}
	cfg := s.clientConfig(Target{Host: "h", User: "u"})
	if cfg.User != "u" || len(cfg.Auth) == 0 || cfg.HostKeyCallback == nil {
		t.Fatalf("config = %+v", cfg)
	}
}
