package treesync

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	gossh "golang.org/x/crypto/ssh"

	"github.com/acolita/sshsync/internal/adapters/billyfs"
	"github.com/acolita/sshsync/internal/ports"
	"github.com/acolita/sshsync/internal/ssh"
	"github.com/acolita/sshsync/internal/testing/mockssh"
)

// recordingRemote counts the calls the engine makes on the file channel.
type recordingRemote struct {
	ports.RemoteFS

	mu        sync.Mutex
	mkdirs    []string
	uploads   []string
	downloads []string
	// failDownload, when set, is returned by Download after a few bytes
	// have been written.
	failDownload error
}

func (r *recordingRemote) Mkdir(p string) error {
	r.mu.Lock()
	r.mkdirs = append(r.mkdirs, p)
	r.mu.Unlock()
	return r.RemoteFS.Mkdir(p)
}

func (r *recordingRemote) Upload(src io.Reader, remotePath string) (int64, error) {
	r.mu.Lock()
	r.uploads = append(r.uploads, remotePath)
	r.mu.Unlock()
	return r.RemoteFS.Upload(src, remotePath)
}

func (r *recordingRemote) Download(remotePath string, w io.Writer) (int64, error) {
	r.mu.Lock()
	r.downloads = append(r.downloads, remotePath)
	failure := r.failDownload
	r.mu.Unlock()
	if failure != nil {
		n, _ := io.WriteString(w, "par")
		return int64(n), failure
	}
	return r.RemoteFS.Download(remotePath, w)
}

// recordingRunner records every command sent to the remote shell.
type recordingRunner struct {
	ports.CommandRunner

	mu       sync.Mutex
	commands []string
}

func (r *recordingRunner) Run(command string) (bool, error) {
	r.mu.Lock()
	r.commands = append(r.commands, command)
	r.mu.Unlock()
	return r.CommandRunner.Run(command)
}

type harness struct {
	engine *Engine
	remote *recordingRemote
	runner *recordingRunner
	local  *billyfs.FS
	// root is a scratch directory served by the mock server's SFTP
	// subsystem. Remote paths in tests live under it.
	root string
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()

	server, err := mockssh.New()
	require.NoError(t, err)
	t.Cleanup(func() { server.Close() })

	client, err := ssh.NewClient(ssh.ClientOptions{
		Host:              server.Host(),
		Port:              server.Port(),
		User:              "test",
		AuthMethods:       []gossh.AuthMethod{ssh.PasswordAuth("test")},
		Timeout:           5 * time.Second,
		KeepaliveInterval: -1,
	})
	require.NoError(t, err)
	require.NoError(t, client.Connect())
	t.Cleanup(func() { client.Close() })

	sftpClient, err := client.SFTPClient()
	require.NoError(t, err)

	h := &harness{
		remote: &recordingRemote{RemoteFS: sftpClient},
		runner: &recordingRunner{CommandRunner: client},
		local:  billyfs.NewMemory(),
		root:   t.TempDir(),
	}
	h.engine, err = NewEngine(h.remote, h.runner, h.local, opts)
	require.NoError(t, err)
	return h
}

// remotePath returns a path under the scratch root.
func (h *harness) remotePath(elem ...string) string {
	return filepath.ToSlash(filepath.Join(append([]string{h.root}, elem...)...))
}

// writeRemote creates a file on the "remote" side directly on disk.
func (h *harness) writeRemote(t *testing.T, rel, content string) {
	t.Helper()
	p := filepath.Join(h.root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func (h *harness) readRemote(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(h.root, rel))
	require.NoError(t, err)
	return string(data)
}

func (h *harness) writeLocal(t *testing.T, p, content string) {
	t.Helper()
	require.NoError(t, h.local.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, h.local.WriteFile(p, []byte(content), 0o644))
}

func (h *harness) readLocal(t *testing.T, p string) string {
	t.Helper()
	data, err := h.local.ReadFile(p)
	require.NoError(t, err)
	return string(data)
}

// sampleTree is three files spread over two nested subdirectories.
var sampleTree = map[string]string{
	"a.txt":         "alpha",
	"sub/b.txt":     "bravo",
	"sub/deep/c.sh": "#!/bin/sh\necho charlie\n",
}
