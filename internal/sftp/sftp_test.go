package sftp

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	pkgsftp "github.com/pkg/sftp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"

	"github.com/acolita/sshsync/internal/testing/mockssh"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	server, err := mockssh.New()
	require.NoError(t, err)
	t.Cleanup(func() { server.Close() })

	conn, err := ssh.Dial("tcp", server.Addr(), &ssh.ClientConfig{
		User:            "test",
		Auth:            []ssh.AuthMethod{ssh.Password("test")},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	c := NewClient(conn)
	t.Cleanup(func() { c.Close() })
	return c
}

// --- lifecycle without a connection ---

func TestNewClient_NilSSHConn(t *testing.T) {
	client := NewClient(nil)
	assert.Nil(t, client.sftpClient, "sftpClient should be nil (lazy initialization)")
	assert.False(t, client.IsConnected())

	_, err := client.Stat("/test")
	assert.EqualError(t, err, "ssh connection is nil")
}

func TestClose_Idempotent(t *testing.T) {
	client := NewClient(nil)

	assert.NoError(t, client.Close(), "first Close")
	assert.NoError(t, client.Close(), "second Close")
	assert.False(t, client.IsConnected())
}

func TestAllMethods_FailOnClosedClient(t *testing.T) {
	client := NewClient(nil)
	_ = client.Close()

	checks := map[string]func() error{
		"Stat":     func() error { _, err := client.Stat("/p"); return err },
		"ReadDir":  func() error { _, err := client.ReadDir("/p"); return err },
		"Mkdir":    func() error { return client.Mkdir("/p") },
		"Chmod":    func() error { return client.Chmod("/p", 0o644) },
		"Chdir":    func() error { return client.Chdir("/p") },
		"Getwd":    func() error { _, err := client.Getwd(); return err },
		"Download": func() error { _, err := client.Download("/p", &bytes.Buffer{}); return err },
		"Upload":   func() error { _, err := client.Upload(strings.NewReader("x"), "/p"); return err },
		"Open":     client.Open,
	}
	for name, fn := range checks {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, fn(), ErrClosed)
		})
	}
}

func TestClose_ConcurrentSafety(t *testing.T) {
	client := NewClient(nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client.Close()
			client.IsConnected()
		}()
	}
	wg.Wait()
}

// --- IsNotExist ---

func TestIsNotExist(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"os.ErrNotExist", os.ErrNotExist, true},
		{"wrapped", &os.PathError{Op: "stat", Path: "/x", Err: os.ErrNotExist}, true},
		{"status no such file", &pkgsftp.StatusError{Code: fxNoSuchFile}, true},
		{"status permission denied", &pkgsftp.StatusError{Code: 3}, false},
		{"other", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNotExist(tt.err))
		})
	}
}

// --- against the in-process server ---

func TestClient_UploadDownload(t *testing.T) {
	c := newTestClient(t)
	dir := t.TempDir()
	remote := filepath.Join(dir, "blob.bin")

	payload := bytes.Repeat([]byte{0xde, 0xad, 0xbe, 0xef}, 50000)
	n, err := c.Upload(bytes.NewReader(payload), remote)
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)

	var buf bytes.Buffer
	_, err = c.Download(remote, &buf)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(buf.Bytes(), payload), "downloaded content differs from upload")
	assert.True(t, c.IsConnected(), "client should report connected after use")
}

func TestClient_WriteFileSetsMode(t *testing.T) {
	c := newTestClient(t)
	remote := filepath.Join(t.TempDir(), "run.sh")

	require.NoError(t, c.WriteFile(remote, []byte("#!/bin/sh\n"), 0o755))

	info, err := os.Stat(remote)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	data, err := os.ReadFile(remote)
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/sh\n", string(data))
}

func TestClient_ChdirResolvesRelative(t *testing.T) {
	c := newTestClient(t)
	dir := t.TempDir()

	require.NoError(t, c.Chdir(dir))
	wd, err := c.Getwd()
	require.NoError(t, err)
	real, _ := filepath.EvalSymlinks(dir)
	assert.Contains(t, []string{dir, real}, wd)

	require.NoError(t, c.Mkdir("child"), "Mkdir relative")
	assert.DirExists(t, filepath.Join(dir, "child"))

	require.NoError(t, c.Chdir("child"), "Chdir relative")
	wd, _ = c.Getwd()
	assert.Equal(t, "child", filepath.Base(wd))
}

func TestClient_ChdirErrors(t *testing.T) {
	c := newTestClient(t)
	dir := t.TempDir()

	err := c.Chdir(filepath.Join(dir, "missing"))
	assert.True(t, IsNotExist(err), "Chdir missing: got %v", err)

	file := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(file, nil, 0o644))
	assert.Error(t, c.Chdir(file), "Chdir onto a file should fail")
}

func TestClient_StatMissing(t *testing.T) {
	c := newTestClient(t)

	_, err := c.Stat(filepath.Join(t.TempDir(), "nope"))
	assert.True(t, IsNotExist(err), "Stat missing: got %v", err)
}

func TestClient_ReadDir(t *testing.T) {
	c := newTestClient(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), nil, 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "b"), 0o755))

	infos, err := c.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, infos, 2)
}
