package mockssh

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkg/sftp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

func dial(t *testing.T, server *Server, user, pass string) *ssh.Client {
	t.Helper()
	client, err := ssh.Dial("tcp", server.Addr(), &ssh.ClientConfig{
		User:            user,
		Auth:            []ssh.AuthMethod{ssh.Password(pass)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestServer_StartStop(t *testing.T) {
	server, err := New()
	require.NoError(t, err)
	defer server.Close()

	assert.NotEmpty(t, server.Addr())
	assert.Equal(t, "127.0.0.1", server.Host())
	assert.NotZero(t, server.Port())
}

func TestServer_Authentication(t *testing.T) {
	server, err := New(WithUser("testuser", "testpass"))
	require.NoError(t, err)
	defer server.Close()

	dial(t, server, "testuser", "testpass")

	_, err = ssh.Dial("tcp", server.Addr(), &ssh.ClientConfig{
		User:            "testuser",
		Auth:            []ssh.AuthMethod{ssh.Password("wrongpass")},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         5 * time.Second,
	})
	assert.Error(t, err, "Dial() with wrong password should fail")
}

func TestServer_ExecSeparatesStreams(t *testing.T) {
	server, err := New()
	require.NoError(t, err)
	defer server.Close()

	client := dial(t, server, "test", "test")
	sess, err := client.NewSession()
	require.NoError(t, err)
	defer sess.Close()

	var stdout, stderr bytes.Buffer
	sess.Stdout = &stdout
	sess.Stderr = &stderr

	err = sess.Run("echo out; echo err >&2; exit 3")

	var exitErr *ssh.ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.ExitStatus())
	assert.Equal(t, "out\n", stdout.String())
	assert.Equal(t, "err\n", stderr.String())
	assert.Equal(t, []string{"echo out; echo err >&2; exit 3"}, server.Execs())
}

func TestServer_SFTP(t *testing.T) {
	server, err := New()
	require.NoError(t, err)
	defer server.Close()

	client := dial(t, server, "test", "test")
	sc, err := sftp.NewClient(client)
	require.NoError(t, err)
	defer sc.Close()

	dir := t.TempDir()
	target := filepath.Join(dir, "hello.txt")

	f, err := sc.Create(target)
	require.NoError(t, err)
	_, err = f.Write([]byte("hi"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "hi", string(data))
	assert.Equal(t, 1, server.SFTPSessions())
}

func TestServer_WithoutSFTP(t *testing.T) {
	server, err := New(WithoutSFTP())
	require.NoError(t, err)
	defer server.Close()

	client := dial(t, server, "test", "test")
	_, err = sftp.NewClient(client)
	assert.Error(t, err, "expected sftp subsystem to be rejected")
}

func TestParseString(t *testing.T) {
	payload := ssh.Marshal(struct{ S string }{"sftp"})
	assert.Equal(t, "sftp", parseString(payload))
	assert.Empty(t, parseString([]byte{0, 0}), "short payload")
	assert.Empty(t, parseString([]byte{0, 0, 0, 9, 'a'}), "truncated payload")
}
