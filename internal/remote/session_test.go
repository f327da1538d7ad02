package remote

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acolita/sshsync/internal/adapters/billyfs"
	"github.com/acolita/sshsync/internal/testing/fakes/fakesshdialer"
	"github.com/acolita/sshsync/internal/testing/mockssh"
	"github.com/acolita/sshsync/internal/treesync"
)

func newServer(t *testing.T, opts ...mockssh.Option) *mockssh.Server {
	t.Helper()
	server, err := mockssh.New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { server.Close() })
	return server
}

func testParams(server *mockssh.Server) Params {
	return Params{
		Host:                  server.Host(),
		Port:                  server.Port(),
		User:                  "test",
		Password:              "test",
		InsecureIgnoreHostKey: true,
		Timeout:               5 * time.Second,
		KeepaliveInterval:     -1,
	}
}

func connected(t *testing.T, server *mockssh.Server, opts ...Option) *Session {
	t.Helper()
	s := New(testParams(server), opts...)
	require.NoError(t, s.Connect())
	t.Cleanup(func() { s.Disconnect() })
	return s
}

func TestNew_NoIO(t *testing.T) {
	dialer := fakesshdialer.New()
	s := New(Params{Host: "example.com", User: "u", Password: "p"}, WithDialer(dialer))

	assert.Equal(t, 22, s.Params().Port)
	assert.False(t, s.IsConnected())
	assert.Empty(t, dialer.Calls())
}

func TestConnect(t *testing.T) {
	server := newServer(t)
	s := connected(t, server)

	assert.True(t, s.IsConnected())
	require.NoError(t, s.Connect(), "second Connect is a no-op")
	assert.Equal(t, 1, server.SFTPSessions())
}

func TestConnect_AuthenticationError(t *testing.T) {
	server := newServer(t)
	params := testParams(server)
	params.Password = "wrong"

	s := New(params)
	err := s.Connect()

	var authErr *AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "test", authErr.User)
	assert.Contains(t, err.Error(), "authentication failed for test@")
	assert.False(t, s.IsConnected())

	_, err = s.Execute("true")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestConnect_NoCredentials(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SSH_AUTH_SOCK", "")

	s := New(Params{Host: "h", User: "u", InsecureIgnoreHostKey: true}, WithDialer(fakesshdialer.New()))
	var authErr *AuthenticationError
	require.ErrorAs(t, s.Connect(), &authErr)
}

func TestConnect_ConnectionError(t *testing.T) {
	dialer := fakesshdialer.New()
	dialer.SetError(errors.New("connection refused"))

	s := New(Params{Host: "db.internal", Port: 2200, User: "u", Password: "p", InsecureIgnoreHostKey: true}, WithDialer(dialer))
	err := s.Connect()

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Contains(t, err.Error(), "db.internal:2200")
	assert.Contains(t, err.Error(), "connection refused")
	assert.False(t, s.IsConnected())
}

func TestConnect_NoSFTPSubsystem(t *testing.T) {
	server := newServer(t, mockssh.WithoutSFTP())

	s := New(testParams(server))
	err := s.Connect()

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Contains(t, err.Error(), "sftp")
	assert.False(t, s.IsConnected())
}

func TestDisconnect_Idempotent(t *testing.T) {
	server := newServer(t)
	s := connected(t, server)

	require.NoError(t, s.Disconnect())
	assert.False(t, s.IsConnected())
	require.NoError(t, s.Disconnect())
	require.NoError(t, New(Params{Host: "h"}).Disconnect())

	_, err := s.Files()
	assert.ErrorIs(t, err, ErrNotConnected)
	_, err = s.Engine(treesync.Options{})
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestWith_DisconnectsOnEveryPath(t *testing.T) {
	server := newServer(t)

	t.Run("return", func(t *testing.T) {
		var captured *Session
		err := With(testParams(server), func(s *Session) error {
			captured = s
			assert.True(t, s.IsConnected())
			return nil
		})
		require.NoError(t, err)
		assert.False(t, captured.IsConnected())
	})

	t.Run("error", func(t *testing.T) {
		var captured *Session
		boom := errors.New("boom")
		err := With(testParams(server), func(s *Session) error {
			captured = s
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.False(t, captured.IsConnected())
	})

	t.Run("panic", func(t *testing.T) {
		var captured *Session
		func() {
			defer func() {
				assert.Equal(t, "mid-transfer", recover())
			}()
			_ = With(testParams(server), func(s *Session) error {
				captured = s
				panic("mid-transfer")
			})
		}()
		require.NotNil(t, captured)
		assert.False(t, captured.IsConnected())
	})

	t.Run("connect failure skips fn", func(t *testing.T) {
		params := testParams(server)
		params.Password = "wrong"
		called := false
		err := With(params, func(*Session) error {
			called = true
			return nil
		})
		var authErr *AuthenticationError
		assert.ErrorAs(t, err, &authErr)
		assert.False(t, called)
	})
}

func TestEngine_UsesSessionChannels(t *testing.T) {
	server := newServer(t)
	local := billyfs.NewMemory()
	s := connected(t, server, WithLocalFS(local))

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "motd"), []byte("welcome"), 0o644))

	engine, err := s.Engine(treesync.Options{})
	require.NoError(t, err)

	_, err = engine.FetchOne(filepath.ToSlash(filepath.Join(root, "motd")), "/etc/motd")
	require.NoError(t, err)
	data, err := local.ReadFile("/etc/motd")
	require.NoError(t, err)
	assert.Equal(t, "welcome", string(data))

	_, err = engine.PushOne("/etc/motd", filepath.ToSlash(filepath.Join(root, "nested", "motd")))
	require.NoError(t, err)
	got, err := os.ReadFile(filepath.Join(root, "nested", "motd"))
	require.NoError(t, err)
	assert.Equal(t, "welcome", strings.TrimSpace(string(got)))
}
