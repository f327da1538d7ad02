// Package remote manages a session with one remote host: an SSH command
// channel and an SFTP file channel opened together and closed together.
package remote

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/acolita/sshsync/internal/adapters/realfs"
	"github.com/acolita/sshsync/internal/ports"
	"github.com/acolita/sshsync/internal/sftp"
	"github.com/acolita/sshsync/internal/ssh"
	"github.com/acolita/sshsync/internal/treesync"
)

// Params identifies the host and carries the credentials for a Session.
type Params struct {
	Host          string
	Port          int
	User          string
	Password      string
	KeyPath       string
	KeyPassphrase string
	UseAgent      bool

	KnownHostsPath        string
	InsecureIgnoreHostKey bool

	// Timeout bounds the TCP connect and SSH handshake.
	Timeout time.Duration
	// KeepaliveInterval is passed to the SSH client; negative disables.
	KeepaliveInterval time.Duration
}

// Option customizes a Session.
type Option func(*Session)

// WithDialer replaces the network dialer.
func WithDialer(d ports.SSHDialer) Option {
	return func(s *Session) { s.dialer = d }
}

// WithClock replaces the clock driving keepalives.
func WithClock(c ports.Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithLocalFS replaces the local filesystem used by Engine.
func WithLocalFS(fs ports.FileSystem) Option {
	return func(s *Session) { s.local = fs }
}

// Session is a connection to one remote host. Both channels are nil until
// Connect succeeds and nil again after Disconnect.
type Session struct {
	params Params
	dialer ports.SSHDialer
	clock  ports.Clock
	local  ports.FileSystem

	mu     sync.Mutex
	client *ssh.Client
	files  *sftp.Client
}

// New returns an unconnected Session. It performs no I/O.
func New(params Params, opts ...Option) *Session {
	if params.Port == 0 {
		params.Port = ssh.DefaultPort
	}
	if params.Timeout == 0 {
		params.Timeout = 5 * time.Second
	}
	s := &Session{params: params}
	for _, opt := range opts {
		opt(s)
	}
	if s.local == nil {
		s.local = realfs.New()
	}
	return s
}

// Params returns the session's connection parameters.
func (s *Session) Params() Params {
	return s.params
}

// Connect authenticates and opens the command and file channels. Calling
// it on a connected session is a no-op. On failure the error is logged and
// returned as *AuthenticationError or *ConnectionError, and the session
// stays unconnected.
func (s *Session) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		return nil
	}

	client, files, err := s.open()
	if err != nil {
		slog.Error("connect failed",
			slog.String("host", s.params.Host),
			slog.Int("port", s.params.Port),
			slog.String("user", s.params.User),
			slog.String("error", err.Error()))
		return err
	}

	s.client = client
	s.files = files
	slog.Info("connected",
		slog.String("host", s.params.Host),
		slog.Int("port", s.params.Port),
		slog.String("user", s.params.User))
	return nil
}

func (s *Session) open() (*ssh.Client, *sftp.Client, error) {
	p := s.params
	connErr := func(err error) error {
		return &ConnectionError{Host: p.Host, Port: p.Port, Err: err}
	}
	authErr := func(err error) error {
		return &AuthenticationError{User: p.User, Host: p.Host, Err: err}
	}

	methods, err := ssh.BuildAuthMethods(ssh.AuthConfig{
		KeyPath:       p.KeyPath,
		KeyPassphrase: p.KeyPassphrase,
		UseAgent:      p.UseAgent,
		Password:      p.Password,
		Host:          p.Host,
	})
	if err != nil {
		return nil, nil, authErr(err)
	}

	hostKey, err := ssh.BuildHostKeyCallback(p.KnownHostsPath, p.InsecureIgnoreHostKey)
	if err != nil {
		return nil, nil, connErr(err)
	}

	client, err := ssh.NewClient(ssh.ClientOptions{
		Host:              p.Host,
		Port:              p.Port,
		User:              p.User,
		AuthMethods:       methods,
		HostKeyCallback:   hostKey,
		Timeout:           p.Timeout,
		KeepaliveInterval: p.KeepaliveInterval,
		Clock:             s.clock,
		Dialer:            s.dialer,
	})
	if err != nil {
		return nil, nil, connErr(err)
	}

	if err := client.Connect(); err != nil {
		if ssh.IsAuthError(err) {
			return nil, nil, authErr(err)
		}
		return nil, nil, connErr(err)
	}

	files, err := client.SFTPClient()
	if err == nil {
		err = files.Open()
	}
	if err != nil {
		client.Close()
		return nil, nil, connErr(fmt.Errorf("open sftp: %w", err))
	}

	return client, files, nil
}

// Disconnect closes the file channel, then the command channel. It is
// safe to call on an unconnected or already disconnected session.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}

	err := s.client.Close()
	s.client = nil
	s.files = nil
	if err != nil {
		slog.Debug("disconnect", slog.String("host", s.params.Host), slog.String("error", err.Error()))
		return fmt.Errorf("disconnect %s: %w", s.params.Host, err)
	}
	slog.Debug("disconnected", slog.String("host", s.params.Host))
	return nil
}

// IsConnected reports whether both channels are open.
func (s *Session) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client != nil && s.files != nil
}

func (s *Session) handles() (*ssh.Client, *sftp.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil || s.files == nil {
		return nil, nil, ErrNotConnected
	}
	return s.client, s.files, nil
}

// Files returns the SFTP channel.
func (s *Session) Files() (*sftp.Client, error) {
	_, files, err := s.handles()
	return files, err
}

// Engine returns a transfer engine bound to this session's channels and
// the session's local filesystem.
func (s *Session) Engine(opts treesync.Options) (*treesync.Engine, error) {
	client, files, err := s.handles()
	if err != nil {
		return nil, err
	}
	return treesync.NewEngine(files, client, s.local, opts)
}

// With connects a Session for params, runs fn with it and disconnects on
// every exit path, including a panic in fn.
func With(params Params, fn func(*Session) error, opts ...Option) (err error) {
	s := New(params, opts...)
	if err := s.Connect(); err != nil {
		return err
	}
	defer func() {
		if closeErr := s.Disconnect(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return fn(s)
}
