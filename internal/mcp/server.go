// Package mcp exposes remote command execution and tree sync as MCP tools.
package mcp

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mark3labs/mcp-go/server"

	"github.com/acolita/sshsync/internal/config"
	"github.com/acolita/sshsync/internal/ports"
	"github.com/acolita/sshsync/internal/recovery"
	"github.com/acolita/sshsync/internal/remote"
	"github.com/acolita/sshsync/internal/security"
	"github.com/acolita/sshsync/internal/treesync"
)

// Server wraps the MCP server implementation.
type Server struct {
	mcpServer *server.MCPServer
	version   string

	mu              sync.RWMutex
	config          *config.Config
	configPath      string
	commandFilter   *security.CommandFilter
	authRateLimiter *security.AuthRateLimiter

	credentials *security.Credentials
	analyzer    *recovery.Analyzer
	clock       ports.Clock
	sessionOpts []remote.Option
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithConfigPath enables remote_host_add, which saves to path.
func WithConfigPath(path string) ServerOption {
	return func(s *Server) {
		s.configPath = path
	}
}

// WithCredentials sets the secret resolver used when connecting.
func WithCredentials(c *security.Credentials) ServerOption {
	return func(s *Server) {
		s.credentials = c
	}
}

// WithClock sets the clock used by the auth rate limiter.
func WithClock(c ports.Clock) ServerOption {
	return func(s *Server) {
		s.clock = c
	}
}

// WithSessionOptions passes opts to every remote session the server opens.
func WithSessionOptions(opts ...remote.Option) ServerOption {
	return func(s *Server) {
		s.sessionOpts = append(s.sessionOpts, opts...)
	}
}

// WithVersion sets the version reported to clients.
func WithVersion(v string) ServerOption {
	return func(s *Server) {
		s.version = v
	}
}

// NewServer creates a new MCP server with the given configuration.
func NewServer(cfg *config.Config, opts ...ServerOption) *Server {
	s := &Server{version: "dev", analyzer: recovery.NewAnalyzer()}
	for _, opt := range opts {
		opt(s)
	}
	if s.credentials == nil {
		// stdio carries the protocol, so there is nobody to prompt.
		s.credentials = security.NewCredentials(security.NewKeyringStore(true), nil)
	}

	s.mcpServer = server.NewMCPServer(
		"sshsync",
		s.version,
		server.WithToolCapabilities(false),
		server.WithLogging(),
	)

	s.applyConfig(cfg)
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport.
func (s *Server) Run() error {
	slog.Info("starting MCP server on stdio transport")
	return server.ServeStdio(s.mcpServer)
}

// UpdateConfig applies a new configuration at runtime. Auth failure
// counters are reset.
func (s *Server) UpdateConfig(cfg *config.Config) {
	slog.Debug("applying config update")
	s.applyConfig(cfg)
	slog.Info("configuration hot-reloaded", slog.Int("hosts", len(cfg.Hosts)))
}

func (s *Server) applyConfig(cfg *config.Config) {
	filter, err := security.NewCommandFilter(cfg.Security.CommandBlocklist, cfg.Security.CommandAllowlist)
	if err != nil {
		slog.Warn("invalid command filter, keeping previous",
			slog.String("error", err.Error()))
	}
	limiter := security.NewAuthRateLimiter(cfg.Security.MaxAuthFailures, cfg.Security.AuthLockoutDuration, s.clock)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = cfg
	if err == nil || s.commandFilter == nil {
		s.commandFilter = filter
	}
	s.authRateLimiter = limiter
}

func (s *Server) snapshot() (*config.Config, *security.CommandFilter, *security.AuthRateLimiter) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config, s.commandFilter, s.authRateLimiter
}

// withSession runs fn against a connected session to the named host,
// recording the outcome of authentication with the rate limiter.
func (s *Server) withSession(name string, fn func(*remote.Session, *config.Config) error) error {
	cfg, _, limiter := s.snapshot()

	host, err := cfg.FindHost(name)
	if err != nil {
		return err
	}
	if err := limiter.Allow(host.Host, host.User); err != nil {
		return err
	}

	params, err := remote.ParamsForHost(*host, cfg.Timeout, s.credentials)
	if err != nil {
		return err
	}

	connected := false
	err = remote.With(params, func(sess *remote.Session) error {
		connected = true
		limiter.RecordSuccess(host.Host, host.User)
		return fn(sess, cfg)
	}, s.sessionOpts...)

	var authErr *remote.AuthenticationError
	if !connected && errors.As(err, &authErr) {
		limiter.RecordFailure(host.Host, host.User)
	}
	return err
}

func engineOptions(cfg *config.Config) (treesync.Options, error) {
	strategy, err := treesync.ParseStrategy(cfg.Sync.MkdirStrategy)
	if err != nil {
		return treesync.Options{}, fmt.Errorf("sync config: %w", err)
	}
	return treesync.Options{Strategy: strategy, Exclude: cfg.Sync.Exclude}, nil
}
