// Package config loads the sshsync host inventory and sync settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"

	"github.com/acolita/sshsync/internal/ports"
)

// DefaultConfigPath returns $XDG_CONFIG_HOME/sshsync/config.yaml, falling
// back to ~/.config/sshsync/config.yaml.
func DefaultConfigPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "sshsync", "config.yaml")
}

// Config represents the top-level configuration.
type Config struct {
	Hosts    []HostConfig   `yaml:"hosts"`
	Sync     SyncConfig     `yaml:"sync"`
	Logging  LoggingConfig  `yaml:"logging"`
	Security SecurityConfig `yaml:"security"`
	Timeout  time.Duration  `yaml:"timeout"`
}

// HostConfig defines one remote host.
type HostConfig struct {
	Name                  string     `yaml:"name"`
	Host                  string     `yaml:"host"`
	Port                  int        `yaml:"port,omitempty"`
	User                  string     `yaml:"user"`
	Auth                  AuthConfig `yaml:"auth"`
	KnownHosts            string     `yaml:"known_hosts,omitempty"`
	InsecureIgnoreHostKey bool       `yaml:"insecure_ignore_host_key,omitempty"`
}

// AuthConfig defines authentication settings.
type AuthConfig struct {
	Type          string `yaml:"type"`                     // "password", "key" or "agent"
	Path          string `yaml:"path,omitempty"`           // path to key file
	PasswordEnv   string `yaml:"password_env,omitempty"`   // env var containing SSH password
	PassphraseEnv string `yaml:"passphrase_env,omitempty"` // env var containing key passphrase
	UseKeyring    bool   `yaml:"use_keyring,omitempty"`    // look the password up in the OS keyring
}

// SyncConfig defines transfer behavior.
type SyncConfig struct {
	MkdirStrategy string   `yaml:"mkdir_strategy"` // "command" or "walk"
	Exclude       []string `yaml:"exclude,omitempty"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level    string `yaml:"level"`    // "debug", "info", "warn", "error"
	Format   string `yaml:"format"`   // "console" or "json"
	Sanitize bool   `yaml:"sanitize"` // sanitize sensitive data from logs
}

// SecurityConfig guards the MCP tool surface.
type SecurityConfig struct {
	CommandBlocklist    []string      `yaml:"command_blocklist,omitempty"` // regex patterns
	CommandAllowlist    []string      `yaml:"command_allowlist,omitempty"` // regex patterns; empty allows all
	MaxAuthFailures     int           `yaml:"max_auth_failures"`
	AuthLockoutDuration time.Duration `yaml:"auth_lockout_duration"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Sync: SyncConfig{
			MkdirStrategy: "command",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "console",
			Sanitize: true,
		},
		Security: SecurityConfig{
			MaxAuthFailures:     3,
			AuthLockoutDuration: 5 * time.Minute,
		},
		Timeout: 5 * time.Second,
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. An optional FileSystem can be passed for testing; if omitted,
// the real OS is used.
func Load(path string, fsys ...ports.FileSystem) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	var (
		data []byte
		err  error
	)
	if len(fsys) > 0 && fsys[0] != nil {
		data, err = fsys[0].ReadFile(path)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to a YAML file.
// An optional FileSystem can be passed for testing; if omitted, the real OS is used.
func Save(cfg *Config, path string, fsys ...ports.FileSystem) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if len(fsys) > 0 && fsys[0] != nil {
		if err := fsys[0].MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
		return fsys[0].WriteFile(path, data, 0o600)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate checks the configuration and reports every problem found.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.Sync.MkdirStrategy) {
	case "", "command", "walk":
	default:
		errs = append(errs, fmt.Errorf("sync.mkdir_strategy: unknown value %q", c.Sync.MkdirStrategy))
	}
	for _, p := range c.Sync.Exclude {
		if !doublestar.ValidatePattern(p) {
			errs = append(errs, fmt.Errorf("sync.exclude: invalid pattern %q", p))
		}
	}

	switch strings.ToLower(c.Logging.Format) {
	case "", "console", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format: unknown value %q", c.Logging.Format))
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level: unknown value %q", c.Logging.Level))
	}

	for _, p := range append(append([]string(nil), c.Security.CommandBlocklist...), c.Security.CommandAllowlist...) {
		if _, err := regexp.Compile(p); err != nil {
			errs = append(errs, fmt.Errorf("security: invalid command pattern %q: %w", p, err))
		}
	}
	if c.Security.MaxAuthFailures < 0 {
		errs = append(errs, fmt.Errorf("security.max_auth_failures: must not be negative"))
	}

	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout: must not be negative"))
	}

	seen := make(map[string]bool, len(c.Hosts))
	for i, h := range c.Hosts {
		label := h.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i)
		}
		if h.Name == "" {
			errs = append(errs, fmt.Errorf("hosts[%d]: name is required", i))
		} else if seen[h.Name] {
			errs = append(errs, fmt.Errorf("hosts: duplicate name %q", h.Name))
		}
		seen[h.Name] = true

		if h.Host == "" {
			errs = append(errs, fmt.Errorf("host %s: host is required", label))
		}
		if h.User == "" {
			errs = append(errs, fmt.Errorf("host %s: user is required", label))
		}
		if h.Port < 0 || h.Port > 65535 {
			errs = append(errs, fmt.Errorf("host %s: port %d out of range", label, h.Port))
		}
		switch h.Auth.Type {
		case "", "password", "key", "agent":
		default:
			errs = append(errs, fmt.Errorf("host %s: unknown auth type %q", label, h.Auth.Type))
		}
		if h.Auth.Type == "key" && h.Auth.Path == "" {
			errs = append(errs, fmt.Errorf("host %s: auth.path is required for key auth", label))
		}
	}

	return errors.Join(errs...)
}

// FindHost returns the host entry called name.
func (c *Config) FindHost(name string) (*HostConfig, error) {
	for i := range c.Hosts {
		if c.Hosts[i].Name == name {
			return &c.Hosts[i], nil
		}
	}
	return nil, fmt.Errorf("host %q not found in config", name)
}

// AddHost adds a host to the configuration.
// Returns an error if a host with the same name already exists.
func (c *Config) AddHost(host HostConfig) error {
	for _, h := range c.Hosts {
		if h.Name == host.Name {
			return fmt.Errorf("host %q already exists", host.Name)
		}
	}
	c.Hosts = append(c.Hosts, host)
	return nil
}
