package ssh

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// ErrNoAuthMethods is returned when no credential source yields a method.
var ErrNoAuthMethods = errors.New("no authentication methods available")

// defaultKeys are tried in order when nothing else was configured.
var defaultKeys = []string{
	"~/.ssh/id_ed25519",
	"~/.ssh/id_rsa",
	"~/.ssh/id_ecdsa",
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	KeyPath       string // Path to private key file
	KeyPassphrase string // Passphrase for encrypted keys
	UseAgent      bool   // Use SSH agent for authentication
	Password      string // Password for password authentication
	Host          string // Target host for ~/.ssh/config lookup
	SSHConfigPath string // Defaults to ~/.ssh/config
}

// BuildAuthMethods constructs SSH auth methods from config. Methods are
// offered to the server in order: agent, explicit key, ~/.ssh/config
// IdentityFile, a default key, then password and keyboard-interactive.
func BuildAuthMethods(cfg AuthConfig) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	if cfg.UseAgent {
		agentAuth, err := sshAgentAuth()
		if err != nil {
			slog.Debug("ssh agent unavailable", slog.String("error", err.Error()))
		} else {
			methods = append(methods, agentAuth)
		}
	}

	if cfg.KeyPath != "" {
		keyAuth, err := privateKeyAuth(cfg.KeyPath, cfg.KeyPassphrase)
		if err != nil {
			return nil, fmt.Errorf("private key auth: %w", err)
		}
		methods = append(methods, keyAuth)
	}

	if cfg.KeyPath == "" && cfg.Host != "" {
		configPath := cfg.SSHConfigPath
		if configPath == "" {
			configPath = "~/.ssh/config"
		}
		if identity := lookupIdentityFile(configPath, cfg.Host); identity != "" {
			if keyAuth, err := privateKeyAuth(identity, cfg.KeyPassphrase); err == nil {
				methods = append(methods, keyAuth)
			} else {
				slog.Debug("ssh config identity unusable",
					slog.String("path", identity),
					slog.String("error", err.Error()))
			}
		}
	}

	if cfg.KeyPath == "" && cfg.Password == "" && len(methods) == 0 {
		for _, keyPath := range defaultKeys {
			expanded := expandPath(keyPath)
			if _, err := os.Stat(expanded); err != nil {
				continue
			}
			if keyAuth, err := privateKeyAuth(expanded, cfg.KeyPassphrase); err == nil {
				methods = append(methods, keyAuth)
				break
			}
		}
	}

	if cfg.Password != "" {
		methods = append(methods, PasswordAuth(cfg.Password), KeyboardInteractiveAuth(cfg.Password))
	}

	if len(methods) == 0 {
		return nil, ErrNoAuthMethods
	}
	return methods, nil
}

func sshAgentAuth() (ssh.AuthMethod, error) {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil, fmt.Errorf("SSH_AUTH_SOCK not set")
	}

	conn, err := net.Dial("unix", socket)
	if err != nil {
		return nil, fmt.Errorf("dial agent: %w", err)
	}

	return ssh.PublicKeysCallback(agent.NewClient(conn).Signers), nil
}

func privateKeyAuth(keyPath, passphrase string) (ssh.AuthMethod, error) {
	keyData, err := os.ReadFile(expandPath(keyPath))
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	signer, err := parseSigner(keyData, passphrase)
	if err != nil {
		return nil, err
	}
	return ssh.PublicKeys(signer), nil
}

func parseSigner(keyData []byte, passphrase string) (ssh.Signer, error) {
	var (
		signer ssh.Signer
		err    error
	)
	if passphrase != "" {
		signer, err = ssh.ParsePrivateKeyWithPassphrase(keyData, []byte(passphrase))
	} else {
		signer, err = ssh.ParsePrivateKey(keyData)
	}
	if err != nil {
		var missing *ssh.PassphraseMissingError
		if errors.As(err, &missing) {
			return nil, fmt.Errorf("key is encrypted, passphrase required: %w", err)
		}
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return signer, nil
}

// BuildHostKeyCallback creates a host key callback. With insecure set every
// key is accepted. Otherwise keys are checked against knownHostsPath
// (default ~/.ssh/known_hosts); when that file does not exist the key is
// accepted and a warning is logged.
func BuildHostKeyCallback(knownHostsPath string, insecure bool) (ssh.HostKeyCallback, error) {
	if insecure {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	if knownHostsPath == "" {
		knownHostsPath = "~/.ssh/known_hosts"
	}
	expanded := expandPath(knownHostsPath)

	if _, err := os.Stat(expanded); errors.Is(err, os.ErrNotExist) {
		return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
			slog.Warn("known_hosts missing, accepting host key",
				slog.String("host", hostname),
				slog.String("known_hosts", expanded),
				slog.String("fingerprint", ssh.FingerprintSHA256(key)))
			return nil
		}, nil
	}

	callback, err := knownhosts.New(expanded)
	if err != nil {
		return nil, fmt.Errorf("parse known_hosts: %w", err)
	}
	return callback, nil
}

// expandPath expands a leading ~ to the home directory.
func expandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
}

// lookupIdentityFile returns the first IdentityFile that applies to host in
// the ssh_config file at path, or "" when none does.
func lookupIdentityFile(path, host string) string {
	f, err := os.Open(expandPath(path))
	if err != nil {
		return ""
	}
	defer f.Close()
	return parseIdentityFile(f, host)
}

func parseIdentityFile(r io.Reader, host string) string {
	scanner := bufio.NewScanner(r)
	matches := false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := splitConfigLine(line)
		if !ok {
			continue
		}

		switch strings.ToLower(key) {
		case "host":
			matches = matchHostPatterns(host, strings.Fields(value))
		case "identityfile":
			if matches {
				return expandPath(strings.Trim(value, `"`))
			}
		}
	}
	return ""
}

// splitConfigLine accepts both "Key value" and "Key=value".
func splitConfigLine(line string) (string, string, bool) {
	idx := strings.IndexAny(line, " \t=")
	if idx < 0 {
		return "", "", false
	}
	key := line[:idx]
	value := strings.TrimLeft(line[idx:], " \t=")
	if value == "" {
		return "", "", false
	}
	return key, value, true
}

// matchHostPatterns reports whether host matches any of the ssh_config Host
// patterns. A pattern prefixed with ! negates the whole entry.
func matchHostPatterns(host string, patterns []string) bool {
	matched := false
	for _, p := range patterns {
		negate := strings.HasPrefix(p, "!")
		p = strings.TrimPrefix(p, "!")
		ok, err := doublestar.Match(p, host)
		if err != nil || !ok {
			continue
		}
		if negate {
			return false
		}
		matched = true
	}
	return matched
}

// PasswordAuth returns a password auth method.
func PasswordAuth(password string) ssh.AuthMethod {
	return ssh.Password(password)
}

// KeyboardInteractiveAuth answers every keyboard-interactive question with
// the password. Servers configured for PAM often only offer this method.
func KeyboardInteractiveAuth(password string) ssh.AuthMethod {
	return ssh.KeyboardInteractive(func(user, instruction string, questions []string, echos []bool) ([]string, error) {
		answers := make([]string, len(questions))
		for i := range questions {
			answers[i] = password
		}
		return answers, nil
	})
}
