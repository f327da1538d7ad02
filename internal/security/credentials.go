package security

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/acolita/sshsync/internal/ports"
)

// ErrNoPassword is returned when no source produced a password.
var ErrNoPassword = errors.New("no password available")

// Credentials resolves secrets from the environment, the OS keyring and,
// when a prompter is set, the user. Sources are consulted in that order.
type Credentials struct {
	Getenv   func(string) string
	Keyring  *KeyringStore
	Prompter ports.PasswordPrompter
}

// NewCredentials returns a resolver reading the process environment.
// keyring and prompter may be nil.
func NewCredentials(keyring *KeyringStore, prompter ports.PasswordPrompter) *Credentials {
	return &Credentials{Getenv: os.Getenv, Keyring: keyring, Prompter: prompter}
}

// Password resolves the login password for user@host.
func (c *Credentials) Password(host, user, env string, useKeyring bool) (string, error) {
	if env != "" {
		if v := c.getenv(env); v != "" {
			return v, nil
		}
		slog.Debug("password env var empty", slog.String("env", env))
	}

	if useKeyring && c.Keyring != nil {
		secret, err := c.Keyring.ServerPassword(host, user)
		if err != nil && !errors.Is(err, ErrKeyringUnavailable) {
			return "", err
		}
		if secret != "" {
			return secret, nil
		}
	}

	if c.Prompter != nil {
		secret, err := c.Prompter.PromptPassword(user, host)
		if err != nil {
			return "", fmt.Errorf("prompt password: %w", err)
		}
		return secret, nil
	}

	return "", ErrNoPassword
}

// Passphrase resolves the passphrase for an encrypted key. An unencrypted
// key needs none, so a miss returns "" without error.
func (c *Credentials) Passphrase(keyPath, env string, useKeyring bool) (string, error) {
	if env != "" {
		if v := c.getenv(env); v != "" {
			return v, nil
		}
	}
	if useKeyring && c.Keyring != nil {
		secret, err := c.Keyring.SSHPassphrase(keyPath)
		if err != nil && !errors.Is(err, ErrKeyringUnavailable) {
			return "", err
		}
		return secret, nil
	}
	return "", nil
}

func (c *Credentials) getenv(key string) string {
	if c.Getenv == nil {
		return os.Getenv(key)
	}
	return c.Getenv(key)
}
