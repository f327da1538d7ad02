// Package security provides credential lookup and the guards applied to
// remote commands and logins.
package security

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/zalando/go-keyring"
)

// KeyringService is the service name used for keyring entries.
const KeyringService = "sshsync"

const (
	keyServerFmt        = "server:%s@%s"
	keySSHPassphraseFmt = "ssh-passphrase:%s"
)

// ErrKeyringUnavailable is returned when the OS keyring cannot be used.
var ErrKeyringUnavailable = errors.New("keyring not available")

// KeyringStore reads SSH credentials from the OS keyring (macOS Keychain,
// Linux Secret Service, Windows Credential Manager).
type KeyringStore struct {
	enabled bool
	mu      sync.RWMutex
}

// NewKeyringStore returns a store. When check is true the keyring is tested
// with a throwaway entry and the store disables itself if that fails.
func NewKeyringStore(check bool) *KeyringStore {
	ks := &KeyringStore{enabled: true}
	if !check {
		return ks
	}

	const testKey = "__sshsync_check__"
	if err := keyring.Set(KeyringService, testKey, "check"); err != nil {
		slog.Debug("keyring not available", slog.String("error", err.Error()))
		ks.enabled = false
		return ks
	}
	_ = keyring.Delete(KeyringService, testKey)
	return ks
}

// IsEnabled returns true if the keyring is available and enabled.
func (ks *KeyringStore) IsEnabled() bool {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	return ks.enabled
}

// SetEnabled allows enabling/disabling keyring usage.
func (ks *KeyringStore) SetEnabled(enabled bool) {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	ks.enabled = enabled
}

// ServerPassword returns the stored login password for user@host. A missing
// entry yields "" and a nil error.
func (ks *KeyringStore) ServerPassword(host, user string) (string, error) {
	return ks.get(fmt.Sprintf(keyServerFmt, user, host))
}

// SSHPassphrase returns the stored passphrase for the key at keyPath.
func (ks *KeyringStore) SSHPassphrase(keyPath string) (string, error) {
	return ks.get(fmt.Sprintf(keySSHPassphraseFmt, keyPath))
}

func (ks *KeyringStore) get(key string) (string, error) {
	if !ks.IsEnabled() {
		return "", ErrKeyringUnavailable
	}

	secret, err := keyring.Get(KeyringService, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("keyring lookup %s: %w", key, err)
	}
	slog.Debug("credential read from keyring", slog.String("entry", key))
	return secret, nil
}
