package remote

import (
	"errors"
	"fmt"
	"time"

	"github.com/acolita/sshsync/internal/config"
	"github.com/acolita/sshsync/internal/security"
)

// ParamsForHost resolves the connection parameters for a configured host,
// pulling secrets through creds. Password auth requires a password; hosts
// without an auth type try the agent and default keys, plus a password when
// one can be found.
func ParamsForHost(h config.HostConfig, timeout time.Duration, creds *security.Credentials) (Params, error) {
	p := Params{
		Host:                  h.Host,
		Port:                  h.Port,
		User:                  h.User,
		KnownHostsPath:        h.KnownHosts,
		InsecureIgnoreHostKey: h.InsecureIgnoreHostKey,
		Timeout:               timeout,
	}
	if creds == nil {
		creds = security.NewCredentials(nil, nil)
	}

	switch h.Auth.Type {
	case "password":
		pw, err := creds.Password(h.Host, h.User, h.Auth.PasswordEnv, h.Auth.UseKeyring)
		if err != nil {
			return Params{}, fmt.Errorf("host %s: %w", h.Name, err)
		}
		p.Password = pw

	case "key":
		p.KeyPath = h.Auth.Path
		pass, err := creds.Passphrase(h.Auth.Path, h.Auth.PassphraseEnv, h.Auth.UseKeyring)
		if err != nil {
			return Params{}, fmt.Errorf("host %s: %w", h.Name, err)
		}
		p.KeyPassphrase = pass

	case "agent":
		p.UseAgent = true

	default:
		p.UseAgent = true
		p.KeyPath = h.Auth.Path
		if h.Auth.PasswordEnv != "" || h.Auth.UseKeyring {
			noPrompt := *creds
			noPrompt.Prompter = nil
			pw, err := noPrompt.Password(h.Host, h.User, h.Auth.PasswordEnv, h.Auth.UseKeyring)
			if err != nil && !errors.Is(err, security.ErrNoPassword) {
				return Params{}, fmt.Errorf("host %s: %w", h.Name, err)
			}
			p.Password = pw
		}
	}

	return p, nil
}
