// Package realsshdialer provides a real implementation of the SSHDialer port.
package realsshdialer

import (
	"log/slog"

	"github.com/acolita/sshsync/internal/ports"
	"golang.org/x/crypto/ssh"
)

// Dialer implements ports.SSHDialer using ssh.Dial. The handshake is bounded
// by config.Timeout.
type Dialer struct{}

// New creates a new Dialer.
func New() *Dialer {
	return &Dialer{}
}

// Dial establishes an SSH connection to the given address.
func (d *Dialer) Dial(network, addr string, config *ssh.ClientConfig) (*ssh.Client, error) {
	slog.Debug("ssh dial",
		slog.String("addr", addr),
		slog.String("user", config.User),
		slog.Duration("timeout", config.Timeout),
	)
	return ssh.Dial(network, addr, config)
}

var _ ports.SSHDialer = (*Dialer)(nil)
