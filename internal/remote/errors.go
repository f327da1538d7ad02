package remote

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

// ErrNotConnected is returned by every operation attempted outside the
// window between a successful Connect and Disconnect.
var ErrNotConnected = errors.New("remote session is not connected")

// AuthenticationError reports that the credential exchange failed.
type AuthenticationError struct {
	User string
	Host string
	Err  error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed for %s@%s: %v", e.User, e.Host, e.Err)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// ConnectionError reports any other connect failure: network, host key,
// timeout or SFTP subsystem.
type ConnectionError struct {
	Host string
	Port int
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect to %s failed: %v", net.JoinHostPort(e.Host, strconv.Itoa(e.Port)), e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}
