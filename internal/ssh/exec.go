package ssh

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/ssh"
)

// ErrNotConnected is returned by operations that need a live connection.
var ErrNotConnected = errors.New("not connected")

// ExecResult holds the raw outcome of a remote command.
type ExecResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Exec runs command through the remote user's shell on a fresh session and
// waits for it to exit. A non-zero exit status is reported in ExitCode, not
// as an error; the error return is reserved for transport failures.
func (c *Client) Exec(command string) (*ExecResult, error) {
	session, err := c.NewSession()
	if err != nil {
		return nil, err
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	result := &ExecResult{}
	err = session.Run(command)
	result.Stdout = stdout.Bytes()
	result.Stderr = stderr.Bytes()

	if err == nil {
		return result, nil
	}

	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitStatus()
		return result, nil
	}

	var missing *ssh.ExitMissingError
	if errors.As(err, &missing) {
		result.ExitCode = -1
		return result, nil
	}

	return nil, fmt.Errorf("run %q: %w", command, err)
}

// Run implements ports.CommandRunner.
func (c *Client) Run(command string) (bool, error) {
	result, err := c.Exec(command)
	if err != nil {
		return false, err
	}
	return result.ExitCode == 0, nil
}

// IsAuthError reports whether a Connect error came from the credential
// exchange rather than from the network or host key check. x/crypto/ssh
// does not export a typed error for this case.
func IsAuthError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "unable to authenticate")
}
