package ports

import "golang.org/x/crypto/ssh"

// SSHDialer opens the TCP connection and performs the SSH handshake for a
// session. Tests swap it to redirect or fail connections.
type SSHDialer interface {
	Dial(network, addr string, config *ssh.ClientConfig) (*ssh.Client, error)
}
