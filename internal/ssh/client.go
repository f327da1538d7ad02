// Package ssh provides the SSH transport: connection setup, authentication,
// command execution and the SFTP channel riding on the same connection.
package ssh

import (
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/acolita/sshsync/internal/adapters/realclock"
	"github.com/acolita/sshsync/internal/adapters/realsshdialer"
	"github.com/acolita/sshsync/internal/ports"
	"github.com/acolita/sshsync/internal/sftp"
	"golang.org/x/crypto/ssh"
)

// DefaultPort is the SSH port used when none is configured.
const DefaultPort = 22

// Client manages an SSH connection to one remote host.
type Client struct {
	conn   *ssh.Client
	config *ssh.ClientConfig
	host   string
	port   int
	mu     sync.Mutex

	// Keepalive settings
	keepaliveInterval time.Duration
	keepaliveStop     chan struct{}

	// SFTP client (lazy initialized)
	sftpClient *sftp.Client

	// Injected dependencies
	clock  ports.Clock
	dialer ports.SSHDialer
}

// ClientOptions configures SSH client behavior.
type ClientOptions struct {
	Host            string
	Port            int
	User            string
	AuthMethods     []ssh.AuthMethod
	HostKeyCallback ssh.HostKeyCallback
	Timeout         time.Duration
	// KeepaliveInterval defaults to 30s; a negative value disables keepalives.
	KeepaliveInterval time.Duration
	Clock             ports.Clock
	Dialer            ports.SSHDialer
}

// NewClient creates a new SSH client with the given options. No network I/O
// happens until Connect.
func NewClient(opts ClientOptions) (*Client, error) {
	if opts.Host == "" {
		return nil, fmt.Errorf("host is required")
	}
	if opts.User == "" {
		return nil, fmt.Errorf("user is required")
	}
	if len(opts.AuthMethods) == 0 {
		return nil, fmt.Errorf("at least one auth method is required")
	}
	if opts.Port == 0 {
		opts.Port = DefaultPort
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.KeepaliveInterval == 0 {
		opts.KeepaliveInterval = 30 * time.Second
	}
	if opts.HostKeyCallback == nil {
		opts.HostKeyCallback = ssh.InsecureIgnoreHostKey()
	}

	clk := opts.Clock
	if clk == nil {
		clk = realclock.New()
	}
	dial := opts.Dialer
	if dial == nil {
		dial = realsshdialer.New()
	}

	return &Client{
		config: &ssh.ClientConfig{
			User:            opts.User,
			Auth:            opts.AuthMethods,
			HostKeyCallback: opts.HostKeyCallback,
			Timeout:         opts.Timeout,
		},
		host:              opts.Host,
		port:              opts.Port,
		keepaliveInterval: opts.KeepaliveInterval,
		clock:             clk,
		dialer:            dial,
	}, nil
}

// Connect establishes the SSH connection. Calling it while connected is a no-op.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}

	addr := c.addr()
	conn, err := c.dialer.Dial("tcp", addr, c.config)
	if err != nil {
		return fmt.Errorf("ssh dial %s: %w", addr, err)
	}
	c.conn = conn

	if c.keepaliveInterval > 0 {
		c.keepaliveStop = make(chan struct{})
		go c.keepalive(conn, c.keepaliveStop)
	}
	return nil
}

// keepalive sends periodic keepalive requests until stop is closed.
func (c *Client) keepalive(conn *ssh.Client, stop <-chan struct{}) {
	ticker := c.clock.NewTicker(c.keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			// A failure here is left for the next real operation to surface.
			_, _, _ = conn.SendRequest("keepalive@openssh.com", true, nil)
		}
	}
}

// NewSession opens a new exec channel on the connection.
func (c *Client) NewSession() (*ssh.Session, error) {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return nil, ErrNotConnected
	}

	session, err := conn.NewSession()
	if err != nil {
		return nil, fmt.Errorf("new session: %w", err)
	}
	return session, nil
}

// Close closes the SFTP channel and then the SSH connection. It is safe to
// call on a client that never connected or is already closed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.keepaliveStop != nil {
		close(c.keepaliveStop)
		c.keepaliveStop = nil
	}

	var sftpErr error
	if c.sftpClient != nil {
		sftpErr = c.sftpClient.Close()
		c.sftpClient = nil
	}

	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		if err != nil {
			return err
		}
	}
	return sftpErr
}

// IsConnected returns true if the client is connected.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Host returns the target host.
func (c *Client) Host() string {
	return c.host
}

// Port returns the target port.
func (c *Client) Port() int {
	return c.port
}

// User returns the login user.
func (c *Client) User() string {
	return c.config.User
}

func (c *Client) addr() string {
	return net.JoinHostPort(c.host, strconv.Itoa(c.port))
}

// SFTPClient returns the SFTP channel, creating the wrapper on first use.
func (c *Client) SFTPClient() (*sftp.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, ErrNotConnected
	}
	if c.sftpClient == nil {
		c.sftpClient = sftp.NewClient(c.conn)
	}
	return c.sftpClient, nil
}
