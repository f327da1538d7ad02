// Package sftp provides the file-operations channel of a remote session.
package sftp

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sync"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/acolita/sshsync/internal/ports"
)

// SSH_FX_NO_SUCH_FILE from the SFTP status codes.
const fxNoSuchFile = 2

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("sftp client is closed")

// Client wraps an SFTP client for file transfer operations.
// It uses an existing SSH connection and opens the subsystem lazily.
//
// Relative paths are resolved against a client-side working directory set
// by Chdir. Before the first Chdir they are passed to the server unchanged,
// so the server resolves them against the login directory.
type Client struct {
	sshConn    *ssh.Client
	sftpClient *sftp.Client
	mu         sync.Mutex
	closed     bool
	cwd        string
}

// NewClient creates a new SFTP client wrapper using an existing SSH connection.
func NewClient(sshConn *ssh.Client) *Client {
	return &Client{
		sshConn: sshConn,
	}
}

// Open starts the SFTP subsystem now instead of on first use, so that
// subsystem failures surface at connect time.
func (c *Client) Open() error {
	_, err := c.client()
	return err
}

// client returns the underlying SFTP client, initializing it if needed.
func (c *Client) client() (*sftp.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if c.sftpClient != nil {
		return c.sftpClient, nil
	}
	if c.sshConn == nil {
		return nil, fmt.Errorf("ssh connection is nil")
	}

	client, err := sftp.NewClient(c.sshConn)
	if err != nil {
		return nil, fmt.Errorf("create sftp client: %w", err)
	}
	c.sftpClient = client
	return client, nil
}

// Close closes the SFTP client. Closing twice is a no-op.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.sftpClient != nil {
		err := c.sftpClient.Close()
		c.sftpClient = nil
		return err
	}
	return nil
}

// IsConnected returns true if the SFTP subsystem is open.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sftpClient != nil && !c.closed
}

// resolve makes p absolute against the client-side working directory.
func (c *Client) resolve(p string) string {
	c.mu.Lock()
	cwd := c.cwd
	c.mu.Unlock()

	if p == "" || path.IsAbs(p) || cwd == "" {
		return p
	}
	return path.Join(cwd, p)
}

// Stat returns file information for the given path, following symlinks.
func (c *Client) Stat(p string) (os.FileInfo, error) {
	client, err := c.client()
	if err != nil {
		return nil, err
	}
	return client.Stat(c.resolve(p))
}

// ReadDir reads the contents of a directory.
func (c *Client) ReadDir(p string) ([]os.FileInfo, error) {
	client, err := c.client()
	if err != nil {
		return nil, err
	}
	return client.ReadDir(c.resolve(p))
}

// Mkdir creates a single directory.
func (c *Client) Mkdir(p string) error {
	client, err := c.client()
	if err != nil {
		return err
	}
	return client.Mkdir(c.resolve(p))
}

// Chmod changes the permissions of a file.
func (c *Client) Chmod(p string, mode os.FileMode) error {
	client, err := c.client()
	if err != nil {
		return err
	}
	return client.Chmod(c.resolve(p), mode)
}

// Chdir sets the working directory used to resolve relative paths.
// It fails if p does not exist or is not a directory.
func (c *Client) Chdir(p string) error {
	client, err := c.client()
	if err != nil {
		return err
	}

	target := c.resolve(p)
	info, err := client.Stat(target)
	if err != nil {
		return &os.PathError{Op: "chdir", Path: target, Err: err}
	}
	if !info.IsDir() {
		return &os.PathError{Op: "chdir", Path: target, Err: errors.New("not a directory")}
	}

	abs, err := client.RealPath(target)
	if err != nil {
		return fmt.Errorf("realpath %s: %w", target, err)
	}

	c.mu.Lock()
	c.cwd = abs
	c.mu.Unlock()
	return nil
}

// Getwd returns the client-side working directory, or the server's idea of
// it before the first Chdir.
func (c *Client) Getwd() (string, error) {
	client, err := c.client()
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	cwd := c.cwd
	c.mu.Unlock()
	if cwd != "" {
		return cwd, nil
	}
	return client.Getwd()
}

// Download copies the remote file into w.
func (c *Client) Download(remotePath string, w io.Writer) (int64, error) {
	client, err := c.client()
	if err != nil {
		return 0, err
	}

	file, err := client.Open(c.resolve(remotePath))
	if err != nil {
		return 0, fmt.Errorf("open remote file: %w", err)
	}
	defer file.Close()

	n, err := io.Copy(w, file)
	if err != nil {
		return n, fmt.Errorf("read remote file: %w", err)
	}
	return n, nil
}

// Upload copies r into the remote file, creating or truncating it.
func (c *Client) Upload(r io.Reader, remotePath string) (int64, error) {
	client, err := c.client()
	if err != nil {
		return 0, err
	}

	file, err := client.Create(c.resolve(remotePath))
	if err != nil {
		return 0, fmt.Errorf("create remote file: %w", err)
	}

	n, err := io.Copy(file, r)
	if err != nil {
		file.Close()
		return n, fmt.Errorf("write remote file: %w", err)
	}
	if err := file.Close(); err != nil {
		return n, fmt.Errorf("close remote file: %w", err)
	}
	return n, nil
}

// WriteFile writes data to a remote file, creating it if necessary, and then
// sets perm on the path. A zero perm leaves the server's default mode.
func (c *Client) WriteFile(p string, data []byte, perm os.FileMode) error {
	if _, err := c.Upload(bytes.NewReader(data), p); err != nil {
		return err
	}
	if perm == 0 {
		return nil
	}
	if err := c.Chmod(p, perm); err != nil {
		return fmt.Errorf("chmod remote file: %w", err)
	}
	return nil
}

// IsNotExist reports whether err means the remote path does not exist.
func IsNotExist(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrNotExist) {
		return true
	}
	var status *sftp.StatusError
	if errors.As(err, &status) {
		return status.Code == fxNoSuchFile
	}
	return false
}

var _ ports.RemoteFS = (*Client)(nil)
