// Package mockssh provides an in-process SSH server for tests. It serves
// "exec" requests through /bin/sh and the "sftp" subsystem against the
// real filesystem.
package mockssh

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os/exec"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// Server is a mock SSH server for testing.
type Server struct {
	listener net.Listener
	config   *ssh.ServerConfig
	addr     string
	shell    string
	users    map[string]string // username -> password
	keys     map[string]ssh.PublicKey
	mu       sync.RWMutex
	done     chan struct{}
	wg       sync.WaitGroup

	execs        []string
	sftpSessions atomic.Int32
	noSFTP       bool
}

// Option configures the mock SSH server.
type Option func(*Server)

// WithShell sets the shell used for exec requests.
func WithShell(shell string) Option {
	return func(s *Server) {
		s.shell = shell
	}
}

// WithUser adds a user/password pair for authentication.
func WithUser(username, password string) Option {
	return func(s *Server) {
		s.users[username] = password
	}
}

// WithAuthorizedKey allows username to authenticate with key.
func WithAuthorizedKey(username string, key ssh.PublicKey) Option {
	return func(s *Server) {
		s.keys[username] = key
	}
}

// WithoutSFTP rejects sftp subsystem requests.
func WithoutSFTP() Option {
	return func(s *Server) {
		s.noSFTP = true
	}
}

// New starts a mock SSH server on a random loopback port.
func New(opts ...Option) (*Server, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate host key: %w", err)
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		return nil, fmt.Errorf("failed to create signer: %w", err)
	}

	s := &Server{
		shell: "/bin/sh",
		users: map[string]string{
			"test": "test",
		},
		keys: map[string]ssh.PublicKey{},
		done: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	config := &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
			s.mu.RLock()
			expected, ok := s.users[c.User()]
			s.mu.RUnlock()

			if ok && string(password) == expected {
				return nil, nil
			}
			return nil, fmt.Errorf("password rejected for %q", c.User())
		},
		PublicKeyCallback: func(c ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			s.mu.RLock()
			allowed, ok := s.keys[c.User()]
			s.mu.RUnlock()

			if ok && bytes.Equal(allowed.Marshal(), key.Marshal()) {
				return nil, nil
			}
			return nil, fmt.Errorf("key rejected for %q", c.User())
		},
	}
	config.AddHostKey(signer)
	s.config = config

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}
	s.listener = listener
	s.addr = listener.Addr().String()

	s.wg.Add(1)
	go s.acceptLoop()

	slog.Debug("mock SSH server started", slog.String("addr", s.addr))
	return s, nil
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() string {
	return s.addr
}

// Host returns the host part of the address.
func (s *Server) Host() string {
	host, _, _ := net.SplitHostPort(s.addr)
	return host
}

// Port returns the port the server is listening on.
func (s *Server) Port() int {
	_, port, _ := net.SplitHostPort(s.addr)
	n, _ := strconv.Atoi(port)
	return n
}

// Execs returns every command received through exec requests, in order.
func (s *Server) Execs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.execs...)
}

// SFTPSessions returns how many sftp subsystems have been started.
func (s *Server) SFTPSessions() int {
	return int(s.sftpSessions.Load())
}

// Close shuts down the server and waits for connection handlers to exit.
func (s *Server) Close() error {
	close(s.done)
	err := s.listener.Close()
	s.wg.Wait()
	return err
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				slog.Debug("accept error", slog.String("error", err.Error()))
				continue
			}
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(netConn net.Conn) {
	defer s.wg.Done()
	defer netConn.Close()

	sshConn, chans, reqs, err := ssh.NewServerConn(netConn, s.config)
	if err != nil {
		slog.Debug("SSH handshake failed", slog.String("error", err.Error()))
		return
	}
	defer sshConn.Close()

	go ssh.DiscardRequests(reqs)

	// Tear the connection down when the server closes so handlers unblock.
	go func() {
		<-s.done
		sshConn.Close()
	}()

	for newChannel := range chans {
		if newChannel.ChannelType() != "session" {
			newChannel.Reject(ssh.UnknownChannelType, "unknown channel type")
			continue
		}

		channel, requests, err := newChannel.Accept()
		if err != nil {
			slog.Debug("channel accept failed", slog.String("error", err.Error()))
			continue
		}

		s.wg.Add(1)
		go s.handleChannel(channel, requests)
	}
}

func (s *Server) handleChannel(channel ssh.Channel, requests <-chan *ssh.Request) {
	defer s.wg.Done()
	defer channel.Close()

	for req := range requests {
		switch req.Type {
		case "exec":
			command := parseString(req.Payload)
			if req.WantReply {
				req.Reply(true, nil)
			}
			go ssh.DiscardRequests(requests)
			s.handleExec(channel, command)
			return

		case "subsystem":
			name := parseString(req.Payload)
			if name != "sftp" || s.noSFTP {
				if req.WantReply {
					req.Reply(false, nil)
				}
				continue
			}
			if req.WantReply {
				req.Reply(true, nil)
			}
			go ssh.DiscardRequests(requests)
			s.handleSFTP(channel)
			return

		default:
			if req.WantReply {
				req.Reply(false, nil)
			}
		}
	}
}

func (s *Server) handleExec(channel ssh.Channel, command string) {
	s.mu.Lock()
	s.execs = append(s.execs, command)
	s.mu.Unlock()

	cmd := exec.Command(s.shell, "-c", command)
	cmd.Stdout = channel
	cmd.Stderr = channel.Stderr()

	exitCode := 0
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = 127
		}
	}

	sendExitStatus(channel, exitCode)
}

func (s *Server) handleSFTP(channel ssh.Channel) {
	s.sftpSessions.Add(1)

	server, err := sftp.NewServer(channel)
	if err != nil {
		slog.Debug("sftp server init failed", slog.String("error", err.Error()))
		return
	}
	if err := server.Serve(); err != nil && !errors.Is(err, io.EOF) {
		slog.Debug("sftp server exited", slog.String("error", err.Error()))
	}
	server.Close()
}

func sendExitStatus(channel ssh.Channel, code int) {
	channel.CloseWrite()

	payload := make([]byte, 4)
	binary.BigEndian.PutUint32(payload, uint32(code))
	channel.SendRequest("exit-status", false, payload)

	channel.Close()
}

// parseString decodes an SSH wire string (uint32 length + bytes).
func parseString(payload []byte) string {
	if len(payload) < 4 {
		return ""
	}
	n := binary.BigEndian.Uint32(payload[:4])
	if uint64(len(payload)-4) < uint64(n) {
		return ""
	}
	return string(payload[4 : 4+n])
}
