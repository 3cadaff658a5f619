// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package ssh opens a single-use SSH session to a remote host, runs one
// command on it and collects the output line by line. Host-key trust and
// authentication are decided by explicit options, never by hidden defaults.
package ssh

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"device-manager/internal/config"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
	"golang.org/x/sync/errgroup"
)

// maxLineLength caps a single output line read from the remote command.
const maxLineLength = 1024 * 1024

// Target is the remote endpoint and credentials for one connection.
type Target struct {
	Host     string
	Port     int
	User     string
	Password string
	KeyPath  string
}

// Result is the output of one remote command.
type Result struct {
	Stdout     []string
	Stderr     []string
	ExitStatus int
}

// Session is one connection's lifecycle: Connect, Exec, Close. Close must be
// safe to call whether or not Connect succeeded.
type Session interface {
	Connect(ctx context.Context, t Target) error
	Exec(ctx context.Context, command string) (Result, error)
	Close() error
}

// Dialer creates fresh sessions.
type Dialer interface {
	NewSession() Session
}

// ClientOptions configure real SSH sessions.
type ClientOptions struct {
	// Timeout bounds the TCP connect plus the SSH handshake.
	Timeout time.Duration
	// HostKeyPolicy is config.HostKeyAutoTrust or config.HostKeyKnownHosts.
	HostKeyPolicy string
	// KnownHostsPath is read by the known-hosts policy.
	KnownHostsPath string
	// UseAgent adds ssh-agent keys when SSH_AUTH_SOCK is set.
	UseAgent bool
	Log      *slog.Logger
}

// ClientDialer creates Clients sharing the same options.
type ClientDialer struct {
	Options ClientOptions
}

// NewSession implements Dialer.
func (d ClientDialer) NewSession() Session {
	return NewClient(d.Options)
}

// Client is a Session backed by golang.org/x/crypto/ssh.
type Client struct {
	opts ClientOptions

	mu        sync.Mutex
	client    *ssh.Client
	agentConn net.Conn
}

// NewClient returns an unconnected client.
func NewClient(opts ClientOptions) *Client {
	return &Client{opts: opts}
}

func (c *Client) log() *slog.Logger {
	if c.opts.Log == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c.opts.Log
}

// Connect dials the target, verifies the host key according to the policy
// and authenticates.
func (c *Client) Connect(ctx context.Context, t Target) error {
	if strings.TrimSpace(t.Host) == "" {
		return newError(ErrTransport, "connect", errors.New("no host given"))
	}
	port := t.Port
	if port == 0 {
		port = 22
	}
	addr := net.JoinHostPort(t.Host, strconv.Itoa(port))

	authMethods, err := c.authMethods(t)
	if err != nil {
		return newError(ErrAuth, "auth", fmt.Errorf("failed to prepare auth methods for %s: %w", t.Host, err))
	}
	if len(authMethods) == 0 {
		return newError(ErrAuth, "auth", fmt.Errorf("no suitable authentication method found for %s (key, agent, or password required)", t.Host))
	}

	hostKeyCallback, err := c.hostKeyCallback(t.Host)
	if err != nil {
		return newError(ErrProtocol, "host key", err)
	}

	sshConfig := &ssh.ClientConfig{
		User:            t.User,
		Auth:            authMethods,
		HostKeyCallback: hostKeyCallback,
		Timeout:         c.opts.Timeout,
	}

	dialer := net.Dialer{Timeout: c.opts.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return newError(ErrTransport, "dial", fmt.Errorf("failed to dial ssh host %s: %w", addr, err))
	}

	// The handshake has no context parameter; closing the socket aborts it.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	if c.opts.Timeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(c.opts.Timeout))
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, sshConfig)
	if err != nil {
		_ = conn.Close()
		if ctx.Err() != nil {
			return newError(ErrTransport, "handshake", ctx.Err())
		}
		return classify("handshake", fmt.Errorf("ssh handshake with %s failed: %w", addr, err))
	}
	_ = conn.SetDeadline(time.Time{})

	c.mu.Lock()
	c.client = ssh.NewClient(sshConn, chans, reqs)
	c.mu.Unlock()
	return nil
}

// Exec runs command once and drains stdout and stderr concurrently. A
// non-zero exit status is reported in the Result, not as an error.
func (c *Client) Exec(ctx context.Context, command string) (Result, error) {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	if client == nil {
		return Result{}, newError(ErrProtocol, "exec", errors.New("not connected"))
	}

	session, err := client.NewSession()
	if err != nil {
		return Result{}, classify("exec", fmt.Errorf("failed to create ssh session: %w", err))
	}
	defer session.Close()

	stdoutPipe, err := session.StdoutPipe()
	if err != nil {
		return Result{}, classify("exec", fmt.Errorf("failed to get ssh stdout pipe: %w", err))
	}
	stderrPipe, err := session.StderrPipe()
	if err != nil {
		return Result{}, classify("exec", fmt.Errorf("failed to get ssh stderr pipe: %w", err))
	}

	if err := session.Start(command); err != nil {
		return Result{}, classify("exec", fmt.Errorf("failed to start remote command: %w", err))
	}
	stop := context.AfterFunc(ctx, func() { _ = session.Close() })
	defer stop()

	var res Result
	var g errgroup.Group
	g.Go(func() error {
		lines, err := readLines(stdoutPipe)
		res.Stdout = lines
		return err
	})
	g.Go(func() error {
		lines, err := readLines(stderrPipe)
		res.Stderr = lines
		return err
	})
	readErr := g.Wait()
	waitErr := session.Wait()

	if ctx.Err() != nil {
		return res, newError(ErrTransport, "exec", ctx.Err())
	}
	if waitErr != nil {
		var exitErr *ssh.ExitError
		if !errors.As(waitErr, &exitErr) {
			return res, classify("exec", fmt.Errorf("remote command failed: %w", waitErr))
		}
		res.ExitStatus = exitErr.ExitStatus()
	}
	if readErr != nil {
		return res, classify("exec", fmt.Errorf("failed to read remote output: %w", readErr))
	}
	return res, nil
}

// Close releases the connection and the agent socket. It is idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	if c.client != nil {
		err = c.client.Close()
		c.client = nil
	}
	if c.agentConn != nil {
		_ = c.agentConn.Close()
		c.agentConn = nil
	}
	return err
}

// authMethods prepares authentication methods in this order:
// 1. SSH key authentication if KeyPath is provided
// 2. SSH agent authentication if enabled and SSH_AUTH_SOCK is set
// 3. Password (and keyboard-interactive answered with it) if provided
func (c *Client) authMethods(t Target) ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod

	if t.KeyPath != "" {
		keyPath, resolveErr := config.ResolvePath(t.KeyPath)
		if resolveErr != nil {
			c.log().Warn("Could not resolve key path", "path", t.KeyPath, "error", resolveErr)
			keyPath = t.KeyPath
		}

		key, err := os.ReadFile(keyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key file %s: %w", keyPath, err)
		}

		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			var missing *ssh.PassphraseMissingError
			if !errors.As(err, &missing) {
				return nil, fmt.Errorf("failed to parse private key file %s: %w", keyPath, err)
			}
			c.log().Warn("Private key is encrypted and passphrase prompting is not supported. Skipping key.", "path", keyPath)
		} else {
			methods = append(methods, ssh.PublicKeys(signer))
		}
	}

	if c.opts.UseAgent {
		if socket := os.Getenv("SSH_AUTH_SOCK"); socket != "" {
			conn, err := net.Dial("unix", socket)
			if err != nil {
				c.log().Debug("ssh-agent unavailable", "socket", socket, "error", err)
			} else {
				c.agentConn = conn
				methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
			}
		}
	}

	if t.Password != "" {
		password := t.Password
		methods = append(methods,
			ssh.Password(password),
			ssh.KeyboardInteractive(func(name, instruction string, questions []string, echos []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}
				return answers, nil
			}),
		)
	}

	return methods, nil
}

// hostKeyCallback builds the verifier for the configured policy.
func (c *Client) hostKeyCallback(host string) (ssh.HostKeyCallback, error) {
	switch c.opts.HostKeyPolicy {
	case "", config.HostKeyAutoTrust:
		c.log().Warn("Host key will not be verified (auto-trust policy).", "host", host)
		return ssh.InsecureIgnoreHostKey(), nil
	case config.HostKeyKnownHosts:
		path, err := config.ResolvePath(c.opts.KnownHostsPath)
		if err != nil {
			return nil, err
		}
		if path == "" {
			return nil, errors.New("known-hosts policy selected but no known_hosts file configured")
		}
		callback, err := knownhosts.New(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load or parse known_hosts file %s: %w", path, err)
		}
		return callback, nil
	default:
		return nil, fmt.Errorf("unknown host key policy %q", c.opts.HostKeyPolicy)
	}
}

func readLines(r io.Reader) ([]string, error) {
	lines := []string{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineLength)
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), " \t\r"))
	}
	if err := scanner.Err(); err != nil {
		// Keep draining so the remote side never blocks on a full window.
		_, _ = io.Copy(io.Discard, r)
		return lines, err
	}
	return lines, nil
}
