package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// DefaultCiphers restricts negotiation to the CTR-mode AES ciphers older
// network gear still speaks.
var DefaultCiphers = []string{"aes128-ctr", "aes192-ctr", "aes256-ctr"}

// PTY describes the pseudo-terminal requested for the shell.
type PTY struct {
	Term   string
	Width  int
	Height int
}

// DefaultPTY matches a plain 80x24 vt100.
var DefaultPTY = PTY{Term: "vt100", Width: 80, Height: 24}

// SSHDialer dials devices with golang.org/x/crypto/ssh.
type SSHDialer struct {
	Ciphers        []string
	KnownHostsPath string
	// StrictHostKey rejects hosts missing from KnownHostsPath and fails when
	// the file does not exist. Otherwise unknown hosts are accepted while
	// mismatching keys are still rejected.
	StrictHostKey bool
	Timeout       time.Duration
	// ProbeTimeout bounds the keepalive round trip behind IsActive.
	ProbeTimeout time.Duration
	PTY          PTY
}

// DefaultProbeTimeout applies when SSHDialer.ProbeTimeout is zero.
const DefaultProbeTimeout = 2 * time.Second

// Dial connects and authenticates. TCP failures come back as *SocketError,
// handshake and authentication failures as *AuthError.
func (d *SSHDialer) Dial(ctx context.Context, target Target) (Connection, error) {
	auth, err := authMethod(target.Credential())
	if err != nil {
		return nil, err
	}
	hostKeyCB, err := d.hostKeyCallback()
	if err != nil {
		return nil, err
	}
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	cfg := &ssh.ClientConfig{
		User:            target.Username(),
		Auth:            []ssh.AuthMethod{auth},
		HostKeyCallback: hostKeyCB,
		Timeout:         timeout,
	}
	cfg.Ciphers = d.Ciphers
	if len(cfg.Ciphers) == 0 {
		cfg.Ciphers = DefaultCiphers
	}

	addr := target.Addr()
	nd := net.Dialer{Timeout: timeout}
	conn, err := nd.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &SocketError{Err: err}
	}
	// the handshake gets the same budget as the TCP dial
	_ = conn.SetDeadline(time.Now().Add(timeout))
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, cfg)
	if err != nil {
		_ = conn.Close()
		return nil, &AuthError{Err: err}
	}
	_ = conn.SetDeadline(time.Time{})

	pty := d.PTY
	if pty.Term == "" {
		pty = DefaultPTY
	}
	probe := d.ProbeTimeout
	if probe <= 0 {
		probe = DefaultProbeTimeout
	}
	sc := &sshConnection{client: ssh.NewClient(c, chans, reqs), pty: pty, probeTimeout: probe}
	go func() {
		_ = sc.client.Wait()
		sc.closed.Store(true)
	}()
	return sc, nil
}

func authMethod(cred Credential) (ssh.AuthMethod, error) {
	switch c := cred.(type) {
	case Password:
		return ssh.Password(string(c)), nil
	case KeyFile:
		signer, err := loadSigner(c.Path, c.Passphrase)
		if err != nil {
			return nil, fmt.Errorf("load key %s: %w", c.Path, err)
		}
		return ssh.PublicKeys(signer), nil
	default:
		return nil, &ConfigurationError{Field: "credential", Reason: fmt.Sprintf("unsupported credential %T", cred)}
	}
}

// loadSigner loads a private key with optional passphrase
func loadSigner(path, passphrase string) (ssh.Signer, error) {
	b, err := os.ReadFile(expandHome(path))
	if err != nil {
		return nil, err
	}
	if passphrase != "" {
		return ssh.ParsePrivateKeyWithPassphrase(b, []byte(passphrase))
	}
	s, err := ssh.ParsePrivateKey(b)
	if err == nil {
		return s, nil
	}
	var passphraseMissingError *ssh.PassphraseMissingError
	if errors.As(err, &passphraseMissingError) {
		return nil, fmt.Errorf("private key is encrypted; set passphrase for this device")
	}
	return nil, err
}

func (d *SSHDialer) hostKeyCallback() (ssh.HostKeyCallback, error) {
	path := expandHome(d.KnownHostsPath)
	if path == "" {
		if d.StrictHostKey {
			return nil, errors.New("strict host key checking needs a known_hosts path")
		}
		return ssh.InsecureIgnoreHostKey(), nil
	}
	if _, err := os.Stat(path); err != nil {
		if d.StrictHostKey {
			return nil, fmt.Errorf("known_hosts file not found at %s and strict host key checking is enabled", path)
		}
		return ssh.InsecureIgnoreHostKey(), nil
	}
	cb, err := knownhosts.New(path)
	if err != nil {
		return nil, fmt.Errorf("known_hosts: %w", err)
	}
	if d.StrictHostKey {
		return cb, nil
	}
	return func(hostname string, remote net.Addr, key ssh.PublicKey) error {
		err := cb(hostname, remote, key)
		var keyErr *knownhosts.KeyError
		if errors.As(err, &keyErr) && len(keyErr.Want) == 0 {
			return nil
		}
		return err
	}, nil
}

func expandHome(p string) string {
	p = strings.TrimSpace(p)
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

type sshConnection struct {
	client       *ssh.Client
	pty          PTY
	probeTimeout time.Duration
	closed       atomic.Bool
}

// IsActive probes the transport with a keepalive request. A peer that does
// not answer within probeTimeout counts as inactive.
func (c *sshConnection) IsActive() bool {
	if c.closed.Load() {
		return false
	}
	res := make(chan error, 1)
	go func() {
		_, _, err := c.client.SendRequest("keepalive@openssh.com", true, nil)
		res <- err
	}()
	t := time.NewTimer(c.probeTimeout)
	defer t.Stop()
	select {
	case err := <-res:
		return err == nil
	case <-t.C:
		return false
	}
}

func (c *sshConnection) OpenShell() (Channel, error) {
	sess, err := c.client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("new session: %w", err)
	}
	buf := newOutputBuffer()
	sess.Stdout = buf
	sess.Stderr = buf
	stdin, err := sess.StdinPipe()
	if err != nil {
		_ = sess.Close()
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	modes := ssh.TerminalModes{
		ssh.ECHO:          1,
		ssh.TTY_OP_ISPEED: 14400,
		ssh.TTY_OP_OSPEED: 14400,
	}
	if err := sess.RequestPty(c.pty.Term, c.pty.Height, c.pty.Width, modes); err != nil {
		_ = sess.Close()
		return nil, fmt.Errorf("request pty: %w", err)
	}
	if err := sess.Shell(); err != nil {
		_ = sess.Close()
		return nil, fmt.Errorf("start shell: %w", err)
	}
	go func() {
		_ = sess.Wait()
		buf.Close()
	}()
	return &sshChannel{sess: sess, stdin: stdin, buf: buf}, nil
}

func (c *sshConnection) Close() error {
	c.closed.Store(true)
	return c.client.Close()
}

type sshChannel struct {
	sess   *ssh.Session
	stdin  io.WriteCloser
	buf    *outputBuffer
	closed atomic.Bool
}

func (c *sshChannel) Send(p []byte) error {
	if c.Closed() {
		return ErrChannelClosed
	}
	_, err := c.stdin.Write(p)
	return err
}

func (c *sshChannel) RecvReady() bool { return c.buf.Len() > 0 }

func (c *sshChannel) Recv(max int) ([]byte, error) { return c.buf.Next(max) }

func (c *sshChannel) WaitReadable(d time.Duration) bool { return c.buf.Wait(d) }

func (c *sshChannel) Closed() bool { return c.closed.Load() || c.buf.Closed() }

func (c *sshChannel) Close() error {
	c.closed.Store(true)
	err := c.sess.Close()
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// outputBuffer collects remote output written by the ssh library and lets
// the reader wait for new data.
type outputBuffer struct {
	mu     sync.Mutex
	data   []byte
	closed bool
	notify chan struct{}
}

func newOutputBuffer() *outputBuffer {
	return &outputBuffer{notify: make(chan struct{}, 1)}
}

func (b *outputBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	b.data = append(b.data, p...)
	b.mu.Unlock()
	b.signal()
	return len(p), nil
}

// Close marks the end of remote output. Buffered data stays readable.
func (b *outputBuffer) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	b.signal()
}

func (b *outputBuffer) signal() {
	select {
	case b.notify <- struct{}{}:
	default:
	}
}

func (b *outputBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

func (b *outputBuffer) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Next removes and returns up to max buffered bytes.
func (b *outputBuffer) Next(max int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.data) == 0 {
		if b.closed {
			return nil, io.EOF
		}
		return nil, nil
	}
	n := len(b.data)
	if max > 0 && n > max {
		n = max
	}
	out := make([]byte, n)
	copy(out, b.data[:n])
	b.data = b.data[n:]
	return out, nil
}

// Wait blocks up to d for data and reports whether any is buffered.
func (b *outputBuffer) Wait(d time.Duration) bool {
	if b.Len() > 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-b.notify:
	case <-t.C:
	}
	return b.Len() > 0
}
