// Package sshserv runs an in-process SSH server that behaves like a small
// network device: it grants an interactive PTY shell, prints a banner and a
// prompt, echoes typed characters and answers commands from a fixed table,
// optionally paginating long output behind "--More--".
package sshserv

import (
	"bufio"
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"
)

// DefaultPrompt ends every response.
const DefaultPrompt = "tester@device:~$ "

const colorPrompt = "\x1b[01;32mtester@device\x1b[00m:\x1b[01;34m~\x1b[00m$ "

// Config describes the emulated device.
type Config struct {
	// Addr defaults to 127.0.0.1:0.
	Addr string
	// Users maps username to password. Empty accepts any password.
	Users map[string]string
	// AuthorizedKeys enables public key auth for any user.
	AuthorizedKeys []ssh.PublicKey
	// RejectFirst fails the first N authentication attempts regardless of
	// credentials.
	RejectFirst int
	Banner      string
	// Prompt defaults to DefaultPrompt. ColorPrompt wraps the default prompt
	// in ANSI color sequences instead.
	Prompt      string
	ColorPrompt bool
	// Responses maps a command line to its output. Unknown commands get an
	// error line.
	Responses map[string]string
	// PageSize > 0 paginates output, pausing at "--More--" until a space
	// (next page) or "q" (stop) arrives.
	PageSize int
	// EndMarker shows "(END)" after paginated output and waits for "q".
	EndMarker bool
	// Hang lists commands that never return to the prompt.
	Hang []string
}

// Server is a running device emulator.
type Server struct {
	cfg     Config
	ln      net.Listener
	hostKey ssh.Signer
	stopCh  chan struct{}
	done    chan struct{}

	mu       sync.Mutex
	attempts int
	received []string
	keys     []string
}

// Start listens on cfg.Addr and serves until Close.
func Start(cfg Config) (*Server, error) {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:0"
	}
	if cfg.Prompt == "" {
		cfg.Prompt = DefaultPrompt
		if cfg.ColorPrompt {
			cfg.Prompt = colorPrompt
		}
	}
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		return nil, err
	}
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:     cfg,
		ln:      ln,
		hostKey: signer,
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}

	sc := &ssh.ServerConfig{
		PasswordCallback: s.checkPassword,
	}
	if len(cfg.AuthorizedKeys) > 0 {
		sc.PublicKeyCallback = s.checkKey
	}
	sc.AddHostKey(signer)

	go func() {
		defer close(s.done)
		for {
			if tl, ok := ln.(*net.TCPListener); ok {
				_ = tl.SetDeadline(time.Now().Add(500 * time.Millisecond))
			}
			conn, err := ln.Accept()
			select {
			case <-s.stopCh:
				if conn != nil {
					_ = conn.Close()
				}
				return
			default:
			}
			if err != nil {
				continue
			}
			go s.handleConn(conn, sc)
		}
	}()
	return s, nil
}

// Addr is the host:port the server listens on.
func (s *Server) Addr() string { return s.ln.Addr().String() }

// Port is the listening TCP port.
func (s *Server) Port() int { return s.ln.Addr().(*net.TCPAddr).Port }

// HostKey returns the server's public host key.
func (s *Server) HostKey() ssh.PublicKey { return s.hostKey.PublicKey() }

// AuthAttempts counts authentication attempts seen so far.
func (s *Server) AuthAttempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

// Received returns the command lines executed so far.
func (s *Server) Received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.received...)
}

// PagerKeys returns the keystrokes received while paused in the pager.
func (s *Server) PagerKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.keys...)
}

// Close stops accepting connections and waits for the accept loop.
func (s *Server) Close() {
	close(s.stopCh)
	_ = s.ln.Close()
	<-s.done
}

func (s *Server) countAttempt() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	return s.attempts > s.cfg.RejectFirst
}

func (s *Server) checkPassword(meta ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
	if !s.countAttempt() {
		return nil, errors.New("rejected")
	}
	if len(s.cfg.Users) == 0 {
		return nil, nil
	}
	if want, ok := s.cfg.Users[meta.User()]; ok && want == string(pass) {
		return nil, nil
	}
	return nil, fmt.Errorf("password rejected for %q", meta.User())
}

func (s *Server) checkKey(meta ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
	if !s.countAttempt() {
		return nil, errors.New("rejected")
	}
	for _, k := range s.cfg.AuthorizedKeys {
		if bytes.Equal(k.Marshal(), key.Marshal()) {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("unknown public key for %q", meta.User())
}

func (s *Server) handleConn(raw net.Conn, cfg *ssh.ServerConfig) {
	_, chans, reqs, err := ssh.NewServerConn(raw, cfg)
	if err != nil {
		_ = raw.Close()
		return
	}
	go ssh.DiscardRequests(reqs)
	for ch := range chans {
		if ch.ChannelType() != "session" {
			_ = ch.Reject(ssh.UnknownChannelType, "")
			continue
		}
		c, in, err := ch.Accept()
		if err != nil {
			continue
		}
		go s.handleSession(c, in)
	}
}

func (s *Server) handleSession(ch ssh.Channel, in <-chan *ssh.Request) {
	started := false
	for req := range in {
		switch req.Type {
		case "pty-req", "window-change", "env":
			_ = req.Reply(true, nil)
		case "shell":
			_ = req.Reply(!started, nil)
			if !started {
				started = true
				go s.serveShell(ch)
			}
		default:
			// devices in this mode have no exec support
			_ = req.Reply(false, nil)
		}
	}
	if !started {
		_ = ch.Close()
	}
}

func (s *Server) serveShell(ch ssh.Channel) {
	defer ch.Close()
	r := bufio.NewReader(ch)
	if s.cfg.Banner != "" {
		writeLines(ch, s.cfg.Banner)
	}
	_, _ = ch.Write([]byte(s.cfg.Prompt))

	var line []byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			return
		}
		switch b {
		case '\r':
		case '\n':
			_, _ = ch.Write([]byte("\r\n"))
			cmd := strings.TrimSpace(string(line))
			line = line[:0]
			if cmd == "" {
				_, _ = ch.Write([]byte(s.cfg.Prompt))
				continue
			}
			if cmd == "exit" {
				_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{0}))
				return
			}
			s.mu.Lock()
			s.received = append(s.received, cmd)
			s.mu.Unlock()
			if s.hangs(cmd) {
				continue
			}
			if err := s.writeOutput(ch, r, s.respond(cmd)); err != nil {
				return
			}
			_, _ = ch.Write([]byte(s.cfg.Prompt))
		default:
			line = append(line, b)
			_, _ = ch.Write([]byte{b})
		}
	}
}

func (s *Server) hangs(cmd string) bool {
	for _, h := range s.cfg.Hang {
		if h == cmd {
			return true
		}
	}
	return false
}

func (s *Server) respond(cmd string) string {
	if out, ok := s.cfg.Responses[cmd]; ok {
		return out
	}
	return "% Unknown command: " + cmd
}

// writeOutput writes out page by page, consuming pager keystrokes from r.
func (s *Server) writeOutput(ch ssh.Channel, r *bufio.Reader, out string) error {
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if out == "" {
		lines = nil
	}
	if s.cfg.PageSize <= 0 {
		for _, l := range lines {
			_, _ = ch.Write([]byte(l + "\r\n"))
		}
		return nil
	}
	for i := 0; i < len(lines); i += s.cfg.PageSize {
		end := min(i+s.cfg.PageSize, len(lines))
		for _, l := range lines[i:end] {
			_, _ = ch.Write([]byte(l + "\r\n"))
		}
		if end == len(lines) {
			break
		}
		_, _ = ch.Write([]byte("--More--"))
		key, err := s.pagerKey(r)
		if err != nil {
			return err
		}
		_, _ = ch.Write([]byte("\x1b[K"))
		if key == 'q' {
			return nil
		}
	}
	if s.cfg.EndMarker && len(lines) > 0 {
		_, _ = ch.Write([]byte("(END)"))
		for {
			key, err := s.pagerKey(r)
			if err != nil {
				return err
			}
			if key == 'q' {
				break
			}
		}
		_, _ = ch.Write([]byte("\x1b[K"))
	}
	return nil
}

func (s *Server) pagerKey(r *bufio.Reader) (byte, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.keys = append(s.keys, string(b))
	s.mu.Unlock()
	return b, nil
}

func writeLines(ch ssh.Channel, text string) {
	for _, l := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		_, _ = ch.Write([]byte(l + "\r\n"))
	}
}
