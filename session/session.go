// Package session drives an interactive shell on a remote device: it connects
// with retries, opens a PTY shell, waits for the prompt and runs commands one
// at a time, normalizing the captured output.
//
// A Session moves through
//
//	unconnected -> connected -> shell_ready -> closed
//
// and ends in failed when an operation fails in a way that leaves the shell
// unusable (connect exhausted, shell allocation failed, prompt timeout, lost
// channel). Close is safe from every state.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"promptrun/logging"
	"promptrun/termtext"
)

// DefaultTimeout applies when a zero prompt or command timeout is given.
const DefaultTimeout = 30 * time.Second

// Pager describes the pagination interstitials of a device and the
// keystrokes that answer them.
type Pager struct {
	More    string
	End     string
	Advance string
	Quit    string
}

// DefaultPager handles "--More--" and "(END)" prompts.
var DefaultPager = Pager{More: "--More--", End: "(END)", Advance: " ", Quit: "q"}

// RetryPolicy bounds connection attempts. It does not apply to commands.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryPolicy makes three attempts three seconds apart.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, Delay: 3 * time.Second}

// Options tunes the polling loop and teardown. Zero fields take defaults.
type Options struct {
	Pager          Pager
	LineTerminator string
	RecvSize       int
	// ReadableWait bounds one wait for readability when no data is buffered.
	ReadableWait time.Duration
	// PollInterval is slept after a readability wait that saw nothing.
	PollInterval time.Duration
	// CloseWait is the pause between closing a resource and checking it.
	CloseWait time.Duration
	// Sleep implements the connect backoff. Tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
}

func (o Options) withDefaults() Options {
	if o.Pager == (Pager{}) {
		o.Pager = DefaultPager
	}
	if o.LineTerminator == "" {
		o.LineTerminator = "\n"
	}
	if o.RecvSize <= 0 {
		o.RecvSize = 4096
	}
	if o.ReadableWait <= 0 {
		o.ReadableWait = time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 100 * time.Millisecond
	}
	if o.CloseWait <= 0 {
		o.CloseWait = 500 * time.Millisecond
	}
	if o.Sleep == nil {
		o.Sleep = sleepContext
	}
	return o
}

// Session owns one connection and at most one shell channel. It is not meant
// to be shared; the mutex only keeps one send/receive cycle outstanding.
type Session struct {
	mu        sync.Mutex
	target    Target
	dialer    Dialer
	log       zerolog.Logger
	opts      Options
	conn      Connection
	ch        Channel
	state     State
	callbacks []StateCallback
}

// New returns an unconnected session for target.
func New(target Target, dialer Dialer, log zerolog.Logger, opts Options) *Session {
	return &Session{
		target: target,
		dialer: dialer,
		log:    log.With().Str("host", target.Host()).Str("device", target.Name()).Logger(),
		opts:   opts.withDefaults(),
		state:  StateUnconnected,
	}
}

// Target returns the device this session talks to.
func (s *Session) Target() Target { return s.target }

// Connect dials the target, retrying authentication and protocol failures
// according to policy. Socket errors end the attempt loop at once.
func (s *Session) Connect(ctx context.Context, policy RetryPolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateUnconnected {
		return fmt.Errorf("connect: session is %s", s.state)
	}
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	addr := s.target.Addr()
	s.log.Info().Str("addr", addr).Int("retries", attempts).Dur("delay", policy.Delay).Msg("connecting")

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		conn, err := s.dialer.Dial(ctx, s.target)
		if err == nil {
			s.conn = conn
			s.setState(StateConnected)
			s.log.Info().Str("addr", addr).Int("attempt", attempt).Msg("connected")
			return nil
		}
		lastErr = err

		var authErr *AuthError
		if !errors.As(err, &authErr) {
			s.log.Error().Err(err).Str("addr", addr).Msg("connection error, not retrying")
			s.setState(StateFailed)
			return &ConnectionError{Host: addr, Attempts: attempt, Err: err}
		}
		s.log.Warn().Err(err).Msgf("connection attempt %d/%d failed", attempt, attempts)
		if attempt == attempts {
			break
		}
		if err := s.opts.Sleep(ctx, policy.Delay); err != nil {
			s.setState(StateFailed)
			return &ConnectionError{Host: addr, Attempts: attempt, Err: err}
		}
	}

	s.log.Error().Err(lastErr).Msgf("failed to connect to %s after %d attempts", addr, attempts)
	s.setState(StateFailed)
	return &ConnectionError{Host: addr, Attempts: attempts, Err: lastErr}
}

// OpenShell allocates the interactive shell channel.
func (s *Session) OpenShell() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateConnected || s.conn == nil || !s.conn.IsActive() {
		s.log.Error().Str("state", s.state.String()).Msg("ssh client is not connected")
		return &NotConnectedError{Op: "open shell"}
	}
	ch, err := s.conn.OpenShell()
	if err != nil {
		s.log.Error().Err(err).Msg("failed to create interactive shell")
		s.setState(StateFailed)
		return &ShellCreationError{Err: err}
	}
	s.ch = ch
	s.setState(StateShellReady)
	s.log.Info().Msg("interactive shell created")
	return nil
}

// WaitForPrompt reads until the normalized output matches prompt.
func (s *Session) WaitForPrompt(prompt *regexp.Regexp, timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready("wait for prompt", prompt); err != nil {
		return err
	}
	if _, err := s.readUntil(prompt, timeout, nil); err != nil {
		s.log.Error().Err(err).Msg("prompt not detected")
		s.setState(StateFailed)
		return err
	}
	s.log.Info().Msg("prompt received")
	return nil
}

// ExecuteCommand sends cmd and collects its output up to the next prompt.
// Pager interstitials are answered and removed before the prompt is tested.
// The result has command echo and prompt lines removed and is dedented.
func (s *Session) ExecuteCommand(cmd string, prompt *regexp.Regexp, timeout time.Duration) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready("execute command", prompt); err != nil {
		return "", err
	}
	s.log.Info().Str("command", logging.Sanitize(cmd)).Msg("executing command")

	if err := s.ch.Send([]byte(cmd + s.opts.LineTerminator)); err != nil {
		s.setState(StateFailed)
		return "", fmt.Errorf("send command: %w", err)
	}
	raw, err := s.readUntil(prompt, timeout, s.answerPager)
	if err != nil {
		s.log.Error().Err(err).Str("command", logging.Sanitize(cmd)).Msg("command did not complete")
		s.setState(StateFailed)
		return "", err
	}

	echo := regexp.MustCompile(regexp.QuoteMeta(cmd))
	out := termtext.Dedent(termtext.FilterLines(raw, []*regexp.Regexp{echo, prompt}))
	s.log.Info().Int("bytes", len(out)).Msg("command executed")
	return out, nil
}

func (s *Session) ready(op string, prompt *regexp.Regexp) error {
	if s.state != StateShellReady || s.ch == nil {
		s.log.Error().Str("state", s.state.String()).Msgf("%s: shell channel is not initialized", op)
		return &NotReadyError{Op: op, State: s.state}
	}
	if s.ch.Closed() && !s.ch.RecvReady() {
		s.log.Error().Msgf("%s: shell channel is not active", op)
		s.setState(StateFailed)
		return &NotReadyError{Op: op, State: s.state}
	}
	if prompt == nil {
		return fmt.Errorf("%s: nil prompt pattern", op)
	}
	return nil
}

// answerPager sends one Advance per More marker and one Quit per End marker
// found in chunk and returns chunk without the markers.
func (s *Session) answerPager(chunk string) (string, error) {
	p := s.opts.Pager
	if p.More != "" {
		if n := strings.Count(chunk, p.More); n > 0 {
			for i := 0; i < n; i++ {
				if err := s.ch.Send([]byte(p.Advance)); err != nil {
					return chunk, fmt.Errorf("advance pager: %w", err)
				}
			}
			chunk = strings.ReplaceAll(chunk, p.More, "")
		}
	}
	if p.End != "" {
		if n := strings.Count(chunk, p.End); n > 0 {
			for i := 0; i < n; i++ {
				if err := s.ch.Send([]byte(p.Quit)); err != nil {
					return chunk, fmt.Errorf("quit pager: %w", err)
				}
			}
			chunk = strings.ReplaceAll(chunk, p.End, "")
		}
	}
	return chunk, nil
}

// readUntil polls the channel until prompt matches the normalized
// accumulation or timeout elapses. rewrite, when set, sees every raw chunk
// before normalization.
func (s *Session) readUntil(prompt *regexp.Regexp, timeout time.Duration, rewrite func(string) (string, error)) (string, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	deadline := time.Now().Add(timeout)
	var acc strings.Builder

	for {
		if s.ch.RecvReady() {
			b, err := s.ch.Recv(s.opts.RecvSize)
			if err != nil && !errors.Is(err, io.EOF) {
				return acc.String(), fmt.Errorf("receive: %w", err)
			}
			chunk := strings.ToValidUTF8(string(b), "")
			if rewrite != nil {
				if chunk, err = rewrite(chunk); err != nil {
					return acc.String(), err
				}
			}
			acc.WriteString(termtext.Clean(chunk))
			if prompt.MatchString(acc.String()) {
				return acc.String(), nil
			}
		} else if s.ch.Closed() && !s.ch.RecvReady() {
			return acc.String(), fmt.Errorf("waiting for prompt %q: %w", prompt.String(), ErrChannelClosed)
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return acc.String(), &PromptTimeoutError{Pattern: prompt.String(), Timeout: timeout, Tail: tail(acc.String(), 200)}
		}
		if s.ch.RecvReady() {
			continue
		}
		if s.ch.WaitReadable(minDuration(s.opts.ReadableWait, remaining)) {
			continue
		}
		time.Sleep(minDuration(s.opts.PollInterval, time.Until(deadline)))
	}
}

// Close releases the channel, then the connection. It never fails; a
// resource that does not report closed after CloseWait is logged as a
// warning. Calls after the first return immediately.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		s.log.Debug().Msg("session already closed")
		return
	}
	s.closeChannel()
	s.closeConnection()
	s.setState(StateClosed)
}

func (s *Session) closeChannel() {
	switch {
	case s.ch == nil:
		s.log.Info().Msg("ssh channel is not initialized")
	case s.ch.Closed():
		s.log.Info().Msg("ssh channel is already closed")
	default:
		if err := s.ch.Close(); err != nil {
			s.log.Debug().Err(err).Msg("close ssh channel")
		}
		time.Sleep(s.opts.CloseWait)
		if s.ch.Closed() {
			s.log.Info().Msg("ssh channel closed successfully")
		} else {
			s.log.Warn().Msg("failed to close the ssh channel")
		}
	}
}

func (s *Session) closeConnection() {
	if s.conn == nil {
		s.log.Info().Msg("ssh client is not initialized")
		return
	}
	if !s.conn.IsActive() {
		// an unresponsive peer also lands here; release the transport anyway
		s.log.Info().Msg("ssh connection is already closed or not responding")
		if err := s.conn.Close(); err != nil {
			s.log.Debug().Err(err).Msg("close ssh connection")
		}
		return
	}
	if err := s.conn.Close(); err != nil {
		s.log.Debug().Err(err).Msg("close ssh connection")
	}
	time.Sleep(s.opts.CloseWait)
	if !s.conn.IsActive() {
		s.log.Info().Msg("ssh connection closed successfully")
	} else {
		s.log.Warn().Msg("failed to close the ssh connection")
	}
}

// WithShell connects, opens the shell and waits for prompt, then runs fn.
// The session is closed on every return path.
func WithShell(ctx context.Context, s *Session, policy RetryPolicy, prompt *regexp.Regexp, timeout time.Duration, fn func(*Session) error) error {
	defer s.Close()

	if err := s.Connect(ctx, policy); err != nil {
		return err
	}
	if err := s.OpenShell(); err != nil {
		return err
	}
	if err := s.WaitForPrompt(prompt, timeout); err != nil {
		return err
	}
	return fn(s)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

// tail returns at most the last n bytes of s, starting on a rune boundary.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	i := len(s) - n
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return s[i:]
}
