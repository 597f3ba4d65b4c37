package session

import (
	"context"
	"io"
	"sync"
	"time"
)

// fakeChannel is a scripted shell channel. reply is called for every Send
// and may push output.
type fakeChannel struct {
	mu       sync.Mutex
	buf      []byte
	sent     []string
	closed   bool
	stuck    bool
	closeErr error
	reply    func(c *fakeChannel, sent string)
}

func (c *fakeChannel) push(s string) {
	c.mu.Lock()
	c.buf = append(c.buf, s...)
	c.mu.Unlock()
}

func (c *fakeChannel) Send(p []byte) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrChannelClosed
	}
	c.sent = append(c.sent, string(p))
	reply := c.reply
	c.mu.Unlock()
	if reply != nil {
		reply(c, string(p))
	}
	return nil
}

func (c *fakeChannel) RecvReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buf) > 0
}

func (c *fakeChannel) Recv(max int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.buf) == 0 {
		if c.closed {
			return nil, io.EOF
		}
		return nil, nil
	}
	n := min(max, len(c.buf))
	out := append([]byte(nil), c.buf[:n]...)
	c.buf = c.buf[n:]
	return out, nil
}

func (c *fakeChannel) WaitReadable(d time.Duration) bool {
	if c.RecvReady() {
		return true
	}
	time.Sleep(min(d, 2*time.Millisecond))
	return c.RecvReady()
}

func (c *fakeChannel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.stuck {
		c.closed = true
	}
	return c.closeErr
}

func (c *fakeChannel) sends() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

type fakeConn struct {
	mu      sync.Mutex
	active  bool
	ch      *fakeChannel
	openErr error
	opened  int
	closes  int
}

func (c *fakeConn) IsActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

func (c *fakeConn) OpenShell() (Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opened++
	if c.openErr != nil {
		return nil, c.openErr
	}
	return c.ch, nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
	c.active = false
	return nil
}

// fakeDialer returns errs in order, then conn.
type fakeDialer struct {
	errs  []error
	conn  *fakeConn
	calls int
}

func (d *fakeDialer) Dial(ctx context.Context, target Target) (Connection, error) {
	d.calls++
	if d.calls <= len(d.errs) && d.errs[d.calls-1] != nil {
		return nil, d.errs[d.calls-1]
	}
	return d.conn, nil
}

// recordSleeps replaces the backoff sleep.
type recordSleeps struct {
	mu     sync.Mutex
	delays []time.Duration
	err    error
}

func (r *recordSleeps) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return r.err
}
