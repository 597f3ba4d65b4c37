package session

import (
	"context"
	"fmt"
	"time"
)

// Dialer opens an authenticated connection to a target. Implementations
// classify failures as *AuthError (retryable) or *SocketError (fatal); any
// other error is treated as fatal too.
type Dialer interface {
	Dial(ctx context.Context, target Target) (Connection, error)
}

// Connection is an authenticated transport connection.
type Connection interface {
	IsActive() bool
	OpenShell() (Channel, error)
	Close() error
}

// Channel is the byte-oriented duplex stream of an interactive shell.
type Channel interface {
	Send(p []byte) error
	// RecvReady reports whether Recv would return data without waiting.
	RecvReady() bool
	// Recv returns up to max buffered bytes. It does not block; with nothing
	// buffered it returns an empty slice, or io.EOF once the channel closed.
	Recv(max int) ([]byte, error)
	// WaitReadable waits up to d for data and reports whether any is ready.
	WaitReadable(d time.Duration) bool
	Closed() bool
	Close() error
}

// AuthError wraps an authentication or SSH protocol failure. Connect retries
// these.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string { return fmt.Sprintf("authentication failed: %v", e.Err) }

func (e *AuthError) Unwrap() error { return e.Err }

// SocketError wraps a transport-level failure such as a refused or timed out
// TCP dial. Connect never retries these.
type SocketError struct {
	Err error
}

func (e *SocketError) Error() string { return fmt.Sprintf("socket error: %v", e.Err) }

func (e *SocketError) Unwrap() error { return e.Err }
