package session

import (
	"errors"
	"fmt"
	"time"
)

// ErrChannelClosed reports that the remote side closed the shell channel
// while output was still expected.
var ErrChannelClosed = errors.New("shell channel closed by remote")

// ConfigurationError reports an invalid device record.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "configuration: " + e.Reason
	}
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}

// ConnectionError reports that no connection could be established, either
// because retries were exhausted or because the failure was fatal.
type ConnectionError struct {
	Host     string
	Attempts int
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect to %s failed after %d attempt(s): %v", e.Host, e.Attempts, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// NotConnectedError reports an operation that needs an active connection.
type NotConnectedError struct {
	Op string
}

func (e *NotConnectedError) Error() string {
	return fmt.Sprintf("%s: ssh client is not connected", e.Op)
}

// NotReadyError reports an operation that needs an open shell channel.
type NotReadyError struct {
	Op    string
	State State
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("%s: shell channel is not ready (state %s)", e.Op, e.State)
}

// ShellCreationError reports a failure to allocate the interactive channel.
type ShellCreationError struct {
	Err error
}

func (e *ShellCreationError) Error() string {
	return fmt.Sprintf("create interactive shell: %v", e.Err)
}

func (e *ShellCreationError) Unwrap() error { return e.Err }

// PromptTimeoutError reports that the prompt did not appear in time. Tail
// holds the end of the normalized output seen so far.
type PromptTimeoutError struct {
	Pattern string
	Timeout time.Duration
	Tail    string
}

func (e *PromptTimeoutError) Error() string {
	return fmt.Sprintf("prompt %q not detected within %s", e.Pattern, e.Timeout)
}

// CommandSourceError reports a missing or unreadable command script.
type CommandSourceError struct {
	Path string
	Err  error
}

func (e *CommandSourceError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("command source: %v", e.Err)
	}
	return fmt.Sprintf("command source %s: %v", e.Path, e.Err)
}

func (e *CommandSourceError) Unwrap() error { return e.Err }
