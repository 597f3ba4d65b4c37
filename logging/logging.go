// Package logging builds the zerolog logger shared by the CLI, the runner and
// the session layer. Output goes to stderr in console format and, when a log
// file is configured, as JSON lines appended to that file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options configures New.
type Options struct {
	// Path of the log file. Empty disables file logging.
	Path string
	// Level is a zerolog level name ("debug", "info", ...). Empty means info.
	Level string
	// Console receives the human readable stream. Nil means os.Stderr.
	Console io.Writer
}

// New returns a logger and a close function releasing the log file. The log
// file is opened in append mode so successive runs accumulate.
func New(opts Options) (zerolog.Logger, func() error, error) {
	level := zerolog.InfoLevel
	if s := strings.TrimSpace(opts.Level); s != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(s))
		if err != nil {
			return zerolog.Nop(), nop, fmt.Errorf("log level %q: %w", s, err)
		}
		level = l
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	writers := []io.Writer{zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339, NoColor: true}}

	closeFn := nop
	if opts.Path != "" {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
			return zerolog.Nop(), nop, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), nop, fmt.Errorf("open log file %s: %w", opts.Path, err)
		}
		writers = append(writers, f)
		closeFn = f.Close
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()
	return logger, closeFn, nil
}

func nop() error { return nil }

// Sanitize removes line breaks and control characters from user-provided
// strings so they cannot forge extra log lines.
func Sanitize(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= 32 && r != 127 {
			b.WriteRune(r)
		}
	}
	return b.String()
}
