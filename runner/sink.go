package runner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"promptrun/session"
)

// Sink receives the cleaned output of every command.
type Sink interface {
	Write(target session.Target, output string) error
}

// UnknownName replaces an empty device name in output file names.
const UnknownName = "unknown_host"

// FileSink appends output to one file per device under Dir/output. Runs
// accumulate; nothing is truncated.
type FileSink struct {
	Dir string
	mu  sync.Mutex
}

// Path returns the output file for target.
func (s *FileSink) Path(target session.Target) string {
	name := target.Name()
	if name == "" {
		name = UnknownName
	}
	file := fmt.Sprintf("output_%s_%s.txt", safeName(target.Host()), safeName(name))
	return filepath.Join(s.Dir, "output", file)
}

func (s *FileSink) Write(target session.Target, output string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.Path(target)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	if _, err := f.WriteString(output + "\n"); err != nil {
		_ = f.Close()
		return fmt.Errorf("write output file: %w", err)
	}
	return f.Close()
}

var nameReplacer = strings.NewReplacer("/", "_", "\\", "_", ":", "_", "..", "_")

func safeName(s string) string {
	return nameReplacer.Replace(strings.TrimSpace(s))
}
