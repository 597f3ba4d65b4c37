package runner

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"promptrun/session"
)

const maxLine = 1 << 20

// ParseScript returns the trimmed, non-blank lines of r in order. Lines are
// otherwise sent verbatim; there is no quoting or comment syntax.
func ParseScript(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLine)
	var cmds []string
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		cmds = append(cmds, line)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return cmds, nil
}

// CheckScript verifies that path names a readable regular file.
func CheckScript(path string) error {
	if strings.TrimSpace(path) == "" {
		return &session.CommandSourceError{Err: errors.New("no command script configured")}
	}
	fi, err := os.Stat(path)
	if err != nil {
		return &session.CommandSourceError{Path: path, Err: err}
	}
	if !fi.Mode().IsRegular() {
		return &session.CommandSourceError{Path: path, Err: fmt.Errorf("not a regular file (%s)", fi.Mode().Type())}
	}
	f, err := os.Open(path)
	if err != nil {
		return &session.CommandSourceError{Path: path, Err: err}
	}
	return f.Close()
}

// LoadScript checks and parses the script at path.
func LoadScript(path string) ([]string, error) {
	if err := CheckScript(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, &session.CommandSourceError{Path: path, Err: err}
	}
	defer f.Close()
	cmds, err := ParseScript(f)
	if err != nil {
		return nil, &session.CommandSourceError{Path: path, Err: err}
	}
	return cmds, nil
}
