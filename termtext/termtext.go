// Package termtext normalizes raw terminal output captured from interactive
// shells. Every function is pure: no I/O and no shared state.
package termtext

import (
	"regexp"
	"strings"
	"unicode"
)

// csiPattern matches ANSI CSI sequences: ESC [ params intermediates final.
var csiPattern = regexp.MustCompile(`\x1b\[[0-?]*[ -/]*[@-~]`)

const backspace = '\b'

// StripEscapeSequences removes ANSI CSI sequences. Removal is repeated until
// nothing matches, so nested fragments like "\x1b\x1b[0m[31m" cannot leave a
// sequence behind and the function is idempotent.
func StripEscapeSequences(text string) string {
	for {
		out := csiPattern.ReplaceAllString(text, "")
		if out == text {
			return out
		}
		text = out
	}
}

// ResolveBackspaces applies each backspace to the character retained before
// it. A backspace with nothing to erase is dropped.
func ResolveBackspaces(text string) string {
	if !strings.ContainsRune(text, backspace) {
		return text
	}
	stack := make([]rune, 0, len(text))
	for _, r := range text {
		if r != backspace {
			stack = append(stack, r)
			continue
		}
		if len(stack) > 0 {
			stack = stack[:len(stack)-1]
		}
	}
	return string(stack)
}

// Clean strips escape sequences and then resolves backspaces. This is the
// transform applied to every received chunk.
func Clean(text string) string {
	return ResolveBackspaces(StripEscapeSequences(text))
}

// FilterLines keeps the lines that match none of patterns, in order, joined
// with "\n".
func FilterLines(text string, patterns []*regexp.Regexp) string {
	lines := SplitLines(text)
	kept := lines[:0]
	for _, line := range lines {
		if matchesAny(line, patterns) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

func matchesAny(line string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p != nil && p.MatchString(line) {
			return true
		}
	}
	return false
}

// Dedent removes leading whitespace from every line on its own. Relative
// indentation is not preserved.
func Dedent(text string) string {
	lines := SplitLines(text)
	for i, line := range lines {
		lines[i] = strings.TrimLeftFunc(line, unicode.IsSpace)
	}
	return strings.Join(lines, "\n")
}

// SplitLines splits on "\r\n", "\r" and "\n". A trailing line break does not
// produce an empty final line, and the empty string yields no lines.
func SplitLines(text string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			lines = append(lines, text[start:i])
			start = i + 1
		case '\r':
			lines = append(lines, text[start:i])
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			start = i + 1
		}
	}
	if start < len(text) {
		lines = append(lines, text[start:])
	}
	return lines
}
