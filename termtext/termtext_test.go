package termtext

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveBackspaces(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"abc\bd", "abd"},
		{"\bab", "ab"},
		{"ab\b\b\b", ""},
		{"plain", "plain"},
		{"", ""},
		{"héllo\b\b", "hél"},
	}
	for _, c := range cases {
		require.Equal(t, c.want, ResolveBackspaces(c.in), "input %q", c.in)
	}
}

// TestResolveBackspaces_LengthAccounting checks that every annihilated pair
// removes exactly two characters from inputs whose backspaces all have
// something to erase.
func TestResolveBackspaces_LengthAccounting(t *testing.T) {
	inputs := []string{"abc\bd", "a\bb\bc\b", "xyz\b\b", "no backspace"}
	for _, in := range inputs {
		pairs := strings.Count(in, "\b")
		require.Len(t, ResolveBackspaces(in), len(in)-2*pairs, "input %q", in)
	}
}

func TestStripEscapeSequences(t *testing.T) {
	require.Equal(t, "RED", StripEscapeSequences("\x1b[31mRED\x1b[0m"))
	require.Equal(t, "prompt$ ", StripEscapeSequences("\x1b[1;32mprompt\x1b[0m$ \x1b[K"))
	require.Equal(t, "no escapes", StripEscapeSequences("no escapes"))
	// bare ESC not followed by '[' is not a CSI sequence
	require.Equal(t, "\x1bx", StripEscapeSequences("\x1bx"))
}

func TestStripEscapeSequences_Idempotent(t *testing.T) {
	inputs := []string{
		"\x1b[31mRED\x1b[0m",
		"\x1b\x1b[0m[31mnested",
		"\x1b[?25l\x1b[2J\x1b[Hcleared",
		"tail\x1b[",
	}
	for _, in := range inputs {
		once := StripEscapeSequences(in)
		require.Equal(t, once, StripEscapeSequences(once), "input %q", in)
	}
	require.Equal(t, "nested", StripEscapeSequences("\x1b\x1b[0m[31mnested"))
}

func TestClean(t *testing.T) {
	require.Equal(t, "abd", Clean("\x1b[7mabc\x1b[0m\bd"))
}

func TestFilterLines(t *testing.T) {
	text := "show version\nLine one\nrouter# \nLine two\nshow version again"
	patterns := []*regexp.Regexp{
		regexp.MustCompile(regexp.QuoteMeta("show version")),
		regexp.MustCompile(`# *$`),
	}
	got := FilterLines(text, patterns)
	require.Equal(t, "Line one\nLine two", got)
	for _, line := range SplitLines(got) {
		for _, p := range patterns {
			require.False(t, p.MatchString(line))
		}
	}
}

func TestFilterLines_NoPatternsKeepsOrder(t *testing.T) {
	require.Equal(t, "c\nb\na", FilterLines("c\r\nb\r\na\r\n", nil))
}

func TestDedent(t *testing.T) {
	require.Equal(t, "a\nb", Dedent("  a\n    b"))
	require.Equal(t, "x\ny\n", Dedent("\tx\n y\n\n"))
	for _, line := range SplitLines(Dedent(" one\n\t two\n   three")) {
		require.Equal(t, strings.TrimLeft(line, " \t"), line)
	}
}

func TestSplitLines(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{"a\n", []string{"a"}},
		{"a\r\nb\rc\nd", []string{"a", "b", "c", "d"}},
		{"a\n\nb", []string{"a", "", "b"}},
	}
	for _, c := range cases {
		require.Equal(t, c.want, SplitLines(c.in), "input %q", c.in)
	}
}
