package runner

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"promptrun/session"
)

func TestParseScript(t *testing.T) {
	cmds, err := ParseScript(strings.NewReader("show version\r\n\n   \n  show ip int brief  \nterminal length 0"))
	require.NoError(t, err)
	require.Equal(t, []string{"show version", "show ip int brief", "terminal length 0"}, cmds)

	cmds, err = ParseScript(strings.NewReader("\n\n"))
	require.NoError(t, err)
	require.Empty(t, cmds)
}

func TestCheckScript(t *testing.T) {
	dir := t.TempDir()
	var srcErr *session.CommandSourceError

	require.ErrorAs(t, CheckScript(""), &srcErr)
	require.ErrorAs(t, CheckScript(filepath.Join(dir, "missing.txt")), &srcErr)
	require.Equal(t, filepath.Join(dir, "missing.txt"), srcErr.Path)
	require.ErrorAs(t, CheckScript(dir), &srcErr)

	ok := writeTemp(t, dir, "ok.txt", "a\n")
	require.NoError(t, CheckScript(ok))
}

func TestLoadScript_Unreadable(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can read files regardless of mode")
	}
	p := writeTemp(t, t.TempDir(), "locked.txt", "a\n")
	require.NoError(t, os.Chmod(p, 0o000))
	_, err := LoadScript(p)
	var srcErr *session.CommandSourceError
	require.ErrorAs(t, err, &srcErr)
}
