package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// Happy path: Execute() should not call exitFunc when rootCmd succeeds.
func TestExecute_Success_NoExit(t *testing.T) {
	resetConfig()
	origExit := exitFunc
	t.Cleanup(func() { exitFunc = origExit })
	calledExit := -1
	exitFunc = func(code int) { calledExit = code }

	tmp := t.TempDir()
	script := writeTemp(t, tmp, "cmds.txt", "show version\n")
	cfg := writeTemp(t, tmp, "config.yaml", inventory(tmp, device("edge-1", 22, script)))
	rootCmd.SetArgs([]string{"verify", "--config", cfg})

	Execute()
	require.Equal(t, -1, calledExit)
}

// Sad path: any error exits with status 1.
func TestExecute_Failure_Exit1(t *testing.T) {
	resetConfig()
	origExit := exitFunc
	t.Cleanup(func() { exitFunc = origExit })
	code := 0
	exitFunc = func(c int) { code = c }

	rootCmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "absent.yaml")})
	Execute()
	require.Equal(t, 1, code)
}
