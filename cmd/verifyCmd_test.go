package cmd

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"promptrun/session"
)

// TestVerify_Succeeds_OnValidConfig verifies that verify accepts an inventory
// whose scripts exist and does not connect anywhere.
func TestVerify_Succeeds_OnValidConfig(t *testing.T) {
	resetConfig()
	d := &countingDialer{}
	orig := newDialerFunc
	t.Cleanup(func() { newDialerFunc = orig })
	newDialerFunc = func(generalConfig) session.Dialer { return d }

	tmp := t.TempDir()
	script := writeTemp(t, tmp, "cmds.txt", "show version\n")
	cfg := writeTemp(t, tmp, "config.yaml", inventory(tmp, device("edge-1", 22, script), device("edge-2", 22, script)))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"verify", "--config", cfg})
	require.NoError(t, rootCmd.Execute())
	require.Equal(t, "Config OK: 2 device(s)\n", out.String())
	require.Zero(t, d.calls)
}

func TestVerify_Errors_OnMissingScript(t *testing.T) {
	resetConfig()
	tmp := t.TempDir()
	cfg := writeTemp(t, tmp, "config.yaml", inventory(tmp, device("edge-1", 22, filepath.Join(tmp, "absent.txt"))))

	rootCmd.SetArgs([]string{"verify", "--config", cfg})
	err := rootCmd.Execute()
	var srcErr *session.CommandSourceError
	require.ErrorAs(t, err, &srcErr)
	require.Contains(t, err.Error(), "device edge-1")
}

func TestVerify_Errors_OnInvalidDevice(t *testing.T) {
	resetConfig()
	tmp := t.TempDir()
	cfg := writeTemp(t, tmp, "config.yaml", inventory(tmp, `    - hostname: edge-1
      ip_address: 10.0.0.1
      username: ops
      password: pw
      key_filename: ~/.ssh/id_rsa
      commands_file: cmds.txt
`))

	rootCmd.SetArgs([]string{"verify", "--config", cfg})
	err := rootCmd.Execute()
	var cfgErr *session.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, "ssh.devices[0].credential", cfgErr.Field)
}

func TestVerify_OnlySelectedDevices(t *testing.T) {
	resetConfig()
	tmp := t.TempDir()
	script := writeTemp(t, tmp, "cmds.txt", "show version\n")
	cfg := writeTemp(t, tmp, "config.yaml", inventory(tmp,
		device("edge-1", 22, script),
		device("edge-2", 22, filepath.Join(tmp, "absent.txt")),
	))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"verify", "--config", cfg, "--device", "edge-1"})
	require.NoError(t, rootCmd.Execute())
	require.Contains(t, out.String(), "1 device(s)")
}
