package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"promptrun/session"
)

func TestLoadConfig_DefaultsAndAliases(t *testing.T) {
	tmp := t.TempDir()
	p := writeTemp(t, tmp, "config.yaml", `
general:
  data_dir: ./data
ssh:
  devices:
    - name: edge-1
      host: 10.0.0.1
      username: ops
      key_filename: ~/.ssh/id_ed25519
      commands_file: cmds.txt
      command_timeout: 90s
`)
	cfg, err := loadConfig(p)
	require.NoError(t, err)
	require.NoError(t, cfg.validate())

	g := cfg.General
	require.Equal(t, defaultPrompt, g.Prompt)
	require.Equal(t, 30*time.Second, g.PromptTimeout)
	require.Equal(t, 30*time.Second, g.CommandTimeout)
	require.Equal(t, 10*time.Second, g.ConnectTimeout)
	require.Equal(t, 3, g.Retries)
	require.Equal(t, 3*time.Second, g.RetryDelay)
	require.True(t, *g.ToFile)
	require.Equal(t, "--More--", g.Pager.More)
	require.Equal(t, "(END)", g.Pager.End)

	d := cfg.SSH.Devices[0]
	require.Equal(t, "edge-1", d.Hostname)
	require.Equal(t, "10.0.0.1", d.IPAddress)
	require.Equal(t, 22, d.Port)
	require.Equal(t, 90*time.Second, d.commandTimeout(g.CommandTimeout))

	tg, err := d.target()
	require.NoError(t, err)
	require.Equal(t, session.KeyFile{Path: "~/.ssh/id_ed25519"}, tg.Credential())
	require.Equal(t, "cmds.txt", tg.Script())
}

func TestLoadConfig_ExplicitValues(t *testing.T) {
	p := writeTemp(t, t.TempDir(), "config.yaml", `
general:
  data_dir: /var/lib/promptrun
  prompt: '[>#]\s*$'
  command_timeout: 1m
  retries: 5
  retry_delay: 500ms
  to_file: false
  ciphers: [aes256-ctr]
  pager: {more: "-- More --"}
ssh:
  devices:
    - hostname: core
      ip_address: "fe80::1"
      port: 2222
      username: ops
      password: pw
      commands_file: core.txt
      prompt: 'core#'
`)
	cfg, err := loadConfig(p)
	require.NoError(t, err)
	require.NoError(t, cfg.validate())
	require.Equal(t, time.Minute, cfg.General.CommandTimeout)
	require.Equal(t, 5, cfg.General.Retries)
	require.Equal(t, 500*time.Millisecond, cfg.General.RetryDelay)
	require.False(t, *cfg.General.ToFile)
	require.Equal(t, []string{"aes256-ctr"}, cfg.General.Ciphers)
	require.Equal(t, "-- More --", cfg.General.Pager.More)
	require.Equal(t, "(END)", cfg.General.Pager.End)

	d := cfg.SSH.Devices[0]
	require.Equal(t, time.Minute, d.commandTimeout(cfg.General.CommandTimeout))
	re, err := d.prompt(cfg.General.Prompt)
	require.NoError(t, err)
	require.Equal(t, "core#", re.String())

	opts := sessionOptions(cfg.General)
	require.Equal(t, "-- More --", opts.Pager.More)
	require.Equal(t, " ", opts.Pager.Advance)
}

func TestLoadConfig_BadYAML(t *testing.T) {
	p := writeTemp(t, t.TempDir(), "config.yaml", "general: [unclosed")
	_, err := loadConfig(p)
	require.Error(t, err)
	require.Contains(t, err.Error(), "yaml unmarshal")
}

func TestValidate_Errors(t *testing.T) {
	base := func() *appConfig {
		cfg := &appConfig{
			General: generalConfig{DataDir: "/data"},
			SSH: sshConfig{Devices: []deviceConfig{{
				Hostname:     "edge",
				IPAddress:    "10.0.0.1",
				Username:     "ops",
				Password:     "pw",
				CommandsFile: "cmds.txt",
			}}},
		}
		cfg.applyDefaults()
		return cfg
	}
	tests := []struct {
		name   string
		mutate func(c *appConfig)
		field  string
	}{
		{"missing data dir", func(c *appConfig) { c.General.DataDir = "" }, "general.data_dir"},
		{"bad general prompt", func(c *appConfig) { c.General.Prompt = "(" }, "general.prompt"},
		{"no devices", func(c *appConfig) { c.SSH.Devices = nil }, "ssh.devices"},
		{"hostname instead of address", func(c *appConfig) { c.SSH.Devices[0].IPAddress = "edge.example.com" }, "ssh.devices[0].ip_address"},
		{"port out of range", func(c *appConfig) { c.SSH.Devices[0].Port = 70000 }, "ssh.devices[0].port"},
		{"missing username", func(c *appConfig) { c.SSH.Devices[0].Username = "" }, "ssh.devices[0].username"},
		{"missing script", func(c *appConfig) { c.SSH.Devices[0].CommandsFile = "" }, "ssh.devices[0].commands_file"},
		{"no credential", func(c *appConfig) { c.SSH.Devices[0].Password = "" }, "ssh.devices[0].credential"},
		{"two credentials", func(c *appConfig) { c.SSH.Devices[0].KeyFilename = "/k" }, "ssh.devices[0].credential"},
		{"bad device prompt", func(c *appConfig) { c.SSH.Devices[0].Prompt = "[" }, "ssh.devices[0].prompt"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			require.NoError(t, cfg.validate())
			tc.mutate(cfg)
			var cfgErr *session.ConfigurationError
			require.ErrorAs(t, cfg.validate(), &cfgErr)
			require.Equal(t, tc.field, cfgErr.Field)
		})
	}
}

func TestSelectDevices(t *testing.T) {
	cfg := &appConfig{SSH: sshConfig{Devices: []deviceConfig{
		{Hostname: "a", IPAddress: "10.0.0.1"},
		{Hostname: "b", IPAddress: "10.0.0.2"},
	}}}
	all, err := cfg.selectDevices(nil)
	require.NoError(t, err)
	require.Len(t, all, 2)

	one, err := cfg.selectDevices([]string{"10.0.0.2"})
	require.NoError(t, err)
	require.Equal(t, "b", one[0].Hostname)

	_, err = cfg.selectDevices([]string{"c"})
	require.Error(t, err)
}
