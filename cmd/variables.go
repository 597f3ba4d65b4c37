package cmd

import (
	"time"

	"promptrun/session"
)

// Version is the CLI version string injected at build time via -ldflags.
var Version = "0.1.0"

const defaultConfigPath = "config/config.yaml"

var (
	// Global configuration populated by flags and/or environment variables.
	// These are declared here so they are visible across subcommands.
	cfgConfigPath string
	cfgDataDir    string
	cfgLogFile    string
	cfgLogLevel   string
	cfgReport     string
	cfgDevices    []string
	cfgNoFile     bool
)

// Allow tests to stub the transport, session tuning and the clock
var (
	newDialerFunc      = newSSHDialer
	sessionOptionsFunc = sessionOptions
	nowFunc            = time.Now
)

func newSSHDialer(g generalConfig) session.Dialer {
	return &session.SSHDialer{
		Ciphers:        g.Ciphers,
		KnownHostsPath: g.KnownHosts,
		StrictHostKey:  g.StrictHostKey,
		Timeout:        g.ConnectTimeout,
	}
}

func sessionOptions(g generalConfig) session.Options {
	return session.Options{
		Pager: session.Pager{
			More:    g.Pager.More,
			End:     g.Pager.End,
			Advance: " ",
			Quit:    "q",
		},
	}
}
