package cmd

import "time"

// appConfig is the device inventory: general settings plus the devices to
// visit, in order.
type appConfig struct {
	General generalConfig `yaml:"general"`
	SSH     sshConfig     `yaml:"ssh"`
}

type sshConfig struct {
	Devices []deviceConfig `yaml:"devices"`
}

// generalConfig holds settings shared by every device. Durations accept Go
// duration strings such as "30s".
type generalConfig struct {
	DataDir        string        `yaml:"data_dir"`
	LogFile        string        `yaml:"log_file"`
	Prompt         string        `yaml:"prompt"`
	PromptTimeout  time.Duration `yaml:"prompt_timeout"`
	CommandTimeout time.Duration `yaml:"command_timeout"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	Retries        int           `yaml:"retries"`
	RetryDelay     time.Duration `yaml:"retry_delay"`
	Ciphers        []string      `yaml:"ciphers"`
	KnownHosts     string        `yaml:"known_hosts"`
	StrictHostKey  bool          `yaml:"strict_host_key"`
	// ToFile is a pointer so an absent key can default to true.
	ToFile *bool       `yaml:"to_file"`
	Report string      `yaml:"report"`
	Pager  pagerConfig `yaml:"pager"`
}

type pagerConfig struct {
	More string `yaml:"more"`
	End  string `yaml:"end"`
}

const (
	defaultPrompt         = `\:\~\$`
	defaultPromptTimeout  = 30 * time.Second
	defaultCommandTimeout = 30 * time.Second
	defaultConnectTimeout = 10 * time.Second
	defaultRetries        = 3
	defaultRetryDelay     = 3 * time.Second
	defaultPort           = 22
)

// applyDefaults fills unset fields.
func (c *appConfig) applyDefaults() {
	g := &c.General
	if g.Prompt == "" {
		g.Prompt = defaultPrompt
	}
	if g.PromptTimeout <= 0 {
		g.PromptTimeout = defaultPromptTimeout
	}
	if g.CommandTimeout <= 0 {
		g.CommandTimeout = defaultCommandTimeout
	}
	if g.ConnectTimeout <= 0 {
		g.ConnectTimeout = defaultConnectTimeout
	}
	if g.Retries == 0 {
		g.Retries = defaultRetries
	}
	if g.RetryDelay <= 0 {
		g.RetryDelay = defaultRetryDelay
	}
	if g.ToFile == nil {
		on := true
		g.ToFile = &on
	}
	if g.Pager.More == "" {
		g.Pager.More = "--More--"
	}
	if g.Pager.End == "" {
		g.Pager.End = "(END)"
	}
	for i := range c.SSH.Devices {
		if c.SSH.Devices[i].Port == 0 {
			c.SSH.Devices[i].Port = defaultPort
		}
	}
}
