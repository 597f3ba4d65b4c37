package cmd

import "time"

// deviceConfig is one entry under ssh.devices. Exactly one of Password and
// KeyFilename must be set.
type deviceConfig struct {
	Hostname     string `yaml:"hostname"`
	IPAddress    string `yaml:"ip_address"`
	Port         int    `yaml:"port"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password,omitempty"`
	KeyFilename  string `yaml:"key_filename,omitempty"`
	Passphrase   string `yaml:"passphrase,omitempty"`
	CommandsFile string `yaml:"commands_file"`
	// Optional per-device overrides
	Prompt         string        `yaml:"prompt,omitempty"`
	CommandTimeout time.Duration `yaml:"command_timeout,omitempty"`
}
