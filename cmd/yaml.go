package cmd

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// yamlUnmarshal decodes b into out, tagging errors as YAML errors.
func yamlUnmarshal(b []byte, out any) error {
	if err := yaml.Unmarshal(b, out); err != nil {
		return fmt.Errorf("yaml unmarshal: %w", err)
	}
	return nil
}

// UnmarshalYAML accepts "host" as an alias for "ip_address" and "name" for
// "hostname".
func (d *deviceConfig) UnmarshalYAML(value *yaml.Node) error {
	var aux struct {
		Hostname       string        `yaml:"hostname"`
		Name           string        `yaml:"name"`
		IPAddress      string        `yaml:"ip_address"`
		Host           string        `yaml:"host"`
		Port           int           `yaml:"port"`
		Username       string        `yaml:"username"`
		Password       string        `yaml:"password"`
		KeyFilename    string        `yaml:"key_filename"`
		Passphrase     string        `yaml:"passphrase"`
		CommandsFile   string        `yaml:"commands_file"`
		Prompt         string        `yaml:"prompt"`
		CommandTimeout time.Duration `yaml:"command_timeout"`
	}
	if err := value.Decode(&aux); err != nil {
		return err
	}
	d.Hostname = aux.Hostname
	if d.Hostname == "" {
		d.Hostname = aux.Name
	}
	d.IPAddress = aux.IPAddress
	if d.IPAddress == "" {
		d.IPAddress = aux.Host
	}
	d.Port = aux.Port
	d.Username = aux.Username
	d.Password = aux.Password
	d.KeyFilename = aux.KeyFilename
	d.Passphrase = aux.Passphrase
	d.CommandsFile = aux.CommandsFile
	d.Prompt = aux.Prompt
	d.CommandTimeout = aux.CommandTimeout
	return nil
}
