package cmd

import (
	"errors"
	"fmt"
	"net"
	"os"
	"regexp"
	"strings"

	"promptrun/session"
)

// loadConfig reads the inventory at path and applies defaults. Validation
// is left to validate so flag overrides can be applied first.
func loadConfig(path string) (*appConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := &appConfig{}
	if err := yamlUnmarshal(b, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// validate reports the first invalid setting as a *session.ConfigurationError.
func (c *appConfig) validate() error {
	if strings.TrimSpace(c.General.DataDir) == "" {
		return &session.ConfigurationError{Field: "general.data_dir", Reason: "is required"}
	}
	if _, err := regexp.Compile(c.General.Prompt); err != nil {
		return &session.ConfigurationError{Field: "general.prompt", Reason: err.Error()}
	}
	if len(c.SSH.Devices) == 0 {
		return &session.ConfigurationError{Field: "ssh.devices", Reason: "at least one device is required"}
	}
	for i := range c.SSH.Devices {
		if err := c.SSH.Devices[i].validate(c.General.Prompt); err != nil {
			var cfgErr *session.ConfigurationError
			if errors.As(err, &cfgErr) {
				return &session.ConfigurationError{
					Field:  fmt.Sprintf("ssh.devices[%d].%s", i, cfgErr.Field),
					Reason: cfgErr.Reason,
				}
			}
			return err
		}
	}
	return nil
}

func (d *deviceConfig) validate(generalPrompt string) error {
	if net.ParseIP(strings.TrimSpace(d.IPAddress)) == nil {
		return &session.ConfigurationError{Field: "ip_address", Reason: fmt.Sprintf("%q is not a valid IPv4 or IPv6 address", d.IPAddress)}
	}
	if strings.TrimSpace(d.CommandsFile) == "" {
		return &session.ConfigurationError{Field: "commands_file", Reason: "is required"}
	}
	if _, err := d.target(); err != nil {
		return err
	}
	if _, err := d.prompt(generalPrompt); err != nil {
		return err
	}
	return nil
}

// selectDevices keeps the devices whose hostname or address is in names.
// An empty names list selects every device.
func (c *appConfig) selectDevices(names []string) ([]deviceConfig, error) {
	if len(names) == 0 {
		return c.SSH.Devices, nil
	}
	var out []deviceConfig
	for _, n := range names {
		n = strings.TrimSpace(n)
		found := false
		for _, d := range c.SSH.Devices {
			if d.Hostname == n || d.IPAddress == n {
				out = append(out, d)
				found = true
			}
		}
		if !found {
			return nil, fmt.Errorf("no device named %q in inventory", n)
		}
	}
	return out, nil
}
