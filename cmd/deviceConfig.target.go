package cmd

import (
	"fmt"
	"regexp"
	"strings"

	"promptrun/session"
)

// target builds the session target, resolving the credential variant.
func (d *deviceConfig) target() (session.Target, error) {
	cred, err := session.CredentialFrom(d.Password, d.KeyFilename, d.Passphrase)
	if err != nil {
		return session.Target{}, err
	}
	return session.NewTarget(d.IPAddress, d.Port, d.Username, cred, d.Hostname, d.CommandsFile)
}

// prompt compiles the device prompt, falling back to the general one.
func (d *deviceConfig) prompt(general string) (*regexp.Regexp, error) {
	p := general
	if strings.TrimSpace(d.Prompt) != "" {
		p = d.Prompt
	}
	re, err := regexp.Compile(p)
	if err != nil {
		return nil, &session.ConfigurationError{Field: "prompt", Reason: fmt.Sprintf("invalid pattern %q: %v", p, err)}
	}
	return re, nil
}

// label names the device in logs and errors.
func (d *deviceConfig) label() string {
	if d.Hostname != "" {
		return d.Hostname
	}
	return d.IPAddress
}
