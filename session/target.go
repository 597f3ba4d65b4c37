package session

import (
	"net"
	"strconv"
	"strings"
)

// Credential is either a Password or a KeyFile.
type Credential interface {
	credential()
}

// Password authenticates with a plain password.
type Password string

// KeyFile authenticates with a private key read from Path. Passphrase is
// only needed for encrypted keys.
type KeyFile struct {
	Path       string
	Passphrase string
}

func (Password) credential() {}
func (KeyFile) credential()  {}

// CredentialFrom picks the credential mechanism from configuration fields.
// Exactly one of password and keyPath must be set.
func CredentialFrom(password, keyPath, passphrase string) (Credential, error) {
	hasPassword := password != ""
	hasKey := strings.TrimSpace(keyPath) != ""
	switch {
	case hasPassword && hasKey:
		return nil, &ConfigurationError{Field: "credential", Reason: "set either password or key_filename, not both"}
	case hasKey:
		return KeyFile{Path: strings.TrimSpace(keyPath), Passphrase: passphrase}, nil
	case hasPassword:
		return Password(password), nil
	default:
		return nil, &ConfigurationError{Field: "credential", Reason: "password or key_filename is required"}
	}
}

// Target identifies one device and how to log into it.
type Target struct {
	host       string
	port       int
	username   string
	credential Credential
	name       string
	script     string
}

// NewTarget validates and builds a Target. name is the friendly name used in
// logs and output file names; script is the command script path.
func NewTarget(host string, port int, username string, cred Credential, name, script string) (Target, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return Target{}, &ConfigurationError{Field: "host", Reason: "is required"}
	}
	if port < 1 || port > 65535 {
		return Target{}, &ConfigurationError{Field: "port", Reason: "must be within 1-65535, got " + strconv.Itoa(port)}
	}
	if strings.TrimSpace(username) == "" {
		return Target{}, &ConfigurationError{Field: "username", Reason: "is required"}
	}
	if cred == nil {
		return Target{}, &ConfigurationError{Field: "credential", Reason: "password or key_filename is required"}
	}
	return Target{
		host:       host,
		port:       port,
		username:   username,
		credential: cred,
		name:       strings.TrimSpace(name),
		script:     script,
	}, nil
}

func (t Target) Host() string           { return t.host }
func (t Target) Port() int              { return t.port }
func (t Target) Username() string       { return t.username }
func (t Target) Credential() Credential { return t.credential }
func (t Target) Name() string           { return t.name }
func (t Target) Script() string         { return t.script }

// Addr returns host:port, bracketing IPv6 literals.
func (t Target) Addr() string {
	return net.JoinHostPort(t.host, strconv.Itoa(t.port))
}

// String is used in log lines.
func (t Target) String() string {
	if t.name == "" {
		return t.Addr()
	}
	return t.name + " (" + t.Addr() + ")"
}
