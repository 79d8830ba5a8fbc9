// Package routing selects the backend VM which receives an SSH session.
package routing

import (
	"strings"

	"github.com/opsgate/ssh-gateway/internal/directory"
)

const (
	// DefaultHost is the backend selected when no explicit mapping or
	// prefix rule applies.
	DefaultHost = "vm1"
	// DefaultPort is the SSH port used unless an explicit mapping
	// overrides it.
	DefaultPort = 22
)

// Target is a resolved backend address for an SSH session.
type Target struct {
	Host string
	Port int
}

// Rule routes usernames with the given prefix to a backend host.
type Rule struct {
	Prefix string
	Host   string
}

// prefixRules are evaluated in order, first match wins.
var prefixRules = []Rule{
	{Prefix: "admin", Host: "vm1"},
	{Prefix: "ops", Host: "vm1"},
	{Prefix: "dev", Host: "vm2"},
	{Prefix: "test", Host: "vm2"},
}

// Resolve returns the backend target for the given username.
//
// An explicit entry in the users map always wins, with per-field defaults
// applied to its optional values. Otherwise the username falls through to
// the ordered prefix rules, and finally to the default backend on port 22.
func Resolve(username string, users directory.Map) Target {
	if record, ok := users[username]; ok {
		target := Target{
			Host: record.Backend,
			Port: record.Port,
		}
		if target.Host == "" {
			target.Host = DefaultHost
		}
		if target.Port == 0 {
			target.Port = DefaultPort
		}
		return target
	}
	for _, rule := range prefixRules {
		if strings.HasPrefix(username, rule.Prefix) {
			return Target{Host: rule.Host, Port: DefaultPort}
		}
	}
	return Target{Host: DefaultHost, Port: DefaultPort}
}
