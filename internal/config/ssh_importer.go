// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/kevinburke/ssh_config"
)

// SSHAlias is a host entry resolved from an OpenSSH client config file.
type SSHAlias struct {
	Alias    string
	Hostname string
	User     string
	Port     int
	KeyPath  string
}

// LookupSSHAlias resolves alias against the OpenSSH config at path. The
// second return value is false when the file is missing or no Host block
// names the alias explicitly; wildcard-only matches do not count.
func LookupSSHAlias(path, alias string) (SSHAlias, bool, error) {
	if path == "" || alias == "" {
		return SSHAlias{}, false, nil
	}
	resolved, err := ResolvePath(path)
	if err != nil {
		return SSHAlias{}, false, err
	}

	f, err := os.Open(resolved)
	if err != nil {
		if os.IsNotExist(err) {
			return SSHAlias{}, false, nil
		}
		return SSHAlias{}, false, fmt.Errorf("failed to open ssh config file %s: %w", resolved, err)
	}
	defer f.Close()

	cfg, err := ssh_config.Decode(f)
	if err != nil {
		return SSHAlias{}, false, fmt.Errorf("failed to parse ssh config file %s: %w", resolved, err)
	}

	if !hasExplicitHost(cfg, alias) {
		return SSHAlias{}, false, nil
	}

	hostname, _ := cfg.Get(alias, "HostName")
	user, _ := cfg.Get(alias, "User")
	portStr, _ := cfg.Get(alias, "Port")
	keyPath, _ := cfg.Get(alias, "IdentityFile")

	if hostname == "" {
		hostname = alias
	}

	port := 0
	if portStr != "" {
		if p, err := strconv.Atoi(portStr); err == nil {
			port = p
		}
	}

	if keyPath != "" {
		if p, err := ResolvePath(keyPath); err == nil {
			keyPath = p
		}
	}

	return SSHAlias{
		Alias:    alias,
		Hostname: hostname,
		User:     user,
		Port:     port,
		KeyPath:  keyPath,
	}, true, nil
}

func hasExplicitHost(cfg *ssh_config.Config, alias string) bool {
	for _, host := range cfg.Hosts {
		for _, pattern := range host.Patterns {
			p := pattern.String()
			if strings.ContainsAny(p, "*?!") {
				continue
			}
			if p == alias {
				return true
			}
		}
	}
	return false
}
