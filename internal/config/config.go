// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package config handles application configuration: locating and reading the
// YAML config file, filling defaults and validating the result.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Host-key policies accepted by SSH.HostKeyPolicy.
const (
	// HostKeyAutoTrust accepts any host key and never records it.
	HostKeyAutoTrust = "auto-trust"
	// HostKeyKnownHosts verifies against a known_hosts file.
	HostKeyKnownHosts = "known-hosts"
)

// DefaultCommand runs when the user leaves the SSH command blank.
const DefaultCommand = "ls -la"

// LogConfig controls application logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level,omitempty"`

	// File appends logs to $XDG_STATE_HOME/device-manager/app.log
	File bool `yaml:"file,omitempty"`
}

// BLEConfig configures the Bluetooth adapter and flows.
type BLEConfig struct {
	// HCIDevice is the index of the HCI adapter (hci0 = 0)
	HCIDevice int `yaml:"hci_device"`

	// ScanTimeout bounds a single discovery run
	ScanTimeout time.Duration `yaml:"scan_timeout"`

	// ConnectTimeout bounds dialing a device
	ConnectTimeout time.Duration `yaml:"connect_timeout"`

	// ConnectHold is how long a connection is held open before closing
	ConnectHold time.Duration `yaml:"connect_hold"`
}

// SSHConfig configures the SSH command flow.
type SSHConfig struct {
	// Port used when neither the user nor ~/.ssh/config specifies one
	Port int `yaml:"port"`

	// ConnectTimeout bounds TCP connect plus handshake
	ConnectTimeout time.Duration `yaml:"connect_timeout"`

	// HostKeyPolicy is auto-trust or known-hosts
	HostKeyPolicy string `yaml:"host_key_policy"`

	// KnownHosts is the file consulted by the known-hosts policy
	KnownHosts string `yaml:"known_hosts,omitempty"`

	// KeyPath is an optional private key used for authentication
	KeyPath string `yaml:"key_path,omitempty"`

	// UseAgent enables ssh-agent authentication through SSH_AUTH_SOCK
	UseAgent bool `yaml:"use_agent"`

	// DefaultCommand replaces a blank command
	DefaultCommand string `yaml:"default_command,omitempty"`

	// SSHConfigPath is the OpenSSH client config used to resolve host aliases
	SSHConfigPath string `yaml:"ssh_config,omitempty"`
}

// Config represents the top-level application configuration
type Config struct {
	Log LogConfig `yaml:"log"`
	BLE BLEConfig `yaml:"ble"`
	SSH SSHConfig `yaml:"ssh"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info"},
		BLE: BLEConfig{
			HCIDevice:      0,
			ScanTimeout:    5 * time.Second,
			ConnectTimeout: 10 * time.Second,
			ConnectHold:    5 * time.Second,
		},
		SSH: SSHConfig{
			Port:           22,
			ConnectTimeout: 10 * time.Second,
			HostKeyPolicy:  HostKeyAutoTrust,
			KnownHosts:     "~/.ssh/known_hosts",
			UseAgent:       true,
			DefaultCommand: DefaultCommand,
			SSHConfigPath:  "~/.ssh/config",
		},
	}
}

func DefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "device-manager", "config.yaml"), nil
}

// Load reads the config at path, or the default path when path is empty.
// A missing file yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		p, err := DefaultConfigPath()
		if err != nil {
			return Config{}, err
		}
		path = p
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	cfg.fillZeroes()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// fillZeroes restores defaults for fields explicitly set to zero values.
func (c *Config) fillZeroes() {
	d := Default()
	if c.BLE.ScanTimeout <= 0 {
		c.BLE.ScanTimeout = d.BLE.ScanTimeout
	}
	if c.BLE.ConnectTimeout <= 0 {
		c.BLE.ConnectTimeout = d.BLE.ConnectTimeout
	}
	if c.BLE.ConnectHold < 0 {
		c.BLE.ConnectHold = d.BLE.ConnectHold
	}
	if c.SSH.Port == 0 {
		c.SSH.Port = d.SSH.Port
	}
	if c.SSH.ConnectTimeout <= 0 {
		c.SSH.ConnectTimeout = d.SSH.ConnectTimeout
	}
	if c.SSH.HostKeyPolicy == "" {
		c.SSH.HostKeyPolicy = d.SSH.HostKeyPolicy
	}
	if strings.TrimSpace(c.SSH.DefaultCommand) == "" {
		c.SSH.DefaultCommand = d.SSH.DefaultCommand
	}
}

// Validate checks values that cannot be defaulted.
func (c Config) Validate() error {
	switch c.SSH.HostKeyPolicy {
	case HostKeyAutoTrust, HostKeyKnownHosts:
	default:
		return fmt.Errorf("unknown ssh.host_key_policy %q (want %s or %s)", c.SSH.HostKeyPolicy, HostKeyAutoTrust, HostKeyKnownHosts)
	}
	if c.SSH.Port < 1 || c.SSH.Port > 65535 {
		return fmt.Errorf("ssh.port %d out of range", c.SSH.Port)
	}
	if c.BLE.HCIDevice < 0 {
		return fmt.Errorf("ble.hci_device must not be negative")
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log.level %q", c.Log.Level)
	}
	return nil
}

func ResolvePath(path string) (string, error) {
	if !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path, fmt.Errorf("could not get user home directory to resolve path '%s': %w", path, err)
	}

	return filepath.Join(homeDir, path[2:]), nil
}
