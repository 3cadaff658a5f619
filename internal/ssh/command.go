// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package ssh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/user"
	"strings"

	"device-manager/internal/config"
	"device-manager/internal/ui"
)

// Request is what the user asked for: where to connect and what to run.
type Request struct {
	Host     string
	Port     int
	User     string
	Password string
	KeyPath  string
	Command  string
}

// Runner executes the SSH command flow: connect, run one command, print its
// output, close. The session is closed exactly once on every path.
type Runner struct {
	Dialer Dialer
	Out    io.Writer
	Log    *slog.Logger

	// DefaultPort applies when neither the request nor ~/.ssh/config names one.
	DefaultPort int
	// DefaultKeyPath applies when the request names no key.
	DefaultKeyPath string
	// DefaultCommand replaces a blank command.
	DefaultCommand string
	// SSHConfigPath is consulted to resolve host aliases; empty disables it.
	SSHConfigPath string
}

func (r *Runner) log() *slog.Logger {
	if r.Log == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return r.Log
}

// Run performs the flow for req. Errors are logged and printed before being
// returned so callers only decide whether to keep going.
func (r *Runner) Run(ctx context.Context, req Request) error {
	log := r.log()
	target, command := r.resolve(req)

	session := r.Dialer.NewSession()
	defer func() {
		if err := session.Close(); err != nil {
			log.Debug("Error closing SSH connection", "host", target.Host, "error", err)
		}
		log.Info("SSH connection closed.", "host", target.Host)
	}()

	log.Info(fmt.Sprintf("Attempting to connect to %s via SSH...", target.Host), "port", target.Port, "user", target.User)
	if err := session.Connect(ctx, target); err != nil {
		return r.fail(err)
	}
	log.Info(fmt.Sprintf("Successfully connected to %s.", target.Host))

	log.Info(fmt.Sprintf("Executing command: '%s'", command))
	res, err := session.Exec(ctx, command)
	if err != nil {
		return r.fail(err)
	}

	r.printResult(res)
	if res.ExitStatus != 0 {
		log.Warn("Remote command exited with non-zero status", "command", command, "status", res.ExitStatus)
	}
	return nil
}

func (r *Runner) fail(err error) error {
	err = classify("ssh", err)
	log := r.log()
	switch {
	case errors.Is(err, ErrAuth):
		log.Error("Authentication failed. Please check username and password/keys.", "error", err)
	case errors.Is(err, ErrProtocol):
		log.Error("SSH error", "error", err)
	default:
		log.Error("An error occurred", "error", err)
	}
	ui.ErrorColor.Fprintln(r.Out, Describe(err))
	return err
}

func (r *Runner) printResult(res Result) {
	fmt.Fprintln(r.Out)
	ui.StepColor.Fprintln(r.Out, "--- Command Output (STDOUT) ---")
	for _, line := range res.Stdout {
		fmt.Fprintln(r.Out, line)
	}
	ui.StepColor.Fprintln(r.Out, "--- Errors (STDERR) ---")
	for _, line := range res.Stderr {
		fmt.Fprintln(r.Out, line)
	}
}

// resolve turns a request into a connection target, applying ~/.ssh/config
// aliases and defaults, and picks the command to run.
func (r *Runner) resolve(req Request) (Target, string) {
	t := Target{
		Host:     strings.TrimSpace(req.Host),
		Port:     req.Port,
		User:     strings.TrimSpace(req.User),
		Password: req.Password,
		KeyPath:  req.KeyPath,
	}
	if t.KeyPath == "" {
		t.KeyPath = r.DefaultKeyPath
	}

	alias, ok, err := config.LookupSSHAlias(r.SSHConfigPath, t.Host)
	if err != nil {
		r.log().Warn("Could not read ssh config; using host as given", "host", t.Host, "error", err)
	} else if ok {
		r.log().Debug("Resolved host alias from ssh config", "alias", alias.Alias, "hostname", alias.Hostname)
		t.Host = alias.Hostname
		if t.Port == 0 {
			t.Port = alias.Port
		}
		if t.User == "" {
			t.User = alias.User
		}
		if t.KeyPath == "" {
			t.KeyPath = alias.KeyPath
		}
	}

	if t.Port == 0 {
		t.Port = r.DefaultPort
	}
	if t.Port == 0 {
		t.Port = 22
	}
	if t.User == "" {
		if u, err := user.Current(); err == nil {
			t.User = u.Username
		}
	}

	command := strings.TrimSpace(req.Command)
	if command == "" {
		command = r.DefaultCommand
	}
	if strings.TrimSpace(command) == "" {
		command = config.DefaultCommand
	}
	return t, command
}
