// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package menu implements the interactive selection loop that dispatches to
// the BLE scan flow and the SSH command flow.
package menu

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"device-manager/internal/bluetooth"
	"device-manager/internal/prompt"
	"device-manager/internal/ssh"
	"device-manager/internal/ui"
)

// Title is shown once when the loop starts.
const Title = "Welcome to the BT-SSH Device Manager CLI Tool."

// Menu choices.
const (
	ChoiceScan = "1"
	ChoiceSSH  = "2"
	ChoiceExit = "3"
)

// Scanner runs one BLE scan and renders the result.
type Scanner interface {
	Scan(ctx context.Context) ([]bluetooth.Device, error)
}

// CommandRunner runs one SSH command and renders the result.
type CommandRunner interface {
	Run(ctx context.Context, req ssh.Request) error
}

// Menu is the interactive loop. Nothing is carried between iterations.
type Menu struct {
	Prompt      *prompt.Prompter
	Credentials prompt.CredentialProvider
	Out         io.Writer
	Log         *slog.Logger

	BLE Scanner
	SSH CommandRunner

	// DefaultCommand is shown in the command prompt; the runner applies it.
	DefaultCommand string

	// ScanContext derives the context for a single scan, for example to
	// stop it on Ctrl-C. Nil means the loop context is used as is.
	ScanContext func(ctx context.Context) (context.Context, context.CancelFunc)
}

func (m *Menu) log() *slog.Logger {
	if m.Log == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return m.Log
}

// Run loops until the user picks exit or input ends. Flow failures are
// reported by the flows themselves and never end the loop.
func (m *Menu) Run(ctx context.Context) error {
	fmt.Fprintln(m.Out, ui.Banner(Title))
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		m.printOptions()
		choice, err := m.Prompt.Line("> Enter your choice: ")
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(m.Out)
				return nil
			}
			return fmt.Errorf("failed to read choice: %w", err)
		}

		switch strings.TrimSpace(choice) {
		case ChoiceScan:
			m.scan(ctx)
		case ChoiceSSH:
			if err := m.runSSH(ctx); err != nil {
				if errors.Is(err, io.EOF) {
					fmt.Fprintln(m.Out)
					return nil
				}
				ui.ErrorColor.Fprintf(m.Out, "%v\n", err)
			}
		case ChoiceExit:
			return nil
		default:
			ui.ErrorColor.Fprintln(m.Out, "Invalid choice. Please try again.")
		}
	}
}

func (m *Menu) printOptions() {
	fmt.Fprintln(m.Out, "\nSelect an option:")
	fmt.Fprintln(m.Out, "1. Scan for Bluetooth Devices")
	fmt.Fprintln(m.Out, "2. Connect via SSH and run command")
	fmt.Fprintln(m.Out, "3. Exit")
}

func (m *Menu) scan(ctx context.Context) {
	scanCtx := ctx
	if m.ScanContext != nil {
		var cancel context.CancelFunc
		scanCtx, cancel = m.ScanContext(ctx)
		defer cancel()
	}
	if _, err := m.BLE.Scan(scanCtx); err != nil {
		m.log().Debug("Scan flow ended with error", "error", err)
	}
}

// runSSH collects the request and hands it to the runner. Only input
// problems are returned; flow errors were already shown.
func (m *Menu) runSSH(ctx context.Context) error {
	host, err := m.Prompt.String("Enter target IP/Hostname: ", true)
	if err != nil {
		if errors.Is(err, prompt.ErrRequired) {
			return errors.New("a target host is required")
		}
		return err
	}
	username, err := m.Prompt.String("Enter SSH username: ", false)
	if err != nil {
		return err
	}
	password, err := m.Credentials.Password("Enter SSH password (leave blank for key auth if configured): ")
	if err != nil {
		return err
	}
	defCmd := m.DefaultCommand
	if defCmd == "" {
		defCmd = "ls -la"
	}
	command, err := m.Prompt.String(fmt.Sprintf("Enter command to run (default '%s'): ", defCmd), false)
	if err != nil {
		return err
	}

	req := ssh.Request{Host: host, User: username, Password: password, Command: command}
	if err := m.SSH.Run(ctx, req); err != nil {
		m.log().Debug("SSH flow ended with error", "host", host, "error", err)
	}
	return nil
}
