// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package prompt

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// CredentialProvider supplies secrets such as SSH passwords.
type CredentialProvider interface {
	Password(label string) (string, error)
}

// TerminalCredentials reads passwords without echo when stdin is a terminal
// and falls back to a plain line read otherwise (pipes, tests).
type TerminalCredentials struct {
	in       *os.File
	out      io.Writer
	fallback *Prompter
}

// NewTerminalCredentials reads from in. The fallback prompter must wrap the
// same stream so buffered input stays in order.
func NewTerminalCredentials(in *os.File, out io.Writer, fallback *Prompter) *TerminalCredentials {
	return &TerminalCredentials{in: in, out: out, fallback: fallback}
}

// Password implements CredentialProvider.
func (c *TerminalCredentials) Password(label string) (string, error) {
	if c.in == nil || !term.IsTerminal(int(c.in.Fd())) {
		return c.fallback.Line(label)
	}
	fmt.Fprint(c.out, label)
	b, err := term.ReadPassword(int(c.in.Fd()))
	fmt.Fprintln(c.out)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(b), nil
}

// StaticCredentials always returns the same secret.
type StaticCredentials string

// Password implements CredentialProvider.
func (s StaticCredentials) Password(string) (string, error) {
	return string(s), nil
}
