// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package ssh

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Error kinds. They only steer logging and the message shown to the user;
// no kind is retried.
var (
	ErrAuth      = errors.New("ssh authentication failed")
	ErrProtocol  = errors.New("ssh protocol error")
	ErrTransport = errors.New("ssh transport error")
)

// Error is a failure in one stage of the SSH flow. errors.Is matches both the
// kind and the underlying cause.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func newError(kind error, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// classify wraps err with its kind unless it already carries one.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrAuth) || errors.Is(err, ErrProtocol) || errors.Is(err, ErrTransport) {
		return err
	}
	return newError(kindOf(err), op, err)
}

func kindOf(err error) error {
	msg := err.Error()
	// x/crypto/ssh has no typed authentication error.
	if strings.Contains(msg, "unable to authenticate") || strings.Contains(msg, "no supported methods remain") {
		return ErrAuth
	}

	var keyErr *knownhosts.KeyError
	var revokedErr *knownhosts.RevokedError
	var exitMissing *ssh.ExitMissingError
	if errors.As(err, &keyErr) || errors.As(err, &revokedErr) || errors.As(err, &exitMissing) {
		return ErrProtocol
	}

	var netErr net.Error
	if errors.As(err, &netErr) ||
		errors.Is(err, io.EOF) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return ErrTransport
	}

	if strings.Contains(msg, "ssh:") {
		return ErrProtocol
	}
	return ErrTransport
}

// Describe returns the message shown to the user for an SSH flow error.
func Describe(err error) string {
	switch {
	case errors.Is(err, ErrAuth):
		return "Authentication failed. Please check username and password/keys."
	case errors.Is(err, ErrProtocol):
		return fmt.Sprintf("SSH error: %v", err)
	default:
		return fmt.Sprintf("An error occurred: %v", err)
	}
}
