// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package prompt reads interactive answers from the user. Secrets go through
// a CredentialProvider so the flows never decide how a password is typed.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrRequired is returned when a required answer is left blank.
var ErrRequired = errors.New("input is required")

// Prompter asks questions on out and reads line answers from in.
type Prompter struct {
	reader *bufio.Reader
	out    io.Writer
}

// New wraps in with a buffered reader. Share one Prompter per input stream so
// no buffered input is lost between questions.
func New(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{reader: bufio.NewReader(in), out: out}
}

// Line prints label and returns the raw answer without its line ending.
// A final line without a newline is returned; io.EOF only comes back when
// nothing at all was read.
func (p *Prompter) Line(label string) (string, error) {
	fmt.Fprint(p.out, label)
	input, err := p.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && input != "" {
			return strings.TrimRight(input, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(input, "\r\n"), nil
}

// String prints label and returns the trimmed answer.
func (p *Prompter) String(label string, required bool) (string, error) {
	input, err := p.Line(label)
	if err != nil {
		return "", err
	}
	input = strings.TrimSpace(input)
	if required && input == "" {
		return "", ErrRequired
	}
	return input, nil
}

// StringDefault returns def when the answer is blank.
func (p *Prompter) StringDefault(label, def string) (string, error) {
	input, err := p.String(label, false)
	if err != nil {
		return "", err
	}
	if input == "" {
		return def, nil
	}
	return input, nil
}
