// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package util

import "strings"

// QuoteArgForShell quotes an argument for safe use in a POSIX shell command.
// Arguments made only of characters the shell never interprets are returned
// unchanged; everything else is single-quoted with internal quotes escaped.
// A "~/" prefix stays outside the quotes so the remote shell still expands it.
func QuoteArgForShell(arg string) string {
	if arg == "" {
		return "''"
	}
	if isShellSafe(arg) {
		return arg
	}
	if strings.HasPrefix(arg, "~/") {
		return `~/'` + strings.ReplaceAll(arg[2:], "'", `'\''`) + `'`
	}
	return `'` + strings.ReplaceAll(arg, "'", `'\''`) + `'`
}

// JoinShellArgs builds a single remote command line from argv-style parts.
// A lone argument is passed through verbatim so `dm exec host "ls -la | wc -l"`
// keeps its pipes and redirections.
func JoinShellArgs(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	quoted := make([]string, len(args))
	for i, a := range args {
		quoted[i] = QuoteArgForShell(a)
	}
	return strings.Join(quoted, " ")
}

func isShellSafe(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune("-_./=:,@%+", r):
		default:
			return false
		}
	}
	return true
}
