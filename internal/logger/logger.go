// Package logger configures the process-wide structured logger. New is called
// once at startup and the returned handle is passed to every component that
// logs; nothing in the application reaches for a hidden global.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Options controls where log records go and at which level.
type Options struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string
	// File enables appending to the application log file under the XDG state dir.
	File bool
	// Stderr enables logging to the given writer (usually os.Stderr).
	Stderr io.Writer
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}

// FilePath determines the path for the application log file based on XDG spec.
func FilePath() (string, error) {
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("could not get user home directory: %w", err)
		}
		stateDir = filepath.Join(homeDir, ".local", "state")
	}
	return filepath.Join(stateDir, "device-manager", "app.log"), nil
}

// New builds the logger and returns it along with the writer it logs to and
// a closer for the log file (a no-op when file logging is off).
func New(opts Options) (*slog.Logger, io.Writer, func() error, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, nil, err
	}

	var writers []io.Writer
	closer := func() error { return nil }

	if opts.File {
		file, err := openLogFile()
		if err != nil {
			// File logging is best effort; stderr still gets everything.
			fmt.Fprintf(os.Stderr, "File logging disabled: %v\n", err)
		} else {
			writers = append(writers, file)
			closer = file.Close
		}
	}
	if opts.Stderr != nil {
		writers = append(writers, opts.Stderr)
	}

	var w io.Writer
	switch len(writers) {
	case 0:
		w = io.Discard
	case 1:
		w = writers[0]
	default:
		w = io.MultiWriter(writers...)
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler), w, closer, nil
}

// Discard returns a logger that drops every record. Handy in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openLogFile() (*os.File, error) {
	logFilePath, err := FilePath()
	if err != nil {
		return nil, err
	}
	// 0750: user rwx, group rx, others ---
	if err := os.MkdirAll(filepath.Dir(logFilePath), 0750); err != nil {
		return nil, fmt.Errorf("failed to create log directory for %s: %w", logFilePath, err)
	}
	file, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", logFilePath, err)
	}
	return file, nil
}
