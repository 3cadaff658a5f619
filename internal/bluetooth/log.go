// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

package bluetooth

import (
	"io"
	"log/slog"

	"github.com/rigado/ble"
	"github.com/sirupsen/logrus"
)

// stackLogger adapts a logrus entry to the logger interface of the BLE stack.
type stackLogger struct {
	*logrus.Entry
}

func (l *stackLogger) ChildLogger(tags map[string]interface{}) ble.Logger {
	return &stackLogger{Entry: l.Entry.WithFields(tags)}
}

// NewStackLogger builds a BLE stack logger writing to w at the given level.
func NewStackLogger(w io.Writer, level slog.Level) ble.Logger {
	l := &logrus.Logger{
		Formatter: &logrus.TextFormatter{DisableColors: true},
		Level:     logrusLevel(level),
		Out:       w,
		Hooks:     make(logrus.LevelHooks),
	}
	return &stackLogger{Entry: logrus.NewEntry(l).WithField("component", "ble")}
}

// UseStackLogger routes the BLE stack's own logging to w.
func UseStackLogger(w io.Writer, level slog.Level) {
	ble.SetLogger(NewStackLogger(w, level))
}

func logrusLevel(level slog.Level) logrus.Level {
	switch {
	case level <= slog.LevelDebug:
		return logrus.DebugLevel
	case level <= slog.LevelInfo:
		return logrus.InfoLevel
	case level <= slog.LevelWarn:
		return logrus.WarnLevel
	default:
		return logrus.ErrorLevel
	}
}
