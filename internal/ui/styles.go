// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Mufeed Ali

// Package ui holds the shared output styles for the interactive menu and the
// one-shot commands.
package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
)

var (
	StatusColor     = color.New(color.FgCyan)
	ErrorColor      = color.New(color.FgRed)
	StepColor       = color.New(color.FgYellow)
	SuccessColor    = color.New(color.FgGreen)
	IdentifierColor = color.New(color.FgBlue)
	DimColor        = color.New(color.Faint)

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	bannerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)
)

// Banner renders the welcome box shown when the menu starts.
func Banner(title string) string {
	return bannerStyle.Render(titleStyle.Render(title))
}
