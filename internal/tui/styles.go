// Copyright (c) 2026 One2Talk Team
// Votekeeper - backup, restore and sync tooling for One2Talk
// This source code is licensed under the MIT license found in the LICENSE file.

package tui

import "github.com/charmbracelet/lipgloss"

// colorPalette defines the core colors used in the menu.
const (
	colorSubtle    = lipgloss.Color("240") // Muted gray
	colorHighlight = lipgloss.Color("81")  // Teal
	colorSpecial   = lipgloss.Color("208") // Orange for destructive actions
	colorError     = lipgloss.Color("196")
	colorSuccess   = lipgloss.Color("40")
)

var (
	docStyle = lipgloss.NewStyle().Margin(1, 2)

	helpStyle = lipgloss.NewStyle().Foreground(colorSubtle)

	errorStyle = lipgloss.NewStyle().Foreground(colorError)

	successStyle = lipgloss.NewStyle().Foreground(colorSuccess)

	// Destructive confirmations.
	specialStyle = lipgloss.NewStyle().Foreground(colorSpecial).Bold(true)

	mainTitleStyle = lipgloss.NewStyle().
			Foreground(colorHighlight).
			Bold(true).
			Padding(1, 3)

	titleStyle = lipgloss.NewStyle().
			Foreground(colorHighlight).
			Bold(true).
			Padding(0, 0, 1, 0)

	itemStyle         = lipgloss.NewStyle()
	selectedItemStyle = lipgloss.NewStyle().Foreground(colorHighlight)

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorSubtle).
			Padding(1, 2)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Background(lipgloss.Color("236")).
			Padding(0, 1).
			Italic(true)
)
