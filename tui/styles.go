package tui

import "github.com/charmbracelet/lipgloss"

// Colors used throughout the TUI.
var (
	colorGreen  = lipgloss.Color("#00D787")
	colorRed    = lipgloss.Color("#FF5F5F")
	colorYellow = lipgloss.Color("#FFD75F")
	colorCyan   = lipgloss.Color("#00D7FF")
	colorGray   = lipgloss.Color("#666666")
	colorWhite  = lipgloss.Color("#FFFFFF")
)

// Base styles reused by the views.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan)

	frontStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorWhite).
			Padding(1, 2)

	descriptionStyle = lipgloss.NewStyle().
				Foreground(colorGray).
				Italic(true)

	correctStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorGreen)

	incorrectStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorRed)

	hintStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	statusStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	staleStyle = lipgloss.NewStyle().
			Foreground(colorYellow).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed)

	promptStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan)

	inputStyle = lipgloss.NewStyle().
			Foreground(colorWhite)
)
