package ui

import "github.com/charmbracelet/lipgloss"

// Color palette - using ANSI 256 colors for broad terminal support
var (
	ColorCyan   = lipgloss.Color("6")
	ColorYellow = lipgloss.Color("3")
	ColorRed    = lipgloss.Color("1")
	ColorGreen  = lipgloss.Color("2")
	ColorGray   = lipgloss.Color("8")
)

// Text styles
var (
	// Status messages ("Resuming from ...", "Relaying ...")
	StatusStyle = lipgloss.NewStyle().Foreground(ColorGray).Italic(true)

	// Error messages
	ErrorStyle = lipgloss.NewStyle().Foreground(ColorRed).Bold(true)

	// Warning messages
	WarningStyle = lipgloss.NewStyle().Foreground(ColorYellow)

	// Success messages
	SuccessStyle = lipgloss.NewStyle().Foreground(ColorGreen)

	// Muted/secondary text
	MutedStyle = lipgloss.NewStyle().Foreground(ColorGray)

	// Labels (field names in status output)
	LabelStyle = lipgloss.NewStyle().Foreground(ColorCyan).Bold(true)
)

// Box styles for sections
var (
	SectionTitleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorCyan).
		MarginBottom(1)
)
