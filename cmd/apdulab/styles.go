package main

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/apdulab/apdulab/pkg/logstore"
)

// Terminal palette.
var (
	colorFg      = lipgloss.Color("#24292f") // primary foreground
	colorMuted   = lipgloss.Color("#656d76") // muted/dim text
	colorAccent  = lipgloss.Color("#0969da") // accent blue
	colorError   = lipgloss.Color("#cf222e") // error red
	colorSuccess = lipgloss.Color("#1a7f37") // success green
	colorWarning = lipgloss.Color("#9a6700") // warning amber
	colorMagenta = lipgloss.Color("#8250df") // purple/magenta
)

// Centralized style definitions for the TUI.
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	statusStyle = lipgloss.NewStyle().Foreground(colorMuted)
	hintStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	errorStyle  = lipgloss.NewStyle().Foreground(colorError)
	activeStyle = lipgloss.NewStyle().Bold(true).Foreground(colorSuccess)
	dimStyle    = lipgloss.NewStyle().Foreground(colorMuted)

	timestampStyle = lipgloss.NewStyle().Foreground(colorMuted)
	spinnerStyle   = lipgloss.NewStyle().Foreground(colorMagenta)

	// Picker styles.
	pickerBorder   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorAccent)
	pickerCurStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	pickerDimStyle = lipgloss.NewStyle().Foreground(colorMuted)

	// Filter bar styles.
	filterOnStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorFg)
	filterOffStyle = lipgloss.NewStyle().Foreground(colorMuted).Strikethrough(true)
)

// kindStyles colors each log entry kind.
var kindStyles = map[logstore.Kind]lipgloss.Style{
	logstore.KindError:        lipgloss.NewStyle().Foreground(colorError),
	logstore.KindWarn:         lipgloss.NewStyle().Foreground(colorWarning),
	logstore.KindCommand:      lipgloss.NewStyle().Foreground(colorFg),
	logstore.KindAPDU:         lipgloss.NewStyle().Foreground(colorAccent),
	logstore.KindBinary:       lipgloss.NewStyle().Foreground(colorMagenta),
	logstore.KindVerbose:      lipgloss.NewStyle().Foreground(colorMuted),
	logstore.KindAnnouncement: lipgloss.NewStyle().Bold(true).Foreground(colorSuccess),
}

func kindStyle(k logstore.Kind) lipgloss.Style {
	if s, ok := kindStyles[k]; ok {
		return s
	}
	return dimStyle
}
