package ui

import (
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	successColor = lipgloss.Color("#39FF14")
	warningColor = lipgloss.Color("#FFFF00")
	errorColor   = lipgloss.Color("#FF3131")
	infoColor    = lipgloss.Color("#00FFFF")
	dimColor     = lipgloss.Color("#B0B0B0")
)

// Styles groups the styles used for console messages
type Styles struct {
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style
	Dim     lipgloss.Style
}

// NewStyles returns colored styles whose color profile is detected from w.
// Writers that are not terminals get plain text.
func NewStyles(w io.Writer) Styles {
	r := lipgloss.NewRenderer(w)
	return Styles{
		Success: r.NewStyle().Foreground(successColor),
		Warning: r.NewStyle().Foreground(warningColor),
		Error:   r.NewStyle().Foreground(errorColor).Bold(true),
		Info:    r.NewStyle().Foreground(infoColor),
		Dim:     r.NewStyle().Foreground(dimColor),
	}
}

// PlainStyles returns styles that render text unchanged
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Success: plain,
		Warning: plain,
		Error:   plain,
		Info:    plain,
		Dim:     plain,
	}
}
