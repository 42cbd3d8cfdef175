// Package ui renders terminal output for the mnemosync CLI.
package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var (
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Init picks the color profile. Colors are off when noColor is set, when
// NO_COLOR is in the environment, or when stdout is not a terminal.
func Init(noColor bool) {
	if noColor || !IsTerminal(os.Stdout) {
		lipgloss.SetColorProfile(termenv.Ascii)
		return
	}
	lipgloss.SetColorProfile(termenv.EnvColorProfile())
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// RenderAccent styles headings and progress markers.
func RenderAccent(s string) string {
	return accentStyle.Render(s)
}

// RenderPass styles success markers.
func RenderPass(s string) string {
	return passStyle.Render(s)
}

// RenderWarn styles warnings, including the dry-run banner.
func RenderWarn(s string) string {
	return warnStyle.Render(s)
}

// RenderMuted styles secondary details.
func RenderMuted(s string) string {
	return mutedStyle.Render(s)
}
