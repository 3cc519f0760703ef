package simulator

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/wifiprov/internal/ui"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(ui.TextColor).
			Background(ui.PrimaryColor).
			Bold(true).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ui.PrimaryColor).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Foreground(ui.PrimaryColor).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(ui.MutedColor).
			Width(12)

	valueStyle = lipgloss.NewStyle().Foreground(ui.TextColor)

	ledOnStyle  = lipgloss.NewStyle().Foreground(ui.SuccessColor).Bold(true)
	ledOffStyle = lipgloss.NewStyle().Foreground(ui.MutedColor)

	errorStyle = lipgloss.NewStyle().Foreground(ui.ErrorColor)
	okStyle    = lipgloss.NewStyle().Foreground(ui.SuccessColor)
	logStyle   = lipgloss.NewStyle().Foreground(ui.MutedColor)
)
