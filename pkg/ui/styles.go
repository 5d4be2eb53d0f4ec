package ui

import "github.com/charmbracelet/lipgloss"

var (
	accentCyan    = lipgloss.Color("#00FFFF")
	accentMagenta = lipgloss.Color("#FF00FF")
	accentGreen   = lipgloss.Color("#39FF14")
	accentYellow  = lipgloss.Color("#FFFF00")
	accentOrange  = lipgloss.Color("#FF6700")
	dimWhite      = lipgloss.Color("#B0B0B0")

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accentMagenta).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Background(accentMagenta).
			Foreground(lipgloss.Color("#0A0E27")).
			Bold(true).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(accentCyan).
			Bold(true)

	valueStyle = lipgloss.NewStyle().
			Foreground(accentYellow)

	headerStyle = lipgloss.NewStyle().
			Foreground(dimWhite).
			Bold(true).
			Underline(true)

	okStyle = lipgloss.NewStyle().
		Foreground(accentGreen)

	warnStyle = lipgloss.NewStyle().
			Foreground(accentOrange).
			Bold(true)

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)
)
