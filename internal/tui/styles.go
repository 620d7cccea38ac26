package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F25D94"))
	workStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF7A59"))
	breakStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#43BF6D"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#767676"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4672"))
	timerStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 2)
	panelStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(1, 3)
	messageStyle = lipgloss.NewStyle().Italic(true)
)
