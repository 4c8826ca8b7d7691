package simlist

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title    lipgloss.Style
	header   lipgloss.Style
	empty    lipgloss.Style
	detail   lipgloss.Style
	complete lipgloss.Style
	failed   lipgloss.Style
	profile  lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:    lipgloss.NewStyle().Bold(true),
		header:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		empty:    lipgloss.NewStyle().Faint(true),
		detail:   lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		complete: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		failed:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		profile:  lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
	}
}
