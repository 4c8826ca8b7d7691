package requirements

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title      lipgloss.Style
	header     lipgloss.Style
	active     lipgloss.Style
	inactive   lipgloss.Style
	detail     lipgloss.Style
	empty      lipgloss.Style
	assignment lipgloss.Style
	barBracket lipgloss.Style
	barFill    lipgloss.Style
	barEmpty   lipgloss.Style
	count      lipgloss.Style
	done       lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:      lipgloss.NewStyle().Bold(true),
		header:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		active:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		inactive:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		detail:     lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		empty:      lipgloss.NewStyle().Faint(true),
		assignment: lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		barBracket: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
		barFill:    lipgloss.NewStyle().Foreground(lipgloss.Color("159")),
		barEmpty:   lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
		count:      lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		done:       lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	}
}
