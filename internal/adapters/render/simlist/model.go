// Package simlist renders simulation listing rows as an aligned table.
package simlist

import (
	"errors"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/egta-tools/egta-cli/internal/adapters/egta"
)

var ErrUnexpectedRenderModel = errors.New("unexpected final bubbletea model type")

type renderReadyMsg struct{}

type model struct {
	sims   []egta.Simulation
	styles styles
	output string
}

func newModel(sims []egta.Simulation) model {
	return model{
		sims:   sims,
		styles: newStyles(),
	}
}

func (m model) Init() tea.Cmd {
	return func() tea.Msg {
		return renderReadyMsg{}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg.(type) {
	case renderReadyMsg:
		m.output = renderView(m.sims, m.styles)
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m model) View() string {
	return m.output
}

func Render(sims []egta.Simulation) (string, error) {
	p := tea.NewProgram(
		newModel(sims),
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
	)

	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}

	rendered, ok := finalModel.(model)
	if !ok {
		return "", ErrUnexpectedRenderModel
	}

	return rendered.View(), nil
}
