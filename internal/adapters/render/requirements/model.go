// Package requirements renders a scheduler's scheduling requirements as a
// progress view, one bar per scheduled profile.
package requirements

import (
	"errors"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/egta-tools/egta-cli/internal/adapters/egta"
)

var ErrUnexpectedRenderModel = errors.New("unexpected final bubbletea model type")

type renderReadyMsg struct{}

type model struct {
	reqs   *egta.SchedulerRequirements
	styles styles
	output string
}

func newModel(reqs *egta.SchedulerRequirements) model {
	return model{
		reqs:   reqs,
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
		m.output = renderView(m.reqs, m.styles)
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m model) View() string {
	return m.output
}

func Render(reqs *egta.SchedulerRequirements) (string, error) {
	p := tea.NewProgram(
		newModel(reqs),
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
