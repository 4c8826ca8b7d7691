package simlist

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/egta-tools/egta-cli/internal/adapters/egta"
)

type columnLayout struct {
	folder    int
	state     int
	job       int
	simulator int
}

func renderView(sims []egta.Simulation, s styles) string {
	lines := []string{
		s.title.Render("Simulations"),
		s.header.Render(fmt.Sprintf("rows: %d", len(sims))),
	}

	if len(sims) == 0 {
		lines = append(lines, s.empty.Render("No simulations found."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	layout := columnWidths(sims)
	lines = append(lines, s.header.Render(headerRow(layout)))
	for _, sim := range sims {
		lines = append(lines, simulationRow(sim, layout, s))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func columnWidths(sims []egta.Simulation) columnLayout {
	layout := columnLayout{
		folder:    len("FOLDER"),
		state:     len("STATE"),
		job:       len("JOB"),
		simulator: len("SIMULATOR"),
	}
	for _, sim := range sims {
		layout.folder = maxWidth(layout.folder, strconv.Itoa(sim.Folder))
		layout.state = maxWidth(layout.state, sim.State)
		layout.job = maxWidth(layout.job, formatJob(sim.Job))
		layout.simulator = maxWidth(layout.simulator, sim.Simulator)
	}
	return layout
}

func maxWidth(current int, cell string) int {
	if len(cell) > current {
		return len(cell)
	}
	return current
}

func headerRow(layout columnLayout) string {
	return fmt.Sprintf("%-*s  %-*s  %-*s  %-*s  %s",
		layout.folder, "FOLDER",
		layout.state, "STATE",
		layout.job, "JOB",
		layout.simulator, "SIMULATOR",
		"PROFILE")
}

func simulationRow(sim egta.Simulation, layout columnLayout, s styles) string {
	folder := s.detail.Render(fmt.Sprintf("%-*d", layout.folder, sim.Folder))
	state := stateStyle(sim.State, s).Render(fmt.Sprintf("%-*s", layout.state, sim.State))
	job := s.detail.Render(fmt.Sprintf("%-*s", layout.job, formatJob(sim.Job)))
	simulator := s.detail.Render(fmt.Sprintf("%-*s", layout.simulator, sim.Simulator))
	profile := s.profile.Render(sim.Profile)

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		folder,
		"  ",
		state,
		"  ",
		job,
		"  ",
		simulator,
		"  ",
		profile,
	)
}

func stateStyle(state string, s styles) lipgloss.Style {
	switch strings.ToLower(state) {
	case "complete":
		return s.complete
	case "failed":
		return s.failed
	default:
		return s.detail
	}
}

func formatJob(job float64) string {
	if math.IsNaN(job) {
		return "n/a"
	}
	return strconv.FormatFloat(job, 'f', -1, 64)
}
