package requirements

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/egta-tools/egta-cli/internal/adapters/egta"
)

func renderView(reqs *egta.SchedulerRequirements, s styles) string {
	status := s.inactive.Render("inactive")
	if reqs.Active {
		status = s.active.Render("active")
	}

	lines := []string{
		s.title.Render(fmt.Sprintf("%s (scheduler %d)", reqs.Name, reqs.ID)) + " " + status,
		s.header.Render(fmt.Sprintf("profiles: %d", len(reqs.SchedulingRequirements))),
	}

	if conf := configurationLine(reqs); conf != "" {
		lines = append(lines, s.detail.Render(conf))
	}

	if len(reqs.SchedulingRequirements) == 0 {
		lines = append(lines, s.empty.Render("No profiles scheduled."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	width := assignmentColumnWidth(reqs.SchedulingRequirements)
	for _, req := range reqs.SchedulingRequirements {
		lines = append(lines, requirementLine(req, width, s))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func configurationLine(reqs *egta.SchedulerRequirements) string {
	conf := reqs.ConfigurationMap()
	if len(conf) == 0 {
		return ""
	}

	keys := make([]string, 0, len(conf))
	for key := range conf {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, key := range keys {
		pairs = append(pairs, fmt.Sprintf("%s=%s", key, conf[key]))
	}

	return "configuration: " + strings.Join(pairs, " ")
}

func requirementLine(req egta.ProfileRequirement, width int, s styles) string {
	assignment := s.assignment.Render(padRight(req.Assignment, width))
	bar := renderProgressBar(req.CurrentCount, req.Requirement, 24, s)

	countStyle := s.count
	if req.Requirement > 0 && req.CurrentCount >= req.Requirement {
		countStyle = s.done
	}
	counts := countStyle.Render(fmt.Sprintf("%d/%d", req.CurrentCount, req.Requirement))
	id := s.count.Render(fmt.Sprintf("(profile %d)", req.ProfileID))

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		assignment,
		" ",
		bar,
		" ",
		counts,
		" ",
		id,
	)
}

func renderProgressBar(current, required, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	fraction := 1.0
	if required > 0 {
		fraction = float64(current) / float64(required)
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}

	filled := int(math.Round(float64(width) * fraction))
	if filled > width {
		filled = width
	}

	empty := width - filled
	fillSegment := s.barFill.Render(strings.Repeat("=", filled))
	emptySegment := s.barEmpty.Render(strings.Repeat("-", empty))

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		fillSegment,
		emptySegment,
		s.barBracket.Render("]"),
	)
}

func assignmentColumnWidth(reqs []egta.ProfileRequirement) int {
	width := 0
	for _, req := range reqs {
		if len(req.Assignment) > width {
			width = len(req.Assignment)
		}
	}
	return width
}

func padRight(text string, width int) string {
	if len(text) >= width {
		return text
	}
	return text + strings.Repeat(" ", width-len(text))
}
