package sites

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/egta-tools/egta-cli/internal/application"
)

func renderView(statuses []application.SiteStatus, s styles) string {
	lines := []string{
		s.title.Render("EGTA Sites"),
		s.header.Render(fmt.Sprintf("sites: %d", len(statuses))),
	}

	if len(statuses) == 0 {
		lines = append(lines, s.empty.Render(`No sites configured. Add one with "egta site add".`))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, status := range statuses {
		lines = append(lines, s.section.Render(renderSite(status, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderSite(status application.SiteStatus, s styles) string {
	auth := s.missing.Render("no token")
	if status.HasToken {
		auth = s.ok.Render("token set")
	}

	parts := []string{
		s.site.Render(string(status.Site.ID)) + " " + auth,
		s.detail.Render("domain: " + status.Site.Domain),
	}

	if retry := status.Site.Retry; retry != nil {
		parts = append(parts, s.detail.Render(fmt.Sprintf(
			"retry: %d tries, %ds delay, %.1fx backoff",
			retry.MaxTries, retry.DelaySeconds, retry.Backoff)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
