package application

import "github.com/egta-tools/egta-cli/internal/domain"

// ResolvedSite is a site ready to connect to: the record (with any env
// override applied to its domain) plus the auth token to send.
type ResolvedSite struct {
	Site  domain.Site
	Token string
}

type SiteStatus struct {
	Site     domain.Site
	HasToken bool
}
