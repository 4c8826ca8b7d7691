package sites

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/egta-tools/egta-cli/internal/application"
	"github.com/egta-tools/egta-cli/internal/domain"
)

func TestRenderSiteListing(t *testing.T) {
	output, err := Render([]application.SiteStatus{
		{
			Site: domain.Site{
				ID:     "prod",
				Domain: "egtaonline.eecs.umich.edu",
				Retry:  &domain.RetryConfig{MaxTries: 5, DelaySeconds: 10, Backoff: 1.5},
			},
			HasToken: true,
		},
		{
			Site:     domain.Site{ID: "staging", Domain: "egta-staging.example.org"},
			HasToken: false,
		},
	})

	require.NoError(t, err)
	assert.Contains(t, output, "sites: 2")
	assert.Contains(t, output, "prod")
	assert.Contains(t, output, "token set")
	assert.Contains(t, output, "domain: egtaonline.eecs.umich.edu")
	assert.Contains(t, output, "retry: 5 tries, 10s delay, 1.5x backoff")
	assert.Contains(t, output, "staging")
	assert.Contains(t, output, "no token")
}

func TestRenderEmptySiteListing(t *testing.T) {
	output, err := Render(nil)

	require.NoError(t, err)
	assert.Contains(t, output, "sites: 0")
	assert.Contains(t, output, `No sites configured. Add one with "egta site add".`)
}
