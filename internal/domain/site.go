package domain

import (
	"errors"
	"fmt"
	"strings"
)

type SiteID string

// Site is a named EGTA Online deployment plus the local settings for
// talking to it.
type Site struct {
	ID     SiteID
	Domain string
	Auth   Auth
	Retry  *RetryConfig
}

type Auth struct {
	// SecretRef points to a secret-store entry, typically in
	// "egta/<site>/auth-token" form.
	SecretRef string
}

// RetryConfig overrides the client's default retry policy for one site.
type RetryConfig struct {
	MaxTries     int
	DelaySeconds int
	Backoff      float64
}

// SecretRefForSite is the default secret-store ref for a site's auth token.
func SecretRefForSite(id SiteID) string {
	return fmt.Sprintf("egta/%s/auth-token", id)
}

func (s Site) Validate() error {
	if strings.TrimSpace(string(s.ID)) == "" {
		return errors.New("site id is empty")
	}
	if strings.TrimSpace(s.Domain) == "" {
		return errors.New("site domain is empty")
	}
	if r := s.Retry; r != nil {
		if r.MaxTries < 1 {
			return errors.New("retry max tries must be at least 1")
		}
		if r.DelaySeconds < 0 {
			return errors.New("retry delay must not be negative")
		}
		if r.Backoff < 1 {
			return errors.New("retry backoff must be at least 1")
		}
	}
	return nil
}
