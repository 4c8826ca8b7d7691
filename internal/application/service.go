// Package application holds the use cases that combine the site registry,
// the secret store, and environment overrides into something the CLI can
// hand to the EGTA client.
package application

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/egta-tools/egta-cli/internal/domain"
	"github.com/egta-tools/egta-cli/internal/ports"
)

// Environment variables that override the stored site configuration, for
// scripting and CI use without a sites file.
const (
	EnvDomain    = "EGTA_DOMAIN"
	EnvAuthToken = "EGTA_AUTH_TOKEN"
)

type Service struct {
	repo  ports.SiteRepository
	store ports.SecretStore

	lookupEnv func(key string) (string, bool)
}

func NewService(repo ports.SiteRepository, store ports.SecretStore) *Service {
	return &Service{
		repo:      repo,
		store:     store,
		lookupEnv: os.LookupEnv,
	}
}

// AddSite validates and saves a site. When token is non-empty it is stored
// first, so a failed save can roll the token back out.
func (s *Service) AddSite(ctx context.Context, site domain.Site, token string) error {
	if err := site.Validate(); err != nil {
		return fmt.Errorf("validate site: %w", err)
	}
	if site.Auth.SecretRef == "" {
		site.Auth.SecretRef = domain.SecretRefForSite(site.ID)
	}

	if token != "" {
		if err := s.store.Put(ctx, site.Auth.SecretRef, token); err != nil {
			return fmt.Errorf("store auth token: %w", err)
		}
	}

	if err := s.repo.Save(ctx, site); err != nil {
		if token != "" {
			if rollbackErr := s.store.Delete(ctx, site.Auth.SecretRef); rollbackErr != nil {
				return fmt.Errorf("save site and rollback stored token: %w", errors.Join(err, rollbackErr))
			}
		}
		return fmt.Errorf("save site: %w", err)
	}

	return nil
}

func (s *Service) RemoveSite(ctx context.Context, id domain.SiteID) error {
	site, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get site: %w", err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete site: %w", err)
	}

	ref := site.Auth.SecretRef
	if ref == "" {
		ref = domain.SecretRefForSite(id)
	}
	if err := s.store.Delete(ctx, ref); err != nil && !errors.Is(err, domain.ErrSecretNotFound) {
		return fmt.Errorf("site removed but auth token not deleted: %w", err)
	}

	return nil
}

func (s *Service) ListSites(ctx context.Context) ([]domain.Site, error) {
	sites, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	return sites, nil
}

func (s *Service) GetSite(ctx context.Context, id domain.SiteID) (domain.Site, error) {
	site, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Site{}, fmt.Errorf("get site: %w", err)
	}
	return site, nil
}

// ResolveSite produces everything needed to connect to a site: its domain,
// its auth token, and any retry overrides. EGTA_DOMAIN and EGTA_AUTH_TOKEN
// take precedence over the stored record, and together they let the client
// run with no sites file at all.
func (s *Service) ResolveSite(ctx context.Context, id domain.SiteID) (ResolvedSite, error) {
	site, err := s.repo.GetByID(ctx, id)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrSiteNotFound):
		site = domain.Site{ID: id, Auth: domain.Auth{SecretRef: domain.SecretRefForSite(id)}}
	default:
		return ResolvedSite{}, fmt.Errorf("get site: %w", err)
	}

	if value, ok := s.lookupEnv(EnvDomain); ok && value != "" {
		site.Domain = value
	}
	if site.Domain == "" {
		return ResolvedSite{}, fmt.Errorf("site %q: %w", id, domain.ErrSiteNotFound)
	}

	if value, ok := s.lookupEnv(EnvAuthToken); ok && value != "" {
		return ResolvedSite{Site: site, Token: value}, nil
	}

	ref := site.Auth.SecretRef
	if ref == "" {
		ref = domain.SecretRefForSite(site.ID)
	}
	token, err := s.store.Get(ctx, ref)
	if err != nil {
		if errors.Is(err, domain.ErrSecretNotFound) {
			return ResolvedSite{}, fmt.Errorf("site %q: %w", site.ID, domain.ErrNoAuthToken)
		}
		return ResolvedSite{}, fmt.Errorf("get auth token: %w", err)
	}

	return ResolvedSite{Site: site, Token: token}, nil
}

// SetToken stores an auth token for an existing site, updating the site
// record when it gains its secret ref for the first time.
func (s *Service) SetToken(ctx context.Context, id domain.SiteID, token string) error {
	if strings.TrimSpace(token) == "" {
		return errors.New("auth token is empty")
	}

	site, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get site: %w", err)
	}

	ref := site.Auth.SecretRef
	if ref == "" {
		ref = domain.SecretRefForSite(site.ID)
	}

	if err := s.store.Put(ctx, ref, token); err != nil {
		return fmt.Errorf("store auth token: %w", err)
	}

	if site.Auth.SecretRef != ref {
		site.Auth.SecretRef = ref
		if err := s.repo.Save(ctx, site); err != nil {
			if rollbackErr := s.store.Delete(ctx, ref); rollbackErr != nil {
				return fmt.Errorf("save site auth and rollback stored token: %w", errors.Join(err, rollbackErr))
			}
			return fmt.Errorf("save site auth: %w", err)
		}
	}

	return nil
}

func (s *Service) ClearToken(ctx context.Context, id domain.SiteID) error {
	site, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get site: %w", err)
	}

	ref := site.Auth.SecretRef
	if ref == "" {
		ref = domain.SecretRefForSite(site.ID)
	}
	if err := s.store.Delete(ctx, ref); err != nil {
		return fmt.Errorf("delete auth token: %w", err)
	}

	return nil
}

// ListSiteStatuses reports every stored site together with whether an auth
// token is currently available for it.
func (s *Service) ListSiteStatuses(ctx context.Context) ([]SiteStatus, error) {
	sites, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}

	statuses := make([]SiteStatus, 0, len(sites))
	for _, site := range sites {
		ref := site.Auth.SecretRef
		if ref == "" {
			ref = domain.SecretRefForSite(site.ID)
		}
		_, err := s.store.Get(ctx, ref)
		statuses = append(statuses, SiteStatus{Site: site, HasToken: err == nil})
	}

	return statuses, nil
}
