package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	egtaclient "github.com/egta-tools/egta-cli/internal/adapters/egta"
	requirementsrender "github.com/egta-tools/egta-cli/internal/adapters/render/requirements"
	simlistrender "github.com/egta-tools/egta-cli/internal/adapters/render/simlist"
	sitesrender "github.com/egta-tools/egta-cli/internal/adapters/render/sites"
	tomlrepo "github.com/egta-tools/egta-cli/internal/adapters/repo/toml"
	chainstore "github.com/egta-tools/egta-cli/internal/adapters/secrets/chain"
	"github.com/egta-tools/egta-cli/internal/application"
	"github.com/egta-tools/egta-cli/internal/domain"
	"github.com/egta-tools/egta-cli/internal/ports"
)

type app struct {
	service              *application.Service
	secretStore          ports.SecretStore
	sitesRenderer        func([]application.SiteStatus) (string, error)
	requirementsRenderer func(*egtaclient.SchedulerRequirements) (string, error)
	simsRenderer         func([]egtaclient.Simulation) (string, error)
	httpClient           *http.Client

	siteID  string
	verbose bool
}

func wireApp() (*app, error) {
	repo, err := tomlrepo.NewRepository(viper.New())
	if err != nil {
		return nil, fmt.Errorf("wire site repository: %w", err)
	}

	configDir, err := tomlrepo.ConfigDir()
	if err != nil {
		return nil, fmt.Errorf("resolve config directory: %w", err)
	}

	secretStore, err := chainstore.NewPassFirstWithFileFallback(filepath.Join(configDir, "secrets"))
	if err != nil {
		return nil, fmt.Errorf("wire secret store chain: %w", err)
	}

	return &app{
		service:              application.NewService(repo, secretStore),
		secretStore:          secretStore,
		sitesRenderer:        sitesrender.Render,
		requirementsRenderer: requirementsrender.Render,
		simsRenderer:         simlistrender.Render,
		httpClient:           http.DefaultClient,
	}, nil
}

// client resolves the selected site and opens an authenticated session
// against it.
func (a *app) client(cmd *cobra.Command) (*egtaclient.Client, error) {
	ctx := cmd.Context()

	resolved, err := a.service.ResolveSite(ctx, domain.SiteID(a.siteID))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSiteNotFound):
			return nil, fmt.Errorf("%w (add one with \"egta site add --id %s --domain <host>\" or set %s)",
				err, a.siteID, application.EnvDomain)
		case errors.Is(err, domain.ErrNoAuthToken):
			return nil, fmt.Errorf("%w (store one with \"egta auth set --site %s\" or set %s)",
				err, a.siteID, application.EnvAuthToken)
		default:
			return nil, err
		}
	}

	cfg := egtaclient.Config{
		Domain:     resolved.Site.Domain,
		AuthToken:  resolved.Token,
		HTTPClient: a.httpClient,
		Logger:     a.logger(cmd),
	}
	if retry := resolved.Site.Retry; retry != nil {
		cfg.Retry = egtaclient.RetryPolicy{
			MaxTries: retry.MaxTries,
			Delay:    time.Duration(retry.DelaySeconds) * time.Second,
			Backoff:  retry.Backoff,
		}
	}

	client, err := egtaclient.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", resolved.Site.Domain, err)
	}

	return client, nil
}

func (a *app) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if a.verbose {
		level = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
