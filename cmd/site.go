package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/egta-tools/egta-cli/internal/domain"
)

func newSiteCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "site",
		Short: "Manage EGTA site entries",
	}

	cmd.AddCommand(
		newSiteAddCmd(app),
		newSiteListCmd(app),
		newSiteShowCmd(app),
		newSiteRemoveCmd(app),
	)

	return cmd
}

func newSiteAddCmd(app *app) *cobra.Command {
	var id string
	var host string
	var token string
	var maxTries int
	var delaySeconds int
	var backoff float64

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add or update a site",
		RunE: func(cmd *cobra.Command, _ []string) error {
			site := domain.Site{ID: domain.SiteID(id), Domain: host}
			if cmd.Flags().Changed("max-tries") || cmd.Flags().Changed("delay") || cmd.Flags().Changed("backoff") {
				site.Retry = &domain.RetryConfig{
					MaxTries:     maxTries,
					DelaySeconds: delaySeconds,
					Backoff:      backoff,
				}
			}

			if err := app.service.AddSite(cmd.Context(), site, token); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Saved site %s (%s)\n", site.ID, site.Domain)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "default", "Site id")
	cmd.Flags().StringVar(&host, "domain", "", "EGTA Online host, bare or full URL")
	cmd.Flags().StringVar(&token, "token", "", "Auth token to store for the site")
	cmd.Flags().IntVar(&maxTries, "max-tries", 20, "Retry attempts per request")
	cmd.Flags().IntVar(&delaySeconds, "delay", 60, "Initial retry delay in seconds")
	cmd.Flags().Float64Var(&backoff, "backoff", 1.2, "Retry delay multiplier")
	_ = cmd.MarkFlagRequired("domain")

	return cmd
}

func newSiteListCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured sites",
		RunE: func(cmd *cobra.Command, _ []string) error {
			statuses, err := app.service.ListSiteStatuses(cmd.Context())
			if err != nil {
				return err
			}

			rendered, err := app.sitesRenderer(statuses)
			if err != nil {
				return fmt.Errorf("render sites: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}
}

func newSiteShowCmd(app *app) *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show one site entry",
		RunE: func(cmd *cobra.Command, _ []string) error {
			site, err := app.service.GetSite(cmd.Context(), domain.SiteID(id))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "id: %s\n", site.ID)
			_, _ = fmt.Fprintf(out, "domain: %s\n", site.Domain)
			_, _ = fmt.Fprintf(out, "secret ref: %s\n", site.Auth.SecretRef)
			if retry := site.Retry; retry != nil {
				_, _ = fmt.Fprintf(out, "retry: %d tries, %ds delay, %.1fx backoff\n",
					retry.MaxTries, retry.DelaySeconds, retry.Backoff)
			} else {
				_, _ = fmt.Fprintln(out, "retry: defaults")
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "default", "Site id")

	return cmd
}

func newSiteRemoveCmd(app *app) *cobra.Command {
	var id string

	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Remove a site and its stored token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.service.RemoveSite(cmd.Context(), domain.SiteID(id)); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed site %s\n", id)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Site id")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}
