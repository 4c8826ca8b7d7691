package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/egta-tools/egta-cli/internal/application"
	"github.com/egta-tools/egta-cli/internal/domain"
)

func newAuthCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage site auth tokens",
	}

	cmd.AddCommand(newAuthSetCmd(app), newAuthClearCmd(app), newAuthStatusCmd(app))

	return cmd
}

func newAuthSetCmd(app *app) *cobra.Command {
	var token string
	var fromStdin bool

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Store the auth token for the selected site",
		RunE: func(cmd *cobra.Command, _ []string) error {
			value := token
			if fromStdin {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read token from stdin: %w", err)
				}
				value = strings.TrimSpace(string(data))
			}
			if value == "" {
				return errors.New("no token given: pass --token or --stdin")
			}

			if err := app.service.SetToken(cmd.Context(), domain.SiteID(app.siteID), value); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Stored auth token for site %s\n", app.siteID)
			return nil
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Auth token value")
	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "Read the token from stdin")

	return cmd
}

func newAuthClearCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the stored auth token for the selected site",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.service.ClearToken(cmd.Context(), domain.SiteID(app.siteID)); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Cleared auth token for site %s\n", app.siteID)
			return nil
		},
	}
}

func newAuthStatusCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether an auth token is available",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "site: %s\n", app.siteID)

			if os.Getenv(application.EnvAuthToken) != "" {
				_, _ = fmt.Fprintf(out, "token: set via %s\n", application.EnvAuthToken)
				return nil
			}

			site, err := app.service.GetSite(cmd.Context(), domain.SiteID(app.siteID))
			if err != nil {
				return err
			}

			ref := site.Auth.SecretRef
			if ref == "" {
				ref = domain.SecretRefForSite(site.ID)
			}
			if _, err := app.secretStore.Get(cmd.Context(), ref); err != nil {
				if errors.Is(err, domain.ErrSecretNotFound) {
					_, _ = fmt.Fprintln(out, "token: not set")
					return nil
				}
				return err
			}

			_, _ = fmt.Fprintf(out, "token: stored at %s\n", ref)
			return nil
		},
	}
}
