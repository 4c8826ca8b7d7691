package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	egtaclient "github.com/egta-tools/egta-cli/internal/adapters/egta"
)

func newSimsCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sims",
		Short: "Browse simulation jobs",
	}

	cmd.AddCommand(
		newSimsListCmd(app),
		newSimsShowCmd(app),
	)

	return cmd
}

func newSimsListCmd(app *app) *cobra.Command {
	var page int
	var sortColumn string
	var ascending bool
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List simulation jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			var rows []egtaclient.Simulation
			fetch := func(ctx context.Context) error {
				it := client.Simulations(egtaclient.SimulationsOptions{
					PageStart:  page,
					Ascending:  ascending,
					SortColumn: sortColumn,
				})
				for it.Next(ctx) {
					rows = append(rows, it.Simulation())
					if limit > 0 && len(rows) >= limit {
						break
					}
				}
				return it.Err()
			}

			if err := runFetchSpinner(cmd.Context(), cmd.ErrOrStderr(), "Fetching simulations...", fetch); err != nil {
				return err
			}

			rendered, err := app.simsRenderer(rows)
			if err != nil {
				return fmt.Errorf("render simulations: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "Listing page to start from")
	cmd.Flags().StringVar(&sortColumn, "sort", "job", "Sort column: state, profile, simulator, folder, or job")
	cmd.Flags().BoolVar(&ascending, "asc", false, "Sort ascending instead of descending")
	cmd.Flags().IntVar(&limit, "limit", 25, "Maximum rows to fetch (0 for the full listing)")

	return cmd
}

func newSimsShowCmd(app *app) *cobra.Command {
	var folder int

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show one simulation's detail",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			detail, err := client.Simulation(cmd.Context(), folder)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "folder: %d\n", detail.FolderNumber)
			_, _ = fmt.Fprintf(out, "state: %s\n", detail.State)
			_, _ = fmt.Fprintf(out, "profile: %s\n", detail.Profile)
			_, _ = fmt.Fprintf(out, "simulator: %s\n", detail.SimulatorFullname)
			_, _ = fmt.Fprintf(out, "size: %d\n", detail.Size)
			_, _ = fmt.Fprintf(out, "job: %s\n", detail.Job)
			if detail.ErrorMessage != "" {
				_, _ = fmt.Fprintf(out, "error: %s\n", detail.ErrorMessage)
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&folder, "folder", 0, "Simulation folder number")
	_ = cmd.MarkFlagRequired("folder")

	return cmd
}
