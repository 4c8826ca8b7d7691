package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	egtaclient "github.com/egta-tools/egta-cli/internal/adapters/egta"
	"github.com/egta-tools/egta-cli/internal/domain"
)

func newProfileCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Inspect and schedule profiles",
	}

	cmd.AddCommand(
		newProfileShowCmd(app),
		newProfileAddCmd(app),
		newProfileUpdateCmd(app),
		newProfileRemoveCmd(app),
		newProfileRemoveAllCmd(app),
	)

	return cmd
}

// schedulerRef names the scheduler a profile command operates on. The flags
// differ from schedulerSelector so --id stays free for the profile itself.
type schedulerRef struct {
	id   int64
	name string
}

func addSchedulerRefFlags(cmd *cobra.Command, ref *schedulerRef) {
	cmd.Flags().Int64Var(&ref.id, "scheduler-id", 0, "Scheduler id")
	cmd.Flags().StringVar(&ref.name, "scheduler", "", "Scheduler name")
}

func (ref schedulerRef) resolve(cmd *cobra.Command, client *egtaclient.Client) (int64, error) {
	if ref.id != 0 {
		return ref.id, nil
	}
	if ref.name == "" {
		return 0, errors.New("pass --scheduler-id or --scheduler to pick a scheduler")
	}

	sched, err := client.SchedulerByName(cmd.Context(), ref.name)
	if err != nil {
		return 0, err
	}

	return sched.ID, nil
}

func newProfileShowCmd(app *app) *cobra.Command {
	var id int64
	var granularity string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show profile data as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			gran, err := egtaclient.ParseGranularity(granularity)
			if err != nil {
				return err
			}

			client, err := app.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			var out any
			switch gran {
			case egtaclient.GranularityStructure:
				out, err = client.ProfileInfo(cmd.Context(), id)
			case egtaclient.GranularitySummary:
				out, err = client.ProfileSummary(cmd.Context(), id)
			case egtaclient.GranularityObservations:
				out, err = client.ProfileObservations(cmd.Context(), id)
			case egtaclient.GranularityFull:
				out, err = client.ProfileFull(cmd.Context(), id)
			}
			if err != nil {
				return err
			}

			return writeJSON(cmd, out)
		},
	}

	cmd.Flags().Int64Var(&id, "id", 0, "Profile id")
	cmd.Flags().StringVar(&granularity, "granularity", "summary", "structure, summary, observations, or full")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func newProfileAddCmd(app *app) *cobra.Command {
	var ref schedulerRef
	var assignment string
	var count int

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Schedule an assignment on a scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := domain.ParseAssignment(assignment); err != nil {
				return err
			}

			client, err := app.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			schedulerID, err := ref.resolve(cmd, client)
			if err != nil {
				return err
			}

			prof, err := client.AddProfile(cmd.Context(), schedulerID, assignment, count)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Scheduled profile %d (%s)\n", prof.ID, prof.Assignment)
			return nil
		},
	}

	addSchedulerRefFlags(cmd, &ref)
	cmd.Flags().StringVar(&assignment, "assignment", "", "Assignment like role: count strategy; ...")
	cmd.Flags().IntVar(&count, "count", 0, "Observations to require")
	_ = cmd.MarkFlagRequired("assignment")
	_ = cmd.MarkFlagRequired("count")

	return cmd
}

func newProfileUpdateCmd(app *app) *cobra.Command {
	var ref schedulerRef
	var id int64
	var assignment string
	var count int

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Change the required observation count for a profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var profRef domain.ProfileRef
			switch {
			case id != 0 && assignment != "":
				return errors.New("pass --id or --assignment, not both")
			case id != 0:
				profRef = domain.ProfileID(id)
			case assignment != "":
				profRef = domain.ProfileAssignment(assignment)
			default:
				return errors.New("pass --id or --assignment to pick a profile")
			}

			client, err := app.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			schedulerID, err := ref.resolve(cmd, client)
			if err != nil {
				return err
			}

			prof, err := client.UpdateProfile(cmd.Context(), schedulerID, profRef, count)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Updated profile %d to %d observations\n", prof.ID, count)
			return nil
		},
	}

	addSchedulerRefFlags(cmd, &ref)
	cmd.Flags().Int64Var(&id, "id", 0, "Profile id")
	cmd.Flags().StringVar(&assignment, "assignment", "", "Profile assignment")
	cmd.Flags().IntVar(&count, "count", 0, "Observations to require")
	_ = cmd.MarkFlagRequired("count")

	return cmd
}

func newProfileRemoveCmd(app *app) *cobra.Command {
	var ref schedulerRef
	var id int64

	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Unschedule a profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			schedulerID, err := ref.resolve(cmd, client)
			if err != nil {
				return err
			}

			return client.RemoveProfile(cmd.Context(), schedulerID, id)
		},
	}

	addSchedulerRefFlags(cmd, &ref)
	cmd.Flags().Int64Var(&id, "id", 0, "Profile id")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func newProfileRemoveAllCmd(app *app) *cobra.Command {
	var ref schedulerRef

	cmd := &cobra.Command{
		Use:   "remove-all",
		Short: "Unschedule every profile on a scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			schedulerID, err := ref.resolve(cmd, client)
			if err != nil {
				return err
			}

			return client.RemoveAllProfiles(cmd.Context(), schedulerID)
		},
	}

	addSchedulerRefFlags(cmd, &ref)

	return cmd
}
