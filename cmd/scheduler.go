package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	egtaclient "github.com/egta-tools/egta-cli/internal/adapters/egta"
)

func newSchedulerCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scheduler",
		Short: "Manage generic schedulers",
	}

	cmd.AddCommand(
		newSchedulerListCmd(app),
		newSchedulerShowCmd(app),
		newSchedulerRequirementsCmd(app),
		newSchedulerCreateCmd(app),
		newSchedulerUpdateCmd(app),
		newSchedulerActivateCmd(app),
		newSchedulerDeactivateCmd(app),
		newSchedulerDeleteCmd(app),
		newSchedulerAddRoleCmd(app),
		newSchedulerRemoveRoleCmd(app),
		newSchedulerCreateGameCmd(app),
	)

	return cmd
}

type schedulerSelector struct {
	id   int64
	name string
}

func addSchedulerSelectorFlags(cmd *cobra.Command, sel *schedulerSelector) {
	cmd.Flags().Int64Var(&sel.id, "id", 0, "Scheduler id")
	cmd.Flags().StringVar(&sel.name, "name", "", "Scheduler name")
}

func (sel schedulerSelector) resolve(cmd *cobra.Command, client *egtaclient.Client) (int64, error) {
	if sel.id != 0 {
		return sel.id, nil
	}
	if sel.name == "" {
		return 0, errors.New("pass --id or --name to pick a scheduler")
	}

	sched, err := client.SchedulerByName(cmd.Context(), sel.name)
	if err != nil {
		return 0, err
	}

	return sched.ID, nil
}

// schedulerSpecFlags mirrors egta.SchedulerSpec for flag binding; shared by
// "scheduler create" and "simulator create-scheduler".
type schedulerSpecFlags struct {
	name                      string
	size                      int
	processMemory             int
	timePerObservation        int
	observationsPerSimulation int
	nodes                     int
	inactive                  bool
	config                    []string
}

func addSchedulerSpecFlags(cmd *cobra.Command, spec *schedulerSpecFlags) {
	cmd.Flags().StringVar(&spec.name, "scheduler", "", "Scheduler name")
	cmd.Flags().IntVar(&spec.size, "size", 0, "Players per profile")
	cmd.Flags().IntVar(&spec.processMemory, "memory", 4096, "Process memory in MB")
	cmd.Flags().IntVar(&spec.timePerObservation, "time-per-observation", 60, "Expected seconds per observation")
	cmd.Flags().IntVar(&spec.observationsPerSimulation, "observations-per-simulation", 10, "Observations per simulation job")
	cmd.Flags().IntVar(&spec.nodes, "nodes", 1, "Nodes per job")
	cmd.Flags().BoolVar(&spec.inactive, "inactive", false, "Create the scheduler paused")
	cmd.Flags().StringArrayVar(&spec.config, "config", nil, "Configuration override key=value (repeatable)")
	_ = cmd.MarkFlagRequired("scheduler")
	_ = cmd.MarkFlagRequired("size")
}

func runCreateScheduler(cmd *cobra.Command, client *egtaclient.Client, simulatorID int64, flags schedulerSpecFlags) error {
	conf, err := parseConfigPairs(flags.config)
	if err != nil {
		return err
	}

	created, err := client.CreateGenericScheduler(cmd.Context(), simulatorID, egtaclient.SchedulerSpec{
		Name:                      flags.name,
		Active:                    !flags.inactive,
		ProcessMemory:             flags.processMemory,
		Size:                      flags.size,
		TimePerObservation:        flags.timePerObservation,
		ObservationsPerSimulation: flags.observationsPerSimulation,
		Nodes:                     flags.nodes,
		Configuration:             conf,
	})
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created scheduler %d (%s)\n", created.ID, created.Name)
	return nil
}

func newSchedulerListCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List generic schedulers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			scheds, err := client.Schedulers(cmd.Context())
			if err != nil {
				return err
			}

			for _, sched := range scheds {
				state := "inactive"
				if sched.Active {
					state = "active"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\n", sched.ID, sched.Name, state)
			}

			return nil
		},
	}
}

func newSchedulerShowCmd(app *app) *cobra.Command {
	var sel schedulerSelector

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show scheduler detail as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			id, err := sel.resolve(cmd, client)
			if err != nil {
				return err
			}

			info, err := client.SchedulerInfo(cmd.Context(), id)
			if err != nil {
				return err
			}

			return writeJSON(cmd, info)
		},
	}

	addSchedulerSelectorFlags(cmd, &sel)

	return cmd
}

func newSchedulerRequirementsCmd(app *app) *cobra.Command {
	var sel schedulerSelector

	cmd := &cobra.Command{
		Use:   "requirements",
		Short: "Show scheduled profiles and their observation progress",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			id, err := sel.resolve(cmd, client)
			if err != nil {
				return err
			}

			reqs, err := client.SchedulerRequirements(cmd.Context(), id)
			if err != nil {
				return err
			}

			rendered, err := app.requirementsRenderer(reqs)
			if err != nil {
				return fmt.Errorf("render requirements: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	addSchedulerSelectorFlags(cmd, &sel)

	return cmd
}

func newSchedulerCreateCmd(app *app) *cobra.Command {
	var simulatorID int64
	var spec schedulerSpecFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a generic scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			return runCreateScheduler(cmd, client, simulatorID, spec)
		},
	}

	cmd.Flags().Int64Var(&simulatorID, "simulator-id", 0, "Simulator id to schedule")
	addSchedulerSpecFlags(cmd, &spec)
	_ = cmd.MarkFlagRequired("simulator-id")

	return cmd
}

func newSchedulerUpdateCmd(app *app) *cobra.Command {
	var sel schedulerSelector
	var newName string
	var size int
	var processMemory int
	var timePerObservation int
	var observationsPerSimulation int
	var nodes int

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update scheduler parameters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var update egtaclient.SchedulerUpdate
			changed := false
			if cmd.Flags().Changed("rename") {
				update.Name = &newName
				changed = true
			}
			if cmd.Flags().Changed("resize") {
				update.Size = &size
				changed = true
			}
			if cmd.Flags().Changed("memory") {
				update.ProcessMemory = &processMemory
				changed = true
			}
			if cmd.Flags().Changed("time-per-observation") {
				update.TimePerObservation = &timePerObservation
				changed = true
			}
			if cmd.Flags().Changed("observations-per-simulation") {
				update.ObservationsPerSimulation = &observationsPerSimulation
				changed = true
			}
			if cmd.Flags().Changed("nodes") {
				update.Nodes = &nodes
				changed = true
			}
			if !changed {
				return errors.New("nothing to update: pass at least one field flag")
			}

			client, err := app.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			id, err := sel.resolve(cmd, client)
			if err != nil {
				return err
			}

			return client.UpdateScheduler(cmd.Context(), id, update)
		},
	}

	addSchedulerSelectorFlags(cmd, &sel)
	cmd.Flags().StringVar(&newName, "rename", "", "New scheduler name")
	cmd.Flags().IntVar(&size, "resize", 0, "New profile size")
	cmd.Flags().IntVar(&processMemory, "memory", 0, "New process memory in MB")
	cmd.Flags().IntVar(&timePerObservation, "time-per-observation", 0, "New seconds per observation")
	cmd.Flags().IntVar(&observationsPerSimulation, "observations-per-simulation", 0, "New observations per simulation job")
	cmd.Flags().IntVar(&nodes, "nodes", 0, "New nodes per job")

	return cmd
}

func newSchedulerActivateCmd(app *app) *cobra.Command {
	var sel schedulerSelector

	cmd := &cobra.Command{
		Use:   "activate",
		Short: "Start the scheduler taking observations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			id, err := sel.resolve(cmd, client)
			if err != nil {
				return err
			}

			return client.ActivateScheduler(cmd.Context(), id)
		},
	}

	addSchedulerSelectorFlags(cmd, &sel)

	return cmd
}

func newSchedulerDeactivateCmd(app *app) *cobra.Command {
	var sel schedulerSelector

	cmd := &cobra.Command{
		Use:   "deactivate",
		Short: "Pause the scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			id, err := sel.resolve(cmd, client)
			if err != nil {
				return err
			}

			return client.DeactivateScheduler(cmd.Context(), id)
		},
	}

	addSchedulerSelectorFlags(cmd, &sel)

	return cmd
}

func newSchedulerDeleteCmd(app *app) *cobra.Command {
	var sel schedulerSelector

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a generic scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			id, err := sel.resolve(cmd, client)
			if err != nil {
				return err
			}

			return client.DeleteScheduler(cmd.Context(), id)
		},
	}

	addSchedulerSelectorFlags(cmd, &sel)

	return cmd
}

func newSchedulerAddRoleCmd(app *app) *cobra.Command {
	var sel schedulerSelector
	var role string
	var count int

	cmd := &cobra.Command{
		Use:   "add-role",
		Short: "Add a role with a player count",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			id, err := sel.resolve(cmd, client)
			if err != nil {
				return err
			}

			return client.AddSchedulerRole(cmd.Context(), id, role, count)
		},
	}

	addSchedulerSelectorFlags(cmd, &sel)
	cmd.Flags().StringVar(&role, "role", "", "Role name")
	cmd.Flags().IntVar(&count, "count", 0, "Players in the role")
	_ = cmd.MarkFlagRequired("role")
	_ = cmd.MarkFlagRequired("count")

	return cmd
}

func newSchedulerRemoveRoleCmd(app *app) *cobra.Command {
	var sel schedulerSelector
	var role string

	cmd := &cobra.Command{
		Use:   "remove-role",
		Short: "Remove a role from the scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			id, err := sel.resolve(cmd, client)
			if err != nil {
				return err
			}

			return client.RemoveSchedulerRole(cmd.Context(), id, role)
		},
	}

	addSchedulerSelectorFlags(cmd, &sel)
	cmd.Flags().StringVar(&role, "role", "", "Role name")
	_ = cmd.MarkFlagRequired("role")

	return cmd
}

func newSchedulerCreateGameCmd(app *app) *cobra.Command {
	var sel schedulerSelector
	var name string

	cmd := &cobra.Command{
		Use:   "create-game",
		Short: "Create a game from the scheduler's simulator and configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			id, err := sel.resolve(cmd, client)
			if err != nil {
				return err
			}

			gameID, err := client.CreateGameFromScheduler(cmd.Context(), id, name)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created game %d\n", gameID)
			return nil
		},
	}

	addSchedulerSelectorFlags(cmd, &sel)
	cmd.Flags().StringVar(&name, "game", "", "Game name (defaults to the scheduler's)")

	return cmd
}
