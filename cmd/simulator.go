package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	egtaclient "github.com/egta-tools/egta-cli/internal/adapters/egta"
)

func newSimulatorCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulator",
		Short: "Inspect and edit simulators",
	}

	cmd.AddCommand(
		newSimulatorListCmd(app),
		newSimulatorShowCmd(app),
		newSimulatorAddRoleCmd(app),
		newSimulatorRemoveRoleCmd(app),
		newSimulatorAddStrategyCmd(app),
		newSimulatorRemoveStrategyCmd(app),
		newSimulatorCreateSchedulerCmd(app),
		newSimulatorCreateGameCmd(app),
	)

	return cmd
}

// simulatorSelector picks a simulator by id, or by name and optional
// version when ids are not at hand.
type simulatorSelector struct {
	id      int64
	name    string
	version string
}

func addSimulatorSelectorFlags(cmd *cobra.Command, sel *simulatorSelector) {
	cmd.Flags().Int64Var(&sel.id, "id", 0, "Simulator id")
	cmd.Flags().StringVar(&sel.name, "name", "", "Simulator name")
	cmd.Flags().StringVar(&sel.version, "version", "", "Simulator version (with --name)")
}

func (sel simulatorSelector) resolve(cmd *cobra.Command, client *egtaclient.Client) (int64, error) {
	if sel.id != 0 {
		return sel.id, nil
	}
	if sel.name == "" {
		return 0, errors.New("pass --id or --name to pick a simulator")
	}

	sim, err := client.SimulatorByName(cmd.Context(), sel.name, sel.version)
	if err != nil {
		return 0, err
	}

	return sim.ID, nil
}

func newSimulatorListCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List simulators",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			sims, err := client.Simulators(cmd.Context())
			if err != nil {
				return err
			}

			for _, sim := range sims {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", sim.ID, sim.FullName())
			}

			return nil
		},
	}
}

func newSimulatorShowCmd(app *app) *cobra.Command {
	var sel simulatorSelector

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show simulator detail as JSON",
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

			info, err := client.SimulatorInfo(cmd.Context(), id)
			if err != nil {
				return err
			}

			return writeJSON(cmd, info)
		},
	}

	addSimulatorSelectorFlags(cmd, &sel)

	return cmd
}

func newSimulatorAddRoleCmd(app *app) *cobra.Command {
	var sel simulatorSelector
	var role string

	cmd := &cobra.Command{
		Use:   "add-role",
		Short: "Add a role to a simulator",
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

			return client.AddSimulatorRole(cmd.Context(), id, role)
		},
	}

	addSimulatorSelectorFlags(cmd, &sel)
	cmd.Flags().StringVar(&role, "role", "", "Role name")
	_ = cmd.MarkFlagRequired("role")

	return cmd
}

func newSimulatorRemoveRoleCmd(app *app) *cobra.Command {
	var sel simulatorSelector
	var role string

	cmd := &cobra.Command{
		Use:   "remove-role",
		Short: "Remove a role from a simulator",
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

			return client.RemoveSimulatorRole(cmd.Context(), id, role)
		},
	}

	addSimulatorSelectorFlags(cmd, &sel)
	cmd.Flags().StringVar(&role, "role", "", "Role name")
	_ = cmd.MarkFlagRequired("role")

	return cmd
}

func newSimulatorAddStrategyCmd(app *app) *cobra.Command {
	var sel simulatorSelector
	var entries []string

	cmd := &cobra.Command{
		Use:   "add-strategy",
		Short: "Add strategies to a simulator",
		RunE: func(cmd *cobra.Command, _ []string) error {
			strategies, err := parseRoleStrategies(entries)
			if err != nil {
				return err
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

			return client.AddSimulatorStrategies(cmd.Context(), id, strategies)
		},
	}

	addSimulatorSelectorFlags(cmd, &sel)
	cmd.Flags().StringArrayVar(&entries, "strategy", nil, "Strategy as role/name (repeatable)")
	_ = cmd.MarkFlagRequired("strategy")

	return cmd
}

func newSimulatorRemoveStrategyCmd(app *app) *cobra.Command {
	var sel simulatorSelector
	var entries []string

	cmd := &cobra.Command{
		Use:   "remove-strategy",
		Short: "Remove strategies from a simulator",
		RunE: func(cmd *cobra.Command, _ []string) error {
			strategies, err := parseRoleStrategies(entries)
			if err != nil {
				return err
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

			return client.RemoveSimulatorStrategies(cmd.Context(), id, strategies)
		},
	}

	addSimulatorSelectorFlags(cmd, &sel)
	cmd.Flags().StringArrayVar(&entries, "strategy", nil, "Strategy as role/name (repeatable)")
	_ = cmd.MarkFlagRequired("strategy")

	return cmd
}

func newSimulatorCreateSchedulerCmd(app *app) *cobra.Command {
	var sel simulatorSelector
	var spec schedulerSpecFlags

	cmd := &cobra.Command{
		Use:   "create-scheduler",
		Short: "Create a generic scheduler for a simulator",
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

			return runCreateScheduler(cmd, client, id, spec)
		},
	}

	addSimulatorSelectorFlags(cmd, &sel)
	addSchedulerSpecFlags(cmd, &spec)

	return cmd
}

func newSimulatorCreateGameCmd(app *app) *cobra.Command {
	var sel simulatorSelector
	var name string
	var size int
	var config []string

	cmd := &cobra.Command{
		Use:   "create-game",
		Short: "Create a game for a simulator",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := parseConfigPairs(config)
			if err != nil {
				return err
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

			gameID, err := client.CreateGame(cmd.Context(), id, name, size, conf)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created game %d (%s)\n", gameID, name)
			return nil
		},
	}

	addSimulatorSelectorFlags(cmd, &sel)
	cmd.Flags().StringVar(&name, "game", "", "Game name")
	cmd.Flags().IntVar(&size, "size", 0, "Number of players")
	cmd.Flags().StringArrayVar(&config, "config", nil, "Configuration override key=value (repeatable)")
	_ = cmd.MarkFlagRequired("game")
	_ = cmd.MarkFlagRequired("size")

	return cmd
}

func parseRoleStrategies(entries []string) (map[string][]string, error) {
	strategies := make(map[string][]string, len(entries))
	for _, entry := range entries {
		role, strategy, ok := strings.Cut(entry, "/")
		if !ok || role == "" || strategy == "" {
			return nil, fmt.Errorf("strategy %q must be role/name", entry)
		}
		strategies[role] = append(strategies[role], strategy)
	}
	return strategies, nil
}

func parseConfigPairs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	conf := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("configuration entry %q must be key=value", pair)
		}
		conf[key] = value
	}
	return conf, nil
}
