package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	egtaclient "github.com/egta-tools/egta-cli/internal/adapters/egta"
)

func newGameCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "game",
		Short: "Inspect and edit games",
	}

	cmd.AddCommand(
		newGameListCmd(app),
		newGameShowCmd(app),
		newGameCreateCmd(app),
		newGameDeleteCmd(app),
		newGameAddRoleCmd(app),
		newGameRemoveRoleCmd(app),
		newGameAddStrategyCmd(app),
		newGameRemoveStrategyCmd(app),
	)

	return cmd
}

type gameSelector struct {
	id   int64
	name string
}

func addGameSelectorFlags(cmd *cobra.Command, sel *gameSelector) {
	cmd.Flags().Int64Var(&sel.id, "id", 0, "Game id")
	cmd.Flags().StringVar(&sel.name, "name", "", "Game name")
}

func (sel gameSelector) resolve(cmd *cobra.Command, client *egtaclient.Client) (int64, error) {
	if sel.id != 0 {
		return sel.id, nil
	}
	if sel.name == "" {
		return 0, errors.New("pass --id or --name to pick a game")
	}

	game, err := client.GameByName(cmd.Context(), sel.name)
	if err != nil {
		return 0, err
	}

	return game.ID, nil
}

func newGameListCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List games",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := app.client(cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			games, err := client.Games(cmd.Context())
			if err != nil {
				return err
			}

			for _, game := range games {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%d players\n", game.ID, game.Name, game.Size)
			}

			return nil
		},
	}
}

func newGameShowCmd(app *app) *cobra.Command {
	var sel gameSelector
	var granularity string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show game data as JSON",
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

			id, err := sel.resolve(cmd, client)
			if err != nil {
				return err
			}

			var out any
			switch gran {
			case egtaclient.GranularityStructure:
				out, err = client.GameStructure(cmd.Context(), id)
			case egtaclient.GranularitySummary:
				out, err = client.GameSummary(cmd.Context(), id)
			case egtaclient.GranularityObservations:
				out, err = client.GameObservations(cmd.Context(), id)
			case egtaclient.GranularityFull:
				out, err = client.GameFull(cmd.Context(), id)
			}
			if err != nil {
				return err
			}

			return writeJSON(cmd, out)
		},
	}

	addGameSelectorFlags(cmd, &sel)
	cmd.Flags().StringVar(&granularity, "granularity", "structure", "structure, summary, observations, or full")

	return cmd
}

func newGameCreateCmd(app *app) *cobra.Command {
	var simulatorID int64
	var name string
	var size int
	var config []string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a game",
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

			gameID, err := client.CreateGame(cmd.Context(), simulatorID, name, size, conf)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created game %d (%s)\n", gameID, name)
			return nil
		},
	}

	cmd.Flags().Int64Var(&simulatorID, "simulator-id", 0, "Simulator id the game runs on")
	cmd.Flags().StringVar(&name, "name", "", "Game name")
	cmd.Flags().IntVar(&size, "size", 0, "Number of players")
	cmd.Flags().StringArrayVar(&config, "config", nil, "Configuration override key=value (repeatable)")
	_ = cmd.MarkFlagRequired("simulator-id")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("size")

	return cmd
}

func newGameDeleteCmd(app *app) *cobra.Command {
	var sel gameSelector

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a game",
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

			return client.DeleteGame(cmd.Context(), id)
		},
	}

	addGameSelectorFlags(cmd, &sel)

	return cmd
}

func newGameAddRoleCmd(app *app) *cobra.Command {
	var sel gameSelector
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

			return client.AddGameRole(cmd.Context(), id, role, count)
		},
	}

	addGameSelectorFlags(cmd, &sel)
	cmd.Flags().StringVar(&role, "role", "", "Role name")
	cmd.Flags().IntVar(&count, "count", 0, "Players in the role")
	_ = cmd.MarkFlagRequired("role")
	_ = cmd.MarkFlagRequired("count")

	return cmd
}

func newGameRemoveRoleCmd(app *app) *cobra.Command {
	var sel gameSelector
	var role string

	cmd := &cobra.Command{
		Use:   "remove-role",
		Short: "Remove a role from the game",
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

			return client.RemoveGameRole(cmd.Context(), id, role)
		},
	}

	addGameSelectorFlags(cmd, &sel)
	cmd.Flags().StringVar(&role, "role", "", "Role name")
	_ = cmd.MarkFlagRequired("role")

	return cmd
}

func newGameAddStrategyCmd(app *app) *cobra.Command {
	var sel gameSelector
	var entries []string

	cmd := &cobra.Command{
		Use:   "add-strategy",
		Short: "Add strategies to the game",
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

			return client.AddGameStrategies(cmd.Context(), id, strategies)
		},
	}

	addGameSelectorFlags(cmd, &sel)
	cmd.Flags().StringArrayVar(&entries, "strategy", nil, "Strategy as role/name (repeatable)")
	_ = cmd.MarkFlagRequired("strategy")

	return cmd
}

func newGameRemoveStrategyCmd(app *app) *cobra.Command {
	var sel gameSelector
	var entries []string

	cmd := &cobra.Command{
		Use:   "remove-strategy",
		Short: "Remove strategies from the game",
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

			return client.RemoveGameStrategies(cmd.Context(), id, strategies)
		},
	}

	addGameSelectorFlags(cmd, &sel)
	cmd.Flags().StringArrayVar(&entries, "strategy", nil, "Strategy as role/name (repeatable)")
	_ = cmd.MarkFlagRequired("strategy")

	return cmd
}
