package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "egta",
		Short:         "EGTA Online CLI: manage simulators, schedulers, profiles, and games",
		Long:          "egta talks to an EGTA Online deployment: inspect simulators, drive generic schedulers and their profile requirements, create games, and follow simulation jobs from the terminal.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.PersistentFlags().StringVar(&app.siteID, "site", "default", "Site id from the sites file")
	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "Log request detail to stderr")

	rootCmd.AddCommand(
		newVersionCmd(),
		newSiteCmd(app),
		newAuthCmd(app),
		newSimulatorCmd(app),
		newSchedulerCmd(app),
		newProfileCmd(app),
		newGameCmd(app),
		newSimsCmd(app),
	)

	return rootCmd
}
