package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "incident",
		Short:         "Incident CLI: submit indicators and follow incident analysis",
		Long:          "incident submits trafficking indicators to the incident API, follows the analysis live over the push channel (or by polling when it is unavailable), and walks through risk, dispatch and impact summary. An in-progress workflow can be resumed for up to an hour.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(newVersionCmd(), newConfigCmd())

	app, err := wireApp()
	commands := []*cobra.Command{
		newSubmitCmd(app),
		newTrackCmd(app),
		newStatusCmd(app),
		newBriefCmd(app),
		newSessionCmd(app),
	}
	if err != nil {
		// version and config do not need the wired app.
		for _, cmd := range commands {
			failWith(cmd, err)
		}
	} else {
		rootCmd.PersistentPostRunE = func(_ *cobra.Command, _ []string) error {
			return app.close()
		}
	}
	rootCmd.AddCommand(commands...)

	return rootCmd
}

func failWith(cmd *cobra.Command, err error) {
	if cmd.RunE != nil {
		cmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
	}
	for _, child := range cmd.Commands() {
		failWith(child, err)
	}
}
