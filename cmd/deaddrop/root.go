package main

import (
	"github.com/spf13/cobra"

	"deaddrop/internal/config"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	var (
		outputName string
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "deaddrop",
		Short: "Deaddrop hides encrypted files inside innocuous images, one codename at a time",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if warning, err := configureLoggerForCLI(logLevel, cfg.LogLevel); err != nil {
				return err
			} else if warning != "" {
				cmd.PrintErrln(warning)
			}
			return selectOutputFormatter(outputName)
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().StringVarP(&outputName, "output", "o", "json", "output format (json, yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newSrvCmd(cfg),
		newCreateCmd(cfg),
		newShowCmd(cfg),
		newRetrieveCmd(cfg),
		newEventsCmd(cfg),
		newDeleteCmd(cfg),
		newSweepCmd(cfg),
		newInfoCmd(cfg),
		newConfigCmd(cfg),
	)

	return cmd
}
