package main

import (
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "kpm-analyzer",
		Short:         "Ingest and serve KPM telemetry from RAN xApp logs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML configuration file (defaults to $KPM_CONFIG)")

	cmd.AddCommand(
		newServeCommand(opts),
		newWatchCommand(opts),
		newIngestCommand(opts),
		newMigrateCommand(opts),
		newSimulateCommand(),
	)
	return cmd
}
