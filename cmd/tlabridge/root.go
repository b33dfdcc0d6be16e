package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tlabridge",
		Short: "tlabridge - editor integration core for the TLA+ tools",
		Long: `tlabridge keeps an editor's model checking result panel in sync with the
latest check result and runs the TLA+ document export tool chains.

Editors talk to it through "tlabridge serve". The export commands run the
same pipelines from a terminal.`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if *debugLogging {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newExportCommand())
	cmd.AddCommand(newInitCommand())
	cmd.AddCommand(newSessionCommand())
	cmd.AddCommand(newConfigCommand())

	return cmd
}

func execute() error {
	rootCmd := newRootCommand()
	return rootCmd.Execute()
}
