package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the server CLI. Without a subcommand it serves.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "server",
		Short:        "Trip planner authentication API",
		SilenceUsage: true,
		RunE:         runServe,
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newHashPasswordCmd())
	cmd.AddCommand(newCreateUserCmd())

	return cmd
}
