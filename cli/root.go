// Package cli holds the commands of the complaints-api binary
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCommand creates the root command. Without a subcommand it serves the api.
func NewRootCommand() *cobra.Command {
	serve := NewServeCommand()

	cmd := &cobra.Command{
		Use:          "complaints-api",
		Short:        "Civic complaints api",
		Long:         "Files, tracks and resolves civic complaints between citizens and municipal authorities.",
		SilenceUsage: true,
		RunE:         serve.RunE,
	}

	cmd.AddCommand(serve)
	cmd.AddCommand(NewSeedCommand())
	return cmd
}
