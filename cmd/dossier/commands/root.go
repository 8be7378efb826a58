// Package commands implements the Dossier CLI commands.
package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "dossier",
		Short:        "Chat-relay bot with conversational memory and endpoint failover",
		Version:      version,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "path to config file")
	cmd.PersistentFlags().Bool("verbose", false, "enable debug logging")

	cmd.AddCommand(newServeCmd())
	return cmd
}
