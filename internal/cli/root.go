package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "bncho",
		Short:        "Realtime multiplayer rhythm-game server",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(newServeCmd())
	return rootCmd
}

// Execute runs the root command
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
