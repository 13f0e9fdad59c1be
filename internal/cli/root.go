// Package cli implements the livecheckctl command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Build metadata variables, set by -ldflags at compile time.
var (
	Version   = "dev"
	CommitSHA = "unknown"
)

// NewRootCommand builds a fresh command tree so tests can run commands in isolation.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "livecheckctl",
		Short: "Operator tooling for the livecheck liveness service",
		Long: `livecheckctl mints development tokens for the livecheck API and replays
scripted detector frames through the gesture sequencing engine offline.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			// .env file is optional, don't fail if not found
			_ = godotenv.Load()
		},
	}
	root.AddCommand(newTokenCommand(), newSimulateCommand(), newVersionCommand())
	return root
}

func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "livecheckctl %s (%s)\n", Version, CommitSHA)
		},
	}
}
