package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "coach-booking",
		Short:         "Coaching lesson marketplace with escrowed payments",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(serveCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(sweepCmd())
	root.AddCommand(tokenCmd())
	return root
}

// Execute runs the CLI; without a subcommand it serves the API.
func Execute() {
	root := newRootCmd()
	if len(os.Args) == 1 {
		root.SetArgs([]string{"serve"})
	}
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
