package cmd

import (
	"fmt"
	"strings"

	"coach-booking/internal/worker"

	"github.com/spf13/cobra"
)

func sweepCmd() *cobra.Command {
	names := []string{
		worker.ReminderSweepName,
		worker.AutoConfirmSweepName,
		worker.PayoutSweepName,
		worker.ReliabilitySweepName,
	}

	return &cobra.Command{
		Use:       "sweep <name>",
		Short:     "Run one background sweep now (" + strings.Join(names, ", ") + ")",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(cmd.Context())
			if err != nil {
				return err
			}
			defer rt.Close()

			report, err := rt.scheduler().RunOnce(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: selected=%d processed=%d skipped=%d failed=%d\n",
				args[0], report.Selected, report.Processed, report.Skipped, report.Failed)
			return nil
		},
	}
}
