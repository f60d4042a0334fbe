package cmd

import (
	"os/signal"
	"syscall"

	"coach-booking/internal/wire"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func serveCmd() *cobra.Command {
	var noScheduler bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the background sweeps",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rt, err := newRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			rt.logger.Info("Starting application",
				zap.String("app", rt.config.App.Name),
				zap.String("port", rt.config.App.Port),
				zap.Bool("debug", rt.config.App.Debug),
			)

			if rt.config.Scheduler.Enabled && !noScheduler {
				s := rt.scheduler()
				s.Start(ctx)
				defer s.Stop()
			}

			app := wire.Wiring(rt.service, rt.config, rt.scripter(), rt.logger)
			return APIServer(ctx, app.Router, rt.config.App.Port, rt.logger)
		},
	}

	cmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "serve HTTP only, without the periodic sweeps")
	return cmd
}
