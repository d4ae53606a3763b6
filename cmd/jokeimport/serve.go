package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/nao1215/jokeimport/internal/admin"
	"github.com/nao1215/jokeimport/internal/app"
	"github.com/nao1215/jokeimport/internal/config"
	"github.com/nao1215/jokeimport/internal/schedule"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the admin HTTP server",
		Long: `Serve starts the admin HTTP server:

  GET  /admin/config/jokes/settings   current settings
  PUT  /admin/config/jokes/settings   change settings
  POST /admin/config/jokes/import     run an import now
  GET  /admin/jokes                   latest jokes (?page=N)
  GET  /jokes/content                 redirect to the content overview
  GET  /jokes/logs                    redirect to the module's log view
  GET  /health                        store health
  GET  /metrics                       Prometheus metrics

With --schedule, imports also run periodically.

Examples:
  # Serve on the default address
  jokeimport serve

  # Import every 30 minutes
  jokeimport serve --schedule "@every 30m"

  # Import at the top of every hour
  jokeimport serve -l :9090 --schedule "0 * * * *"`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	cmd.Flags().StringP("listen", "l", config.DefaultListenAddress, "Address the admin server binds to")
	cmd.Flags().String("schedule", "", "Cron expression or descriptor for periodic imports")
	addFetchFlags(cmd)
	addStoreFlags(cmd)

	return cmd
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	expr, err := cmd.Flags().GetString("schedule")
	if err != nil {
		return err
	}
	if expr != "" {
		if err := schedule.Validate(expr); err != nil {
			return err
		}
	}

	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		logger := a.Logger()

		if expr != "" {
			sched, err := schedule.New(expr, func(ctx context.Context) error {
				_, err := a.ImportNow(ctx)
				return err
			}, schedule.WithLogger(logger))
			if err != nil {
				return err
			}
			sched.Start(ctx)
			defer sched.Stop()
			logger.Info("next scheduled import", "at", sched.Next())
		}

		server := admin.New(a,
			admin.WithLogger(logger),
			admin.WithMetricsHandler(a.MetricsHandler()),
		)
		return server.Run(ctx, a.Config().ListenAddress)
	})
}
