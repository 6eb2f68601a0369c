package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/recipeops/observe"
)

func newServeCmd(opts *options) *cobra.Command {
	var (
		host string
		port int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			settings, err := loadSettings(ctx, opts.configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				settings.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				settings.Server.Port = port
			}

			oc := settings.ObserveConfig()
			oc.Logging.Writer = opts.stderr
			obs, err := observe.NewObserver(ctx, oc)
			if err != nil {
				return fmt.Errorf("observe: %w", err)
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := obs.Shutdown(shutdownCtx); err != nil {
					obs.Logger().Error(shutdownCtx, "telemetry shutdown failed", observe.Field{Key: "error", Value: err})
				}
			}()

			a, err := buildApp(ctx, settings, obs)
			if err != nil {
				return err
			}
			err = a.server.ListenAndServe(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			obs.Logger().Info(context.Background(), "shut down cleanly")
			return nil
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "listen host (overrides config)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (overrides config)")
	return cmd
}
