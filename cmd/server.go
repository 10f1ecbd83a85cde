package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"booking-payments/internal/scheduler"
	"booking-payments/internal/wire"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

func serveCmd() *cobra.Command {
	var noScheduler bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the reconciliation scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			config, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			logger.Info("Starting application",
				zap.String("app", config.App.Name),
				zap.String("port", config.App.Port),
				zap.Bool("debug", config.App.Debug),
			)

			d, err := buildDeps(cmd.Context(), config, logger)
			if err != nil {
				return err
			}
			defer d.Close()

			app := wire.Wiring(d.repo, d.gw, d.locker, d.db, config, logger)

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				return APIServer(ctx, app.Router, config.App.Port, logger)
			})
			if !noScheduler {
				sched := scheduler.New(app.Service.Reconcile, config.Reconcile.BootDelay, config.Reconcile.Interval, logger)
				g.Go(func() error {
					return sched.Run(ctx)
				})
			}

			return g.Wait()
		},
	}

	cmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "serve HTTP only, leave polling to another instance")

	return cmd
}

// APIServer serves handler until ctx is cancelled, then shuts down gracefully.
func APIServer(ctx context.Context, handler http.Handler, port string, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown", zap.Error(err))
		return err
	}
	logger.Info("Server stopped")
	return nil
}
