package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/arbor/internal/metrics"
	httpAdapter "github.com/aretw0/arbor/pkg/adapters/http"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP editing server",
	Long: `Serves every workflow of the configured store over a JSON API under /workflows/{id},
with server-sent change events, Prometheus metrics at /metrics and a health check at /health.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configFrom(cmd)
		port, _ := cmd.Flags().GetString("port")
		logger := cfg.Logger()

		store, closeStore, err := cfg.OpenStore()
		if err != nil {
			return err
		}
		defer closeStore()

		collector := metrics.New()
		mgr := cfg.NewManager(store, logger, collector)
		handler := httpAdapter.NewHandler(mgr,
			httpAdapter.WithLogger(logger),
			httpAdapter.WithMetrics(collector.Handler()),
		)

		srv := &http.Server{
			Addr:              ":" + port,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			fmt.Fprintf(cmd.OutOrStdout(), "Starting Arbor Server on %s (store: %s)\n", srv.Addr, cfg.Store)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			// Asking listener to shut down and shed load.
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
				return srv.Close()
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Arbor Server stopped gracefully")
			return nil
		})
		return g.Wait()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
}
