package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/urbanbot/server/internal/api"
	logx "github.com/urbanbot/server/pkg/logger"
)

var migrateOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newAgentApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		if migrateOnStart {
			if err := a.store.Migrate(ctx); err != nil {
				return err
			}
		}

		srv := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           api.NewRouter(api.NewHandler(a.manager, a.store, a.reports, a.recorder)),
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			// answers wait on the text-generation service
			WriteTimeout: 2 * time.Minute,
		}

		errCh := make(chan error, 1)
		go func() {
			logx.Info().Str("addr", cfg.HTTPAddr).Str("dialect", a.store.Dialect()).Msg("UrbanBot API listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		// Wait for shutdown signal.
		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		logx.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logx.Error().Err(err).Msg("graceful shutdown failed")
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", false, "Create missing event-log tables before serving")
	rootCmd.AddCommand(serveCmd)
}
