package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/xemwebe/finql/internal/logger"
	"github.com/xemwebe/finql/internal/scheduler"
	"github.com/xemwebe/finql/internal/server"
	"github.com/xemwebe/finql/internal/services"
)

const shutdownTimeout = 15 * time.Second

var serveMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve the JSON API under /api/v1.

Reads are public. Writes require the X-API-Key header to match API_KEY;
without API_KEY the API is read-only. With DEDUPE_SCHEDULE set, duplicate
quotes are removed on that cron schedule.

Examples:
  finql serve            # serve an already migrated database
  finql serve --migrate  # apply pending migrations first`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "apply pending migrations before serving (also AUTO_MIGRATE=true)")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.Get()

	dbManager, err := openDatabase()
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnw("Failed to close database", "error", err)
		}
	}()

	if serveMigrate || cfg.AutoMigrate {
		if err := dbManager.RunMigrations(); err != nil {
			return fmt.Errorf("failed to run database migrations: %w", err)
		}
	}

	db := dbManager.DB()
	if cfg.DedupeSchedule != "" {
		task, err := scheduler.NewDedupeTask(cfg.DedupeSchedule, services.NewQuoteService(db))
		if err != nil {
			return fmt.Errorf("invalid DEDUPE_SCHEDULE %q: %w", cfg.DedupeSchedule, err)
		}
		defer task.Cancel()
		log.Infow("Scheduled duplicate quote cleanup", "schedule", cfg.DedupeSchedule)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.NewRouter(db, cfg.APIKey),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Infow("Starting finql server", "port", cfg.Port, "backend", dbManager.Backend())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("Shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info("Server stopped")
	return nil
}
