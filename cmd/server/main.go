// Package main is the entrypoint for the Jobstatus API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kiranshivaraju/jobstatus/internal/api"
	"github.com/kiranshivaraju/jobstatus/internal/api/handler"
	mw "github.com/kiranshivaraju/jobstatus/internal/api/middleware"
	"github.com/kiranshivaraju/jobstatus/internal/app"
	"github.com/kiranshivaraju/jobstatus/internal/config"
	"github.com/kiranshivaraju/jobstatus/internal/store"
)

const (
	shutdownTimeout = 30 * time.Second
	// writeMargin is added to the inference timeout so a slow analysis can
	// still be written before the server cuts the connection.
	writeMargin = 15 * time.Second
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config; fail fast when invalid
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	setupLogger(cfg.Server.LogLevel)
	slog.Info("config loaded", "ai_provider", cfg.AI.Provider, "cache_backend", cfg.Cache.Backend, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Cache, provider and analysis service
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	// 3. Optional job catalog
	catalog, closeCatalog, err := app.OpenCatalog(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer closeCatalog()

	// 4. Build router with dependencies
	router := api.NewRouter(dependencies(cfg, a, catalog))

	// 5. Start HTTP server
	srv := newServer(cfg, router)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

func setupLogger(level slog.Level) {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})))
}

// dependencies wires handlers for the router. The catalog routes and health
// check are only added when a catalog is configured.
func dependencies(cfg *config.Config, a *app.App, catalog *store.PostgresStore) api.Dependencies {
	checks := map[string]handler.Pinger{"cache": a.Cache}
	deps := api.Dependencies{
		RateLimit:      mw.NewRateLimit(a.Cache, cfg.RateLimit.PerMinute),
		TrustProxy:     cfg.Server.TrustProxy,
		AnalyzeHandler: handler.NewAnalyzeHandler(a.Service),
	}
	if catalog != nil {
		checks["catalog"] = catalog
		deps.Jobs = handler.NewJobsHandler(catalog)
	}
	deps.HealthHandler = handler.NewHealthHandler(a.ProviderName(), checks)
	return deps
}

func newServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.AI.InferenceTimeout + writeMargin,
		IdleTimeout:  60 * time.Second,
	}
}
