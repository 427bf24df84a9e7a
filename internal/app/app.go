// Package app assembles the analysis pipeline from configuration. The server
// and the operator CLI share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/kiranshivaraju/jobstatus/internal/ai"
	"github.com/kiranshivaraju/jobstatus/internal/cache"
	"github.com/kiranshivaraju/jobstatus/internal/config"
	"github.com/kiranshivaraju/jobstatus/internal/store"
	"github.com/kiranshivaraju/jobstatus/pkg/models"
)

// App holds the long-lived components. Provider is nil when the selected
// provider has no credentials.
type App struct {
	Cache    cache.Cache
	Provider models.LLMProvider
	Service  *ai.AnalysisService

	closers []io.Closer
}

// New builds the cache, provider and analysis service.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	c, err := NewCache(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}
	a := &App{Cache: c, closers: []io.Closer{c}}

	provider, err := NewProvider(ctx, cfg.AI)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Provider = provider
	if cl, ok := provider.(io.Closer); ok {
		a.closers = append(a.closers, cl)
	}

	a.Service = ai.NewAnalysisService(provider, c, ai.Options{
		Model:     cfg.AI.ModelName(),
		MaxTokens: cfg.AI.MaxTokens,
		Timeout:   cfg.AI.InferenceTimeout,
		CacheTTL:  cfg.Cache.TTL,
	})
	return a, nil
}

// ProviderName is the configured provider, or "none" without credentials.
func (a *App) ProviderName() string {
	if a.Provider == nil {
		return "none"
	}
	return a.Provider.Name()
}

// Close releases everything New opened.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			slog.Warn("closing component", "error", err)
		}
	}
}

// NewCache returns the configured result cache. A Redis backend must answer a
// ping before it is used.
func NewCache(ctx context.Context, cfg config.CacheConfig) (cache.Cache, error) {
	switch cfg.Backend {
	case "redis":
		rc, err := cache.NewRedisCache(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("create redis cache: %w", err)
		}
		if err := rc.Ping(ctx); err != nil {
			rc.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		slog.Info("redis cache connected")
		return rc, nil
	default:
		slog.Info("in-memory cache", "max_entries", cfg.MaxEntries, "ttl", cfg.TTL.String())
		return cache.NewMemoryCache(cfg.MaxEntries), nil
	}
}

// NewProvider builds the LLM provider. Missing credentials are not fatal: the
// result is nil and each analysis reports the configuration error.
func NewProvider(ctx context.Context, cfg config.AIConfig) (models.LLMProvider, error) {
	provider, err := ai.NewProvider(ctx, cfg)
	if errors.Is(err, ai.ErrNotConfigured) {
		slog.Warn("AI provider has no credentials; analysis requests will fail", "provider", cfg.Provider)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("create AI provider: %w", err)
	}
	slog.Info("AI provider initialized", "provider", provider.Name(), "model", cfg.ModelName())
	return provider, nil
}

// OpenCatalog connects to the job catalog and applies migrations. It returns
// nil with no error when no database is configured.
func OpenCatalog(ctx context.Context, cfg config.DatabaseConfig) (*store.PostgresStore, func(), error) {
	if cfg.URL == "" {
		return nil, func() {}, nil
	}

	pool, err := store.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	if err := store.RunMigrations(cfg.URL, cfg.MigrationsDir); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("job catalog connected")
	return store.NewPostgresStore(pool), pool.Close, nil
}
