package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Ethan041028/audacieuses-content/internal/activity"
	"github.com/Ethan041028/audacieuses-content/internal/api"
	"github.com/Ethan041028/audacieuses-content/internal/platform/cache"
	"github.com/Ethan041028/audacieuses-content/internal/platform/config"
	"github.com/Ethan041028/audacieuses-content/internal/platform/database"
	"github.com/Ethan041028/audacieuses-content/internal/platform/logging"
	"github.com/Ethan041028/audacieuses-content/internal/seed"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.New(os.Stdout, cfg.Log))

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		slog.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.close()

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      a.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "store", cfg.Store, "cache", cfg.CacheEnabled())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// app holds the wired dependencies of the server.
type app struct {
	handler http.Handler
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// newApp opens the configured backends, seeds fixtures and builds the HTTP
// handler. On error every backend opened so far is closed.
func newApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	checks := map[string]api.HealthChecker{}
	var store activity.Store = activity.NewMemoryStore()
	var opts []activity.Option

	if cfg.Store == config.StorePostgres {
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		checks["database"] = db

		if cfg.Database.Migrate {
			if err := db.EnsureSchema(ctx); err != nil {
				return nil, err
			}
		}
		pgStore, err := activity.NewPostgresStore(db.Pool)
		if err != nil {
			return nil, err
		}
		store = pgStore
		opts = append(opts, activity.WithEventLogger(activity.NewPostgresEventLogger(db.Pool)))
		slog.Info("postgres store ready", "max_conns", cfg.Database.MaxConns)
	}

	if cfg.CacheEnabled() {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			return nil, fmt.Errorf("open cache: %w", err)
		}
		a.closers = append(a.closers, func() { _ = c.Close() })
		checks["cache"] = c
		opts = append(opts, activity.WithCache(activity.NewRedisContentCache(c, cfg.Cache.TTL)))
		slog.Info("content cache ready", "ttl", cfg.Cache.TTL)
	}

	svc := activity.NewService(store, opts...)

	if cfg.SeedPath != "" {
		loader, err := seed.NewLoader(cfg.SeedPath)
		if err != nil {
			return nil, err
		}
		if _, err := loader.Apply(ctx, svc); err != nil {
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	a.handler = api.NewHandler(svc, checks).Routes()
	return a, nil
}
