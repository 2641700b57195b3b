// Package main is the entrypoint for the artmarket marketplace server.
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

	"github.com/joho/godotenv"
	"github.com/tanglekit/artmarket/internal/api"
	"github.com/tanglekit/artmarket/internal/api/handler"
	mw "github.com/tanglekit/artmarket/internal/api/middleware"
	"github.com/tanglekit/artmarket/internal/api/response"
	"github.com/tanglekit/artmarket/internal/artist"
	"github.com/tanglekit/artmarket/internal/cache"
	"github.com/tanglekit/artmarket/internal/commission"
	"github.com/tanglekit/artmarket/internal/config"
	"github.com/tanglekit/artmarket/internal/store"
	"github.com/tanglekit/artmarket/internal/tangle"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	// 1. Load config, fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env, "art_dir", cfg.ArtDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	pgStore := store.NewPostgresStore(pool)

	// 4. Seed the wallet on first boot
	seed, err := tangle.GenerateSeed()
	if err != nil {
		return fmt.Errorf("generate seed: %w", err)
	}
	if err := pgStore.EnsureWallet(ctx, seed); err != nil {
		return fmt.Errorf("ensure wallet: %w", err)
	}
	seed, err = pgStore.GetSeed(ctx)
	if err != nil {
		return fmt.Errorf("load wallet seed: %w", err)
	}

	// 5. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 6. Tangle node client
	tangleClient := tangle.NewHTTPClient(cfg.Tangle.NodeURL, seed, cfg.Tangle.Timeout)

	// 7. Generator registry: vetted set only, nothing loaded from uploads
	registry := artist.NewRegistry()
	registerGenerators(registry)
	slog.Info("generators registered", "names", registry.Names())

	if err := os.MkdirAll(cfg.ArtDir, 0o755); err != nil {
		return fmt.Errorf("create art dir: %w", err)
	}

	// 8. Commission service
	allocator := commission.NewAllocator(pgStore, tangleClient)
	ledger := commission.NewLedger(pgStore, allocator)
	supervisor := commission.NewSupervisor()
	svc := commission.NewService(pgStore, redisCache, ledger, supervisor,
		tangleClient, registry, cfg.Pricing, cfg.Watch, cfg.ArtDir)

	// 9. Build router with dependencies
	deps := api.Dependencies{
		RateLimit: mw.NewRateLimit(redisCache, 60),

		HealthHandler: healthHandler(pgStore, redisCache),

		ArtistList:  handler.NewArtistListHandler(svc),
		RequestArt:  handler.NewRequestArtHandler(svc),
		JobStatus:   handler.NewJobStatusHandler(svc),
		RetrieveArt: handler.NewRetrieveArtHandler(svc),

		CreateArtist: handler.NewCreateArtistHandler(pgStore, registry, svc),
		UpdateArtist: handler.NewUpdateArtistHandler(pgStore, registry, svc),
		DeleteArtist: handler.NewDeleteArtistHandler(pgStore, svc),
		ListGenres:   handler.NewListGenresHandler(pgStore),
	}

	router := api.NewRouter(deps)

	// 10. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
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

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("waiting for payment watchers", "active", supervisor.Active())
	supervisor.Wait()

	slog.Info("server stopped gracefully")
	return nil
}

// registerGenerators installs the operator-vetted artist generators.
// Each ARTMARKET_GENERATOR_<NAME> variable names a command to run out of
// process; the command prints the produced filename on stdout.
func registerGenerators(registry *artist.Registry) {
	for _, kv := range os.Environ() {
		const prefix = "ARTMARKET_GENERATOR_"
		name, command, ok := parseGeneratorEnv(kv, prefix)
		if !ok {
			continue
		}
		registry.Register(name, &artist.ExecGenerator{Command: command})
	}
}

func parseGeneratorEnv(kv, prefix string) (name, command string, ok bool) {
	if len(kv) <= len(prefix) || kv[:len(prefix)] != prefix {
		return "", "", false
	}
	rest := kv[len(prefix):]
	for i := 0; i < len(rest); i++ {
		if rest[i] == '=' {
			return rest[:i], rest[i+1:], rest[:i] != "" && rest[i+1:] != ""
		}
	}
	return "", "", false
}

// healthHandler checks database and cache connectivity.
func healthHandler(s store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		degraded := checks["database"] != "ok" || checks["cache"] != "ok"
		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
