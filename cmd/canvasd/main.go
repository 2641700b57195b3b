// Package main is the entrypoint for the canvas client daemon. It keeps a
// display supplied with fresh commissioned artwork from a marketplace.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/tanglekit/artmarket/internal/canvas"
	"github.com/tanglekit/artmarket/internal/config"
	"github.com/tanglekit/artmarket/internal/tangle"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("canvas daemon failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.LoadCanvas()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "marketplace", cfg.MarketplaceURL, "artwork_dir", cfg.ArtworkDir)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	seed := os.Getenv("CANVAS_TANGLE_SEED")
	if seed == "" {
		seed, err = tangle.GenerateSeed()
		if err != nil {
			return fmt.Errorf("generate seed: %w", err)
		}
		slog.Warn("CANVAS_TANGLE_SEED not set, generated an ephemeral seed")
	}

	tangleClient := tangle.NewHTTPClient(cfg.Tangle.NodeURL, seed, cfg.Tangle.Timeout)
	market := canvas.NewMarketClient(cfg.MarketplaceURL, cfg.Tangle.Timeout)

	state, err := canvas.OpenStateStore(cfg.StatePath)
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}

	queue := canvas.NewSyncQueue()
	stop := canvas.NewSignal()
	refresher := canvas.NewRefresher(market, tangleClient, state, queue, *cfg)
	loop := canvas.NewLoop(queue, stop, refresher, state, canvas.LogDisplay{}, *cfg)

	// Translate OS shutdown into the loop's stop signal.
	go func() {
		<-ctx.Done()
		stop.Set()
	}()

	slog.Info("canvas loop starting")
	loop.Run(ctx)

	if err := state.Flush(); err != nil {
		return fmt.Errorf("flush state: %w", err)
	}

	slog.Info("canvas daemon stopped")
	return nil
}
