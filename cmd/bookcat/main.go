package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mmcdole/bookcat/internal/adapter"
	"github.com/mmcdole/bookcat/internal/adapter/source"
	"github.com/mmcdole/bookcat/internal/catalog"
	"github.com/mmcdole/bookcat/internal/cli"
	"github.com/mmcdole/bookcat/internal/store"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	if err := cli.Execute(Version, openBackend); err != nil {
		// cobra already printed the error
		os.Exit(1)
	}
}

// openBackend wires logging, tracing, the HTTP client and the local cache
// into a catalog store
func openBackend(ctx context.Context, cfg *adapter.Config) (*catalog.Store, func(), error) {
	// Setup logger
	logger, logFile, err := adapter.SetupLogger(&cfg.Logging)
	closeLog := func() {}
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = adapter.NullLogger()
	} else {
		closeLog = func() { logFile.Close() }
	}
	slog.SetDefault(logger)

	logger.Info("starting bookcat", "version", Version, "server", cfg.Server.URL)

	shutdownTracing, err := adapter.SetupTracing(ctx, &cfg.Tracing, Version)
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
		shutdownTracing = func(context.Context) error { return nil }
	}

	client, err := source.NewClientFromConfig(cfg, logger)
	if err != nil {
		closeLog()
		return nil, nil, fmt.Errorf("failed to create catalog client: %w", err)
	}

	cache, err := store.NewCatalogStore(cfg.GetCachePath(), cfg.Server.URL)
	if err != nil {
		// Another instance may hold the database lock
		logger.Warn("disk cache unavailable, using memory", "error", err)
		cache, _ = store.NewCatalogStore("", cfg.Server.URL)
	}

	catalogStore := catalog.NewStore(client, logger,
		catalog.WithCache(cache),
		catalog.WithNotificationTTL(cfg.Notifications.Timeout),
	)

	cleanup := func() {
		catalogStore.Close()
		if err := cache.Close(); err != nil {
			logger.Warn("failed to close cache", "error", err)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("failed to flush traces", "error", err)
		}

		logger.Info("shutting down")
		closeLog()
	}
	return catalogStore, cleanup, nil
}
