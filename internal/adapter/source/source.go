package source

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/mmcdole/bookcat/internal/adapter"
	"github.com/mmcdole/bookcat/internal/adapter/source/bookapi"
	"github.com/mmcdole/bookcat/internal/domain"
)

// SourceConfig contains the configuration needed to create a CatalogClient
type SourceConfig struct {
	URL               string
	Timeout           time.Duration
	MaxRetries        int
	RequestsPerSecond float64
}

// NewClient creates a CatalogClient for the configured service
func NewClient(cfg *SourceConfig, logger *slog.Logger) (domain.CatalogClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("source config is nil")
	}

	if cfg.URL == "" {
		return nil, fmt.Errorf("server URL is required")
	}

	return bookapi.NewClient(cfg.URL, logger,
		bookapi.WithTimeout(cfg.Timeout),
		bookapi.WithMaxRetries(cfg.MaxRetries),
		bookapi.WithRateLimit(cfg.RequestsPerSecond),
	), nil
}

// NewClientFromConfig creates a CatalogClient from the application config
func NewClientFromConfig(cfg *adapter.Config, logger *slog.Logger) (domain.CatalogClient, error) {
	return NewClient(&SourceConfig{
		URL:               cfg.Server.URL,
		Timeout:           cfg.Server.Timeout,
		MaxRetries:        cfg.Server.MaxRetries,
		RequestsPerSecond: cfg.Server.RequestsPerSecond,
	}, logger)
}
