package server

import (
	"context"

	"github.com/GriffinCanCode/vitibrasil/internal/catalog"
	"github.com/GriffinCanCode/vitibrasil/internal/infrastructure/config"
	"github.com/GriffinCanCode/vitibrasil/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/vitibrasil/internal/scraper"
	"github.com/GriffinCanCode/vitibrasil/internal/store"
	"github.com/GriffinCanCode/vitibrasil/internal/sweep"
	"go.uber.org/zap"
)

// NewAggregator builds the upstream client and the sweep aggregator from
// configuration.
func NewAggregator(cfg config.ScraperConfig, logger *zap.Logger, metrics *monitoring.Metrics) (*sweep.Aggregator, *scraper.Client, error) {
	policy, err := scraper.ParseGroupPolicy(cfg.GroupPolicy)
	if err != nil {
		return nil, nil, err
	}

	client := scraper.NewClient(scraper.ClientConfig{
		UserAgent:         cfg.UserAgent,
		Timeout:           cfg.Timeout,
		InsecureTLS:       cfg.InsecureTLS,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
	}, logger, metrics)

	agg := sweep.New(client, catalog.Default(), sweep.Options{
		BaseURL:      cfg.BaseURL,
		Workers:      cfg.Workers,
		MaxRetries:   cfg.MaxRetries,
		RetryMinWait: cfg.RetryMinWait,
		RetryMaxWait: cfg.RetryMaxWait,
		Policy:       policy,
	}, logger, metrics)
	return agg, client, nil
}

// OpenStore opens the configured database, or returns nil when
// persistence is disabled.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*store.Store, error) {
	if !cfg.Enabled {
		logger.Info("persistence disabled")
		return nil, nil
	}
	return store.Open(ctx, store.Config{Driver: cfg.Driver, URL: cfg.URL}, logger)
}
