package main

import (
	"context"
	"fmt"

	"github.com/jordanjoelson/ai-lead-gen/config"
	"github.com/jordanjoelson/ai-lead-gen/enrichment/hunter"
	"github.com/jordanjoelson/ai-lead-gen/metrics"
	"github.com/jordanjoelson/ai-lead-gen/scraper"
	"github.com/jordanjoelson/ai-lead-gen/scraper/gmaps"
	"github.com/jordanjoelson/ai-lead-gen/services"
	"github.com/jordanjoelson/ai-lead-gen/storage"
	"github.com/jordanjoelson/ai-lead-gen/utils"
)

// app holds every long-lived component of the process.
type app struct {
	cfg     *config.Config
	logger  *utils.Logger
	metrics *metrics.Manager

	store   *storage.MemoryStore
	archive storage.LeadArchive
	browser *gmaps.Scraper

	pipeline *services.Pipeline
	enricher *services.Enricher
	exporter *services.Exporter
	summary  *services.SummaryService
}

func newApp(ctx context.Context) (*app, error) {
	logger := utils.NewLogger()

	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	level, err := utils.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	logger.SetLevel(level)

	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.NewManager(),
		store:   storage.NewMemoryStore(),
		summary: services.NewSummaryService(logger),
	}

	if cfg.DatabaseURL != "" {
		pw, err := storage.NewPostgresWriter(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		a.archive = pw
		logger.Info("Lead archive enabled (PostgreSQL table: leads)")
	}

	// One pacer for every outbound call in the process.
	pacer := utils.NewPacer(cfg.MinDelay(), cfg.MaxDelay(), cfg.RateLimitPerSec)

	a.browser = gmaps.New(gmaps.Options{
		ChromeBin:    cfg.ChromeBin,
		Headless:     cfg.Headless,
		PageTimeout:  cfg.PageTimeout(),
		VisitDetails: true,
	}, logger)

	coord := services.NewCoordinator(scraper.Source(a.browser), pacer, services.CoordinatorOptions{
		PageSize:     cfg.PageSize,
		FailureLimit: cfg.FetchFailureLimit,
		Retry: utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   cfg.RetryBaseDelay(),
			Logger:      logger,
			OnRetry:     func(op string, _ int, _ error) { a.metrics.Retry(op) },
		},
	}, logger)

	a.pipeline = services.NewPipeline(a.store, coord, services.NewCleaner(logger), services.PipelineOptions{
		MaxResultsCap:     cfg.MaxResultsCap,
		DefaultMaxResults: cfg.DefaultMaxResults,
	}, logger, a.metrics)

	a.enricher = services.NewEnricher(a.store, hunter.New(cfg.HunterBaseURL, 0), pacer, services.EnricherOptions{
		DefaultAPIKey:       cfg.HunterAPIKey,
		ConfidenceThreshold: cfg.ConfidenceThreshold,
	}, logger, a.metrics)

	a.exporter = services.NewExporter(a.store, a.archive, cfg.OutputDir, logger, a.metrics)

	return a, nil
}

// Close releases the browser, the archive connection and the session store.
func (a *app) Close() {
	if err := a.browser.Close(); err != nil {
		a.logger.Warn("Closing browser: %v", err)
	}
	if a.archive != nil {
		if err := a.archive.Close(); err != nil {
			a.logger.Warn("Closing lead archive: %v", err)
		}
	}
	_ = a.store.Close()
}
