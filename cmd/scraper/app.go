package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/user/catalog-scraper/internal/api"
	"github.com/user/catalog-scraper/internal/browser"
	"github.com/user/catalog-scraper/internal/config"
	"github.com/user/catalog-scraper/internal/domain"
	"github.com/user/catalog-scraper/internal/monitoring"
	"github.com/user/catalog-scraper/internal/output"
	"github.com/user/catalog-scraper/internal/scraper"
	"github.com/user/catalog-scraper/internal/session"
	"github.com/user/catalog-scraper/internal/storage"
	"go.uber.org/zap"
)

// app wires the configured components together.
type app struct {
	cfg          *config.Config
	logger       *zap.Logger
	registry     *prometheus.Registry
	metrics      *monitoring.Metrics
	orchestrator *scraper.Orchestrator
	checks       map[string]api.Pinger
	closers      []func()
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	a := &app{
		cfg:      cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
		checks:   map[string]api.Pinger{},
	}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = monitoring.NewMetrics(a.registry)

	store, err := a.sessionStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	sinks := []scraper.Sink{output.NewJSONWriter(cfg.Output.Path)}
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.New(ctx, cfg.Postgres.URL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("unable to connect to database: %w", err)
		}
		a.closers = append(a.closers, pool.Close)

		sink, err := storage.NewPostgresSink(ctx, pool, cfg.EntryURL, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		sinks = append(sinks, sink)
		a.checks["postgres"] = pool
	}

	a.orchestrator = scraper.NewOrchestrator(cfg, store, sinks, a.metrics, logger)
	return a, nil
}

func (a *app) sessionStore(ctx context.Context) (session.Store, error) {
	switch a.cfg.Session.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: a.cfg.Session.RedisAddr})
		a.closers = append(a.closers, func() { _ = client.Close() })
		store := session.NewRedisStore(client, a.cfg.Session.RedisKey, a.cfg.Session.MaxAge)
		if err := store.Ping(ctx); err != nil {
			a.logger.Warn("proceeding despite unreachable session redis", zap.String("addr", a.cfg.Session.RedisAddr), zap.Error(err))
		}
		a.checks["redis"] = store
		return store, nil
	case "file":
		return session.NewFileStore(a.cfg.Session.Path), nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", a.cfg.Session.Backend)
	}
}

// Run launches a fresh browser and performs one scrape with it.
func (a *app) Run(ctx context.Context) *domain.ScrapeResult {
	driver, closeBrowser, err := browser.NewChromeDriver(ctx, a.cfg.Browser, a.logger)
	if err != nil {
		a.logger.Error("aborting run", zap.Error(err))
		return &domain.ScrapeResult{Status: domain.Failure(err.Error())}
	}
	defer closeBrowser()
	return a.orchestrator.Run(ctx, driver)
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
