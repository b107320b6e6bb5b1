package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	httptransport "github.com/crm-kit/lead-router/internal/api/http"
	"github.com/crm-kit/lead-router/internal/api/http/handlers"
	"github.com/crm-kit/lead-router/internal/cache"
	"github.com/crm-kit/lead-router/internal/config"
	"github.com/crm-kit/lead-router/internal/events"
	"github.com/crm-kit/lead-router/internal/observability"
	"github.com/crm-kit/lead-router/internal/persistence"
	"github.com/crm-kit/lead-router/internal/repository"
	"github.com/crm-kit/lead-router/internal/repository/memory"
	"github.com/crm-kit/lead-router/internal/service"
	"github.com/crm-kit/lead-router/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if pg.PoolHandle() != nil && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	var store repository.Store
	dependencies := map[string]handlers.Pinger{}
	if pool := pg.PoolHandle(); pool != nil {
		store = repository.NewPostgresStore(pool)
		dependencies["postgres"] = pg
	} else {
		if cfg.App.Env == "production" {
			logger.Fatal("POSTGRES_DSN is required in production")
		}
		logger.Warn("POSTGRES_DSN not set, using in-memory store; data is lost on restart and units of work are serialized",
			zap.String("env", cfg.App.Env))
		store = memory.NewStore()
	}
	if redis.Enabled() {
		dependencies["redis"] = redis
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	stats := service.NewStatsAggregator(store, cache.NewStatsCache(redis.Client, cfg.Routing.StatsCacheTTL()), logger)
	worker.StartMonitoringWorker(service.NewMonitoringService(dispatcher, stats, metrics, logger))

	distribution := service.NewDistributionService(service.DistributionDependencies{
		Store:      store,
		Registry:   service.NewLeadRegistry(logger, metrics),
		Selector:   service.NewCandidateSelector(service.NewLoadTracker()),
		Picker:     service.NewWeightedPicker(cfg.Routing.RandomSeed),
		Recorder:   service.NewInteractionRecorder(),
		Stats:      stats,
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	catalog := service.NewCatalogService(store, dispatcher, logger)

	var limiter *httptransport.IPRateLimiter
	if cfg.RateLimit.Enabled() {
		limiter = httptransport.NewIPRateLimiter(cfg.RateLimit.IngestPerSecond, cfg.RateLimit.IngestBurst, logger)
	}

	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:        handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, dependencies),
		Leads:         handlers.NewLeadsHandler(distribution),
		Interactions:  handlers.NewInteractionsHandler(distribution, catalog),
		Operators:     handlers.NewOperatorsHandler(catalog),
		Sources:       handlers.NewSourcesHandler(catalog, distribution),
		Stats:         handlers.NewStatsHandler(distribution, metrics),
		IngestLimiter: limiter,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()))
		return app.Listen(cfg.App.Addr())
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout())
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped with error", zap.Error(err))
	}
}
