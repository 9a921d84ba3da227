package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/packfinderz-inventory/api/routes"
	"github.com/angelmondragon/packfinderz-inventory/internal/conversion"
	"github.com/angelmondragon/packfinderz-inventory/internal/engine"
	"github.com/angelmondragon/packfinderz-inventory/internal/ledger"
	"github.com/angelmondragon/packfinderz-inventory/internal/lookup"
	"github.com/angelmondragon/packfinderz-inventory/internal/portions"
	"github.com/angelmondragon/packfinderz-inventory/internal/registrar"
	"github.com/angelmondragon/packfinderz-inventory/internal/scans"
	"github.com/angelmondragon/packfinderz-inventory/internal/tiers"
	"github.com/angelmondragon/packfinderz-inventory/internal/transfers"
	"github.com/angelmondragon/packfinderz-inventory/internal/units"
	"github.com/angelmondragon/packfinderz-inventory/pkg/config"
	"github.com/angelmondragon/packfinderz-inventory/pkg/db"
	"github.com/angelmondragon/packfinderz-inventory/pkg/env"
	"github.com/angelmondragon/packfinderz-inventory/pkg/instance"
	"github.com/angelmondragon/packfinderz-inventory/pkg/logger"
	"github.com/angelmondragon/packfinderz-inventory/pkg/metrics"
	"github.com/angelmondragon/packfinderz-inventory/pkg/migrate"
	"github.com/angelmondragon/packfinderz-inventory/pkg/outbox"
	"github.com/angelmondragon/packfinderz-inventory/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	} else {
		logg.Warn(context.Background(), "redis not configured; unit locks, idempotency and rate limits disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	inventoryMetrics := metrics.NewInventoryMetrics(registry)

	catalog, err := loadTiers(cfg.Engine)
	if err != nil {
		logg.Error(context.Background(), "failed to load tier catalog", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	unitRepo := units.NewRepository(gormDB)
	outboxService := outbox.NewService(outbox.NewRepository(gormDB), logg)

	deps := routes.Deps{
		Config:   cfg,
		Logger:   logg,
		DB:       dbClient,
		Gatherer: registry,
	}
	if redisClient != nil {
		deps.Redis = redisClient
		deps.Counters = redisClient
	}

	var validated units.ValidatedUnitOps
	if cfg.Validating.Remote() {
		client, err := units.NewClient(
			cfg.Validating.BaseURL,
			cfg.Validating.APIKey,
			units.WithBearerToken(cfg.Validating.BearerToken),
			units.WithTimeout(cfg.Validating.Timeout),
		)
		if err != nil {
			logg.Error(context.Background(), "failed to create validating client", err)
			os.Exit(1)
		}
		validated = client
	} else {
		params := engine.ServiceParams{
			Tx:      dbClient,
			Units:   unitRepo,
			Tiers:   catalog,
			Outbox:  outboxService,
			Metrics: inventoryMetrics,
			Logger:  logg,
		}
		if redisClient != nil {
			params.Locker = engine.NewRedisUnitLocker(redisClient, cfg.Engine.LockTTL)
		}
		engineService, err := engine.NewService(params)
		if err != nil {
			logg.Error(context.Background(), "failed to create unit engine", err)
			os.Exit(1)
		}
		validated = engineService
		deps.Engine = engineService
	}

	if deps.Registrar, err = registrar.NewService(validated, logg); err != nil {
		logg.Error(context.Background(), "failed to create registrar", err)
		os.Exit(1)
	}
	if deps.Converter, err = conversion.NewService(validated); err != nil {
		logg.Error(context.Background(), "failed to create conversion service", err)
		os.Exit(1)
	}
	if deps.Portions, err = portions.NewDrawer(validated); err != nil {
		logg.Error(context.Background(), "failed to create portion drawer", err)
		os.Exit(1)
	}
	if deps.Lookup, err = lookup.NewResolver(unitRepo, validated, inventoryMetrics, logg); err != nil {
		logg.Error(context.Background(), "failed to create lookup resolver", err)
		os.Exit(1)
	}
	if deps.Scans, err = scans.NewRecorder(unitRepo, inventoryMetrics, logg); err != nil {
		logg.Error(context.Background(), "failed to create scan recorder", err)
		os.Exit(1)
	}

	ledgerService, err := ledger.NewService(ledger.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}
	if deps.Ledger, err = ledger.NewBook(dbClient, ledgerService); err != nil {
		logg.Error(context.Background(), "failed to create ledger book", err)
		os.Exit(1)
	}

	transferParams := transfers.ServiceParams{
		Tx:      dbClient,
		Repo:    transfers.NewRepository(gormDB),
		Units:   unitRepo,
		Ledger:  ledgerService,
		Outbox:  outboxService,
		Metrics: inventoryMetrics,
		Logger:  logg,
	}
	if redisClient != nil {
		transferParams.Counters = redisClient
	}
	if deps.Transfers, err = transfers.NewService(transferParams); err != nil {
		logg.Error(context.Background(), "failed to create transfer service", err)
		os.Exit(1)
	}

	addr := ":" + env.Get("PORT", cfg.App.Port)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":        cfg.App.Env,
		"addr":       addr,
		"instance":   instance.ID("api"),
		"engineMode": engineMode(cfg),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
		logg.Info(shutdownCtx, "api server shut down gracefully")
	}
}

func loadTiers(cfg config.EngineConfig) (*tiers.Catalog, error) {
	if cfg.TiersFile == "" {
		return tiers.Default(), nil
	}
	return tiers.LoadFile(cfg.TiersFile)
}

func engineMode(cfg *config.Config) string {
	if cfg.Validating.Remote() {
		return "remote"
	}
	return "local"
}
