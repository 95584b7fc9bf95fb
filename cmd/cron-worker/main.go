package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/choppgest/choppgest-backend/internal/cron"
	"github.com/choppgest/choppgest-backend/internal/gateways"
	"github.com/choppgest/choppgest-backend/internal/paymentlog"
	"github.com/choppgest/choppgest-backend/internal/reconcile"
	"github.com/choppgest/choppgest-backend/internal/royalties"
	"github.com/choppgest/choppgest-backend/pkg/config"
	"github.com/choppgest/choppgest-backend/pkg/db"
	"github.com/choppgest/choppgest-backend/pkg/logger"
	"github.com/choppgest/choppgest-backend/pkg/metrics"
	"github.com/choppgest/choppgest-backend/pkg/migrate"
	"github.com/choppgest/choppgest-backend/pkg/outbox"
	"github.com/choppgest/choppgest-backend/pkg/redis"
)

const lockKeyFormat = "cg:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	royaltyRepo := royalties.NewRepository(dbClient.DB())
	logRepo := paymentlog.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	engine, err := reconcile.NewEngine(reconcile.EngineParams{
		RoyaltyRepo:       royaltyRepo,
		PaymentLogRepo:    logRepo,
		Outbox:            outboxService,
		TransactionRunner: dbClient,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reconcile engine", err)
		os.Exit(1)
	}

	clients, err := gateways.NewClientsFromConfig(cfg.Gateways, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to wire gateway clients", err)
		os.Exit(1)
	}

	overdueJob, err := cron.NewOverdueJob(cron.OverdueJobParams{
		Logger:      logg,
		DB:          dbClient,
		RoyaltyRepo: royaltyRepo,
		LogRepo:     logRepo,
		Outbox:      outboxService,
		Batch:       cfg.Royalty.OverdueLogBatch,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create overdue job", err)
		os.Exit(1)
	}

	linkPollJob, err := cron.NewLinkPollJob(cron.LinkPollJobParams{
		Logger:       logg,
		RoyaltyRepo:  royaltyRepo,
		Engine:       engine,
		Clients:      clients,
		StaleAge:     cfg.Royalty.StaleLinkAge,
		FetchTimeout: cfg.Royalty.LinkTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create link poll job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(overdueJob, linkPollJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
