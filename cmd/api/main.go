package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/choppgest/choppgest-backend/api/controllers/webhooks"
	"github.com/choppgest/choppgest-backend/api/routes"
	"github.com/choppgest/choppgest-backend/internal/establishments"
	"github.com/choppgest/choppgest-backend/internal/gatewayconfig"
	"github.com/choppgest/choppgest-backend/internal/gateways"
	"github.com/choppgest/choppgest-backend/internal/paymentlog"
	"github.com/choppgest/choppgest-backend/internal/reconcile"
	"github.com/choppgest/choppgest-backend/internal/royalties"
	"github.com/choppgest/choppgest-backend/internal/webhookreceipts"
	webhooksvc "github.com/choppgest/choppgest-backend/internal/webhooks"
	"github.com/choppgest/choppgest-backend/pkg/config"
	"github.com/choppgest/choppgest-backend/pkg/db"
	"github.com/choppgest/choppgest-backend/pkg/logger"
	"github.com/choppgest/choppgest-backend/pkg/metrics"
	"github.com/choppgest/choppgest-backend/pkg/migrate"
	"github.com/choppgest/choppgest-backend/pkg/outbox"
	"github.com/choppgest/choppgest-backend/pkg/redis"
)

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

	promRegistry := prometheus.NewRegistry()
	webhookMetrics := metrics.NewWebhookMetrics(promRegistry)

	royaltyRepo := royalties.NewRepository(dbClient.DB())
	logRepo := paymentlog.NewRepository(dbClient.DB())
	receiptRepo := webhookreceipts.NewRepository(dbClient.DB())
	establishmentRepo := establishments.NewRepository(dbClient.DB())

	gatewayConfigs, err := gatewayconfig.NewService(gatewayconfig.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create gateway config service", err)
		os.Exit(1)
	}

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

	royaltyService, err := royalties.NewService(royalties.ServiceParams{
		Config:            cfg.Royalty,
		RoyaltyRepo:       royaltyRepo,
		PaymentLogRepo:    logRepo,
		EstablishmentRepo: establishmentRepo,
		GatewayConfigs:    gatewayConfigs,
		Clients:           clients,
		Outbox:            outboxService,
		TransactionRunner: dbClient,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create royalty service", err)
		os.Exit(1)
	}

	guard, err := webhookreceipts.NewIdempotencyGuard(redisClient, cfg.Webhook.IdempotencyTTL, "webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	webhookServices := map[string]webhooks.DeliveryService{}
	for path, adapter := range map[string]gateways.Adapter{
		"stripe":      gateways.NewStripeAdapter(),
		"mercadopago": gateways.NewMercadoPagoAdapter(),
		"asaas":       gateways.NewAsaasAdapter(),
		"cora":        gateways.NewCoraAdapter(),
	} {
		svc, err := webhooksvc.NewService(webhooksvc.ServiceParams{
			Adapter:     adapter,
			Engine:      engine,
			Receipts:    receiptRepo,
			RoyaltyRepo: royaltyRepo,
			Secrets:     gatewayConfigs,
			Guard:       guard,
			Logger:      logg,
		})
		if err != nil {
			logg.Error(context.Background(), "failed to create webhook service", err)
			os.Exit(1)
		}
		webhookServices[path] = svc
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:          cfg,
			Logger:          logg,
			DB:              dbClient,
			Redis:           redisClient,
			RoyaltyService:  royaltyService,
			WebhookServices: webhookServices,
			WebhookMetrics:  webhookMetrics,
			Registry:        promRegistry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
