package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/paybridge/payments-gateway/internal/gateway/application"
	"github.com/paybridge/payments-gateway/internal/gateway/config"
	"github.com/paybridge/payments-gateway/internal/gateway/infrastructure/account"
	gatewayhttp "github.com/paybridge/payments-gateway/internal/gateway/infrastructure/http"
	gatewaykafka "github.com/paybridge/payments-gateway/internal/gateway/infrastructure/kafka"
	gatewaypg "github.com/paybridge/payments-gateway/internal/gateway/infrastructure/postgres"
	stripeclient "github.com/paybridge/payments-gateway/internal/gateway/infrastructure/stripe"
	"github.com/paybridge/payments-gateway/pkg/locking"
	"github.com/paybridge/payments-gateway/pkg/logging"
	"github.com/paybridge/payments-gateway/pkg/outbox"
	"github.com/paybridge/payments-gateway/pkg/shutdown"
	"github.com/paybridge/payments-gateway/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("payments-gateway", 0).Error("config load failed", "err", err)
		os.Exit(1)
	}
	log := logging.New("payments-gateway", cfg.LogLevel)

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, "payments-gateway", cfg.OTLPEndpoint, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(ctx) }()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("pg connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := gatewaypg.Migrate(ctx, pool); err != nil {
		log.Error("migrate failed", "err", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	locks := locking.NewRedis(rdb, cfg.LockTTL)

	writer := gatewaykafka.NewWriter(cfg.KafkaBrokers)
	defer writer.Close()

	repo := gatewaypg.NewRepository(log, pool)
	store := gatewaypg.NewOutboxStore(log, pool)
	dispatch := outbox.NewDispatcher(log, writer, cfg.OutboxTopic)
	relay := outbox.NewRelay(log, store, dispatch, "gateway-relay-"+uuid.NewString()[:8], cfg.OutboxInterval, cfg.OutboxBatchSize)

	api := stripeclient.New(cfg.StripeSecretKey)
	svc := application.NewService(log, repo, api, locks, repo)
	tracker := application.NewOrderTracker(log, repo, account.NewStatic(cfg.FraudServices), gatewaypg.NewJobStore(pool), cfg.GatewayID)
	customers := gatewaypg.NewCustomerRepository(pool)
	methods := application.NewPaymentMethods(log, api, customers, customers)
	handler := gatewayhttp.NewHandler(log, svc, tracker, methods)

	r := chi.NewRouter()
	r.Mount("/", handler.Routes())
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := relay.Run(ctx); err != nil {
			log.Error("relay stopped with error", "err", err)
		}
	}()

	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	log.Info("gateway shutdown complete")
}
