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

	"pokerbank/internal/config"
	"pokerbank/internal/db"
	"pokerbank/internal/handlers"
	"pokerbank/internal/lock"
	"pokerbank/internal/logger"
	"pokerbank/internal/metrics"
	"pokerbank/internal/payments"
	"pokerbank/internal/services"
	"pokerbank/internal/settlement"
	"pokerbank/internal/store"
	"pokerbank/internal/stream"
)

const serviceName = "pokerbank-api"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})
	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.LogLevel),
		Format:      cfg.LogFormat,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.AppEnv,
		"port": cfg.Port,
	})

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	requireResource(ctx, logg, "database", err)
	defer database.Close()

	locker, closeLocker := newLocker(ctx, cfg, logg)
	defer func() {
		if err := closeLocker(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	settlementMetrics := metrics.NewSettlementMetrics(registry)

	users := store.NewUserStore(database)
	banks := store.NewBankStore(database)
	transactions := store.NewTransactionStore(database)
	sessions := store.NewSessionStore(database)
	participants := store.NewParticipantStore(database)
	transfers := store.NewTransferStore(database)
	audit := store.NewAuditStore(database)
	txRunner := db.NewTxRunner(database)

	rail := payments.NewRail(cfg.ACH)
	if _, disabled := rail.(payments.DisabledRail); disabled {
		logg.Warn(ctx, "ACH_KEY not set, settlement and direct transfers will fail")
	}
	planner := settlement.NewPlanner(payments.NewBankResolver(banks), cfg.LookupWorkers, logg)
	executor := settlement.NewExecutor(rail, transactions, settlementMetrics, logg)

	hub := stream.NewHub()
	service := services.NewSessionService(services.SessionDeps{
		TxRunner:     txRunner,
		Sessions:     sessions,
		Participants: participants,
		Transfers:    transfers,
		Audit:        audit,
		Planner:      planner,
		Executor:     executor,
		Locker:       locker,
		Hub:          hub,
		Metrics:      settlementMetrics,
		Logger:       logg,
	})
	broadcaster := stream.NewBroadcaster(service, hub, cfg.StreamInterval, settlementMetrics, logg)
	transferService := services.NewTransferService(services.TransferDeps{
		TxRunner:     txRunner,
		Banks:        banks,
		Transactions: transactions,
		Audit:        audit,
		Rail:         rail,
		Logger:       logg,
	})

	handler := handlers.New(handlers.Deps{
		TxRunner:     txRunner,
		Config:       cfg,
		Users:        users,
		Banks:        banks,
		Transactions: transactions,
		Audit:        audit,
		Sessions:     service,
		Transfers:    transferService,
		Broadcaster:  broadcaster,
		Gatherer:     registry,
		Logger:       logg,
	})
	// No WriteTimeout: stream routes hold the response open until shutdown
	// closes the broadcaster.
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	server.RegisterOnShutdown(broadcaster.Close)

	go func() {
		logg.Info(ctx, "pokerbank API listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(ctx, "shutdown error", err)
	}
}

// newLocker prefers Redis so the settlement lock holds across replicas.
func newLocker(ctx context.Context, cfg config.Config, logg *logger.Logger) (lock.Locker, func() error) {
	if cfg.RedisURL == "" {
		logg.Warn(ctx, "REDIS_URL not set, using in-process settlement lock")
		return lock.NewLocalLocker(cfg.SettleLockTTL), func() error { return nil }
	}
	locker, err := lock.NewRedisLocker(ctx, cfg.RedisURL, cfg.SettleLockTTL)
	requireResource(ctx, logg, "redis", err)
	return locker, locker.Close
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "resource not working: "+resource, err)
	os.Exit(1)
}
