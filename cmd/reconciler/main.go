package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/royaliq/storefront/internal/reconcile"
	"github.com/royaliq/storefront/internal/upstream"
	"github.com/royaliq/storefront/pkg/config"
	"github.com/royaliq/storefront/pkg/db"
	"github.com/royaliq/storefront/pkg/localstore"
	"github.com/royaliq/storefront/pkg/logger"
	"github.com/royaliq/storefront/pkg/metrics"
	"github.com/royaliq/storefront/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "reconciler"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "reconciler",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	var kv localstore.Store
	if cfg.Localstore.UseRedis() {
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
		kv = localstore.NewRedisStore(redisClient)
	} else {
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
		store, err := localstore.NewDBStore(dbClient)
		if err != nil {
			logg.Error(context.Background(), "failed to create visitor store", err)
			os.Exit(1)
		}
		kv = store
	}

	upstreamClient, err := upstream.NewClient(cfg.Upstream, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create upstream client", err)
		os.Exit(1)
	}

	journal, err := reconcile.NewJournal(kv)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconcile journal", err)
		os.Exit(1)
	}

	service, err := reconcile.NewService(
		journal,
		upstreamClient,
		cfg.Reconcile,
		logg,
		metrics.NewReconcileMetrics(prometheus.DefaultRegisterer),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconcile service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx = logg.WithField(ctx, "interval", cfg.Reconcile.Interval.String())
	logg.Info(ctx, "starting payment reconciler")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "reconciler stopped unexpectedly", err)
		os.Exit(1)
	}
}
