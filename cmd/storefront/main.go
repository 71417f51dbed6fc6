package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/royaliq/storefront/api/controllers"
	"github.com/royaliq/storefront/api/routes"
	cartsvc "github.com/royaliq/storefront/internal/cart"
	"github.com/royaliq/storefront/internal/catalog"
	checkoutsvc "github.com/royaliq/storefront/internal/checkout"
	"github.com/royaliq/storefront/internal/payment"
	"github.com/royaliq/storefront/internal/reconcile"
	sessionsvc "github.com/royaliq/storefront/internal/session"
	"github.com/royaliq/storefront/internal/upstream"
	"github.com/royaliq/storefront/pkg/auth/visitor"
	"github.com/royaliq/storefront/pkg/config"
	"github.com/royaliq/storefront/pkg/db"
	"github.com/royaliq/storefront/pkg/localstore"
	"github.com/royaliq/storefront/pkg/logger"
	"github.com/royaliq/storefront/pkg/metrics"
	"github.com/royaliq/storefront/pkg/notify"
	"github.com/royaliq/storefront/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "storefront"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "storefront",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	readyDeps := map[string]controllers.Pinger{}
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
		readyDeps["redis"] = redisClient
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
		readyDeps["db"] = dbClient
	}

	upstreamClient, err := upstream.NewClient(cfg.Upstream, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create upstream client", err)
		os.Exit(1)
	}

	visitors, err := visitor.NewManager(cfg.Visitor)
	if err != nil {
		logg.Error(context.Background(), "failed to create visitor manager", err)
		os.Exit(1)
	}

	notifier := notify.NewLogNotifier(logg)
	storefrontMetrics := metrics.NewStorefrontMetrics(prometheus.DefaultRegisterer)

	cartStore, err := cartsvc.NewStore(kv, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart store", err)
		os.Exit(1)
	}
	carts, err := cartsvc.NewService(cartStore, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(upstreamClient, kv, cfg.Catalog, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	sessions, err := sessionsvc.NewService(upstreamClient, logg, notifier)
	if err != nil {
		logg.Error(context.Background(), "failed to create session service", err)
		os.Exit(1)
	}

	checkout, err := checkoutsvc.NewService(checkoutsvc.ServiceParams{
		Orders:   upstreamClient,
		Carts:    carts,
		Notifier: notifier,
		Logger:   logg,
		Metrics:  storefrontMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	journal, err := reconcile.NewJournal(kv)
	if err != nil {
		logg.Error(context.Background(), "failed to create reconcile journal", err)
		os.Exit(1)
	}

	widget, err := payment.NewHostedWidget(cfg.Gateway, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment widget", err)
		os.Exit(1)
	}

	payments, err := payment.NewOrchestrator(payment.OrchestratorParams{
		Client:   upstreamClient,
		Widget:   widget,
		Carts:    carts,
		Sessions: sessions,
		Journal:  journal,
		Notifier: notifier,
		Logger:   logg,
		Metrics:  storefrontMetrics,
		Upstream: cfg.Upstream,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payment orchestrator", err)
		os.Exit(1)
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
	logg.Info(ctx, "starting storefront gateway")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:    cfg,
			Logger:    logg,
			Visitors:  visitors,
			ReadyDeps: readyDeps,
			Catalog:   catalogService,
			Carts:     carts,
			Checkout:  checkout,
			Payments:  payments,
			Sessions:  sessions,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "storefront gateway stopped unexpectedly", err)
		os.Exit(1)
	}
}
