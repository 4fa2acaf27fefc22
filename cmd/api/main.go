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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"

	"github.com/angelmondragon/loupes-storefront/api/routes"
	"github.com/angelmondragon/loupes-storefront/internal/cart"
	"github.com/angelmondragon/loupes-storefront/internal/catalog"
	"github.com/angelmondragon/loupes-storefront/internal/checkout"
	stripewebhook "github.com/angelmondragon/loupes-storefront/internal/webhooks/stripe"
	"github.com/angelmondragon/loupes-storefront/pkg/config"
	"github.com/angelmondragon/loupes-storefront/pkg/db"
	"github.com/angelmondragon/loupes-storefront/pkg/instance"
	"github.com/angelmondragon/loupes-storefront/pkg/logger"
	"github.com/angelmondragon/loupes-storefront/pkg/metrics"
	"github.com/angelmondragon/loupes-storefront/pkg/migrate"
	"github.com/angelmondragon/loupes-storefront/pkg/redis"
	"github.com/angelmondragon/loupes-storefront/pkg/stripe"
)

const (
	shutdownTimeout   = 15 * time.Second
	webhookGuardScope = "stripe-webhook"
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
		Environment: cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, db.Options{UseSQLite: cfg.FeatureFlags.UseSQLite}, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.AutoRun(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	cat, err := loadCatalog(cfg)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if err := redisClient.RegisterPoolMetrics(registry); err != nil {
		return err
	}
	cartMetrics := metrics.NewCartMetrics(registry)
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	storage, keys := cartStorage(cfg, dbClient, redisClient)
	notifier := cart.NewNotifier(cartMetrics)
	var broadcaster cart.Broadcaster = notifier
	if cfg.FeatureFlags.CartEventsRelay {
		relay := cart.NewRedisRelay(redisClient, notifier, logg)
		broadcaster = relay
		go func() {
			if err := relay.Run(ctx); err != nil {
				logg.Error(ctx, "cart event relay stopped", err)
			}
		}()
	}

	cartService, err := cart.NewService(cart.ServiceConfig{
		Storage:     storage,
		Keys:        keys,
		Notifier:    notifier,
		Broadcaster: broadcaster,
		Stripe:      cat,
		Pricing:     cat,
		Logger:      logg,
		Metrics:     cartMetrics,
	})
	if err != nil {
		return err
	}

	stripeClient, err := stripe.NewClient(ctx, cfg.Stripe, logg)
	if err != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "stripe client unavailable, checkout disabled")
	}
	var gateway checkout.SessionGateway
	if stripeClient != nil {
		gateway = stripe.NewCheckoutSessions(stripeClient)
	}

	flags, err := checkout.NewFlagStore(redisClient, cfg.Checkout.FlagsTTL)
	if err != nil {
		return err
	}
	checkoutRepo := checkout.NewRepository(dbClient.DB())
	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Carts:   cartService,
		Catalog: cat,
		Flags:   flags,
		Gateway: gateway,
		Repo:    checkoutRepo,
		URLs: checkout.SessionURLs{
			PublicURL:  cfg.App.PublicURL,
			SuccessURL: cfg.Checkout.SuccessURL(cfg.App.PublicURL),
			CancelURL:  cfg.Checkout.CancelURL(cfg.App.PublicURL),
			Currency:   cfg.Checkout.Currency,
		},
		Logger:  logg,
		Metrics: checkoutMetrics,
	})
	if err != nil {
		return err
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Repo:    checkoutRepo,
		Carts:   cartService,
		Tx:      dbClient,
		Logger:  logg,
		Metrics: checkoutMetrics,
	})
	if err != nil {
		return err
	}
	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, stripewebhook.DefaultEventTTL, webhookGuardScope)
	if err != nil {
		return err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"addr":         addr,
		"instance":     instance.GetID(),
		"cart_storage": storage.Name(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			cat,
			cartService,
			checkoutService,
			stripeClient,
			webhookService,
			webhookGuard,
			promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logg.Info(ctx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func loadCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	if cfg.Catalog.Path != "" {
		return catalog.Load(cfg.Catalog.Path)
	}
	return catalog.Default()
}

func cartStorage(cfg *config.Config, dbClient *db.Client, redisClient *redis.Client) (cart.Storage, cart.KeyFunc) {
	switch cfg.Cart.Backend() {
	case config.CartStorageDB:
		return cart.NewDBStorage(dbClient.DB()), cart.DefaultKey
	case config.CartStorageMemory:
		return cart.NewMemoryStorage(), cart.DefaultKey
	default:
		return cart.NewRedisStorage(redisClient, cfg.Cart.TTL), redisClient.CartKey
	}
}
