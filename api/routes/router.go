package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/loupes-storefront/api/controllers"
	cartcontrollers "github.com/angelmondragon/loupes-storefront/api/controllers/cart"
	webhookcontrollers "github.com/angelmondragon/loupes-storefront/api/controllers/webhooks"
	"github.com/angelmondragon/loupes-storefront/api/middleware"
	"github.com/angelmondragon/loupes-storefront/internal/cart"
	"github.com/angelmondragon/loupes-storefront/internal/catalog"
	stripewebhook "github.com/angelmondragon/loupes-storefront/internal/webhooks/stripe"
	"github.com/angelmondragon/loupes-storefront/pkg/config"
	"github.com/angelmondragon/loupes-storefront/pkg/db"
	"github.com/angelmondragon/loupes-storefront/pkg/logger"
	"github.com/angelmondragon/loupes-storefront/pkg/redis"
	"github.com/angelmondragon/loupes-storefront/pkg/stripe"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	cat *catalog.Catalog,
	cartService cart.Service,
	checkoutService controllers.CheckoutService,
	stripeClient *stripe.Client,
	stripeWebhookService *stripewebhook.Service,
	stripeWebhookGuard *stripewebhook.IdempotencyGuard,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	// Typed-nil pointers must not leak into interface parameters.
	var (
		redisPinger      redis.Pinger
		idempotencyStore redis.IdempotencyStore
	)
	if redisClient != nil {
		redisPinger = redisClient
		idempotencyStore = redisClient
	}
	var dbPinger db.Pinger
	if dbP != nil {
		dbPinger = dbP
	}
	var webhookService webhookcontrollers.StripeWebhookService
	if stripeWebhookService != nil {
		webhookService = stripeWebhookService
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbPinger, redisPinger))
	})

	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(webhookService, stripeClient, webhookGuard(stripeWebhookGuard), logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.CartSession(middleware.CartSessionOptions{
			CookieName: cfg.Cart.CookieName,
			Secure:     cfg.Cart.CookieSecure,
			MaxAge:     cfg.Cart.TTL,
		}, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductsList(cat, logg))
			r.Route("/{slug}", func(r chi.Router) {
				r.Get("/", controllers.ProductDetail(cat, logg))
				r.Get("/configuration", controllers.ConfigurationFetch(cat, cartService, logg))
				r.Patch("/configuration", controllers.ConfigurationUpdate(cat, cartService, logg))
				r.Post("/add-to-cart", controllers.ConfigurationAddToCart(cat, cartService, logg))
			})
		})

		r.Get("/stripe/product-id", controllers.StripeProductID(cat, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cartcontrollers.CartFetch(cartService, logg))
			r.Delete("/", cartcontrollers.CartClear(cartService, logg))
			r.Get("/count", cartcontrollers.CartCount(cartService, logg))
			r.Get("/events", cartcontrollers.CartEvents(cartService, logg))
			r.Post("/items", cartcontrollers.CartAddItem(cartService, logg))
			r.Patch("/items/{slug}", cartcontrollers.CartUpdateQuantity(cartService, logg))
			r.Delete("/items/{index}", cartcontrollers.CartRemoveItem(cartService, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			idempotent := r.With(middleware.Idempotency(idempotencyStore, middleware.CheckoutIdempotencyTTL, logg))
			r.Put("/addons", controllers.CheckoutAddons(checkoutService, logg))
			idempotent.Post("/", controllers.CheckoutCart(checkoutService, logg))
			idempotent.Post("/sessions", controllers.CheckoutCreateSession(checkoutService, logg))
			r.Get("/sessions/{id}", controllers.CheckoutSessionStatus(checkoutService, logg))
		})
	})

	return r
}

type eventGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

func webhookGuard(g *stripewebhook.IdempotencyGuard) eventGuard {
	if g == nil {
		return nil
	}
	return g
}
