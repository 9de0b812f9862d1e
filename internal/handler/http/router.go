package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/middleware"
)

// Dependencies are the collaborators the router mounts.
type Dependencies struct {
	Customers CustomerService
	Wallets   WalletService
	Sales     SaleService
	Inventory InventoryService
	Reviews   ReviewService
	Wishlist  WishlistService

	Tokens    middleware.TokenValidator
	Health    *health.Handler
	Metrics   *middleware.HTTPMetrics
	Gatherer  prometheus.Gatherer
	CORS      middleware.CORSConfig
	RateLimit middleware.RateLimitConfig
	Logger    *slog.Logger
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(deps.CORS))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing())
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware)
	}
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	if deps.Health != nil {
		r.Get("/health/live", deps.Health.LivenessHandler())
		r.Get("/health/ready", deps.Health.ReadinessHandler())
	}
	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	customers := NewCustomerHandler(deps.Customers, logger)
	wallets := NewWalletHandler(deps.Wallets, logger)
	sales := NewSaleHandler(deps.Sales, logger)
	inventory := NewInventoryHandler(deps.Inventory, logger)
	reviews := NewReviewHandler(deps.Reviews, logger)
	wishlist := NewWishlistHandler(deps.Wishlist, logger)

	limit := middleware.RateLimit(deps.RateLimit, logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		// Public endpoints
		r.With(limit).Post("/auth/register", customers.Register)
		r.With(limit).Post("/auth/login", customers.Login)
		r.Get("/inventory", inventory.List)
		r.Get("/inventory/slug/{slug}", inventory.GetBySlug)
		r.Get("/inventory/{id}", inventory.Get)
		r.Get("/reviews/product/{productId}", reviews.ListByProduct)

		// Authenticated endpoints. The principal carries the stored role,
		// so RequestLogger runs again to pick up the user id.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(deps.Tokens))
			r.Use(Authenticate(deps.Customers))
			r.Use(middleware.RequestLogger(logger))

			r.Get("/customers/me", customers.GetMe)
			r.Patch("/customers/me", customers.UpdateMe)
			r.Delete("/customers/me", customers.DeleteMe)
			r.Get("/customers/{username}", customers.GetByUsername)
			r.Post("/customers/{username}/wallet/charge", wallets.Charge)
			r.Post("/customers/{username}/wallet/deduct", wallets.Deduct)

			r.Get("/wallet", wallets.Balance)
			r.Post("/wallet/charge", wallets.Charge)
			r.Post("/wallet/deduct", wallets.Deduct)

			r.With(limit).Post("/sales", sales.Create)
			r.Get("/sales/history", sales.History)
			r.Get("/sales/{id}", sales.Get)

			r.Post("/inventory", inventory.Create)
			r.Patch("/inventory/{id}", inventory.Update)
			r.Delete("/inventory/{id}", inventory.Delete)
			r.Post("/inventory/{id}/add", inventory.AddStock)
			r.Post("/inventory/{id}/deduct", inventory.DeductStock)

			r.Post("/reviews", reviews.Submit)
			r.Get("/reviews/me", reviews.ListMine)
			r.Patch("/reviews/{id}", reviews.Update)
			r.Delete("/reviews/{id}", reviews.Delete)
			r.Post("/reviews/{id}/flag", reviews.Flag)
			r.Post("/reviews/{id}/approve", reviews.Approve)

			r.Get("/wishlist", wishlist.List)
			r.Post("/wishlist/{productId}", wishlist.Add)
			r.Delete("/wishlist/{productId}", wishlist.Remove)
		})
	})

	return r
}
