package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/evacurves/store-backend/api/controllers"
	"github.com/evacurves/store-backend/api/middleware"
	"github.com/evacurves/store-backend/internal/delivery"
	"github.com/evacurves/store-backend/internal/inventory"
	"github.com/evacurves/store-backend/internal/orders"
	products "github.com/evacurves/store-backend/internal/products"
	"github.com/evacurves/store-backend/internal/settings"
	"github.com/evacurves/store-backend/pkg/config"
	"github.com/evacurves/store-backend/pkg/db"
	"github.com/evacurves/store-backend/pkg/enums"
	"github.com/evacurves/store-backend/pkg/logger"
	"github.com/evacurves/store-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	settingsService settings.Service,
	productService products.Service,
	inventoryService inventory.Service,
	ordersService orders.Service,
	deliveryService delivery.Service,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		chimw.RealIP,
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.HTTP.CORSOrigins),
	)

	readyDeps := map[string]controllers.Pinger{"db": dbP}
	// A nil *redis.Client must not reach the interface-typed middleware.
	idempotency := middleware.NewIdempotency(nil, cfg.Idempotency.TTL, logg)
	checkoutLimit := func(next http.Handler) http.Handler { return next }
	if redisClient != nil {
		readyDeps["redis"] = redisClient
		idempotency = middleware.NewIdempotency(redisClient, cfg.Idempotency.TTL, logg)
		checkoutLimit = middleware.NewRateLimiter("checkout", cfg.RateLimit.CheckoutWindow, redisClient, logg,
			middleware.ByIP(cfg.RateLimit.CheckoutIPLimit),
			middleware.ByCustomerEmail(cfg.RateLimit.CheckoutEmailLimit),
		).Handler
	}

	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readyDeps))
	})

	requireAuth := middleware.Auth(cfg.JWT, logg)
	adminOnly := middleware.RequireRole(enums.RoleAdmin, logg)

	r.Route("/api", func(r chi.Router) {
		r.Get("/currencies", controllers.ListCurrencies())
		r.Get("/settings", controllers.GetSettings(settingsService, logg))
		r.Get("/products", controllers.ListProducts(productService, logg))
		r.Get("/products/{id}", controllers.GetProduct(productService, logg))

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.With(checkoutLimit, idempotency.Require(middleware.CriticalIdempotencyTTL)).Post("/orders", controllers.CreateOrder(ordersService, logg))
			r.Get("/orders/mine", controllers.ListMyOrders(ordersService, logg))

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)

				r.Put("/settings", controllers.UpdateSettings(settingsService, logg))

				r.With(idempotency.Require(0)).Post("/products", controllers.CreateProduct(productService, logg))
				r.Put("/products/reorder", controllers.ReorderProducts(productService, logg))
				r.Put("/products/{id}", controllers.UpdateProduct(productService, logg))
				r.Delete("/products/{id}", controllers.DeleteProduct(productService, logg))

				r.Route("/inventory", func(r chi.Router) {
					r.Get("/", controllers.ListInventory(inventoryService, logg))
					r.Get("/low-stock", controllers.LowStockInventory(inventoryService, logg))
					r.Get("/product/{productId}", controllers.ProductInventory(inventoryService, logg))
					r.Get("/history/{productId}", controllers.InventoryHistory(inventoryService, logg))
					r.Post("/", controllers.AddInventory(inventoryService, logg))
					r.With(idempotency.Require(0)).Post("/bulk", controllers.BulkUpdateInventory(inventoryService, logg))
					r.Put("/{id}", controllers.UpdateInventory(inventoryService, logg))
				})

				r.Get("/orders", controllers.ListOrders(ordersService, logg))
				r.Get("/orders/number/{orderNumber}", controllers.GetOrderByNumber(ordersService, logg))
				r.Get("/orders/{id}", controllers.GetOrder(ordersService, logg))
				r.Put("/orders/{id}/status", controllers.UpdateOrderStatus(ordersService, logg))

				r.Route("/delivery", func(r chi.Router) {
					r.Get("/companies", controllers.ListDeliveryCompanies(deliveryService, logg))
					r.Post("/companies", controllers.CreateDeliveryCompany(deliveryService, logg))
					r.Put("/companies/{id}", controllers.UpdateDeliveryCompany(deliveryService, logg))
					r.Delete("/companies/{id}", controllers.DeleteDeliveryCompany(deliveryService, logg))
					r.With(idempotency.Require(middleware.CriticalIdempotencyTTL)).Post("/orders/{orderId}/send", controllers.SendOrderToDelivery(deliveryService, logg))
					r.Get("/orders/{orderId}/fee", controllers.OrderDeliveryFee(deliveryService, logg))
					r.Get("/orders/{orderId}/status", controllers.OrderDeliveryStatus(deliveryService, logg))
				})
			})
		})
	})

	return r
}
