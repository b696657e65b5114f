package api

import (
	"database/sql"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/greatwhitehope/shopapi/internal/api/handlers"
	"github.com/greatwhitehope/shopapi/internal/api/middleware"
	"github.com/greatwhitehope/shopapi/internal/cart"
	"github.com/greatwhitehope/shopapi/internal/checkout"
	"github.com/greatwhitehope/shopapi/internal/config"
	"github.com/greatwhitehope/shopapi/internal/payment"
	"github.com/greatwhitehope/shopapi/internal/repository"
	"github.com/greatwhitehope/shopapi/internal/service"
)

// Deps collects everything the router wires into handlers
type Deps struct {
	Config   *config.Config
	Repos    *repository.Repositories
	Carts    cart.Store
	Sessions checkout.Store
	Wizard   *checkout.Wizard
	Orders   *service.OrderService
	Registry *payment.Registry
	DB       *sql.DB
	Logger   *zap.Logger
}

// NewRouter creates and configures the Gin router
func NewRouter(d Deps) *gin.Engine {
	cfg := d.Config
	logger := d.Logger

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(logger))
	if cfg.SentryDSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Session-ID"},
		AllowCredentials: true,
	}))

	// Health checks sit outside the rate limit
	router.GET("/health", handlers.HandleHealth(cfg.Environment))
	router.GET("/readiness", handlers.HandleReadiness(d.DB))

	api := router.Group("/api")
	api.Use(middleware.RateLimitMiddleware(cfg.RateLimit))

	v1 := api.Group("/v1")
	authRequired := middleware.AuthMiddleware(cfg.JWTSecret, logger)
	{
		v1.POST("/auth/login", handlers.HandleLogin(cfg, d.Repos, logger))
		v1.POST("/auth/verify", handlers.HandleVerifyToken(cfg, logger))

		// Catalog and content. Reads are public; writes require a token.
		v1.GET("/products", handlers.HandleListProducts(d.Repos, logger))
		v1.GET("/products/:id", handlers.HandleGetProduct(d.Repos, logger))
		v1.POST("/products", authRequired, handlers.HandleCreateProduct(d.Repos, logger))
		v1.PUT("/products/:id", authRequired, handlers.HandleUpdateProduct(d.Repos, logger))
		v1.DELETE("/products/:id", authRequired, handlers.HandleDeleteProduct(d.Repos, logger))

		v1.GET("/pages", handlers.HandleListPages(d.Repos, logger))
		v1.GET("/pages/:slug", handlers.HandleGetPage(d.Repos, logger))
		v1.POST("/pages", authRequired, handlers.HandleCreatePage(d.Repos, logger))
		v1.PUT("/pages/:id", authRequired, handlers.HandleUpdatePage(d.Repos, logger))

		v1.GET("/media", handlers.HandleListMedia(d.Repos, logger))
		v1.POST("/media", authRequired, handlers.HandleCreateMedia(d.Repos, logger))

		// Cart routes, scoped by X-Session-ID
		v1.GET("/cart", handlers.HandleGetCart(d.Carts, logger))
		v1.DELETE("/cart", handlers.HandleClearCart(d.Carts, logger))
		v1.POST("/cart/items", handlers.HandleAddCartItem(d.Carts, cfg.Checkout, logger))
		v1.PUT("/cart/items/:key", handlers.HandleUpdateCartItem(d.Carts, logger))
		v1.DELETE("/cart/items/:key", handlers.HandleRemoveCartItem(d.Carts, logger))

		// Checkout wizard
		v1.POST("/checkout", handlers.HandleBeginCheckout(d.Carts, d.Sessions, d.Wizard, logger))
		v1.GET("/checkout/:id", handlers.HandleGetCheckout(d.Sessions, logger))
		v1.PUT("/checkout/:id/address", handlers.HandleCheckoutAddress(d.Sessions, d.Wizard, logger))
		v1.PUT("/checkout/:id/payment", handlers.HandleCheckoutPayment(d.Sessions, d.Wizard, logger))
		v1.POST("/checkout/:id/back", handlers.HandleCheckoutBack(d.Sessions, d.Wizard, logger))
		v1.POST("/checkout/:id/submit", handlers.HandleCheckoutSubmit(d.Carts, d.Sessions, d.Wizard, d.Orders, logger))

		// Orders
		v1.GET("/orders/:id", handlers.HandleGetOrder(d.Repos, logger))
		v1.POST("/orders/:id/resubmit", handlers.HandleResubmitOrder(d.Orders, d.Repos, logger))

		// Payments
		v1.GET("/payments/processors", handlers.HandleListProcessors(d.Registry))
		v1.POST("/payments/initiate", handlers.HandleInitiatePayment(d.Orders, logger))
		v1.POST("/payments/verify", handlers.HandleVerifyPayment(d.Orders, logger))
		v1.POST("/payments/refund", authRequired, handlers.HandleRefund(d.Orders, logger))

		// Provider webhooks carry their own signature auth
		v1.POST("/webhooks/:processor", handlers.HandleWebhook(d.Orders, d.Registry, logger))

		// Admin routes (require authentication)
		admin := v1.Group("/admin")
		admin.Use(authRequired)
		{
			admin.GET("/orders", handlers.HandleListOrders(d.Repos, logger))
			admin.GET("/orders/:id/events", handlers.HandleOrderEvents(d.Repos, logger))
			admin.POST("/orders/:id/fulfil", handlers.HandleFulfilOrder(d.Orders, d.Repos, logger))
			admin.POST("/orders/:id/cancel", handlers.HandleCancelOrder(d.Orders, d.Repos, logger))
		}
	}

	return router
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		status := c.Writer.Status()
		logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
		)
	}
}
