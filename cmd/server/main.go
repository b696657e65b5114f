package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/greatwhitehope/shopapi/internal/api"
	"github.com/greatwhitehope/shopapi/internal/cart"
	"github.com/greatwhitehope/shopapi/internal/checkout"
	"github.com/greatwhitehope/shopapi/internal/config"
	"github.com/greatwhitehope/shopapi/internal/payment"
	"github.com/greatwhitehope/shopapi/internal/repository"
	"github.com/greatwhitehope/shopapi/internal/repository/memory"
	"github.com/greatwhitehope/shopapi/internal/repository/postgres"
	"github.com/greatwhitehope/shopapi/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	var logger *zap.Logger
	if cfg.Environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.SentryDSN,
			Environment: cfg.Environment,
		}); err != nil {
			logger.Warn("Failed to initialize sentry", zap.Error(err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Connect to database. DB_HOST may be left empty to run everything on
	// the in-memory backends (development and tests).
	var repos *repository.Repositories
	deps := api.Deps{Config: cfg, Logger: logger}
	if cfg.Database.Host != "" {
		db, err := postgres.NewConnection(cfg.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		if err := postgres.RunMigrations(db, "migrations"); err != nil {
			logger.Fatal("Failed to run migrations", zap.Error(err))
		}

		repos = postgres.NewRepositories(db, logger)
		deps.DB = db
		logger.Info("Using postgres repositories",
			zap.String("host", cfg.Database.Host),
			zap.String("db", cfg.Database.DBName),
		)
	} else {
		repos = memory.NewRepositories()
		logger.Warn("DB_HOST not set, using in-memory repositories")
	}

	// Cart and checkout session stores. REDIS_ADDR selects redis; empty
	// falls back to in-process stores.
	var carts cart.Store
	var sessions checkout.Store
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()

		carts = cart.NewRedisStore(rdb, cfg.Checkout.SessionTTL)
		sessions = checkout.NewRedisStore(rdb, cfg.Checkout.SessionTTL)
		logger.Info("Using redis session stores", zap.String("addr", cfg.Redis.Addr))
	} else {
		carts = cart.NewMemoryStore(cfg.Checkout.SessionTTL)
		sessions = checkout.NewMemoryStore(cfg.Checkout.SessionTTL)
	}

	// Payment processors
	registry := payment.NewRegistry()
	registry.Register(payment.NewStripe(cfg.Processors.Stripe, logger))
	registry.Register(payment.NewPayPal(cfg.Processors.PayPal, logger))
	registry.Register(payment.NewGreenFinancial(cfg.Processors.GreenFinancial, logger))
	registry.Register(payment.NewCryptoMass(cfg.Processors.CryptoMass, logger))
	registry.Register(payment.NewWooCommerce(cfg.Processors.WooCommerce, logger))

	deps.Repos = repos
	deps.Carts = carts
	deps.Sessions = sessions
	deps.Wizard = checkout.NewWizard(registry, cfg.Checkout.AllowedCountries, logger)
	deps.Orders = service.NewOrderService(repos, registry, cfg.Checkout, logger)
	deps.Registry = registry

	router := api.NewRouter(deps)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("Server starting",
			zap.String("port", cfg.Port),
			zap.String("environment", cfg.Environment),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Forced shutdown", zap.Error(err))
	}
	logger.Info("Server stopped")
}
