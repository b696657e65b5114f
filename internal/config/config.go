package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	Environment string
	FrontendURL string
	JWTSecret   string
	SentryDSN   string
	LogLevel    string
	Database    DatabaseConfig
	Redis       RedisConfig
	RateLimit   RateLimitConfig
	Checkout    CheckoutConfig
	Processors  ProcessorsConfig
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	// Addr is optional; empty selects the in-memory cart/session stores
	Addr     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	Window      time.Duration
	MaxRequests int64
}

type CheckoutConfig struct {
	// TaxRateBasisPoints is the flat sales tax rate, e.g. 800 = 8%
	TaxRateBasisPoints int64
	AllowedCountries   []string
	MaxItemQuantity    int
	SessionTTL         time.Duration
	PaymentTimeout     time.Duration
}

// ProcessorConfig holds one payment processor's credentials
type ProcessorConfig struct {
	APIBaseURL    string
	APIKey        string
	WebhookSecret string
	// WebhookID is only used by processors that verify webhooks via an API
	// call (PayPal) instead of a shared-secret signature
	WebhookID string
}

type ProcessorsConfig struct {
	Stripe         ProcessorConfig
	PayPal         ProcessorConfig
	GreenFinancial ProcessorConfig
	CryptoMass     ProcessorConfig
	WooCommerce    ProcessorConfig
}

func Load() (*Config, error) {
	viper.SetConfigType("env")
	viper.SetConfigName(".env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")

	// Set defaults
	viper.SetDefault("PORT", "4000")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("LOG_LEVEL", "info")

	// Read from environment variables
	viper.AutomaticEnv()

	// Try to read .env file (optional)
	if err := viper.ReadInConfig(); err != nil {
		// It's okay if .env doesn't exist, we'll use env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{
		Port:        getEnvOrViper("PORT", "4000"),
		Environment: getEnvOrViper("ENVIRONMENT", "development"),
		FrontendURL: getEnvOrViper("FRONTEND_URL", "http://localhost:3000"),
		JWTSecret:   getEnvOrViper("JWT_SECRET", ""),
		SentryDSN:   getEnvOrViper("SENTRY_DSN", ""),
		LogLevel:    getEnvOrViper("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			Host:     getEnvOrViper("DB_HOST", "localhost"),
			Port:     getEnvOrViper("DB_PORT", "5432"),
			User:     getEnvOrViper("DB_USER", "postgres"),
			Password: getEnvOrViper("DB_PASSWORD", "postgres"),
			DBName:   getEnvOrViper("DB_NAME", "shopapi"),
			SSLMode:  getEnvOrViper("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrViper("REDIS_ADDR", ""),
			Password: getEnvOrViper("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			Window:      time.Duration(getEnvInt("RATE_LIMIT_WINDOW_MS", 900000)) * time.Millisecond,
			MaxRequests: int64(getEnvInt("RATE_LIMIT_MAX_REQUESTS", 100)),
		},
		Checkout: CheckoutConfig{
			TaxRateBasisPoints: int64(getEnvInt("TAX_RATE_BPS", 800)),
			AllowedCountries:   splitList(getEnvOrViper("ALLOWED_COUNTRIES", "US,CA")),
			MaxItemQuantity:    getEnvInt("CART_MAX_QUANTITY", 99),
			SessionTTL:         time.Duration(getEnvInt("CHECKOUT_SESSION_TTL_MIN", 60)) * time.Minute,
			PaymentTimeout:     time.Duration(getEnvInt("PAYMENT_TIMEOUT_MS", 30000)) * time.Millisecond,
		},
		Processors: ProcessorsConfig{
			Stripe: ProcessorConfig{
				APIBaseURL:    getEnvOrViper("STRIPE_API_URL", "https://api.stripe.com"),
				APIKey:        getEnvOrViper("STRIPE_API_KEY", ""),
				WebhookSecret: getEnvOrViper("STRIPE_WEBHOOK_SECRET", ""),
			},
			PayPal: ProcessorConfig{
				APIBaseURL:    getEnvOrViper("PAYPAL_API_URL", "https://api-m.paypal.com"),
				APIKey:        getEnvOrViper("PAYPAL_API_KEY", ""),
				WebhookSecret: getEnvOrViper("PAYPAL_WEBHOOK_SECRET", ""),
				WebhookID:     getEnvOrViper("PAYPAL_WEBHOOK_ID", ""),
			},
			GreenFinancial: ProcessorConfig{
				APIBaseURL:    getEnvOrViper("GREEN_FINANCIAL_API_URL", "https://api.greenfinancial.io"),
				APIKey:        getEnvOrViper("GREEN_FINANCIAL_API_KEY", ""),
				WebhookSecret: getEnvOrViper("GREEN_FINANCIAL_WEBHOOK_SECRET", ""),
			},
			CryptoMass: ProcessorConfig{
				APIBaseURL:    getEnvOrViper("CRYPTOMASS_API_URL", "https://api.cryptomass.com"),
				APIKey:        getEnvOrViper("CRYPTOMASS_API_KEY", ""),
				WebhookSecret: getEnvOrViper("CRYPTOMASS_WEBHOOK_SECRET", ""),
			},
			WooCommerce: ProcessorConfig{
				APIBaseURL:    getEnvOrViper("WOOCOMMERCE_API_URL", ""),
				APIKey:        getEnvOrViper("WOOCOMMERCE_API_KEY", ""),
				WebhookSecret: getEnvOrViper("WOOCOMMERCE_WEBHOOK_SECRET", ""),
			},
		},
	}

	// Validate required fields. The JWT secret has no fallback: shipping an
	// embedded default credential is exactly the gap this replaces.
	if cfg.JWTSecret == "" {
		if cfg.Environment == "production" {
			return nil, fmt.Errorf("JWT_SECRET is required in production")
		}
		cfg.JWTSecret = "dev-only-secret"
	}
	if cfg.Checkout.TaxRateBasisPoints < 0 || cfg.Checkout.TaxRateBasisPoints > 10000 {
		return nil, fmt.Errorf("TAX_RATE_BPS must be between 0 and 10000")
	}
	if len(cfg.Checkout.AllowedCountries) == 0 {
		return nil, fmt.Errorf("ALLOWED_COUNTRIES must not be empty")
	}

	return cfg, nil
}

func getEnvOrViper(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw := getEnvOrViper(key, "")
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return n
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
