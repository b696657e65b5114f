package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/greatwhitehope/shopapi/internal/config"
)

// RateLimitMiddleware applies a per-IP fixed-window limit to the API.
// Window and ceiling come from RATE_LIMIT_WINDOW_MS / RATE_LIMIT_MAX_REQUESTS.
func RateLimitMiddleware(cfg config.RateLimitConfig) gin.HandlerFunc {
	rate := limiter.Rate{
		Period: cfg.Window,
		Limit:  cfg.MaxRequests,
	}
	instance := limiter.New(memory.NewStore(), rate)
	return mgin.NewMiddleware(instance)
}
