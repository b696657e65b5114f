package handlers

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HandleHealth handles GET /health
func HandleHealth(environment string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"environment": environment,
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// HandleReadiness handles GET /readiness. With the in-memory backends there
// is no database to check, so a nil handle reads as ready.
func HandleReadiness(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			if err := db.PingContext(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":     "unavailable",
					"statusCode": http.StatusServiceUnavailable,
				})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}
