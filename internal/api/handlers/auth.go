package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/greatwhitehope/shopapi/internal/api/middleware"
	"github.com/greatwhitehope/shopapi/internal/config"
	"github.com/greatwhitehope/shopapi/internal/repository"
)

const tokenLifetime = 24 * time.Hour

// LoginRequest represents the login payload
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// HandleLogin handles POST /api/v1/auth/login
func HandleLogin(cfg *config.Config, repos *repository.Repositories, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}

		user, err := repos.AdminUser.GetByEmail(c.Request.Context(), req.Email)
		if err != nil {
			// Same response for unknown user and bad password
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":      "invalid email or password",
				"statusCode": http.StatusUnauthorized,
			})
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":      "invalid email or password",
				"statusCode": http.StatusUnauthorized,
			})
			return
		}

		now := time.Now()
		claims := &middleware.AdminClaims{
			UserID: user.ID.String(),
			Email:  user.Email,
			Role:   user.Role,
			RegisteredClaims: jwt.RegisteredClaims{
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
			},
		}

		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
		if err != nil {
			respondError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"token": token,
			"user": gin.H{
				"id":    user.ID.String(),
				"email": user.Email,
				"name":  user.Name,
				"role":  user.Role,
			},
		})
	}
}

// HandleVerifyToken handles POST /api/v1/auth/verify
func HandleVerifyToken(cfg *config.Config, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":      "no token provided",
				"statusCode": http.StatusUnauthorized,
			})
			return
		}

		token := header
		if len(header) > 7 && header[:7] == "Bearer " {
			token = header[7:]
		}

		claims, err := middleware.ParseToken(token, cfg.JWTSecret)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":      "invalid token",
				"statusCode": http.StatusUnauthorized,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"valid": true,
			"user": gin.H{
				"id":    claims.UserID,
				"email": claims.Email,
				"role":  claims.Role,
			},
		})
	}
}
