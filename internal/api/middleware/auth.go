package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const adminContextKey = "admin_user"

// AdminClaims are the JWT claims issued to back-office users
type AdminClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// AuthMiddleware requires a valid bearer token signed with the configured
// secret and stores its claims on the request context.
func AuthMiddleware(jwtSecret string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":      "missing token",
				"statusCode": http.StatusUnauthorized,
			})
			return
		}

		claims, err := ParseToken(token, jwtSecret)
		if err != nil {
			logger.Debug("token rejected", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":      "invalid token",
				"statusCode": http.StatusUnauthorized,
			})
			return
		}

		c.Set(adminContextKey, claims)
		c.Next()
	}
}

// ParseToken validates a signed admin token and returns its claims
func ParseToken(token, jwtSecret string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

// GetAdminFromContext returns the authenticated admin claims, if any
func GetAdminFromContext(c *gin.Context) (*AdminClaims, bool) {
	v, ok := c.Get(adminContextKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*AdminClaims)
	return claims, ok
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}
