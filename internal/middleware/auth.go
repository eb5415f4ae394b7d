package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/temcen/reelrank/internal/services"
	"github.com/temcen/reelrank/pkg/models"
)

const (
	userIDKey   = "user_id"
	userTierKey = "user_tier"
)

// TokenValidator verifies bearer tokens.
type TokenValidator interface {
	ValidateToken(tokenString string) (*models.JWTClaims, error)
}

var _ TokenValidator = (*services.AuthService)(nil)

// Auth establishes the caller identity from a bearer JWT. It does not
// decide what the caller may see.
func Auth(validator TokenValidator, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, http.StatusUnauthorized, "MISSING_AUTHORIZATION", "Authorization header is required")
			return
		}

		scheme, token, found := strings.Cut(authHeader, " ")
		if !found || scheme != "Bearer" || token == "" {
			abort(c, http.StatusUnauthorized, "INVALID_AUTHORIZATION_FORMAT", "Authorization header must be in format 'Bearer <token>'")
			return
		}

		claims, err := validator.ValidateToken(token)
		if err != nil {
			logger.WithError(err).WithField("client_ip", c.ClientIP()).Warn("Invalid JWT token")
			abort(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
			return
		}

		c.Set(userIDKey, claims.UserID)
		c.Set(userTierKey, claims.UserTier)
		c.Next()
	}
}

// GetUserFromContext returns the authenticated caller, if any.
func GetUserFromContext(c *gin.Context) (uuid.UUID, string, bool) {
	raw, exists := c.Get(userIDKey)
	if !exists {
		return uuid.Nil, "", false
	}
	userID, ok := raw.(uuid.UUID)
	if !ok {
		return uuid.Nil, "", false
	}
	tier := c.GetString(userTierKey)
	return userID, tier, true
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}
