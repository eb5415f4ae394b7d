package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/temcen/reelrank/internal/services"
	"github.com/temcen/reelrank/pkg/models"
)

// Limiter decides whether a caller may proceed.
type Limiter interface {
	IsAllowed(ctx context.Context, callerID, userTier string) (bool, *models.RateLimitInfo, error)
}

var _ Limiter = (*services.RateLimitService)(nil)

// RateLimit throttles authenticated callers by user id and anonymous
// callers by client IP.
func RateLimit(limiter Limiter, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		callerID := "ip:" + c.ClientIP()
		userTier := ""
		if userID, tier, ok := GetUserFromContext(c); ok {
			callerID = "user:" + userID.String()
			userTier = tier
		}

		allowed, info, err := limiter.IsAllowed(c.Request.Context(), callerID, userTier)
		if err != nil {
			logger.WithError(err).Error("Failed to check rate limit")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime, 10))

		if !allowed {
			logger.WithFields(logrus.Fields{
				"caller":    callerID,
				"user_tier": userTier,
				"limit":     info.Limit,
			}).Warn("Rate limit exceeded")

			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"code":    "RATE_LIMIT_EXCEEDED",
					"message": "Rate limit exceeded. Please try again later.",
				},
				"rate_limit": info,
			})
			return
		}

		c.Next()
	}
}
