package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"reactive-user-service/internal/adapter/ratelimit"
	"reactive-user-service/pkg/logger"
	"reactive-user-service/pkg/metrics"
)

// RateLimiter returns a Gin middleware for rate limiting using Token Bucket algorithm.
// A nil limiter disables it; Redis errors let the request through.
func RateLimiter(limiter *ratelimit.Limiter, m *metrics.Metrics, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		clientIP := c.ClientIP()
		allowed, err := limiter.Allow(c.Request.Context(), ratelimit.HTTPKey(clientIP))
		if err != nil {
			logger.WithContext(c.Request.Context(), log).Warn("rate limiter redis error, allowing request",
				zap.String("client_ip", clientIP),
				zap.Error(err),
			)
			c.Next()
			return
		}

		if !allowed {
			if m != nil {
				m.ObserveRateLimited("http")
			}
			cfg := limiter.Config()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, NewStandardError(c, http.StatusTooManyRequests,
				fmt.Sprintf("%s: %.2f requests/second (burst capacity: %d)", MsgRateLimitExceeded, cfg.RequestsPerSecond, cfg.BurstCapacity)))
			return
		}

		c.Next()
	}
}
