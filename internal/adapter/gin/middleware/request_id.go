package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"reactive-user-service/pkg/logger"
)

// RequestID propagates the X-Request-Id header, generating one when absent,
// and stores it in the request context for logging.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(logger.RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Header(logger.RequestIDHeader, requestID)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), requestID))
		c.Next()
	}
}
