package middleware

import (
	"github.com/gin-gonic/gin"

	"roomchat/internal/observability"
)

const RequestIDKey = "request_id"

// RequestID propagates X-Request-Id, minting one when absent.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := observability.RequestIDFromRequest(c.Request)
		c.Set(RequestIDKey, id)
		c.Writer.Header().Set("X-Request-Id", id)
		c.Next()
	}
}
