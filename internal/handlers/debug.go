package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"roomchat/internal/lru"
	"roomchat/internal/models"
	"roomchat/internal/telemetry"
)

// RegisterDebugRoutes wires debug-only endpoints.
func RegisterDebugRoutes(router *gin.Engine, emitter *telemetry.AuditEmitter, senders *lru.Cache[models.Sender], enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/audit-test", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		emitter.Emit(c.Request.Context(), "INFO", "audit test", requestIDFromContext(c), userIDFromContext(c), nil)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/debug/sender-cache", func(c *gin.Context) {
		if senders == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "sender cache not configured"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"size": senders.Len(), "keys": senders.Keys(), "entries": senders.Snapshot()})
	})
}
