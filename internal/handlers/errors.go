package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"roomchat/internal/services"
)

// writeError maps a service failure to a status code and logs the cause.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	var svcErr *services.Error
	switch {
	case errors.As(err, &svcErr):
		switch svcErr.Kind {
		case services.KindValidation:
			status = http.StatusBadRequest
		case services.KindAuthorization:
			status = http.StatusForbidden
		case services.KindNotFound:
			status = http.StatusNotFound
		case services.KindTransientStore:
			status = http.StatusServiceUnavailable
		}
	case errors.Is(err, services.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	}

	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "route", c.FullPath(), "request_id", requestIDFromContext(c), "error", err)
	} else {
		slog.Info("request rejected", "route", c.FullPath(), "status", status, "error", err)
	}
	c.JSON(status, gin.H{"error": services.ClientMessage(err)})
}
