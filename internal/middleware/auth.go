package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"roomchat/internal/auth"
	"roomchat/internal/models"
)

// Authenticator resolves a bearer token to an identity.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (models.PublicUser, error)
}

// AuthMiddleware validates the bearer credential and stores the identity
// under "user" and its id under "userID".
func AuthMiddleware(authenticator Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := authenticator.Authenticate(c.Request.Context(), auth.TokenFromRequest(c.Request))
		if err != nil {
			var authErr *auth.AuthenticationError
			if errors.As(err, &authErr) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": authErr.Message()})
				return
			}
			slog.Error("authenticate request failed", "error", err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "authentication unavailable"})
			return
		}

		c.Set("user", user)
		c.Set("userID", user.ID)
		c.Next()
	}
}
