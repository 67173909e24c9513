package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"roomchat/internal/models"
	"roomchat/internal/repositories"
)

// IdentityStore resolves a verified subject to its password-free projection.
type IdentityStore interface {
	GetPublicUser(ctx context.Context, userID string) (models.PublicUser, error)
}

// Claims carries the identity id, matching the credential issued at login.
type Claims struct {
	ID string `json:"id"`
	jwt.RegisteredClaims
}

// Authenticator issues and validates bearer credentials.
type Authenticator struct {
	secret []byte
	ttl    time.Duration
	users  IdentityStore
	now    func() time.Time
}

// NewAuthenticator constructs an Authenticator signing with HS256.
func NewAuthenticator(secret string, ttl time.Duration, users IdentityStore) *Authenticator {
	return &Authenticator{secret: []byte(secret), ttl: ttl, users: users, now: time.Now}
}

// IssueToken signs a credential for userID.
func (a *Authenticator) IssueToken(userID string) (string, error) {
	now := a.now()
	claims := Claims{
		ID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Authenticate resolves a presented token to a verified identity. Rejections
// are *AuthenticationError; store failures are returned wrapped as-is.
func (a *Authenticator) Authenticate(ctx context.Context, token string) (models.PublicUser, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return models.PublicUser{}, reject(ReasonMissingToken, nil)
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(a.now))
	if errors.Is(err, jwt.ErrTokenExpired) {
		return models.PublicUser{}, reject(ReasonExpiredToken, err)
	}
	if err != nil {
		return models.PublicUser{}, reject(ReasonInvalidToken, err)
	}

	userID := claims.ID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return models.PublicUser{}, reject(ReasonInvalidToken, errors.New("token has no subject"))
	}

	user, err := a.users.GetPublicUser(ctx, userID)
	if errors.Is(err, repositories.ErrUserNotFound) {
		return models.PublicUser{}, reject(ReasonUnknownIdentity, err)
	}
	if err != nil {
		return models.PublicUser{}, fmt.Errorf("resolve identity: %w", err)
	}
	return user, nil
}

// TokenFromRequest extracts the bearer credential from the Authorization
// header, falling back to the token query parameter used by browsers that
// cannot set headers on websocket upgrades.
func TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return r.URL.Query().Get("token")
}
