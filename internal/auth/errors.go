package auth

import "errors"

// Reason explains why a credential was rejected.
type Reason string

const (
	ReasonMissingToken    Reason = "missing_token"
	ReasonInvalidToken    Reason = "invalid_token"
	ReasonExpiredToken    Reason = "expired_token"
	ReasonUnknownIdentity Reason = "unknown_identity"
)

// ErrUnauthenticated matches every *AuthenticationError via errors.Is.
var ErrUnauthenticated = errors.New("unauthenticated")

// AuthenticationError rejects a connection or request before any room logic runs.
type AuthenticationError struct {
	Reason Reason
	Err    error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return "authentication failed: " + string(e.Reason) + ": " + e.Err.Error()
	}
	return "authentication failed: " + string(e.Reason)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

func (e *AuthenticationError) Is(target error) bool { return target == ErrUnauthenticated }

// Message is the client-facing text for the rejection.
func (e *AuthenticationError) Message() string {
	switch e.Reason {
	case ReasonMissingToken:
		return "Not authorized, no token"
	case ReasonExpiredToken:
		return "Not authorized, token expired"
	case ReasonUnknownIdentity:
		return "Not authorized, user not found"
	default:
		return "Not authorized, invalid token"
	}
}

func reject(reason Reason, err error) error {
	return &AuthenticationError{Reason: reason, Err: err}
}
