package services

import (
	"errors"

	"roomchat/internal/repositories"
)

// Kind classifies an operation failure.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindAuthorization
	KindNotFound
	KindTransientStore
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindTransientStore:
		return "transient_store"
	default:
		return "unknown"
	}
}

// Error is a non-fatal, operation-scoped failure. Msg is safe to show to the
// client; Err keeps the underlying cause for logging.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Msg + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrValidation     = &Error{Kind: KindValidation, Msg: "invalid request"}
	ErrNotAuthorized  = &Error{Kind: KindAuthorization, Msg: "not authorized"}
	ErrNotFound       = &Error{Kind: KindNotFound, Msg: "not found"}
	ErrTransientStore = &Error{Kind: KindTransientStore, Msg: "store unavailable"}
)

// ErrInvalidCredentials is returned by Login for unknown logins and wrong passwords alike.
var ErrInvalidCredentials = errors.New("invalid email or password")

const (
	msgEmptyContent     = "Message content cannot be empty"
	msgNotMember        = "You are not a member of this room"
	msgMessageNotFound  = "Message not found"
	msgRoomNotFound     = "Room not found"
	msgUserNotFound     = "User not found"
	msgNotMessageOwner  = "Not authorized to modify this message"
	msgStoreUnavailable = "Service temporarily unavailable, please retry"
)

func validationError(msg string) error {
	return &Error{Kind: KindValidation, Msg: msg}
}

func authorizationError(msg string) error {
	return &Error{Kind: KindAuthorization, Msg: msg}
}

func notFoundError(msg string, cause error) error {
	return &Error{Kind: KindNotFound, Msg: msg, Err: cause}
}

// storeErr maps a repository failure into the taxonomy. Repository not-found
// sentinels become NotFound; anything else is treated as transient.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return err
	}
	switch {
	case errors.Is(err, repositories.ErrMessageNotFound):
		return notFoundError(msgMessageNotFound, err)
	case errors.Is(err, repositories.ErrRoomNotFound):
		return notFoundError(msgRoomNotFound, err)
	case errors.Is(err, repositories.ErrUserNotFound):
		return notFoundError(msgUserNotFound, err)
	}
	return &Error{Kind: KindTransientStore, Msg: msgStoreUnavailable, Err: err}
}

// ClientMessage returns the text to put in a scoped error event.
func ClientMessage(err error) string {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Msg
	}
	if errors.Is(err, ErrInvalidCredentials) {
		return "Invalid email or password"
	}
	return "Internal server error"
}
