package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInternal        = errors.New("internal error")
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrPersistence     = errors.New("persistence error")
	ErrClockFallback   = errors.New("clock fallback")
)

// Client-facing authentication failure messages.
const (
	MsgWrongCredentials      = "Wrong Credentials"
	MsgWrongToken            = "Wrong credentials"
	MsgTokenExpired          = "Token was expired. Try to login again"
	MsgTryLater              = "Something went wrong. Try again later"
	MsgTokenRequired         = "Authentication token required"
	MsgAuthenticationFailure = "An authentication exception occurred."
)

// AuthenticationFailed terminates a request with 401. Message is safe to show
// to the client; Cause is for server-side logs only.
type AuthenticationFailed struct {
	Message string
	Cause   error
}

func (e *AuthenticationFailed) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Message, e.Cause)
	}
	return "authentication failed: " + e.Message
}

func (e *AuthenticationFailed) Unwrap() error {
	return e.Cause
}

func NewAuthenticationFailed(msg string) error {
	return &AuthenticationFailed{Message: msg}
}

func WrapAuthenticationFailed(err error, msg string) error {
	return &AuthenticationFailed{Message: msg, Cause: err}
}

func NewInvalidArgument(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, msg)
}

func WrapInternal(err error, context string) error {
	return fmt.Errorf("%w: %s: %v", ErrInternal, context, err)
}

func WrapPersistence(err error, context string) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, context, err)
}

// ClientMessage returns the user-safe message of an authentication failure,
// or the generic one for anything else.
func ClientMessage(err error) string {
	var af *AuthenticationFailed
	if errors.As(err, &af) && af.Message != "" {
		return af.Message
	}
	return MsgAuthenticationFailure
}

func IsAuthenticationFailed(err error) bool {
	var af *AuthenticationFailed
	return errors.As(err, &af)
}

func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

func IsInternal(err error) bool {
	return errors.Is(err, ErrInternal)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

func IsPersistence(err error) bool {
	return errors.Is(err, ErrPersistence)
}
