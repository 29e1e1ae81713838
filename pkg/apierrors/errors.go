// Package apierrors defines the error taxonomy shared by the auth,
// rbac and pagination packages, plus constructors for each kind.
//
// Errors are sentinel-based so callers can classify with errors.Is:
//
//	if errors.Is(err, apierrors.ErrUnauthorized) { ... }
//
// The HTTP layer maps kinds to status codes in pkg/httputil.
package apierrors

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for use with errors.Is()
var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrInternal        = errors.New("internal error")
)

// Error carries a caller-safe message alongside its kind and an
// optional wrapped cause. The cause is for logs only and must never
// reach a response body for Unauthorized or Forbidden errors.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap supports errors.Is/errors.As against both the kind and the cause.
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// Unauthorized returns an authentication failure with a generic,
// caller-safe message. Provider detail belongs in cause, not msg.
func Unauthorized(msg string, cause error) *Error {
	return &Error{Kind: ErrUnauthorized, Message: msg, Err: cause}
}

// Forbidden returns an authorization failure for an authenticated caller.
func Forbidden(msg string) *Error {
	return &Error{Kind: ErrForbidden, Message: msg}
}

// InvalidArgument returns a caller-input failure. The message describes
// caller-supplied values only and is safe to return verbatim.
func InvalidArgument(msg string) *Error {
	return &Error{Kind: ErrInvalidArgument, Message: msg}
}

// InvalidArgumentf formats an InvalidArgument message.
func InvalidArgumentf(format string, args ...interface{}) *Error {
	return InvalidArgument(fmt.Sprintf(format, args...))
}

// NotFound returns a missing-resource failure.
func NotFound(msg string) *Error {
	return &Error{Kind: ErrNotFound, Message: msg}
}

// Internal returns a server-side consistency failure, e.g. stored data
// that violates a declared schema.
func Internal(msg string, cause error) *Error {
	return &Error{Kind: ErrInternal, Message: msg, Err: cause}
}

// Message returns the caller-safe message for err if it is an *Error,
// or a generic fallback otherwise. Used by the HTTP layer so internal
// error text never leaks into responses.
func Message(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return "internal server error"
}
