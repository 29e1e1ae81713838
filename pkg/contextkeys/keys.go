// Package contextkeys provides centralized context key definitions.
//
// All context keys used across the application are defined here. This
// prevents typos, documents dependencies, and makes key usage
// discoverable.
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// IdentityKey contains the authenticated *auth.Identity.
	// Set by: middleware.Auth (pkg/middleware/auth.go)
	// Required by: all protected API endpoints, scope guard
	IdentityKey Key = "identity"

	// RequestIDKey contains the request ID string (UUID).
	// Set by: httputil.RequestIDMiddleware
	// Used by: logger, response headers
	RequestIDKey Key = "request_id"

	// UserIDKey contains the authenticated user ID string.
	// Set by: middleware.Auth after verification
	// Used by: logger
	UserIDKey Key = "user_id"

	// LoggerKey contains the *observability.Logger.
	// Set by: observability middleware
	LoggerKey Key = "logger"
)

// WithIdentity stores an authenticated identity on the context. The
// value is stored as interface{} to avoid an import cycle; use
// middleware.IdentityFrom to read it back typed.
func WithIdentity(ctx context.Context, identity interface{}) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}
