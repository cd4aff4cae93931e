// Package contextkeys provides centralized context key definitions.
//
// All context keys used across the application must be defined here.
// This prevents typos, documents dependencies, and makes key usage discoverable.
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// IdentityKey contains *auth.Identity
	// Set by: middleware.AuthMiddleware (pkg/middleware/auth.go)
	// Required by: every protected API endpoint
	IdentityKey Key = "identity"

	// RequestIDKey contains the request ID string (UUID)
	// Set by: observability HTTP middleware
	// Used by: logger, error responses
	RequestIDKey Key = "request_id"

	// LoggerKey contains *observability.Logger
	// Set by: observability HTTP middleware
	LoggerKey Key = "logger"
)

// WithValue attaches a value to the context under the given key
func WithValue(ctx context.Context, key Key, value interface{}) context.Context {
	return context.WithValue(ctx, key, value)
}

// Value retrieves a value from the context
func Value(ctx context.Context, key Key) interface{} {
	return ctx.Value(key)
}
