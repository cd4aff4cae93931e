// Package middleware provides HTTP middleware for authentication and
// role-gating.
//
// AuthMiddleware extracts the Bearer token, resolves it to an identity
// through the configured auth.Resolver, and stores the identity in the
// request context. RequireRole gates a subtree on held roles.
package middleware
