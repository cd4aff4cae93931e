// Package auth provides identity types, the caller-role normalizer, and
// opaque session token generation.
//
// Roles arrive at ingress boundaries in loose shapes (JSON arrays, single
// strings, comma-delimited strings, or nothing at all). NormalizeRoles is
// the single canonicalization point: every authorization decision in the
// application operates on its output, never on raw input.
package auth
