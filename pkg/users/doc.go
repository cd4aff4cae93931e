// Package users provides user account management: login with opaque
// bearer sessions, role-gated account creation, listing and deletion,
// and self-service email and password changes.
package users
