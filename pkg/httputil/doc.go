// Package httputil provides HTTP handler utilities for consistent JSON
// encoding, request parsing, and the mapping from typed application errors
// to HTTP responses.
package httputil
