// Package api composes the domain handler sets into the single HTTP
// surface served by snagd. The login route is public; every other route
// requires a resolved bearer session.
package api
