// Package observability provides structured JSON logging, Prometheus
// metrics, health probes and the HTTP middleware that ties them to
// requests.
package observability
