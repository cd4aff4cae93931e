package observability

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/snagtrack/snag/pkg/contextkeys"
)

// statusRecorder captures the response status for logging and metrics
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Middleware attaches a request ID and logger to each request, records
// metrics, and recovers panics into 500 responses. metrics may be nil.
func Middleware(logger *Logger, metrics *Metrics) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.NewString()
			}

			ctx := contextkeys.WithValue(r.Context(), contextkeys.RequestIDKey, requestID)
			ctx = WithLogger(ctx, logger.WithField("request_id", requestID))

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			w.Header().Set("X-Request-ID", requestID)

			defer func() {
				if p := recover(); p != nil {
					logger.WithField("panic", p).
						WithField("stack", string(debug.Stack())).
						WithField("request_id", requestID).
						Error("panic recovered in handler")
					http.Error(rec, "internal server error", http.StatusInternalServerError)
				}

				route := routeTemplate(r)
				elapsed := time.Since(start)
				if metrics != nil {
					metrics.HTTPRequestsTotal.WithLabelValues(
						r.Method, route, httpStatusLabel(rec.status)).Inc()
					metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).
						Observe(elapsed.Seconds())
				}
				logger.WithFields(map[string]interface{}{
					"request_id": requestID,
					"method":     r.Method,
					"path":       r.URL.Path,
					"status":     rec.status,
					"duration":   elapsed.String(),
				}).Info("request handled")
			}()

			next.ServeHTTP(rec, r.WithContext(ctx))
		})
	}
}

// routeTemplate returns the mux route pattern to keep metric cardinality
// bounded, falling back to the raw path for unmatched requests
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return r.URL.Path
}

func httpStatusLabel(status int) string {
	switch {
	case status < 200:
		return "1xx"
	case status < 300:
		return "2xx"
	case status < 400:
		return "3xx"
	case status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
