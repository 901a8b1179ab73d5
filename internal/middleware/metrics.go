// Package middleware provides HTTP middleware functions
package middleware

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/R3E-Network/weatherinsight/internal/metrics"
)

// MetricsMiddleware records HTTP metrics for each request. It wraps router
// from outside, so requests that match no route are counted as "unmatched".
func MetricsMiddleware(serviceName string, router *mux.Router) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			metrics.IncInFlight()
			defer metrics.DecInFlight()

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			metrics.RecordHTTPRequest(serviceName, r.Method, routeLabel(router, r), wrapped.statusCode, time.Since(start))
		})
	}
}

// routeLabel returns the matched route template so path labels stay bounded.
func routeLabel(router *mux.Router, r *http.Request) string {
	if router == nil {
		return "unmatched"
	}
	var match mux.RouteMatch
	if !router.Match(r, &match) || match.MatchErr != nil || match.Route == nil {
		return "unmatched"
	}
	if tpl, err := match.Route.GetPathTemplate(); err == nil {
		return tpl
	}
	return "unmatched"
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}
