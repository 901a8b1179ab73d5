package weatherinsight

import (
	"net/http"

	"github.com/R3E-Network/weatherinsight/internal/metrics"
	"github.com/R3E-Network/weatherinsight/internal/middleware"
)

// registerRoutes registers service-specific HTTP handlers and builds the
// middleware chain around the router.
// Note: /health and /info are registered by BaseService.RegisterStandardRoutes()
func (s *Service) registerRoutes() {
	r := s.Router()

	s.RegisterStandardRoutes()
	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/handle_question", s.handleQuestion).Methods(http.MethodPost)
	r.HandleFunc("/history", s.handleHistory).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(s.handleMethodNotAllowed)

	// mux only runs Use middleware for matched routes, so wrap from outside
	var h http.Handler = r
	if s.limiter != nil {
		h = s.limiter.Handler(h)
	}
	h = middleware.NewCORSMiddleware(s.origins).Handler(h)
	h = middleware.MetricsMiddleware(ServiceID, r)(h)
	h = middleware.Recovery(s.logger)(h)
	h = middleware.NewTracingMiddleware(s.logger).Handler(h)
	s.handler = h
}
