// Package weatherinsight implements the WeatherInsight HTTP service, which
// answers natural-language weather questions.
package weatherinsight

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/R3E-Network/weatherinsight/internal/answer"
	"github.com/R3E-Network/weatherinsight/internal/history"
	"github.com/R3E-Network/weatherinsight/internal/logging"
	"github.com/R3E-Network/weatherinsight/internal/middleware"
	"github.com/R3E-Network/weatherinsight/internal/service"
	"github.com/R3E-Network/weatherinsight/internal/weather"
)

const (
	ServiceID   = "weatherinsight"
	ServiceName = "WeatherInsight"

	// MaxQuestionLength bounds the question in characters.
	MaxQuestionLength = 2000

	limiterIdleTimeout = 10 * time.Minute
	cachePurgeInterval = time.Minute
)

// Answerer answers a single question.
type Answerer interface {
	Answer(ctx context.Context, question string) (answer.Result, error)
}

// Service implements WeatherInsight.
type Service struct {
	*service.BaseService

	answerer       Answerer
	history        history.Store
	limiter        *middleware.RateLimiter
	cache          *weather.MemoryCache
	origins        []string
	requestTimeout time.Duration
	logger         *logging.Logger
	handler        http.Handler

	statsMu  sync.Mutex
	outcomes map[string]int64
	failures int64
}

// Config configures the service.
type Config struct {
	Version  string
	Answerer Answerer
	History  history.Store // optional, defaults to an in-memory store
	Logger   *logging.Logger

	AllowedOrigins []string
	RateLimitRPS   int // 0 disables inbound rate limiting
	RateLimitBurst int
	// TrustedProxies are CIDRs or IPs allowed to set X-Forwarded-For.
	TrustedProxies []string
	// RequestTimeout bounds answering one question. 0 means no bound.
	RequestTimeout time.Duration

	// MemoryCache, when set, is purged periodically.
	MemoryCache  *weather.MemoryCache
	HealthChecks []service.HealthCheck
}

// New creates the WeatherInsight service.
func New(cfg Config) (*Service, error) {
	if cfg.Answerer == nil {
		return nil, fmt.Errorf("answerer is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	store := cfg.History
	if store == nil {
		store = history.NewMemoryStore(history.MaxLimit)
	}
	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	base := service.NewBase(service.BaseConfig{
		ID:      ServiceID,
		Name:    ServiceName,
		Version: version,
		Logger:  logger,
	})
	for _, check := range cfg.HealthChecks {
		base.WithHealthCheck(check)
	}

	s := &Service{
		BaseService:    base,
		answerer:       cfg.Answerer,
		history:        store,
		cache:          cfg.MemoryCache,
		origins:        cfg.AllowedOrigins,
		requestTimeout: cfg.RequestTimeout,
		logger:         logger,
		outcomes:       make(map[string]int64),
	}
	if cfg.RateLimitRPS > 0 {
		proxies, err := middleware.ParseTrustedProxies(cfg.TrustedProxies)
		if err != nil {
			return nil, err
		}
		s.limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger, "/", "/health", "/info", "/metrics").
			WithTrustedProxies(proxies)
	}

	base.WithStats(s.statistics)
	if err := s.registerJobs(); err != nil {
		return nil, err
	}
	s.registerRoutes()
	return s, nil
}

// Handler returns the fully wrapped HTTP handler. Every middleware runs
// before routing, so unmatched paths are traced and preflights answered.
func (s *Service) Handler() http.Handler {
	return s.handler
}

func (s *Service) recordOutcome(outcome string) {
	s.statsMu.Lock()
	s.outcomes[outcome]++
	s.statsMu.Unlock()
}

func (s *Service) recordFailure() {
	s.statsMu.Lock()
	s.failures++
	s.statsMu.Unlock()
}

func (s *Service) statistics() map[string]any {
	s.statsMu.Lock()
	outcomes := make(map[string]int64, len(s.outcomes))
	var answered int64
	for k, v := range s.outcomes {
		outcomes[k] = v
		answered += v
	}
	failures := s.failures
	s.statsMu.Unlock()

	stats := map[string]any{
		"questions_answered": answered,
		"outcomes":           outcomes,
		"internal_errors":    failures,
	}
	if s.cache != nil {
		stats["cache_entries"] = s.cache.Len()
	}
	if s.limiter != nil {
		stats["rate_limited_clients"] = s.limiter.Size()
	}
	return stats
}
