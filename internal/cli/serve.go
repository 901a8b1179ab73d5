package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/R3E-Network/weatherinsight/internal/answer"
	"github.com/R3E-Network/weatherinsight/internal/buildinfo"
	"github.com/R3E-Network/weatherinsight/internal/config"
	"github.com/R3E-Network/weatherinsight/internal/extract"
	"github.com/R3E-Network/weatherinsight/internal/history"
	"github.com/R3E-Network/weatherinsight/internal/llm"
	"github.com/R3E-Network/weatherinsight/internal/logging"
	"github.com/R3E-Network/weatherinsight/internal/service"
	"github.com/R3E-Network/weatherinsight/internal/weather"
	"github.com/R3E-Network/weatherinsight/services/weatherinsight"
)

const locatorTTL = time.Hour

// ServeCmd runs the HTTP service.
type ServeCmd struct {
	Host string `help:"Interface to bind (overrides HOST)."`
	Port int    `help:"Port to listen on (overrides PORT)."`
}

// Run loads configuration, wires the service and serves until ctx ends.
func (c *ServeCmd) Run(ctx context.Context, root *RootCmd) error {
	cfg, err := config.Load(config.Options{EnvFile: root.EnvFile, ConfigFile: root.Config})
	if err != nil {
		return err
	}
	if c.Host != "" {
		cfg.Host = c.Host
	}
	if c.Port != 0 {
		cfg.Port = c.Port
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.New(logging.Config{
		Service: buildinfo.Name,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})

	app, cleanup, err := build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           app.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	if err := app.Start(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Entry().WithField("addr", server.Addr).WithField("version", buildinfo.Version).Info("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok && err != nil {
			_ = app.Stop()
			return err
		}
	}

	logger.Entry().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Entry().WithError(err).Warn("shutdown error")
	}
	return app.Stop()
}

// build wires the question pipeline and its backing stores.
func build(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*weatherinsight.Service, func(), error) {
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i]()
		}
	}

	gemini, err := llm.NewGemini(ctx, llm.GeminiConfig{APIKey: cfg.GeminiAPIKey, Model: cfg.GeminiModel})
	if err != nil {
		return nil, cleanup, err
	}
	logger.Entry().WithField("model", gemini.Model()).Debug("gemini client ready")

	var (
		cache    weather.Cache
		memCache *weather.MemoryCache
		checks   []service.HealthCheck
	)
	if cfg.RedisURL != "" {
		redisCache, err := weather.NewRedisCache(cfg.RedisURL)
		if err != nil {
			return nil, cleanup, err
		}
		closers = append(closers, redisCache.Close)
		checks = append(checks, service.HealthCheck{Name: "redis", Check: redisCache.Ping})
		cache = redisCache
	} else {
		memCache = weather.NewMemoryCache()
		cache = memCache
	}

	var store history.Store
	if cfg.DatabaseURL != "" {
		pg, err := history.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		closers = append(closers, pg.Close)
		checks = append(checks, service.HealthCheck{Name: "database", Check: pg.Ping})
		store = pg
	}

	fetcher := &weather.CachedFetcher{
		Next: weather.NewClient(weather.ClientConfig{
			APIKey:            cfg.WeatherAPIKey,
			BaseURL:           cfg.WeatherAPIBaseURL,
			Timeout:           cfg.RequestTimeout,
			RequestsPerSecond: cfg.WeatherAPIRPS,
		}),
		Cache: cache,
		TTL:   cfg.CacheTTL,
	}
	forecasts := weather.NewService(weather.ServiceConfig{
		Fetcher: fetcher,
		Locator: weather.NewIPLocator(weather.LocatorConfig{
			URL:      cfg.IPInfoURL,
			Fallback: cfg.DefaultCity,
			TTL:      locatorTTL,
			Logger:   logger,
		}),
		Logger: logger,
	})

	answerer := answer.New(answer.Config{
		Extractor: extract.New(extract.Config{
			Generator:   llm.Instrumented{Stage: "extract", Next: gemini},
			DefaultCity: cfg.DefaultCity,
			Logger:      logger,
		}),
		Forecasts: forecasts,
		Generator: llm.Instrumented{Stage: "answer", Next: gemini},
		Options:   weather.Options{HoursBefore: cfg.HoursBefore, HoursAfter: cfg.HoursAfter},
		Logger:    logger,
	})

	app, err := weatherinsight.New(weatherinsight.Config{
		Version:        buildinfo.Version,
		Answerer:       answerer,
		History:        store,
		Logger:         logger,
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		TrustedProxies: cfg.TrustedProxies,
		RequestTimeout: cfg.RequestTimeout,
		MemoryCache:    memCache,
		HealthChecks:   checks,
	})
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	return app, cleanup, nil
}
