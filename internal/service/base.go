// Package service provides the lifecycle shared by HTTP services: stop
// handling, background workers, cron jobs, health checks and the standard
// /health and /info routes.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/robfig/cron/v3"

	"github.com/R3E-Network/weatherinsight/internal/logging"
)

const healthCheckTimeout = 5 * time.Second

// Health states reported by /health.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// BaseConfig contains shared configuration for services.
type BaseConfig struct {
	ID      string
	Name    string
	Version string
	Logger  *logging.Logger
}

// HealthCheck checks one dependency. A failing critical check makes the
// service unhealthy; other failures only degrade it.
type HealthCheck struct {
	Name     string
	Critical bool
	Check    func(context.Context) error
}

// BaseService provides consistent lifecycle handling:
// - Safe stop channel management (sync.Once prevents double-close panic)
// - Background ticker workers and cron jobs
// - Named dependency health checks
// - Statistics provider for /info
type BaseService struct {
	id      string
	name    string
	version string
	router  *mux.Router
	logger  *logging.Logger

	stopCh   chan struct{}
	stopOnce sync.Once

	statsFn func() map[string]any

	workers []func(context.Context)
	cron    *cron.Cron
	jobs    int

	checks          []HealthCheck
	healthMu        sync.RWMutex
	checkResults    map[string]string
	lastHealthCheck time.Time
	startTime       time.Time
}

// NewBase constructs a BaseService.
func NewBase(cfg BaseConfig) *BaseService {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &BaseService{
		id:           cfg.ID,
		name:         cfg.Name,
		version:      cfg.Version,
		router:       mux.NewRouter(),
		logger:       logger,
		stopCh:       make(chan struct{}),
		cron:         cron.New(),
		checkResults: make(map[string]string),
	}
}

// Name returns the service name.
func (b *BaseService) Name() string { return b.name }

// Version returns the service version.
func (b *BaseService) Version() string { return b.version }

// Router returns the service router.
func (b *BaseService) Router() *mux.Router { return b.router }

// WithStats sets a statistics provider called on each /info request.
func (b *BaseService) WithStats(fn func() map[string]any) *BaseService {
	b.statsFn = fn
	return b
}

// WithHealthCheck registers a dependency check.
func (b *BaseService) WithHealthCheck(check HealthCheck) *BaseService {
	b.checks = append(b.checks, check)
	return b
}

// AddTickerWorker registers fn to run every interval from Start until Stop.
func (b *BaseService) AddTickerWorker(name string, interval time.Duration, fn func(context.Context) error) *BaseService {
	worker := func(ctx context.Context) {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-b.stopCh:
				return
			case <-ticker.C:
				if err := fn(ctx); err != nil {
					b.logger.WithContext(ctx).WithError(err).WithField("worker", name).Warn("worker error")
				}
			}
		}
	}
	b.workers = append(b.workers, worker)
	return b
}

// AddCronJob schedules fn with a standard five-field cron schedule or a
// descriptor such as "@every 5m".
func (b *BaseService) AddCronJob(name, schedule string, fn func(context.Context) error) error {
	_, err := b.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := fn(ctx); err != nil {
			b.logger.Entry().WithError(err).WithField("job", name).Warn("cron job failed")
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	b.jobs++
	return nil
}

// Start launches workers and the cron scheduler.
func (b *BaseService) Start(ctx context.Context) error {
	b.healthMu.Lock()
	if b.startTime.IsZero() {
		b.startTime = time.Now()
	}
	b.healthMu.Unlock()

	for _, w := range b.workers {
		worker := w
		go worker(ctx)
	}
	b.cron.Start()

	b.logger.Entry().WithFields(map[string]interface{}{
		"id":        b.id,
		"workers":   b.WorkerCount(),
		"cron_jobs": b.CronJobCount(),
	}).Info("service started")
	return nil
}

// Stop signals workers and waits for running cron jobs. It is idempotent.
func (b *BaseService) Stop() error {
	b.stopOnce.Do(func() {
		close(b.stopCh)
		<-b.cron.Stop().Done()
	})
	return nil
}

// WorkerCount returns the number of registered workers.
func (b *BaseService) WorkerCount() int {
	return len(b.workers)
}

// CronJobCount returns the number of scheduled cron jobs.
func (b *BaseService) CronJobCount() int {
	return b.jobs
}

// CheckHealth runs every registered check and caches the results.
func (b *BaseService) CheckHealth(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	results := make(map[string]string, len(b.checks))
	for _, c := range b.checks {
		if err := c.Check(ctx); err != nil {
			results[c.Name] = err.Error()
			continue
		}
		results[c.Name] = "ok"
	}

	b.healthMu.Lock()
	b.checkResults = results
	b.lastHealthCheck = time.Now()
	b.healthMu.Unlock()
}

// HealthStatus checks dependencies and returns the aggregated status.
func (b *BaseService) HealthStatus(ctx context.Context) string {
	b.CheckHealth(ctx)
	b.healthMu.RLock()
	defer b.healthMu.RUnlock()
	return b.healthStatusLocked()
}

// HealthDetails describes the most recent health state.
func (b *BaseService) HealthDetails() map[string]any {
	b.healthMu.RLock()
	defer b.healthMu.RUnlock()

	checks := make(map[string]string, len(b.checkResults))
	for k, v := range b.checkResults {
		checks[k] = v
	}

	details := map[string]any{"checks": checks}
	if !b.lastHealthCheck.IsZero() {
		details["last_check"] = b.lastHealthCheck.Format(time.RFC3339)
	} else {
		details["last_check"] = ""
	}

	uptime := time.Duration(0)
	if !b.startTime.IsZero() {
		uptime = time.Since(b.startTime)
	}
	details["uptime"] = uptime.String()
	return details
}

func (b *BaseService) healthStatusLocked() string {
	status := StatusHealthy
	for _, c := range b.checks {
		if res, ok := b.checkResults[c.Name]; ok && res != "ok" {
			if c.Critical {
				return StatusUnhealthy
			}
			status = StatusDegraded
		}
	}
	return status
}
