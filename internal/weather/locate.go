package weather

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"github.com/R3E-Network/weatherinsight/internal/httputil"
	"github.com/R3E-Network/weatherinsight/internal/logging"
)

// DefaultIPInfoURL is the IP geolocation endpoint used when no city is named.
const DefaultIPInfoURL = "https://ipinfo.io/json"

// CityLocator resolves a city when the question does not name one.
type CityLocator interface {
	City(ctx context.Context) string
}

// IPLocator looks up the city of the server's public IP. Lookups never fail:
// any error yields the configured fallback city.
type IPLocator struct {
	http     *httputil.Client
	fallback string
	ttl      time.Duration
	logger   *logging.Logger
	now      func() time.Time

	mu       sync.Mutex
	city     string
	cachedAt time.Time
}

// LocatorConfig configures an IPLocator.
type LocatorConfig struct {
	URL        string
	Fallback   string
	Timeout    time.Duration
	TTL        time.Duration // how long a successful lookup is reused; 0 disables reuse
	HTTPClient *http.Client
	Logger     *logging.Logger
}

// NewIPLocator creates an IPLocator.
func NewIPLocator(cfg LocatorConfig) *IPLocator {
	endpoint := cfg.URL
	if endpoint == "" {
		endpoint = DefaultIPInfoURL
	}
	fallback := cfg.Fallback
	if fallback == "" {
		fallback = "Berlin"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &IPLocator{
		http: httputil.NewClient(httputil.ClientConfig{
			BaseURL:    endpoint,
			Timeout:    timeout,
			MaxRetries: -1,
			HTTPClient: cfg.HTTPClient,
			UserAgent:  "weatherinsight",
		}),
		fallback: fallback,
		ttl:      cfg.TTL,
		logger:   logger,
		now:      time.Now,
	}
}

// City returns the detected city or the fallback.
func (l *IPLocator) City(ctx context.Context) string {
	if city, ok := l.cached(); ok {
		return city
	}

	city, err := l.lookup(ctx)
	if err != nil || city == "" {
		l.logger.WithContext(ctx).WithError(err).WithField("fallback", l.fallback).Warn("city lookup failed")
		return l.fallback
	}

	l.mu.Lock()
	l.city = city
	l.cachedAt = l.now()
	l.mu.Unlock()
	return city
}

func (l *IPLocator) cached() (string, bool) {
	if l.ttl <= 0 {
		return "", false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.city == "" || l.now().Sub(l.cachedAt) > l.ttl {
		return "", false
	}
	return l.city, true
}

func (l *IPLocator) lookup(ctx context.Context) (string, error) {
	resp, err := l.http.Get(ctx, "", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := httputil.ReadAllStrict(resp.Body, 64<<10)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{StatusCode: resp.StatusCode}
	}
	return strings.TrimSpace(gjson.GetBytes(body, "city").String()), nil
}

// StaticLocator always returns the same city.
type StaticLocator string

// City implements CityLocator.
func (s StaticLocator) City(context.Context) string { return string(s) }
