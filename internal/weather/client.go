// Package weather retrieves forecasts from WeatherAPI and reduces them to the
// day and hours a question is about.
package weather

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/R3E-Network/weatherinsight/internal/httputil"
	"github.com/R3E-Network/weatherinsight/internal/metrics"
)

// DefaultBaseURL is the WeatherAPI v1 endpoint.
const DefaultBaseURL = "https://api.weatherapi.com/v1"

const maxForecastBody = 4 << 20

// StatusError is returned when WeatherAPI answers with a non-200 status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("weatherapi returned status code %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("weatherapi returned status code %d", e.StatusCode)
}

// Fetcher returns raw forecast payloads.
type Fetcher interface {
	FetchForecast(ctx context.Context, city string, days int) ([]byte, error)
}

// Client calls the WeatherAPI forecast endpoint.
type Client struct {
	http    *httputil.Client
	apiKey  string
	limiter *rate.Limiter
}

// ClientConfig configures the WeatherAPI client.
type ClientConfig struct {
	APIKey            string
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64 // outbound limit; 0 disables limiting
	HTTPClient        *http.Client
}

// NewClient creates a WeatherAPI client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Client{
		http: httputil.NewClient(httputil.ClientConfig{
			BaseURL:    baseURL,
			Timeout:    cfg.Timeout,
			HTTPClient: cfg.HTTPClient,
			UserAgent:  "weatherinsight",
		}),
		apiKey:  cfg.APIKey,
		limiter: limiter,
	}
}

// FetchForecast returns the forecast.json payload for city covering days days.
func (c *Client) FetchForecast(ctx context.Context, city string, days int) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("weatherapi rate limit wait: %w", err)
		}
	}

	query := url.Values{}
	query.Set("key", c.apiKey)
	query.Set("q", city)
	query.Set("days", strconv.Itoa(days))
	query.Set("aqi", "no")
	query.Set("alerts", "no")

	resp, err := c.http.Get(ctx, "/forecast.json", query)
	if err != nil {
		metrics.RecordWeatherCall(0)
		return nil, fmt.Errorf("weatherapi request: %w", err)
	}
	defer resp.Body.Close()
	metrics.RecordWeatherCall(resp.StatusCode)

	body, err := httputil.ReadAllStrict(resp.Body, maxForecastBody)
	if err != nil {
		return nil, fmt.Errorf("read weatherapi response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(gjson.GetBytes(body, "error.message").String()),
		}
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("weatherapi returned invalid JSON")
	}
	return body, nil
}
