package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 11, 22, 9, 30, 0, 0, time.UTC)

// forecastPayload builds a WeatherAPI-shaped response starting at fixedNow.
func forecastPayload(t *testing.T, days int) []byte {
	t.Helper()

	forecastDays := make([]map[string]interface{}, 0, days)
	for d := 0; d < days; d++ {
		date := fixedNow.AddDate(0, 0, d).Format(DateLayout)
		hours := make([]map[string]interface{}, 0, 24)
		for h := 0; h < 24; h++ {
			hours = append(hours, map[string]interface{}{
				"time":      fmt.Sprintf("%s %02d:00", date, h),
				"temp_c":    float64(h) / 2,
				"condition": map[string]interface{}{"text": "Cloudy"},
			})
		}
		forecastDays = append(forecastDays, map[string]interface{}{
			"date": date,
			"day": map[string]interface{}{
				"maxtemp_c": 8.5 + float64(d),
				"mintemp_c": 1.0,
				"condition": map[string]interface{}{"text": "Light rain"},
			},
			"hour": hours,
		})
	}

	body, err := json.Marshal(map[string]interface{}{
		"location": map[string]interface{}{"name": "Cologne", "region": "Nordrhein-Westfalen", "country": "Germany"},
		"forecast": map[string]interface{}{"forecastday": forecastDays},
	})
	require.NoError(t, err)
	return body
}

func newForecastServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		if r.URL.Path != "/forecast.json" {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		if q.Get("key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"code":2006,"message":"API key is invalid."}}`))
			return
		}
		assert.Equal(t, "no", q.Get("aqi"))
		assert.Equal(t, "no", q.Get("alerts"))
		var days int
		_, _ = fmt.Sscanf(q.Get("days"), "%d", &days)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(forecastPayload(t, days))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func intPtr(v int) *int { return &v }

// =============================================================================
// Client
// =============================================================================

func TestClient_FetchForecast(t *testing.T) {
	var calls int32
	srv := newForecastServer(t, &calls)

	c := NewClient(ClientConfig{APIKey: "test-key", BaseURL: srv.URL})
	body, err := c.FetchForecast(context.Background(), "Cologne", 3)
	require.NoError(t, err)

	day, hours, ok := findDay(body, "2025-11-24")
	require.True(t, ok)
	assert.Equal(t, 10.5, day.MaxTempC)
	assert.Equal(t, "Light rain", day.Condition)
	assert.Len(t, hours, 24)
}

func TestClient_StatusError(t *testing.T) {
	var calls int32
	srv := newForecastServer(t, &calls)

	c := NewClient(ClientConfig{APIKey: "wrong", BaseURL: srv.URL})
	_, err := c.FetchForecast(context.Background(), "Cologne", 1)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Equal(t, "API key is invalid.", statusErr.Message)
}

// =============================================================================
// Service
// =============================================================================

func newTestService(t *testing.T, locator CityLocator) (*Service, *int32) {
	t.Helper()
	var calls int32
	srv := newForecastServer(t, &calls)
	svc := NewService(ServiceConfig{
		Fetcher: NewClient(ClientConfig{APIKey: "test-key", BaseURL: srv.URL}),
		Locator: locator,
		Now:     func() time.Time { return fixedNow },
	})
	return svc, &calls
}

func TestService_ForecastWithHourWindow(t *testing.T) {
	svc, _ := newTestService(t, StaticLocator("Berlin"))

	report, resolved, err := svc.Forecast(context.Background(), Query{
		City:         "Cologne",
		ForecastDate: "2025-11-23",
		Hour:         intPtr(22),
	}, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 2, resolved.ForecastDays)
	assert.Equal(t, "Cologne", report.City)
	assert.Equal(t, "Cologne, Nordrhein-Westfalen, Germany", report.Location)
	assert.Equal(t, "2025-11-23", report.ForecastDay.Date)
	assert.Equal(t, 9.5, report.ForecastDay.MaxTempC)

	// 20..23: the window is clamped at midnight
	require.Len(t, report.ForecastDay.Hours, 4)
	assert.Equal(t, "2025-11-23 20:00", report.ForecastDay.Hours[0].Time)
	assert.Equal(t, "2025-11-23 23:00", report.ForecastDay.Hours[3].Time)
	assert.Equal(t, 11.5, report.ForecastDay.Hours[3].TempC)
}

func TestService_Fallbacks(t *testing.T) {
	svc, _ := newTestService(t, StaticLocator("Munich"))

	report, resolved, err := svc.Forecast(context.Background(), Query{}, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, "Munich", resolved.City)
	assert.Equal(t, "2025-11-22", resolved.Date)
	assert.Equal(t, 11, resolved.Hour)
	assert.Equal(t, 1, resolved.ForecastDays)
	// 9..14
	assert.Len(t, report.ForecastDay.Hours, 6)
}

func TestService_ResolveDefaultHourWraps(t *testing.T) {
	tests := []struct {
		clock string
		want  int
	}{
		{"09:30", 11},
		{"21:59", 23},
		{"22:00", 0},
		{"23:15", 1},
	}
	for _, tt := range tests {
		t.Run(tt.clock, func(t *testing.T) {
			now, err := time.Parse("2006-01-02 15:04", "2025-11-22 "+tt.clock)
			require.NoError(t, err)
			svc := NewService(ServiceConfig{
				Fetcher: fetcherFunc(func(ctx context.Context, city string, days int) ([]byte, error) {
					return nil, errors.New("not called")
				}),
				Now: func() time.Time { return now },
			})

			resolved, err := svc.Resolve(context.Background(), Query{City: "Berlin"})
			require.NoError(t, err)
			assert.Equal(t, tt.want, resolved.Hour)
			assert.Equal(t, "2025-11-22", resolved.Date)
		})
	}

	svc := NewService(ServiceConfig{Now: func() time.Time { return fixedNow }})
	resolved, err := svc.Resolve(context.Background(), Query{City: "Berlin", Hour: intPtr(0)})
	require.NoError(t, err)
	assert.Equal(t, 0, resolved.Hour)
}

func TestService_DateOutOfRange(t *testing.T) {
	svc, calls := newTestService(t, StaticLocator("Berlin"))

	for _, date := range []string{"2025-11-21", "2025-12-06"} {
		_, _, err := svc.Forecast(context.Background(), Query{City: "Berlin", ForecastDate: date}, DefaultOptions())
		assert.ErrorIs(t, err, ErrDateOutOfRange, date)
	}
	assert.Zero(t, atomic.LoadInt32(calls))

	_, _, err := svc.Forecast(context.Background(), Query{City: "Berlin", ForecastDate: "2025-12-05"}, DefaultOptions())
	assert.NoError(t, err)
}

func TestService_DayNotFound(t *testing.T) {
	fetcher := fetcherFunc(func(ctx context.Context, city string, days int) ([]byte, error) {
		return []byte(`{"forecast":{"forecastday":[]}}`), nil
	})
	svc := NewService(ServiceConfig{Fetcher: fetcher, Now: func() time.Time { return fixedNow }})

	_, _, err := svc.Forecast(context.Background(), Query{City: "Berlin"}, DefaultOptions())
	assert.ErrorIs(t, err, ErrDayNotFound)
}

func TestWindow(t *testing.T) {
	tests := []struct {
		hour       int
		start, end int
	}{
		{hour: 0, start: 0, end: 3},
		{hour: 1, start: 0, end: 4},
		{hour: 12, start: 10, end: 15},
		{hour: 22, start: 20, end: 23},
	}
	for _, tt := range tests {
		start, end := Window(tt.hour, DefaultOptions())
		if start != tt.start || end != tt.end {
			t.Errorf("Window(%d) = %d..%d, want %d..%d", tt.hour, start, end, tt.start, tt.end)
		}
	}
}

// =============================================================================
// Locator
// =============================================================================

func TestIPLocator(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"ip":"203.0.113.7","city":"Leipzig","country":"DE"}`))
	}))
	defer srv.Close()

	l := NewIPLocator(LocatorConfig{URL: srv.URL, TTL: time.Hour})
	assert.Equal(t, "Leipzig", l.City(context.Background()))
	assert.Equal(t, "Leipzig", l.City(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestIPLocator_FallbackOnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	l := NewIPLocator(LocatorConfig{URL: srv.URL, Fallback: "Dresden"})
	assert.Equal(t, "Dresden", l.City(context.Background()))

	srv2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ip":"10.0.0.1","bogon":true}`))
	}))
	defer srv2.Close()

	l = NewIPLocator(LocatorConfig{URL: srv2.URL})
	assert.Equal(t, "Berlin", l.City(context.Background()))
}

// =============================================================================
// Cache
// =============================================================================

type fetcherFunc func(ctx context.Context, city string, days int) ([]byte, error)

func (f fetcherFunc) FetchForecast(ctx context.Context, city string, days int) ([]byte, error) {
	return f(ctx, city, days)
}

func TestMemoryCache_ExpiryAndPurge(t *testing.T) {
	now := fixedNow
	c := NewMemoryCache()
	c.now = func() time.Time { return now }

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), time.Hour))
	require.NoError(t, c.Set(ctx, "c", []byte("3"), 0))

	v, ok, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("1"), v)

	now = now.Add(2 * time.Minute)
	_, ok, _ = c.Get(ctx, "a")
	assert.False(t, ok)

	assert.Equal(t, 1, c.Purge())
	assert.Equal(t, 1, c.Len())
}

func TestCachedFetcher(t *testing.T) {
	var calls int
	next := fetcherFunc(func(ctx context.Context, city string, days int) ([]byte, error) {
		calls++
		if city == "Nowhere" {
			return nil, errors.New("no matching location")
		}
		return []byte(`{"city":"` + city + `"}`), nil
	})

	f := &CachedFetcher{Next: next, Cache: NewMemoryCache(), TTL: time.Minute, Now: func() time.Time { return fixedNow }}
	ctx := context.Background()

	_, err := f.FetchForecast(ctx, "Cologne", 2)
	require.NoError(t, err)
	_, err = f.FetchForecast(ctx, " cologne ", 2)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	_, err = f.FetchForecast(ctx, "Cologne", 3)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	_, err = f.FetchForecast(ctx, "Nowhere", 1)
	require.Error(t, err)
	_, err = f.FetchForecast(ctx, "Nowhere", 1)
	require.Error(t, err)
	assert.Equal(t, 4, calls)
}

func TestRedisCache_InvalidURL(t *testing.T) {
	_, err := NewRedisCache("not-a-redis-url")
	assert.Error(t, err)
}
