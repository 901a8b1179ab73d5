package weather

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/R3E-Network/weatherinsight/internal/logging"
)

// MaxForecastDays is the furthest WeatherAPI forecasts ahead.
const MaxForecastDays = 14

var (
	// ErrDateOutOfRange is returned for dates in the past or beyond MaxForecastDays.
	ErrDateOutOfRange = errors.New("forecast date out of range")
	// ErrDayNotFound is returned when the payload lacks the requested day.
	ErrDayNotFound = errors.New("forecast day not found")
)

// Options tune the hourly window around the requested hour.
type Options struct {
	HoursBefore int
	HoursAfter  int
}

// DefaultOptions returns the standard window of two hours before and three after.
func DefaultOptions() Options {
	return Options{HoursBefore: 2, HoursAfter: 3}
}

// Resolved is a Query with every fallback applied.
type Resolved struct {
	City         string
	Date         string
	Hour         int
	ForecastDays int
}

// Service resolves queries and fetches the matching forecast.
type Service struct {
	fetcher Fetcher
	locator CityLocator
	now     func() time.Time
	logger  *logging.Logger
}

// ServiceConfig configures a Service.
type ServiceConfig struct {
	Fetcher Fetcher
	Locator CityLocator
	Now     func() time.Time // optional
	Logger  *logging.Logger  // optional
}

// NewService creates a forecast Service.
func NewService(cfg ServiceConfig) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	locator := cfg.Locator
	if locator == nil {
		locator = StaticLocator("Berlin")
	}
	return &Service{fetcher: cfg.Fetcher, locator: locator, now: now, logger: logger}
}

// Resolve fills in the date, city and hour a query left open.
func (s *Service) Resolve(ctx context.Context, q Query) (Resolved, error) {
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	target := today
	if q.ForecastDate != "" {
		parsed, err := time.ParseInLocation(DateLayout, q.ForecastDate, now.Location())
		if err != nil {
			return Resolved{}, fmt.Errorf("parse forecast date %q: %w", q.ForecastDate, err)
		}
		target = parsed
	}

	days := ForecastDaysFor(today, target)
	if days < 1 || days > MaxForecastDays {
		return Resolved{}, fmt.Errorf("%w: %s", ErrDateOutOfRange, target.Format(DateLayout))
	}

	city := strings.TrimSpace(q.City)
	if city == "" {
		city = s.locator.City(ctx)
	}

	hour := (now.Hour() + 2) % 24
	if q.HasHour() {
		hour = *q.Hour
	}

	return Resolved{
		City:         city,
		Date:         target.Format(DateLayout),
		Hour:         hour,
		ForecastDays: days,
	}, nil
}

// Forecast returns the forecast for the resolved day with hourly entries
// around the resolved hour.
func (s *Service) Forecast(ctx context.Context, q Query, opts Options) (*Report, Resolved, error) {
	r, err := s.Resolve(ctx, q)
	if err != nil {
		return nil, Resolved{}, err
	}

	body, err := s.fetcher.FetchForecast(ctx, r.City, r.ForecastDays)
	if err != nil {
		return nil, r, err
	}

	day, entries, ok := findDay(body, r.Date)
	if !ok {
		return nil, r, fmt.Errorf("%w: %s in %s", ErrDayNotFound, r.Date, r.City)
	}

	start, end := Window(r.Hour, opts)
	day.Hours = hoursInWindow(entries, start, end)

	s.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"city":  r.City,
		"date":  r.Date,
		"hour":  r.Hour,
		"hours": len(day.Hours),
	}).Debug("forecast resolved")

	return &Report{City: r.City, Location: locationName(body), ForecastDay: day}, r, nil
}

// Window returns the inclusive hour range around hour, clamped to 0..23.
func Window(hour int, opts Options) (int, int) {
	start := hour - opts.HoursBefore
	if start < 0 {
		start = 0
	}
	end := hour + opts.HoursAfter
	if end > 23 {
		end = 23
	}
	return start, end
}

func normalizeCity(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}
