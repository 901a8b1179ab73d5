package weather

import "time"

// DateLayout is the calendar date format used by WeatherAPI.
const DateLayout = "2006-01-02"

// Query is the structured form of a weather question. Empty fields are
// resolved by Service.Forecast.
type Query struct {
	City         string
	ForecastDate string // YYYY-MM-DD, empty for today
	Hour         *int   // 0-23, nil when not mentioned
	ForecastDays int    // days WeatherAPI must return to include ForecastDate
}

// HasHour reports whether the question named an hour.
func (q Query) HasHour() bool {
	return q.Hour != nil
}

// DaysBetween returns the number of calendar days from one date to another,
// ignoring clock time.
func DaysBetween(from, to time.Time) int {
	a := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// ForecastDaysFor returns how many forecast days are needed to cover target.
func ForecastDaysFor(today, target time.Time) int {
	return DaysBetween(today, target) + 1
}
