// Package extract turns a natural-language weather question into a
// structured weather.Query using an LLM.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/R3E-Network/weatherinsight/internal/llm"
	"github.com/R3E-Network/weatherinsight/internal/logging"
	"github.com/R3E-Network/weatherinsight/internal/weather"
)

// ErrInvalidJSON is returned when the model output holds a malformed JSON object.
var ErrInvalidJSON = errors.New("malformed JSON object in model output")

const promptTemplate = `You extract structured data from natural language weather questions.
From the text below, determine:

1. The city the user asks about, written so it can be sent as the "q" parameter of api.weatherapi.com.
2. The date the user means. Resolve relative expressions such as "today", "tomorrow",
   "the day after tomorrow" or "in 3 days" to an absolute date. Today is %s.
3. The hour of day (0-23) if the user names one, otherwise null.

Answer with a single JSON object with exactly these keys:
{
    "city": "<city for weatherapi>",
    "forecast_date": "<YYYY-MM-DD>",
    "hour": <0-23 or null>
}

Text: %q
`

// Extractor extracts weather queries with an LLM.
type Extractor struct {
	gen         llm.Generator
	defaultCity string
	now         func() time.Time
	logger      *logging.Logger
}

// Config configures the Extractor.
type Config struct {
	Generator   llm.Generator
	DefaultCity string
	Now         func() time.Time // optional
	Logger      *logging.Logger  // optional
}

// New creates an Extractor.
func New(cfg Config) *Extractor {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	city := cfg.DefaultCity
	if city == "" {
		city = "Berlin"
	}
	return &Extractor{gen: cfg.Generator, defaultCity: city, now: now, logger: logger}
}

// Prompt builds the extraction prompt for question.
func Prompt(question string, today time.Time) string {
	return fmt.Sprintf(promptTemplate, today.Format(weather.DateLayout), question)
}

// Extract asks the model for the city, date and hour of question. When the
// model fails, the default query (default city, one day, no hour) is returned
// together with the error so callers can continue.
func (e *Extractor) Extract(ctx context.Context, question string) (weather.Query, error) {
	today := e.now()
	fallback := weather.Query{City: e.defaultCity, ForecastDays: 1}

	text, err := e.gen.Generate(ctx, Prompt(question, today))
	if err != nil {
		return fallback, fmt.Errorf("extract query: %w", err)
	}

	q, err := Parse(text, e.defaultCity, today)
	if err != nil {
		return fallback, fmt.Errorf("parse extraction: %w", err)
	}

	e.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"city":          q.City,
		"forecast_date": q.ForecastDate,
		"hour":          hourField(q.Hour),
		"forecast_days": q.ForecastDays,
	}).Debug("query extracted")
	return q, nil
}

// Parse reads the JSON object embedded in model output.
//
// A missing "city" key yields defaultCity; an explicit null yields an empty
// city, left for location lookup. Text without any JSON object yields an
// empty query. Unparseable dates and out-of-range hours are dropped.
func Parse(text, defaultCity string, today time.Time) (weather.Query, error) {
	q := weather.Query{ForecastDays: 1}

	raw, ok := jsonObject(text)
	if !ok {
		return q, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return q, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	if cityRaw, present := fields["city"]; !present {
		q.City = defaultCity
	} else {
		q.City = strings.TrimSpace(stringValue(cityRaw))
	}

	q.Hour = parseHour(fields["hour"])

	if date := strings.TrimSpace(stringValue(fields["forecast_date"])); date != "" {
		if target, err := time.ParseInLocation(weather.DateLayout, date, today.Location()); err == nil {
			q.ForecastDate = target.Format(weather.DateLayout)
			q.ForecastDays = weather.ForecastDaysFor(today, target)
		}
	}

	return q, nil
}

// jsonObject returns the span from the first '{' to the last '}'.
func jsonObject(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

func stringValue(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func parseHour(raw json.RawMessage) *int {
	if len(raw) == 0 {
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		// Models sometimes quote numbers
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil
		}
		n = json.Number(strings.TrimSpace(s))
	}

	f, err := strconv.ParseFloat(n.String(), 64)
	if err != nil {
		return nil
	}
	h := int(f)
	if float64(h) != f || h < 0 || h > 23 {
		return nil
	}
	return &h
}

func hourField(h *int) interface{} {
	if h == nil {
		return nil
	}
	return *h
}
