// Package answer runs the question pipeline: language detection, query
// extraction, forecast retrieval and answer phrasing.
package answer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/R3E-Network/weatherinsight/internal/language"
	"github.com/R3E-Network/weatherinsight/internal/llm"
	"github.com/R3E-Network/weatherinsight/internal/logging"
	"github.com/R3E-Network/weatherinsight/internal/metrics"
	"github.com/R3E-Network/weatherinsight/internal/weather"
)

// User-facing texts for the degraded paths.
const (
	WeatherUnavailableText = "Sorry, the weather data could not be retrieved."
	EmptyAnswerText        = "Sorry, we could not generate a weather answer at this time."
	generationErrorPrefix  = "Error generating the answer: "
)

// Outcome labels, also used as the answers_total metric label.
const (
	OutcomeAnswered           = "answered"
	OutcomeWeatherUnavailable = "weather_unavailable"
	OutcomeGenerationFailed   = "generation_failed"
	OutcomeEmpty              = "empty"
)

const promptTemplate = `You are a friendly AI assistant. Using the following weather data,
create a short, clear and user-friendly text for the user.

Weather data: %s

Guidelines:
- Respond in the language of the user's question (detected language: %s).
- Summarize the most important information: current weather, temperature and forecast.
- Focus the description on the time window from %d hours before to %d hours after the requested hour (%02d:00).
- Make the text friendly, readable and natural.
- Do not return JSON, code or structured data, only plain text.
`

// QueryExtractor turns a question into a weather query.
type QueryExtractor interface {
	Extract(ctx context.Context, question string) (weather.Query, error)
}

// ForecastProvider resolves a query and fetches its forecast.
type ForecastProvider interface {
	Forecast(ctx context.Context, q weather.Query, opts weather.Options) (*weather.Report, weather.Resolved, error)
}

// Result is the outcome of answering one question.
type Result struct {
	Text             string
	Language         string
	City             string
	Date             string
	Outcome          string
	WeatherAvailable bool
}

// Answerer answers weather questions.
type Answerer struct {
	extractor QueryExtractor
	forecasts ForecastProvider
	gen       llm.Generator
	opts      weather.Options
	detect    func(string) string
	logger    *logging.Logger
}

// Config configures an Answerer.
type Config struct {
	Extractor QueryExtractor
	Forecasts ForecastProvider
	Generator llm.Generator
	Options   weather.Options
	Detect    func(string) string // optional, defaults to language.Detect
	Logger    *logging.Logger     // optional
}

// New creates an Answerer.
func New(cfg Config) *Answerer {
	detect := cfg.Detect
	if detect == nil {
		detect = language.Detect
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	return &Answerer{
		extractor: cfg.Extractor,
		forecasts: cfg.Forecasts,
		gen:       cfg.Generator,
		opts:      cfg.Options,
		detect:    detect,
		logger:    logger,
	}
}

// Prompt builds the phrasing prompt for a forecast report.
func Prompt(report *weather.Report, lang string, hour int, opts weather.Options) (string, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	return fmt.Sprintf(promptTemplate, data, lang, opts.HoursBefore, opts.HoursAfter, hour), nil
}

// Answer runs the pipeline for question. Upstream failures are folded into
// the result text; the returned error is non-nil only when ctx ends.
func (a *Answerer) Answer(ctx context.Context, question string) (Result, error) {
	log := a.logger.WithContext(ctx)
	res := Result{Language: a.detect(question)}

	q, err := a.extractor.Extract(ctx, question)
	if err != nil {
		log.WithError(err).Warn("query extraction failed, using defaults")
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Result{}, ctxErr
	}

	report, resolved, err := a.forecasts.Forecast(ctx, q, a.opts)
	res.City, res.Date = resolved.City, resolved.Date
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		log.WithError(err).WithField("city", resolved.City).Warn("weather data unavailable")
		return a.finish(res, WeatherUnavailableText, OutcomeWeatherUnavailable), nil
	}
	res.City = report.City
	res.WeatherAvailable = true

	prompt, err := Prompt(report, res.Language, resolved.Hour, a.opts)
	if err != nil {
		return Result{}, err
	}

	text, err := a.gen.Generate(ctx, prompt)
	switch {
	case errors.Is(err, llm.ErrEmptyResponse):
		return a.finish(res, EmptyAnswerText, OutcomeEmpty), nil
	case err != nil:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		log.WithError(err).Warn("answer generation failed")
		return a.finish(res, generationErrorPrefix+err.Error(), OutcomeGenerationFailed), nil
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return a.finish(res, EmptyAnswerText, OutcomeEmpty), nil
	}
	return a.finish(res, text, OutcomeAnswered), nil
}

func (a *Answerer) finish(res Result, text, outcome string) Result {
	res.Text = text
	res.Outcome = outcome
	metrics.RecordAnswer(outcome)
	return res
}
