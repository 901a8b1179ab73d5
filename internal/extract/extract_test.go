package extract

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/weatherinsight/internal/llm"
)

var today = time.Date(2025, 11, 22, 9, 30, 0, 0, time.UTC)

func intPtr(v int) *int { return &v }

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		city    string
		date    string
		hour    *int
		days    int
		wantErr bool
	}{
		{
			name: "plain json",
			text: `{"city": "Cologne", "forecast_date": "2025-11-23", "hour": 22}`,
			city: "Cologne", date: "2025-11-23", hour: intPtr(22), days: 2,
		},
		{
			name: "fenced json with prose",
			text: "Sure!\n```json\n{\n  \"city\": \"New York\",\n  \"forecast_date\": \"2025-11-25\",\n  \"hour\": null\n}\n```",
			city: "New York", date: "2025-11-25", days: 4,
		},
		{
			name: "missing city key uses default",
			text: `{"forecast_date": "2025-11-22", "hour": 8}`,
			city: "Berlin", date: "2025-11-22", hour: intPtr(8), days: 1,
		},
		{
			name: "null city left for lookup",
			text: `{"city": null, "forecast_date": null, "hour": null}`,
			city: "", days: 1,
		},
		{
			name: "quoted hour",
			text: `{"city": "Paris", "hour": "7"}`,
			city: "Paris", hour: intPtr(7), days: 1,
		},
		{
			name: "out of range hour dropped",
			text: `{"city": "Paris", "hour": 24}`,
			city: "Paris", days: 1,
		},
		{
			name: "fractional hour dropped",
			text: `{"city": "Paris", "hour": 7.5}`,
			city: "Paris", days: 1,
		},
		{
			name: "invalid date dropped",
			text: `{"city": "Rome", "forecast_date": "tomorrow"}`,
			city: "Rome", days: 1,
		},
		{
			name: "no json at all",
			text: "I could not understand the question.",
			city: "", days: 1,
		},
		{
			name:    "broken json",
			text:    `{"city": "Rome",}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Parse(tt.text, "Berlin", today)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidJSON)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.city, q.City)
			assert.Equal(t, tt.date, q.ForecastDate)
			assert.Equal(t, tt.hour, q.Hour)
			assert.Equal(t, tt.days, q.ForecastDays)
		})
	}
}

func TestPromptContainsTodayAndQuestion(t *testing.T) {
	p := Prompt("Will it rain in Cologne tomorrow?", today)
	assert.Contains(t, p, "Today is 2025-11-22.")
	assert.Contains(t, p, `"Will it rain in Cologne tomorrow?"`)
}

func TestExtractor_Extract(t *testing.T) {
	var gotPrompt string
	gen := llm.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		gotPrompt = prompt
		return `{"city": "Cologne", "forecast_date": "2025-11-24", "hour": 18}`, nil
	})

	e := New(Config{Generator: gen, Now: func() time.Time { return today }})
	q, err := e.Extract(context.Background(), "Weather in Cologne on Monday at 6pm?")
	require.NoError(t, err)

	assert.True(t, strings.Contains(gotPrompt, "Weather in Cologne on Monday at 6pm?"))
	assert.Equal(t, "Cologne", q.City)
	assert.Equal(t, 3, q.ForecastDays)
	require.True(t, q.HasHour())
	assert.Equal(t, 18, *q.Hour)
}

func TestExtractor_FallbackOnModelError(t *testing.T) {
	gen := llm.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("quota exceeded")
	})

	e := New(Config{Generator: gen, DefaultCity: "Hamburg", Now: func() time.Time { return today }})
	q, err := e.Extract(context.Background(), "Weather?")
	require.Error(t, err)

	assert.Equal(t, "Hamburg", q.City)
	assert.Equal(t, 1, q.ForecastDays)
	assert.Empty(t, q.ForecastDate)
	assert.False(t, q.HasHour())
}

func TestExtractor_FallbackOnBrokenJSON(t *testing.T) {
	gen := llm.GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		return `{"city": }`, nil
	})

	e := New(Config{Generator: gen, Now: func() time.Time { return today }})
	q, err := e.Extract(context.Background(), "Weather?")
	require.Error(t, err)
	assert.Equal(t, "Berlin", q.City)
}
