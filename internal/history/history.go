// Package history records answered questions.
package history

import (
	"context"
	"time"
)

const (
	// DefaultLimit is the page size when none is requested.
	DefaultLimit = 20
	// MaxLimit caps a single List call.
	MaxLimit = 100
)

// Entry is one answered question.
type Entry struct {
	ID           string    `json:"id" db:"id"`
	Question     string    `json:"question" db:"question"`
	Answer       string    `json:"answer" db:"answer"`
	Language     string    `json:"language" db:"language"`
	City         string    `json:"city,omitempty" db:"city"`
	ForecastDate string    `json:"forecast_date,omitempty" db:"forecast_date"`
	Outcome      string    `json:"outcome" db:"outcome"`
	Success      bool      `json:"success" db:"success"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Store persists entries.
type Store interface {
	// Record stores e, assigning ID and CreatedAt when unset.
	Record(ctx context.Context, e Entry) (Entry, error)
	// List returns up to limit entries, newest first.
	List(ctx context.Context, limit int) ([]Entry, error)
}

// ClampLimit maps a requested page size onto 1..MaxLimit.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
