// Package llm provides text generation backed by a large language model.
package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/R3E-Network/weatherinsight/internal/metrics"
)

// ErrEmptyResponse is returned when the model produced no text.
var ErrEmptyResponse = errors.New("llm returned an empty response")

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Instrumented records call metrics for a pipeline stage and trims output.
type Instrumented struct {
	Stage string
	Next  Generator
}

// Generate calls Next and records the call.
func (g Instrumented) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	text, err := g.Next.Generate(ctx, prompt)
	if err == nil {
		text = strings.TrimSpace(text)
		if text == "" {
			err = ErrEmptyResponse
		}
	}
	metrics.RecordLLMCall(g.Stage, time.Since(start), err)
	return text, err
}
