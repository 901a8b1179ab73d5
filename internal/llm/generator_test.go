package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumented_TrimsOutput(t *testing.T) {
	g := Instrumented{Stage: "answer", Next: GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		return "  Sunny and mild.\n", nil
	})}

	text, err := g.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "Sunny and mild.", text)
}

func TestInstrumented_EmptyResponse(t *testing.T) {
	g := Instrumented{Stage: "answer", Next: GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		return " \n ", nil
	})}

	_, err := g.Generate(context.Background(), "prompt")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestInstrumented_PropagatesError(t *testing.T) {
	boom := errors.New("quota exceeded")
	g := Instrumented{Stage: "extract", Next: GeneratorFunc(func(ctx context.Context, prompt string) (string, error) {
		return "", boom
	})}

	_, err := g.Generate(context.Background(), "prompt")
	assert.ErrorIs(t, err, boom)
}

func TestNewGemini_RequiresKey(t *testing.T) {
	_, err := NewGemini(context.Background(), GeminiConfig{})
	assert.Error(t, err)
}
