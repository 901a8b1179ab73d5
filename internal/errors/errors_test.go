package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		err    *ServiceError
		code   string
		status int
	}{
		{"validation", Validation("question is required"), CodeValidation, http.StatusUnprocessableEntity},
		{"not found", NotFound("Not Found"), CodeNotFound, http.StatusNotFound},
		{"rate limit", RateLimitExceeded(5, "1s"), CodeRateLimit, http.StatusTooManyRequests},
		{"upstream", Upstream("weatherapi", stderrors.New("boom")), CodeUpstream, http.StatusBadGateway},
		{"upstream deadline", Upstream("gemini", fmt.Errorf("generate: %w", context.DeadlineExceeded)), CodeUpstream, http.StatusGatewayTimeout},
		{"unavailable", Unavailable("history disabled"), CodeUnavailable, http.StatusServiceUnavailable},
		{"internal", Internal(stderrors.New("boom")), CodeInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestRateLimitExceededDetails(t *testing.T) {
	err := RateLimitExceeded(5, "1s")
	assert.Equal(t, 5, err.Details["limit"])
	assert.Equal(t, "1s", err.Details["window"])
}

func TestInternalMessageIncludesCause(t *testing.T) {
	err := Internal(stderrors.New("db down"))
	assert.Equal(t, "Internal server error: db down", err.Message)
	assert.Equal(t, "Internal server error", Internal(nil).Message)
}

func TestAsAndUnwrap(t *testing.T) {
	cause := stderrors.New("timeout")
	wrapped := fmt.Errorf("fetch: %w", Upstream("weatherapi", cause))

	svcErr, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeUpstream, svcErr.Code)
	assert.True(t, stderrors.Is(wrapped, cause))

	_, ok = As(cause)
	assert.False(t, ok)
}

func TestFrom(t *testing.T) {
	assert.Nil(t, From(nil))
	assert.Equal(t, CodeValidation, From(Validation("x")).Code)
	assert.Equal(t, CodeInternal, From(stderrors.New("x")).Code)
}
