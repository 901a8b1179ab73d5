// Package errors defines the service error type shared by the HTTP layer.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
)

// Error codes returned to API clients.
const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeNotFound     = "NOT_FOUND"
	CodeRateLimit    = "RATE_LIMIT_EXCEEDED"
	CodeUpstream     = "UPSTREAM_ERROR"
	CodeUnavailable  = "SERVICE_UNAVAILABLE"
	CodeInternal     = "INTERNAL_ERROR"
	CodeMethodDenied = "METHOD_NOT_ALLOWED"
)

// ServiceError is an error with an HTTP status and a stable code.
type ServiceError struct {
	Code       string         `json:"code"`
	Message    string         `json:"detail"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// WithDetail attaches a key/value pair returned to the client.
func (e *ServiceError) WithDetail(key string, value any) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a ServiceError.
func New(code string, status int, message string) *ServiceError {
	return &ServiceError{Code: code, HTTPStatus: status, Message: message}
}

// Wrap creates a ServiceError carrying a cause.
func Wrap(code string, status int, message string, err error) *ServiceError {
	return &ServiceError{Code: code, HTTPStatus: status, Message: message, Err: err}
}

// Validation reports a malformed request.
func Validation(message string) *ServiceError {
	return New(CodeValidation, http.StatusUnprocessableEntity, message)
}

// NotFound reports a missing resource or route.
func NotFound(message string) *ServiceError {
	return New(CodeNotFound, http.StatusNotFound, message)
}

// RateLimitExceeded reports a throttled client.
func RateLimitExceeded(limit int, window string) *ServiceError {
	return New(CodeRateLimit, http.StatusTooManyRequests, "rate limit exceeded").
		WithDetail("limit", limit).
		WithDetail("window", window)
}

// Upstream reports a failing dependency such as WeatherAPI or the LLM. An
// expired deadline maps to 504.
func Upstream(service string, err error) *ServiceError {
	status := http.StatusBadGateway
	if stderrors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
	}
	return Wrap(CodeUpstream, status, service+" request failed", err)
}

// Unavailable reports a dependency that is not configured or not reachable.
func Unavailable(message string) *ServiceError {
	return New(CodeUnavailable, http.StatusServiceUnavailable, message)
}

// Internal reports an unexpected failure. The message mirrors the cause so
// callers can diagnose it.
func Internal(err error) *ServiceError {
	msg := "Internal server error"
	if err != nil {
		msg = "Internal server error: " + err.Error()
	}
	return Wrap(CodeInternal, http.StatusInternalServerError, msg, err)
}

// As returns the ServiceError in err's chain, if any.
func As(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	if stderrors.As(err, &svcErr) {
		return svcErr, true
	}
	return nil, false
}

// From converts any error into a ServiceError, defaulting to Internal.
func From(err error) *ServiceError {
	if err == nil {
		return nil
	}
	if svcErr, ok := As(err); ok {
		return svcErr
	}
	return Internal(err)
}
