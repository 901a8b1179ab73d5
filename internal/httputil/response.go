package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	svcerrors "github.com/R3E-Network/weatherinsight/internal/errors"
)

// MaxRequestBodyBytes bounds decoded request bodies.
const MaxRequestBodyBytes = 1 << 20

// =============================================================================
// Request/Response Helpers
// =============================================================================

// ErrorResponse is the body written for failed requests.
type ErrorResponse struct {
	Detail  string         `json:"detail"`
	Code    string         `json:"code,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteServiceError maps err to its HTTP status and error body.
func WriteServiceError(w http.ResponseWriter, err error) {
	svcErr := svcerrors.From(err)
	if svcErr == nil {
		svcErr = svcerrors.Internal(nil)
	}
	WriteJSON(w, svcErr.HTTPStatus, ErrorResponse{
		Detail:  svcErr.Message,
		Code:    svcErr.Code,
		Details: svcErr.Details,
	})
}

// DecodeJSON decodes a JSON request body into v. Unknown fields are ignored.
func DecodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return svcerrors.Validation("request body is required")
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, MaxRequestBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return svcerrors.Validation("request body is required")
		}
		return svcerrors.Validation(fmt.Sprintf("invalid JSON body: %v", err))
	}
	return nil
}
