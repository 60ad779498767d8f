// Package httputil centralizes JSON encoding and domain-error translation
// for HTTP handlers so every endpoint returns the same error envelope.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	dErrors "talentgate/pkg/domain-errors"
)

// errorResponse is the JSON envelope for all error responses.
type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// statusForCode maps domain error codes to HTTP statuses.
func statusForCode(code dErrors.Code) int {
	switch code {
	case dErrors.CodeIllegalTransition, dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeDeadlineExpired, dErrors.CodeFeedbackRejected:
		return http.StatusConflict
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeInvalidInput, dErrors.CodeBadRequest:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeForbidden:
		return http.StatusForbidden
	case dErrors.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into the standard error envelope.
// Internal and unavailable errors omit the description so storage details
// never leak to clients; business rejections keep their actionable message.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	resp := errorResponse{Error: string(code)}

	switch code {
	case dErrors.CodeInternal, dErrors.CodeUnavailable:
		// generic retry-later surface for infrastructure failures
	default:
		var de *dErrors.Error
		if errors.As(err, &de) {
			resp.ErrorDescription = de.Message
		}
	}

	WriteJSON(w, statusForCode(code), resp)
}

// DecodeAndPrepare decodes the request body into T and validates it when T
// implements Validator. On failure it writes the error response and returns
// ok=false so handlers can bail with a single branch.
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (T, bool) {
	var req T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if logger != nil {
			logger.WarnContext(ctx, "failed to decode request body",
				"request_id", requestID,
				"error", err,
			)
		}
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed request body"))
		return req, false
	}

	if v, ok := any(&req).(Validator); ok {
		if err := v.Validate(); err != nil {
			WriteError(w, err)
			return req, false
		}
	}

	return req, true
}

// Validator is implemented by request types that carry their own validation.
type Validator interface {
	Validate() error
}
