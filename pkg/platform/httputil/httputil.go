// Package httputil centralizes JSON response writing and domain error
// translation so every handler emits the same envelope.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "trustforge/pkg/domainerrors"
)

var statusByCode = map[dErrors.Code]int{
	dErrors.CodeInvalidInput:     http.StatusBadRequest,
	dErrors.CodeNotFound:         http.StatusNotFound,
	dErrors.CodeConflict:         http.StatusConflict,
	dErrors.CodeForbidden:        http.StatusForbidden,
	dErrors.CodeUnauthorized:     http.StatusUnauthorized,
	dErrors.CodeRateLimited:      http.StatusTooManyRequests,
	dErrors.CodeLimitExceeded:    http.StatusConflict,
	dErrors.CodeSecurityRejected: http.StatusUnprocessableEntity,
	dErrors.CodeInternal:         http.StatusInternalServerError,
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into an HTTP response. Internal
// errors omit the description so infrastructure details never leak to
// clients.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}

	body := map[string]string{"error": string(code)}
	if code != dErrors.CodeInternal {
		body["error_description"] = errorDescription(err)
	}
	WriteJSON(w, status, body)
}

// Decode parses the request body into T, returning a coded error on
// malformed input.
func Decode[T any](r *http.Request) (T, error) {
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		return v, dErrors.Wrap(err, dErrors.CodeInvalidInput, "malformed request body")
	}
	return v, nil
}

func errorDescription(err error) string {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return err.Error()
}
