// Package httpapi implements the REST surface from spec.md §6 on top
// of chi: JSON request/response handling, JWT/API-key authentication,
// and the tenancy-aware handlers wired to auth, agentgw, store, audit.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/breeze-rmm/breeze/internal/apperr"
)

// JSON writes v as a JSON response body with the given status code.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// errorBody is the stable JSON shape spec.md §7 gives every non-2xx
// response: {error, details?}.
type errorBody struct {
	Error   string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

// Error maps err to the HTTP status/body spec.md §7 mandates. Unknown
// (unclassified) errors are logged at error level and returned as a
// generic 500 — the caller never sees an internal error message.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	ae, ok := apperr.As(err)
	if !ok {
		slog.ErrorContext(r.Context(), "unclassified error", "error", err, "path", r.URL.Path)
		ae = apperr.Fatal("internal error", err)
	}

	status := apperr.HTTPStatus(ae.Kind)
	if ae.Kind == apperr.KindFatal || ae.Kind == apperr.KindTransientStoreFailure {
		slog.ErrorContext(r.Context(), "request failed", "kind", ae.Kind, "error", err, "path", r.URL.Path)
	}

	body := errorBody{Error: ae.Message, Details: ae.Details}
	if ae.Kind == apperr.KindFatal {
		body.Error = "internal error"
	}
	if ae.Kind == apperr.KindRateLimited && ae.RetryAfter > 0 {
		w.Header().Set("Retry-After", ae.RetryAfter.String())
	}
	JSON(w, status, body)
}

// Decode parses the request body as JSON into v, returning a
// apperr.Validation error on malformed input.
func Decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Validation("malformed request body", map[string]any{"error": err.Error()})
	}
	return nil
}
