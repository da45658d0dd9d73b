// Package shared centralizes the JSON response envelopes so every handler
// speaks the same shape.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	"registro/pkg/apperr"
)

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK wraps data in the {ok:true, data:...} envelope.
func OK(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, map[string]any{"ok": true, "data": data})
}

// WriteError translates a domain error into its HTTP status and envelope.
// Unknown errors become an opaque 500; internals are never leaked.
func WriteError(w http.ResponseWriter, err error) {
	var e *apperr.Error
	if !errors.As(err, &e) {
		e = apperr.New(apperr.CodeInternal, "internal error")
	}
	WriteJSON(w, apperr.ToHTTPStatus(e.Code), e)
}
