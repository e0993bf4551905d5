// Package httpx carries the API's JSON response conventions. Every error
// body has the shape {"error": <snake_case code>, "details": ...} — codes
// like "not_found", "invalid_json", "invalid_reorder", "no_pending_placement"
// are stable identifiers clients branch on, not display text.
package httpx

import (
	"encoding/json"
	"net/http"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// JSON writes payload with the given status. The payload is marshaled before
// the header goes out so an encode failure can still become a clean 500
// instead of a truncated body.
func JSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, `{"error":"encode_error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// JSONError writes an ErrorResponse. details is optional field-level context,
// e.g. map[string]string{"title": "required"} on a validation failure.
func JSONError(w http.ResponseWriter, status int, code string, details any) {
	JSON(w, status, ErrorResponse{Error: code, Details: details})
}

// MethodNotAllowed sets the Allow header and writes the standard 405 body.
func MethodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	JSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
}
