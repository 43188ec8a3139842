// Package httpserver wires the chi router, middleware stack, and
// unauthenticated health/metrics endpoints for cmd/server — grounded on
// the teacher's own internal/httpserver package.
package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Respond writes data as a JSON response with status.
func Respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

// ErrorResponse is the standard JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// RespondError writes a JSON error envelope with status.
func RespondError(w http.ResponseWriter, status int, errCode, message string) {
	Respond(w, status, ErrorResponse{Error: errCode, Message: message})
}
