// Package handler implements the HTTP layer: request decoding, response
// encoding and the mapping from service errors to status codes.
package handler

import (
	"encoding/json"
	"net/http"
)

// JSON writes data as a JSON response with the given status. A nil data value
// writes headers only.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			http.Error(w, "failed to encode response", http.StatusInternalServerError)
		}
	}
}

// ErrorResponse is the uniform error body. Error is a short machine-readable
// label; Message carries operator-facing detail such as remediation hints.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func Error(w http.ResponseWriter, status int, err string, message string) {
	JSON(w, status, ErrorResponse{
		Error:   err,
		Message: message,
	})
}
