// Package response writes the JSON bodies shared by controllers and
// middleware. Success bodies are written as-is; failures use the
// {"error": "..."} shape the web client expects, optionally with "details".
package response

import (
	"encoding/json"
	"net/http"

	"github.com/farm2home/farm2home/pkg/logger"
)

var internalError = []byte(`{"error":"Internal Server Error"}` + "\n")

// ErrorBody is the failure shape for every endpoint.
type ErrorBody struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// JSON writes v with the given status. The body is encoded before the
// header goes out, so a value that cannot be encoded becomes a 500.
func JSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		logger.Error("response: encode failed", "status", status, "error", err)
		status, body = http.StatusInternalServerError, internalError
	} else {
		body = append(body, '\n')
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logger.Debug("response: write failed", "error", err)
	}
}

// Error sends {"error": message}.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorBody{Error: message})
}

// ErrorDetails sends {"error": message, "details": details}.
func ErrorDetails(w http.ResponseWriter, status int, message string, details any) {
	JSON(w, status, ErrorBody{Error: message, Details: details})
}

// Message sends {"message": message} plus any extra top-level fields.
func Message(w http.ResponseWriter, status int, message string, extra ...any) {
	body := map[string]any{"message": message}
	for i := 0; i+1 < len(extra); i += 2 {
		if k, ok := extra[i].(string); ok {
			body[k] = extra[i+1]
		}
	}
	JSON(w, status, body)
}

// NotFound sends a 404.
func NotFound(w http.ResponseWriter) {
	Error(w, http.StatusNotFound, "Not found")
}
