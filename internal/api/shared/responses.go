package shared

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prepforge/practice-api/internal/redact"
)

// ErrorResponse defines the standard error response structure.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"-"` // Not serialized to JSON, used for logging
	TraceID string `json:"trace_id,omitempty"`
}

// ResponseOption defines a function to customize response behavior.
type ResponseOption func(*responseOptions)

type responseOptions struct {
	elevateLogLevel bool
}

// WithElevatedLogLevel raises 4xx error logging from DEBUG to WARN. Use for
// operational issues that deserve visibility, like repeated auth failures.
func WithElevatedLogLevel() ResponseOption {
	return func(opts *responseOptions) {
		opts.elevateLogLevel = true
	}
}

// RespondWithJSON writes a JSON response with the given status code and data.
func RespondWithJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// RespondWithError writes a JSON error response with the given status code
// and message, carrying the request's trace ID when one is set.
func RespondWithError(w http.ResponseWriter, r *http.Request, status int, message string) {
	traceID := GetTraceID(r.Context())

	slog.Debug("sending error response",
		"status_code", status,
		"message", message,
		"trace_id", traceID,
		"path", r.URL.Path,
		"method", r.Method)

	RespondWithJSON(w, r, status, ErrorResponse{
		Error:   message,
		Code:    status,
		TraceID: traceID,
	})
}

// RespondWithErrorAndLog writes a sanitized JSON error response and logs the
// full (redacted) error server-side. 5xx errors log at ERROR, 429 at WARN,
// and other 4xx at DEBUG unless WithElevatedLogLevel is passed.
func RespondWithErrorAndLog(
	w http.ResponseWriter,
	r *http.Request,
	status int,
	userMessage string,
	err error,
	opts ...ResponseOption,
) {
	traceID := GetTraceID(r.Context())

	logAttrs := []slog.Attr{
		slog.String("trace_id", traceID),
		slog.String("path", r.URL.Path),
		slog.String("method", r.Method),
		slog.Int("status_code", status),
		slog.String("user_message", userMessage),
	}
	if err != nil {
		// The raw error never reaches the client; only the redacted form
		// reaches the logs.
		logAttrs = append(logAttrs,
			slog.String("error", redact.Error(err)),
			slog.String("error_type", fmt.Sprintf("%T", err)))
	}

	responseOpts := responseOptions{}
	for _, opt := range opts {
		opt(&responseOpts)
	}

	logLevel := slog.LevelDebug
	switch {
	case status >= http.StatusInternalServerError:
		logLevel = slog.LevelError
	case status == http.StatusTooManyRequests:
		logLevel = slog.LevelWarn
	case responseOpts.elevateLogLevel && status >= http.StatusBadRequest:
		logLevel = slog.LevelWarn
	}

	slog.LogAttrs(r.Context(), logLevel, "API error response", logAttrs...)

	RespondWithJSON(w, r, status, ErrorResponse{
		Error:   userMessage,
		Code:    status,
		TraceID: traceID,
	})
}
