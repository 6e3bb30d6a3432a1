package shared

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"log/slog"
	"time"
)

// ContextKey is the key type for context values set by the API layer.
type ContextKey string

// Context keys for various values
const (
	// UserIDContextKey is the context key for the authenticated user ID.
	UserIDContextKey ContextKey = "userID"

	// TraceIDKey is the key for the trace ID in the request context.
	TraceIDKey ContextKey = "traceID"

	// TraceIDLength is the number of bytes used to generate the trace ID.
	TraceIDLength = 16 // 32 hex characters
)

// SetTraceID adds a fresh trace ID to the context for correlating logs and
// error responses.
func SetTraceID(ctx context.Context) context.Context {
	return context.WithValue(ctx, TraceIDKey, generateTraceID())
}

// GetTraceID retrieves the trace ID from the context, or "" if none is set.
func GetTraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok {
		return ""
	}
	return traceID
}

// generateTraceID creates a random 32-character hex trace ID. If crypto/rand
// fails it falls back to a time-derived value rather than a static one.
func generateTraceID() string {
	b := make([]byte, TraceIDLength)
	n, err := rand.Read(b)
	if err != nil || n != TraceIDLength {
		slog.Error("failed to generate secure random trace ID",
			"error", err,
			"bytes_read", n)
		return generateFallbackTraceID()
	}
	return hex.EncodeToString(b)
}

func generateFallbackTraceID() string {
	fallbackID := make([]byte, TraceIDLength)
	binary.BigEndian.PutUint64(fallbackID[:8], uint64(time.Now().UnixNano()))
	binary.BigEndian.PutUint32(fallbackID[8:12], uint32(time.Now().Nanosecond()))
	binary.BigEndian.PutUint32(fallbackID[12:16], uint32(time.Now().Unix()))
	return hex.EncodeToString(fallbackID)
}
