package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepforge/practice-api/internal/api/shared"
)

func TestTraceMiddlewareInjectsTraceID(t *testing.T) {
	var captured string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = shared.GetTraceID(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	TraceMiddleware(next).ServeHTTP(rr, req)

	require.NotEmpty(t, captured, "downstream handlers should see a trace ID")
	assert.Len(t, captured, shared.TraceIDLength*2, "trace ID should be hex-encoded")
}

func TestTraceMiddlewareGeneratesDistinctIDs(t *testing.T) {
	seen := make(map[string]bool)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen[shared.GetTraceID(r.Context())] = true
	})
	handler := TraceMiddleware(next)

	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	assert.Len(t, seen, 10, "each request should get its own trace ID")
}
