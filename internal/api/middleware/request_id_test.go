package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/breatheroute/whoair/internal/api/middleware"
)

// echoRequestID writes the context request ID to the body.
var echoRequestID = middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	_, _ = w.Write([]byte(middleware.GetRequestID(r.Context())))
}))

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"generated when absent", "", false},
		{"client id kept", "dash-7f3a9c", true},
		{"max length kept", strings.Repeat("a", 64), true},
		{"too long replaced", strings.Repeat("a", 65), false},
		{"space replaced", "abc def", false},
		{"control character replaced", "abc\x01", false},
		{"non ascii replaced", "München", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/dashboard/records", nil)
			if tt.incoming != "" {
				req.Header.Set(middleware.HeaderRequestID, tt.incoming)
			}
			w := httptest.NewRecorder()

			echoRequestID.ServeHTTP(w, req)

			id := w.Header().Get(middleware.HeaderRequestID)
			assert.Equal(t, id, w.Body.String(), "context and header carry the same id")
			if tt.keep {
				assert.Equal(t, tt.incoming, id)
			} else {
				assert.True(t, strings.HasPrefix(id, "req_"), "got %q", id)
			}
		})
	}
}

func TestRequestID_Unique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		w := httptest.NewRecorder()
		echoRequestID.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/ops/health", nil))

		id := w.Body.String()
		_, dup := seen[id]
		assert.False(t, dup, "duplicate request ID %s", id)
		seen[id] = struct{}{}
	}
}

func TestGetRequestID_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", nil)
	assert.Empty(t, middleware.GetRequestID(req.Context()))
}
