package resilience_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/whoair/internal/resilience"
)

func newRequest(t *testing.T, ctx context.Context, url string) *http.Request {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	require.NoError(t, err)
	return req
}

func fastConfig(name string) resilience.ClientConfig {
	return resilience.ClientConfig{
		Name:            name,
		Timeout:         2 * time.Second,
		MaxRetries:      3,
		InitialInterval: 5 * time.Millisecond,
		MaxInterval:     20 * time.Millisecond,
		Breaker: &resilience.BreakerConfig{
			HalfOpenProbes: 1,
			OpenFor:        time.Minute,
			MinRequests:    100,
			FailureRatio:   0.5,
		},
		Logger: zerolog.Nop(),
	}
}

func TestClient_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("xlsx"))
	}))
	defer server.Close()

	client := resilience.NewClient(fastConfig("ok"))

	resp, err := client.Do(newRequest(t, context.Background(), server.URL))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	health := client.Health()
	assert.Equal(t, "ok", health.Name)
	assert.True(t, health.Healthy())
	assert.NotNil(t, health.LastSuccessAt)
	assert.Nil(t, health.LastFailureAt)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := resilience.NewClient(fastConfig("retry"))

	resp, err := client.Do(newRequest(t, context.Background(), server.URL))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := resilience.NewClient(fastConfig("exhaust"))

	resp, err := client.Do(newRequest(t, context.Background(), server.URL))
	require.Error(t, err)
	assert.Nil(t, resp)

	var statusErr *resilience.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Equal(t, int32(4), attempts.Load(), "first attempt plus three retries")

	health := client.Health()
	assert.NotNil(t, health.LastFailureAt)
	assert.Contains(t, health.LastError, "Service Unavailable")
}

func TestClient_ClientErrorsNotRetried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := resilience.NewClient(fastConfig("4xx"))

	resp, err := client.Do(newRequest(t, context.Background(), server.URL))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, int32(1), attempts.Load())
	assert.NotNil(t, client.Health().LastFailureAt)
}

func TestClient_CircuitOpens(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := fastConfig("trip")
	cfg.Breaker.MinRequests = 3

	client := resilience.NewClient(cfg)

	_, err := client.Do(newRequest(t, context.Background(), server.URL))
	require.Error(t, err)
	assert.Equal(t, gobreaker.StateOpen, client.Health().State)
	assert.False(t, client.Health().Healthy())

	seen := attempts.Load()
	_, err = client.Do(newRequest(t, context.Background(), server.URL))
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, seen, attempts.Load(), "open circuit must not reach the upstream")
}

func TestClient_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := resilience.NewClient(fastConfig("cancel"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	resp, err := client.Do(newRequest(t, ctx, server.URL))
	if resp != nil {
		resp.Body.Close()
	}
	assert.Error(t, err)
}

func TestBreakerConfig_ShouldTrip(t *testing.T) {
	cfg := resilience.DefaultBreakerConfig()

	tests := []struct {
		name     string
		counts   gobreaker.Counts
		expected bool
	}{
		{name: "no requests", counts: gobreaker.Counts{}, expected: false},
		{name: "below minimum", counts: gobreaker.Counts{Requests: 2, TotalFailures: 2}, expected: false},
		{name: "low failure ratio", counts: gobreaker.Counts{Requests: 10, TotalFailures: 5}, expected: false},
		{name: "at ratio", counts: gobreaker.Counts{Requests: 5, TotalFailures: 3}, expected: true},
		{name: "all failing", counts: gobreaker.Counts{Requests: 3, TotalFailures: 3}, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, cfg.ShouldTrip(tt.counts))
		})
	}
}

func TestStatusError(t *testing.T) {
	err := &resilience.StatusError{StatusCode: http.StatusBadGateway}
	assert.Equal(t, "upstream returned Bad Gateway", err.Error())
}
