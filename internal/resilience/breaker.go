// Package resilience guards outbound HTTP downloads with retries and a
// circuit breaker, and keeps per-upstream health for the status endpoint.
package resilience

import (
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerConfig controls when an upstream's circuit opens.
type BreakerConfig struct {
	// HalfOpenProbes is the number of requests let through while half-open.
	HalfOpenProbes uint32

	// OpenFor is how long the circuit stays open before probing again.
	OpenFor time.Duration

	// MinRequests is the number of requests observed before the circuit may trip.
	MinRequests uint32

	// FailureRatio trips the circuit once failures/requests reaches it.
	FailureRatio float64

	// OnStateChange is called on every transition. Optional.
	OnStateChange func(name string, from, to gobreaker.State)
}

// DefaultBreakerConfig suits large, infrequent downloads: a few failed
// attempts open the circuit for two minutes.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		HalfOpenProbes: 1,
		OpenFor:        2 * time.Minute,
		MinRequests:    3,
		FailureRatio:   0.6,
	}
}

// ShouldTrip reports whether counts warrant opening the circuit.
func (c BreakerConfig) ShouldTrip(counts gobreaker.Counts) bool {
	if counts.Requests == 0 || counts.Requests < c.MinRequests {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= c.FailureRatio
}

func newBreaker(name string, cfg BreakerConfig) *gobreaker.CircuitBreaker[*http.Response] {
	return gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:          name,
		MaxRequests:   cfg.HalfOpenProbes,
		Timeout:       cfg.OpenFor,
		ReadyToTrip:   cfg.ShouldTrip,
		OnStateChange: cfg.OnStateChange,
	})
}
