// Package worker provides background dataset reloading for the air quality API.
package worker

import (
	"os"
	"time"
)

// Job types carried in Pub/Sub messages.
const (
	JobTypeDatasetReload = "dataset_reload"
	JobTypeHealthCheck   = "health_check"
)

// ReloadConfig holds configuration for the dataset reload job.
type ReloadConfig struct {
	// Interval between scheduled reloads. Zero disables the schedule;
	// reloads then only happen on Pub/Sub request.
	// Default: 24 hours
	Interval time.Duration

	// Timeout bounds a single reload, download and parse included.
	// Default: 5 minutes
	Timeout time.Duration
}

// DefaultReloadConfig returns the default reload configuration.
func DefaultReloadConfig() ReloadConfig {
	return ReloadConfig{
		Interval: 24 * time.Hour,
		Timeout:  5 * time.Minute,
	}
}

// ReloadConfigFromEnv reads DATA_RELOAD_INTERVAL and DATA_RELOAD_TIMEOUT,
// keeping defaults for unset or malformed values. "0" disables the schedule.
func ReloadConfigFromEnv() ReloadConfig {
	cfg := DefaultReloadConfig()
	if v, ok := durationEnv("DATA_RELOAD_INTERVAL"); ok {
		cfg.Interval = v
	}
	if v, ok := durationEnv("DATA_RELOAD_TIMEOUT"); ok && v > 0 {
		cfg.Timeout = v
	}
	return cfg
}

func durationEnv(key string) (time.Duration, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return 0, false
	}
	if raw == "0" {
		return 0, true
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, false
	}
	return d, true
}
