package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Reloader replaces the served dataset. *airquality.Service implements it.
type Reloader interface {
	Reload(ctx context.Context) error
}

// ReloadJob reloads the dataset on a schedule and on request.
type ReloadJob struct {
	config   ReloadConfig
	logger   zerolog.Logger
	reloader Reloader

	runMu sync.Mutex

	metrics *ReloadMetrics
}

// ReloadMetrics tracks reload job statistics.
type ReloadMetrics struct {
	mu sync.RWMutex

	// Counters
	TotalReloads      int64
	SuccessfulReloads int64
	FailedReloads     int64

	// Timings
	LastReloadAt       time.Time
	LastSuccessAt      time.Time
	LastReloadDuration time.Duration
	TotalDuration      time.Duration

	LastError string
}

// ReloadJobConfig holds configuration for creating a ReloadJob.
type ReloadJobConfig struct {
	Config   ReloadConfig
	Logger   zerolog.Logger
	Reloader Reloader
}

// NewReloadJob creates a new reload job.
func NewReloadJob(cfg ReloadJobConfig) *ReloadJob {
	config := cfg.Config
	if config.Timeout <= 0 {
		config.Timeout = DefaultReloadConfig().Timeout
	}

	return &ReloadJob{
		config:   config,
		logger:   cfg.Logger,
		reloader: cfg.Reloader,
		metrics:  &ReloadMetrics{},
	}
}

// ReloadResult contains the result of one reload.
type ReloadResult struct {
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Err       error
}

// Run reloads the dataset once. Runs are serialized.
func (j *ReloadJob) Run(ctx context.Context) *ReloadResult {
	j.runMu.Lock()
	defer j.runMu.Unlock()

	result := &ReloadResult{StartTime: time.Now()}

	if j.reloader == nil {
		result.Err = errors.New("no reloader configured")
	} else {
		runCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
		result.Err = j.reloader.Reload(runCtx)
		cancel()
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	j.updateMetrics(result)

	if result.Err != nil {
		j.logger.Error().
			Err(result.Err).
			Dur("duration", result.Duration).
			Msg("dataset reload job failed")
	} else {
		j.logger.Info().
			Dur("duration", result.Duration).
			Msg("dataset reload job completed")
	}

	return result
}

// Start runs the job every Interval until ctx is done. It returns
// immediately when the interval is zero.
func (j *ReloadJob) Start(ctx context.Context) {
	if j.config.Interval <= 0 {
		j.logger.Info().Msg("scheduled dataset reload disabled")
		return
	}

	j.logger.Info().
		Dur("interval", j.config.Interval).
		Msg("starting scheduled dataset reload")

	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.logger.Info().Msg("scheduled dataset reload stopped")
			return
		case <-ticker.C:
			j.Run(ctx)
		}
	}
}

// Healthy reports an error when no reload has ever succeeded and the most
// recent one failed.
func (j *ReloadJob) Healthy() error {
	m := j.GetMetrics()
	if m.LastSuccessAt.IsZero() && m.LastError != "" {
		return errors.New("dataset never reloaded successfully: " + m.LastError)
	}
	return nil
}

func (j *ReloadJob) updateMetrics(result *ReloadResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalReloads++
	j.metrics.LastReloadAt = result.EndTime
	j.metrics.LastReloadDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
	if result.Err != nil {
		j.metrics.FailedReloads++
		j.metrics.LastError = result.Err.Error()
		return
	}
	j.metrics.SuccessfulReloads++
	j.metrics.LastSuccessAt = result.EndTime
	j.metrics.LastError = ""
}

// GetMetrics returns a copy of the current metrics.
func (j *ReloadJob) GetMetrics() ReloadMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return ReloadMetrics{
		TotalReloads:       j.metrics.TotalReloads,
		SuccessfulReloads:  j.metrics.SuccessfulReloads,
		FailedReloads:      j.metrics.FailedReloads,
		LastReloadAt:       j.metrics.LastReloadAt,
		LastSuccessAt:      j.metrics.LastSuccessAt,
		LastReloadDuration: j.metrics.LastReloadDuration,
		TotalDuration:      j.metrics.TotalDuration,
		LastError:          j.metrics.LastError,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *ReloadJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_reloads":        m.TotalReloads,
		"successful_reloads":   m.SuccessfulReloads,
		"failed_reloads":       m.FailedReloads,
		"last_reload_at":       m.LastReloadAt,
		"last_success_at":      m.LastSuccessAt,
		"last_reload_duration": m.LastReloadDuration.String(),
		"total_duration":       m.TotalDuration.String(),
		"last_error":           m.LastError,
	}
}
