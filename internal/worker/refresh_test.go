package worker_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/whoair/internal/worker"
)

// mockReloader counts reloads and returns the configured errors in turn.
type mockReloader struct {
	calls atomic.Int32
	errs  []error
}

func (m *mockReloader) Reload(ctx context.Context) error {
	n := int(m.calls.Add(1)) - 1
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("reload called without deadline")
	}
	if n < len(m.errs) {
		return m.errs[n]
	}
	return nil
}

func TestDefaultReloadConfig(t *testing.T) {
	cfg := worker.DefaultReloadConfig()

	assert.Equal(t, 24*time.Hour, cfg.Interval)
	assert.Equal(t, 5*time.Minute, cfg.Timeout)
}

func TestReloadConfigFromEnv(t *testing.T) {
	tests := []struct {
		name         string
		interval     string
		timeout      string
		wantInterval time.Duration
		wantTimeout  time.Duration
	}{
		{"defaults", "", "", 24 * time.Hour, 5 * time.Minute},
		{"custom", "6h", "90s", 6 * time.Hour, 90 * time.Second},
		{"disabled", "0", "", 0, 5 * time.Minute},
		{"malformed", "often", "-1s", 24 * time.Hour, 5 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATA_RELOAD_INTERVAL", tt.interval)
			t.Setenv("DATA_RELOAD_TIMEOUT", tt.timeout)

			cfg := worker.ReloadConfigFromEnv()
			assert.Equal(t, tt.wantInterval, cfg.Interval)
			assert.Equal(t, tt.wantTimeout, cfg.Timeout)
		})
	}
}

func TestReloadJob_Run(t *testing.T) {
	reloader := &mockReloader{}
	job := worker.NewReloadJob(worker.ReloadJobConfig{
		Config:   worker.ReloadConfig{Timeout: time.Second},
		Logger:   zerolog.Nop(),
		Reloader: reloader,
	})

	result := job.Run(context.Background())

	require.NoError(t, result.Err)
	assert.Equal(t, int32(1), reloader.calls.Load())
	assert.False(t, result.EndTime.Before(result.StartTime))

	metrics := job.GetMetrics()
	assert.Equal(t, int64(1), metrics.TotalReloads)
	assert.Equal(t, int64(1), metrics.SuccessfulReloads)
	assert.NotZero(t, metrics.LastSuccessAt)
	assert.Empty(t, metrics.LastError)
}

func TestReloadJob_Run_Failure(t *testing.T) {
	reloader := &mockReloader{errs: []error{errors.New("download failed")}}
	job := worker.NewReloadJob(worker.ReloadJobConfig{
		Logger:   zerolog.Nop(),
		Reloader: reloader,
	})

	result := job.Run(context.Background())
	require.Error(t, result.Err)

	metrics := job.GetMetrics()
	assert.Equal(t, int64(1), metrics.FailedReloads)
	assert.Equal(t, "download failed", metrics.LastError)
	assert.Error(t, job.Healthy())

	// A later success clears the error and restores health.
	require.NoError(t, job.Run(context.Background()).Err)
	assert.NoError(t, job.Healthy())
	assert.Empty(t, job.GetMetrics().LastError)
}

func TestReloadJob_Healthy_AfterEarlierSuccess(t *testing.T) {
	reloader := &mockReloader{errs: []error{nil, errors.New("upstream down")}}
	job := worker.NewReloadJob(worker.ReloadJobConfig{Logger: zerolog.Nop(), Reloader: reloader})

	job.Run(context.Background())
	job.Run(context.Background())

	assert.NoError(t, job.Healthy(), "a dataset is still being served")
	assert.Equal(t, int64(1), job.GetMetrics().FailedReloads)
}

func TestReloadJob_Run_NoReloader(t *testing.T) {
	job := worker.NewReloadJob(worker.ReloadJobConfig{Logger: zerolog.Nop()})

	result := job.Run(context.Background())
	assert.Error(t, result.Err)
}

func TestReloadJob_Start(t *testing.T) {
	reloader := &mockReloader{}
	job := worker.NewReloadJob(worker.ReloadJobConfig{
		Config:   worker.ReloadConfig{Interval: 10 * time.Millisecond, Timeout: time.Second},
		Logger:   zerolog.Nop(),
		Reloader: reloader,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return reloader.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestReloadJob_Start_Disabled(t *testing.T) {
	job := worker.NewReloadJob(worker.ReloadJobConfig{Logger: zerolog.Nop(), Reloader: &mockReloader{}})

	done := make(chan struct{})
	go func() {
		job.Start(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start should return immediately when the interval is zero")
	}
}

func TestReloadJob_MetricsSnapshot(t *testing.T) {
	job := worker.NewReloadJob(worker.ReloadJobConfig{Logger: zerolog.Nop(), Reloader: &mockReloader{}})
	_ = job.Run(context.Background())

	snapshot := job.MetricsSnapshot()
	assert.Equal(t, int64(1), snapshot["total_reloads"])
	assert.Equal(t, int64(1), snapshot["successful_reloads"])
	assert.Contains(t, snapshot, "last_reload_duration")
}

func TestMessageHandler_Handle(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		errs      []error
		wantAck   bool
		wantErr   bool
		wantCalls int32
	}{
		{"reload", `{"job_type":"dataset_reload","source":"worker"}`, nil, true, false, 1},
		{"reload failure is retried", `{"job_type":"dataset_reload"}`, []error{errors.New("boom")}, false, true, 1},
		{"health check", `{"job_type":"health_check"}`, nil, true, false, 0},
		{"unknown job dropped", `{"job_type":"alert_evaluation"}`, nil, true, false, 0},
		{"malformed dropped", `not json`, nil, true, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reloader := &mockReloader{errs: tt.errs}
			job := worker.NewReloadJob(worker.ReloadJobConfig{Logger: zerolog.Nop(), Reloader: reloader})
			h := worker.NewMessageHandler(job, zerolog.Nop())

			ack, err := h.Handle(context.Background(), []byte(tt.data))

			assert.Equal(t, tt.wantAck, ack)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, reloader.calls.Load())
		})
	}
}

func TestMessageHandler_HealthCheck_Unhealthy(t *testing.T) {
	reloader := &mockReloader{errs: []error{errors.New("boom")}}
	job := worker.NewReloadJob(worker.ReloadJobConfig{Logger: zerolog.Nop(), Reloader: reloader})
	job.Run(context.Background())

	ack, err := worker.NewMessageHandler(job, zerolog.Nop()).Handle(context.Background(), []byte(`{"job_type":"health_check"}`))

	assert.True(t, ack)
	assert.Error(t, err)
}
