package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/breatheroute/whoair/internal/airquality"
	"github.com/breatheroute/whoair/internal/api/handler"
	"github.com/breatheroute/whoair/internal/api/models"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func loadedService() *airquality.Service {
	return airquality.NewServiceWithDataset(airquality.NewDataset([]airquality.Record{
		{Country: "Netherlands", City: "Utrecht", Year: 2020},
	}), zerolog.Nop())
}

func TestOpsHandler_ReadinessCheck_Database(t *testing.T) {
	tests := []struct {
		name       string
		ping       error
		wantCode   int
		wantStatus models.HealthStatus
	}{
		{"database up", nil, http.StatusOK, models.HealthStatusOK},
		{"database down", errors.New("connection refused"), http.StatusServiceUnavailable, models.HealthStatusFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handler.NewOpsHandler(handler.OpsHandlerConfig{
				Service:  loadedService(),
				Database: pingFunc(func(context.Context) error { return tt.ping }),
			})

			w := httptest.NewRecorder()
			h.ReadinessCheck(w, httptest.NewRequest(http.MethodGet, "/v1/ops/ready", http.NoBody))

			assert.Equal(t, tt.wantCode, w.Code)
			var health models.Health
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
			assert.Equal(t, tt.wantStatus, health.Status)
			assert.Equal(t, true, health.Details["dataset"])
		})
	}
}

type failingSource struct{}

func (failingSource) Name() string { return "file" }

func (failingSource) Load(context.Context) (*airquality.Dataset, error) {
	return nil, airquality.ErrSourceUnavailable
}

func TestOpsHandler_SystemStatus_LoadError(t *testing.T) {
	svc := airquality.NewService(airquality.ServiceConfig{Source: failingSource{}, Logger: zerolog.Nop()})
	require.Error(t, svc.Reload(context.Background()))

	h := handler.NewOpsHandler(handler.OpsHandlerConfig{Service: svc})
	w := httptest.NewRecorder()
	h.SystemStatus(w, httptest.NewRequest(http.MethodGet, "/v1/ops/status", http.NoBody))

	require.Equal(t, http.StatusOK, w.Code)
	var status models.SystemStatus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, models.HealthStatusFail, status.Dataset.Status)
	assert.Equal(t, "file", status.Dataset.Source)
	require.NotNil(t, status.Dataset.LastError)
	assert.Equal(t, airquality.ErrSourceUnavailable.Error(), *status.Dataset.LastError)
	assert.NotNil(t, status.Dataset.LastErrorAt)
}
