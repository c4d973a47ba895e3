// Package handler provides HTTP handlers for the air quality API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/breatheroute/whoair/internal/airquality"
	"github.com/breatheroute/whoair/internal/api/models"
	"github.com/breatheroute/whoair/internal/api/response"
	"github.com/breatheroute/whoair/internal/resilience"
)

// Pinger checks a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// OpsHandlerConfig holds the dependencies of OpsHandler.
type OpsHandlerConfig struct {
	Version   string
	BuildTime string
	Service   *airquality.Service

	// Upstreams reports download health. Optional.
	Upstreams *resilience.Registry

	// Database is pinged by the readiness check when set.
	Database Pinger
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	service   *airquality.Service
	upstreams *resilience.Registry
	database  Pinger
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsHandlerConfig) *OpsHandler {
	return &OpsHandler{
		version:   cfg.Version,
		buildTime: cfg.BuildTime,
		service:   cfg.Service,
		upstreams: cfg.Upstreams,
		database:  cfg.Database,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	})
}

// ReadinessCheck handles GET /v1/ops/ready. Ready once a dataset is loaded
// and, when configured, the database answers.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	details := map[string]interface{}{}
	ready := true

	status := h.service.Status()
	details["dataset"] = status.Loaded
	if !status.Loaded {
		ready = false
	}

	if h.database != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.database.Ping(ctx); err != nil {
			details["database"] = err.Error()
			ready = false
		} else {
			details["database"] = true
		}
	}

	health := models.Health{
		Status:  models.HealthStatusOK,
		Time:    models.Timestamp(time.Now()),
		Details: details,
	}
	code := http.StatusOK
	if !ready {
		health.Status = models.HealthStatusFail
		code = http.StatusServiceUnavailable
	}
	response.JSON(w, r, code, health)
}

// SystemStatus handles GET /v1/ops/status - dataset and upstream status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	ds := h.service.Status()

	dataset := models.DatasetStatus{
		Status:      models.HealthStatusOK,
		Source:      ds.Source,
		Records:     ds.Records,
		LoadedAt:    models.TimestampPtr(ds.LoadedAt),
		LastErrorAt: models.TimestampPtr(ds.LastErrorAt),
	}
	if ds.LastError != "" {
		msg := ds.LastError
		dataset.LastError = &msg
		dataset.Status = models.HealthStatusDegraded
	}
	if !ds.Loaded {
		dataset.Status = models.HealthStatusFail
	}

	overall := dataset.Status
	upstreams := make([]models.UpstreamStatus, 0)
	if h.upstreams != nil {
		for _, u := range h.upstreams.Health() {
			us := upstreamStatus(u)
			if us.Status != models.HealthStatusOK && overall == models.HealthStatusOK {
				overall = models.HealthStatusDegraded
			}
			upstreams = append(upstreams, us)
		}
	}

	response.JSON(w, r, http.StatusOK, models.SystemStatus{
		Status:    overall,
		Time:      models.Timestamp(time.Now()),
		Dataset:   dataset,
		Upstreams: upstreams,
	})
}

func upstreamStatus(u resilience.Health) models.UpstreamStatus {
	us := models.UpstreamStatus{
		Name:    u.Name,
		Status:  models.HealthStatusOK,
		Circuit: u.State.String(),
	}
	if u.LastSuccessAt != nil {
		us.LastSuccessAt = models.TimestampPtr(*u.LastSuccessAt)
	}
	if u.LastFailureAt != nil {
		us.LastFailureAt = models.TimestampPtr(*u.LastFailureAt)
	}
	if u.LastError != "" {
		msg := u.LastError
		us.Message = &msg
	}

	switch u.State {
	case gobreaker.StateOpen:
		us.Status = models.HealthStatusFail
	case gobreaker.StateHalfOpen:
		us.Status = models.HealthStatusDegraded
	}
	return us
}
