package handler

import (
	"net/http"
	"time"

	"github.com/hearth-labs/hearth/internal/api/models"
	"github.com/hearth-labs/hearth/internal/api/response"
	"github.com/hearth-labs/hearth/internal/resilience"
	"github.com/hearth-labs/hearth/internal/supervisor"
)

// OpsHandler handles the liveness, readiness and status endpoints.
type OpsHandler struct {
	version    string
	buildTime  string
	supervisor Supervisor
	monitor    Monitor
	endpoints  EndpointReporter
}

// NewOpsHandler creates an OpsHandler. endpoints may be nil.
func NewOpsHandler(version, buildTime string, sup Supervisor, mon Monitor, endpoints EndpointReporter) *OpsHandler {
	return &OpsHandler{
		version:    version,
		buildTime:  buildTime,
		supervisor: sup,
		monitor:    mon,
		endpoints:  endpoints,
	}
}

// HealthCheck handles GET /v1/ops/health. The process is live as long as it
// answers.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]any{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	})
}

// ReadinessCheck handles GET /v1/ops/ready. It reports 503 until the
// supervisor runs and while it is critical.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	status := h.supervisor.Status()
	body := models.Health{
		Status:  models.StatusFromSupervisor(status),
		Time:    models.Timestamp(time.Now()),
		Details: map[string]any{"supervisor": status},
	}

	if !h.supervisor.Running() || status == supervisor.SystemCritical {
		response.JSON(w, r, http.StatusServiceUnavailable, body)
		return
	}
	response.JSON(w, r, http.StatusOK, body)
}

// SystemStatus handles GET /v1/ops/status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := h.supervisor.Status()
	body := models.SystemStatus{
		Status:          models.StatusFromSupervisor(status),
		Time:            models.Timestamp(time.Now()),
		Supervisor:      status,
		MaintenanceMode: h.supervisor.MaintenanceMode(),
		Components:      h.supervisor.Components(),
		Endpoints:       []resilience.EndpointHealth{},
	}
	if h.endpoints != nil {
		if snapshot := h.endpoints.Snapshot(); snapshot != nil {
			body.Endpoints = snapshot
		}
	}
	if err := h.monitor.LastCollectionError(); err != nil {
		msg := err.Error()
		body.CollectionError = &msg
	}
	response.JSON(w, r, http.StatusOK, body)
}
