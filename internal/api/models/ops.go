package models

import (
	"github.com/hearth-labs/hearth/internal/resilience"
	"github.com/hearth-labs/hearth/internal/supervisor"
)

// Health is the body of the liveness and readiness probes.
type Health struct {
	Status  HealthStatus   `json:"status"`
	Time    Timestamp      `json:"time"`
	Details map[string]any `json:"details,omitempty"`
}

// SystemStatus is the body of GET /v1/ops/status.
type SystemStatus struct {
	Status          HealthStatus                `json:"status"`
	Time            Timestamp                   `json:"time"`
	Supervisor      supervisor.SystemStatus     `json:"supervisor"`
	MaintenanceMode bool                        `json:"maintenanceMode"`
	Components      []supervisor.Record         `json:"components"`
	Endpoints       []resilience.EndpointHealth `json:"endpoints"`

	// CollectionError is the last metrics collection failure, if the most
	// recent collection failed.
	CollectionError *string `json:"collectionError,omitempty"`
}

// StatusFromSupervisor maps a supervisor status to an ops health status.
func StatusFromSupervisor(s supervisor.SystemStatus) HealthStatus {
	switch s {
	case supervisor.SystemHealthy:
		return HealthStatusOK
	case supervisor.SystemDegraded:
		return HealthStatusDegraded
	default:
		return HealthStatusFail
	}
}
