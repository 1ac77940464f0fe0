package models

import (
	"github.com/hearth-labs/hearth/internal/alerting"
	"github.com/hearth-labs/hearth/internal/metrics"
	"github.com/hearth-labs/hearth/internal/supervisor"
)

// ComponentList is the body of GET /v1/components.
type ComponentList struct {
	Status     supervisor.SystemStatus `json:"status"`
	Components []supervisor.Record     `json:"components"`
}

// AlertList is the body of GET /v1/alerts.
type AlertList struct {
	Alerts []alerting.Alert `json:"alerts"`
}

// AverageMetrics is the body of GET /v1/metrics/average.
type AverageMetrics struct {
	Window string         `json:"window"`
	Sample metrics.Sample `json:"sample"`
}

// MetricsExport is the body of GET /v1/metrics/export.
type MetricsExport struct {
	Count   int              `json:"count"`
	Samples []metrics.Sample `json:"samples"`
}

// Trends is the body of GET /v1/metrics/trends.
type Trends struct {
	Window string               `json:"window"`
	Points []metrics.TrendPoint `json:"points"`
}

// MaintenanceRequest is the body of PUT /v1/admin/maintenance.
type MaintenanceRequest struct {
	Enabled *bool `json:"enabled"`
}

// Validate checks the request fields.
func (r *MaintenanceRequest) Validate() []FieldError {
	if r.Enabled == nil {
		return []FieldError{{Field: "enabled", Message: "required", Code: "REQUIRED"}}
	}
	return nil
}

// MaintenanceResponse reports the maintenance flag after a change.
type MaintenanceResponse struct {
	Enabled bool `json:"enabled"`
}
