// Package handler provides the HTTP handlers of the hearth operator API.
package handler

import (
	"context"
	"time"

	"github.com/hearth-labs/hearth/internal/alerting"
	"github.com/hearth-labs/hearth/internal/config"
	"github.com/hearth-labs/hearth/internal/health"
	"github.com/hearth-labs/hearth/internal/metrics"
	"github.com/hearth-labs/hearth/internal/resilience"
	"github.com/hearth-labs/hearth/internal/supervisor"
)

// Supervisor is the component supervisor as seen by the API.
type Supervisor interface {
	Status() supervisor.SystemStatus
	Running() bool
	MaintenanceMode() bool
	Components() []supervisor.Record
	ComponentStatus(name string) (supervisor.Record, error)
	Recover(ctx context.Context, name string) error
	SetMaintenanceMode(ctx context.Context, enabled bool) error
	Configuration() config.Runtime
	UpdateConfiguration(ctx context.Context, patch config.RuntimePatch) (config.Runtime, error)
}

// Monitor is the metrics monitor as seen by the API.
type Monitor interface {
	CurrentMetrics() (metrics.Sample, bool)
	AverageMetrics(window time.Duration) metrics.Sample
	PerformanceTrends(window time.Duration, buckets int) []metrics.TrendPoint
	SystemHealthStatus() health.Status
	ExportMetrics(r *metrics.TimeRange) []metrics.Sample
	LastCollectionError() error
	Thresholds() alerting.Thresholds
	UpdateThresholds(patch alerting.ThresholdsPatch) (alerting.Thresholds, error)
	RecentAlerts(ctx context.Context, limit int) ([]alerting.Alert, error)
}

// EndpointReporter reports the breaker state of guarded endpoints.
type EndpointReporter interface {
	Snapshot() []resilience.EndpointHealth
}
