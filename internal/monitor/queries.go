package monitor

import (
	"context"
	"time"

	"github.com/hearth-labs/hearth/internal/alerting"
	"github.com/hearth-labs/hearth/internal/health"
	"github.com/hearth-labs/hearth/internal/metrics"
)

// CurrentMetrics returns the most recent sample.
func (m *Monitor) CurrentMetrics() (metrics.Sample, bool) {
	return m.history.Latest()
}

// AverageMetrics averages the samples of the last window.
func (m *Monitor) AverageMetrics(window time.Duration) metrics.Sample {
	return m.history.Average(window)
}

// PerformanceTrends returns bucketed averages over window.
func (m *Monitor) PerformanceTrends(window time.Duration, buckets int) []metrics.TrendPoint {
	return m.history.Trend(window, buckets)
}

// SystemHealthStatus returns the result of the latest scoring pass.
func (m *Monitor) SystemHealthStatus() health.Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status := m.status
	status.Recommendations = append([]string{}, status.Recommendations...)
	return status
}

// ExportMetrics returns the stored samples within r, or all of them when r
// is nil.
func (m *Monitor) ExportMetrics(r *metrics.TimeRange) []metrics.Sample {
	return m.history.Export(r)
}

// LastCollectionError returns the error of the latest collection, or nil if
// it succeeded.
func (m *Monitor) LastCollectionError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

// Thresholds returns the alert thresholds.
func (m *Monitor) Thresholds() alerting.Thresholds {
	return m.engine.Thresholds()
}

// UpdateThresholds merges patch into the alert thresholds.
func (m *Monitor) UpdateThresholds(patch alerting.ThresholdsPatch) (alerting.Thresholds, error) {
	th, err := m.engine.UpdateThresholds(patch)
	if err != nil {
		return th, err
	}
	m.logger.Info().Msg("alert thresholds updated")
	return th, nil
}

// RecentAlerts returns up to limit stored alerts, newest first.
func (m *Monitor) RecentAlerts(ctx context.Context, limit int) ([]alerting.Alert, error) {
	return m.alerts.Recent(ctx, limit)
}
