package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// SupervisorMetrics holds the supervisor's instruments. A nil
// *SupervisorMetrics is valid and records nothing.
type SupervisorMetrics struct {
	healthScore       metric.Float64Gauge
	alerts            metric.Int64Counter
	tickDuration      metric.Float64Histogram
	collectFailures   metric.Int64Counter
	transitions       metric.Int64Counter
	recoveryAttempts  metric.Int64Counter
	optimizationCalls metric.Int64Counter
}

// NewSupervisorMetrics creates the instruments on meter.
func NewSupervisorMetrics(meter metric.Meter) (*SupervisorMetrics, error) {
	healthScore, err := meter.Float64Gauge(
		"supervisor.health.score",
		metric.WithDescription("Composite health score, 0 to 100"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	alerts, err := meter.Int64Counter(
		"supervisor.alerts.total",
		metric.WithDescription("Alerts raised"),
		metric.WithUnit("{alert}"),
	)
	if err != nil {
		return nil, err
	}

	tickDuration, err := meter.Float64Histogram(
		"supervisor.tick.duration",
		metric.WithDescription("Duration of scheduler ticks in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	collectFailures, err := meter.Int64Counter(
		"supervisor.metrics.collection_failures",
		metric.WithDescription("Failed probe collections"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, err
	}

	transitions, err := meter.Int64Counter(
		"supervisor.component.transitions",
		metric.WithDescription("Component status transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	recoveryAttempts, err := meter.Int64Counter(
		"supervisor.component.recovery_attempts",
		metric.WithDescription("Component recovery attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	optimizationCalls, err := meter.Int64Counter(
		"supervisor.optimization.calls",
		metric.WithDescription("Optimization hook invocations"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	return &SupervisorMetrics{
		healthScore:       healthScore,
		alerts:            alerts,
		tickDuration:      tickDuration,
		collectFailures:   collectFailures,
		transitions:       transitions,
		recoveryAttempts:  recoveryAttempts,
		optimizationCalls: optimizationCalls,
	}, nil
}

// RecordHealth records the latest health score.
func (m *SupervisorMetrics) RecordHealth(ctx context.Context, overall string, score float64) {
	if m == nil {
		return
	}
	m.healthScore.Record(ctx, score, metric.WithAttributes(attribute.String("health.overall", overall)))
}

// RecordAlert counts a raised alert.
func (m *SupervisorMetrics) RecordAlert(ctx context.Context, alertType, severity string) {
	if m == nil {
		return
	}
	m.alerts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("alert.type", alertType),
		attribute.String("alert.severity", severity),
	))
}

// RecordTick records how long one tick of the named loop took.
func (m *SupervisorMetrics) RecordTick(ctx context.Context, loop string, d time.Duration) {
	if m == nil {
		return
	}
	m.tickDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("loop", loop)))
}

// RecordCollectionFailure counts a failed probe collection.
func (m *SupervisorMetrics) RecordCollectionFailure(ctx context.Context) {
	if m == nil {
		return
	}
	m.collectFailures.Add(ctx, 1)
}

// RecordTransition counts a component status change.
func (m *SupervisorMetrics) RecordTransition(ctx context.Context, component, from, to string) {
	if m == nil {
		return
	}
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("component.name", component),
		attribute.String("component.from", from),
		attribute.String("component.to", to),
	))
}

// RecordRecoveryAttempt counts one recovery attempt and its outcome.
func (m *SupervisorMetrics) RecordRecoveryAttempt(ctx context.Context, component string, automatic bool, err error) {
	if m == nil {
		return
	}
	m.recoveryAttempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("component.name", component),
		attribute.Bool("recovery.automatic", automatic),
		attribute.Bool("error", err != nil),
	))
}

// RecordOptimization counts an optimization hook call.
func (m *SupervisorMetrics) RecordOptimization(ctx context.Context, hook string, err error) {
	if m == nil {
		return
	}
	m.optimizationCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("hook", hook),
		attribute.Bool("error", err != nil),
	))
}
