package telemetry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/hearth-labs/hearth/internal/telemetry"
)

func TestInit_Disabled(t *testing.T) {
	ctx := context.Background()

	provider, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    "hearth-supervisor",
		ServiceVersion: "1.0.0",
		Environment:    "test",
		OTLPEndpoint:   "localhost:4317",
		Enabled:        false,
	})

	require.NoError(t, err)
	assert.NotNil(t, provider.Tracer)
	assert.NotNil(t, provider.Meter)
	assert.Nil(t, provider.TracerProvider)
	assert.Nil(t, provider.MeterProvider)
	assert.NoError(t, provider.Shutdown(ctx))
}

func TestProvider_Shutdown_NilProviders(t *testing.T) {
	provider := &telemetry.Provider{}
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestSupervisorMetrics_NilIsSafe(t *testing.T) {
	var m *telemetry.SupervisorMetrics
	ctx := context.Background()

	assert.NotPanics(t, func() {
		m.RecordHealth(ctx, "healthy", 90)
		m.RecordAlert(ctx, "gpu_memory", "critical")
		m.RecordTick(ctx, "metrics", time.Millisecond)
		m.RecordCollectionFailure(ctx)
		m.RecordTransition(ctx, "renderer", "online", "error")
		m.RecordRecoveryAttempt(ctx, "renderer", true, nil)
		m.RecordOptimization(ctx, "reduce_texture_quality", nil)
	})
}

func TestSupervisorMetrics_RecordsToMeter(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(ctx) }()

	m, err := telemetry.NewSupervisorMetrics(provider.Meter("test"))
	require.NoError(t, err)

	m.RecordAlert(ctx, "gpu_memory", "critical")
	m.RecordAlert(ctx, "gpu_memory", "critical")
	m.RecordHealth(ctx, "warning", 72.5)
	m.RecordRecoveryAttempt(ctx, "voice", true, errors.New("still down"))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	found := map[string]metricdata.Aggregation{}
	for _, sm := range rm.ScopeMetrics {
		for _, md := range sm.Metrics {
			found[md.Name] = md.Data
		}
	}

	alerts, ok := found["supervisor.alerts.total"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, alerts.DataPoints, 1)
	assert.Equal(t, int64(2), alerts.DataPoints[0].Value)

	score, ok := found["supervisor.health.score"].(metricdata.Gauge[float64])
	require.True(t, ok)
	require.Len(t, score.DataPoints, 1)
	assert.Equal(t, 72.5, score.DataPoints[0].Value)

	_, ok = found["supervisor.component.recovery_attempts"].(metricdata.Sum[int64])
	assert.True(t, ok)
}
