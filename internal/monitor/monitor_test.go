package monitor_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearth-labs/hearth/internal/alerting"
	"github.com/hearth-labs/hearth/internal/config"
	"github.com/hearth-labs/hearth/internal/events"
	"github.com/hearth-labs/hearth/internal/health"
	"github.com/hearth-labs/hearth/internal/metrics"
	"github.com/hearth-labs/hearth/internal/monitor"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// scriptedProbe returns the configured sample stamped with the clock, or an
// error when one is set.
type scriptedProbe struct {
	clock *clock

	mu     sync.Mutex
	sample metrics.Sample
	err    error
}

func (p *scriptedProbe) set(s metrics.Sample, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sample, p.err = s, err
}

func (p *scriptedProbe) Collect(context.Context) (metrics.Sample, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return metrics.Sample{}, p.err
	}
	s := p.sample
	s.Timestamp = p.clock.Now()
	return s, nil
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) ofType(t events.Type) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type perfSink struct {
	mu    sync.Mutex
	calls []bool
}

func (p *perfSink) SetPerformanceDegraded(_ context.Context, degraded bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, degraded)
}

func overloaded() metrics.Sample {
	return metrics.Sample{
		GPU:       metrics.GPU{MemoryUsedGB: 1.9, UtilizationPct: 99, TemperatureC: 95},
		CPU:       metrics.CPU{UsagePct: 97},
		Memory:    metrics.Memory{UsagePct: 95},
		Rendering: metrics.Rendering{FPS: 10, FrameTimeMs: 60},
	}
}

type fixture struct {
	clock   *clock
	probe   *scriptedProbe
	events  *recorder
	perf    *perfSink
	alerts  *alerting.InMemoryRepository
	monitor *monitor.Monitor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	c := newClock()
	f := &fixture{
		clock:  c,
		probe:  &scriptedProbe{clock: c},
		events: &recorder{},
		perf:   &perfSink{},
		alerts: alerting.NewInMemoryRepository(100),
	}

	m, err := monitor.New(monitor.Config{
		Probe:       f.probe,
		Alerts:      f.alerts,
		Publisher:   f.events,
		Performance: f.perf,
		Logger:      zerolog.Nop(),
		Now:         c.Now,
	})
	require.NoError(t, err)
	f.monitor = m
	return f
}

func TestNew_RequiresProbe(t *testing.T) {
	_, err := monitor.New(monitor.Config{})
	assert.Error(t, err)
}

func TestMonitor_StatusUnknownBeforeFirstSample(t *testing.T) {
	f := newFixture(t)

	status := f.monitor.SystemHealthStatus()
	assert.Equal(t, health.OverallUnknown, status.Overall)
	assert.Zero(t, status.Score)

	_, ok := f.monitor.CurrentMetrics()
	assert.False(t, ok)
}

func TestMonitor_TickRaisesAlertsAndScores(t *testing.T) {
	f := newFixture(t)
	f.probe.set(overloaded(), nil)

	f.monitor.Tick(context.Background())

	raised := f.events.ofType(events.AlertRaised)
	assert.Len(t, raised, 7)

	stored, err := f.monitor.RecentAlerts(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, stored, 7)

	// GPU 15, CPU 70, Memory 70, Rendering 60
	status := f.monitor.SystemHealthStatus()
	assert.Equal(t, health.OverallCritical, status.Overall)
	assert.InDelta(t, 53.75, status.Score, 0.001)
	assert.Equal(t, 1, status.SampleCount)

	changed := f.events.ofType(events.HealthStatusChanged)
	require.Len(t, changed, 1)
	payload := changed[0].Payload.(events.HealthStatusChangedPayload)
	assert.Equal(t, "unknown", payload.Previous)
	assert.Equal(t, "critical", payload.Overall)

	assert.Equal(t, []bool{true}, f.perf.calls)

	current, ok := f.monitor.CurrentMetrics()
	require.True(t, ok)
	assert.Equal(t, 97.0, current.CPU.UsagePct)
}

func TestMonitor_AlertCooldownAcrossTicks(t *testing.T) {
	f := newFixture(t)
	f.probe.set(metrics.Sample{CPU: metrics.CPU{UsagePct: 97}}, nil)

	cpuAlerts := func() int {
		n := 0
		for _, e := range f.events.ofType(events.AlertRaised) {
			if e.Payload.(events.AlertRaisedPayload).Alert.Type == alerting.TypeCPUUsage {
				n++
			}
		}
		return n
	}

	f.monitor.Tick(context.Background())
	assert.Equal(t, 1, cpuAlerts())

	f.clock.Advance(10 * time.Second)
	f.monitor.Tick(context.Background())
	assert.Equal(t, 1, cpuAlerts())

	f.clock.Advance(21 * time.Second)
	f.monitor.Tick(context.Background())
	assert.Equal(t, 2, cpuAlerts())
}

func TestMonitor_CollectionFailureScoresLastKnownGood(t *testing.T) {
	f := newFixture(t)
	f.probe.set(metrics.Sample{CPU: metrics.CPU{UsagePct: 20}}, nil)
	f.monitor.Tick(context.Background())
	require.NoError(t, f.monitor.LastCollectionError())

	f.clock.Advance(time.Minute)
	f.probe.set(metrics.Sample{}, errors.New("sensor bus timeout"))
	f.monitor.Tick(context.Background())

	failed := f.events.ofType(events.MetricsCollectionFailed)
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0].Payload.(events.MetricsCollectionFailedPayload).Error, "sensor bus timeout")
	assert.ErrorIs(t, f.monitor.LastCollectionError(), metrics.ErrCollection)

	status := f.monitor.SystemHealthStatus()
	assert.Equal(t, health.OverallHealthy, status.Overall)
	assert.Equal(t, 1, status.SampleCount)
	assert.Len(t, f.monitor.ExportMetrics(nil), 1)
}

func TestMonitor_CollectionFailureWithoutHistoryStaysUnknown(t *testing.T) {
	f := newFixture(t)
	f.probe.set(metrics.Sample{}, errors.New("no sensors"))

	f.monitor.Tick(context.Background())

	assert.Equal(t, health.OverallUnknown, f.monitor.SystemHealthStatus().Overall)
	assert.Empty(t, f.events.ofType(events.HealthStatusChanged))
	assert.Empty(t, f.perf.calls)
}

func TestMonitor_QueriesAndExportRange(t *testing.T) {
	f := newFixture(t)
	start := f.clock.Now()

	for i := 0; i < 5; i++ {
		f.probe.set(metrics.Sample{CPU: metrics.CPU{UsagePct: float64(10 * (i + 1))}}, nil)
		f.monitor.Tick(context.Background())
		f.clock.Advance(time.Second)
	}

	exported := f.monitor.ExportMetrics(&metrics.TimeRange{
		Start: start.Add(time.Second),
		End:   start.Add(3 * time.Second),
	})
	require.Len(t, exported, 3)
	assert.Equal(t, 20.0, exported[0].CPU.UsagePct)
	assert.Equal(t, 40.0, exported[2].CPU.UsagePct)

	avg := f.monitor.AverageMetrics(time.Minute)
	assert.InDelta(t, 30.0, avg.CPU.UsagePct, 0.0001)

	trend := f.monitor.PerformanceTrends(time.Minute, 5)
	assert.NotEmpty(t, trend)
}

func TestMonitor_UpdateThresholds(t *testing.T) {
	f := newFixture(t)

	limit := 50.0
	th, err := f.monitor.UpdateThresholds(alerting.ThresholdsPatch{CriticalCPUUsagePct: &limit})
	require.NoError(t, err)
	assert.Equal(t, 50.0, th.CriticalCPUUsagePct)
	assert.Equal(t, alerting.DefaultThresholds().CriticalGPUMemoryGB, f.monitor.Thresholds().CriticalGPUMemoryGB)

	f.probe.set(metrics.Sample{CPU: metrics.CPU{UsagePct: 60}}, nil)
	f.monitor.Tick(context.Background())
	assert.Len(t, f.events.ofType(events.AlertRaised), 1)

	negative := -1.0
	_, err = f.monitor.UpdateThresholds(alerting.ThresholdsPatch{CriticalCPUUsagePct: &negative})
	assert.ErrorIs(t, err, alerting.ErrInvalidThresholds)
}

func TestMonitor_ApplyConfigurationChangesCooldown(t *testing.T) {
	f := newFixture(t)
	f.probe.set(metrics.Sample{CPU: metrics.CPU{UsagePct: 97}}, nil)

	old := config.DefaultRuntime()
	next := old
	next.AlertCooldown = config.D(5 * time.Second)
	require.NoError(t, f.monitor.ApplyConfiguration(context.Background(), old, next))

	f.monitor.Tick(context.Background())
	f.clock.Advance(6 * time.Second)
	f.monitor.Tick(context.Background())

	assert.Len(t, f.events.ofType(events.AlertRaised), 2)
}

func TestMonitor_StartRunsFirstTickImmediately(t *testing.T) {
	f := newFixture(t)
	f.probe.set(metrics.Sample{CPU: metrics.CPU{UsagePct: 10}}, nil)

	require.NoError(t, f.monitor.Start(context.Background()))
	defer f.monitor.Stop()

	require.Eventually(t, func() bool {
		return f.monitor.TickerStats().Runs >= 1
	}, time.Second, 5*time.Millisecond)
	assert.NotEmpty(t, f.monitor.ExportMetrics(nil))
}
