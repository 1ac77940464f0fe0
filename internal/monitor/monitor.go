// Package monitor runs the metrics pipeline: collect a sample, record it,
// evaluate alerts, score health and publish the results.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hearth-labs/hearth/internal/alerting"
	"github.com/hearth-labs/hearth/internal/config"
	"github.com/hearth-labs/hearth/internal/events"
	"github.com/hearth-labs/hearth/internal/health"
	"github.com/hearth-labs/hearth/internal/metrics"
	"github.com/hearth-labs/hearth/internal/scheduler"
	"github.com/hearth-labs/hearth/internal/telemetry"
)

// PerformanceSink is told whether the latest health score is degraded.
// The supervisor implements it.
type PerformanceSink interface {
	SetPerformanceDegraded(ctx context.Context, degraded bool)
}

// Config holds configuration for a Monitor.
type Config struct {
	Probe metrics.Probe

	// History stores samples.
	// Default: a 300-sample history sharing Now
	History *metrics.History

	// Engine evaluates alerts.
	// Default: an engine with default thresholds
	Engine *alerting.Engine

	// Alerts stores raised alerts.
	// Default: an in-memory log of 500 alerts
	Alerts alerting.Repository

	// Publisher receives pipeline events.
	// Default: events.Discard
	Publisher events.Publisher

	// Performance is notified after each scoring pass. Optional.
	Performance PerformanceSink

	// Runtime supplies the tick interval, score window and alert cooldown.
	// Default: config.DefaultRuntime()
	Runtime *config.Runtime

	// CollectTimeout bounds one probe call.
	// Default: the metrics interval
	CollectTimeout time.Duration

	Metrics *telemetry.SupervisorMetrics
	Logger  zerolog.Logger

	// Default: time.Now
	Now func() time.Time
}

// Monitor owns the metrics tick.
type Monitor struct {
	probe          metrics.Probe
	history        *metrics.History
	engine         *alerting.Engine
	scorer         *health.Scorer
	alerts         alerting.Repository
	bus            events.Publisher
	perf           PerformanceSink
	metrics        *telemetry.SupervisorMetrics
	logger         zerolog.Logger
	now            func() time.Time
	collectTimeout time.Duration
	ticker         *scheduler.Ticker

	mu          sync.RWMutex
	status      health.Status
	scoreWindow time.Duration
	lastErr     error
}

// New creates a stopped Monitor.
func New(cfg Config) (*Monitor, error) {
	if cfg.Probe == nil {
		return nil, errors.New("monitor: probe is required")
	}

	runtime := config.DefaultRuntime()
	if cfg.Runtime != nil {
		runtime = cfg.Runtime.Clone()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.History == nil {
		cfg.History = metrics.NewHistory(metrics.HistoryConfig{Now: cfg.Now})
	}
	if cfg.Engine == nil {
		cfg.Engine = alerting.NewEngine(alerting.EngineConfig{Now: cfg.Now})
	}
	cfg.Engine.SetCooldown(runtime.AlertCooldown.Duration)
	if cfg.Alerts == nil {
		cfg.Alerts = alerting.NewInMemoryRepository(alerting.DefaultAlertLogSize)
	}
	if cfg.Publisher == nil {
		cfg.Publisher = events.Discard{}
	}
	if cfg.CollectTimeout <= 0 {
		cfg.CollectTimeout = runtime.MetricsInterval.Duration
	}

	m := &Monitor{
		probe:          cfg.Probe,
		history:        cfg.History,
		engine:         cfg.Engine,
		scorer:         health.NewScorer(),
		alerts:         cfg.Alerts,
		bus:            cfg.Publisher,
		perf:           cfg.Performance,
		metrics:        cfg.Metrics,
		logger:         cfg.Logger.With().Str("component", "monitor").Logger(),
		now:            cfg.Now,
		collectTimeout: cfg.CollectTimeout,
		status:         health.UnknownStatus(cfg.Now()),
		scoreWindow:    runtime.ScoreWindow.Duration,
	}
	m.ticker = scheduler.NewTicker(scheduler.TickerConfig{
		Name:      "metrics",
		Interval:  runtime.MetricsInterval.Duration,
		Task:      m.Tick,
		Immediate: true,
		Logger:    cfg.Logger,
	})

	return m, nil
}

// Start begins ticking. The first tick runs immediately.
func (m *Monitor) Start(ctx context.Context) error {
	if err := m.ticker.Start(ctx); err != nil {
		return err
	}
	m.logger.Info().Dur("interval", m.ticker.Interval()).Msg("metrics monitor started")
	return nil
}

// Stop halts the tick and waits for an in-flight tick to finish.
func (m *Monitor) Stop() {
	m.ticker.Stop()
	m.logger.Info().Msg("metrics monitor stopped")
}

// TickerStats returns run statistics of the metrics tick.
func (m *Monitor) TickerStats() scheduler.Stats {
	return m.ticker.Stats()
}

// Tick runs one pipeline pass. A failed collection is published and the
// pass still scores whatever data the history holds.
func (m *Monitor) Tick(ctx context.Context) {
	start := time.Now()
	defer func() { m.metrics.RecordTick(ctx, "metrics", time.Since(start)) }()

	collectCtx, cancel := context.WithTimeout(ctx, m.collectTimeout)
	sample, err := m.probe.Collect(collectCtx)
	cancel()

	if err != nil {
		m.collectionFailed(ctx, err)
	} else {
		m.record(ctx, sample)
	}

	m.score(ctx)
}

func (m *Monitor) collectionFailed(ctx context.Context, err error) {
	if !errors.Is(err, metrics.ErrCollection) {
		err = fmt.Errorf("%w: %w", metrics.ErrCollection, err)
	}

	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()

	m.logger.Warn().Err(err).Msg("metrics collection failed")
	m.metrics.RecordCollectionFailure(ctx)
	m.bus.Publish(ctx, events.Event{
		Type:    events.MetricsCollectionFailed,
		Time:    m.now(),
		Payload: events.MetricsCollectionFailedPayload{Error: err.Error()},
	})
}

func (m *Monitor) record(ctx context.Context, sample metrics.Sample) {
	if sample.Timestamp.IsZero() {
		sample.Timestamp = m.now()
	}

	m.mu.Lock()
	m.lastErr = nil
	m.mu.Unlock()

	m.history.Append(sample)

	for _, alert := range m.engine.Check(sample) {
		if err := m.alerts.Save(ctx, alert); err != nil {
			m.logger.Error().Err(err).Str("alert_id", alert.ID).Msg("failed to store alert")
		}
		m.metrics.RecordAlert(ctx, string(alert.Type), string(alert.Severity))
		m.bus.Publish(ctx, events.NewAlertRaised(alert))
	}
}

func (m *Monitor) score(ctx context.Context) {
	m.mu.RLock()
	window := m.scoreWindow
	m.mu.RUnlock()

	avg, count := m.history.Aggregate(window)
	if count == 0 {
		// Fall back to the last known-good sample.
		if latest, ok := m.history.Latest(); ok {
			avg, count = latest, 1
		}
	}

	status := m.scorer.Compute(avg, count, m.engine.Thresholds())
	status.ComputedAt = m.now()

	m.mu.Lock()
	prev := m.status
	m.status = status
	m.mu.Unlock()

	m.metrics.RecordHealth(ctx, string(status.Overall), status.Score)

	if prev.Overall != status.Overall {
		m.logger.Info().
			Str("previous", string(prev.Overall)).
			Str("overall", string(status.Overall)).
			Float64("score", status.Score).
			Msg("health status changed")
		m.bus.Publish(ctx, events.Event{
			Type: events.HealthStatusChanged,
			Time: status.ComputedAt,
			Payload: events.HealthStatusChangedPayload{
				Previous: string(prev.Overall),
				Overall:  string(status.Overall),
				Score:    status.Score,
			},
		})
	}

	if m.perf != nil && status.Overall != health.OverallUnknown {
		m.perf.SetPerformanceDegraded(ctx, status.Overall.Degraded())
	}
}

// ApplyConfiguration picks up interval, window and cooldown changes.
func (m *Monitor) ApplyConfiguration(_ context.Context, old, next config.Runtime) error {
	if next.AlertCooldown != old.AlertCooldown {
		m.engine.SetCooldown(next.AlertCooldown.Duration)
	}
	if next.MetricsInterval != old.MetricsInterval {
		m.ticker.Reset(next.MetricsInterval.Duration)
	}

	m.mu.Lock()
	m.scoreWindow = next.ScoreWindow.Duration
	m.mu.Unlock()
	return nil
}
