package supervisor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/hearth-labs/hearth/internal/alerting"
	"github.com/hearth-labs/hearth/internal/config"
	"github.com/hearth-labs/hearth/internal/events"
	"github.com/hearth-labs/hearth/internal/scheduler"
	"github.com/hearth-labs/hearth/internal/telemetry"
)

// DefaultHealthCheckTimeout bounds a single component health check.
const DefaultHealthCheckTimeout = 5 * time.Second

// ConfigListener is notified when the runtime configuration changes. An
// error aborts the update and rolls it back.
type ConfigListener interface {
	ApplyConfiguration(ctx context.Context, old, next config.Runtime) error
}

// Config holds configuration for a Supervisor.
type Config struct {
	// Definitions are the components in start order.
	Definitions []Definition

	// Runtime is the initial runtime configuration.
	// Default: config.DefaultRuntime()
	Runtime *config.Runtime

	// HealthCheckTimeout bounds each component health check.
	// Default: 5 seconds
	HealthCheckTimeout time.Duration

	// Publisher receives supervisor events.
	// Default: events.Discard
	Publisher events.Publisher

	// Alerts stores persistent-failure alerts. Optional.
	Alerts alerting.Repository

	// Metrics records instrument data. Optional.
	Metrics *telemetry.SupervisorMetrics

	Logger zerolog.Logger

	// Now is the clock used for record timestamps.
	// Default: time.Now
	Now func() time.Time
}

// entry is the registry slot of one component.
type entry struct {
	def       Definition
	record    Record
	started   bool
	timer     *time.Timer
	backoff   backoff.BackOff
	exhausted bool
}

// outbox collects what to publish once the lock is released.
type outbox struct {
	events []events.Event
	alerts []alerting.Alert
}

// Supervisor owns the component registry. All registry mutation happens
// under mu; component calls run outside it.
type Supervisor struct {
	defs         []Definition
	checkTimeout time.Duration
	bus          events.Publisher
	alerts       alerting.Repository
	metrics      *telemetry.SupervisorMetrics
	logger       zerolog.Logger
	now          func() time.Time

	// cfgMu serializes configuration updates.
	cfgMu sync.Mutex

	mu           sync.Mutex
	entries      map[string]*entry
	order        []string
	runtime      config.Runtime
	listeners    []ConfigListener
	running      bool
	generation   uint64
	maintenance  bool
	perfDegraded bool
	status       SystemStatus
	ticker       *scheduler.Ticker
	baseCtx      context.Context
	cancelBase   context.CancelFunc
}

// New creates a stopped supervisor.
func New(cfg Config) *Supervisor {
	runtime := config.DefaultRuntime()
	if cfg.Runtime != nil {
		runtime = cfg.Runtime.Clone()
	}
	if cfg.HealthCheckTimeout <= 0 {
		cfg.HealthCheckTimeout = DefaultHealthCheckTimeout
	}
	if cfg.Publisher == nil {
		cfg.Publisher = events.Discard{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Supervisor{
		defs:         append([]Definition(nil), cfg.Definitions...),
		checkTimeout: cfg.HealthCheckTimeout,
		bus:          cfg.Publisher,
		alerts:       cfg.Alerts,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
		now:          cfg.Now,
		entries:      make(map[string]*entry),
		runtime:      runtime,
		status:       SystemStopped,
	}
}

// AddConfigListener registers l for configuration updates.
func (s *Supervisor) AddConfigListener(l ConfigListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Start initializes every component in declared order and starts the
// health-check ticker. An essential component failing Init tears down the
// components started so far, in reverse order, and returns an
// *InitializationError. Non-essential failures are recorded and recovery is
// scheduled.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.running = true
	s.generation++
	s.entries = make(map[string]*entry)
	s.order = nil
	s.baseCtx, s.cancelBase = context.WithCancel(context.WithoutCancel(ctx))
	s.mu.Unlock()

	var out outbox
	for _, def := range s.defs {
		log := s.logger.With().Str("component", def.Name).Bool("essential", def.Essential).Logger()

		err := safeCall(func() error { return def.Component.Init(ctx) })
		now := s.now()

		e := &entry{
			def: def,
			record: Record{
				Name:      def.Name,
				Essential: def.Essential,
				Pausable:  def.Pauser != nil,
			},
		}

		if err != nil && def.Essential {
			log.Error().Err(err).Msg("essential component failed to initialize")
			s.abortStart(ctx)
			return &InitializationError{Component: def.Name, Essential: true, Err: err}
		}

		s.mu.Lock()
		s.entries[def.Name] = e
		s.order = append(s.order, def.Name)

		if err != nil {
			initErr := &InitializationError{Component: def.Name, Err: err}
			log.Warn().Err(err).Msg("component failed to initialize")

			e.record.Status = StatusError
			e.record.LastError = initErr.Error()
			out.events = append(out.events, s.event(events.ComponentFailed, events.ComponentFailedPayload{
				Name:  def.Name,
				Error: initErr.Error(),
			}))
			s.scheduleRecoveryLocked(e, &out)
		} else {
			e.started = true
			e.record.Status = StatusOnline
			e.record.StartedAt = &now
			log.Info().Msg("component online")
		}
		s.mu.Unlock()
	}

	s.mu.Lock()
	s.ticker = scheduler.NewTicker(scheduler.TickerConfig{
		Name:     "health-check",
		Interval: s.runtime.HealthCheckInterval.Duration,
		Task:     s.healthTick,
		Logger:   s.logger,
	})
	ticker, baseCtx := s.ticker, s.baseCtx
	s.updateStatusLocked(&out)
	s.mu.Unlock()

	if err := ticker.Start(baseCtx); err != nil {
		return err
	}

	s.flush(ctx, out)
	s.logger.Info().Int("components", len(s.defs)).Msg("supervisor started")
	return nil
}

// abortStart tears down the components initialized so far.
func (s *Supervisor) abortStart(ctx context.Context) {
	s.mu.Lock()
	var started []*entry
	for i := len(s.order) - 1; i >= 0; i-- {
		if e := s.entries[s.order[i]]; e.started {
			started = append(started, e)
		}
	}
	s.resetLocked()
	s.mu.Unlock()

	for _, e := range started {
		if err := safeCall(func() error { return e.def.Component.Shutdown(ctx) }); err != nil {
			s.logger.Warn().Err(err).Str("component", e.def.Name).Msg("shutdown during aborted start failed")
		}
	}
}

// resetLocked stops every timer and clears the registry.
func (s *Supervisor) resetLocked() {
	s.running = false
	s.generation++
	for _, e := range s.entries {
		if e.timer != nil {
			e.timer.Stop()
			e.timer = nil
		}
	}
	s.entries = make(map[string]*entry)
	s.order = nil
	s.status = SystemStopped
	if s.cancelBase != nil {
		s.cancelBase()
	}
}

// Stop halts health checks and pending recoveries, marks every record
// offline and shuts the components that started down in reverse declared
// order. Checks still in flight finish but their results are discarded.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.generation++
	for _, e := range s.entries {
		if e.timer != nil {
			e.timer.Stop()
			e.timer = nil
		}
	}
	reverse := make([]*entry, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		e := s.entries[s.order[i]]
		if e.started {
			reverse = append(reverse, e)
		}
		s.transitionLocked(ctx, e, StatusOffline)
	}
	ticker := s.ticker
	s.ticker = nil
	var out outbox
	s.updateStatusLocked(&out)
	s.mu.Unlock()

	if ticker != nil {
		ticker.Stop()
	}

	var errs []error
	for _, e := range reverse {
		if err := safeCall(func() error { return e.def.Component.Shutdown(ctx) }); err != nil {
			s.logger.Warn().Err(err).Str("component", e.def.Name).Msg("component shutdown failed")
			errs = append(errs, fmt.Errorf("shutting down %s: %w", e.def.Name, err))
		}
	}

	s.mu.Lock()
	s.resetLocked()
	s.mu.Unlock()

	s.flush(ctx, out)
	s.logger.Info().Msg("supervisor stopped")
	return errors.Join(errs...)
}

func (s *Supervisor) healthTick(ctx context.Context) {
	start := time.Now()
	if err := s.CheckHealth(ctx); err != nil && !errors.Is(err, ErrNotRunning) {
		s.logger.Error().Err(err).Msg("health check pass failed")
	}
	s.metrics.RecordTick(ctx, "health-check", time.Since(start))
}

// CheckHealth runs one health-check pass. Every component not currently
// recovering is checked concurrently with its own timeout; one slow or
// failing check never affects another.
func (s *Supervisor) CheckHealth(ctx context.Context) error {
	type target struct {
		name string
		comp Component
	}

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	gen := s.generation
	targets := make([]target, 0, len(s.order))
	for _, name := range s.order {
		e := s.entries[name]
		if e.record.Status == StatusRecovering {
			continue
		}
		targets = append(targets, target{name: name, comp: e.def.Component})
	}
	timeout := s.checkTimeout
	s.mu.Unlock()

	results := make([]error, len(targets))
	var g errgroup.Group
	for i, t := range targets {
		g.Go(func() error {
			checkCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			results[i] = safeCall(func() error { return t.comp.HealthCheck(checkCtx) })
			return nil
		})
	}
	_ = g.Wait()

	checkedAt := s.now()
	var out outbox

	s.mu.Lock()
	if !s.running || s.generation != gen {
		s.mu.Unlock()
		return nil
	}

	for i, t := range targets {
		e, ok := s.entries[t.name]
		if !ok || e.record.Status == StatusRecovering {
			continue
		}
		at := checkedAt
		e.record.LastHealthCheck = &at

		if err := results[i]; err != nil {
			checkErr := &HealthCheckError{Component: t.name, Err: err}
			e.record.LastError = checkErr.Error()
			if e.record.Status == StatusOnline {
				s.logger.Warn().Err(err).Str("component", t.name).Msg("component health check failed")
				s.transitionLocked(ctx, e, StatusError)
				e.backoff = nil
				out.events = append(out.events, s.event(events.ComponentFailed, events.ComponentFailedPayload{
					Name:      t.name,
					Essential: e.def.Essential,
					Attempts:  e.record.RecoveryAttempts,
					Error:     checkErr.Error(),
				}))
				s.scheduleRecoveryLocked(e, &out)
			}
			continue
		}

		if e.record.Status.failing() {
			attempts := e.record.RecoveryAttempts
			s.markOnlineLocked(ctx, e)
			s.logger.Info().Str("component", t.name).Msg("component passed health check again")
			out.events = append(out.events, s.event(events.ComponentRecovered, events.ComponentRecoveredPayload{
				Name:     t.name,
				Attempts: attempts,
			}))
		}
	}

	s.updateStatusLocked(&out)
	s.mu.Unlock()

	s.flush(ctx, out)
	return nil
}

// Status returns the supervisor-wide status.
func (s *Supervisor) Status() SystemStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Running reports whether Start succeeded and Stop has not been called.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// SetPerformanceDegraded marks whether performance thresholds are unmet,
// which alone makes the system degraded.
func (s *Supervisor) SetPerformanceDegraded(ctx context.Context, degraded bool) {
	var out outbox

	s.mu.Lock()
	if s.perfDegraded == degraded {
		s.mu.Unlock()
		return
	}
	s.perfDegraded = degraded
	s.updateStatusLocked(&out)
	s.mu.Unlock()

	s.flush(ctx, out)
}

// Components returns every record in declared order.
func (s *Supervisor) Components() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]Record, 0, len(s.order))
	for _, name := range s.order {
		records = append(records, s.entries[name].record)
	}
	return records
}

// ComponentStatus returns the record of one component.
func (s *Supervisor) ComponentStatus(name string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[name]
	if !ok {
		return Record{}, ErrComponentNotFound
	}
	return e.record, nil
}

// SetMaintenanceMode pauses (or resumes) every non-essential component that
// can pause. Lifecycle status is unchanged and health checks keep running.
func (s *Supervisor) SetMaintenanceMode(ctx context.Context, enabled bool) error {
	type target struct {
		name   string
		pauser Pauser
	}

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	if s.maintenance == enabled {
		s.mu.Unlock()
		return nil
	}
	s.maintenance = enabled
	var targets []target
	for _, name := range s.order {
		e := s.entries[name]
		if !e.def.Essential && e.def.Pauser != nil {
			targets = append(targets, target{name: name, pauser: e.def.Pauser})
		}
	}
	s.mu.Unlock()

	var errs []error
	for _, t := range targets {
		var err error
		if enabled {
			err = safeCall(func() error { return t.pauser.Pause(ctx) })
		} else {
			err = safeCall(func() error { return t.pauser.Resume(ctx) })
		}
		if err != nil {
			s.logger.Warn().Err(err).Str("component", t.name).Bool("maintenance", enabled).Msg("pause/resume failed")
			errs = append(errs, fmt.Errorf("%s: %w", t.name, err))
		}
	}

	s.logger.Info().Bool("enabled", enabled).Int("components", len(targets)).Msg("maintenance mode changed")
	s.bus.Publish(ctx, s.event(events.MaintenanceModeChanged, events.MaintenanceModeChangedPayload{Enabled: enabled}))

	return errors.Join(errs...)
}

// MaintenanceMode reports whether maintenance mode is on.
func (s *Supervisor) MaintenanceMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maintenance
}

// transitionLocked moves e to a new status.
func (s *Supervisor) transitionLocked(ctx context.Context, e *entry, to Status) {
	from := e.record.Status
	if from == to {
		return
	}
	e.record.Status = to
	s.metrics.RecordTransition(ctx, e.def.Name, string(from), string(to))
	s.logger.Debug().
		Str("component", e.def.Name).
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("component status changed")
}

// markOnlineLocked brings e online and clears its failure streak.
func (s *Supervisor) markOnlineLocked(ctx context.Context, e *entry) {
	s.transitionLocked(ctx, e, StatusOnline)
	e.started = true
	e.record.RecoveryAttempts = 0
	e.record.LastError = ""
	e.exhausted = false
	e.backoff = nil
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

// computeStatusLocked derives the system status. An essential component
// that is not online makes the system critical.
func (s *Supervisor) computeStatusLocked() SystemStatus {
	if !s.running {
		return SystemStopped
	}

	degraded := s.perfDegraded
	for _, e := range s.entries {
		down := e.record.Status.failing() || e.record.Status == StatusRecovering
		if !down {
			continue
		}
		if e.def.Essential {
			return SystemCritical
		}
		degraded = true
	}

	if degraded {
		return SystemDegraded
	}
	return SystemHealthy
}

func (s *Supervisor) updateStatusLocked(out *outbox) {
	next := s.computeStatusLocked()
	if next == s.status {
		return
	}

	prev := s.status
	s.status = next
	s.logger.Info().Str("previous", string(prev)).Str("status", string(next)).Msg("supervisor status changed")
	out.events = append(out.events, s.event(events.SupervisorStatusChanged, events.SupervisorStatusChangedPayload{
		Previous: string(prev),
		Status:   string(next),
	}))
}

func (s *Supervisor) event(t events.Type, payload any) events.Event {
	return events.Event{Type: t, Time: s.now(), Payload: payload}
}

// flush publishes collected events and stores collected alerts.
func (s *Supervisor) flush(ctx context.Context, out outbox) {
	for _, e := range out.events {
		s.bus.Publish(ctx, e)
	}
	for _, a := range out.alerts {
		if s.alerts != nil {
			if err := s.alerts.Save(ctx, a); err != nil {
				s.logger.Error().Err(err).Str("alert_id", a.ID).Msg("failed to store alert")
			}
		}
		s.metrics.RecordAlert(ctx, string(a.Type), string(a.Severity))
		s.bus.Publish(ctx, events.NewAlertRaised(a))
	}
}

// safeCall runs fn, turning a panic into an error.
func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
