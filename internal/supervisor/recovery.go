package supervisor

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/hearth-labs/hearth/internal/alerting"
	"github.com/hearth-labs/hearth/internal/events"
)

// maxRecoveryInterval caps the delay between automatic attempts when a
// multiplier above one is configured.
const maxRecoveryInterval = 5 * time.Minute

// Recover runs an immediate recovery of the named component. Any pending
// automatic attempt is cancelled and replaced by this one.
func (s *Supervisor) Recover(ctx context.Context, name string) error {
	return s.recover(ctx, name, false)
}

func (s *Supervisor) newRecoveryBackoff() backoff.BackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.runtime.RecoveryDelay.Duration
	bo.Multiplier = s.runtime.RecoveryMultiplier
	bo.RandomizationFactor = 0
	bo.MaxInterval = max(maxRecoveryInterval, bo.InitialInterval)
	bo.MaxElapsedTime = 0
	bo.Reset()
	return bo
}

// scheduleRecoveryLocked arms the automatic recovery timer for a failing
// non-essential component. Once the attempt budget is spent a single
// persistent-failure alert is raised and nothing more is scheduled.
func (s *Supervisor) scheduleRecoveryLocked(e *entry, out *outbox) {
	if e.def.Essential || !s.running || e.timer != nil {
		return
	}

	if e.record.RecoveryAttempts >= s.runtime.MaxRecoveryAttempts {
		if e.exhausted {
			return
		}
		e.exhausted = true
		s.logger.Error().
			Str("component", e.def.Name).
			Int("attempts", e.record.RecoveryAttempts).
			Str("last_error", e.record.LastError).
			Msg("component recovery attempts exhausted")
		out.alerts = append(out.alerts, alerting.NewComponentFailureAlert(
			e.def.Name, e.record.RecoveryAttempts, e.record.LastError, s.now(),
		))
		return
	}

	if e.backoff == nil {
		e.backoff = s.newRecoveryBackoff()
	}
	delay := e.backoff.NextBackOff()
	if delay == backoff.Stop {
		delay = s.runtime.RecoveryDelay.Duration
	}

	name, gen := e.def.Name, s.generation
	e.timer = time.AfterFunc(delay, func() { s.autoRecover(name, gen) })

	s.logger.Debug().
		Str("component", name).
		Dur("delay", delay).
		Int("attempt", e.record.RecoveryAttempts+1).
		Msg("recovery scheduled")
}

// autoRecover is the timer callback. It is a no-op when the supervisor was
// stopped or restarted since the timer was armed.
func (s *Supervisor) autoRecover(name string, gen uint64) {
	s.mu.Lock()
	if !s.running || s.generation != gen {
		s.mu.Unlock()
		return
	}
	e, ok := s.entries[name]
	if !ok {
		s.mu.Unlock()
		return
	}
	e.timer = nil
	if !e.record.Status.failing() {
		s.mu.Unlock()
		return
	}
	ctx := s.baseCtx
	s.mu.Unlock()

	_ = s.recover(ctx, name, true)
}

func (s *Supervisor) recover(ctx context.Context, name string, automatic bool) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	e, ok := s.entries[name]
	if !ok {
		s.mu.Unlock()
		return ErrComponentNotFound
	}
	if e.record.Status == StatusRecovering {
		s.mu.Unlock()
		return ErrRecoveryInProgress
	}
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}

	s.transitionLocked(ctx, e, StatusRecovering)
	e.record.RecoveryAttempts++
	attempt := e.record.RecoveryAttempts
	gen := s.generation
	comp := e.def.Component

	var out outbox
	s.updateStatusLocked(&out)
	s.mu.Unlock()
	s.flush(ctx, out)

	log := s.logger.With().Str("component", name).Int("attempt", attempt).Bool("automatic", automatic).Logger()
	log.Info().Msg("recovering component")

	err := safeCall(func() error { return comp.Recover(ctx) })
	s.metrics.RecordRecoveryAttempt(ctx, name, automatic, err)
	now := s.now()

	out = outbox{}
	s.mu.Lock()
	if !s.running || s.generation != gen {
		s.mu.Unlock()
		return ErrNotRunning
	}
	e, ok = s.entries[name]
	if !ok || e.record.Status != StatusRecovering {
		s.mu.Unlock()
		return ErrComponentNotFound
	}

	if err != nil {
		recErr := &RecoveryError{Component: name, Attempt: attempt, Err: err}
		e.record.LastError = recErr.Error()
		s.transitionLocked(ctx, e, StatusError)
		out.events = append(out.events, s.event(events.ComponentFailed, events.ComponentFailedPayload{
			Name:      name,
			Essential: e.def.Essential,
			Attempts:  attempt,
			Error:     recErr.Error(),
		}))
		s.scheduleRecoveryLocked(e, &out)
		s.updateStatusLocked(&out)
		s.mu.Unlock()

		log.Warn().Err(err).Msg("component recovery failed")
		s.flush(ctx, out)
		return recErr
	}

	s.markOnlineLocked(ctx, e)
	e.record.StartedAt = &now
	var pauser Pauser
	if s.maintenance && !e.def.Essential {
		pauser = e.def.Pauser
	}
	out.events = append(out.events, s.event(events.ComponentRecovered, events.ComponentRecoveredPayload{
		Name:     name,
		Attempts: attempt,
	}))
	s.updateStatusLocked(&out)
	s.mu.Unlock()

	log.Info().Msg("component recovered")
	s.flush(ctx, out)

	if pauser != nil {
		if err := safeCall(func() error { return pauser.Pause(ctx) }); err != nil {
			log.Warn().Err(err).Msg("failed to re-pause recovered component")
		}
	}
	return nil
}
