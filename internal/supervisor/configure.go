package supervisor

import (
	"context"
	"maps"
	"slices"

	"github.com/hearth-labs/hearth/internal/config"
)

// Configuration returns a copy of the current runtime configuration.
func (s *Supervisor) Configuration() config.Runtime {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runtime.Clone()
}

type reconfigureTarget struct {
	name string
	r    Reconfigurer
}

// UpdateConfiguration merges patch into the runtime configuration and
// applies it. Components whose settings changed are reconfigured, then every
// ConfigListener is notified. If any step fails, the steps already applied
// are reverted with the previous values and the old configuration is kept.
func (s *Supervisor) UpdateConfiguration(ctx context.Context, patch config.RuntimePatch) (config.Runtime, error) {
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()

	s.mu.Lock()
	old := s.runtime.Clone()
	next := old.Merge(patch)
	if err := next.Validate(); err != nil {
		s.mu.Unlock()
		return old, &ConfigurationApplyError{Err: err}
	}

	var targets []reconfigureTarget
	for _, name := range config.ChangedSettings(old, next) {
		e, ok := s.entries[name]
		if !ok || e.def.Reconfigurer == nil {
			continue
		}
		targets = append(targets, reconfigureTarget{name: name, r: e.def.Reconfigurer})
	}
	listeners := slices.Clone(s.listeners)
	s.mu.Unlock()

	var applied []reconfigureTarget
	revert := func() {
		for i := len(applied) - 1; i >= 0; i-- {
			t := applied[i]
			if err := safeCall(func() error { return t.r.Reconfigure(ctx, settingsFor(old, t.name)) }); err != nil {
				s.logger.Error().Err(err).Str("component", t.name).Msg("failed to revert component configuration")
			}
		}
	}

	for _, t := range targets {
		if err := safeCall(func() error { return t.r.Reconfigure(ctx, settingsFor(next, t.name)) }); err != nil {
			s.logger.Warn().Err(err).Str("component", t.name).Msg("component rejected configuration")
			revert()
			return old, &ConfigurationApplyError{Component: t.name, Err: err}
		}
		applied = append(applied, t)
	}

	for i, l := range listeners {
		if err := l.ApplyConfiguration(ctx, old, next); err != nil {
			s.logger.Warn().Err(err).Msg("configuration listener rejected update")
			for j := i - 1; j >= 0; j-- {
				if rerr := listeners[j].ApplyConfiguration(ctx, next, old); rerr != nil {
					s.logger.Error().Err(rerr).Msg("failed to revert configuration listener")
				}
			}
			revert()
			return old, &ConfigurationApplyError{Err: err}
		}
	}

	s.mu.Lock()
	s.runtime = next.Clone()
	if next.HealthCheckInterval != old.HealthCheckInterval && s.ticker != nil {
		s.ticker.Reset(next.HealthCheckInterval.Duration)
	}
	s.mu.Unlock()

	s.logger.Info().
		Int("reconfigured", len(applied)).
		Dur("health_check_interval", next.HealthCheckInterval.Duration).
		Int("max_recovery_attempts", next.MaxRecoveryAttempts).
		Msg("configuration updated")

	return next, nil
}

func settingsFor(r config.Runtime, name string) map[string]any {
	if settings, ok := r.Settings[name]; ok {
		return maps.Clone(settings)
	}
	return map[string]any{}
}
