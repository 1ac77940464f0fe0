package config

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
	"sort"
	"time"
)

// ErrInvalidRuntime is returned when a runtime configuration fails
// validation.
var ErrInvalidRuntime = errors.New("invalid runtime configuration")

// Runtime is the part of the configuration that can change while the
// supervisor runs.
type Runtime struct {
	MetricsInterval     Duration `json:"metricsInterval" yaml:"metricsInterval"`
	HealthCheckInterval Duration `json:"healthCheckInterval" yaml:"healthCheckInterval"`
	AlertCooldown       Duration `json:"alertCooldown" yaml:"alertCooldown"`
	ScoreWindow         Duration `json:"scoreWindow" yaml:"scoreWindow"`
	RecoveryDelay       Duration `json:"recoveryDelay" yaml:"recoveryDelay"`
	RecoveryMultiplier  float64  `json:"recoveryMultiplier" yaml:"recoveryMultiplier"`
	MaxRecoveryAttempts int      `json:"maxRecoveryAttempts" yaml:"maxRecoveryAttempts"`
	TargetFPS           float64  `json:"targetFPS" yaml:"targetFPS"`

	// Settings holds opaque per-component settings keyed by component name.
	Settings map[string]map[string]any `json:"settings" yaml:"-"`
}

// DefaultRuntime returns the runtime defaults.
func DefaultRuntime() Runtime {
	return Runtime{
		MetricsInterval:     D(time.Second),
		HealthCheckInterval: D(10 * time.Second),
		AlertCooldown:       D(30 * time.Second),
		ScoreWindow:         D(30 * time.Second),
		RecoveryDelay:       D(5 * time.Second),
		RecoveryMultiplier:  1,
		MaxRecoveryAttempts: 3,
		TargetFPS:           30,
		Settings:            map[string]map[string]any{},
	}
}

// Validate checks that every interval is positive.
func (r Runtime) Validate() error {
	durations := []struct {
		name string
		d    Duration
	}{
		{"metricsInterval", r.MetricsInterval},
		{"healthCheckInterval", r.HealthCheckInterval},
		{"alertCooldown", r.AlertCooldown},
		{"scoreWindow", r.ScoreWindow},
		{"recoveryDelay", r.RecoveryDelay},
	}
	for _, f := range durations {
		if f.d.Duration <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrInvalidRuntime, f.name)
		}
	}
	if r.RecoveryMultiplier < 1 {
		return fmt.Errorf("%w: recoveryMultiplier must be at least 1", ErrInvalidRuntime)
	}
	if r.MaxRecoveryAttempts < 0 {
		return fmt.Errorf("%w: maxRecoveryAttempts must not be negative", ErrInvalidRuntime)
	}
	if r.TargetFPS <= 0 {
		return fmt.Errorf("%w: targetFPS must be positive", ErrInvalidRuntime)
	}
	return nil
}

// Clone returns a deep copy.
func (r Runtime) Clone() Runtime {
	out := r
	out.Settings = make(map[string]map[string]any, len(r.Settings))
	for name, s := range r.Settings {
		out.Settings[name] = maps.Clone(s)
	}
	return out
}

// RuntimePatch is a partial update to Runtime. Nil fields are left as they
// are. Settings are merged key by key; a nil value removes the key.
type RuntimePatch struct {
	MetricsInterval     *Duration                 `json:"metricsInterval,omitempty"`
	HealthCheckInterval *Duration                 `json:"healthCheckInterval,omitempty"`
	AlertCooldown       *Duration                 `json:"alertCooldown,omitempty"`
	ScoreWindow         *Duration                 `json:"scoreWindow,omitempty"`
	RecoveryDelay       *Duration                 `json:"recoveryDelay,omitempty"`
	RecoveryMultiplier  *float64                  `json:"recoveryMultiplier,omitempty"`
	MaxRecoveryAttempts *int                      `json:"maxRecoveryAttempts,omitempty"`
	TargetFPS           *float64                  `json:"targetFPS,omitempty"`
	Settings            map[string]map[string]any `json:"settings,omitempty"`
}

// Merge returns a copy of r with p applied.
func (r Runtime) Merge(p RuntimePatch) Runtime {
	out := r.Clone()

	if p.MetricsInterval != nil {
		out.MetricsInterval = *p.MetricsInterval
	}
	if p.HealthCheckInterval != nil {
		out.HealthCheckInterval = *p.HealthCheckInterval
	}
	if p.AlertCooldown != nil {
		out.AlertCooldown = *p.AlertCooldown
	}
	if p.ScoreWindow != nil {
		out.ScoreWindow = *p.ScoreWindow
	}
	if p.RecoveryDelay != nil {
		out.RecoveryDelay = *p.RecoveryDelay
	}
	if p.RecoveryMultiplier != nil {
		out.RecoveryMultiplier = *p.RecoveryMultiplier
	}
	if p.MaxRecoveryAttempts != nil {
		out.MaxRecoveryAttempts = *p.MaxRecoveryAttempts
	}
	if p.TargetFPS != nil {
		out.TargetFPS = *p.TargetFPS
	}

	for name, patch := range p.Settings {
		current := out.Settings[name]
		if current == nil {
			current = map[string]any{}
		}
		for k, v := range patch {
			if v == nil {
				delete(current, k)
				continue
			}
			current[k] = normalizeValue(v)
		}
		out.Settings[name] = current
	}

	return out
}

// ChangedSettings returns the sorted names of components whose settings
// differ between old and next.
func ChangedSettings(old, next Runtime) []string {
	seen := map[string]struct{}{}
	for name := range old.Settings {
		seen[name] = struct{}{}
	}
	for name := range next.Settings {
		seen[name] = struct{}{}
	}

	var changed []string
	for name := range seen {
		a, b := old.Settings[name], next.Settings[name]
		if len(a) == 0 && len(b) == 0 {
			continue
		}
		if !reflect.DeepEqual(NormalizeSettings(a), NormalizeSettings(b)) {
			changed = append(changed, name)
		}
	}
	sort.Strings(changed)
	return changed
}

// NormalizeSettings returns a copy of settings with values in the shape JSON
// decoding produces: every number becomes a float64 and nested maps and
// lists are normalized too. YAML and JSON sources then compare equal.
func NormalizeSettings(settings map[string]any) map[string]any {
	if settings == nil {
		return nil
	}
	out := make(map[string]any, len(settings))
	for k, v := range settings {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	case map[string]any:
		return NormalizeSettings(n)
	case map[any]any:
		out := make(map[string]any, len(n))
		for k, e := range n {
			out[fmt.Sprint(k)] = normalizeValue(e)
		}
		return out
	case []any:
		out := make([]any, len(n))
		for i, e := range n {
			out[i] = normalizeValue(e)
		}
		return out
	default:
		return v
	}
}
