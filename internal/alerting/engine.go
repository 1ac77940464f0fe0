package alerting

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hearth-labs/hearth/internal/metrics"
)

// DefaultCooldown is the minimum time between two alerts of the same type.
const DefaultCooldown = 30 * time.Second

// rule describes how one metric is compared against its critical tier.
type rule struct {
	alertType       AlertType
	label           string
	unit            string
	below           bool // breach when the value drops under the limit
	value           func(metrics.Sample) float64
	limit           func(Thresholds) float64
	recommendations []string
}

var rules = []rule{
	{
		alertType: TypeGPUMemory,
		label:     "GPU memory",
		unit:      "GB",
		value:     func(s metrics.Sample) float64 { return s.GPU.MemoryUsedGB },
		limit:     func(t Thresholds) float64 { return t.CriticalGPUMemoryGB },
		recommendations: []string{
			"Reduce texture quality",
			"Unload unused assets",
			"Lower avatar level of detail",
		},
	},
	{
		alertType: TypeGPUUtilization,
		label:     "GPU utilization",
		unit:      "%",
		value:     func(s metrics.Sample) float64 { return s.GPU.UtilizationPct },
		limit:     func(t Thresholds) float64 { return t.CriticalGPUUtilizationPct },
		recommendations: []string{
			"Lower rendering resolution",
			"Disable post-processing effects",
			"Cap the frame rate",
		},
	},
	{
		alertType: TypeGPUTemperature,
		label:     "GPU temperature",
		unit:      "°C",
		value:     func(s metrics.Sample) float64 { return s.GPU.TemperatureC },
		limit:     func(t Thresholds) float64 { return t.CriticalGPUTemperatureC },
		recommendations: []string{
			"Cap the frame rate to reduce GPU load",
			"Disable expensive shader effects",
			"Check device ventilation",
		},
	},
	{
		alertType: TypeCPUUsage,
		label:     "CPU usage",
		unit:      "%",
		value:     func(s metrics.Sample) float64 { return s.CPU.UsagePct },
		limit:     func(t Thresholds) float64 { return t.CriticalCPUUsagePct },
		recommendations: []string{
			"Pause non-essential background work",
			"Reduce animation update frequency",
			"Defer content generation tasks",
		},
	},
	{
		alertType: TypeCPUTemperature,
		label:     "CPU temperature",
		unit:      "°C",
		value:     func(s metrics.Sample) float64 { return s.CPU.TemperatureC },
		limit:     func(t Thresholds) float64 { return t.CriticalCPUTemperatureC },
		recommendations: []string{
			"Pause non-essential background work",
			"Lower the simulation tick rate",
		},
	},
	{
		alertType: TypeMemoryUsage,
		label:     "Memory usage",
		unit:      "%",
		value:     func(s metrics.Sample) float64 { return s.Memory.UsagePct },
		limit:     func(t Thresholds) float64 { return t.CriticalMemoryUsagePct },
		recommendations: []string{
			"Unload unused assets",
			"Clear content caches",
			"Restart memory-heavy non-essential components",
		},
	},
	{
		alertType: TypeLowFPS,
		label:     "Frame rate",
		unit:      "fps",
		below:     true,
		value:     func(s metrics.Sample) float64 { return s.Rendering.FPS },
		limit:     func(t Thresholds) float64 { return t.CriticalFPS },
		recommendations: []string{
			"Enable adaptive quality",
			"Reduce texture quality",
			"Lower avatar level of detail",
			"Disable shadows and reflections",
		},
	},
	{
		alertType: TypeFrameTime,
		label:     "Frame time",
		unit:      "ms",
		value:     func(s metrics.Sample) float64 { return s.Rendering.FrameTimeMs },
		limit:     func(t Thresholds) float64 { return t.CriticalFrameTimeMs },
		recommendations: []string{
			"Batch meshes to reduce draw calls",
			"Disable post-processing effects",
			"Lower rendering resolution",
		},
	},
}

// breached reports whether v crosses limit. A zero limit disables the rule,
// and a zero reading never counts as a low-side breach since it means the
// source reported nothing.
func (r rule) breached(v, limit float64) bool {
	if limit <= 0 {
		return false
	}
	if r.below {
		return v > 0 && v < limit
	}
	return v > limit
}

// EngineConfig holds configuration for the alert engine.
type EngineConfig struct {
	// Thresholds are the initial limits.
	// Default: DefaultThresholds()
	Thresholds *Thresholds

	// Cooldown is the minimum time between two alerts of one type.
	// Default: 30 seconds
	Cooldown time.Duration

	// Now is used when a sample carries no timestamp.
	// Default: time.Now
	Now func() time.Time
}

// Engine compares samples against critical thresholds and suppresses repeat
// alerts of the same type within the cooldown.
type Engine struct {
	mu         sync.Mutex
	thresholds Thresholds
	cooldown   time.Duration
	lastFired  map[AlertType]time.Time
	now        func() time.Time
}

// NewEngine creates an alert engine.
func NewEngine(cfg EngineConfig) *Engine {
	thresholds := DefaultThresholds()
	if cfg.Thresholds != nil {
		thresholds = *cfg.Thresholds
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Engine{
		thresholds: thresholds,
		cooldown:   cfg.Cooldown,
		lastFired:  make(map[AlertType]time.Time),
		now:        cfg.Now,
	}
}

// Check evaluates the sample against every critical tier and returns the
// alerts that are not suppressed by cooldown. The cooldown clock is the
// sample timestamp.
func (e *Engine) Check(sample metrics.Sample) []Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	at := sample.Timestamp
	if at.IsZero() {
		at = e.now()
	}

	var alerts []Alert
	for _, r := range rules {
		value := r.value(sample)
		limit := r.limit(e.thresholds)
		if !r.breached(value, limit) {
			continue
		}

		if last, ok := e.lastFired[r.alertType]; ok && at.Sub(last) < e.cooldown {
			continue
		}
		e.lastFired[r.alertType] = at

		snapshot := sample
		alerts = append(alerts, Alert{
			ID:              uuid.NewString(),
			Type:            r.alertType,
			Severity:        SeverityCritical,
			Message:         r.message(value, limit),
			Timestamp:       at,
			Value:           value,
			Threshold:       limit,
			Sample:          &snapshot,
			Recommendations: append([]string(nil), r.recommendations...),
		})
	}

	return alerts
}

func (r rule) message(value, limit float64) string {
	direction := "above"
	if r.below {
		direction = "below"
	}
	return fmt.Sprintf("%s at %.2f%s is %s the critical threshold of %.2f%s",
		r.label, value, r.unit, direction, limit, r.unit)
}

// Thresholds returns the current limits.
func (e *Engine) Thresholds() Thresholds {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.thresholds
}

// UpdateThresholds merges the patch into the current limits. Cooldown state
// is kept.
func (e *Engine) UpdateThresholds(patch ThresholdsPatch) (Thresholds, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	merged := e.thresholds.Merge(patch)
	if err := merged.Validate(); err != nil {
		return e.thresholds, err
	}
	e.thresholds = merged
	return merged, nil
}

// Cooldown returns the current cooldown.
func (e *Engine) Cooldown() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cooldown
}

// SetCooldown changes the cooldown for subsequent checks.
func (e *Engine) SetCooldown(d time.Duration) {
	if d <= 0 {
		d = DefaultCooldown
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cooldown = d
}
