// Package alerting evaluates metric samples against critical thresholds and
// emits rate-limited alerts.
package alerting

import (
	"errors"
	"fmt"
)

// ErrInvalidThresholds is returned when a threshold update would leave a
// negative limit in place.
var ErrInvalidThresholds = errors.New("invalid thresholds")

// Thresholds holds the soft and critical tier for every monitored metric.
// Soft tiers (Max*, Min*) drive health scoring; critical tiers drive alerts.
// A critical tier of zero disables alerting for that metric.
type Thresholds struct {
	MaxGPUMemoryGB      float64 `json:"maxGPUMemoryGB" yaml:"maxGPUMemoryGB"`
	CriticalGPUMemoryGB float64 `json:"criticalGPUMemoryGB" yaml:"criticalGPUMemoryGB"`

	MaxGPUUtilizationPct      float64 `json:"maxGPUUtilizationPct" yaml:"maxGPUUtilizationPct"`
	CriticalGPUUtilizationPct float64 `json:"criticalGPUUtilizationPct" yaml:"criticalGPUUtilizationPct"`

	MaxGPUTemperatureC      float64 `json:"maxGPUTemperatureC" yaml:"maxGPUTemperatureC"`
	CriticalGPUTemperatureC float64 `json:"criticalGPUTemperatureC" yaml:"criticalGPUTemperatureC"`

	MaxCPUUsagePct      float64 `json:"maxCPUUsagePct" yaml:"maxCPUUsagePct"`
	CriticalCPUUsagePct float64 `json:"criticalCPUUsagePct" yaml:"criticalCPUUsagePct"`

	MaxCPUTemperatureC      float64 `json:"maxCPUTemperatureC" yaml:"maxCPUTemperatureC"`
	CriticalCPUTemperatureC float64 `json:"criticalCPUTemperatureC" yaml:"criticalCPUTemperatureC"`

	MaxMemoryUsagePct      float64 `json:"maxMemoryUsagePct" yaml:"maxMemoryUsagePct"`
	CriticalMemoryUsagePct float64 `json:"criticalMemoryUsagePct" yaml:"criticalMemoryUsagePct"`
	MaxSwapUsedGB          float64 `json:"maxSwapUsedGB" yaml:"maxSwapUsedGB"`

	MinFPS      float64 `json:"minFPS" yaml:"minFPS"`
	CriticalFPS float64 `json:"criticalFPS" yaml:"criticalFPS"`

	MaxFrameTimeMs      float64 `json:"maxFrameTimeMs" yaml:"maxFrameTimeMs"`
	CriticalFrameTimeMs float64 `json:"criticalFrameTimeMs" yaml:"criticalFrameTimeMs"`
}

// DefaultThresholds returns the limits used when no configuration is given.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxGPUMemoryGB:            2.0,
		CriticalGPUMemoryGB:       1.8,
		MaxGPUUtilizationPct:      85,
		CriticalGPUUtilizationPct: 98,
		MaxGPUTemperatureC:        80,
		CriticalGPUTemperatureC:   90,
		MaxCPUUsagePct:            80,
		CriticalCPUUsagePct:       95,
		MaxCPUTemperatureC:        80,
		CriticalCPUTemperatureC:   90,
		MaxMemoryUsagePct:         80,
		CriticalMemoryUsagePct:    92,
		MaxSwapUsedGB:             1.0,
		MinFPS:                    30,
		CriticalFPS:               20,
		MaxFrameTimeMs:            33.3,
		CriticalFrameTimeMs:       50,
	}
}

// ThresholdsPatch is a partial update. Nil fields keep their current value.
type ThresholdsPatch struct {
	MaxGPUMemoryGB            *float64 `json:"maxGPUMemoryGB,omitempty"`
	CriticalGPUMemoryGB       *float64 `json:"criticalGPUMemoryGB,omitempty"`
	MaxGPUUtilizationPct      *float64 `json:"maxGPUUtilizationPct,omitempty"`
	CriticalGPUUtilizationPct *float64 `json:"criticalGPUUtilizationPct,omitempty"`
	MaxGPUTemperatureC        *float64 `json:"maxGPUTemperatureC,omitempty"`
	CriticalGPUTemperatureC   *float64 `json:"criticalGPUTemperatureC,omitempty"`
	MaxCPUUsagePct            *float64 `json:"maxCPUUsagePct,omitempty"`
	CriticalCPUUsagePct       *float64 `json:"criticalCPUUsagePct,omitempty"`
	MaxCPUTemperatureC        *float64 `json:"maxCPUTemperatureC,omitempty"`
	CriticalCPUTemperatureC   *float64 `json:"criticalCPUTemperatureC,omitempty"`
	MaxMemoryUsagePct         *float64 `json:"maxMemoryUsagePct,omitempty"`
	CriticalMemoryUsagePct    *float64 `json:"criticalMemoryUsagePct,omitempty"`
	MaxSwapUsedGB             *float64 `json:"maxSwapUsedGB,omitempty"`
	MinFPS                    *float64 `json:"minFPS,omitempty"`
	CriticalFPS               *float64 `json:"criticalFPS,omitempty"`
	MaxFrameTimeMs            *float64 `json:"maxFrameTimeMs,omitempty"`
	CriticalFrameTimeMs       *float64 `json:"criticalFrameTimeMs,omitempty"`
}

// Merge returns t with every non-nil field of p applied.
func (t Thresholds) Merge(p ThresholdsPatch) Thresholds {
	set := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}

	set(&t.MaxGPUMemoryGB, p.MaxGPUMemoryGB)
	set(&t.CriticalGPUMemoryGB, p.CriticalGPUMemoryGB)
	set(&t.MaxGPUUtilizationPct, p.MaxGPUUtilizationPct)
	set(&t.CriticalGPUUtilizationPct, p.CriticalGPUUtilizationPct)
	set(&t.MaxGPUTemperatureC, p.MaxGPUTemperatureC)
	set(&t.CriticalGPUTemperatureC, p.CriticalGPUTemperatureC)
	set(&t.MaxCPUUsagePct, p.MaxCPUUsagePct)
	set(&t.CriticalCPUUsagePct, p.CriticalCPUUsagePct)
	set(&t.MaxCPUTemperatureC, p.MaxCPUTemperatureC)
	set(&t.CriticalCPUTemperatureC, p.CriticalCPUTemperatureC)
	set(&t.MaxMemoryUsagePct, p.MaxMemoryUsagePct)
	set(&t.CriticalMemoryUsagePct, p.CriticalMemoryUsagePct)
	set(&t.MaxSwapUsedGB, p.MaxSwapUsedGB)
	set(&t.MinFPS, p.MinFPS)
	set(&t.CriticalFPS, p.CriticalFPS)
	set(&t.MaxFrameTimeMs, p.MaxFrameTimeMs)
	set(&t.CriticalFrameTimeMs, p.CriticalFrameTimeMs)

	return t
}

// Validate rejects negative limits.
func (t Thresholds) Validate() error {
	fields := map[string]float64{
		"maxGPUMemoryGB":            t.MaxGPUMemoryGB,
		"criticalGPUMemoryGB":       t.CriticalGPUMemoryGB,
		"maxGPUUtilizationPct":      t.MaxGPUUtilizationPct,
		"criticalGPUUtilizationPct": t.CriticalGPUUtilizationPct,
		"maxGPUTemperatureC":        t.MaxGPUTemperatureC,
		"criticalGPUTemperatureC":   t.CriticalGPUTemperatureC,
		"maxCPUUsagePct":            t.MaxCPUUsagePct,
		"criticalCPUUsagePct":       t.CriticalCPUUsagePct,
		"maxCPUTemperatureC":        t.MaxCPUTemperatureC,
		"criticalCPUTemperatureC":   t.CriticalCPUTemperatureC,
		"maxMemoryUsagePct":         t.MaxMemoryUsagePct,
		"criticalMemoryUsagePct":    t.CriticalMemoryUsagePct,
		"maxSwapUsedGB":             t.MaxSwapUsedGB,
		"minFPS":                    t.MinFPS,
		"criticalFPS":               t.CriticalFPS,
		"maxFrameTimeMs":            t.MaxFrameTimeMs,
		"criticalFrameTimeMs":       t.CriticalFrameTimeMs,
	}
	for name, v := range fields {
		if v < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidThresholds, name)
		}
	}
	return nil
}
