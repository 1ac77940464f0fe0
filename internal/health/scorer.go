// Package health turns averaged metric samples into per-domain scores and an
// overall system health status.
package health

import (
	"time"

	"github.com/hearth-labs/hearth/internal/alerting"
	"github.com/hearth-labs/hearth/internal/metrics"
)

// Overall is the coarse system health state.
type Overall string

// Overall states.
const (
	OverallHealthy  Overall = "healthy"
	OverallWarning  Overall = "warning"
	OverallCritical Overall = "critical"
	OverallUnknown  Overall = "unknown"
)

// Degraded reports whether the state calls for optimization.
func (o Overall) Degraded() bool {
	return o == OverallWarning || o == OverallCritical
}

// Domains holds one 0-100 score per resource domain.
type Domains struct {
	GPU       float64 `json:"gpu"`
	CPU       float64 `json:"cpu"`
	Memory    float64 `json:"memory"`
	Rendering float64 `json:"rendering"`
}

// Status is the result of one scoring pass.
type Status struct {
	Overall         Overall   `json:"overall"`
	Score           float64   `json:"score"`
	Domains         Domains   `json:"domains"`
	Recommendations []string  `json:"recommendations"`
	SampleCount     int       `json:"sampleCount"`
	ComputedAt      time.Time `json:"computedAt"`
}

// UnknownStatus is reported before any sample has been scored.
func UnknownStatus(at time.Time) Status {
	return Status{
		Overall:         OverallUnknown,
		Recommendations: []string{},
		ComputedAt:      at,
	}
}

const (
	healthyAbove   = 80
	warningAbove   = 60
	recommendBelow = 70
)

// Scorer computes health scores. It holds no state between calls.
type Scorer struct{}

// NewScorer creates a Scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Compute scores avg, the mean of count samples, against the soft tiers in
// th. A count of zero yields an unknown status.
func (s *Scorer) Compute(avg metrics.Sample, count int, th alerting.Thresholds) Status {
	if count == 0 {
		return UnknownStatus(avg.Timestamp)
	}

	domains := Domains{
		GPU:       gpuScore(avg.GPU, th),
		CPU:       cpuScore(avg.CPU, th),
		Memory:    memoryScore(avg.Memory, th),
		Rendering: renderingScore(avg.Rendering, th),
	}
	score := (domains.GPU + domains.CPU + domains.Memory + domains.Rendering) / 4

	return Status{
		Overall:         classify(score),
		Score:           score,
		Domains:         domains,
		Recommendations: recommend(domains),
		SampleCount:     count,
		ComputedAt:      avg.Timestamp,
	}
}

func classify(score float64) Overall {
	switch {
	case score > healthyAbove:
		return OverallHealthy
	case score > warningAbove:
		return OverallWarning
	default:
		return OverallCritical
	}
}

// ratioPenalty grades how close value is to limit.
func ratioPenalty(value, limit float64) float64 {
	if limit <= 0 {
		return 0
	}
	switch ratio := value / limit; {
	case ratio > 0.9:
		return 30
	case ratio > 0.8:
		return 20
	case ratio > 0.7:
		return 10
	default:
		return 0
	}
}

func temperaturePenalty(value, soft, critical float64) float64 {
	switch {
	case critical > 0 && value > critical:
		return 25
	case soft > 0 && value > soft:
		return 15
	default:
		return 0
	}
}

func floor(score float64) float64 {
	if score < 0 {
		return 0
	}
	return score
}

func gpuScore(g metrics.GPU, th alerting.Thresholds) float64 {
	score := 100.0
	score -= ratioPenalty(g.MemoryUsedGB, th.MaxGPUMemoryGB)
	score -= ratioPenalty(g.UtilizationPct, th.MaxGPUUtilizationPct)
	score -= temperaturePenalty(g.TemperatureC, th.MaxGPUTemperatureC, th.CriticalGPUTemperatureC)
	return floor(score)
}

func cpuScore(c metrics.CPU, th alerting.Thresholds) float64 {
	score := 100.0
	score -= ratioPenalty(c.UsagePct, th.MaxCPUUsagePct)
	score -= temperaturePenalty(c.TemperatureC, th.MaxCPUTemperatureC, th.CriticalCPUTemperatureC)
	return floor(score)
}

func memoryScore(m metrics.Memory, th alerting.Thresholds) float64 {
	score := 100.0
	score -= ratioPenalty(m.UsagePct, th.MaxMemoryUsagePct)
	if th.MaxSwapUsedGB > 0 && m.SwapUsedGB > th.MaxSwapUsedGB {
		score -= 15
	}
	return floor(score)
}

func renderingScore(r metrics.Rendering, th alerting.Thresholds) float64 {
	score := 100.0

	// Zero FPS means no renderer is reporting.
	if r.FPS > 0 {
		switch {
		case th.CriticalFPS > 0 && r.FPS < th.CriticalFPS:
			score -= 30
		case th.MinFPS > 0 && r.FPS < th.MinFPS:
			score -= 20
		}
	}
	if th.MaxFrameTimeMs > 0 && r.FrameTimeMs > th.MaxFrameTimeMs {
		score -= 10
	}
	return floor(score)
}

func recommend(d Domains) []string {
	recs := []string{}
	if d.GPU < recommendBelow {
		recs = append(recs, "Reduce texture quality to relieve GPU memory", "Lower rendering resolution")
	}
	if d.CPU < recommendBelow {
		recs = append(recs, "Pause non-essential background work")
	}
	if d.Memory < recommendBelow {
		recs = append(recs, "Unload unused assets", "Clear content caches")
	}
	if d.Rendering < recommendBelow {
		recs = append(recs, "Enable adaptive quality to stabilize the frame rate")
	}
	return recs
}
