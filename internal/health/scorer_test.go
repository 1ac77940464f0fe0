package health_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hearth-labs/hearth/internal/alerting"
	"github.com/hearth-labs/hearth/internal/health"
	"github.com/hearth-labs/hearth/internal/metrics"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func idle() metrics.Sample {
	return metrics.Sample{
		Timestamp: now,
		GPU:       metrics.GPU{MemoryUsedGB: 0.5, UtilizationPct: 20, TemperatureC: 50},
		CPU:       metrics.CPU{UsagePct: 15, TemperatureC: 45},
		Memory:    metrics.Memory{UsagePct: 30},
		Rendering: metrics.Rendering{FPS: 60, FrameTimeMs: 16.6},
	}
}

func TestScorer_NoSamplesIsUnknown(t *testing.T) {
	status := health.NewScorer().Compute(metrics.Sample{Timestamp: now}, 0, alerting.DefaultThresholds())

	assert.Equal(t, health.OverallUnknown, status.Overall)
	assert.Equal(t, 0.0, status.Score)
	assert.Empty(t, status.Recommendations)
}

func TestScorer_IdleSystemIsHealthy(t *testing.T) {
	status := health.NewScorer().Compute(idle(), 10, alerting.DefaultThresholds())

	assert.Equal(t, health.OverallHealthy, status.Overall)
	assert.Equal(t, 100.0, status.Score)
	assert.Equal(t, health.Domains{GPU: 100, CPU: 100, Memory: 100, Rendering: 100}, status.Domains)
	assert.Equal(t, 10, status.SampleCount)
	assert.Empty(t, status.Recommendations)
}

func TestScorer_RatioTiers(t *testing.T) {
	th := alerting.DefaultThresholds()
	scorer := health.NewScorer()

	tests := []struct {
		name  string
		cpu   float64
		score float64
	}{
		{"below 70 percent", 50, 100},
		{"above 70 percent", 60, 90},
		{"above 80 percent", 68, 80},
		{"above 90 percent", 76, 70},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := idle()
			s.CPU.UsagePct = tt.cpu
			assert.Equal(t, tt.score, scorer.Compute(s, 1, th).Domains.CPU)
		})
	}
}

func TestScorer_FixedPenalties(t *testing.T) {
	th := alerting.DefaultThresholds()
	scorer := health.NewScorer()

	s := idle()
	s.GPU.TemperatureC = 85
	s.Memory.SwapUsedGB = 1.5
	s.Rendering.FPS = 25
	s.Rendering.FrameTimeMs = 40

	status := scorer.Compute(s, 1, th)
	assert.Equal(t, 85.0, status.Domains.GPU)
	assert.Equal(t, 85.0, status.Domains.Memory)
	assert.Equal(t, 70.0, status.Domains.Rendering)

	s.GPU.TemperatureC = 95
	s.Rendering.FPS = 10
	status = scorer.Compute(s, 1, th)
	assert.Equal(t, 75.0, status.Domains.GPU)
	assert.Equal(t, 60.0, status.Domains.Rendering)
}

func TestScorer_WorstCaseGPUPenalties(t *testing.T) {
	th := alerting.DefaultThresholds()
	th.MaxGPUMemoryGB = 0.1
	th.MaxGPUUtilizationPct = 1

	s := idle()
	s.GPU.TemperatureC = 120
	s.GPU.UtilizationPct = 100
	s.GPU.MemoryUsedGB = 4

	status := health.NewScorer().Compute(s, 1, th)
	assert.Equal(t, 15.0, status.Domains.GPU)
}

func TestScorer_OverallClassification(t *testing.T) {
	th := alerting.DefaultThresholds()
	scorer := health.NewScorer()

	// GPU 40, CPU 70, Memory 55, Rendering 60 -> 56.25
	s := idle()
	s.GPU.MemoryUsedGB = 1.9
	s.GPU.UtilizationPct = 80
	s.CPU.UsagePct = 76
	s.Memory.UsagePct = 78
	s.Memory.SwapUsedGB = 2
	s.Rendering.FPS = 15
	s.Rendering.FrameTimeMs = 60

	status := scorer.Compute(s, 1, th)
	assert.Equal(t, health.OverallCritical, status.Overall)
	assert.InDelta(t, 56.25, status.Score, 0.001)
	assert.True(t, status.Overall.Degraded())
	assert.Contains(t, status.Recommendations, "Unload unused assets")

	// Only CPU and memory pressure: 100, 70, 70, 100 -> 85
	s = idle()
	s.CPU.UsagePct = 76
	s.Memory.UsagePct = 78
	status = scorer.Compute(s, 1, th)
	assert.Equal(t, health.OverallHealthy, status.Overall)

	// 100, 70, 55, 70 -> 73.75
	s.Memory.SwapUsedGB = 2
	s.Rendering.FPS = 15
	status = scorer.Compute(s, 1, th)
	assert.Equal(t, health.OverallWarning, status.Overall)
	assert.False(t, health.OverallHealthy.Degraded())
}
