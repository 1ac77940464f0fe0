package alerting

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hearth-labs/hearth/internal/metrics"
)

// Severity classifies an alert.
type Severity string

// Alert severities.
const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// AlertType identifies the condition an alert reports. Cooldown is tracked
// per type.
type AlertType string

// Alert types.
const (
	TypeGPUMemory        AlertType = "gpu_memory"
	TypeGPUUtilization   AlertType = "gpu_utilization"
	TypeGPUTemperature   AlertType = "gpu_temperature"
	TypeCPUUsage         AlertType = "cpu_usage"
	TypeCPUTemperature   AlertType = "cpu_temperature"
	TypeMemoryUsage      AlertType = "memory_usage"
	TypeLowFPS           AlertType = "low_fps"
	TypeFrameTime        AlertType = "frame_time"
	TypeComponentFailure AlertType = "component_failure"
)

// Alert is one emitted threshold breach.
type Alert struct {
	ID              string          `json:"id"`
	Type            AlertType       `json:"type"`
	Severity        Severity        `json:"severity"`
	Message         string          `json:"message"`
	Timestamp       time.Time       `json:"timestamp"`
	Value           float64         `json:"value"`
	Threshold       float64         `json:"threshold"`
	Sample          *metrics.Sample `json:"sample,omitempty"`
	Recommendations []string        `json:"recommendations"`
}

// NewComponentFailureAlert reports a component that stayed failed after its
// automatic recovery budget was spent.
func NewComponentFailureAlert(component string, attempts int, lastErr string, at time.Time) Alert {
	msg := fmt.Sprintf("component %s failed after %d recovery attempts", component, attempts)
	if lastErr != "" {
		msg += ": " + lastErr
	}

	return Alert{
		ID:        uuid.NewString(),
		Type:      TypeComponentFailure,
		Severity:  SeverityCritical,
		Message:   msg,
		Timestamp: at,
		Value:     float64(attempts),
		Recommendations: []string{
			"Inspect the " + component + " logs for the root cause",
			"Trigger a manual recovery once the cause is fixed",
		},
	}
}
