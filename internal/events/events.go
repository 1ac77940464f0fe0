// Package events is the supervisor's publish/subscribe bus. Producers publish
// typed events; subscribers never hold references back to producers.
package events

import (
	"time"

	"github.com/hearth-labs/hearth/internal/alerting"
)

// Type enumerates the events the bus carries.
type Type string

// Event types.
const (
	AlertRaised             Type = "alert-raised"
	HealthStatusChanged     Type = "health-status-changed"
	ComponentRecovered      Type = "component-recovered"
	ComponentFailed         Type = "component-failed"
	MaintenanceModeChanged  Type = "maintenance-mode-changed"
	MetricsCollectionFailed Type = "metrics-collection-failed"
	SupervisorStatusChanged Type = "supervisor-status-changed"
)

// Event is one bus message. Payload is one of the payload structs below,
// matching Type.
type Event struct {
	Type    Type      `json:"type"`
	Time    time.Time `json:"time"`
	Payload any       `json:"payload"`
}

// AlertRaisedPayload accompanies AlertRaised.
type AlertRaisedPayload struct {
	Alert alerting.Alert `json:"alert"`
}

// HealthStatusChangedPayload accompanies HealthStatusChanged.
type HealthStatusChangedPayload struct {
	Previous string  `json:"previous"`
	Overall  string  `json:"overall"`
	Score    float64 `json:"score"`
}

// ComponentRecoveredPayload accompanies ComponentRecovered.
type ComponentRecoveredPayload struct {
	Name     string `json:"name"`
	Attempts int    `json:"attempts"`
}

// ComponentFailedPayload accompanies ComponentFailed.
type ComponentFailedPayload struct {
	Name      string `json:"name"`
	Essential bool   `json:"essential"`
	Attempts  int    `json:"attempts"`
	Error     string `json:"error,omitempty"`
}

// MaintenanceModeChangedPayload accompanies MaintenanceModeChanged.
type MaintenanceModeChangedPayload struct {
	Enabled bool `json:"enabled"`
}

// MetricsCollectionFailedPayload accompanies MetricsCollectionFailed.
type MetricsCollectionFailedPayload struct {
	Error string `json:"error"`
}

// SupervisorStatusChangedPayload accompanies SupervisorStatusChanged.
type SupervisorStatusChangedPayload struct {
	Previous string `json:"previous"`
	Status   string `json:"status"`
}

// NewAlertRaised builds an AlertRaised event.
func NewAlertRaised(a alerting.Alert) Event {
	return Event{Type: AlertRaised, Time: a.Timestamp, Payload: AlertRaisedPayload{Alert: a}}
}
