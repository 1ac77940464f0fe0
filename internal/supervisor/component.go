// Package supervisor drives the lifecycle of named subsystem components:
// ordered start, periodic health checks, bounded automatic recovery and
// system-wide status.
package supervisor

import (
	"context"
	"time"
)

// Component is the capability every supervised subsystem provides.
type Component interface {
	// Init starts the component. An error leaves it in the error state.
	Init(ctx context.Context) error

	// HealthCheck returns nil when the component is healthy.
	HealthCheck(ctx context.Context) error

	// Recover attempts to bring a failed component back.
	Recover(ctx context.Context) error

	// Shutdown stops the component.
	Shutdown(ctx context.Context) error
}

// Pauser is the optional capability to suspend background work.
type Pauser interface {
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
}

// Reconfigurer is the optional capability to accept new settings at runtime.
type Reconfigurer interface {
	Reconfigure(ctx context.Context, settings map[string]any) error
}

// Definition declares a component to the supervisor. Optional capabilities
// are nil when the component does not provide them.
type Definition struct {
	Name         string
	Essential    bool
	Component    Component
	Pauser       Pauser
	Reconfigurer Reconfigurer
}

// Status is a component lifecycle state.
type Status string

// Component states. Offline is held by every record while Stop shuts the
// components down, until the registry is cleared.
const (
	StatusOnline     Status = "online"
	StatusOffline    Status = "offline"
	StatusError      Status = "error"
	StatusRecovering Status = "recovering"
)

// failing reports whether the state counts against system status.
func (s Status) failing() bool {
	return s == StatusError || s == StatusOffline
}

// Record is the supervisor's view of one component.
type Record struct {
	Name             string     `json:"name"`
	Status           Status     `json:"status"`
	Essential        bool       `json:"essential"`
	Pausable         bool       `json:"pausable"`
	RecoveryAttempts int        `json:"recoveryAttempts"`
	LastHealthCheck  *time.Time `json:"lastHealthCheck,omitempty"`
	StartedAt        *time.Time `json:"startedAt,omitempty"`
	LastError        string     `json:"lastError,omitempty"`
}

// SystemStatus is the supervisor-wide state.
type SystemStatus string

// System states. Stopped is reported before Start and after Stop.
const (
	SystemHealthy  SystemStatus = "healthy"
	SystemDegraded SystemStatus = "degraded"
	SystemCritical SystemStatus = "critical"
	SystemStopped  SystemStatus = "stopped"
)
