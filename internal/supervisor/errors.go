package supervisor

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by supervisor operations.
var (
	ErrComponentNotFound  = errors.New("component not found")
	ErrRecoveryInProgress = errors.New("recovery already in progress")
	ErrNotRunning         = errors.New("supervisor is not running")
	ErrAlreadyRunning     = errors.New("supervisor is already running")
)

// InitializationError reports a component whose Init failed. When Essential
// is set the whole start was aborted.
type InitializationError struct {
	Component string
	Essential bool
	Err       error
}

func (e *InitializationError) Error() string {
	kind := "non-essential"
	if e.Essential {
		kind = "essential"
	}
	return fmt.Sprintf("initializing %s component %s: %v", kind, e.Component, e.Err)
}

func (e *InitializationError) Unwrap() error { return e.Err }

// HealthCheckError reports a failed health check.
type HealthCheckError struct {
	Component string
	Err       error
}

func (e *HealthCheckError) Error() string {
	return fmt.Sprintf("health check %s: %v", e.Component, e.Err)
}

func (e *HealthCheckError) Unwrap() error { return e.Err }

// RecoveryError reports a failed recovery attempt.
type RecoveryError struct {
	Component string
	Attempt   int
	Err       error
}

func (e *RecoveryError) Error() string {
	return fmt.Sprintf("recovering %s (attempt %d): %v", e.Component, e.Attempt, e.Err)
}

func (e *RecoveryError) Unwrap() error { return e.Err }

// ConfigurationApplyError reports a configuration update that was rolled
// back. Component is empty when validation or a listener failed.
type ConfigurationApplyError struct {
	Component string
	Err       error
}

func (e *ConfigurationApplyError) Error() string {
	if e.Component == "" {
		return fmt.Sprintf("applying configuration: %v", e.Err)
	}
	return fmt.Sprintf("applying configuration to %s: %v", e.Component, e.Err)
}

func (e *ConfigurationApplyError) Unwrap() error { return e.Err }
