// Package control applies operator commands received over Pub/Sub to the
// supervisor and the metrics monitor.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/hearth-labs/hearth/internal/alerting"
	"github.com/hearth-labs/hearth/internal/config"
	"github.com/hearth-labs/hearth/internal/supervisor"
)

// ErrMalformedCommand marks a command that can never succeed. Such messages
// are acknowledged instead of redelivered.
var ErrMalformedCommand = errors.New("malformed command")

// Command types.
const (
	CommandRecover             = "recover"
	CommandMaintenance         = "maintenance"
	CommandCheckHealth         = "check_health"
	CommandUpdateThresholds    = "update_thresholds"
	CommandUpdateConfiguration = "update_configuration"
)

// Command is the JSON body of a control message.
type Command struct {
	Type          string                    `json:"type"`
	Component     string                    `json:"component,omitempty"`
	Enabled       *bool                     `json:"enabled,omitempty"`
	Thresholds    *alerting.ThresholdsPatch `json:"thresholds,omitempty"`
	Configuration *config.RuntimePatch      `json:"configuration,omitempty"`
}

// Supervisor is the part of the supervisor commands act on.
type Supervisor interface {
	Recover(ctx context.Context, name string) error
	SetMaintenanceMode(ctx context.Context, enabled bool) error
	CheckHealth(ctx context.Context) error
	UpdateConfiguration(ctx context.Context, patch config.RuntimePatch) (config.Runtime, error)
}

// ThresholdUpdater changes alert thresholds.
type ThresholdUpdater interface {
	UpdateThresholds(patch alerting.ThresholdsPatch) (alerting.Thresholds, error)
}

// Handler decodes and applies commands.
type Handler struct {
	supervisor Supervisor
	thresholds ThresholdUpdater
	logger     zerolog.Logger
}

// NewHandler creates a command handler.
func NewHandler(sup Supervisor, thresholds ThresholdUpdater, logger zerolog.Logger) *Handler {
	return &Handler{supervisor: sup, thresholds: thresholds, logger: logger}
}

// Handle applies one encoded command.
func (h *Handler) Handle(ctx context.Context, data []byte) error {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedCommand, err)
	}
	return h.Apply(ctx, cmd)
}

// Apply runs a decoded command.
func (h *Handler) Apply(ctx context.Context, cmd Command) error {
	log := h.logger.With().Str("command", cmd.Type).Logger()

	switch cmd.Type {
	case CommandRecover:
		if cmd.Component == "" {
			return fmt.Errorf("%w: recover needs a component", ErrMalformedCommand)
		}
		log.Info().Str("component", cmd.Component).Msg("manual recovery requested")
		return h.supervisor.Recover(ctx, cmd.Component)

	case CommandMaintenance:
		if cmd.Enabled == nil {
			return fmt.Errorf("%w: maintenance needs enabled", ErrMalformedCommand)
		}
		log.Info().Bool("enabled", *cmd.Enabled).Msg("maintenance mode requested")
		return h.supervisor.SetMaintenanceMode(ctx, *cmd.Enabled)

	case CommandCheckHealth:
		return h.supervisor.CheckHealth(ctx)

	case CommandUpdateThresholds:
		if cmd.Thresholds == nil {
			return fmt.Errorf("%w: update_thresholds needs thresholds", ErrMalformedCommand)
		}
		if _, err := h.thresholds.UpdateThresholds(*cmd.Thresholds); err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedCommand, err)
		}
		return nil

	case CommandUpdateConfiguration:
		if cmd.Configuration == nil {
			return fmt.Errorf("%w: update_configuration needs configuration", ErrMalformedCommand)
		}
		_, err := h.supervisor.UpdateConfiguration(ctx, *cmd.Configuration)
		return err

	default:
		return fmt.Errorf("%w: unknown type %q", ErrMalformedCommand, cmd.Type)
	}
}

// Retryable reports whether a failed command should be redelivered.
func Retryable(err error) bool {
	switch {
	case errors.Is(err, ErrMalformedCommand),
		errors.Is(err, supervisor.ErrComponentNotFound),
		errors.Is(err, config.ErrInvalidRuntime):
		return false
	default:
		return true
	}
}
