package events

import (
	"context"

	"github.com/rs/zerolog"
)

// LogSink returns a Handler that writes every event to logger.
func LogSink(logger zerolog.Logger) Handler {
	return func(_ context.Context, e Event) {
		var ev *zerolog.Event
		switch e.Type {
		case AlertRaised, ComponentFailed, MetricsCollectionFailed:
			ev = logger.Warn()
		default:
			ev = logger.Info()
		}

		ev = ev.Str("event", string(e.Type)).Time("event_time", e.Time)

		switch p := e.Payload.(type) {
		case AlertRaisedPayload:
			ev = ev.Str("alert_id", p.Alert.ID).
				Str("alert_type", string(p.Alert.Type)).
				Str("severity", string(p.Alert.Severity)).
				Float64("value", p.Alert.Value).
				Float64("threshold", p.Alert.Threshold)
			ev.Msg(p.Alert.Message)
			return
		case HealthStatusChangedPayload:
			ev = ev.Str("previous", p.Previous).Str("overall", p.Overall).Float64("score", p.Score)
		case ComponentRecoveredPayload:
			ev = ev.Str("component", p.Name).Int("attempts", p.Attempts)
		case ComponentFailedPayload:
			ev = ev.Str("component", p.Name).Bool("essential", p.Essential).Int("attempts", p.Attempts).Str("error", p.Error)
		case MaintenanceModeChangedPayload:
			ev = ev.Bool("enabled", p.Enabled)
		case MetricsCollectionFailedPayload:
			ev = ev.Str("error", p.Error)
		case SupervisorStatusChangedPayload:
			ev = ev.Str("previous", p.Previous).Str("status", p.Status)
		}

		ev.Msg("supervisor event")
	}
}
