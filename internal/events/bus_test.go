package events_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearth-labs/hearth/internal/alerting"
	"github.com/hearth-labs/hearth/internal/events"
)

func TestBus_DeliversToMatchingSubscribers(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())

	var all, alerts []events.Type
	bus.Subscribe(func(_ context.Context, e events.Event) { all = append(all, e.Type) })
	bus.Subscribe(func(_ context.Context, e events.Event) { alerts = append(alerts, e.Type) }, events.AlertRaised)

	bus.Publish(context.Background(), events.Event{Type: events.MaintenanceModeChanged})
	bus.Publish(context.Background(), events.Event{Type: events.AlertRaised})

	assert.Equal(t, []events.Type{events.MaintenanceModeChanged, events.AlertRaised}, all)
	assert.Equal(t, []events.Type{events.AlertRaised}, alerts)
}

func TestBus_SubscriptionOrderAndUnsubscribe(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())

	var order []string
	bus.Subscribe(func(context.Context, events.Event) { order = append(order, "first") })
	unsubscribe := bus.Subscribe(func(context.Context, events.Event) { order = append(order, "second") })
	bus.Subscribe(func(context.Context, events.Event) { order = append(order, "third") })

	bus.Publish(context.Background(), events.Event{Type: events.ComponentFailed})
	assert.Equal(t, []string{"first", "second", "third"}, order)

	unsubscribe()
	unsubscribe()
	order = nil
	bus.Publish(context.Background(), events.Event{Type: events.ComponentFailed})
	assert.Equal(t, []string{"first", "third"}, order)
}

func TestBus_PanickingHandlerIsIsolated(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())

	delivered := false
	bus.Subscribe(func(context.Context, events.Event) { panic("boom") })
	bus.Subscribe(func(context.Context, events.Event) { delivered = true })

	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), events.Event{Type: events.ComponentRecovered})
	})
	assert.True(t, delivered)
}

func TestBus_StampsZeroTime(t *testing.T) {
	bus := events.NewBus(zerolog.Nop())

	var got events.Event
	bus.Subscribe(func(_ context.Context, e events.Event) { got = e })

	bus.Publish(context.Background(), events.Event{Type: events.HealthStatusChanged})
	assert.False(t, got.Time.IsZero())

	fixed := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	bus.Publish(context.Background(), events.Event{Type: events.HealthStatusChanged, Time: fixed})
	assert.Equal(t, fixed, got.Time)
}

func TestLogSink_WritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	sink := events.LogSink(zerolog.New(&buf))

	sink(context.Background(), events.Event{
		Type:    events.ComponentFailed,
		Payload: events.ComponentFailedPayload{Name: "voice", Essential: false, Attempts: 2, Error: "timeout"},
	})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "component-failed", entry["event"])
	assert.Equal(t, "voice", entry["component"])
	assert.Equal(t, "timeout", entry["error"])
}

func TestMessage_EncodesEventWithTypeAttribute(t *testing.T) {
	alert := alerting.Alert{
		ID:        "a-1",
		Type:      alerting.TypeGPUMemory,
		Severity:  alerting.SeverityCritical,
		Message:   "GPU memory high",
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	msg, err := events.Message(events.NewAlertRaised(alert))
	require.NoError(t, err)
	assert.Equal(t, "alert-raised", msg.Attributes["type"])
	assert.Equal(t, "2026-03-01T12:00:00Z", msg.Attributes["time"])

	var decoded struct {
		Type    string `json:"type"`
		Payload struct {
			Alert alerting.Alert `json:"alert"`
		} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(msg.Data, &decoded))
	assert.Equal(t, "alert-raised", decoded.Type)
	assert.Equal(t, "a-1", decoded.Payload.Alert.ID)
	assert.Equal(t, alerting.TypeGPUMemory, decoded.Payload.Alert.Type)
}
