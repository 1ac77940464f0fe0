package optimization_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearth-labs/hearth/internal/alerting"
	"github.com/hearth-labs/hearth/internal/config"
	"github.com/hearth-labs/hearth/internal/events"
	"github.com/hearth-labs/hearth/internal/optimization"
	"github.com/hearth-labs/hearth/internal/resilience"
)

type fakeHooks struct {
	mu    sync.Mutex
	calls []string
	fps   []float64
	err   error
}

func (f *fakeHooks) record(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	return f.err
}

func (f *fakeHooks) OptimizeForPerformance(_ context.Context, targetFPS float64) error {
	f.mu.Lock()
	f.fps = append(f.fps, targetFPS)
	f.mu.Unlock()
	return f.record(optimization.HookOptimizeForPerformance)
}

func (f *fakeHooks) ReduceTextureQuality(context.Context) error {
	return f.record(optimization.HookReduceTextureQuality)
}

func (f *fakeHooks) UnloadUnusedAssets(context.Context) error {
	return f.record(optimization.HookUnloadUnusedAssets)
}

func alertOf(t alerting.AlertType) events.Event {
	return events.NewAlertRaised(alerting.Alert{Type: t, Severity: alerting.SeverityCritical})
}

func TestController_AlertMapping(t *testing.T) {
	tests := []struct {
		alert alerting.AlertType
		want  []string
	}{
		{alerting.TypeGPUMemory, []string{optimization.HookReduceTextureQuality, optimization.HookUnloadUnusedAssets}},
		{alerting.TypeMemoryUsage, []string{optimization.HookUnloadUnusedAssets}},
		{alerting.TypeLowFPS, []string{optimization.HookOptimizeForPerformance}},
		{alerting.TypeGPUTemperature, []string{optimization.HookOptimizeForPerformance}},
		{alerting.TypeCPUUsage, []string{optimization.HookOptimizeForPerformance}},
		{alerting.TypeComponentFailure, nil},
	}

	for _, tt := range tests {
		t.Run(string(tt.alert), func(t *testing.T) {
			hooks := &fakeHooks{}
			c := optimization.NewController(optimization.ControllerConfig{Hooks: hooks, Logger: zerolog.Nop()})

			c.Handle(context.Background(), alertOf(tt.alert))

			assert.Equal(t, tt.want, hooks.calls)
		})
	}
}

func TestController_HealthTransitions(t *testing.T) {
	hooks := &fakeHooks{}
	c := optimization.NewController(optimization.ControllerConfig{Hooks: hooks, TargetFPS: 45, Logger: zerolog.Nop()})

	change := func(prev, next string) events.Event {
		return events.Event{
			Type:    events.HealthStatusChanged,
			Payload: events.HealthStatusChangedPayload{Previous: prev, Overall: next},
		}
	}

	c.Handle(context.Background(), change("unknown", "healthy"))
	assert.Empty(t, hooks.calls)

	c.Handle(context.Background(), change("healthy", "warning"))
	c.Handle(context.Background(), change("warning", "critical"))
	assert.Equal(t, []float64{45, 45}, hooks.fps)
}

func TestController_HookFailureIsSwallowed(t *testing.T) {
	hooks := &fakeHooks{err: errors.New("renderer busy")}
	c := optimization.NewController(optimization.ControllerConfig{Hooks: hooks, Logger: zerolog.Nop()})

	assert.NotPanics(t, func() {
		c.HandleAlert(context.Background(), alerting.Alert{Type: alerting.TypeGPUMemory})
	})
	assert.Len(t, hooks.calls, 2)
}

func TestController_ApplyConfigurationUpdatesTargetFPS(t *testing.T) {
	hooks := &fakeHooks{}
	c := optimization.NewController(optimization.ControllerConfig{Hooks: hooks, Logger: zerolog.Nop()})
	assert.Equal(t, 30.0, c.TargetFPS())

	next := config.DefaultRuntime()
	next.TargetFPS = 60
	require.NoError(t, c.ApplyConfiguration(context.Background(), config.DefaultRuntime(), next))

	c.HandleAlert(context.Background(), alerting.Alert{Type: alerting.TypeFrameTime})
	assert.Equal(t, []float64{60}, hooks.fps)
}

func TestController_SubscribesToBus(t *testing.T) {
	hooks := &fakeHooks{}
	c := optimization.NewController(optimization.ControllerConfig{Hooks: hooks, Logger: zerolog.Nop()})
	bus := events.NewBus(zerolog.Nop())
	unsubscribe := c.Subscribe(bus)

	bus.Publish(context.Background(), alertOf(alerting.TypeMemoryUsage))
	bus.Publish(context.Background(), events.Event{Type: events.MaintenanceModeChanged, Payload: events.MaintenanceModeChangedPayload{Enabled: true}})
	unsubscribe()
	bus.Publish(context.Background(), alertOf(alerting.TypeMemoryUsage))

	assert.Equal(t, []string{optimization.HookUnloadUnusedAssets}, hooks.calls)
}

func TestHTTPHooks_PostsToRenderer(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
		fps   float64
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/optimize/performance" {
			var body map[string]float64
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			fps = body["targetFps"]
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	client := resilience.NewClient(resilience.ClientConfig{Name: "renderer", Timeout: time.Second})
	hooks := optimization.NewHTTPHooks(server.URL+"/", client)

	require.NoError(t, hooks.OptimizeForPerformance(context.Background(), 30))
	require.NoError(t, hooks.ReduceTextureQuality(context.Background()))
	require.NoError(t, hooks.UnloadUnusedAssets(context.Background()))

	assert.Equal(t, []string{"/optimize/performance", "/optimize/textures", "/optimize/assets/unload"}, paths)
	assert.Equal(t, 30.0, fps)
}
