// Package optimization reacts to alerts and health transitions by invoking
// degradation hooks on the rendering and asset subsystems.
package optimization

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hearth-labs/hearth/internal/alerting"
	"github.com/hearth-labs/hearth/internal/config"
	"github.com/hearth-labs/hearth/internal/events"
	"github.com/hearth-labs/hearth/internal/health"
	"github.com/hearth-labs/hearth/internal/telemetry"
)

// Hooks are the degradation entry points exposed by the renderer.
type Hooks interface {
	OptimizeForPerformance(ctx context.Context, targetFPS float64) error
	ReduceTextureQuality(ctx context.Context) error
	UnloadUnusedAssets(ctx context.Context) error
}

// Hook names used in logs and metrics.
const (
	HookOptimizeForPerformance = "optimize_for_performance"
	HookReduceTextureQuality   = "reduce_texture_quality"
	HookUnloadUnusedAssets     = "unload_unused_assets"
)

// DefaultTargetFPS is passed to OptimizeForPerformance when none is set.
const DefaultTargetFPS = 30

// ControllerConfig holds configuration for a Controller.
type ControllerConfig struct {
	// Default: NopHooks
	Hooks Hooks

	// TargetFPS is the frame rate requested from the renderer.
	// Default: 30
	TargetFPS float64

	Metrics *telemetry.SupervisorMetrics
	Logger  zerolog.Logger
}

// Controller maps alerts and health transitions to hook calls. It keeps no
// per-alert state: the alert cooldown already limits how often it fires.
type Controller struct {
	hooks   Hooks
	metrics *telemetry.SupervisorMetrics
	logger  zerolog.Logger

	mu        sync.RWMutex
	targetFPS float64
}

// NewController creates a Controller.
func NewController(cfg ControllerConfig) *Controller {
	if cfg.TargetFPS <= 0 {
		cfg.TargetFPS = DefaultTargetFPS
	}
	if cfg.Hooks == nil {
		cfg.Hooks = NopHooks{}
	}
	return &Controller{
		hooks:     cfg.Hooks,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger.With().Str("component", "optimization").Logger(),
		targetFPS: cfg.TargetFPS,
	}
}

// Subscribe registers the controller on bus and returns the unsubscribe
// function.
func (c *Controller) Subscribe(bus *events.Bus) func() {
	return bus.Subscribe(c.Handle, events.AlertRaised, events.HealthStatusChanged)
}

// Handle dispatches a bus event.
func (c *Controller) Handle(ctx context.Context, e events.Event) {
	switch p := e.Payload.(type) {
	case events.AlertRaisedPayload:
		c.HandleAlert(ctx, p.Alert)
	case events.HealthStatusChangedPayload:
		c.HandleHealthChange(ctx, p)
	}
}

// HandleAlert invokes the hooks mapped to the alert type.
func (c *Controller) HandleAlert(ctx context.Context, a alerting.Alert) {
	switch a.Type {
	case alerting.TypeGPUMemory:
		c.call(ctx, HookReduceTextureQuality, c.hooks.ReduceTextureQuality)
		c.call(ctx, HookUnloadUnusedAssets, c.hooks.UnloadUnusedAssets)
	case alerting.TypeMemoryUsage:
		c.call(ctx, HookUnloadUnusedAssets, c.hooks.UnloadUnusedAssets)
	case alerting.TypeGPUUtilization, alerting.TypeGPUTemperature,
		alerting.TypeCPUUsage, alerting.TypeCPUTemperature,
		alerting.TypeLowFPS, alerting.TypeFrameTime:
		c.optimize(ctx)
	}
}

// HandleHealthChange optimizes when health moves into warning or critical.
// The event is only published on change, so each transition calls once.
func (c *Controller) HandleHealthChange(ctx context.Context, p events.HealthStatusChangedPayload) {
	if !health.Overall(p.Overall).Degraded() {
		return
	}
	c.optimize(ctx)
}

// TargetFPS returns the frame rate requested on optimization.
func (c *Controller) TargetFPS() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.targetFPS
}

// ApplyConfiguration picks up a new target frame rate.
func (c *Controller) ApplyConfiguration(_ context.Context, _, next config.Runtime) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if next.TargetFPS > 0 {
		c.targetFPS = next.TargetFPS
	}
	return nil
}

func (c *Controller) optimize(ctx context.Context) {
	fps := c.TargetFPS()
	c.call(ctx, HookOptimizeForPerformance, func(ctx context.Context) error {
		return c.hooks.OptimizeForPerformance(ctx, fps)
	})
}

func (c *Controller) call(ctx context.Context, hook string, fn func(context.Context) error) {
	err := fn(ctx)
	c.metrics.RecordOptimization(ctx, hook, err)
	if err != nil {
		c.logger.Warn().Err(err).Str("hook", hook).Msg("optimization hook failed")
		return
	}
	c.logger.Debug().Str("hook", hook).Msg("optimization hook invoked")
}
