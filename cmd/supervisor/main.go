// Package main provides the entrypoint for the Hearth supervisor: the
// metrics monitor, the component supervisor and the operator API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/hearth-labs/hearth/internal/alerting"
	"github.com/hearth-labs/hearth/internal/api"
	"github.com/hearth-labs/hearth/internal/api/middleware"
	"github.com/hearth-labs/hearth/internal/auth"
	"github.com/hearth-labs/hearth/internal/components"
	"github.com/hearth-labs/hearth/internal/config"
	"github.com/hearth-labs/hearth/internal/control"
	"github.com/hearth-labs/hearth/internal/database"
	"github.com/hearth-labs/hearth/internal/events"
	"github.com/hearth-labs/hearth/internal/metrics"
	"github.com/hearth-labs/hearth/internal/monitor"
	"github.com/hearth-labs/hearth/internal/optimization"
	"github.com/hearth-labs/hearth/internal/resilience"
	"github.com/hearth-labs/hearth/internal/supervisor"
	"github.com/hearth-labs/hearth/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "hearth-supervisor"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	cfg, err := config.LoadEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read environment")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		log = log.Level(level)
	} else {
		log.Warn().Str("log_level", cfg.LogLevel).Msg("unknown log level, using info")
		log = log.Level(zerolog.InfoLevel)
	}

	log.Info().
		Str("build_time", BuildTime).
		Str("environment", cfg.Environment).
		Msg("starting Hearth supervisor")

	manifest := config.DefaultManifest()
	if cfg.ManifestPath != "" {
		manifest, err = config.LoadManifest(cfg.ManifestPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.ManifestPath).Msg("failed to load manifest")
		}
	}
	log.Info().
		Int("components", len(manifest.Components)).
		Dur("metrics_interval", manifest.MetricsInterval.Duration).
		Dur("health_check_interval", manifest.HealthCheckInterval.Duration).
		Msg("manifest loaded")

	ctx := context.Background()

	// Initialize OpenTelemetry
	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTelEndpoint,
		Insecure:       cfg.OTelInsecure,
		Enabled:        cfg.OTelEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()
	if cfg.OTelEnabled {
		log.Info().Str("otlp_endpoint", cfg.OTelEndpoint).Msg("OpenTelemetry initialized")
	}

	supMetrics, err := telemetry.NewSupervisorMetrics(tp.Meter)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize supervisor metrics")
	}
	httpMetrics, err := middleware.NewMetrics(nil)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize http metrics")
	}

	// Event bus and sinks
	bus := events.NewBus(log)
	bus.Subscribe(events.LogSink(log.With().Str("component", "events").Logger()))

	if cfg.PubSubProjectID != "" && cfg.PubSubEventsTopic != "" {
		sink, err := events.NewPubSubSink(ctx, events.PubSubSinkConfig{
			ProjectID: cfg.PubSubProjectID,
			Topic:     cfg.PubSubEventsTopic,
			Logger:    log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create event forwarder")
		}
		defer func() {
			if err := sink.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close event forwarder")
			}
		}()
		bus.Subscribe(sink.Handle)
		log.Info().Str("topic", cfg.PubSubEventsTopic).Msg("forwarding events to Pub/Sub")
	}

	dbConfig, err := database.ConfigFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read database configuration")
	}

	// Alert log
	var alerts alerting.Repository
	switch cfg.AlertStore {
	case "postgres":
		var pool *pgxpool.Pool
		pool, err = database.Connect(ctx, dbConfig)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to alert database")
		}
		defer pool.Close()
		alerts = alerting.NewPostgresRepository(pool)
		log.Info().
			Str("host", dbConfig.Host).
			Str("database", dbConfig.Database).
			Msg("alert log stored in postgres")
	case "memory", "":
		alerts = alerting.NewInMemoryRepository(cfg.AlertLogSize)
	default:
		log.Fatal().Str("alert_store", cfg.AlertStore).Msg("unknown alert store")
	}

	// Components
	tracker := resilience.NewTracker()
	defs, err := components.Build(manifest.Components, components.BuildOptions{
		Tracker:  tracker,
		Database: dbConfig,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build components")
	}

	runtime := manifest.Runtime
	sup := supervisor.New(supervisor.Config{
		Definitions:        defs,
		Runtime:            &runtime,
		HealthCheckTimeout: manifest.HealthCheckTimeout.Duration,
		Publisher:          bus,
		Alerts:             alerts,
		Metrics:            supMetrics,
		Logger:             log.With().Str("component", "supervisor").Logger(),
	})

	// Metrics pipeline
	hostCfg := metrics.HostProbeConfig{}
	hooks := optimization.Hooks(optimization.NopHooks{})
	if manifest.RendererURL != "" {
		hostCfg.Render = components.NewRendererStats(manifest.RendererURL,
			resilience.NewClient(resilience.DefaultClientConfig("renderer-stats")))

		hooksCfg := resilience.DefaultClientConfig("renderer-hooks")
		hooksCfg.Tracker = tracker
		hooks = optimization.NewHTTPHooks(manifest.RendererURL, resilience.NewClient(hooksCfg))
	}
	probe := resilience.NewBreakerProbe(metrics.NewHostProbe(hostCfg),
		resilience.DefaultBreakerConfig("metrics-probe"), tracker)

	thresholds := manifest.Thresholds
	engine := alerting.NewEngine(alerting.EngineConfig{
		Thresholds: &thresholds,
		Cooldown:   manifest.AlertCooldown.Duration,
	})

	mon, err := monitor.New(monitor.Config{
		Probe:       probe,
		History:     metrics.NewHistory(metrics.HistoryConfig{Capacity: manifest.HistoryCapacity}),
		Engine:      engine,
		Alerts:      alerts,
		Publisher:   bus,
		Performance: sup,
		Runtime:     &runtime,
		Metrics:     supMetrics,
		Logger:      log.With().Str("component", "monitor").Logger(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create metrics monitor")
	}

	controller := optimization.NewController(optimization.ControllerConfig{
		Hooks:     hooks,
		TargetFPS: manifest.TargetFPS,
		Metrics:   supMetrics,
		Logger:    log.With().Str("component", "optimization").Logger(),
	})
	unsubscribe := controller.Subscribe(bus)
	defer unsubscribe()

	sup.AddConfigListener(mon)
	sup.AddConfigListener(controller)

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	if err := sup.Start(runCtx); err != nil {
		log.Fatal().Err(err).Msg("failed to start supervisor")
	}
	if err := mon.Start(runCtx); err != nil {
		log.Fatal().Err(err).Msg("failed to start metrics monitor")
	}

	// Control commands
	if cfg.PubSubProjectID != "" && cfg.PubSubCommandsSubID != "" {
		subscriber, err := control.NewSubscriber(ctx, control.SubscriberConfig{
			ProjectID:    cfg.PubSubProjectID,
			Subscription: cfg.PubSubCommandsSubID,
			Handler:      control.NewHandler(sup, mon, log),
			Logger:       log,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create command subscriber")
		}
		defer func() {
			if err := subscriber.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close command subscriber")
			}
		}()
		go func() {
			if err := subscriber.Start(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("command subscriber stopped")
			}
		}()
	}

	// Operator tokens
	var tokens middleware.TokenVerifier
	if cfg.JWTSecret != "" {
		svc, err := auth.NewTokenService(auth.Config{
			Secret:   cfg.JWTSecret,
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create token service")
		}
		tokens = svc
	} else {
		log.Warn().Msg("JWT_SECRET not set - admin endpoints are disabled")
	}

	adminLimit := middleware.AdminRateLimit
	adminLimit.RequestLimit = cfg.AdminRateLimit

	router := api.NewRouter(api.RouterConfig{
		Version:        Version,
		BuildTime:      BuildTime,
		Logger:         log,
		ServiceName:    serviceName,
		Metrics:        httpMetrics,
		Supervisor:     sup,
		Monitor:        mon,
		Endpoints:      tracker,
		Tokens:         tokens,
		RequireTLS:     cfg.IsProduction(),
		AdminRateLimit: &adminLimit,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	stop()
	mon.Stop()
	if err := sup.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("supervisor stopped with errors")
	}

	log.Info().Msg("supervisor stopped")
}
