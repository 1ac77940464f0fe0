// Package config loads process settings from the environment and the
// supervisor manifest from YAML.
package config

import (
	"github.com/caarlos0/env/v11"
)

// Env holds process-level settings read from environment variables.
type Env struct {
	Port        string `env:"APP_PORT"    envDefault:"8080"`
	Environment string `env:"APP_ENV"     envDefault:"development"`
	Version     string `env:"APP_VERSION" envDefault:"dev"`
	LogLevel    string `env:"LOG_LEVEL"   envDefault:"info"`

	// ManifestPath points at the supervisor YAML manifest. Empty uses the
	// built-in defaults.
	ManifestPath string `env:"SUPERVISOR_MANIFEST"`

	// AlertStore selects the alert log backend: memory or postgres.
	AlertStore   string `env:"ALERT_STORE"    envDefault:"memory"`
	AlertLogSize int    `env:"ALERT_LOG_SIZE" envDefault:"500"`

	PubSubProjectID     string `env:"PUBSUB_PROJECT_ID"`
	PubSubEventsTopic   string `env:"PUBSUB_EVENTS_TOPIC"`
	PubSubCommandsSubID string `env:"PUBSUB_COMMANDS_SUBSCRIPTION"`

	JWTSecret   string `env:"JWT_SECRET"`
	JWTIssuer   string `env:"JWT_ISSUER"   envDefault:"hearth"`
	JWTAudience string `env:"JWT_AUDIENCE" envDefault:"hearth-operators"`

	OTelEnabled  bool   `env:"OTEL_ENABLED"`
	OTelEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	OTelInsecure bool   `env:"OTEL_EXPORTER_OTLP_INSECURE" envDefault:"true"`

	// AdminRateLimit is the number of admin requests allowed per minute per
	// client.
	AdminRateLimit int `env:"ADMIN_RATE_LIMIT" envDefault:"30"`
}

// LoadEnv parses Env from the process environment.
func LoadEnv() (Env, error) {
	return env.ParseAsWithOptions[Env](env.Options{})
}

// IsProduction reports whether the process runs in production.
func (e Env) IsProduction() bool {
	return e.Environment == "production"
}
