package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hearth-labs/hearth/internal/alerting"
)

// ErrInvalidManifest is returned when a manifest fails validation.
var ErrInvalidManifest = errors.New("invalid supervisor manifest")

// Component kinds understood by the component factory.
const (
	KindHTTP     = "http"
	KindPostgres = "postgres"
)

// ComponentSpec declares one supervised component.
type ComponentSpec struct {
	Name      string `yaml:"name"`
	Kind      string `yaml:"kind"`
	Essential bool   `yaml:"essential"`

	// BaseURL is the control endpoint root for http components. Health,
	// recover, pause, resume and config paths are resolved against it.
	BaseURL string `yaml:"baseURL,omitempty"`

	// Pausable marks an http component as exposing pause and resume.
	Pausable bool `yaml:"pausable,omitempty"`

	// DSN is the connection string for postgres components. Empty falls back
	// to the DATABASE_URL environment.
	DSN string `yaml:"dsn,omitempty"`

	Settings map[string]any `yaml:"settings,omitempty"`
}

// Manifest is the supervisor's file configuration.
type Manifest struct {
	Runtime `yaml:",inline"`

	HistoryCapacity    int      `yaml:"historyCapacity"`
	HealthCheckTimeout Duration `yaml:"healthCheckTimeout"`

	// RendererURL is the control endpoint root of the renderer's
	// optimization hooks. Empty disables them.
	RendererURL string `yaml:"rendererURL,omitempty"`

	Thresholds alerting.Thresholds `yaml:"thresholds"`
	Components []ComponentSpec     `yaml:"components"`
}

// DefaultManifest returns a manifest with every default filled in and no
// components.
func DefaultManifest() Manifest {
	return Manifest{
		Runtime:            DefaultRuntime(),
		HistoryCapacity:    300,
		HealthCheckTimeout: D(5 * time.Second),
		Thresholds:         alerting.DefaultThresholds(),
	}
}

// LoadManifest reads the manifest at path over the defaults. Keys missing
// from the file keep their default value.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("reading manifest: %w", err)
	}
	return ParseManifest(data)
}

// ParseManifest decodes YAML manifest data over the defaults.
func ParseManifest(data []byte) (Manifest, error) {
	m := DefaultManifest()
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parsing manifest: %w", err)
	}

	m.Settings = map[string]map[string]any{}
	for _, c := range m.Components {
		if len(c.Settings) > 0 {
			m.Settings[c.Name] = NormalizeSettings(c.Settings)
		}
	}

	if err := m.Validate(); err != nil {
		return Manifest{}, err
	}
	return m, nil
}

// Validate checks component declarations and limits.
func (m Manifest) Validate() error {
	if err := m.Runtime.Validate(); err != nil {
		return err
	}
	if err := m.Thresholds.Validate(); err != nil {
		return err
	}
	if m.HistoryCapacity <= 0 {
		return fmt.Errorf("%w: historyCapacity must be positive", ErrInvalidManifest)
	}

	seen := make(map[string]struct{}, len(m.Components))
	for i, c := range m.Components {
		if c.Name == "" {
			return fmt.Errorf("%w: component %d has no name", ErrInvalidManifest, i)
		}
		if _, dup := seen[c.Name]; dup {
			return fmt.Errorf("%w: duplicate component %q", ErrInvalidManifest, c.Name)
		}
		seen[c.Name] = struct{}{}

		switch c.Kind {
		case KindHTTP:
			if c.BaseURL == "" {
				return fmt.Errorf("%w: http component %q needs baseURL", ErrInvalidManifest, c.Name)
			}
		case KindPostgres:
		default:
			return fmt.Errorf("%w: component %q has unknown kind %q", ErrInvalidManifest, c.Name, c.Kind)
		}
	}
	return nil
}
