package components

import (
	"fmt"

	"github.com/hearth-labs/hearth/internal/config"
	"github.com/hearth-labs/hearth/internal/database"
	"github.com/hearth-labs/hearth/internal/resilience"
	"github.com/hearth-labs/hearth/internal/supervisor"
)

// BuildOptions carries the shared dependencies of built components.
type BuildOptions struct {
	// Tracker records the breaker state of every http component. Optional.
	Tracker *resilience.Tracker

	// Database is the base config for postgres components; a spec DSN
	// overrides its connection string.
	Database database.Config

	// Connect overrides how postgres components open pools. Optional.
	Connect ConnectFunc

	// Client overrides the endpoint client settings of http components.
	// Default: resilience.DefaultClientConfig(name)
	Client func(name string) resilience.ClientConfig
}

// Build turns manifest component specs into supervisor definitions in
// declared order.
func Build(specs []config.ComponentSpec, opts BuildOptions) ([]supervisor.Definition, error) {
	if opts.Client == nil {
		opts.Client = resilience.DefaultClientConfig
	}

	defs := make([]supervisor.Definition, 0, len(specs))
	for _, spec := range specs {
		def := supervisor.Definition{Name: spec.Name, Essential: spec.Essential}

		switch spec.Kind {
		case config.KindHTTP:
			clientCfg := opts.Client(spec.Name)
			clientCfg.Name = spec.Name
			clientCfg.Tracker = opts.Tracker

			c := NewHTTPComponent(spec.Name, spec.BaseURL, resilience.NewClient(clientCfg))
			def.Component = c
			def.Reconfigurer = c
			if spec.Pausable {
				def.Pauser = c
			}

		case config.KindPostgres:
			dbCfg := opts.Database
			if spec.DSN != "" {
				dbCfg = dbCfg.WithURL(spec.DSN)
			}
			def.Component = NewPostgresComponent(spec.Name, dbCfg, opts.Connect)

		default:
			return nil, fmt.Errorf("component %q: unknown kind %q", spec.Name, spec.Kind)
		}

		defs = append(defs, def)
	}
	return defs, nil
}
