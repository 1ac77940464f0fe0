// Package components provides the built-in supervised component kinds that
// can be declared in the supervisor manifest.
package components

import (
	"context"
	"net/http"
	"strings"

	"github.com/hearth-labs/hearth/internal/resilience"
	"github.com/hearth-labs/hearth/internal/supervisor"
)

// HTTPComponent drives a collaborator through its control endpoints:
//
//	GET  {base}/health
//	POST {base}/recover
//	POST {base}/pause
//	POST {base}/resume
//	PUT  {base}/config
//
// The collaborator process itself is owned elsewhere, so Shutdown only
// forgets the connection.
type HTTPComponent struct {
	name    string
	baseURL string
	client  *resilience.Client
}

var (
	_ supervisor.Component    = (*HTTPComponent)(nil)
	_ supervisor.Pauser       = (*HTTPComponent)(nil)
	_ supervisor.Reconfigurer = (*HTTPComponent)(nil)
)

// NewHTTPComponent creates a component rooted at baseURL.
func NewHTTPComponent(name, baseURL string, client *resilience.Client) *HTTPComponent {
	return &HTTPComponent{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

// Name returns the component name.
func (c *HTTPComponent) Name() string {
	return c.name
}

// Init succeeds once the collaborator answers its health endpoint.
func (c *HTTPComponent) Init(ctx context.Context) error {
	return c.HealthCheck(ctx)
}

func (c *HTTPComponent) HealthCheck(ctx context.Context) error {
	return c.client.Call(ctx, http.MethodGet, c.baseURL+"/health", nil)
}

func (c *HTTPComponent) Recover(ctx context.Context) error {
	return c.client.Call(ctx, http.MethodPost, c.baseURL+"/recover", nil)
}

func (c *HTTPComponent) Shutdown(context.Context) error {
	return nil
}

func (c *HTTPComponent) Pause(ctx context.Context) error {
	return c.client.Call(ctx, http.MethodPost, c.baseURL+"/pause", nil)
}

func (c *HTTPComponent) Resume(ctx context.Context) error {
	return c.client.Call(ctx, http.MethodPost, c.baseURL+"/resume", nil)
}

func (c *HTTPComponent) Reconfigure(ctx context.Context, settings map[string]any) error {
	return c.client.Call(ctx, http.MethodPut, c.baseURL+"/config", settings)
}
