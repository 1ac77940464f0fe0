package components

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/hearth-labs/hearth/internal/metrics"
	"github.com/hearth-labs/hearth/internal/resilience"
)

// RendererStats reads GPU and frame readings from the renderer's
// GET {base}/stats endpoint.
type RendererStats struct {
	url    string
	client *resilience.Client
}

var _ metrics.RenderSource = (*RendererStats)(nil)

// NewRendererStats creates a render source for the renderer at baseURL.
func NewRendererStats(baseURL string, client *resilience.Client) *RendererStats {
	return &RendererStats{
		url:    strings.TrimRight(baseURL, "/") + "/stats",
		client: client,
	}
}

type statsResponse struct {
	GPU       metrics.GPU       `json:"gpu"`
	Rendering metrics.Rendering `json:"rendering"`
}

// RenderStats fetches one reading.
func (r *RendererStats) RenderStats(ctx context.Context) (metrics.GPU, metrics.Rendering, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.url, http.NoBody)
	if err != nil {
		return metrics.GPU{}, metrics.Rendering{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(ctx, req)
	if err != nil {
		return metrics.GPU{}, metrics.Rendering{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return metrics.GPU{}, metrics.Rendering{}, &resilience.StatusError{StatusCode: resp.StatusCode}
	}

	var stats statsResponse
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return metrics.GPU{}, metrics.Rendering{}, fmt.Errorf("decode renderer stats: %w", err)
	}
	return stats.GPU, stats.Rendering, nil
}
