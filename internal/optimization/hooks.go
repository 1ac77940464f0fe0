package optimization

import (
	"context"
	"net/http"
	"strings"

	"github.com/hearth-labs/hearth/internal/resilience"
)

// NopHooks ignores every call.
type NopHooks struct{}

func (NopHooks) OptimizeForPerformance(context.Context, float64) error { return nil }
func (NopHooks) ReduceTextureQuality(context.Context) error            { return nil }
func (NopHooks) UnloadUnusedAssets(context.Context) error              { return nil }

var (
	_ Hooks = NopHooks{}
	_ Hooks = (*HTTPHooks)(nil)
)

// HTTPHooks posts optimization requests to the renderer's control API:
//
//	POST {base}/optimize/performance  {"targetFps": 30}
//	POST {base}/optimize/textures     {"quality": "reduced"}
//	POST {base}/optimize/assets/unload
type HTTPHooks struct {
	baseURL string
	client  *resilience.Client
}

// NewHTTPHooks creates hooks for the renderer at baseURL.
func NewHTTPHooks(baseURL string, client *resilience.Client) *HTTPHooks {
	return &HTTPHooks{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

type performanceRequest struct {
	TargetFPS float64 `json:"targetFps"`
}

type textureRequest struct {
	Quality string `json:"quality"`
}

func (h *HTTPHooks) OptimizeForPerformance(ctx context.Context, targetFPS float64) error {
	return h.client.Call(ctx, http.MethodPost, h.baseURL+"/optimize/performance", performanceRequest{TargetFPS: targetFPS})
}

func (h *HTTPHooks) ReduceTextureQuality(ctx context.Context) error {
	return h.client.Call(ctx, http.MethodPost, h.baseURL+"/optimize/textures", textureRequest{Quality: "reduced"})
}

func (h *HTTPHooks) UnloadUnusedAssets(ctx context.Context) error {
	return h.client.Call(ctx, http.MethodPost, h.baseURL+"/optimize/assets/unload", nil)
}
