package response_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hearth-labs/hearth/internal/api/middleware"
	"github.com/hearth-labs/hearth/internal/api/models"
	"github.com/hearth-labs/hearth/internal/api/response"
)

// withRequestID runs req through the RequestID middleware so its context
// carries an ID.
func withRequestID(t *testing.T, req *http.Request) *http.Request {
	t.Helper()
	var processed *http.Request
	middleware.RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		processed = r
	})).ServeHTTP(httptest.NewRecorder(), req)
	return processed
}

func TestJSON_IncludesRequestID(t *testing.T) {
	req := withRequestID(t, httptest.NewRequest(http.MethodGet, "/v1/health", http.NoBody))
	rec := httptest.NewRecorder()

	response.JSON(rec, req, http.StatusOK, map[string]string{"overall": "healthy"})

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if id := rec.Header().Get("X-Request-Id"); !strings.HasPrefix(id, "req_") {
		t.Errorf("expected X-Request-Id header, got %q", id)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %q", ct)
	}
}

func TestJSON_WithoutRequestID(t *testing.T) {
	rec := httptest.NewRecorder()

	response.JSON(rec, httptest.NewRequest(http.MethodGet, "/v1/health", http.NoBody), http.StatusOK, nil)

	if id := rec.Header().Get("X-Request-Id"); id != "" {
		t.Errorf("expected no X-Request-Id header, got %q", id)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("expected empty body for nil data, got %q", rec.Body.String())
	}
}

func TestNoContent(t *testing.T) {
	req := withRequestID(t, httptest.NewRequest(http.MethodPut, "/v1/admin/maintenance", http.NoBody))
	rec := httptest.NewRecorder()

	response.NoContent(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("expected empty body for 204, got %q", rec.Body.String())
	}
}

func TestNotFound_SetsInstance(t *testing.T) {
	req := withRequestID(t, httptest.NewRequest(http.MethodGet, "/v1/components/ghost", http.NoBody))
	rec := httptest.NewRecorder()

	response.NotFound(rec, req, "component ghost not found")

	var problem models.Problem
	if err := json.Unmarshal(rec.Body.Bytes(), &problem); err != nil {
		t.Fatalf("decoding problem: %v", err)
	}
	if problem.Status != http.StatusNotFound || problem.Instance != "/v1/components/ghost" {
		t.Errorf("unexpected problem %+v", problem)
	}
	if problem.TraceID == "" {
		t.Error("expected trace ID on problem")
	}
}

func TestDecodeJSON(t *testing.T) {
	type body struct {
		Enabled *bool `json:"enabled"`
	}

	tests := []struct {
		name   string
		input  string
		ok     bool
		detail string
	}{
		{"valid", `{"enabled":true}`, true, ""},
		{"empty", ``, false, "request body is empty"},
		{"syntax", `{"enabled":`, false, "malformed JSON"},
		{"wrong type", `{"enabled":"yes"}`, false, "wrong type"},
		{"unknown field", `{"enabled":true,"force":1}`, false, "unknown field"},
		{"trailing object", `{"enabled":true}{"enabled":false}`, false, "single JSON object"},
		{"too large", `{"enabled":true,"pad":"` + strings.Repeat("x", response.MaxBodyBytes) + `"}`, false, "exceeds"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPut, "/v1/admin/maintenance", strings.NewReader(tt.input))
			rec := httptest.NewRecorder()

			var dst body
			ok := response.DecodeJSON(rec, req, &dst)

			if ok != tt.ok {
				t.Fatalf("expected ok=%v, got %v (body %s)", tt.ok, ok, rec.Body.String())
			}
			if !ok {
				if rec.Code != http.StatusBadRequest {
					t.Errorf("expected 400, got %d", rec.Code)
				}
				if !strings.Contains(rec.Body.String(), tt.detail) {
					t.Errorf("expected detail containing %q, got %s", tt.detail, rec.Body.String())
				}
			}
		})
	}
}
