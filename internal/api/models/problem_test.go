package models_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hearth-labs/hearth/internal/api/models"
	"github.com/hearth-labs/hearth/internal/supervisor"
)

func TestProblem_Builders(t *testing.T) {
	p := models.NewProblem(models.ProblemTypeValidation, "Validation error", http.StatusBadRequest, "req_test123").
		WithDetail("window must be positive").
		WithInstance("/v1/metrics/average")
	p.Errors = []models.FieldError{{Field: "window", Message: "must be positive", Code: "OUT_OF_RANGE"}}

	assert.Equal(t, models.ProblemTypeValidation, p.Type)
	assert.Equal(t, "req_test123", p.TraceID)
	assert.Equal(t, "window must be positive", p.Detail)
	assert.Equal(t, "/v1/metrics/average", p.Instance)
	require.Len(t, p.Errors, 1)
	assert.Equal(t, "OUT_OF_RANGE", p.Errors[0].Code)
}

func TestProblem_Write(t *testing.T) {
	p := models.NewBadRequest("req_test123", "invalid input", []models.FieldError{
		{Field: "enabled", Message: "required"},
	})
	p.Instance = "/v1/admin/maintenance"

	w := httptest.NewRecorder()
	p.Write(w)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
	assert.Equal(t, "req_test123", w.Header().Get("X-Request-Id"))

	var result models.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, models.ProblemTypeValidation, result.Type)
	assert.Equal(t, "/v1/admin/maintenance", result.Instance)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "enabled", result.Errors[0].Field)
}

func TestProblem_Constructors(t *testing.T) {
	tests := []struct {
		name    string
		problem *models.Problem
		typ     string
		title   string
		status  int
	}{
		{"unauthorized", models.NewUnauthorized("r", "d"), models.ProblemTypeUnauthorized, "Unauthorized", http.StatusUnauthorized},
		{"forbidden", models.NewForbidden("r", "d"), models.ProblemTypeForbidden, "Forbidden", http.StatusForbidden},
		{"not found", models.NewNotFound("r", "d"), models.ProblemTypeNotFound, "Not found", http.StatusNotFound},
		{"conflict", models.NewConflict("r", "d"), models.ProblemTypeConflict, "Conflict", http.StatusConflict},
		{"too many", models.NewTooManyRequests("r", "d"), models.ProblemTypeTooManyRequests, "Too many requests", http.StatusTooManyRequests},
		{"internal", models.NewInternalError("r", "d"), models.ProblemTypeInternal, "Internal server error", http.StatusInternalServerError},
		{"unavailable", models.NewServiceUnavailable("r", "d"), models.ProblemTypeUnavailable, "Service unavailable", http.StatusServiceUnavailable},
		{"configuration", models.NewConfigurationRejected("r", "d"), models.ProblemTypeConfiguration, "Configuration rejected", http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.typ, tt.problem.Type)
			assert.Equal(t, tt.title, tt.problem.Title)
			assert.Equal(t, tt.status, tt.problem.Status)
			assert.Equal(t, "d", tt.problem.Detail)
			assert.Equal(t, "r", tt.problem.TraceID)
		})
	}
}

func TestTimestamp_RoundTripsUTC(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 30, 0, 0, time.FixedZone("CET", 3600))

	data, err := json.Marshal(models.Timestamp(at))
	require.NoError(t, err)
	assert.JSONEq(t, `"2026-03-01T11:30:00Z"`, string(data))

	var back models.Timestamp
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, at.Equal(back.Time()))

	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &back))
}

func TestStatusFromSupervisor(t *testing.T) {
	assert.Equal(t, models.HealthStatusOK, models.StatusFromSupervisor(supervisor.SystemHealthy))
	assert.Equal(t, models.HealthStatusDegraded, models.StatusFromSupervisor(supervisor.SystemDegraded))
	assert.Equal(t, models.HealthStatusFail, models.StatusFromSupervisor(supervisor.SystemCritical))
	assert.Equal(t, models.HealthStatusFail, models.StatusFromSupervisor(supervisor.SystemStopped))
}

func TestMaintenanceRequest_Validate(t *testing.T) {
	assert.Len(t, (&models.MaintenanceRequest{}).Validate(), 1)

	enabled := false
	assert.Empty(t, (&models.MaintenanceRequest{Enabled: &enabled}).Validate())
}
