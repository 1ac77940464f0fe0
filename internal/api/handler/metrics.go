package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/hearth-labs/hearth/internal/alerting"
	"github.com/hearth-labs/hearth/internal/api/models"
	"github.com/hearth-labs/hearth/internal/api/response"
	"github.com/hearth-labs/hearth/internal/metrics"
)

// MetricsHandler serves the metrics, health and alert queries.
type MetricsHandler struct {
	monitor Monitor
	logger  zerolog.Logger
}

// NewMetricsHandler creates a MetricsHandler.
func NewMetricsHandler(mon Monitor, logger zerolog.Logger) *MetricsHandler {
	return &MetricsHandler{monitor: mon, logger: logger}
}

// Current handles GET /v1/metrics/current.
func (h *MetricsHandler) Current(w http.ResponseWriter, r *http.Request) {
	sample, ok := h.monitor.CurrentMetrics()
	if !ok {
		response.NotFound(w, r, "no metrics collected yet")
		return
	}
	response.JSON(w, r, http.StatusOK, sample)
}

// Average handles GET /v1/metrics/average?window=5m.
func (h *MetricsHandler) Average(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r)
	window := q.duration("window", defaultAverageWindow)
	if q.errs != nil {
		response.BadRequest(w, r, "invalid query parameters", q.errs)
		return
	}

	response.JSON(w, r, http.StatusOK, models.AverageMetrics{
		Window: window.String(),
		Sample: h.monitor.AverageMetrics(window),
	})
}

// Trends handles GET /v1/metrics/trends?window=1h&buckets=12.
func (h *MetricsHandler) Trends(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r)
	window := q.duration("window", defaultTrendWindow)
	buckets := q.integer("buckets", metrics.DefaultTrendBuckets, 1, maxTrendBucket)
	if q.errs != nil {
		response.BadRequest(w, r, "invalid query parameters", q.errs)
		return
	}

	response.JSON(w, r, http.StatusOK, models.Trends{
		Window: window.String(),
		Points: h.monitor.PerformanceTrends(window, buckets),
	})
}

// Export handles GET /v1/metrics/export?start=&end=. Both bounds are
// optional; without either every retained sample is returned.
func (h *MetricsHandler) Export(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r)
	start, hasStart := q.timestamp("start")
	end, hasEnd := q.timestamp("end")
	if hasStart && hasEnd && end.Before(start) {
		q.fail("end", "must not be before start", "OUT_OF_RANGE")
	}
	if q.errs != nil {
		response.BadRequest(w, r, "invalid query parameters", q.errs)
		return
	}

	var tr *metrics.TimeRange
	if hasStart || hasEnd {
		tr = &metrics.TimeRange{Start: start, End: end}
	}

	samples := h.monitor.ExportMetrics(tr)
	response.JSON(w, r, http.StatusOK, models.MetricsExport{Count: len(samples), Samples: samples})
}

// Health handles GET /v1/health.
func (h *MetricsHandler) Health(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, h.monitor.SystemHealthStatus())
}

// Alerts handles GET /v1/alerts?limit=50.
func (h *MetricsHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	q := newQueryParams(r)
	limit := q.integer("limit", defaultAlerts, 1, maxAlerts)
	if q.errs != nil {
		response.BadRequest(w, r, "invalid query parameters", q.errs)
		return
	}

	alerts, err := h.monitor.RecentAlerts(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("listing alerts")
		response.InternalError(w, r, "could not load alerts")
		return
	}
	if alerts == nil {
		alerts = []alerting.Alert{}
	}
	response.JSON(w, r, http.StatusOK, models.AlertList{Alerts: alerts})
}
