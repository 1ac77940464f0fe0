package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/hearth-labs/hearth/internal/api/models"
)

// Query parameter bounds.
const (
	defaultAverageWindow = time.Minute
	defaultTrendWindow   = 5 * time.Minute
	maxWindow            = 24 * time.Hour
	maxTrendBucket       = 500
	defaultAlerts        = 50
	maxAlerts            = 500
)

// queryParams accumulates field errors while parsing query parameters.
type queryParams struct {
	r    *http.Request
	errs []models.FieldError
}

func newQueryParams(r *http.Request) *queryParams {
	return &queryParams{r: r}
}

func (q *queryParams) fail(field, msg, code string) {
	q.errs = append(q.errs, models.FieldError{Field: field, Message: msg, Code: code})
}

// duration parses a Go duration such as 5m, bounded by maxWindow.
func (q *queryParams) duration(name string, def time.Duration) time.Duration {
	raw := q.r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		q.fail(name, "must be a duration such as 30s or 5m", "INVALID_FORMAT")
		return def
	}
	if d <= 0 || d > maxWindow {
		q.fail(name, fmt.Sprintf("must be positive and at most %s", maxWindow), "OUT_OF_RANGE")
		return def
	}
	return d
}

func (q *queryParams) integer(name string, def, lo, hi int) int {
	raw := q.r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		q.fail(name, "must be an integer", "INVALID_FORMAT")
		return def
	}
	if n < lo || n > hi {
		q.fail(name, fmt.Sprintf("must be between %d and %d", lo, hi), "OUT_OF_RANGE")
		return def
	}
	return n
}

// timestamp parses an RFC 3339 time. The second result is false when the
// parameter is absent.
func (q *queryParams) timestamp(name string) (time.Time, bool) {
	raw := q.r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		q.fail(name, "must be an RFC 3339 timestamp", "INVALID_FORMAT")
		return time.Time{}, false
	}
	return t, true
}
