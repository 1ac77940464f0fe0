package alerting

import (
	"context"
	"sync"
)

// DefaultAlertLogSize bounds the in-memory alert log.
const DefaultAlertLogSize = 500

// Repository persists raised alerts.
type Repository interface {
	// Save stores an alert.
	Save(ctx context.Context, alert Alert) error

	// Recent returns up to limit alerts, newest first. A limit <= 0 returns
	// every stored alert.
	Recent(ctx context.Context, limit int) ([]Alert, error)
}

// InMemoryRepository keeps the most recent alerts in memory.
type InMemoryRepository struct {
	mu     sync.RWMutex
	alerts []Alert
	size   int
}

// NewInMemoryRepository creates a repository that retains up to size alerts.
func NewInMemoryRepository(size int) *InMemoryRepository {
	if size <= 0 {
		size = DefaultAlertLogSize
	}
	return &InMemoryRepository{size: size}
}

// Save appends an alert, dropping the oldest when full.
func (r *InMemoryRepository) Save(_ context.Context, alert Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.alerts = append(r.alerts, alert)
	if over := len(r.alerts) - r.size; over > 0 {
		r.alerts = append([]Alert(nil), r.alerts[over:]...)
	}
	return nil
}

// Recent returns stored alerts, newest first.
func (r *InMemoryRepository) Recent(_ context.Context, limit int) ([]Alert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := len(r.alerts)
	if limit > 0 && limit < n {
		n = limit
	}

	result := make([]Alert, 0, n)
	for i := len(r.alerts) - 1; i >= 0 && len(result) < n; i-- {
		result = append(result, r.alerts[i])
	}
	return result, nil
}

var _ Repository = (*InMemoryRepository)(nil)
