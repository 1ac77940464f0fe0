package resilience

import (
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// breakerView is the read side of a gobreaker.CircuitBreaker of any type.
type breakerView interface {
	State() gobreaker.State
	Counts() gobreaker.Counts
}

// EndpointHealth is the observed state of one guarded endpoint.
type EndpointHealth struct {
	Name                string     `json:"name"`
	State               string     `json:"state"`
	Requests            uint32     `json:"requests"`
	ConsecutiveFailures uint32     `json:"consecutiveFailures"`
	LastSuccessAt       *time.Time `json:"lastSuccessAt,omitempty"`
	LastFailureAt       *time.Time `json:"lastFailureAt,omitempty"`
	LastError           string     `json:"lastError,omitempty"`
}

// Healthy reports whether the breaker is closed.
func (h EndpointHealth) Healthy() bool {
	return h.State == gobreaker.StateClosed.String()
}

// Tracker records breaker state and call outcomes for every guarded
// endpoint so they can be reported on the ops status route.
type Tracker struct {
	mu        sync.RWMutex
	endpoints map[string]*trackedEndpoint
	now       func() time.Time
}

type trackedEndpoint struct {
	breaker       breakerView
	lastSuccessAt *time.Time
	lastFailureAt *time.Time
	lastError     string
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		endpoints: make(map[string]*trackedEndpoint),
		now:       time.Now,
	}
}

// Register adds or replaces an endpoint.
func (t *Tracker) Register(name string, breaker breakerView) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.endpoints[name] = &trackedEndpoint{breaker: breaker}
}

// Unregister removes an endpoint.
func (t *Tracker) Unregister(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.endpoints, name)
}

// RecordSuccess notes a successful call.
func (t *Tracker) RecordSuccess(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.endpoints[name]; ok {
		now := t.now()
		e.lastSuccessAt = &now
	}
}

// RecordFailure notes a failed call.
func (t *Tracker) RecordFailure(name string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.endpoints[name]; ok {
		now := t.now()
		e.lastFailureAt = &now
		if err != nil {
			e.lastError = err.Error()
		}
	}
}

// Health returns the state of one endpoint.
func (t *Tracker) Health(name string) (EndpointHealth, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.endpoints[name]
	if !ok {
		return EndpointHealth{}, false
	}
	return e.snapshot(name), true
}

// Snapshot returns every endpoint sorted by name.
func (t *Tracker) Snapshot() []EndpointHealth {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]EndpointHealth, 0, len(t.endpoints))
	for name, e := range t.endpoints {
		out = append(out, e.snapshot(name))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (e *trackedEndpoint) snapshot(name string) EndpointHealth {
	counts := e.breaker.Counts()
	return EndpointHealth{
		Name:                name,
		State:               e.breaker.State().String(),
		Requests:            counts.Requests,
		ConsecutiveFailures: counts.ConsecutiveFailures,
		LastSuccessAt:       e.lastSuccessAt,
		LastFailureAt:       e.lastFailureAt,
		LastError:           e.lastError,
	}
}
