package resilience

import (
	"context"
	"errors"
	"fmt"

	"github.com/sony/gobreaker/v2"

	"github.com/hearth-labs/hearth/internal/metrics"
)

// BreakerProbe guards a metrics probe with a circuit breaker so a failing
// sensor source is not hammered every tick.
type BreakerProbe struct {
	probe   metrics.Probe
	breaker *gobreaker.CircuitBreaker[metrics.Sample]
}

// NewBreakerProbe wraps probe. When tracker is non-nil the breaker is
// registered under cfg.Name.
func NewBreakerProbe(probe metrics.Probe, cfg BreakerConfig, tracker *Tracker) *BreakerProbe {
	if cfg.ReadyToTrip == nil {
		cfg.ReadyToTrip = TripOnConsecutiveFailures(3)
	}

	p := &BreakerProbe{
		probe:   probe,
		breaker: NewBreaker[metrics.Sample](cfg),
	}
	if tracker != nil {
		tracker.Register(cfg.Name, p.breaker)
	}
	return p
}

// Collect forwards to the wrapped probe unless the breaker is open.
func (p *BreakerProbe) Collect(ctx context.Context) (metrics.Sample, error) {
	sample, err := p.breaker.Execute(func() (metrics.Sample, error) {
		return p.probe.Collect(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return metrics.Sample{}, fmt.Errorf("%w: %w", metrics.ErrCollection, ErrCircuitOpen)
		}
		return metrics.Sample{}, err
	}
	return sample, nil
}

// State returns the breaker state.
func (p *BreakerProbe) State() gobreaker.State {
	return p.breaker.State()
}

var _ metrics.Probe = (*BreakerProbe)(nil)
