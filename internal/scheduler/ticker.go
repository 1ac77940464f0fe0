// Package scheduler runs periodic tasks on a cancelable ticker.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrAlreadyRunning is returned by Start when the ticker is running.
var ErrAlreadyRunning = errors.New("ticker already running")

// DefaultInterval is used when a ticker is configured without one.
const DefaultInterval = time.Second

// TickerConfig holds configuration for a Ticker.
type TickerConfig struct {
	// Name identifies the ticker in logs.
	Name string

	// Interval between ticks.
	// Default: 1 second
	Interval time.Duration

	// Task runs once per tick. It receives the ticker's context, which is
	// canceled on Stop.
	Task func(ctx context.Context)

	// Immediate runs the task once as soon as the ticker starts.
	Immediate bool

	Logger zerolog.Logger
}

// Stats tracks ticker run statistics.
type Stats struct {
	Runs            int64         `json:"runs"`
	Panics          int64         `json:"panics"`
	LastRunAt       time.Time     `json:"lastRunAt"`
	LastRunDuration time.Duration `json:"lastRunDuration"`
	TotalDuration   time.Duration `json:"totalDuration"`
}

// Ticker invokes a task at a fixed interval. Runs never overlap: a slow task
// delays the next tick instead of running concurrently with it.
type Ticker struct {
	name      string
	task      func(ctx context.Context)
	immediate bool
	logger    zerolog.Logger

	mu       sync.Mutex
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
	reset    chan time.Duration
	stats    Stats
}

// NewTicker creates a stopped ticker.
func NewTicker(cfg TickerConfig) *Ticker {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Task == nil {
		cfg.Task = func(context.Context) {}
	}

	return &Ticker{
		name:      cfg.Name,
		task:      cfg.Task,
		immediate: cfg.Immediate,
		logger:    cfg.Logger.With().Str("ticker", cfg.Name).Logger(),
		interval:  cfg.Interval,
		reset:     make(chan time.Duration, 1),
	}
}

// Start launches the tick loop. The loop ends when ctx is canceled or Stop
// is called.
func (t *Ticker) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel != nil {
		return ErrAlreadyRunning
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	t.cancel = cancel
	t.done = done

	// Drop a Reset that arrived while stopped; interval already holds it.
	select {
	case <-t.reset:
	default:
	}

	go t.loop(loopCtx, t.interval, done)

	t.logger.Debug().Dur("interval", t.interval).Msg("ticker started")
	return nil
}

// Stop cancels the loop and waits for an in-flight task to return. It must
// not be called from inside the task.
func (t *Ticker) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	t.logger.Debug().Msg("ticker stopped")
}

// Reset changes the interval. A running loop switches to it without
// restarting.
func (t *Ticker) Reset(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.interval = interval
	if t.cancel == nil {
		return
	}

	select {
	case <-t.reset:
	default:
	}
	t.reset <- interval
}

// Interval returns the current interval.
func (t *Ticker) Interval() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.interval
}

// Running reports whether the loop is active.
func (t *Ticker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancel != nil
}

// Stats returns a copy of the run statistics.
func (t *Ticker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

func (t *Ticker) loop(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)

	tk := time.NewTicker(interval)
	defer tk.Stop()

	if t.immediate {
		t.run(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case d := <-t.reset:
			tk.Reset(d)
			t.logger.Info().Dur("interval", d).Msg("ticker interval changed")
		case <-tk.C:
			if ctx.Err() != nil {
				return
			}
			t.run(ctx)
		}
	}
}

func (t *Ticker) run(ctx context.Context) {
	start := time.Now()
	panicked := false

	func() {
		defer func() {
			if r := recover(); r != nil {
				panicked = true
				t.logger.Error().Interface("panic", r).Msg("ticker task panicked")
			}
		}()
		t.task(ctx)
	}()

	elapsed := time.Since(start)

	t.mu.Lock()
	t.stats.Runs++
	if panicked {
		t.stats.Panics++
	}
	t.stats.LastRunAt = start
	t.stats.LastRunDuration = elapsed
	t.stats.TotalDuration += elapsed
	t.mu.Unlock()
}
