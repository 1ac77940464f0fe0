package metrics

import (
	"sync"
	"time"
)

const (
	// DefaultHistoryCapacity keeps five minutes of samples at 1 Hz.
	DefaultHistoryCapacity = 300

	// DefaultTrendBuckets is the number of points Trend produces when none is given.
	DefaultTrendBuckets = 10
)

// HistoryConfig holds configuration for a History.
type HistoryConfig struct {
	// Capacity is the maximum number of retained samples.
	// Default: 300
	Capacity int

	// Now returns the current time used to anchor windows.
	// Default: time.Now
	Now func() time.Time
}

// TimeRange bounds an export. A zero Start or End leaves that side open.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether ts lies within the range, bounds included.
func (r TimeRange) Contains(ts time.Time) bool {
	if !r.Start.IsZero() && ts.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && ts.After(r.End) {
		return false
	}
	return true
}

// TrendPoint is the average of the samples that fell into one trend bucket.
type TrendPoint struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Count  int       `json:"count"`
	Sample Sample    `json:"sample"`
}

// History is a fixed-capacity ring buffer of samples in arrival order.
type History struct {
	mu    sync.RWMutex
	buf   []Sample
	head  int // index of the oldest sample
	count int
	now   func() time.Time
}

// NewHistory creates an empty history.
func NewHistory(cfg HistoryConfig) *History {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultHistoryCapacity
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &History{
		buf: make([]Sample, cfg.Capacity),
		now: cfg.Now,
	}
}

// Append stores a sample at the tail, evicting the oldest one when full.
func (h *History) Append(s Sample) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.count < len(h.buf) {
		h.buf[(h.head+h.count)%len(h.buf)] = s
		h.count++
		return
	}

	h.buf[h.head] = s
	h.head = (h.head + 1) % len(h.buf)
}

// Len returns the number of retained samples.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Capacity returns the maximum number of retained samples.
func (h *History) Capacity() int {
	return len(h.buf)
}

// Latest returns the most recently appended sample.
func (h *History) Latest() (Sample, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.count == 0 {
		return Sample{}, false
	}
	return h.buf[(h.head+h.count-1)%len(h.buf)], true
}

// Samples returns a chronological copy of every retained sample.
func (h *History) Samples() []Sample {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.filter(func(Sample) bool { return true })
}

// Export returns the retained samples within r in chronological order.
// A nil range returns every retained sample.
func (h *History) Export(r *TimeRange) []Sample {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if r == nil {
		return h.filter(func(Sample) bool { return true })
	}
	return h.filter(func(s Sample) bool { return r.Contains(s.Timestamp) })
}

// Average returns the field-wise mean of the samples no older than window.
// A window <= 0 covers the whole history. An empty window yields a zero sample.
func (h *History) Average(window time.Duration) Sample {
	avg, _ := h.Aggregate(window)
	return avg
}

// Aggregate is Average that also reports how many samples were averaged.
func (h *History) Aggregate(window time.Duration) (Sample, int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	now := h.now()
	samples := h.window(now, window)
	return mean(samples, now), len(samples)
}

// Trend splits the window into contiguous buckets and returns the average of
// each non-empty bucket, oldest first. Fewer than two samples in the window
// yield an empty result. Every call recomputes the series from scratch.
func (h *History) Trend(window time.Duration, buckets int) []TrendPoint {
	if buckets <= 0 {
		buckets = DefaultTrendBuckets
	}

	h.mu.RLock()
	now := h.now()
	samples := h.window(now, window)
	h.mu.RUnlock()

	if len(samples) < 2 {
		return []TrendPoint{}
	}

	start := now.Add(-window)
	if window <= 0 {
		start = samples[0].Timestamp
	}
	width := now.Sub(start) / time.Duration(buckets)
	if width <= 0 {
		width = 1
	}

	grouped := make([][]Sample, buckets)
	for _, s := range samples {
		idx := int(s.Timestamp.Sub(start) / width)
		if idx < 0 {
			idx = 0
		}
		if idx >= buckets {
			idx = buckets - 1
		}
		grouped[idx] = append(grouped[idx], s)
	}

	points := make([]TrendPoint, 0, buckets)
	for i, group := range grouped {
		if len(group) == 0 {
			continue
		}
		bucketStart := start.Add(time.Duration(i) * width)
		points = append(points, TrendPoint{
			Start:  bucketStart,
			End:    bucketStart.Add(width),
			Count:  len(group),
			Sample: mean(group, bucketStart),
		})
	}
	return points
}

// window returns the samples stamped at or after now-window. Callers hold mu.
func (h *History) window(now time.Time, window time.Duration) []Sample {
	if window <= 0 {
		return h.filter(func(Sample) bool { return true })
	}
	cutoff := now.Add(-window)
	return h.filter(func(s Sample) bool { return !s.Timestamp.Before(cutoff) })
}

// filter walks the ring oldest first. Callers hold mu.
func (h *History) filter(keep func(Sample) bool) []Sample {
	out := make([]Sample, 0, h.count)
	for i := 0; i < h.count; i++ {
		s := h.buf[(h.head+i)%len(h.buf)]
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}
