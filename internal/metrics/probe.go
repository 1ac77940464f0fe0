package metrics

import (
	"context"
	"errors"
)

// ErrCollection wraps every failure to obtain a sample from a probe.
var ErrCollection = errors.New("metrics collection failed")

// Probe produces one sample on request. Implementations may block on I/O and
// must honor ctx.
type Probe interface {
	Collect(ctx context.Context) (Sample, error)
}

// ProbeFunc adapts a function to the Probe interface.
type ProbeFunc func(ctx context.Context) (Sample, error)

// Collect calls f.
func (f ProbeFunc) Collect(ctx context.Context) (Sample, error) {
	return f(ctx)
}

// RenderSource reports GPU and frame pipeline readings. It is supplied by the
// rendering subsystem; the host probe has no way to read them itself.
type RenderSource interface {
	RenderStats(ctx context.Context) (GPU, Rendering, error)
}
