package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
)

const bytesPerGB = 1024 * 1024 * 1024

// HostProbeConfig holds configuration for a HostProbe.
type HostProbeConfig struct {
	// Render supplies GPU and rendering readings. Optional; when nil those
	// domains are reported as zero.
	Render RenderSource

	// Now returns the sample timestamp.
	// Default: time.Now
	Now func() time.Time
}

// HostProbe reads CPU, memory and system counters from the local host.
type HostProbe struct {
	render RenderSource
	now    func() time.Time
}

// NewHostProbe creates a probe backed by the host's kernel counters.
func NewHostProbe(cfg HostProbeConfig) *HostProbe {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &HostProbe{render: cfg.Render, now: cfg.Now}
}

// Collect reads one sample. CPU and memory counters are required; load,
// uptime and process count are best effort.
func (p *HostProbe) Collect(ctx context.Context) (Sample, error) {
	sample := Sample{Timestamp: p.now()}

	percents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return Sample{}, fmt.Errorf("%w: cpu percent: %w", ErrCollection, err)
	}
	if len(percents) > 0 {
		sample.CPU.UsagePct = percents[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Sample{}, fmt.Errorf("%w: virtual memory: %w", ErrCollection, err)
	}
	sample.Memory.UsedGB = float64(vm.Used) / bytesPerGB
	sample.Memory.TotalGB = float64(vm.Total) / bytesPerGB
	sample.Memory.UsagePct = vm.UsedPercent

	if swap, err := mem.SwapMemoryWithContext(ctx); err == nil {
		sample.Memory.SwapUsedGB = float64(swap.Used) / bytesPerGB
	}
	if avg, err := load.AvgWithContext(ctx); err == nil {
		sample.CPU.LoadAverage = avg.Load1
	}
	if uptime, err := host.UptimeWithContext(ctx); err == nil {
		sample.System.UptimeSeconds = float64(uptime)
	}
	if pids, err := process.PidsWithContext(ctx); err == nil {
		sample.System.ProcessCount = float64(len(pids))
	}

	if p.render != nil {
		gpu, rendering, err := p.render.RenderStats(ctx)
		if err != nil {
			return Sample{}, fmt.Errorf("%w: render stats: %w", ErrCollection, err)
		}
		sample.GPU = gpu
		sample.Rendering = rendering
	}

	return sample, nil
}

var _ Probe = (*HostProbe)(nil)
