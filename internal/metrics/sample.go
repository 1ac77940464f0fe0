// Package metrics provides the metric sample model, the bounded sample history
// and the probes that produce samples.
package metrics

import "time"

// GPU holds graphics adapter readings.
type GPU struct {
	MemoryUsedGB   float64 `json:"memoryUsedGB"`
	MemoryTotalGB  float64 `json:"memoryTotalGB"`
	UtilizationPct float64 `json:"utilizationPct"`
	TemperatureC   float64 `json:"temperatureC"`
}

// CPU holds processor readings.
type CPU struct {
	UsagePct     float64 `json:"usagePct"`
	TemperatureC float64 `json:"temperatureC"`
	LoadAverage  float64 `json:"loadAverage"`
}

// Memory holds main memory readings.
type Memory struct {
	UsedGB     float64 `json:"usedGB"`
	TotalGB    float64 `json:"totalGB"`
	UsagePct   float64 `json:"usagePct"`
	SwapUsedGB float64 `json:"swapUsedGB"`
}

// Rendering holds frame pipeline readings reported by the renderer.
type Rendering struct {
	FPS           float64 `json:"fps"`
	FrameTimeMs   float64 `json:"frameTimeMs"`
	DrawCalls     float64 `json:"drawCalls"`
	DroppedFrames float64 `json:"droppedFrames"`
}

// System holds host-wide readings.
type System struct {
	UptimeSeconds float64 `json:"uptimeSeconds"`
	ProcessCount  float64 `json:"processCount"`
}

// Sample is one reading of every metric domain at a point in time.
// Samples are values; once appended to a History they are never modified.
type Sample struct {
	Timestamp time.Time `json:"timestamp"`
	GPU       GPU       `json:"gpu"`
	CPU       CPU       `json:"cpu"`
	Memory    Memory    `json:"memory"`
	Rendering Rendering `json:"rendering"`
	System    System    `json:"system"`
}

// mean returns the field-wise average of samples stamped with ts.
// An empty slice yields the zero sample.
func mean(samples []Sample, ts time.Time) Sample {
	out := Sample{Timestamp: ts}
	if len(samples) == 0 {
		return out
	}

	for i := range samples {
		s := &samples[i]
		out.GPU.MemoryUsedGB += s.GPU.MemoryUsedGB
		out.GPU.MemoryTotalGB += s.GPU.MemoryTotalGB
		out.GPU.UtilizationPct += s.GPU.UtilizationPct
		out.GPU.TemperatureC += s.GPU.TemperatureC
		out.CPU.UsagePct += s.CPU.UsagePct
		out.CPU.TemperatureC += s.CPU.TemperatureC
		out.CPU.LoadAverage += s.CPU.LoadAverage
		out.Memory.UsedGB += s.Memory.UsedGB
		out.Memory.TotalGB += s.Memory.TotalGB
		out.Memory.UsagePct += s.Memory.UsagePct
		out.Memory.SwapUsedGB += s.Memory.SwapUsedGB
		out.Rendering.FPS += s.Rendering.FPS
		out.Rendering.FrameTimeMs += s.Rendering.FrameTimeMs
		out.Rendering.DrawCalls += s.Rendering.DrawCalls
		out.Rendering.DroppedFrames += s.Rendering.DroppedFrames
		out.System.UptimeSeconds += s.System.UptimeSeconds
		out.System.ProcessCount += s.System.ProcessCount
	}

	n := float64(len(samples))
	out.GPU.MemoryUsedGB /= n
	out.GPU.MemoryTotalGB /= n
	out.GPU.UtilizationPct /= n
	out.GPU.TemperatureC /= n
	out.CPU.UsagePct /= n
	out.CPU.TemperatureC /= n
	out.CPU.LoadAverage /= n
	out.Memory.UsedGB /= n
	out.Memory.TotalGB /= n
	out.Memory.UsagePct /= n
	out.Memory.SwapUsedGB /= n
	out.Rendering.FPS /= n
	out.Rendering.FrameTimeMs /= n
	out.Rendering.DrawCalls /= n
	out.Rendering.DroppedFrames /= n
	out.System.UptimeSeconds /= n
	out.System.ProcessCount /= n

	return out
}
