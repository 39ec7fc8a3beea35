// Package device reports the compute resources available to training and
// serving. Models run on the CPU; the report says so explicitly.
package device

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Report describes the host.
type Report struct {
	CPUModel   string
	Cores      int // physical
	Threads    int // logical
	MemTotal   uint64
	GoVersion  string
	GOMAXPROCS int
}

// Probe inspects the host.
func Probe(ctx context.Context) (Report, error) {
	r := Report{
		GoVersion:  runtime.Version(),
		GOMAXPROCS: runtime.GOMAXPROCS(0),
	}
	infos, err := cpu.InfoWithContext(ctx)
	if err == nil && len(infos) > 0 {
		r.CPUModel = strings.TrimSpace(infos[0].ModelName)
	}
	if r.Threads, err = cpu.CountsWithContext(ctx, true); err != nil {
		return r, fmt.Errorf("device: cpu counts: %w", err)
	}
	if n, err := cpu.CountsWithContext(ctx, false); err == nil {
		r.Cores = n
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return r, fmt.Errorf("device: memory: %w", err)
	}
	r.MemTotal = vm.Total
	return r, nil
}

// String renders the availability line printed before training.
func (r Report) String() string {
	model := r.CPUModel
	if model == "" {
		model = "unknown cpu"
	}
	return fmt.Sprintf("GPU not available, training on CPU: %s (%d cores, %d threads, GOMAXPROCS=%d), RAM %s, %s",
		model, r.Cores, r.Threads, r.GOMAXPROCS, FormatBytes(r.MemTotal), r.GoVersion)
}

// Usage is a point-in-time load sample.
type Usage struct {
	CPUPercent float64
	MemPercent float64
}

// Sample measures current CPU and memory utilisation.
func Sample(ctx context.Context) (Usage, error) {
	var u Usage
	pct, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return u, fmt.Errorf("device: cpu percent: %w", err)
	}
	if len(pct) > 0 {
		u.CPUPercent = pct[0]
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return u, fmt.Errorf("device: memory: %w", err)
	}
	u.MemPercent = vm.UsedPercent
	return u, nil
}

// String renders the footer line used by the TUI.
func (u Usage) String() string {
	return fmt.Sprintf("CPU: %.1f%% | RAM: %.1f%% | Go: %s", u.CPUPercent, u.MemPercent, runtime.Version())
}

// FormatBytes renders n with a binary unit.
func FormatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
