// Package diagnostics captures a best-effort host resource snapshot
// attached to slow-response warnings, purely to give a human debugging
// a hang more context. A snapshot failure is never surfaced as a
// control-flow error.
package diagnostics

import (
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Snapshot is a point-in-time host resource reading.
type Snapshot struct {
	CPUPercent     float64
	MemUsedPercent float64
}

func (s Snapshot) String() string {
	return fmt.Sprintf("cpu=%.1f%% mem=%.1f%%", s.CPUPercent, s.MemUsedPercent)
}

// Capture takes a best-effort snapshot. On any failure it returns the
// zero Snapshot and the error describing what failed; callers should
// log and ignore it rather than fail the caller's operation.
func Capture() (Snapshot, error) {
	percents, err := cpu.Percent(50*time.Millisecond, false)
	if err != nil {
		return Snapshot{}, err
	}
	vm, err := mem.VirtualMemory()
	if err != nil {
		return Snapshot{}, err
	}
	var cpuPct float64
	if len(percents) > 0 {
		cpuPct = percents[0]
	}
	return Snapshot{CPUPercent: cpuPct, MemUsedPercent: vm.UsedPercent}, nil
}
