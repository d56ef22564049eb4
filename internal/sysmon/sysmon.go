// Package sysmon samples host utilization and checks whether the
// game server's ports are bound.
package sysmon

import (
	"context"
	"log"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
)

// Metric is a single utilization reading. OK is false when the
// probe failed and Pct must not be trusted.
type Metric struct {
	Pct float64
	OK  bool
}

// Utilization is one sample of host resource usage. Byte totals are
// zero when the backing probe failed.
type Utilization struct {
	CPU  Metric
	Mem  Metric
	Disk Metric

	MemUsed   uint64
	MemTotal  uint64
	DiskUsed  uint64
	DiskTotal uint64
}

// Warning thresholds in percent.
const (
	cpuWarnPct  = 70
	memWarnPct  = 85
	diskWarnPct = 80
)

// Warning reports whether any available metric crossed its
// threshold. Unavailable metrics never trigger a warning.
func (u Utilization) Warning() bool {
	return (u.CPU.OK && u.CPU.Pct > cpuWarnPct) ||
		(u.Mem.OK && u.Mem.Pct > memWarnPct) ||
		(u.Disk.OK && u.Disk.Pct > diskWarnPct)
}

// Sample probes cpu, memory and the root filesystem. Each probe
// fails independently; a failed probe yields an unavailable Metric.
func Sample(ctx context.Context) Utilization {
	var u Utilization

	if pcts, err := cpu.PercentWithContext(ctx, 0, false); err != nil {
		log.Printf("[sysmon] cpu probe: %v", err)
	} else if len(pcts) > 0 {
		u.CPU = Metric{Pct: pcts[0], OK: true}
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		log.Printf("[sysmon] memory probe: %v", err)
	} else {
		u.Mem = Metric{Pct: vm.UsedPercent, OK: true}
		u.MemUsed = vm.Used
		u.MemTotal = vm.Total
	}

	if du, err := disk.UsageWithContext(ctx, "/"); err != nil {
		log.Printf("[sysmon] disk probe: %v", err)
	} else {
		u.Disk = Metric{Pct: du.UsedPercent, OK: true}
		u.DiskUsed = du.Used
		u.DiskTotal = du.Total
	}

	return u
}
