// Package hardware detects host resources (RAM, CPU, accelerator memory)
// and classifies the machine into a capability tier.
package hardware

import (
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"adaptd/pkg/types"
)

// Conservative minimums substituted when a probe fails. Detection never
// fails outright; it degrades.
const (
	fallbackRAMMB   = 2048
	fallbackCPUCore = 1
)

// Detect captures a one-shot snapshot of host resources. It never returns
// an error: any sub-probe failure substitutes a conservative minimum and
// sets Degraded on the snapshot.
func Detect() types.SystemSnapshot {
	snap := types.SystemSnapshot{
		RAMTotalMB: fallbackRAMMB,
		CPUCores:   fallbackCPUCore,
	}

	if vm, err := mem.VirtualMemory(); err == nil && vm.Total > 0 {
		snap.RAMTotalMB = int(vm.Total / (1024 * 1024))
	} else {
		snap.Degraded = true
	}

	if n, err := cpu.Counts(true); err == nil && n > 0 {
		snap.CPUCores = n
	} else if n := runtime.NumCPU(); n > 0 {
		snap.CPUCores = n
	} else {
		snap.Degraded = true
	}

	if totalMB, ok := probeAccelerator(snap.RAMTotalMB); ok {
		snap.AccelPresent = true
		snap.AccelTotalMB = totalMB
	}

	return snap
}

// probeAccelerator returns total accelerator memory in MB. Apple silicon is
// treated as unified memory; otherwise the nvidia-smi/rocm-smi CLIs are
// queried like most local-inference stacks do.
func probeAccelerator(ramMB int) (int, bool) {
	if runtime.GOOS == "darwin" && runtime.GOARCH == "arm64" {
		// Unified memory: the GPU shares system RAM.
		return ramMB, true
	}
	if mb, ok := probeNvidiaSMI(); ok {
		return mb, true
	}
	if mb, ok := probeRocmSMI(); ok {
		return mb, true
	}
	return 0, false
}

func probeNvidiaSMI() (int, bool) {
	out, err := exec.Command("nvidia-smi", "--query-gpu=memory.total", "--format=csv,noheader,nounits").Output()
	if err != nil {
		return 0, false
	}
	total := 0
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if mb, err := strconv.Atoi(strings.TrimSpace(line)); err == nil {
			total += mb
		}
	}
	return total, total > 0
}

func probeRocmSMI() (int, bool) {
	out, err := exec.Command("rocm-smi", "--showmeminfo", "vram", "--csv").Output()
	if err != nil {
		return 0, false
	}
	total := 0
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Split(line, ",")
		if len(fields) < 2 {
			continue
		}
		// VRAM totals are reported in bytes in the second column.
		if b, err := strconv.ParseInt(strings.TrimSpace(fields[1]), 10, 64); err == nil && b > 0 {
			total += int(b / (1024 * 1024))
		}
	}
	return total, total > 0
}
