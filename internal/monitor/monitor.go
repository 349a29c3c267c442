// Package monitor tracks live memory usage against the session budget and
// derives a qualitative pressure level from it. Readings are advisory
// snapshots; callers re-check after every registry mutation.
package monitor

import (
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"adaptd/internal/config"
	"adaptd/pkg/types"
)

// Monitor polls memory state. All methods are safe to call concurrently
// with load/evict operations: readings are built fresh on each call and the
// only shared state is an atomic latch.
type Monitor struct {
	budgetMB int
	bands    config.PressureBands
	usedFn   func() int // resident model footprint in MB

	accelPresent bool
	accelTotalMB int
	// accelFailed latches true after the first accelerator query failure;
	// from then on the session reports accelerator_present=false and
	// falls back to system RAM accounting.
	accelFailed atomic.Bool
}

// New builds a monitor over the given budget. usedFn reports resident model
// memory and must itself be safe for concurrent use.
func New(budgetMB int, bands config.PressureBands, snap types.SystemSnapshot, usedFn func() int) *Monitor {
	if usedFn == nil {
		usedFn = func() int { return 0 }
	}
	return &Monitor{
		budgetMB:     budgetMB,
		bands:        bands,
		usedFn:       usedFn,
		accelPresent: snap.AccelPresent,
		accelTotalMB: snap.AccelTotalMB,
	}
}

// PressureFor maps a used amount onto a pressure level via the configured
// bands. UsedMB above budget always reads as critical.
func (m *Monitor) PressureFor(usedMB int) types.Pressure {
	if m.budgetMB <= 0 {
		return types.PressureLow
	}
	ratio := float64(usedMB) / float64(m.budgetMB)
	switch {
	case ratio < m.bands.Low:
		return types.PressureLow
	case ratio < m.bands.Moderate:
		return types.PressureModerate
	case ratio < m.bands.High:
		return types.PressureHigh
	default:
		return types.PressureCritical
	}
}

// ReduceTarget returns how many MB must be freed to bring usage back to
// the MODERATE boundary. Zero when usage is already at or below it.
func (m *Monitor) ReduceTarget(usedMB int) int {
	if m.budgetMB <= 0 {
		return 0
	}
	ceiling := int(float64(m.budgetMB) * m.bands.Moderate)
	if usedMB <= ceiling {
		return 0
	}
	return usedMB - ceiling
}

// Pressure returns the current pressure level.
func (m *Monitor) Pressure() types.Pressure { return m.PressureFor(m.usedFn()) }

// Reading returns a point-in-time view of memory accounting. System and
// accelerator figures are best-effort; the budget figures are exact.
func (m *Monitor) Reading() types.MemoryReading {
	used := m.usedFn()
	r := types.MemoryReading{
		UsedMB:   used,
		BudgetMB: m.budgetMB,
		Pressure: m.PressureFor(used),
		At:       time.Now(),
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		r.SystemUsedMB = int(vm.Used / (1024 * 1024))
		r.SystemTotalMB = int(vm.Total / (1024 * 1024))
	}
	if m.accelPresent && !m.accelFailed.Load() {
		if usedMB, ok := probeAccelUsed(); ok {
			r.AccelPresent = true
			r.AccelUsedMB = usedMB
			r.AccelTotalMB = m.accelTotalMB
		} else {
			m.accelFailed.Store(true)
		}
	}
	return r
}

// conflictRSSFraction of system RAM a foreign process must hold to count
// as a conflict.
const conflictRSSFraction = 0.10

// accelTenants are process names known to hold accelerator memory.
var accelTenants = []string{"ollama", "llama-server", "python", "pytorch", "tritonserver"}

// DetectConflicts enumerates external processes holding significant memory
// on this device. Diagnostic only; never drives automatic action.
func (m *Monitor) DetectConflicts() []types.ProcessInfo {
	procs, err := process.Processes()
	if err != nil {
		return nil
	}
	var totalMB int
	if vm, err := mem.VirtualMemory(); err == nil {
		totalMB = int(vm.Total / (1024 * 1024))
	}
	self := int32(os.Getpid())
	var out []types.ProcessInfo
	for _, p := range procs {
		if p.Pid == self {
			continue
		}
		mi, err := p.MemoryInfo()
		if err != nil || mi == nil {
			continue
		}
		name, _ := p.Name()
		rssMB := int(mi.RSS / (1024 * 1024))
		if isConflict(name, rssMB, totalMB) {
			out = append(out, types.ProcessInfo{PID: p.Pid, Name: name, RSSMB: rssMB})
		}
	}
	return out
}

func isConflict(name string, rssMB, totalMB int) bool {
	if totalMB > 0 && float64(rssMB) >= float64(totalMB)*conflictRSSFraction {
		return true
	}
	lower := strings.ToLower(name)
	for _, t := range accelTenants {
		if strings.Contains(lower, t) {
			return rssMB >= 256
		}
	}
	return false
}

func probeAccelUsed() (int, bool) {
	out, err := exec.Command("nvidia-smi", "--query-gpu=memory.used", "--format=csv,noheader,nounits").Output()
	if err != nil {
		return 0, false
	}
	total := 0
	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		if mb, err := strconv.Atoi(strings.TrimSpace(line)); err == nil {
			total += mb
		}
	}
	return total, true
}
