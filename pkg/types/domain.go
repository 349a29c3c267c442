package types

import (
	"fmt"
	"time"
)

// Tier is the discrete hardware capability class of the host. Tiers are
// strictly ordered: a higher tier implies a superset of capabilities and a
// larger memory budget.
type Tier int

const (
	TierMinimal Tier = iota
	TierBasic
	TierIntermediate
	TierHighEnd
)

var tierNames = [...]string{"minimal", "basic", "intermediate", "high_end"}

func (t Tier) String() string {
	if t < TierMinimal || t > TierHighEnd {
		return fmt.Sprintf("tier(%d)", int(t))
	}
	return tierNames[t]
}

// Valid returns true if the tier is a known value.
func (t Tier) Valid() bool { return t >= TierMinimal && t <= TierHighEnd }

func (t Tier) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Tier) UnmarshalText(b []byte) error {
	for i, n := range tierNames {
		if n == string(b) {
			*t = Tier(i)
			return nil
		}
	}
	return fmt.Errorf("unknown tier: %q", string(b))
}

// Pressure is the qualitative memory pressure level derived from the
// used/budget ratio.
type Pressure int

const (
	PressureLow Pressure = iota
	PressureModerate
	PressureHigh
	PressureCritical
)

var pressureNames = [...]string{"low", "moderate", "high", "critical"}

func (p Pressure) String() string {
	if p < PressureLow || p > PressureCritical {
		return fmt.Sprintf("pressure(%d)", int(p))
	}
	return pressureNames[p]
}

func (p Pressure) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Pressure) UnmarshalText(b []byte) error {
	for i, n := range pressureNames {
		if n == string(b) {
			*p = Pressure(i)
			return nil
		}
	}
	return fmt.Errorf("unknown pressure: %q", string(b))
}

// Accuracy ranks a model variant's expected quality relative to its
// siblings for the same task.
type Accuracy int

const (
	AccuracyMinimal Accuracy = iota
	AccuracyMedium
	AccuracyHigh
)

var accuracyNames = [...]string{"minimal", "medium", "high"}

func (a Accuracy) String() string {
	if a < AccuracyMinimal || a > AccuracyHigh {
		return fmt.Sprintf("accuracy(%d)", int(a))
	}
	return accuracyNames[a]
}

func (a Accuracy) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *Accuracy) UnmarshalText(b []byte) error {
	for i, n := range accuracyNames {
		if n == string(b) {
			*a = Accuracy(i)
			return nil
		}
	}
	return fmt.Errorf("unknown accuracy: %q", string(b))
}

// SystemSnapshot is an immutable capture of detected host resources,
// taken once at classification time.
type SystemSnapshot struct {
	RAMTotalMB   int  `json:"ram_total_mb"`
	CPUCores     int  `json:"cpu_cores"`
	AccelPresent bool `json:"accelerator_present"`
	AccelTotalMB int  `json:"accelerator_total_mb"`
	// Degraded is set when any sub-probe failed and a conservative
	// minimum was substituted.
	Degraded bool `json:"degraded,omitempty"`
}

// ModelDescriptor is static metadata for one candidate model of a task.
// Descriptors for a task live in a fixed priority order, most accurate
// (and most expensive) first.
type ModelDescriptor struct {
	// Task this model serves (e.g. sentiment, emotion, topics).
	Task string `json:"task"`
	// Model variant name, unique within the task.
	Name string `json:"name"`
	// Engine selects the provider implementation (lexicon, rules, keywords, llama).
	Engine string `json:"engine"`
	// Path to model weights on disk, for engines that load files.
	Path string `json:"path,omitempty"`
	// Static memory estimate used for admission before the real footprint is known.
	MemoryEstimateMB int `json:"memory_estimate_mb"`
	// Relative accuracy of this variant.
	Accuracy Accuracy `json:"accuracy"`
	// CPUCompatible indicates the variant runs without an accelerator.
	CPUCompatible bool `json:"cpu_compatible"`
}

// Key identifies a resident model: task x name.
func (d ModelDescriptor) Key() string { return d.Task + "/" + d.Name }

// ProcessInfo describes an external process observed to hold significant
// memory on the same device. Diagnostic only.
type ProcessInfo struct {
	PID   int32  `json:"pid"`
	Name  string `json:"name"`
	RSSMB int    `json:"rss_mb"`
}

// MemoryReading is a point-in-time view of memory accounting.
type MemoryReading struct {
	UsedMB        int      `json:"used_mb"`
	BudgetMB      int      `json:"budget_mb"`
	Pressure      Pressure `json:"pressure"`
	SystemUsedMB  int      `json:"system_used_mb"`
	SystemTotalMB int      `json:"system_total_mb"`
	AccelPresent  bool     `json:"accelerator_present"`
	AccelUsedMB   int      `json:"accelerator_used_mb,omitempty"`
	AccelTotalMB  int      `json:"accelerator_total_mb,omitempty"`
	At            time.Time `json:"at"`
}

// CleanupResult reports the outcome of an eviction cycle.
type CleanupResult struct {
	Success        bool     `json:"success"`
	ModelsUnloaded []string `json:"models_unloaded"`
	FreedMB        int      `json:"memory_freed_mb"`
	FinalPressure  Pressure `json:"final_pressure"`
}
