package config

import (
	"fmt"

	"adaptd/pkg/types"
)

// TierRule is the resource threshold a snapshot must meet for a tier.
// HIGH_END requires both minimums; the lower tiers match when either
// minimum is met (a zero minimum never matches on its own).
type TierRule struct {
	MinRAMMB   int  `json:"min_ram_mb" yaml:"min_ram_mb" toml:"min_ram_mb"`
	MinAccelMB int  `json:"min_accel_mb" yaml:"min_accel_mb" toml:"min_accel_mb"`
	RequireAll bool `json:"require_all" yaml:"require_all" toml:"require_all"`
}

// TierPolicy maps each tier to its classification rule and memory budget.
// Thresholds are tunable policy, not contract.
type TierPolicy struct {
	Rules   map[string]TierRule `json:"rules" yaml:"rules" toml:"rules"`
	Budgets map[string]int      `json:"budgets_mb" yaml:"budgets_mb" toml:"budgets_mb"`
}

// PressureBands are the used/budget ratio boundaries between pressure levels.
type PressureBands struct {
	Low      float64 `json:"low" yaml:"low" toml:"low"`
	Moderate float64 `json:"moderate" yaml:"moderate" toml:"moderate"`
	High     float64 `json:"high" yaml:"high" toml:"high"`
}

// ModelEntry declares one candidate model in the config file.
type ModelEntry struct {
	Task             string `json:"task" yaml:"task" toml:"task"`
	Name             string `json:"name" yaml:"name" toml:"name"`
	Engine           string `json:"engine" yaml:"engine" toml:"engine"`
	Path             string `json:"path,omitempty" yaml:"path,omitempty" toml:"path,omitempty"`
	MemoryEstimateMB int    `json:"memory_estimate_mb" yaml:"memory_estimate_mb" toml:"memory_estimate_mb"`
	Accuracy         string `json:"accuracy" yaml:"accuracy" toml:"accuracy"`
	CPUCompatible    bool   `json:"cpu_compatible" yaml:"cpu_compatible" toml:"cpu_compatible"`
}

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr             string        `json:"addr" yaml:"addr" toml:"addr"`
	ModelsDir        string        `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	MemoryBudgetMB   int           `json:"memory_budget_mb" yaml:"memory_budget_mb" toml:"memory_budget_mb"`
	BatchConcurrency int           `json:"batch_concurrency" yaml:"batch_concurrency" toml:"batch_concurrency"`
	ShutdownTimeout  Duration      `json:"shutdown_timeout" yaml:"shutdown_timeout" toml:"shutdown_timeout"`
	Tiers            TierPolicy    `json:"tiers" yaml:"tiers" toml:"tiers"`
	Pressure         PressureBands `json:"pressure" yaml:"pressure" toml:"pressure"`
	Models           []ModelEntry  `json:"models" yaml:"models" toml:"models"`
}

// DefaultTierPolicy returns the representative thresholds and budgets.
// These are starting points meant to be overridden from the config file.
func DefaultTierPolicy() TierPolicy {
	return TierPolicy{
		Rules: map[string]TierRule{
			types.TierHighEnd.String():      {MinRAMMB: 32768, MinAccelMB: 8192, RequireAll: true},
			types.TierIntermediate.String(): {MinRAMMB: 16384, MinAccelMB: 4096},
			types.TierBasic.String():        {MinRAMMB: 8192},
		},
		Budgets: map[string]int{
			types.TierMinimal.String():      256,
			types.TierBasic.String():        2048,
			types.TierIntermediate.String(): 6144,
			types.TierHighEnd.String():      12288,
		},
	}
}

// DefaultPressureBands returns the default used/budget boundaries.
func DefaultPressureBands() PressureBands {
	return PressureBands{Low: 0.60, Moderate: 0.80, High: 0.95}
}

// Rule returns the classification rule for a tier, if configured.
func (p TierPolicy) Rule(t types.Tier) (TierRule, bool) {
	r, ok := p.Rules[t.String()]
	return r, ok
}

// Budget returns the memory ceiling for a tier. Falls back to the minimal
// budget when the tier is not configured.
func (p TierPolicy) Budget(t types.Tier) int {
	if b, ok := p.Budgets[t.String()]; ok && b > 0 {
		return b
	}
	if b, ok := p.Budgets[types.TierMinimal.String()]; ok {
		return b
	}
	return 256
}

// Descriptor converts a config entry into a domain descriptor.
func (e ModelEntry) Descriptor() (types.ModelDescriptor, error) {
	var acc types.Accuracy
	if e.Accuracy != "" {
		if err := acc.UnmarshalText([]byte(e.Accuracy)); err != nil {
			return types.ModelDescriptor{}, fmt.Errorf("model %s/%s: %w", e.Task, e.Name, err)
		}
	}
	if e.Task == "" || e.Name == "" {
		return types.ModelDescriptor{}, fmt.Errorf("model entry missing task or name")
	}
	return types.ModelDescriptor{
		Task:             e.Task,
		Name:             e.Name,
		Engine:           e.Engine,
		Path:             e.Path,
		MemoryEstimateMB: e.MemoryEstimateMB,
		Accuracy:         acc,
		CPUCompatible:    e.CPUCompatible,
	}, nil
}
