// Package registry tracks candidate model descriptors per task and the set
// of models currently resident in memory, under a soft budget.
package registry

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"adaptd/internal/events"
	"adaptd/internal/provider"
	"adaptd/pkg/types"
)

// resident is one loaded model. refs > 0 means an in-flight call holds it;
// such entries are never evicted.
type resident struct {
	desc        types.ModelDescriptor
	prov        provider.Provider
	footprintMB int
	lastUsed    time.Time
	refs        int
}

// Registry holds the per-task descriptor catalog and the resident table.
// All mutation goes through mu; loads themselves run outside the lock and
// are coalesced per key via singleflight.
type Registry struct {
	mu       sync.Mutex
	catalog  map[string][]types.ModelDescriptor
	tasks    []string // insertion order, for stable listings
	resident map[string]*resident
	usedMB   int

	budgetMB     int
	accelPresent bool

	group   singleflight.Group
	factory provider.Factory
	pub     events.Publisher
	log     zerolog.Logger

	loadsTotal     atomic.Uint64
	evictionsTotal atomic.Uint64
}

// Options configures Registry construction.
type Options struct {
	Catalog   []types.ModelDescriptor
	Factory   provider.Factory
	Publisher events.Publisher
	Logger    zerolog.Logger
}

// New builds a registry over the given catalog. Configure must be called
// with the classified budget before loads are admitted.
func New(opts Options) *Registry {
	r := &Registry{
		catalog:  make(map[string][]types.ModelDescriptor),
		resident: make(map[string]*resident),
		factory:  opts.Factory,
		pub:      opts.Publisher,
		log:      opts.Logger,
	}
	if r.pub == nil {
		r.pub = events.Noop{}
	}
	for _, d := range opts.Catalog {
		if _, ok := r.catalog[d.Task]; !ok {
			r.tasks = append(r.tasks, d.Task)
		}
		r.catalog[d.Task] = append(r.catalog[d.Task], d)
	}
	// Every task must end in a resource-free heuristic so a fallback chain
	// can never be exhausted, no matter where the catalog came from.
	for _, task := range r.tasks {
		if hasHeuristicFloor(r.catalog[task]) {
			continue
		}
		r.catalog[task] = append(r.catalog[task], types.ModelDescriptor{
			Task:          task,
			Name:          "heuristic-fallback",
			Engine:        provider.FallbackEngine(task),
			Accuracy:      types.AccuracyMinimal,
			CPUCompatible: true,
		})
		r.log.Debug().Str("task", task).Msg("catalog declares no heuristic candidate, appending fallback")
	}
	return r
}

// hasHeuristicFloor reports whether a candidate list contains a descriptor
// that loads on any host under any budget.
func hasHeuristicFloor(descs []types.ModelDescriptor) bool {
	for _, d := range descs {
		if provider.Heuristic(d.Engine) && d.CPUCompatible && d.MemoryEstimateMB == 0 {
			return true
		}
	}
	return false
}

// Configure sets the session memory budget and accelerator availability.
// Called once at initialization and again on explicit refresh.
func (r *Registry) Configure(budgetMB int, accelPresent bool) {
	r.mu.Lock()
	r.budgetMB = budgetMB
	r.accelPresent = accelPresent
	r.mu.Unlock()
	residentGauge.Set(0)
}

// Tasks returns the registered analysis types in registration order.
func (r *Registry) Tasks() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.tasks))
	copy(out, r.tasks)
	return out
}

// HasTask reports whether a task is registered.
func (r *Registry) HasTask(task string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.catalog[task]
	return ok
}

// EstimateMemory returns the static memory estimate for a task/name pair.
func (r *Registry) EstimateMemory(task, name string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.catalog[task] {
		if d.Name == name {
			return d.MemoryEstimateMB, nil
		}
	}
	return 0, ErrUnknownModel(task, name)
}

// ResolveCandidates filters a task's descriptors to those usable under the
// current budget, preserving priority order (most accurate first). A
// candidate fits when it is already resident, is a resource-free heuristic,
// or its estimate fits the budget once evictable residents are discounted.
// Descriptors requiring an accelerator are dropped on hosts without one.
func (r *Registry) ResolveCandidates(task string) ([]types.ModelDescriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	descs, ok := r.catalog[task]
	if !ok {
		return nil, ErrUnknownModel(task, "")
	}
	pinned := 0
	for _, e := range r.resident {
		if e.refs > 0 {
			pinned += e.footprintMB
		}
	}
	reclaimable := r.budgetMB - pinned
	var out []types.ModelDescriptor
	for _, d := range descs {
		if !d.CPUCompatible && !r.accelPresent {
			continue
		}
		if provider.Heuristic(d.Engine) || d.MemoryEstimateMB == 0 {
			out = append(out, d)
			continue
		}
		if _, loaded := r.resident[d.Key()]; loaded {
			out = append(out, d)
			continue
		}
		if d.MemoryEstimateMB <= reclaimable {
			out = append(out, d)
		}
	}
	return out, nil
}

// UsedMB returns the summed measured footprint of resident models.
func (r *Registry) UsedMB() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.usedMB
}

// BudgetMB returns the configured session budget.
func (r *Registry) BudgetMB() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.budgetMB
}

// LoadsTotal returns the number of model loads since construction.
func (r *Registry) LoadsTotal() uint64 { return r.loadsTotal.Load() }

// EvictionsTotal returns the number of evictions since construction.
func (r *Registry) EvictionsTotal() uint64 { return r.evictionsTotal.Load() }

// LoadedSnapshot returns a read-only view of resident models, for status
// and cleanup decisions.
func (r *Registry) LoadedSnapshot() []types.LoadedModelStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.LoadedModelStatus, 0, len(r.resident))
	for key, e := range r.resident {
		out = append(out, types.LoadedModelStatus{
			Key:         key,
			FootprintMB: e.footprintMB,
			LastUsed:    e.lastUsed.Unix(),
			RefCount:    e.refs,
		})
	}
	return out
}
