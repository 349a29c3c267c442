// Package orchestrator composes hardware profiling, the model registry and
// the memory monitor into the adaptive analysis service. One orchestrator
// instance per process, owned by the composition root.
package orchestrator

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"adaptd/internal/config"
	"adaptd/internal/events"
	"adaptd/internal/hardware"
	"adaptd/internal/monitor"
	"adaptd/internal/provider"
	"adaptd/internal/registry"
	"adaptd/pkg/types"
)

// State is the lifecycle state of the orchestrator.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateInitializing  State = "initializing"
	StateReady         State = "ready"
	StateShuttingDown  State = "shutting_down"
	StateStopped       State = "stopped"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultBatchConcurrency = 2
	defaultShutdownTimeout  = 10 * time.Second
	defaultDrainTimeout     = 2 * time.Second
)

// Config encapsulates all tunables for Orchestrator construction.
type Config struct {
	Catalog          []types.ModelDescriptor
	Factory          provider.Factory
	TierPolicy       config.TierPolicy
	PressureBands    config.PressureBands
	BudgetOverrideMB int // 0 = use the tier's configured ceiling
	BatchConcurrency int
	ShutdownTimeout  time.Duration
	Publisher        events.Publisher
	Logger           zerolog.Logger
	// Detect overrides hardware detection, for tests.
	Detect func() types.SystemSnapshot
}

// session is the profiling outcome an initialize/refresh cycle produced.
// Swapped atomically so analysis calls see a consistent view while an
// explicit Refresh is in flight.
type session struct {
	snap       types.SystemSnapshot
	tier       types.Tier
	tierReason string
	budgetMB   int
	mon        *monitor.Monitor
	cleaner    *registry.Cleaner
}

// Orchestrator is the adaptive analysis service.
type Orchestrator struct {
	policy   config.TierPolicy
	bands    config.PressureBands
	override int

	stateMu stateMutex
	sess    atomic.Pointer[session]
	reg     *registry.Registry
	pub     events.Publisher
	log     zerolog.Logger
	detect  func() types.SystemSnapshot

	startTime time.Time

	batchLimit      int
	shutdownTimeout time.Duration
}

// New builds an orchestrator. Call Initialize before any analysis call.
func New(cfg Config) *Orchestrator {
	pub := cfg.Publisher
	if pub == nil {
		pub = events.Noop{}
	}
	detect := cfg.Detect
	if detect == nil {
		detect = hardware.Detect
	}
	batch := cfg.BatchConcurrency
	if batch <= 0 {
		batch = defaultBatchConcurrency
	}
	st := cfg.ShutdownTimeout
	if st <= 0 {
		st = defaultShutdownTimeout
	}
	o := &Orchestrator{
		policy:          cfg.TierPolicy,
		bands:           cfg.PressureBands,
		override:        cfg.BudgetOverrideMB,
		pub:             pub,
		log:             cfg.Logger,
		detect:          detect,
		batchLimit:      batch,
		shutdownTimeout: st,
	}
	o.stateMu.state = StateUninitialized
	o.reg = registry.New(registry.Options{
		Catalog:   cfg.Catalog,
		Factory:   cfg.Factory,
		Publisher: pub,
		Logger:    cfg.Logger,
	})
	return o
}

// Initialize profiles hardware, classifies the tier, sets the memory budget
// and computes feature availability. Not reentrant: a second concurrent
// call waits for the first instead of re-profiling; a later call on a ready
// instance returns the cached result. The tier never changes mid-flight
// unless Refresh is invoked explicitly.
func (o *Orchestrator) Initialize(ctx context.Context) (types.InitResult, error) {
	first, wait, err := o.stateMu.enterInitializing()
	if err != nil {
		return types.InitResult{}, err
	}
	if !first {
		select {
		case <-wait:
			if err := o.stateMu.requireReady(); err != nil {
				return types.InitResult{}, err
			}
			return o.initResult(), nil
		case <-ctx.Done():
			return types.InitResult{}, ctx.Err()
		}
	}

	o.profile()
	o.startTime = time.Now()
	if !o.stateMu.becomeReady() {
		// A shutdown overtook the profiling run; stay down.
		return types.InitResult{}, errStopped{state: o.stateMu.current()}
	}
	return o.initResult(), nil
}

// profile runs detection and classification and installs a new session.
func (o *Orchestrator) profile() {
	snap := o.detect()
	tier, reason := hardware.Classify(snap, o.policy)
	budget := o.override
	if budget <= 0 {
		budget = o.policy.Budget(tier)
	}
	o.reg.Configure(budget, snap.AccelPresent)
	mon := monitor.New(budget, o.bands, snap, o.reg.UsedMB)
	o.sess.Store(&session{
		snap:       snap,
		tier:       tier,
		tierReason: reason,
		budgetMB:   budget,
		mon:        mon,
		cleaner:    &registry.Cleaner{Reg: o.reg, Mon: mon},
	})

	o.pub.Publish(events.Event{Name: "tier_classified", Fields: map[string]any{
		"tier":      tier.String(),
		"reason":    reason,
		"budget_mb": budget,
		"ram_mb":    snap.RAMTotalMB,
		"accel_mb":  snap.AccelTotalMB,
		"degraded":  snap.Degraded,
	}})
	o.log.Info().
		Stringer("tier", tier).
		Str("reason", reason).
		Int("budget_mb", budget).
		Bool("degraded", snap.Degraded).
		Msg("hardware classified")
}

func (o *Orchestrator) initResult() types.InitResult {
	s := o.sess.Load()
	if s == nil {
		return types.InitResult{Status: string(o.stateMu.current())}
	}
	return types.InitResult{
		Status:            string(o.stateMu.current()),
		Tier:              s.tier,
		TierReason:        s.tierReason,
		MemoryLimitMB:     s.budgetMB,
		AvailableFeatures: o.availableFeatures(),
	}
}

func (o *Orchestrator) availableFeatures() []string {
	var out []string
	for _, task := range o.reg.Tasks() {
		if cands, err := o.reg.ResolveCandidates(task); err == nil && len(cands) > 0 {
			out = append(out, task)
		}
	}
	return out
}

// Refresh re-profiles hardware and re-applies the budget. This is the only
// way a running instance changes tier.
func (o *Orchestrator) Refresh() (types.InitResult, error) {
	if err := o.stateMu.requireReady(); err != nil {
		return types.InitResult{}, err
	}
	prev := o.sess.Load().tier
	o.profile()
	if now := o.sess.Load().tier; now != prev {
		o.log.Info().Stringer("from", prev).Stringer("to", now).Msg("tier re-evaluated")
	}
	return o.initResult(), nil
}

// Shutdown drains in-flight calls (bounded wait), unloads every resident
// model and stops the instance. Idempotent: the second call is a no-op.
func (o *Orchestrator) Shutdown() {
	if !o.stateMu.enterShutdown() {
		return
	}
	done := make(chan struct{})
	go func() {
		o.stateMu.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(o.shutdownTimeout):
		o.log.Warn().Dur("timeout", o.shutdownTimeout).Msg("forced shutdown: in-flight calls did not drain")
	}
	o.reg.DrainAll(defaultDrainTimeout)
	o.stateMu.becomeStopped()
	o.pub.Publish(events.Event{Name: "shutdown", Fields: map[string]any{}})
	o.log.Info().Msg("orchestrator stopped")
}

// Ready reports whether the orchestrator accepts analysis calls.
func (o *Orchestrator) Ready() bool { return o.stateMu.current() == StateReady }

// Tier returns the classified tier.
func (o *Orchestrator) Tier() types.Tier {
	if s := o.sess.Load(); s != nil {
		return s.tier
	}
	return types.TierMinimal
}
