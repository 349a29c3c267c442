package registry

import (
	"context"
	"sync"
	"testing"
	"time"

	"adaptd/internal/config"
	"adaptd/internal/events"
	"adaptd/internal/monitor"
	"adaptd/internal/provider"
	"adaptd/pkg/types"
)

type fakeProvider struct {
	foot   int
	mu     sync.Mutex
	closed bool
}

func (p *fakeProvider) Predict(_ context.Context, text string) (provider.Prediction, error) {
	return provider.Prediction{Label: "ok", Confidence: 0.9}, nil
}
func (p *fakeProvider) FootprintMB() int { return p.foot }
func (p *fakeProvider) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

// fakeFactory counts constructor calls per key and can be told to fail or
// to take a while, for single-flight assertions.
type fakeFactory struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]error
	delay time.Duration
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{calls: map[string]int{}, fail: map[string]error{}}
}

func (f *fakeFactory) New(d types.ModelDescriptor) (provider.Provider, error) {
	f.mu.Lock()
	f.calls[d.Key()]++
	err := f.fail[d.Key()]
	delay := f.delay
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return nil, err
	}
	return &fakeProvider{foot: d.MemoryEstimateMB}, nil
}

func (f *fakeFactory) callCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func desc(task, name string, mb int, cpu bool) types.ModelDescriptor {
	engine := provider.EngineLexicon
	if mb > 0 {
		engine = "fake"
	}
	return types.ModelDescriptor{Task: task, Name: name, Engine: engine, MemoryEstimateMB: mb, CPUCompatible: cpu}
}

func newTestRegistry(t *testing.T, budgetMB int, catalog ...types.ModelDescriptor) (*Registry, *fakeFactory) {
	t.Helper()
	f := newFakeFactory()
	r := New(Options{Catalog: catalog, Factory: f, Publisher: events.NewMemory()})
	r.Configure(budgetMB, true)
	return r, f
}

func TestEstimateMemoryUnknownModel(t *testing.T) {
	r, _ := newTestRegistry(t, 1000, desc("sentiment", "a", 100, true))
	if _, err := r.EstimateMemory("sentiment", "missing"); !IsUnknownModel(err) {
		t.Fatalf("expected unknown model error, got %v", err)
	}
	if _, err := r.EstimateMemory("bogus", "a"); !IsUnknownModel(err) {
		t.Fatalf("expected unknown model error for task, got %v", err)
	}
	mb, err := r.EstimateMemory("sentiment", "a")
	if err != nil || mb != 100 {
		t.Fatalf("want 100 got %d err=%v", mb, err)
	}
}

func TestResolveCandidatesFiltersByBudget(t *testing.T) {
	big := desc("sentiment", "big", 2200, false)
	mid := desc("sentiment", "mid", 500, true)
	heuristic := desc("sentiment", "lexicon", 0, true)
	r, _ := newTestRegistry(t, 256, big, mid, heuristic)

	// Minimal-shaped budget: only the heuristic descriptor fits.
	got, err := r.ResolveCandidates("sentiment")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(got) != 1 || got[0].Name != "lexicon" {
		t.Fatalf("want only heuristic, got %+v", got)
	}
}

func TestResolveCandidatesDropsAccelOnlyOnCPUHost(t *testing.T) {
	big := desc("sentiment", "big", 500, false) // needs accelerator
	heuristic := desc("sentiment", "lexicon", 0, true)
	f := newFakeFactory()
	r := New(Options{Catalog: []types.ModelDescriptor{big, heuristic}, Factory: f})
	r.Configure(4096, false)
	got, err := r.ResolveCandidates("sentiment")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(got) != 1 || got[0].Name != "lexicon" {
		t.Fatalf("accelerator-only model should be dropped, got %+v", got)
	}
}

func TestResolveCandidatesPreservesPriorityOrder(t *testing.T) {
	a := desc("sentiment", "a", 500, true)
	b := desc("sentiment", "b", 300, true)
	h := desc("sentiment", "lexicon", 0, true)
	r, _ := newTestRegistry(t, 4096, a, b, h)
	got, err := r.ResolveCandidates("sentiment")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(got) != 3 || got[0].Name != "a" || got[1].Name != "b" || got[2].Name != "lexicon" {
		t.Fatalf("priority order lost: %+v", got)
	}
}

func TestCatalogWithoutHeuristicGetsFloorAppended(t *testing.T) {
	// A task registered from config or discovery may declare models only.
	// Its chain must still terminate in a resource-free heuristic.
	only := types.ModelDescriptor{Task: "summary", Name: "summary-base", Engine: "fake", MemoryEstimateMB: 400, Accuracy: types.AccuracyMedium, CPUCompatible: true}
	r, _ := newTestRegistry(t, 1000, only)

	got, err := r.ResolveCandidates("summary")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	last := got[len(got)-1]
	if !provider.Heuristic(last.Engine) || last.MemoryEstimateMB != 0 || !last.CPUCompatible {
		t.Fatalf("chain does not end in a heuristic floor: %+v", got)
	}
	if got[0].Name != "summary-base" {
		t.Fatalf("declared candidates must keep priority: %+v", got)
	}

	// Zero budget: the floor still resolves.
	r2, _ := newTestRegistry(t, 0, only)
	got, err = r2.ResolveCandidates("summary")
	if err != nil || len(got) != 1 || !provider.Heuristic(got[0].Engine) {
		t.Fatalf("floor must survive any budget, got %+v (%v)", got, err)
	}
}

func TestResolveCandidatesUnknownTask(t *testing.T) {
	r, _ := newTestRegistry(t, 1000)
	if _, err := r.ResolveCandidates("nope"); !IsUnknownModel(err) {
		t.Fatalf("expected unknown model error, got %v", err)
	}
}

func TestAcquireIdempotentAndRefCounted(t *testing.T) {
	d := desc("sentiment", "m", 100, true)
	r, f := newTestRegistry(t, 1000, d)
	ctx := context.Background()

	h1, err := r.Acquire(ctx, d)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	h2, err := r.Acquire(ctx, d)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if n := f.callCount(d.Key()); n != 1 {
		t.Fatalf("expected a single load, got %d", n)
	}
	snap := r.LoadedSnapshot()
	if len(snap) != 1 || snap[0].RefCount != 2 {
		t.Fatalf("expected one entry with refs=2, got %+v", snap)
	}
	h1.Release()
	h2.Release()
	h2.Release() // double release is a no-op
	snap = r.LoadedSnapshot()
	if snap[0].RefCount != 0 {
		t.Fatalf("expected refs=0 after release, got %+v", snap)
	}
	if r.UsedMB() != 100 {
		t.Fatalf("release must not evict; used=%d", r.UsedMB())
	}
}

func TestAcquireSingleFlightUnderConcurrency(t *testing.T) {
	d := desc("sentiment", "m", 100, true)
	r, f := newTestRegistry(t, 1000, d)
	f.delay = 30 * time.Millisecond

	const n = 16
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := r.Acquire(context.Background(), d)
			if err != nil {
				errs <- err
				return
			}
			h.Release()
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("acquire: %v", err)
	}
	if got := f.callCount(d.Key()); got != 1 {
		t.Fatalf("expected exactly one underlying load, got %d", got)
	}
}

func TestAcquireLoadFailureIsModelLoadError(t *testing.T) {
	d := desc("sentiment", "m", 100, true)
	r, f := newTestRegistry(t, 1000, d)
	f.fail[d.Key()] = context.DeadlineExceeded
	_, err := r.Acquire(context.Background(), d)
	if !IsModelLoad(err) {
		t.Fatalf("expected model load error, got %v", err)
	}
	if r.UsedMB() != 0 || len(r.LoadedSnapshot()) != 0 {
		t.Fatalf("failed load must leave no residue")
	}
}

func TestEvictLRUOrderAndPinnedSafety(t *testing.T) {
	d1 := desc("sentiment", "oldest", 100, true)
	d2 := desc("sentiment", "pinned", 100, true)
	d3 := desc("sentiment", "newest", 100, true)
	r, _ := newTestRegistry(t, 1000, d1, d2, d3)
	ctx := context.Background()

	h1, _ := r.Acquire(ctx, d1)
	h1.Release()
	time.Sleep(5 * time.Millisecond)
	h2, _ := r.Acquire(ctx, d2) // stays pinned
	time.Sleep(5 * time.Millisecond)
	h3, _ := r.Acquire(ctx, d3)
	h3.Release()

	freed, unloaded := r.EvictLRU(150)
	if freed != 200 {
		t.Fatalf("want 200 freed got %d (%v)", freed, unloaded)
	}
	if len(unloaded) != 2 || unloaded[0] != "sentiment/oldest" || unloaded[1] != "sentiment/newest" {
		t.Fatalf("wrong eviction order: %v", unloaded)
	}
	snap := r.LoadedSnapshot()
	if len(snap) != 1 || snap[0].Key != "sentiment/pinned" {
		t.Fatalf("pinned model must survive eviction: %+v", snap)
	}
	h2.Release()
}

func TestEvictLRUReportsPartialWhenNothingLeft(t *testing.T) {
	d := desc("sentiment", "m", 100, true)
	r, _ := newTestRegistry(t, 1000, d)
	h, _ := r.Acquire(context.Background(), d)
	defer h.Release()
	freed, unloaded := r.EvictLRU(500)
	if freed != 0 || len(unloaded) != 0 {
		t.Fatalf("pinned-only registry must free nothing, got %d %v", freed, unloaded)
	}
}

func TestDrainAllWaitsThenForces(t *testing.T) {
	d := desc("sentiment", "m", 100, true)
	r, _ := newTestRegistry(t, 1000, d)
	h, _ := r.Acquire(context.Background(), d)
	go func() {
		time.Sleep(30 * time.Millisecond)
		h.Release()
	}()
	r.DrainAll(time.Second)
	if len(r.LoadedSnapshot()) != 0 || r.UsedMB() != 0 {
		t.Fatalf("drain must empty the registry")
	}
}

func TestDrainAllForcedAfterTimeout(t *testing.T) {
	d := desc("sentiment", "m", 100, true)
	r, _ := newTestRegistry(t, 1000, d)
	h, _ := r.Acquire(context.Background(), d)
	_ = h // never released
	r.DrainAll(30 * time.Millisecond)
	if len(r.LoadedSnapshot()) != 0 {
		t.Fatalf("forced drain must evict pinned models too")
	}
}

func TestEmergencyCleanupRelievesPressure(t *testing.T) {
	d1 := desc("emotion", "old", 400, true)
	d2 := desc("emotion", "new", 500, true)
	r, _ := newTestRegistry(t, 1000, d1, d2)
	mon := monitor.New(1000, config.DefaultPressureBands(), types.SystemSnapshot{}, r.UsedMB)
	ctx := context.Background()

	h1, _ := r.Acquire(ctx, d1)
	h1.Release()
	time.Sleep(5 * time.Millisecond)
	h2, _ := r.Acquire(ctx, d2)
	defer h2.Release()

	// 900/1000 = HIGH pressure; cleanup targets the moderate boundary.
	c := &Cleaner{Reg: r, Mon: mon}
	res := c.Emergency()
	if !res.Success {
		t.Fatalf("cleanup should succeed: %+v", res)
	}
	if res.FreedMB < 400 || len(res.ModelsUnloaded) != 1 || res.ModelsUnloaded[0] != "emotion/old" {
		t.Fatalf("expected oldest unused model evicted: %+v", res)
	}
	if res.FinalPressure >= types.PressureHigh {
		t.Fatalf("pressure still %s after cleanup", res.FinalPressure)
	}
}

func TestEmergencyCleanupAllPinnedIsSurfaced(t *testing.T) {
	d := desc("emotion", "m", 990, true)
	r, _ := newTestRegistry(t, 1000, d)
	mon := monitor.New(1000, config.DefaultPressureBands(), types.SystemSnapshot{}, r.UsedMB)
	h, _ := r.Acquire(context.Background(), d)
	defer h.Release()

	c := &Cleaner{Reg: r, Mon: mon}
	res := c.Emergency()
	if res.Success {
		t.Fatalf("cleanup over fully pinned registry must report failure: %+v", res)
	}
	if res.FinalPressure != types.PressureCritical {
		t.Fatalf("want critical got %s", res.FinalPressure)
	}
}

func TestBudgetInvariantAfterLoadEvictCycles(t *testing.T) {
	d1 := desc("sentiment", "a", 300, true)
	d2 := desc("sentiment", "b", 300, true)
	d3 := desc("sentiment", "c", 300, true)
	r, _ := newTestRegistry(t, 700, d1, d2, d3)
	mon := monitor.New(700, config.DefaultPressureBands(), types.SystemSnapshot{}, r.UsedMB)
	c := &Cleaner{Reg: r, Mon: mon}
	ctx := context.Background()

	for _, d := range []types.ModelDescriptor{d1, d2, d3, d1, d3, d2} {
		h, err := r.Acquire(ctx, d)
		if err != nil {
			t.Fatalf("acquire %s: %v", d.Key(), err)
		}
		h.Release()
		if mon.Pressure() >= types.PressureHigh {
			c.Emergency()
		}
		if used := r.UsedMB(); used > 700 {
			t.Fatalf("budget invariant violated after cleanup: used=%d", used)
		}
	}
}
