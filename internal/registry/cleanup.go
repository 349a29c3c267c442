package registry

import (
	"sort"
	"time"

	"adaptd/internal/events"
	"adaptd/internal/monitor"
	"adaptd/pkg/types"
)

// EvictLRU unloads non-referenced resident models, oldest last-use first,
// until at least targetMB has been freed or nothing evictable remains.
// Returns the amount actually freed, which may fall short of the request.
// Runs under the registry-wide lock, excluding concurrent loads.
func (r *Registry) EvictLRU(targetMB int) (freedMB int, unloaded []string) {
	r.mu.Lock()
	var evictable []*resident
	keys := make(map[*resident]string, len(r.resident))
	for key, e := range r.resident {
		if e.refs > 0 {
			continue // pinned by an in-flight call
		}
		evictable = append(evictable, e)
		keys[e] = key
	}
	sort.Slice(evictable, func(i, j int) bool {
		return evictable[i].lastUsed.Before(evictable[j].lastUsed)
	})
	var closed []*resident
	for _, e := range evictable {
		if freedMB >= targetMB {
			break
		}
		key := keys[e]
		delete(r.resident, key)
		r.usedMB -= e.footprintMB
		if r.usedMB < 0 {
			r.usedMB = 0
		}
		freedMB += e.footprintMB
		unloaded = append(unloaded, key)
		closed = append(closed, e)
	}
	used := r.usedMB
	r.mu.Unlock()

	for _, e := range closed {
		if err := e.prov.Close(); err != nil {
			r.log.Warn().Str("model", keys[e]).Err(err).Msg("provider close failed")
		}
		r.evictionsTotal.Add(1)
		evictionsTotal.Inc()
		r.pub.Publish(events.Event{Name: "evicted", Key: keys[e], Fields: map[string]any{"freed_mb": e.footprintMB}})
	}
	if len(closed) > 0 {
		residentGauge.Set(float64(used))
		r.log.Info().Int("freed_mb", freedMB).Int("used_mb", used).Strs("models", unloaded).Msg("evicted least recently used")
	}
	return freedMB, unloaded
}

// DrainAll waits for in-flight pins to clear (up to timeout) and then
// unconditionally unloads every resident model. Shutdown-only path.
func (r *Registry) DrainAll(timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for {
		r.mu.Lock()
		pinned := 0
		for _, e := range r.resident {
			pinned += e.refs
		}
		r.mu.Unlock()
		if pinned == 0 {
			break
		}
		if time.Now().After(deadline) {
			r.log.Warn().Int("pinned", pinned).Msg("drain timeout; forcing unload")
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	r.mu.Lock()
	entries := r.resident
	r.resident = make(map[string]*resident)
	r.usedMB = 0
	r.mu.Unlock()
	for key, e := range entries {
		if err := e.prov.Close(); err != nil {
			r.log.Warn().Str("model", key).Err(err).Msg("provider close failed")
		}
		r.pub.Publish(events.Event{Name: "drained", Key: key, Fields: map[string]any{}})
	}
	residentGauge.Set(0)
}

// Cleaner implements emergency eviction driven by memory pressure.
type Cleaner struct {
	Reg *Registry
	Mon *monitor.Monitor
}

// Emergency is invoked when pressure reaches HIGH or CRITICAL. It computes
// the amount needed to return to the MODERATE boundary and delegates to
// EvictLRU. Success is false when pressure is still CRITICAL afterwards
// (everything left is pinned); that is surfaced, never swallowed.
func (c *Cleaner) Emergency() types.CleanupResult {
	used := c.Reg.UsedMB()
	before := c.Mon.PressureFor(used)
	target := c.Mon.ReduceTarget(used)
	if target <= 0 && before < types.PressureHigh {
		return types.CleanupResult{Success: true, FinalPressure: before}
	}
	freed, unloaded := c.Reg.EvictLRU(target)
	final := c.Mon.PressureFor(c.Reg.UsedMB())
	res := types.CleanupResult{
		Success:        final < types.PressureCritical,
		ModelsUnloaded: unloaded,
		FreedMB:        freed,
		FinalPressure:  final,
	}
	c.Reg.pub.Publish(events.Event{Name: "cleanup", Fields: map[string]any{
		"before":   before.String(),
		"after":    final.String(),
		"freed_mb": freed,
		"success":  res.Success,
	}})
	c.Reg.log.Info().
		Stringer("before", before).
		Stringer("after", final).
		Int("freed_mb", freed).
		Bool("success", res.Success).
		Msg("emergency cleanup")
	return res
}
