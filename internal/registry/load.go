package registry

import (
	"context"
	"fmt"
	"time"

	"adaptd/internal/events"
	"adaptd/internal/provider"
	"adaptd/pkg/types"
)

// Handle pins a resident model for the duration of one inference call.
type Handle struct {
	r    *Registry
	key  string
	desc types.ModelDescriptor
	prov provider.Provider
	done bool
}

// Provider returns the pinned provider.
func (h *Handle) Provider() provider.Provider { return h.prov }

// Descriptor returns the descriptor behind the handle.
func (h *Handle) Descriptor() types.ModelDescriptor { return h.desc }

// Release drops the pin. It never evicts; eviction is pressure-driven and
// belongs to the cleanup path. Safe to call once.
func (h *Handle) Release() {
	if h.done {
		return
	}
	h.done = true
	h.r.release(h.key)
}

// Acquire loads the descriptor's model (or reuses the resident entry) and
// pins it. Idempotent per key: concurrent first-use calls coalesce into a
// single underlying load. Failures come back as ModelLoadError so the
// caller can advance its fallback chain.
func (r *Registry) Acquire(ctx context.Context, desc types.ModelDescriptor) (*Handle, error) {
	key := desc.Key()
	for attempt := 0; attempt < 3; attempt++ {
		if h, ok := r.tryPin(key, desc); ok {
			return h, nil
		}

		start := time.Now()
		_, err, _ := r.group.Do(key, func() (any, error) {
			// Double-check residency: a sibling call may have completed
			// the load before this flight started.
			r.mu.Lock()
			_, loaded := r.resident[key]
			r.mu.Unlock()
			if loaded {
				return nil, nil
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			prov, err := r.factory.New(desc)
			if err != nil {
				loadFailuresTotal.Inc()
				r.pub.Publish(events.Event{Name: "load_failed", Key: key, Fields: map[string]any{"error": err.Error()}})
				r.log.Warn().Str("model", key).Err(err).Msg("model load failed")
				return nil, err
			}
			foot := prov.FootprintMB()
			if foot <= 0 && !provider.Heuristic(desc.Engine) {
				foot = desc.MemoryEstimateMB
			}
			r.mu.Lock()
			r.resident[key] = &resident{desc: desc, prov: prov, footprintMB: foot, lastUsed: time.Now()}
			r.usedMB += foot
			used := r.usedMB
			r.mu.Unlock()
			r.loadsTotal.Add(1)
			loadsTotal.Inc()
			residentGauge.Set(float64(used))
			r.pub.Publish(events.Event{Name: "load_done", Key: key, Fields: map[string]any{
				"footprint_mb": foot,
				"used_mb":      used,
				"dur_ms":       time.Since(start).Milliseconds(),
			}})
			r.log.Info().Str("model", key).Int("footprint_mb", foot).Int("used_mb", used).Msg("model loaded")
			return nil, nil
		})
		if err != nil {
			return nil, ErrModelLoad(desc, err)
		}
		// Pin what the flight produced. An eviction may race in between;
		// loop and reload in that unlikely case.
	}
	return nil, ErrModelLoad(desc, fmt.Errorf("model evicted repeatedly before use"))
}

// tryPin pins the resident entry for key if present.
func (r *Registry) tryPin(key string, desc types.ModelDescriptor) (*Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.resident[key]
	if !ok {
		return nil, false
	}
	e.refs++
	e.lastUsed = time.Now()
	return &Handle{r: r, key: key, desc: desc, prov: e.prov}, true
}

func (r *Registry) release(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.resident[key]; ok && e.refs > 0 {
		e.refs--
		e.lastUsed = time.Now()
	}
}
