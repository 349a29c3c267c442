package orchestrator

import (
	"fmt"
	"sort"
	"time"

	"adaptd/pkg/types"
)

// GetSystemStatus aggregates tier, uptime, monitor pressure and the
// loaded-model summary. Read-only.
func (o *Orchestrator) GetSystemStatus() types.StatusResponse {
	resp := types.StatusResponse{Status: string(o.stateMu.current())}
	s := o.sess.Load()
	if s == nil {
		return resp
	}
	resp.Tier = s.tier
	resp.UptimeSeconds = int64(time.Since(o.startTime).Seconds())
	resp.Memory = s.mon.Reading()
	resp.LoadedModels = o.reg.LoadedSnapshot()
	sort.Slice(resp.LoadedModels, func(i, j int) bool {
		return resp.LoadedModels[i].Key < resp.LoadedModels[j].Key
	})
	resp.LoadsTotal = o.reg.LoadsTotal()
	resp.EvictionsTotal = o.reg.EvictionsTotal()
	return resp
}

// GetAvailableFeatures reports which analysis types have at least one
// fitting candidate at the current tier, and the method that would serve
// each one right now.
func (o *Orchestrator) GetAvailableFeatures() types.FeaturesResponse {
	resp := types.FeaturesResponse{
		FeatureAnalysis: map[string]types.FeatureStatus{},
	}
	if s := o.sess.Load(); s != nil {
		resp.Tier = s.tier
	}
	for _, task := range o.reg.Tasks() {
		cands, err := o.reg.ResolveCandidates(task)
		if err != nil || len(cands) == 0 {
			resp.FeatureAnalysis[task] = types.FeatureStatus{Available: false}
			continue
		}
		resp.AvailableFeatures = append(resp.AvailableFeatures, task)
		resp.FeatureAnalysis[task] = types.FeatureStatus{Available: true, Method: cands[0].Key()}
	}
	return resp
}

// SuggestOptimizations combines monitor and registry state into actionable
// recommendations. Pure read; no side effects.
func (o *Orchestrator) SuggestOptimizations() types.Recommendations {
	s := o.sess.Load()
	if s == nil {
		return types.Recommendations{}
	}
	rec := types.Recommendations{Tier: s.tier}
	rec.SystemScore.Overall = systemScore(s.snap)
	rec.Conflicts = s.mon.DetectConflicts()

	pressure := s.mon.Pressure()
	if pressure >= types.PressureHigh {
		rec.Suggestions = append(rec.Suggestions, types.Suggestion{
			Priority:            "high",
			Description:         fmt.Sprintf("memory pressure is %s; reduce resident models or lower batch concurrency", pressure),
			ExpectedImprovement: "fewer emergency evictions and steadier latency",
		})
	}
	if !s.snap.AccelPresent {
		rec.Suggestions = append(rec.Suggestions, types.Suggestion{
			Priority:            "medium",
			Description:         "no accelerator detected; high-accuracy model variants are unavailable",
			ExpectedImprovement: "access to accelerator-only candidates and faster inference",
		})
	}
	if s.snap.Degraded {
		rec.Suggestions = append(rec.Suggestions, types.Suggestion{
			Priority:            "medium",
			Description:         "hardware detection was degraded; conservative minimums are in effect, re-run detection via refresh",
			ExpectedImprovement: "accurate tier classification and a larger memory budget",
		})
	}
	if len(rec.Conflicts) > 0 {
		top := rec.Conflicts[0]
		for _, c := range rec.Conflicts[1:] {
			if c.RSSMB > top.RSSMB {
				top = c
			}
		}
		rec.Suggestions = append(rec.Suggestions, types.Suggestion{
			Priority:            "low",
			Description:         fmt.Sprintf("process %q (pid %d) holds %dMB on this device", top.Name, top.PID, top.RSSMB),
			ExpectedImprovement: "closing it frees memory for model loads",
		})
	}
	rec.NextTierRequirements = o.nextTierRequirements(s)
	return rec
}

// systemScore is a coarse 0-100 rating of the host for this workload.
func systemScore(snap types.SystemSnapshot) int {
	ram := scaled(snap.RAMTotalMB, 32768, 40)
	cores := scaled(snap.CPUCores, 16, 20)
	accel := scaled(snap.AccelTotalMB, 8192, 40)
	return ram + cores + accel
}

func scaled(v, full, weight int) int {
	if v >= full {
		return weight
	}
	if v <= 0 {
		return 0
	}
	return v * weight / full
}

func (o *Orchestrator) nextTierRequirements(s *session) map[string]string {
	if s.tier >= types.TierHighEnd {
		return nil
	}
	rule, ok := o.policy.Rule(s.tier + 1)
	if !ok {
		return nil
	}
	out := map[string]string{}
	if rule.MinRAMMB > 0 && s.snap.RAMTotalMB < rule.MinRAMMB {
		out["ram"] = fmt.Sprintf("need %dMB more system RAM (%d -> %d)",
			rule.MinRAMMB-s.snap.RAMTotalMB, s.snap.RAMTotalMB, rule.MinRAMMB)
	}
	if rule.MinAccelMB > 0 && s.snap.AccelTotalMB < rule.MinAccelMB {
		out["accelerator"] = fmt.Sprintf("need %dMB accelerator memory (have %d)",
			rule.MinAccelMB, s.snap.AccelTotalMB)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
