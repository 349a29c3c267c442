package hardware

import (
	"fmt"

	"adaptd/internal/config"
	"adaptd/pkg/types"
)

// Classify maps a snapshot onto a tier using the policy's decision table.
// Pure function: no side effects, never fails; worst case is TierMinimal.
// The returned reason cites which threshold matched, for observability.
func Classify(snap types.SystemSnapshot, policy config.TierPolicy) (types.Tier, string) {
	for _, tier := range []types.Tier{types.TierHighEnd, types.TierIntermediate, types.TierBasic} {
		rule, ok := policy.Rule(tier)
		if !ok {
			continue
		}
		if matches(snap, rule) {
			return tier, reason(tier, snap, rule)
		}
	}
	return types.TierMinimal, fmt.Sprintf(
		"no tier threshold met (ram=%dMB accel=%dMB); defaulting to %s",
		snap.RAMTotalMB, snap.AccelTotalMB, types.TierMinimal)
}

func matches(snap types.SystemSnapshot, rule config.TierRule) bool {
	ramOK := rule.MinRAMMB > 0 && snap.RAMTotalMB >= rule.MinRAMMB
	accelOK := rule.MinAccelMB > 0 && snap.AccelPresent && snap.AccelTotalMB >= rule.MinAccelMB
	if rule.RequireAll {
		ram := rule.MinRAMMB == 0 || ramOK
		accel := rule.MinAccelMB == 0 || accelOK
		return ram && accel && (rule.MinRAMMB > 0 || rule.MinAccelMB > 0)
	}
	return ramOK || accelOK
}

func reason(tier types.Tier, snap types.SystemSnapshot, rule config.TierRule) string {
	op := "or"
	if rule.RequireAll {
		op = "and"
	}
	return fmt.Sprintf("%s: ram %dMB >= %dMB %s accel %dMB >= %dMB",
		tier, snap.RAMTotalMB, rule.MinRAMMB, op, snap.AccelTotalMB, rule.MinAccelMB)
}
