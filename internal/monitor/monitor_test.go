package monitor

import (
	"testing"

	"adaptd/internal/config"
	"adaptd/pkg/types"
)

func TestPressureBands(t *testing.T) {
	m := New(1000, config.DefaultPressureBands(), types.SystemSnapshot{}, nil)
	cases := []struct {
		used int
		want types.Pressure
	}{
		{0, types.PressureLow},
		{599, types.PressureLow},
		{600, types.PressureModerate},
		{799, types.PressureModerate},
		{800, types.PressureHigh},
		{949, types.PressureHigh},
		{950, types.PressureCritical},
		{1000, types.PressureCritical},
		{1500, types.PressureCritical},
	}
	for _, tc := range cases {
		if got := m.PressureFor(tc.used); got != tc.want {
			t.Fatalf("used=%d want %s got %s", tc.used, tc.want, got)
		}
	}
}

func TestPressureUnboundedBudgetIsLow(t *testing.T) {
	m := New(0, config.DefaultPressureBands(), types.SystemSnapshot{}, func() int { return 1 << 20 })
	if got := m.Pressure(); got != types.PressureLow {
		t.Fatalf("want low got %s", got)
	}
}

func TestReadingReflectsUsedFn(t *testing.T) {
	used := 820
	m := New(1000, config.DefaultPressureBands(), types.SystemSnapshot{}, func() int { return used })
	r := m.Reading()
	if r.UsedMB != 820 || r.BudgetMB != 1000 {
		t.Fatalf("unexpected reading %+v", r)
	}
	if r.Pressure != types.PressureHigh {
		t.Fatalf("want high got %s", r.Pressure)
	}
}

func TestIsConflict(t *testing.T) {
	if !isConflict("chrome", 2000, 16000) {
		t.Fatalf("expected large-RSS process to register as conflict")
	}
	if isConflict("chrome", 100, 16000) {
		t.Fatalf("small process should not register")
	}
	if !isConflict("ollama", 512, 16000) {
		t.Fatalf("known accelerator tenant above floor should register")
	}
	if isConflict("ollama", 64, 16000) {
		t.Fatalf("tiny tenant should not register")
	}
}
