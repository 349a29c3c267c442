package config

import (
	"os"
	"path/filepath"
	"testing"

	"adaptd/pkg/types"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", `addr: :9999
models_dir: /tmp/models
memory_budget_mb: 1234
batch_concurrency: 4
pressure:
  low: 0.5
  moderate: 0.7
  high: 0.9
models:
  - task: sentiment
    name: tiny
    engine: lexicon
    accuracy: low
    cpu_compatible: true
`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9999" || cfg.ModelsDir != "/tmp/models" || cfg.MemoryBudgetMB != 1234 || cfg.BatchConcurrency != 4 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.Pressure.Moderate != 0.7 {
		t.Fatalf("unexpected pressure bands: %+v", cfg.Pressure)
	}
	if len(cfg.Models) != 1 || cfg.Models[0].Name != "tiny" {
		t.Fatalf("unexpected models: %+v", cfg.Models)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"addr":":7070","models_dir":"/m","memory_budget_mb":42,"tiers":{"budgets_mb":{"basic":512}}}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.ModelsDir != "/m" || cfg.MemoryBudgetMB != 42 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if cfg.Tiers.Budgets["basic"] != 512 {
		t.Fatalf("unexpected tier budgets: %+v", cfg.Tiers.Budgets)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "addr=\":8081\"\nmodels_dir=\"/x\"\nmemory_budget_mb=9\nbatch_concurrency=1\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8081" || cfg.ModelsDir != "/x" || cfg.MemoryBudgetMB != 9 || cfg.BatchConcurrency != 1 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
	if _, err := Load(filepath.Join(d, "missing.yaml")); err == nil {
		t.Fatalf("expected error on missing file")
	}
}

func TestModelEntryDescriptor(t *testing.T) {
	e := ModelEntry{Task: "sentiment", Name: "small", Engine: "llama", Path: "/m/s.gguf", MemoryEstimateMB: 512, Accuracy: "medium", CPUCompatible: true}
	d, err := e.Descriptor()
	if err != nil {
		t.Fatalf("descriptor: %v", err)
	}
	if d.Key() != "sentiment/small" || d.Accuracy != types.AccuracyMedium || !d.CPUCompatible {
		t.Fatalf("unexpected descriptor: %+v", d)
	}

	if _, err := (ModelEntry{Name: "x"}).Descriptor(); err == nil {
		t.Fatalf("expected error for entry without task")
	}
	if _, err := (ModelEntry{Task: "sentiment", Name: "x", Engine: "llama", Accuracy: "stellar"}).Descriptor(); err == nil {
		t.Fatalf("expected error for unknown accuracy")
	}
}

func TestDefaultTierPolicy(t *testing.T) {
	p := DefaultTierPolicy()
	for _, tier := range []types.Tier{types.TierMinimal, types.TierBasic, types.TierIntermediate, types.TierHighEnd} {
		if p.Budget(tier) <= 0 {
			t.Fatalf("no budget for %s", tier)
		}
	}
	if p.Budget(types.TierHighEnd) <= p.Budget(types.TierBasic) {
		t.Fatalf("budgets not increasing: %+v", p.Budgets)
	}
	if _, ok := p.Rule(types.TierHighEnd); !ok {
		t.Fatalf("missing high_end rule")
	}
}
