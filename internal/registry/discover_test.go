package registry

import (
	"os"
	"path/filepath"
	"testing"

	"adaptd/internal/provider"
)

func TestDiscoverDir(t *testing.T) {
	d := t.TempDir()
	write := func(name string, size int) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(d, name), make([]byte, size), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	write("sentiment-mistral.q4.gguf", 3*1024*1024)
	write("generic.gguf", 128)
	write("notes.txt", 16)

	descs, err := DiscoverDir(d, []string{"sentiment", "emotion"})
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(descs) != 2 {
		t.Fatalf("want 2 descriptors, got %d: %+v", len(descs), descs)
	}
	byName := map[string]int{}
	for i, desc := range descs {
		byName[desc.Name] = i
		if desc.Engine != provider.EngineLlama || !desc.CPUCompatible {
			t.Fatalf("unexpected descriptor %+v", desc)
		}
	}
	mistral := descs[byName["sentiment-mistral.q4"]]
	if mistral.Task != "sentiment" || mistral.MemoryEstimateMB != 3 {
		t.Fatalf("unexpected task/estimate: %+v", mistral)
	}
	// No task prefix falls back to the first task, tiny file clamps to 1 MB.
	generic := descs[byName["generic"]]
	if generic.Task != "sentiment" || generic.MemoryEstimateMB != 1 {
		t.Fatalf("unexpected fallback descriptor: %+v", generic)
	}
}

func TestDiscoverDirErrors(t *testing.T) {
	if _, err := DiscoverDir(t.TempDir(), nil); err == nil {
		t.Fatalf("expected error with no tasks")
	}
	if _, err := DiscoverDir(filepath.Join(t.TempDir(), "missing"), []string{"sentiment"}); err == nil {
		t.Fatalf("expected error for missing dir")
	}
}
