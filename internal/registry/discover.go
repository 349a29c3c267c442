package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"adaptd/internal/provider"
	"adaptd/pkg/types"
)

// DiscoverDir scans a directory for *.gguf weight files and builds llama
// descriptors from them. A filename prefixed with a known task and a dash
// (e.g. "sentiment-mistral.q4.gguf") is registered for that task; anything
// else falls back to the first task in tasks. Memory estimates come from
// file size.
func DiscoverDir(dir string, tasks []string) ([]types.ModelDescriptor, error) {
	if len(tasks) == 0 {
		return nil, fmt.Errorf("no tasks to register discovered models for")
	}
	base, err := expandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	known := make(map[string]struct{}, len(tasks))
	for _, t := range tasks {
		known[t] = struct{}{}
	}
	var out []types.ModelDescriptor
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), ".gguf") {
			continue
		}
		task := tasks[0]
		if idx := strings.IndexByte(name, '-'); idx > 0 {
			if _, ok := known[name[:idx]]; ok {
				task = name[:idx]
			}
		}
		p := filepath.Join(abs, name)
		est := 1
		if fi, err := os.Stat(p); err == nil {
			if mb := int(fi.Size() / (1024 * 1024)); mb > 0 {
				est = mb
			}
		}
		out = append(out, types.ModelDescriptor{
			Task:             task,
			Name:             strings.TrimSuffix(name, filepath.Ext(name)),
			Engine:           provider.EngineLlama,
			Path:             p,
			MemoryEstimateMB: est,
			Accuracy:         types.AccuracyHigh,
			CPUCompatible:    true,
		})
	}
	return out, nil
}

// expandHome expands a leading '~' to the user's home directory.
func expandHome(path string) (string, error) {
	if path == "" {
		return path, nil
	}
	if path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}
