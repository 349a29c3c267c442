package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"adaptd/internal/config"
	"adaptd/internal/events"
	"adaptd/internal/httpapi"
	"adaptd/internal/orchestrator"
	"adaptd/internal/provider"
	"adaptd/internal/registry"
	"adaptd/pkg/types"
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// useConfig reports whether the config file value should win for a flag:
// only when it was not passed on the command line and no ADAPTD_* default
// applied. An explicit flag wins even when it equals the built-in default.
func useConfig(explicit map[string]bool, name, env string) bool {
	return !explicit[name] && os.Getenv(env) == ""
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func main() {
	// Flags with environment variable defaults
	addr := flag.String("addr", envOr("ADAPTD_ADDR", ":8080"), "HTTP listen address, e.g. :8080")
	configPath := flag.String("config", envOr("ADAPTD_CONFIG", ""), "Optional config file (json, yaml or toml)")
	modelsDir := flag.String("models-dir", envOr("ADAPTD_MODELS_DIR", ""), "Optional directory to scan for *.gguf model files")
	budgetMB := flag.Int("memory-budget-mb", envIntOr("ADAPTD_MEMORY_BUDGET_MB", 0), "Memory budget override in MB (0=derive from tier)")
	batch := flag.Int("batch-concurrency", envIntOr("ADAPTD_BATCH_CONCURRENCY", 0), "Max concurrent items per batch (0=default)")
	verbose := flag.Bool("verbose", os.Getenv("ADAPTD_VERBOSE") != "", "Enable debug logging")
	flag.Parse()

	level := zerolog.InfoLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(level).With().Timestamp().Logger()
	httpapi.SetLogger(log)

	cfg := config.Config{
		Tiers:    config.DefaultTierPolicy(),
		Pressure: config.DefaultPressureBands(),
	}
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *configPath).Msg("failed to load config")
		}
		cfg = loaded
	}
	explicit := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { explicit[f.Name] = true })
	if useConfig(explicit, "addr", "ADAPTD_ADDR") && cfg.Addr != "" {
		*addr = cfg.Addr
	}
	if useConfig(explicit, "models-dir", "ADAPTD_MODELS_DIR") && cfg.ModelsDir != "" {
		*modelsDir = cfg.ModelsDir
	}
	if useConfig(explicit, "memory-budget-mb", "ADAPTD_MEMORY_BUDGET_MB") && cfg.MemoryBudgetMB != 0 {
		*budgetMB = cfg.MemoryBudgetMB
	}
	if useConfig(explicit, "batch-concurrency", "ADAPTD_BATCH_CONCURRENCY") && cfg.BatchConcurrency != 0 {
		*batch = cfg.BatchConcurrency
	}

	catalog, err := buildCatalog(cfg, *modelsDir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build model catalog")
	}

	pub := events.NewMemory()
	orch := orchestrator.New(orchestrator.Config{
		Catalog:          catalog,
		Factory:          &provider.EngineFactory{},
		TierPolicy:       cfg.Tiers,
		PressureBands:    cfg.Pressure,
		BudgetOverrideMB: *budgetMB,
		BatchConcurrency: *batch,
		ShutdownTimeout:  cfg.ShutdownTimeout.Std(),
		Publisher:        pub,
		Logger:           log,
	})

	res, err := orch.Initialize(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("initialization failed")
	}
	log.Info().
		Stringer("tier", res.Tier).
		Int("memory_limit_mb", res.MemoryLimitMB).
		Strs("features", res.AvailableFeatures).
		Msg("adaptd initialized")

	srv := &http.Server{Addr: *addr, Handler: httpapi.NewMux(orch)}
	go func() {
		log.Info().Str("addr", *addr).Msg("adaptd listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("graceful HTTP shutdown error")
	}
	orch.Shutdown()
}

// buildCatalog merges the built-in descriptors, config-declared models and
// anything discovered on disk. Later entries win on task/name collisions.
func buildCatalog(cfg config.Config, modelsDir string, log zerolog.Logger) ([]types.ModelDescriptor, error) {
	merged := map[string]types.ModelDescriptor{}
	var order []string
	add := func(d types.ModelDescriptor) {
		if _, seen := merged[d.Key()]; !seen {
			order = append(order, d.Key())
		}
		merged[d.Key()] = d
	}

	for _, d := range registry.DefaultCatalog() {
		add(d)
	}
	for _, e := range cfg.Models {
		d, err := e.Descriptor()
		if err != nil {
			return nil, err
		}
		add(d)
	}
	if modelsDir != "" {
		tasks := taskList(merged)
		found, err := registry.DiscoverDir(modelsDir, tasks)
		if err != nil {
			log.Warn().Err(err).Str("dir", modelsDir).Msg("model discovery failed, continuing with static catalog")
		}
		for _, d := range found {
			add(d)
		}
	}

	out := make([]types.ModelDescriptor, 0, len(order))
	for _, k := range order {
		out = append(out, merged[k])
	}
	return out, nil
}

func taskList(merged map[string]types.ModelDescriptor) []string {
	set := map[string]struct{}{}
	for _, d := range merged {
		set[d.Task] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
