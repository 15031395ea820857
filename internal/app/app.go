// Package app wires the process together: logger, collaborators, capability
// registry and engine. It owns the lifecycle of every injected dependency;
// the core packages only ever see constructed instances.
package app

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/queryflow/internal/audit"
	"github.com/vk/queryflow/internal/config"
	"github.com/vk/queryflow/internal/engine"
	"github.com/vk/queryflow/internal/llmclient"
	"github.com/vk/queryflow/internal/registry"
	"github.com/vk/queryflow/internal/retrieval"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle.
type App struct {
	outW     io.Writer
	logger   *slog.Logger
	registry *registry.Registry
	engine   *engine.Engine
	config   *config.Config
}

// New constructs a fully initialized App: logger, retrieval store,
// generation client, registry and engine. Extra modules are registered after
// the core set, letting tests and embedders add capability types.
func New(outW io.Writer, cfg *config.Config, extra ...registry.Module) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)

	store := retrieval.NewMemoryStore()
	if cfg.CorpusPath != "" {
		if err := store.LoadFile(cfg.CorpusPath); err != nil {
			return nil, fmt.Errorf("load corpus: %w", err)
		}
		logger.Info("Corpus loaded.", "path", cfg.CorpusPath, "documents", store.Len())
	}

	generator := newGenerator(cfg)

	reg := registry.New()
	for _, mod := range coreModules(store, generator, cfg.LLMModel) {
		mod.Register(reg)
	}
	for _, mod := range extra {
		mod.Register(reg)
	}
	logger.Debug("Capability registry populated.", "types", reg.KnownTypes())

	eng := engine.New(reg, engine.Options{
		NodeTimeout:    cfg.NodeTimeout,
		PermitPoolSize: cfg.PermitPoolSize,
		PermitWait:     cfg.PermitWait,
		Audit:          audit.LogRecorder{},
	})

	return &App{
		outW:     outW,
		logger:   logger,
		registry: reg,
		engine:   eng,
		config:   cfg,
	}, nil
}

// newGenerator picks the generation collaborator for the configured mode.
func newGenerator(cfg *config.Config) llmclient.Generator {
	if cfg.LLMMode == config.LLMModeProvider {
		return llmclient.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMTimeout)
	}
	return &llmclient.Mock{}
}

// Registry returns the application's registry. This is primarily for testing.
func (a *App) Registry() *registry.Registry {
	return a.registry
}
