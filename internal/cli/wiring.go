package cli

import (
	"context"
	"fmt"
	"time"

	"cvforge/internal/ai"
	"cvforge/internal/config"
	"cvforge/internal/enrich"
	"cvforge/internal/errors"
	"cvforge/internal/location"
	"cvforge/internal/parser"
	"cvforge/internal/pipeline"
	"cvforge/internal/render"
	"cvforge/internal/storage"
	"cvforge/internal/textfmt"
)

const templateDebounce = 500 * time.Millisecond

// pipelineDeps holds the wired collaborators plus the resources that
// need explicit teardown when the command finishes.
type pipelineDeps struct {
	orchestrator *pipeline.Orchestrator
	provider     ai.Provider
	watcher      *render.TemplateWatcher
}

// Close releases long lived resources in reverse wiring order.
func (d *pipelineDeps) Close(logger *errors.Logger) {
	if d.watcher != nil && d.watcher.IsRunning() {
		if err := d.watcher.Stop(); err != nil {
			logger.Warn("Failed to stop template watcher", "error", err)
		}
	}
	if d.provider != nil {
		if err := d.provider.Close(); err != nil {
			logger.Warn("Failed to close AI provider", "error", err)
		}
	}
}

// newPipeline builds the full processing pipeline from configuration.
// Metrics and tracer may be nil; the orchestrator degrades to no-op
// instrumentation in that case.
func newPipeline(ctx context.Context, cfg *config.Config, logger *errors.Logger, deps pipeline.Deps) (*pipelineDeps, error) {
	textfmt.Configure(textfmt.TableConfig{
		SuffixPath:    cfg.Paths.SuffixTable,
		ShortWordPath: cfg.Paths.ShortWords,
		AcronymPath:   cfg.Paths.Acronyms,
	})
	if err := textfmt.LoadTables(); err != nil {
		logger.Warn("Formatting tables fell back to built-in defaults", "error", err)
	}

	classifier := location.NewClassifier(cfg.Paths.Gazetteer, logger)
	builder := enrich.NewContextBuilder(classifier, logger,
		cfg.Pipeline.HomeLabel, cfg.Pipeline.ForeignLabel)

	renderer, err := render.NewRenderer(cfg.Paths.Template, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load document template: %w", err)
	}

	var watcher *render.TemplateWatcher
	if cfg.Paths.TemplateWatch {
		watcher = render.NewTemplateWatcher(renderer, templateDebounce, logger)
		watcher.SetMetrics(deps.Metrics)
		if err := watcher.Start(); err != nil {
			logger.Warn("Template watching disabled", "error", err)
			watcher = nil
		}
	}

	store, err := newObjectStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	provider, err := ai.NewGeminiProvider(&cfg.AI, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create AI provider: %w", err)
	}

	parserClient := parser.NewClient(&cfg.Parser, logger, nil)
	parserClient.SetMetrics(deps.Metrics)

	deps.Store = store
	deps.Parser = parserClient
	deps.AI = provider
	deps.Classifier = classifier
	deps.Builder = builder
	deps.Renderer = renderer
	deps.Logger = logger

	return &pipelineDeps{
		orchestrator: pipeline.NewOrchestrator(cfg, deps),
		provider:     provider,
		watcher:      watcher,
	}, nil
}

func newObjectStore(ctx context.Context, cfg *config.Config, logger *errors.Logger) (storage.ObjectStore, error) {
	switch cfg.Storage.Backend {
	case "gcs":
		store, err := storage.NewGCSStore(ctx, &cfg.Storage, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create GCS store: %w", err)
		}
		return store, nil
	case "memory":
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}
}
