// Package pipeline runs the staged CV processing flow: store the upload,
// parse it, generate the blurb, enrich locations, persist the record, and
// render the final document. The first failed stage stops the run and its
// classification is returned to the caller unchanged.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cvforge/internal/ai"
	"cvforge/internal/config"
	"cvforge/internal/enrich"
	"cvforge/internal/errors"
	"cvforge/internal/location"
	"cvforge/internal/observability"
	"cvforge/internal/retry"
	"cvforge/internal/storage"
	"cvforge/internal/textfmt"
	"cvforge/internal/types"
	"cvforge/internal/utils"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const storageUserMessage = "Our cloud storage is having some problems, please wait a couple of minutes and then try uploading your CV again."

// CVParser is the parsing service boundary.
type CVParser interface {
	Parse(ctx context.Context, fileBytes []byte, filename string) (*types.CVRecord, error)
}

// DocumentRenderer is the document rendering boundary.
type DocumentRenderer interface {
	Render(ctx types.RenderContext) ([]byte, error)
	TemplatePath() string
}

// Deps bundles the collaborators an Orchestrator needs.
type Deps struct {
	Store      storage.ObjectStore
	Parser     CVParser
	AI         ai.Provider
	Classifier *location.Classifier
	Builder    *enrich.ContextBuilder
	Renderer   DocumentRenderer
	Logger     *errors.Logger
	Metrics    *observability.Metrics
	Tracer     oteltrace.Tracer
}

// Orchestrator drives one pipeline run per uploaded file. Runs are
// independent; the key registry is the only state shared between them.
type Orchestrator struct {
	cfg        *config.Config
	store      storage.ObjectStore
	parser     CVParser
	ai         ai.Provider
	classifier *location.Classifier
	builder    *enrich.ContextBuilder
	renderer   DocumentRenderer
	logger     *errors.Logger
	metrics    *observability.Metrics
	tracer     oteltrace.Tracer
	keys       *KeyRegistry

	sleep func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator wires an orchestrator from configuration and
// collaborators.
func NewOrchestrator(cfg *config.Config, deps Deps) *Orchestrator {
	tracer := deps.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("cvforge.pipeline")
	}
	return &Orchestrator{
		cfg:        cfg,
		store:      deps.Store,
		parser:     deps.Parser,
		ai:         deps.AI,
		classifier: deps.Classifier,
		builder:    deps.Builder,
		renderer:   deps.Renderer,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		tracer:     tracer,
		keys:       NewKeyRegistry(),
	}
}

// Process runs all six stages for one uploaded file and returns the
// outcome of the run. It never panics on malformed input; every failure
// comes back classified as recoverable or fatal.
func (o *Orchestrator) Process(ctx context.Context, filename string, fileBytes []byte) *Result {
	ctx, span := o.tracer.Start(ctx, "pipeline.process",
		oteltrace.WithAttributes(
			attribute.String("upload.filename", filename),
			attribute.Int("upload.size_bytes", len(fileBytes)),
		))
	defer span.End()

	key := o.keys.Acquire(filename)
	defer o.keys.Release(key)

	result := &Result{Status: StatusSuccess, Key: key, Stages: newStageLedger()}
	result.addMessage("Starting CV processing for: " + filename)

	o.logger.Info("Pipeline run started", "key", key, "filename", filename, "size", utils.FormatFileSize(int64(len(fileBytes))))

	type stageFn struct {
		stage Stage
		fn    func(context.Context) error
	}

	var record *types.CVRecord
	var renderContext types.RenderContext

	stages := []stageFn{
		{StageStore, func(ctx context.Context) error {
			url, err := o.stageStore(ctx, key, filename, fileBytes)
			result.RemoteURL = url
			return err
		}},
		{StageParse, func(ctx context.Context) error {
			var err error
			record, err = o.parser.Parse(ctx, fileBytes, filename)
			if err == nil {
				o.checkpoint(key, record)
			}
			return err
		}},
		{StageBlurb, func(ctx context.Context) error {
			err := o.stageBlurb(ctx, record)
			if err == nil {
				o.checkpoint(key, record)
			}
			return err
		}},
		{StageLocation, func(ctx context.Context) error {
			o.classifier.EnrichExperiences(record)
			o.checkpoint(key, record)
			return nil
		}},
		{StagePersist, func(ctx context.Context) error {
			return o.stagePersist(ctx, key, record)
		}},
		{StageRender, func(ctx context.Context) error {
			path, rc, err := o.stageRender(ctx, key, record)
			result.DocumentPath = path
			renderContext = rc
			return err
		}},
	}

	for _, s := range stages {
		if err := o.runStage(ctx, result, s.stage, s.fn); err != nil {
			o.fail(result, s.stage, err)
			o.recordOutcome(ctx, result)
			return result
		}
	}

	result.Record = record
	result.Context = renderContext
	result.addMessage("CV processing completed")
	o.logger.Info("Pipeline run completed", "key", key, "document", result.DocumentPath)
	o.recordOutcome(ctx, result)
	return result
}

// runStage wraps one stage with a span, timing metric, transition logs,
// and the run's stage ledger.
func (o *Orchestrator) runStage(ctx context.Context, result *Result, stage Stage, fn func(context.Context) error) error {
	ctx, span := o.tracer.Start(ctx, "pipeline."+string(stage))
	defer span.End()

	result.markStage(stage, StageInProgress)
	result.addMessage("Starting: " + stageDescription(stage))

	o.logger.Debug("Stage started", "stage", string(stage))
	start := time.Now()
	err := fn(ctx)
	duration := time.Since(start)

	if o.metrics != nil {
		o.metrics.RecordStageDuration(ctx, string(stage), duration, err == nil)
	}

	if err != nil {
		result.markStage(stage, StageFailed)
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("error", true))
		o.logger.LogError(err, "Stage failed", "stage", string(stage), "duration", duration.String())
		return err
	}

	result.markStage(stage, StageSucceeded)
	result.addMessage("Completed: " + stageDescription(stage))
	o.logger.Info("Stage completed", "stage", string(stage), "duration", duration.String())
	return nil
}

// fail translates a stage error into the run outcome. Recoverable errors
// carry a user-facing message; everything else is fatal with the raw
// diagnostic.
func (o *Orchestrator) fail(result *Result, stage Stage, err error) {
	result.Stage = stage
	if errors.IsRecoverable(err) {
		result.Status = StatusRecoverable
		result.UserMessage = errors.UserMessageOf(err)
		if result.UserMessage == "" {
			result.UserMessage = "Something went wrong, please try again in a few minutes."
		}
		result.addMessage("Error in " + string(stage) + " stage: " + result.UserMessage)
		return
	}
	result.Status = StatusFatal
	result.Diagnostic = err.Error()
	result.addMessage("Error in " + string(stage) + " stage: processing could not be completed")
}

func (o *Orchestrator) recordOutcome(ctx context.Context, result *Result) {
	if o.metrics != nil {
		o.metrics.RecordCVProcessed(ctx, string(result.Status))
	}
}

// stageStore pushes the upload to remote storage with a bounded linear
// retry. Exhausting the attempts is a recoverable failure.
func (o *Orchestrator) stageStore(ctx context.Context, key, filename string, fileBytes []byte) (string, error) {
	remoteKey := "uploads/" + key + utils.GetFileExtension(filename)

	policy := retry.Policy{
		MaxAttempts: o.cfg.Storage.MaxAttempts,
		Backoff:     retry.Linear(o.cfg.Storage.BackoffBase, o.cfg.Storage.BackoffStep),
		Retryable:   func(error) bool { return true },
		Sleep:       o.sleep,
	}

	url, err := retry.Do(ctx, policy, func() (string, error) {
		return o.store.Put(ctx, remoteKey, fileBytes, contentTypeFor(filename))
	})
	if err != nil {
		return "", errors.NewStorageError(errors.ErrCodeStorageFailed, "upload to remote storage failed", err).
			WithContext("remote_key", remoteKey).
			WithUserMessage(storageUserMessage)
	}

	o.logger.Debug("Upload stored", "remote_key", remoteKey)
	return url, nil
}

// stageBlurb asks the text-generation provider for a career summary and
// attaches it to the record. At this point locations are not yet
// classified, so the years figure fed into the prompt treats every
// experience the same; the first sentence is rewritten with the final
// figure before the record is persisted.
func (o *Orchestrator) stageBlurb(ctx context.Context, record *types.CVRecord) error {
	basics := record.Data.Profile.Basics
	years := enrich.AggregateYears(record, o.logger)

	input := ai.BlurbInput{
		FirstName:  textfmt.PersonName(basics.FirstName),
		Profession: basics.Profession,
		Location:   o.classifier.CityFromAddress(basics.Address),
		TotalYears: years.TotalYears,
	}

	blurb, usage, err := o.generateBlurb(ctx, input)
	if err != nil {
		return err
	}
	if usage != nil {
		o.logger.Debug("Blurb token usage",
			"input_tokens", usage.InputTokens,
			"output_tokens", usage.OutputTokens,
			"total_tokens", usage.TotalTokens)
	}

	record.Data.Profile.Blurb = blurb
	return nil
}

// generateBlurb calls the provider, instrumented with AI timing, request,
// error, and token-usage metrics when metrics are wired.
func (o *Orchestrator) generateBlurb(ctx context.Context, input ai.BlurbInput) (string, *ai.TokenUsage, error) {
	if o.metrics == nil {
		return o.ai.GenerateBlurb(ctx, input)
	}

	var blurb string
	var usage *ai.TokenUsage
	err := o.metrics.TrackAIOperationWithTokens(ctx, "generate_blurb", func(ctx context.Context) *observability.AIOperationResult {
		var callErr error
		blurb, usage, callErr = o.ai.GenerateBlurb(ctx, input)
		result := &observability.AIOperationResult{Error: callErr}
		if usage != nil {
			result.TokenUsage = &observability.TokenUsage{
				InputTokens:  usage.InputTokens,
				OutputTokens: usage.OutputTokens,
				TotalTokens:  usage.TotalTokens,
			}
		}
		return result
	})
	return blurb, usage, err
}

// stagePersist finalizes the record (derived years and the normalized
// first blurb sentence) and writes it to the intermediate JSON directory.
// A write error here is fatal for the run.
func (o *Orchestrator) stagePersist(ctx context.Context, key string, record *types.CVRecord) error {
	years := enrich.AggregateYears(record, o.logger)
	record.SetTotalExperienceYears(years.TotalYears)

	firstName := textfmt.PersonName(record.Data.Profile.Basics.FirstName)
	record.Data.Profile.Blurb = ai.FixYearsSentence(record.Data.Profile.Blurb, firstName, years.TotalYears)

	path := o.recordPath(key)
	if err := o.writeRecord(path, record); err != nil {
		return errors.NewIOError(errors.ErrCodeCheckpointFailed, "failed to persist enriched record", err).
			WithContext("path", path)
	}
	o.logger.Debug("Enriched record persisted", "path", path)
	return nil
}

// stageRender builds the placeholder context, renders the document,
// verifies it is non-empty, and writes it to the output directory. The
// already-persisted JSON survives any failure here, so document
// generation can be retried without re-parsing.
func (o *Orchestrator) stageRender(ctx context.Context, key string, record *types.CVRecord) (string, types.RenderContext, error) {
	renderContext := o.builder.Build(record)

	doc, err := o.renderer.Render(renderContext)
	if err != nil {
		return "", nil, err
	}
	if len(doc) == 0 {
		return "", nil, errors.NewInternalError(errors.ErrCodeRenderFailed, "renderer produced an empty document", nil)
	}

	if err := utils.EnsureDir(o.cfg.Paths.OutputDir); err != nil {
		return "", nil, errors.NewIOError(errors.ErrCodeRenderFailed, "cannot create output directory", err)
	}

	path := filepath.Join(o.cfg.Paths.OutputDir, o.DocumentFileName(key))
	if err := os.WriteFile(path, doc, 0600); err != nil {
		return "", nil, errors.NewIOError(errors.ErrCodeRenderFailed, "failed to write generated document", err).
			WithContext("path", path)
	}

	// Best effort: a copy of the artifact goes to remote storage so it
	// can be fetched after local cleanup.
	if _, err := o.store.Put(ctx, "documents/"+o.DocumentFileName(key), doc, "application/octet-stream"); err != nil {
		o.logger.Warn("Could not upload generated document to remote storage", "key", key, "error", err.Error())
	}

	return path, renderContext, nil
}

// DocumentFileName returns the artifact filename for a run key, using
// the template's extension.
func (o *Orchestrator) DocumentFileName(key string) string {
	ext := ".txt"
	if o.renderer != nil {
		if e := filepath.Ext(o.renderer.TemplatePath()); e != "" {
			ext = e
		}
	}
	return key + "_CV" + ext
}

// checkpoint writes the record after a mutating stage. Intermediate
// checkpoints are best effort; only the persist stage treats a write
// error as fatal.
func (o *Orchestrator) checkpoint(key string, record *types.CVRecord) {
	path := o.recordPath(key)
	if err := o.writeRecord(path, record); err != nil {
		o.logger.Warn("Checkpoint write failed", "path", path, "error", err.Error())
	}
}

func (o *Orchestrator) recordPath(key string) string {
	return filepath.Join(o.cfg.Paths.ParsedDir, key+".json")
}

func (o *Orchestrator) writeRecord(path string, record *types.CVRecord) error {
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

func contentTypeFor(filename string) string {
	switch utils.GetFileExtension(filename) {
	case ".pdf":
		return "application/pdf"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".doc":
		return "application/msword"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
