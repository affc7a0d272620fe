package ai

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"cvforge/internal/config"
	cvforgeErrors "cvforge/internal/errors"
	"cvforge/internal/retry"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// overloadedUserMessage is the guidance shown when the text-generation
// service stays overloaded through every retry.
const overloadedUserMessage = "Our AI is having some problems, please wait a couple of minutes and then try uploading your CV again."

// GeminiProvider implements Provider for Google Gemini.
type GeminiProvider struct {
	client         *genai.Client
	config         *config.AIConfig
	circuitBreaker *BlurbCircuitBreaker
	modelBreaker   *ModelCircuitBreaker
	logger         *cvforgeErrors.Logger

	// sleep is swapped in tests to capture backoff sequences.
	sleep func(ctx context.Context, d time.Duration) error
}

var _ Provider = (*GeminiProvider)(nil)

// BreakerStats reports generation breaker statistics for the health
// endpoint.
func (g *GeminiProvider) BreakerStats() map[string]any {
	return g.circuitBreaker.Stats()
}

// BreakerHealthy reports whether the generation breaker admits calls.
func (g *GeminiProvider) BreakerHealthy() bool {
	return g.circuitBreaker.IsHealthy()
}

// NewGeminiProvider creates a Gemini-backed text generator.
func NewGeminiProvider(cfg *config.AIConfig, logger *cvforgeErrors.Logger) (*GeminiProvider, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, cvforgeErrors.NewAIError(cvforgeErrors.ErrCodeAIServiceFailed,
			"Failed to create Gemini client", err)
	}

	return &GeminiProvider{
		client:         client,
		config:         cfg,
		circuitBreaker: NewBlurbCircuitBreaker(cfg, logger),
		modelBreaker:   NewModelCircuitBreaker(cfg, logger),
		logger:         logger,
	}, nil
}

// GenerateBlurb asks the model for a two-paragraph career summary. An
// overloaded service is retried with exponential backoff; exhausting the
// retries yields a recoverable error, anything else fails immediately.
func (g *GeminiProvider) GenerateBlurb(ctx context.Context, input BlurbInput) (string, *TokenUsage, error) {
	tracer := otel.Tracer("cvforge.ai.gemini")
	ctx, span := tracer.Start(ctx, "gemini.generate_blurb")
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", g.config.Model),
		attribute.Int("input.total_years", input.TotalYears),
	)

	prompt := buildBlurbPrompt(input)
	genaiConfig := &genai.GenerateContentConfig{
		MaxOutputTokens: g.config.MaxOutputTokens,
	}
	if g.config.Temperature > 0 {
		temp := g.config.Temperature
		genaiConfig.Temperature = &temp
	}

	maxAttempts := g.config.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	base := g.config.BackoffBase
	if base <= 0 {
		base = time.Second
	}

	attempt := 0
	result, err := retry.Do(ctx, retry.Policy{
		MaxAttempts: maxAttempts,
		Backoff:     retry.Exponential(base, 30*time.Second),
		Retryable:   isOverloaded,
		Sleep:       g.sleep,
	}, func() (*genai.GenerateContentResponse, error) {
		attempt++
		if attempt > 1 {
			g.logger.Warn("Retrying text generation",
				"attempt", attempt,
				"max_attempts", maxAttempts)
		}
		return g.circuitBreaker.Execute(func() (*genai.GenerateContentResponse, error) {
			return g.client.Models.GenerateContent(ctx, g.config.Model, genai.Text(prompt), genaiConfig)
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		// As() sees through the retry wrapper, so an exhausted run of
		// overload errors still classifies as overloaded here.
		if isOverloaded(err) {
			return "", nil, cvforgeErrors.NewAIError(cvforgeErrors.ErrCodeAIOverloaded,
				"text generation overloaded after retries", err).
				WithUserMessage(overloadedUserMessage)
		}
		return "", nil, cvforgeErrors.NewAIError(cvforgeErrors.ErrCodeAIServiceFailed,
			"Failed to generate career summary", err)
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		span.SetAttributes(attribute.Bool("success", false))
		return "", nil, cvforgeErrors.NewAIError(cvforgeErrors.ErrCodeAIServiceFailed,
			"model returned an empty career summary", nil)
	}

	tokenUsage := extractTokenUsage(result)
	if tokenUsage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", tokenUsage.InputTokens),
			attribute.Int64("ai.tokens.output", tokenUsage.OutputTokens),
			attribute.Int64("ai.tokens.total", tokenUsage.TotalTokens),
		)
	}
	span.SetAttributes(attribute.Bool("success", true))
	return text, tokenUsage, nil
}

// GetModelInfo checks the readiness of the configured model.
func (g *GeminiProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	modelInfo := &ModelInfo{
		Name:      g.config.Model,
		Available: false,
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	model, err := g.modelBreaker.ExecuteModel(func() (*genai.Model, error) {
		return g.client.Models.Get(checkCtx, g.config.Model, &genai.GetModelConfig{})
	})
	if err != nil {
		modelInfo.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed",
			"model", g.config.Model,
			"error", err.Error())
		return modelInfo
	}

	modelInfo.Available = true
	modelInfo.DisplayName = model.DisplayName
	modelInfo.Version = model.Version
	return modelInfo
}

// Close releases provider resources. The genai client holds no
// long-lived connections that need explicit shutdown.
func (g *GeminiProvider) Close() error {
	return nil
}

// isOverloaded reports whether the error is the service telling us to
// back off: rate limiting, 5xx, or a transient network failure.
func isOverloaded(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *googleapi.Error
	if stderrors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return true
	}

	return false
}

func extractTokenUsage(resp *genai.GenerateContentResponse) *TokenUsage {
	if resp == nil || resp.UsageMetadata == nil {
		return nil
	}
	return &TokenUsage{
		InputTokens:  int64(resp.UsageMetadata.PromptTokenCount),
		OutputTokens: int64(resp.UsageMetadata.CandidatesTokenCount),
		TotalTokens:  int64(resp.UsageMetadata.TotalTokenCount),
	}
}
