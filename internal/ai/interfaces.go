package ai

import "context"

// BlurbInput carries the candidate facts the career summary is written from.
type BlurbInput struct {
	FirstName  string
	Profession string
	Location   string
	TotalYears int
}

// Provider generates candidate-facing text. Callers can ignore the token
// usage if they do not need it.
type Provider interface {
	GenerateBlurb(ctx context.Context, input BlurbInput) (string, *TokenUsage, error)
	GetModelInfo(ctx context.Context) *ModelInfo
	Close() error
}

// TokenUsage reports what one generation consumed.
type TokenUsage struct {
	InputTokens  int64 `json:"inputTokens"`
	OutputTokens int64 `json:"outputTokens"`
	TotalTokens  int64 `json:"totalTokens"`
}

// ModelInfo describes the configured model's availability.
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}
