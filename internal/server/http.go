package server

import (
	"context"
	"time"

	"cvforge/internal/ai"
	"cvforge/internal/config"
	cvforgeErrors "cvforge/internal/errors"
	"cvforge/internal/observability"
	"cvforge/internal/pipeline"
)

// UploadResponse is returned for successful and recoverable pipeline runs.
type UploadResponse struct {
	Status      string `json:"status"`
	Key         string `json:"key,omitempty"`
	Message     string `json:"message,omitempty"`
	DownloadURL string `json:"downloadUrl,omitempty"`
	RemoteURL   string `json:"remoteUrl,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Processor runs the CV pipeline for one upload.
type Processor interface {
	Process(ctx context.Context, filename string, fileBytes []byte) *pipeline.Result
	DocumentFileName(key string) string
}

// BreakerReporter is implemented by AI providers that guard their
// upstream with a circuit breaker. The health endpoint reports breaker
// state when the provider supports it.
type BreakerReporter interface {
	BreakerStats() map[string]any
	BreakerHealthy() bool
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	// Pipeline entry point
	Pipeline Processor

	// AI provider, used by the health endpoint
	AIProvider ai.Provider

	// API Authentication
	APIKeys map[string]bool

	// Timeout configurations
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Upload size limit
	MaxUploadSize int64

	// Rate limiting
	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	// Observability manager shared with the pipeline. Start creates one
	// from configuration when nil.
	Observability *observability.ObservabilityManager

	// Logger
	Logger *cvforgeErrors.Logger
}

// ServerConfig holds configuration for creating a Server instance
type ServerConfig struct {
	Host          string
	Port          string
	Version       string
	APIKeys       []string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
	MaxUploadSize int64
	RateLimit     *config.RateLimitConfig
	Observability *observability.ObservabilityManager
}

// NewServer creates a new Server instance from a ServerConfig struct
func NewServer(appCfg *config.Config, cfg ServerConfig, proc Processor, provider ai.Provider, logger *cvforgeErrors.Logger) *Server {
	// Convert API keys slice to map for O(1) lookup
	apiKeyMap := make(map[string]bool)
	for _, key := range cfg.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	var rateLimiter *RateLimiter
	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(
			cfg.RateLimit.RequestsPerMin,
			cfg.RateLimit.Window,
			cfg.RateLimit.BurstCapacity,
			logger,
		)
	}

	return &Server{
		Host:          cfg.Host,
		Port:          cfg.Port,
		Version:       cfg.Version,
		AppConfig:     appCfg,
		Pipeline:      proc,
		AIProvider:    provider,
		APIKeys:       apiKeyMap,
		ReadTimeout:   cfg.ReadTimeout,
		WriteTimeout:  cfg.WriteTimeout,
		IdleTimeout:   cfg.IdleTimeout,
		MaxUploadSize: cfg.MaxUploadSize,
		RateLimit:     cfg.RateLimit,
		RateLimiter:   rateLimiter,
		Observability: cfg.Observability,
		Logger:        logger,
	}
}

var _ Processor = (*pipeline.Orchestrator)(nil)
