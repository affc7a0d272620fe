// Package config loads application configuration from defaults, an
// optional YAML file, environment variables, and Vault.
package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
// Secret precedence order:
// 1. Vault (if configured) - highest priority
// 2. Config file values
// 3. Environment variables (CVFORGE_AI_APIKEY, etc.)
// 4. Default values - lowest priority
type Config struct {
	AI            AIConfig            `mapstructure:"ai"`
	Parser        ParserConfig        `mapstructure:"parser"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Pipeline      PipelineConfig      `mapstructure:"pipeline"`
	Paths         PathsConfig         `mapstructure:"paths"`
	Server        ServerConfig        `mapstructure:"server"`
	App           AppConfig           `mapstructure:"app"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// AIConfig holds text-generation service configuration.
type AIConfig struct {
	Provider        string               `mapstructure:"provider"`
	Model           string               `mapstructure:"model"`
	APIKey          string               `mapstructure:"apiKey"`
	Temperature     float32              `mapstructure:"temperature"`
	MaxOutputTokens int32                `mapstructure:"maxOutputTokens"`
	MaxAttempts     int                  `mapstructure:"maxAttempts"`
	BackoffBase     time.Duration        `mapstructure:"backoffBase"`
	Timeout         time.Duration        `mapstructure:"timeout"`
	CircuitBreaker  CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// ParserConfig holds CV parsing API configuration.
type ParserConfig struct {
	BaseURL        string               `mapstructure:"baseUrl"`
	APIKey         string               `mapstructure:"apiKey"`
	Timeout        time.Duration        `mapstructure:"timeout"`
	MaxAttempts    int                  `mapstructure:"maxAttempts"`
	BackoffBase    time.Duration        `mapstructure:"backoffBase"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuitBreaker"`
}

// StorageConfig holds remote object storage configuration.
type StorageConfig struct {
	Backend         string        `mapstructure:"backend"` // "gcs" or "memory"
	Bucket          string        `mapstructure:"bucket"`
	CredentialsFile string        `mapstructure:"credentialsFile"`
	SignedURLTTL    time.Duration `mapstructure:"signedUrlTtl"`
	MaxAttempts     int           `mapstructure:"maxAttempts"`
	BackoffBase     time.Duration `mapstructure:"backoffBase"`
	BackoffStep     time.Duration `mapstructure:"backoffStep"`
}

// PipelineConfig holds orchestrator settings.
type PipelineConfig struct {
	HomeLabel    string `mapstructure:"homeLabel"`
	ForeignLabel string `mapstructure:"foreignLabel"`
}

// PathsConfig points at data files and working directories.
type PathsConfig struct {
	Gazetteer     string `mapstructure:"gazetteer"`
	SuffixTable   string `mapstructure:"suffixTable"`
	ShortWords    string `mapstructure:"shortWords"`
	Acronyms      string `mapstructure:"acronyms"`
	Template      string `mapstructure:"template"`
	ParsedDir     string `mapstructure:"parsedDir"`
	OutputDir     string `mapstructure:"outputDir"`
	UploadDir     string `mapstructure:"uploadDir"`
	TemplateWatch bool   `mapstructure:"templateWatch"`
}

// CircuitBreakerConfig represents circuit breaker configuration.
type CircuitBreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	MaxRequests      uint32        `mapstructure:"maxRequests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MinRequests      uint32        `mapstructure:"minRequests"`
	FailureThreshold float64       `mapstructure:"failureThreshold"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"readTimeout"`
	WriteTimeout time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout  time.Duration `mapstructure:"idleTimeout"`

	// API Authentication
	APIKeys []string `mapstructure:"apiKeys"`

	// Rate Limiting Configuration
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	RequestsPerMin int           `mapstructure:"requestsPerMin"`
	BurstCapacity  int           `mapstructure:"burstCapacity"`
	ByIP           bool          `mapstructure:"byIP"`
	ByAPIKey       bool          `mapstructure:"byAPIKey"`
	Window         time.Duration `mapstructure:"window"`
}

// AppConfig holds general application configuration.
type AppConfig struct {
	LogLevel          string   `mapstructure:"logLevel"`
	DefaultFormat     string   `mapstructure:"defaultFormat"`
	SupportedFormats  []string `mapstructure:"supportedFormats"`
	MaxFileSize       int64    `mapstructure:"maxFileSize"`
	AllowedExtensions []string `mapstructure:"allowedExtensions"`
}

// ObservabilityConfig holds observability configuration.
type ObservabilityConfig struct {
	Enabled         bool             `mapstructure:"enabled"`
	ServiceName     string           `mapstructure:"serviceName"`
	ServiceVersion  string           `mapstructure:"serviceVersion"`
	ServiceInstance string           `mapstructure:"serviceInstance"`
	SampleRate      float64          `mapstructure:"sampleRate"`
	Tracing         TracingConfig    `mapstructure:"tracing"`
	Metrics         MetricsConfig    `mapstructure:"metrics"`
	Console         ConsoleConfig    `mapstructure:"console"`
	Prometheus      PrometheusConfig `mapstructure:"prometheus"`
	OTLP            OTLPConfig       `mapstructure:"otlp"`
}

// TracingConfig holds tracing configuration.
type TracingConfig struct {
	Enabled    bool    `mapstructure:"enabled"`
	SampleRate float64 `mapstructure:"sampleRate"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled            bool          `mapstructure:"enabled"`
	CollectionInterval time.Duration `mapstructure:"collectionInterval"`
}

// ConsoleConfig holds console exporter configuration.
type ConsoleConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	PrettyPrint bool `mapstructure:"prettyPrint"`
}

// PrometheusConfig holds Prometheus configuration.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	Port     string `mapstructure:"port"`
}

// OTLPConfig holds OTLP exporter configuration.
type OTLPConfig struct {
	Enabled  bool              `mapstructure:"enabled"`
	Endpoint string            `mapstructure:"endpoint"`
	Insecure bool              `mapstructure:"insecure"`
	Headers  map[string]string `mapstructure:"headers"`
}

// LoadConfig loads configuration from defaults, an optional config file,
// and environment variables, then resolves secrets from Vault when
// enabled.
func LoadConfig() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("CVFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/cvforge/")
	v.AddConfigPath("$HOME/.cvforge")
	v.AddConfigPath(".")

	configFileUsed := ""
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		configFileUsed = v.ConfigFileUsed()
		log.Printf("[CONFIG] Loaded config file: %s", configFileUsed)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.resolveVaultSecrets(); err != nil {
		return nil, fmt.Errorf("vault secret resolution failed: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	// AI Configuration
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.model", "gemini-2.0-flash")
	v.SetDefault("ai.apiKey", "")
	v.SetDefault("ai.temperature", 0.7)
	v.SetDefault("ai.maxOutputTokens", 300)
	v.SetDefault("ai.maxAttempts", 5)
	v.SetDefault("ai.backoffBase", time.Second)
	v.SetDefault("ai.timeout", 60*time.Second)
	v.SetDefault("ai.circuitBreaker.enabled", true)
	v.SetDefault("ai.circuitBreaker.maxRequests", 3)
	v.SetDefault("ai.circuitBreaker.interval", 60*time.Second)
	v.SetDefault("ai.circuitBreaker.timeout", 60*time.Second)
	v.SetDefault("ai.circuitBreaker.minRequests", 3)
	v.SetDefault("ai.circuitBreaker.failureThreshold", 0.6)

	// Parser Configuration
	v.SetDefault("parser.baseUrl", "")
	v.SetDefault("parser.apiKey", "")
	v.SetDefault("parser.timeout", 120*time.Second)
	v.SetDefault("parser.maxAttempts", 5)
	v.SetDefault("parser.backoffBase", time.Second)
	v.SetDefault("parser.circuitBreaker.enabled", true)
	v.SetDefault("parser.circuitBreaker.maxRequests", 3)
	v.SetDefault("parser.circuitBreaker.interval", 60*time.Second)
	v.SetDefault("parser.circuitBreaker.timeout", 60*time.Second)
	v.SetDefault("parser.circuitBreaker.minRequests", 3)
	v.SetDefault("parser.circuitBreaker.failureThreshold", 0.6)

	// Storage Configuration
	v.SetDefault("storage.backend", "gcs")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.credentialsFile", "")
	v.SetDefault("storage.signedUrlTtl", time.Hour)
	v.SetDefault("storage.maxAttempts", 3)
	v.SetDefault("storage.backoffBase", 5*time.Second)
	v.SetDefault("storage.backoffStep", time.Second)

	// Pipeline Configuration
	v.SetDefault("pipeline.homeLabel", "New Zealand")
	v.SetDefault("pipeline.foreignLabel", "international markets")

	// Paths Configuration
	v.SetDefault("paths.gazetteer", "data/nz_locations.json")
	v.SetDefault("paths.suffixTable", "data/company_status.json")
	v.SetDefault("paths.shortWords", "data/short_words.json")
	v.SetDefault("paths.acronyms", "data/acronyms.json")
	v.SetDefault("paths.template", "templates/current_template.txt")
	v.SetDefault("paths.parsedDir", "parsed_jsons")
	v.SetDefault("paths.outputDir", "outputs")
	v.SetDefault("paths.uploadDir", "uploads")
	v.SetDefault("paths.templateWatch", true)

	// Server Configuration
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", 30*time.Second)
	v.SetDefault("server.writeTimeout", 180*time.Second)
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.apiKeys", []string{})
	v.SetDefault("server.rateLimit.enabled", false)
	v.SetDefault("server.rateLimit.requestsPerMin", 60)
	v.SetDefault("server.rateLimit.burstCapacity", 10)
	v.SetDefault("server.rateLimit.byIP", true)
	v.SetDefault("server.rateLimit.byAPIKey", false)
	v.SetDefault("server.rateLimit.window", time.Minute)

	// App Configuration
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.defaultFormat", "json")
	v.SetDefault("app.supportedFormats", []string{"json", "text", "markdown"})
	v.SetDefault("app.maxFileSize", 16*1024*1024) // 16MB
	v.SetDefault("app.allowedExtensions", []string{"pdf", "docx", "doc", "txt"})

	// Vault Configuration
	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.tokenFile", "")
	v.SetDefault("vault.namespace", "")
	v.SetDefault("vault.secrets.geminiKey", "")
	v.SetDefault("vault.secrets.parserKey", "")
	v.SetDefault("vault.secrets.apiKeys", "")

	// Observability Configuration
	v.SetDefault("observability.enabled", true)
	v.SetDefault("observability.serviceName", "cvforge")
	v.SetDefault("observability.serviceVersion", "")
	v.SetDefault("observability.serviceInstance", "")
	v.SetDefault("observability.sampleRate", 1.0)
	v.SetDefault("observability.tracing.enabled", true)
	v.SetDefault("observability.tracing.sampleRate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.collectionInterval", 15*time.Second)
	v.SetDefault("observability.console.enabled", false)
	v.SetDefault("observability.console.prettyPrint", true)
	v.SetDefault("observability.prometheus.enabled", true)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")
	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "http://localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.headers", map[string]string{})
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.AI.APIKey == "" {
		return fmt.Errorf("AI API key is required (set CVFORGE_AI_APIKEY environment variable)")
	}
	if c.Parser.BaseURL == "" {
		return fmt.Errorf("parser base URL is required (set CVFORGE_PARSER_BASEURL environment variable)")
	}
	if c.Parser.Timeout <= 0 {
		return fmt.Errorf("parser timeout must be positive")
	}
	if c.Storage.Backend == "gcs" && c.Storage.Bucket == "" {
		return fmt.Errorf("storage bucket is required for the gcs backend")
	}
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.App.MaxFileSize <= 0 {
		return fmt.Errorf("max file size must be positive")
	}

	validFormats := make(map[string]bool)
	for _, format := range c.App.SupportedFormats {
		validFormats[format] = true
	}
	if !validFormats[c.App.DefaultFormat] {
		return fmt.Errorf("invalid default format: %s", c.App.DefaultFormat)
	}
	return nil
}

// AllowedExtension reports whether the (dot-less, case-insensitive)
// extension may be uploaded.
func (c *AppConfig) AllowedExtension(ext string) bool {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	for _, allowed := range c.AllowedExtensions {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}
