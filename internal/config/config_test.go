package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		AI: AIConfig{
			Provider: "gemini",
			Model:    "gemini-2.0-flash",
			APIKey:   "test-key",
		},
		Parser: ParserConfig{
			BaseURL: "https://parser.example.com",
			Timeout: 120 * time.Second,
		},
		Storage: StorageConfig{
			Backend: "memory",
		},
		Server: ServerConfig{
			Port: "8080",
		},
		App: AppConfig{
			LogLevel:          "info",
			DefaultFormat:     "json",
			SupportedFormats:  []string{"json", "text", "markdown"},
			MaxFileSize:       16 * 1024 * 1024,
			AllowedExtensions: []string{"pdf", "docx", "doc", "txt"},
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:    "missing AI key",
			mutate:  func(c *Config) { c.AI.APIKey = "" },
			wantErr: "AI API key",
		},
		{
			name:    "missing parser URL",
			mutate:  func(c *Config) { c.Parser.BaseURL = "" },
			wantErr: "parser base URL",
		},
		{
			name:    "non-positive parser timeout",
			mutate:  func(c *Config) { c.Parser.Timeout = 0 },
			wantErr: "parser timeout",
		},
		{
			name: "gcs backend requires bucket",
			mutate: func(c *Config) {
				c.Storage.Backend = "gcs"
				c.Storage.Bucket = ""
			},
			wantErr: "storage bucket",
		},
		{
			name: "gcs backend with bucket is valid",
			mutate: func(c *Config) {
				c.Storage.Backend = "gcs"
				c.Storage.Bucket = "cv-uploads"
			},
		},
		{
			name:    "missing server port",
			mutate:  func(c *Config) { c.Server.Port = "" },
			wantErr: "server port",
		},
		{
			name:    "non-positive max file size",
			mutate:  func(c *Config) { c.App.MaxFileSize = 0 },
			wantErr: "max file size",
		},
		{
			name:    "default format not in supported set",
			mutate:  func(c *Config) { c.App.DefaultFormat = "xml" },
			wantErr: "invalid default format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestAllowedExtension(t *testing.T) {
	app := &AppConfig{AllowedExtensions: []string{"pdf", "docx", "doc", "txt"}}

	tests := []struct {
		ext  string
		want bool
	}{
		{".pdf", true},
		{"pdf", true},
		{".PDF", true},
		{".docx", true},
		{".exe", false},
		{"", false},
		{".tar.gz", false},
	}

	for _, tt := range tests {
		t.Run("ext "+tt.ext, func(t *testing.T) {
			if got := app.AllowedExtension(tt.ext); got != tt.want {
				t.Errorf("AllowedExtension(%q) = %v, want %v", tt.ext, got, tt.want)
			}
		})
	}
}

func TestDefaults(t *testing.T) {
	t.Setenv("CVFORGE_AI_APIKEY", "test-key")
	t.Setenv("CVFORGE_PARSER_BASEURL", "https://parser.example.com")
	t.Setenv("CVFORGE_STORAGE_BACKEND", "memory")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}

	if cfg.AI.Model != "gemini-2.0-flash" {
		t.Errorf("AI.Model = %q, want gemini-2.0-flash", cfg.AI.Model)
	}
	if cfg.AI.MaxAttempts != 5 {
		t.Errorf("AI.MaxAttempts = %d, want 5", cfg.AI.MaxAttempts)
	}
	if cfg.Storage.MaxAttempts != 3 {
		t.Errorf("Storage.MaxAttempts = %d, want 3", cfg.Storage.MaxAttempts)
	}
	if cfg.Storage.BackoffBase != 5*time.Second {
		t.Errorf("Storage.BackoffBase = %v, want 5s", cfg.Storage.BackoffBase)
	}
	if cfg.Pipeline.HomeLabel != "New Zealand" {
		t.Errorf("Pipeline.HomeLabel = %q, want New Zealand", cfg.Pipeline.HomeLabel)
	}
	if cfg.App.MaxFileSize != 16*1024*1024 {
		t.Errorf("App.MaxFileSize = %d, want 16MiB", cfg.App.MaxFileSize)
	}
	if !cfg.App.AllowedExtension(".pdf") {
		t.Error("default allowed extensions should include pdf")
	}
	if cfg.Paths.Template == "" || cfg.Paths.ParsedDir == "" || cfg.Paths.OutputDir == "" {
		t.Error("path defaults should be populated")
	}
}
