package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"cvforge/internal/observability"
	"cvforge/internal/pipeline"
	"cvforge/internal/utils"

	"go.opentelemetry.io/otel/attribute"
)

// createUploadHandler wraps the upload handler with observability
func (s *Server) createUploadHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		tracer := om.Tracer("cvforge.api")
		ctx, span := tracer.Start(ctx, "api.upload")
		defer span.End()

		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		filename, fileBytes, err := s.readUpload(r)
		if err != nil {
			span.RecordError(err)
			span.SetAttributes(attribute.String("error.type", "validation"))
			writeErrorResponse(w, "Invalid upload", err.Error(), http.StatusBadRequest)
			return
		}

		span.SetAttributes(
			attribute.String("upload.filename", filename),
			attribute.Int("upload.size_bytes", len(fileBytes)),
		)

		result := s.Pipeline.Process(ctx, filename, fileBytes)

		switch result.Status {
		case pipeline.StatusSuccess:
			span.SetAttributes(attribute.Bool("success", true))
			writeJSON(w, http.StatusOK, UploadResponse{
				Status:      "success",
				Key:         result.Key,
				DownloadURL: "/download/" + s.Pipeline.DocumentFileName(result.Key),
				RemoteURL:   result.RemoteURL,
			})
		case pipeline.StatusRecoverable:
			span.SetAttributes(attribute.String("error.type", "recoverable"), attribute.String("stage", string(result.Stage)))
			writeJSON(w, http.StatusUnprocessableEntity, UploadResponse{
				Status:  "warning",
				Key:     result.Key,
				Message: result.UserMessage,
			})
		default:
			span.SetAttributes(attribute.String("error.type", "fatal"), attribute.String("stage", string(result.Stage)))
			s.Logger.LogError(fmt.Errorf("%s", result.Diagnostic), "Pipeline run failed",
				"key", result.Key, "stage", string(result.Stage))
			writeErrorResponse(w, "Processing failed", "The CV could not be processed", http.StatusInternalServerError)
		}
	}
}

// readUpload extracts and validates the uploaded file from the multipart
// form.
func (s *Server) readUpload(r *http.Request) (string, []byte, error) {
	if err := r.ParseMultipartForm(s.MaxUploadSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return "", nil, fmt.Errorf("file too large (limit is %s)", utils.FormatFileSize(maxBytesErr.Limit))
		}
		return "", nil, fmt.Errorf("could not parse multipart form: %w", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, fmt.Errorf("missing file field: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			log.Printf("Failed to close uploaded file: %v", err)
		}
	}()

	ext := utils.GetFileExtension(header.Filename)
	if !s.AppConfig.App.AllowedExtension(ext) {
		return "", nil, fmt.Errorf("file type %q is not supported, allowed types: %s",
			ext, strings.Join(s.AppConfig.App.AllowedExtensions, ", "))
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, fmt.Errorf("could not read uploaded file: %w", err)
	}
	if len(data) == 0 {
		return "", nil, fmt.Errorf("uploaded file is empty")
	}

	return header.Filename, data, nil
}

// downloadHandler serves a generated document from the output directory.
func (s *Server) downloadHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/download/")
	// filepath.Base kills any traversal attempt in the request path.
	name = filepath.Base(name)
	if name == "" || name == "." || name == "/" {
		writeErrorResponse(w, "Missing file name", "Specify the document to download", http.StatusBadRequest)
		return
	}

	path := filepath.Join(s.AppConfig.Paths.OutputDir, name)
	if err := utils.ValidateInputFile(path); err != nil {
		writeErrorResponse(w, "Not found", "No such generated document", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	http.ServeFile(w, r, path)
}

// healthHandler reports service and text-generation model availability.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"status":  "healthy",
		"service": "cvforge",
		"version": s.Version,
	}
	degraded := false

	if s.AIProvider != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		modelInfo := s.AIProvider.GetModelInfo(ctx)
		response["ai_model"] = modelInfo
		if modelInfo != nil && !modelInfo.Available {
			degraded = true
		}

		if br, ok := s.AIProvider.(BreakerReporter); ok {
			response["circuit_breaker"] = br.BreakerStats()
			if !br.BreakerHealthy() {
				degraded = true
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if degraded {
		response["status"] = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Failed to encode health response: %v", err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// statsHandler provides server statistics including rate limiting info
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"service": "cvforge",
		"version": s.Version,
		"server": map[string]any{
			"max_upload_size_bytes": s.MaxUploadSize,
		},
	}

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{
			"enabled": false,
		}
	}

	if s.RateLimit != nil {
		response["rate_limit_config"] = map[string]any{
			"enabled":          s.RateLimit.Enabled,
			"requests_per_min": s.RateLimit.RequestsPerMin,
			"burst_capacity":   s.RateLimit.BurstCapacity,
			"by_ip":            s.RateLimit.ByIP,
			"by_api_key":       s.RateLimit.ByAPIKey,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Failed to encode stats response: %v", err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// writeJSON writes a JSON payload with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, error, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error:   error,
		Message: message,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Failed to encode error response: %v", err)
		http.Error(w, "Failed to encode error response", http.StatusInternalServerError)
	}
}
