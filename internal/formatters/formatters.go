// Package formatters renders pipeline results for CLI output in json,
// text, or markdown form.
package formatters

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"cvforge/internal/pipeline"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "Result", &ResultTextFormatter{})
	registry.RegisterFormatter("markdown", "Result", &ResultMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case *pipeline.Result:
		return "Result"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// ResultTextFormatter handles text formatting for pipeline results
type ResultTextFormatter struct{}

func (rtf *ResultTextFormatter) Format(data any) (string, error) {
	result, ok := data.(*pipeline.Result)
	if !ok {
		return "", fmt.Errorf("expected *pipeline.Result, got %T", data)
	}

	var output strings.Builder

	output.WriteString("=== CV PROCESSING RESULT ===\n\n")
	output.WriteString(fmt.Sprintf("Status: %s\n", result.Status))
	if result.Key != "" {
		output.WriteString(fmt.Sprintf("Key: %s\n", result.Key))
	}

	switch {
	case result.Succeeded():
		output.WriteString(fmt.Sprintf("Document: %s\n", result.DocumentPath))
		if result.RemoteURL != "" {
			output.WriteString(fmt.Sprintf("Remote copy: %s\n", result.RemoteURL))
		}
		if len(result.Context) > 0 {
			output.WriteString("\n=== RENDER CONTEXT ===\n")
			for _, key := range sortedKeys(result.Context) {
				output.WriteString(fmt.Sprintf("\n%s:\n%s\n", key, result.Context[key]))
			}
		}
	case result.UserMessage != "":
		output.WriteString(fmt.Sprintf("Failed stage: %s\n", result.Stage))
		output.WriteString(fmt.Sprintf("\n%s\n", result.UserMessage))
	default:
		output.WriteString(fmt.Sprintf("Failed stage: %s\n", result.Stage))
		output.WriteString(fmt.Sprintf("Diagnostic: %s\n", result.Diagnostic))
	}

	if len(result.Stages) > 0 {
		output.WriteString("\n=== STAGES ===\n")
		for _, s := range result.Stages {
			output.WriteString(fmt.Sprintf("%-10s %s\n", s.Stage, s.Status))
		}
	}

	return output.String(), nil
}

func (rtf *ResultTextFormatter) SupportedType() string {
	return "Result"
}

// ResultMarkdownFormatter handles markdown formatting for pipeline results
type ResultMarkdownFormatter struct{}

func (rmf *ResultMarkdownFormatter) Format(data any) (string, error) {
	result, ok := data.(*pipeline.Result)
	if !ok {
		return "", fmt.Errorf("expected *pipeline.Result, got %T", data)
	}

	var output strings.Builder

	output.WriteString("# CV Processing Result\n\n")
	output.WriteString(fmt.Sprintf("**Status:** %s\n\n", result.Status))
	if result.Key != "" {
		output.WriteString(fmt.Sprintf("**Key:** `%s`\n\n", result.Key))
	}

	switch {
	case result.Succeeded():
		output.WriteString(fmt.Sprintf("**Document:** `%s`\n\n", result.DocumentPath))
		if result.RemoteURL != "" {
			output.WriteString(fmt.Sprintf("**Remote copy:** %s\n\n", result.RemoteURL))
		}
		if len(result.Context) > 0 {
			output.WriteString("## Render Context\n\n")
			for _, key := range sortedKeys(result.Context) {
				output.WriteString(fmt.Sprintf("### %s\n\n%s\n\n", key, result.Context[key]))
			}
		}
	case result.UserMessage != "":
		output.WriteString(fmt.Sprintf("**Failed stage:** %s\n\n", result.Stage))
		output.WriteString(fmt.Sprintf("> %s\n", result.UserMessage))
	default:
		output.WriteString(fmt.Sprintf("**Failed stage:** %s\n\n", result.Stage))
		output.WriteString(fmt.Sprintf("```\n%s\n```\n", result.Diagnostic))
	}

	if len(result.Stages) > 0 {
		output.WriteString("\n## Stages\n\n")
		for _, s := range result.Stages {
			output.WriteString(fmt.Sprintf("- **%s:** %s\n", s.Stage, s.Status))
		}
	}

	return output.String(), nil
}

func (rmf *ResultMarkdownFormatter) SupportedType() string {
	return "Result"
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
