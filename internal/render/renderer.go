// Package render fills the output document template with the placeholder
// context built from an enriched CV record.
package render

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"cvforge/internal/errors"
	"cvforge/internal/types"
)

var placeholderPattern = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// Renderer substitutes {placeholder} markers in a template file with
// context values. It tolerates drift between template and context in both
// directions: unknown placeholders render empty with a warning, unused
// context keys are only logged. The loaded template is guarded for the
// hot-reload watcher.
type Renderer struct {
	mu           sync.RWMutex
	templatePath string
	template     string
	logger       *errors.Logger
}

// NewRenderer loads the template at path. A renderer with a missing
// template fails construction; placeholderless templates are allowed.
func NewRenderer(path string, logger *errors.Logger) (*Renderer, error) {
	r := &Renderer{
		templatePath: path,
		logger:       logger,
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-reads the template file. Called at construction and by the
// file watcher; a failed reload keeps the previous template.
func (r *Renderer) Reload() error {
	raw, err := os.ReadFile(r.templatePath)
	if err != nil {
		return errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("loading template %s", r.templatePath), err)
	}
	if len(raw) == 0 {
		return errors.NewIOError(errors.ErrCodeRenderFailed,
			fmt.Sprintf("template %s is empty", r.templatePath), nil)
	}

	r.mu.Lock()
	r.template = string(raw)
	r.mu.Unlock()

	if r.logger != nil {
		r.logger.Debug("template loaded",
			"path", r.templatePath,
			"size", len(raw))
	}
	return nil
}

// TemplatePath returns the watched template file path.
func (r *Renderer) TemplatePath() string {
	return r.templatePath
}

// Render produces the document bytes for the given context.
func (r *Renderer) Render(ctx types.RenderContext) ([]byte, error) {
	r.mu.RLock()
	template := r.template
	r.mu.RUnlock()

	if template == "" {
		return nil, errors.NewInternalError(errors.ErrCodeRenderFailed, "no template loaded", nil)
	}

	used := make(map[string]struct{}, len(ctx))
	out := placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		key := strings.Trim(match, "{}")
		value, ok := ctx[key]
		if !ok {
			if r.logger != nil {
				r.logger.Warn("template placeholder has no context value",
					"placeholder", key,
					"template", r.templatePath)
			}
			return ""
		}
		used[key] = struct{}{}
		return value
	})

	if r.logger != nil {
		for key := range ctx {
			if _, ok := used[key]; !ok {
				r.logger.Debug("context key unused by template", "key", key)
			}
		}
	}

	return []byte(out), nil
}
