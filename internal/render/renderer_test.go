package render

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cvforge/internal/types"
)

func writeTemplate(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "template.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing template: %v", err)
	}
	return path
}

func TestRender(t *testing.T) {
	path := writeTemplate(t, "Name: {name}\nRole: {position}\n\n{blurb}\n")
	r, err := NewRenderer(path, nil)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	out, err := r.Render(types.RenderContext{
		"name":     "Jane Doe",
		"position": "Site Supervisor",
		"blurb":    "Jane is a seasoned professional.",
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	want := "Name: Jane Doe\nRole: Site Supervisor\n\nJane is a seasoned professional.\n"
	if string(out) != want {
		t.Errorf("Render output = %q, want %q", out, want)
	}
}

func TestRenderMissingPlaceholderIsEmpty(t *testing.T) {
	path := writeTemplate(t, "Hello {name}, you live in {location}.")
	r, err := NewRenderer(path, nil)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	out, err := r.Render(types.RenderContext{"name": "Sam"})
	if err != nil {
		t.Fatalf("Render must tolerate missing context values: %v", err)
	}
	if got := string(out); got != "Hello Sam, you live in ." {
		t.Errorf("Render output = %q", got)
	}
}

func TestRenderExtraContextKeysIgnored(t *testing.T) {
	path := writeTemplate(t, "Just {name}.")
	r, err := NewRenderer(path, nil)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	out, err := r.Render(types.RenderContext{"name": "Sam", "unused": "value"})
	if err != nil {
		t.Fatalf("Render must tolerate extra context keys: %v", err)
	}
	if got := string(out); got != "Just Sam." {
		t.Errorf("Render output = %q", got)
	}
}

func TestNewRendererMissingTemplate(t *testing.T) {
	if _, err := NewRenderer(filepath.Join(t.TempDir(), "absent.txt"), nil); err == nil {
		t.Fatal("expected error for missing template")
	}
}

func TestNewRendererEmptyTemplate(t *testing.T) {
	path := writeTemplate(t, "")
	if _, err := NewRenderer(path, nil); err == nil {
		t.Fatal("expected error for empty template")
	}
}

func TestTemplateWatcherReloads(t *testing.T) {
	path := writeTemplate(t, "version one {name}")
	r, err := NewRenderer(path, nil)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	w := NewTemplateWatcher(r, 10*time.Millisecond, nil)
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = w.Stop() }()

	if !w.IsRunning() {
		t.Fatal("watcher should be running after Start")
	}

	// mtime granularity on some filesystems is one second
	time.Sleep(1100 * time.Millisecond)
	if err := os.WriteFile(path, []byte("version two {name}"), 0o644); err != nil {
		t.Fatalf("rewriting template: %v", err)
	}

	deadline := time.After(3 * time.Second)
	for {
		out, err := r.Render(types.RenderContext{"name": "x"})
		if err == nil && strings.HasPrefix(string(out), "version two") {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("template was not reloaded, still renders %q", out)
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func TestTemplateWatcherDoubleStart(t *testing.T) {
	path := writeTemplate(t, "x")
	r, err := NewRenderer(path, nil)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	w := NewTemplateWatcher(r, time.Millisecond, nil)
	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = w.Stop() }()

	if err := w.Start(); err == nil {
		t.Fatal("second Start must fail")
	}
}
