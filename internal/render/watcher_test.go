package render

import (
	"context"
	"os"
	"testing"
	"time"

	"cvforge/internal/observability"
	"cvforge/internal/types"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func reloadCounter(t *testing.T) (*observability.Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	counter, err := provider.Meter("test").Int64Counter("cvforge_template_reloads_total")
	if err != nil {
		t.Fatal(err)
	}
	return &observability.Metrics{TemplateReloads: counter}, reader
}

func reloadTotal(t *testing.T, reader *sdkmetric.ManualReader) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatal(err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "cvforge_template_reloads_total" {
				continue
			}
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func TestWatcherReloadPicksUpNewTemplate(t *testing.T) {
	path := writeTemplate(t, "v1 {name}")
	r, err := NewRenderer(path, nil)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	w := NewTemplateWatcher(r, time.Second, nil)
	metrics, reader := reloadCounter(t)
	w.SetMetrics(metrics)

	// The watcher was never started, so its baseline mtime is zero and
	// the file on disk counts as changed.
	if err := os.WriteFile(path, []byte("v2 {name}"), 0o644); err != nil {
		t.Fatal(err)
	}
	w.reload()

	out, err := r.Render(types.RenderContext{"name": "Jane"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got := string(out); got != "v2 Jane" {
		t.Errorf("rendered %q after reload, want %q", got, "v2 Jane")
	}
	if got := reloadTotal(t, reader); got != 1 {
		t.Errorf("reload counter = %d, want 1", got)
	}
}

func TestWatcherReloadNoOpWithoutChange(t *testing.T) {
	path := writeTemplate(t, "stable {name}")
	r, err := NewRenderer(path, nil)
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}

	w := NewTemplateWatcher(r, time.Second, nil)
	metrics, reader := reloadCounter(t)
	w.SetMetrics(metrics)

	w.reload()
	if got := reloadTotal(t, reader); got != 1 {
		t.Fatalf("first reload counter = %d, want 1", got)
	}

	// Same mtime on disk: the second call must not reload or count.
	w.reload()
	if got := reloadTotal(t, reader); got != 1 {
		t.Errorf("unchanged template reloaded: counter = %d, want 1", got)
	}
}
