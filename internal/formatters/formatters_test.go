package formatters

import (
	"strings"
	"testing"

	"cvforge/internal/pipeline"
	"cvforge/internal/types"
)

func successResult() *pipeline.Result {
	return &pipeline.Result{
		Status:       pipeline.StatusSuccess,
		Key:          "jane_doe_cv",
		RemoteURL:    "memory://uploads/jane_doe_cv.pdf",
		DocumentPath: "outputs/jane_doe_cv_CV.txt",
		Context: types.RenderContext{
			"name":     "Jane Doe",
			"position": "Software Engineer",
		},
	}
}

func TestJSONFormatter(t *testing.T) {
	registry := NewFormatterRegistry()

	out, err := registry.Format(successResult(), "json")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"status": "success"`) {
		t.Errorf("json output missing status: %s", out)
	}
}

func TestTextFormatterSuccess(t *testing.T) {
	registry := NewFormatterRegistry()

	out, err := registry.Format(successResult(), "text")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Status: success", "Key: jane_doe_cv", "Jane Doe"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
}

func TestTextFormatterRecoverable(t *testing.T) {
	registry := NewFormatterRegistry()

	result := &pipeline.Result{
		Status:      pipeline.StatusRecoverable,
		Stage:       pipeline.StageParse,
		Key:         "cv",
		UserMessage: "Complex file structure found, please save this resume as a PDF then upload again, this should solve the problem.",
	}
	out, err := registry.Format(result, "text")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Failed stage: parse") || !strings.Contains(out, "PDF") {
		t.Errorf("text output = %s", out)
	}
}

func TestTextFormatterStageLedger(t *testing.T) {
	registry := NewFormatterRegistry()

	result := &pipeline.Result{
		Status: pipeline.StatusFatal,
		Stage:  pipeline.StageParse,
		Key:    "cv",
		Stages: []pipeline.StageOutcome{
			{Stage: pipeline.StageStore, Status: pipeline.StageSucceeded},
			{Stage: pipeline.StageParse, Status: pipeline.StageFailed},
			{Stage: pipeline.StageBlurb, Status: pipeline.StagePending},
		},
		Diagnostic: "parsing service rejected the file",
	}
	out, err := registry.Format(result, "text")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "=== STAGES ===") {
		t.Fatalf("text output missing stages section:\n%s", out)
	}
	for _, want := range []string{"store", "succeeded", "parse", "failed", "blurb", "pending"} {
		if !strings.Contains(out, want) {
			t.Errorf("stages section missing %q:\n%s", want, out)
		}
	}
}

func TestMarkdownFormatter(t *testing.T) {
	registry := NewFormatterRegistry()

	result := successResult()
	result.Stages = []pipeline.StageOutcome{
		{Stage: pipeline.StageStore, Status: pipeline.StageSucceeded},
		{Stage: pipeline.StageRender, Status: pipeline.StageSucceeded},
	}
	out, err := registry.Format(result, "markdown")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "# CV Processing Result") || !strings.Contains(out, "**Status:** success") {
		t.Errorf("markdown output = %s", out)
	}
	if !strings.Contains(out, "## Stages") || !strings.Contains(out, "- **store:** succeeded") {
		t.Errorf("markdown output missing stage ledger:\n%s", out)
	}
}

func TestUnknownFormat(t *testing.T) {
	registry := NewFormatterRegistry()

	if _, err := registry.Format(successResult(), "yaml"); err == nil {
		t.Error("expected an error for an unsupported format")
	}
}
