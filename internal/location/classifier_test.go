package location

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"cvforge/internal/errors"
	"cvforge/internal/types"
)

func writeGazetteer(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "locations.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing gazetteer: %v", err)
	}
	return path
}

func testClassifier(t *testing.T) *Classifier {
	t.Helper()
	path := writeGazetteer(t, `{"locations": ["auckland", "wellington", "palmerston north"]}`)
	return NewClassifier(path, errors.NewLogger(slog.LevelError))
}

func TestIsHome(t *testing.T) {
	c := testClassifier(t)

	tests := []struct {
		name     string
		location string
		want     bool
	}{
		{"home city with country", "Auckland, New Zealand", true},
		{"home city alone", "wellington", true},
		{"multi-word place", "Palmerston North", true},
		{"foreign city", "Sydney, Australia", false},
		{"empty", "", false},
		{"substring is not a word match", "Aucklandia", false},
		{"punctuation normalized", "Auckland. NZ.", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.IsHome(tt.location); got != tt.want {
				t.Errorf("IsHome(%q) = %v, want %v", tt.location, got, tt.want)
			}
		})
	}
}

func TestIsHomeDictGazetteer(t *testing.T) {
	// Object-keyed gazetteer files are accepted too.
	path := writeGazetteer(t, `{"auckland": {"region": "auckland"}, "dunedin": {"region": "otago"}}`)
	c := NewClassifier(path, errors.NewLogger(slog.LevelError))

	if !c.IsHome("Dunedin") {
		t.Error("IsHome(Dunedin) = false for object-keyed gazetteer, want true")
	}
	if c.IsHome("Melbourne") {
		t.Error("IsHome(Melbourne) = true, want false")
	}
}

func TestClassifierDegradesOnLoadFailure(t *testing.T) {
	c := NewClassifier(filepath.Join(t.TempDir(), "missing.json"), errors.NewLogger(slog.LevelError))

	if c.IsHome("Auckland") {
		t.Error("degraded classifier must answer foreign for everything")
	}
}

func TestClassifierDegradesOnMalformedFile(t *testing.T) {
	path := writeGazetteer(t, `not json at all`)
	c := NewClassifier(path, errors.NewLogger(slog.LevelError))

	if c.IsHome("Auckland") {
		t.Error("malformed gazetteer must degrade, not match")
	}
}

func TestCityFromAddress(t *testing.T) {
	c := testClassifier(t)

	tests := []struct {
		name    string
		address string
		want    string
	}{
		{"recognized city extracted", "12 Queen Street, Auckland 1010", "Auckland"},
		{"multi-word city", "5 Main St, Palmerston North", "Palmerston North"},
		{"unrecognized passes through", "42 George St, Sydney NSW", "42 George St, Sydney NSW"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.CityFromAddress(tt.address); got != tt.want {
				t.Errorf("CityFromAddress(%q) = %q, want %q", tt.address, got, tt.want)
			}
		})
	}
}

func TestEnrichExperiences(t *testing.T) {
	c := testClassifier(t)

	record := &types.CVRecord{}
	record.Data.Profile.ProfessionalExperiences = []types.Experience{
		{Company: "Acme Ltd", Location: "Auckland, New Zealand"},
		{Company: "Foreign Corp", Location: "Dubai, UAE"},
		{Company: "Wellington Plumbing", Location: ""},
		{Company: "Berlin Bau GmbH", Location: "  "},
	}

	c.EnrichExperiences(record)

	got := record.Experiences()
	want := []bool{true, false, true, false}
	for i, exp := range got {
		if exp.IsNZ != want[i] {
			t.Errorf("experience %d (%s): IsNZ = %v, want %v", i, exp.Company, exp.IsNZ, want[i])
		}
	}
}

func TestEnrichExperiencesNilRecord(t *testing.T) {
	c := testClassifier(t)
	// Must not panic.
	c.EnrichExperiences(nil)
}
