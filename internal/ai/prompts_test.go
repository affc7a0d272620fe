package ai

import (
	"strings"
	"testing"
)

func TestBuildBlurbPrompt(t *testing.T) {
	prompt := buildBlurbPrompt(BlurbInput{
		FirstName:  "Jane",
		Profession: "Site Supervisor",
		Location:   "Auckland",
		TotalYears: 7,
	})

	for _, want := range []string{
		"Jane",
		"Site Supervisor",
		"7 years of experience",
		"Auckland",
		"two paragraphs",
		"UK English",
		"third person",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestBuildBlurbPromptDefaults(t *testing.T) {
	prompt := buildBlurbPrompt(BlurbInput{TotalYears: 2})

	if !strings.Contains(prompt, "The candidate") {
		t.Errorf("missing first-name fallback:\n%s", prompt)
	}
	if !strings.Contains(prompt, "a professional with") {
		t.Errorf("missing profession fallback:\n%s", prompt)
	}
}

func TestFixYearsSentence(t *testing.T) {
	tests := []struct {
		name  string
		blurb string
		years int
		want  string
	}{
		{
			name:  "empty blurb unchanged",
			blurb: "",
			years: 5,
			want:  "",
		},
		{
			name:  "first sentence replaced",
			blurb: "Jane has spent nearly a decade in construction. She leads large crews.\n\nHer strengths include planning.",
			years: 7,
			want:  "Jane is a seasoned professional with 7 years of experience. She leads large crews.\n\nHer strengths include planning.",
		},
		{
			name:  "no sentence end",
			blurb: "An experienced operator",
			years: 3,
			want:  "Jane is a seasoned professional with 3 years of experience.",
		},
		{
			name:  "single paragraph",
			blurb: "Jane built things for years. She is reliable.",
			years: 2,
			want:  "Jane is a seasoned professional with 2 years of experience. She is reliable.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FixYearsSentence(tt.blurb, "Jane", tt.years); got != tt.want {
				t.Errorf("FixYearsSentence() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFixYearsSentenceKeepsParagraphCount(t *testing.T) {
	blurb := "First paragraph here. More detail.\n\nSecond paragraph here. Even more."
	got := FixYearsSentence(blurb, "Sam", 4)
	if len(strings.Split(got, "\n\n")) != 2 {
		t.Errorf("paragraph structure not preserved: %q", got)
	}
}
