package utils

import "testing"

func TestSanitizeBaseName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "resume.pdf", "resume"},
		{"hyphens", "john-smith-cv.docx", "john_smith_cv"},
		{"spaces", "my resume final.pdf", "my_resume_final"},
		{"path stripped", "/tmp/uploads/cv.pdf", "cv"},
		{"unsafe chars dropped", "résumé (1).pdf", "rsum_1"},
		{"empty falls back", "....", "upload"},
		{"no extension", "resume", "resume"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeBaseName(tt.input); got != tt.expected {
				t.Errorf("SanitizeBaseName(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestGetFileExtension(t *testing.T) {
	if got := GetFileExtension("CV.PDF"); got != ".pdf" {
		t.Errorf("GetFileExtension(CV.PDF) = %q, want .pdf", got)
	}
	if got := GetFileExtension("noext"); got != "" {
		t.Errorf("GetFileExtension(noext) = %q, want empty", got)
	}
}

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		size     int64
		expected string
	}{
		{512, "512 B"},
		{1024, "1.0 KB"},
		{16 * 1024 * 1024, "16.0 MB"},
	}

	for _, tt := range tests {
		if got := FormatFileSize(tt.size); got != tt.expected {
			t.Errorf("FormatFileSize(%d) = %q, want %q", tt.size, got, tt.expected)
		}
	}
}
