package types

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestExperienceMarshalEmitsZeroDuration(t *testing.T) {
	exp := Experience{Company: "Acme", Title: "Engineer"}

	data, err := json.Marshal(exp)
	if err != nil {
		t.Fatal(err)
	}
	// Months marshals through its own method, so a zero duration must
	// still appear as an explicit 0.
	if !strings.Contains(string(data), `"duration_in_months":0`) {
		t.Errorf("zero duration missing from %s", data)
	}
}

func TestMonthsUnmarshalCoercion(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		invalid bool
	}{
		{"integer", `18`, 18, false},
		{"numeric string", `"18"`, 18, false},
		{"float truncates", `18.7`, 18, false},
		{"null", `null`, 0, false},
		{"garbage string", `"about a year"`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m Months
			if err := m.UnmarshalJSON([]byte(tt.input)); err != nil {
				t.Fatalf("decoding must never fail, got %v", err)
			}
			if m.Int() != tt.want {
				t.Errorf("value = %d, want %d", m.Int(), tt.want)
			}
			if m.Invalid != tt.invalid {
				t.Errorf("invalid = %v, want %v", m.Invalid, tt.invalid)
			}
		})
	}
}
