package enrich

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cvforge/internal/location"
	"cvforge/internal/types"
)

func experienceMonths(months int, home bool) types.Experience {
	return types.Experience{
		Company:          "Test Co",
		DurationInMonths: types.Months{Value: months},
		IsNZ:             home,
	}
}

func recordWith(experiences ...types.Experience) *types.CVRecord {
	r := &types.CVRecord{}
	r.Data.Profile.ProfessionalExperiences = experiences
	return r
}

func TestAggregateYears(t *testing.T) {
	tests := []struct {
		name        string
		experiences []types.Experience
		wantHome    int
		wantForeign int
		wantTotal   int
	}{
		{
			name:        "no experience",
			experiences: nil,
			wantHome:    0, wantForeign: 0, wantTotal: 0,
		},
		{
			name: "independent rounding beats combined rounding",
			// 6mo home + 6mo foreign: each bucket rounds to 1 year but
			// the 12 combined months round to only 1, so the override
			// lifts the total to 2.
			experiences: []types.Experience{
				experienceMonths(6, true),
				experienceMonths(6, false),
			},
			wantHome: 1, wantForeign: 1, wantTotal: 2,
		},
		{
			name: "override lifts foreign bucket",
			// 6mo home + 18mo foreign: total rounds to 2, leaving
			// foreign = 2-1 = 1, below its own rounded 2. Foreign is
			// restored and total becomes 3.
			experiences: []types.Experience{
				experienceMonths(6, true),
				experienceMonths(18, false),
			},
			wantHome: 1, wantForeign: 2, wantTotal: 3,
		},
		{
			name: "exact years need no override",
			experiences: []types.Experience{
				experienceMonths(24, true),
				experienceMonths(12, false),
			},
			wantHome: 2, wantForeign: 1, wantTotal: 3,
		},
		{
			name: "home only",
			experiences: []types.Experience{
				experienceMonths(30, true),
			},
			wantHome: 3, wantForeign: 0, wantTotal: 3,
		},
		{
			name: "invalid duration counts as zero",
			experiences: []types.Experience{
				{Company: "Garbage Co", DurationInMonths: types.Months{Raw: "about a year", Invalid: true}, IsNZ: true},
				experienceMonths(12, false),
			},
			wantHome: 0, wantForeign: 1, wantTotal: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AggregateYears(recordWith(tt.experiences...), nil)
			if got.HomeYears != tt.wantHome {
				t.Errorf("HomeYears = %d, want %d", got.HomeYears, tt.wantHome)
			}
			if got.ForeignYears != tt.wantForeign {
				t.Errorf("ForeignYears = %d, want %d", got.ForeignYears, tt.wantForeign)
			}
			if got.TotalYears != tt.wantTotal {
				t.Errorf("TotalYears = %d, want %d", got.TotalYears, tt.wantTotal)
			}
		})
	}
}

func testBuilder(t *testing.T) *ContextBuilder {
	t.Helper()
	path := filepath.Join(t.TempDir(), "locations.json")
	if err := os.WriteFile(path, []byte(`{"locations": ["auckland", "wellington"]}`), 0o644); err != nil {
		t.Fatalf("writing gazetteer: %v", err)
	}
	return NewContextBuilder(location.NewClassifier(path, nil), nil, "", "")
}

func TestBuildContext(t *testing.T) {
	b := testBuilder(t)

	record := &types.CVRecord{}
	record.Data.Profile.Basics = types.Basics{
		FirstName:  "jane",
		LastName:   "doe",
		Profession: "site supervisor",
		Address:    "12 Queen Street, Auckland 1010",
	}
	record.Data.Profile.Blurb = "Jane is a seasoned professional."
	record.Data.Profile.ProfessionalExperiences = []types.Experience{
		{Company: "kiwi builders ltd", Title: "Foreman", DurationInMonths: types.Months{Value: 6}, IsNZ: true},
		{Company: "dubai towers llc", Title: "Site Engineer", DurationInMonths: types.Months{Value: 18}, IsNZ: false},
	}
	record.Data.Profile.Trainings = []types.Training{
		{Description: "First Aid Certificate", IssuingOrganization: "Red Cross", Year: "2021"},
		{Description: "Working at Heights"},
	}

	ctx := b.Build(record)

	checks := map[string]string{
		"name":                   "Jane Doe",
		"position":               "Site Supervisor",
		"blurb":                  "Jane is a seasoned professional.",
		"location":               "Auckland",
		"nzyears":                "1 year work experience in New Zealand",
		"internationalyears":     "2 years work experience in international markets",
		"nzemployers":            "• Kiwi Builders Ltd",
		"internationalemployers": "• Dubai Towers LLC",
	}
	for key, want := range checks {
		if got := ctx[key]; got != want {
			t.Errorf("ctx[%q] = %q, want %q", key, got, want)
		}
	}

	if record.Data.Profile.Basics.TotalExperienceYears != 3 {
		t.Errorf("TotalExperienceYears = %d, want 3",
			record.Data.Profile.Basics.TotalExperienceYears)
	}

	quals := ctx["qualifications"]
	wantQuals := "First Aid Certificate\nIssued by Red Cross\nCompleted 2021\n\nWorking at Heights"
	if quals != wantQuals {
		t.Errorf("ctx[qualifications] = %q, want %q", quals, wantQuals)
	}
}

func TestBuildContextDefaults(t *testing.T) {
	b := testBuilder(t)
	ctx := b.Build(&types.CVRecord{})

	if ctx["qualifications"] != "No qualifications listed in CV" {
		t.Errorf("qualifications default = %q", ctx["qualifications"])
	}
	if ctx["nzemployers"] != "None" {
		t.Errorf("empty employers = %q, want None", ctx["nzemployers"])
	}
	if ctx["nzyears"] != "No work experience in New Zealand" {
		t.Errorf("zero-year sentence = %q", ctx["nzyears"])
	}
	if !strings.Contains(ctx["internationalyears"], "No work experience") {
		t.Errorf("internationalyears = %q", ctx["internationalyears"])
	}
}
