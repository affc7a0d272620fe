package types

import (
	"encoding/json"
	"strconv"
	"strings"
)

// CVRecord is the parsed-resume document as it travels through the pipeline.
// The JSON shape mirrors what the parsing API returns and what downstream
// consumers read back from disk, so field names here are load-bearing.
type CVRecord struct {
	Data Data `json:"data"`
}

// Data wraps the profile section of a parse response.
type Data struct {
	Profile Profile `json:"profile"`
}

// Profile holds the candidate sections. Blurb is absent until the
// text-generation stage fills it in.
type Profile struct {
	Basics                  Basics       `json:"basics"`
	ProfessionalExperiences []Experience `json:"professional_experiences"`
	Trainings               []Training   `json:"trainings_and_certifications,omitempty"`
	Blurb                   string       `json:"blurb,omitempty"`
}

// Basics carries the candidate identity fields. TotalExperienceYears is
// derived, never supplied by the parser.
type Basics struct {
	FirstName            string `json:"first_name"`
	LastName             string `json:"last_name"`
	Profession           string `json:"profession,omitempty"`
	Address              string `json:"address,omitempty"`
	TotalExperienceYears int    `json:"total_experience_in_years,omitempty"`
}

// Experience is one employment entry. IsNZ is computed by the location
// enrichment stage; a missing flag means foreign.
type Experience struct {
	Company          string `json:"company,omitempty"`
	Title            string `json:"title,omitempty"`
	StartDate        string `json:"start_date,omitempty"`
	EndDate          string `json:"end_date,omitempty"`
	DurationInMonths Months `json:"duration_in_months"`
	Location         string `json:"location,omitempty"`
	Description      string `json:"description,omitempty"`
	IsNZ             bool   `json:"is_nz"`
}

// Training is one entry of trainings_and_certifications; every field is
// optional in parser output.
type Training struct {
	Description         string `json:"description,omitempty"`
	IssuingOrganization string `json:"issuing_organization,omitempty"`
	Year                string `json:"year,omitempty"`
}

// Months decodes the duration_in_months field, which parser output delivers
// as an integer, a numeric string, or garbage. Anything unusable decodes to
// zero; the caller decides whether to log it. Decoding never fails the
// surrounding record.
type Months struct {
	Value int
	// Raw keeps the original token when it could not be coerced, so the
	// warning log can show what the parser actually sent.
	Raw     string
	Invalid bool
}

func (m Months) Int() int {
	return m.Value
}

func (m Months) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Value)
}

func (m *Months) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		*m = Months{}
		return nil
	}

	if n, err := strconv.Atoi(s); err == nil {
		*m = Months{Value: n}
		return nil
	}

	// Numeric string form, e.g. "18".
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err == nil {
			if n, convErr := strconv.Atoi(strings.TrimSpace(str)); convErr == nil {
				*m = Months{Value: n}
				return nil
			}
			*m = Months{Raw: str, Invalid: true}
			return nil
		}
	}

	// Floats from sloppy parsers: truncate.
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		*m = Months{Value: int(f)}
		return nil
	}

	*m = Months{Raw: s, Invalid: true}
	return nil
}

// Experiences returns the experience slice, tolerating a zero record.
func (r *CVRecord) Experiences() []Experience {
	if r == nil {
		return nil
	}
	return r.Data.Profile.ProfessionalExperiences
}

// SetTotalExperienceYears persists the derived total onto basics.
func (r *CVRecord) SetTotalExperienceYears(years int) {
	r.Data.Profile.Basics.TotalExperienceYears = years
}

// RenderContext is the flat placeholder map handed to the document renderer.
// It is derived from a CVRecord and never persisted.
type RenderContext map[string]string
