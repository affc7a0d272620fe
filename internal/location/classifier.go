// Package location classifies free-text locations as home-country or
// foreign against a gazetteer of place names.
package location

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"cvforge/internal/errors"
	"cvforge/internal/textfmt"
	"cvforge/internal/types"
)

// Classifier answers "is this location in the home country" by whole-word
// matching against a pre-loaded gazetteer. The match set is built once at
// construction and never mutated.
type Classifier struct {
	places   map[string]*regexp.Regexp
	degraded bool
	logger   *errors.Logger
}

// NewClassifier loads the gazetteer from path. The file is either a JSON
// object whose keys are place names or a {"locations": [...]} wrapper. A
// load failure does not fail construction: the classifier degrades to
// answering "foreign" for everything and logs a warning.
func NewClassifier(path string, logger *errors.Logger) *Classifier {
	c := &Classifier{logger: logger}

	names, err := loadGazetteer(path)
	if err != nil {
		c.degraded = true
		if logger != nil {
			logger.Warn("gazetteer unavailable, classifying all locations as foreign",
				"path", path,
				"error", err.Error())
		}
		return c
	}

	c.places = make(map[string]*regexp.Regexp, len(names))
	for _, name := range names {
		lower := strings.ToLower(strings.TrimSpace(name))
		if lower == "" {
			continue
		}
		c.places[lower] = regexp.MustCompile(`\b` + regexp.QuoteMeta(lower) + `\b`)
	}
	return c
}

func loadGazetteer(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var asObject map[string]json.RawMessage
	if err := json.Unmarshal(raw, &asObject); err == nil {
		if wrapped, ok := asObject["locations"]; ok {
			var names []string
			if err := json.Unmarshal(wrapped, &names); err == nil {
				return names, nil
			}
		}
		names := make([]string, 0, len(asObject))
		for name := range asObject {
			names = append(names, name)
		}
		return names, nil
	}

	var asList []string
	if err := json.Unmarshal(raw, &asList); err == nil {
		return asList, nil
	}
	return nil, fmt.Errorf("gazetteer %s: not a JSON object or string array", path)
}

// IsHome reports whether the location text names a home-country place.
// Blank input and unknown places are foreign; a degraded classifier
// answers foreign for everything.
func (c *Classifier) IsHome(location string) bool {
	if c.degraded || location == "" {
		return false
	}
	cleaned := clean(location)
	if cleaned == "" {
		return false
	}
	for _, pattern := range c.places {
		if pattern.MatchString(cleaned) {
			return true
		}
	}
	return false
}

// MatchedPlace returns the gazetteer entry found in the text, or "" when
// nothing matches.
func (c *Classifier) MatchedPlace(location string) string {
	if c.degraded || location == "" {
		return ""
	}
	cleaned := clean(location)
	for place, pattern := range c.places {
		if pattern.MatchString(cleaned) {
			return place
		}
	}
	return ""
}

// CityFromAddress extracts a recognized home-country place name from a
// full address, title-cased for display. Unrecognized addresses come back
// unchanged.
func (c *Classifier) CityFromAddress(address string) string {
	if address == "" {
		return ""
	}
	if place := c.MatchedPlace(address); place != "" {
		return textfmt.PersonName(place)
	}
	return address
}

// EnrichExperiences sets the IsNZ flag on every experience in the record,
// falling back to the company name when the location field is blank. The
// record is modified in place; malformed records pass through untouched.
func (c *Classifier) EnrichExperiences(record *types.CVRecord) {
	if record == nil {
		return
	}
	experiences := record.Experiences()
	for i := range experiences {
		loc := strings.TrimSpace(experiences[i].Location)
		if loc == "" {
			loc = strings.TrimSpace(experiences[i].Company)
		}
		experiences[i].IsNZ = c.IsHome(loc)
	}
}

func clean(location string) string {
	replaced := strings.NewReplacer(",", " ", ".", " ").Replace(strings.ToLower(location))
	return strings.TrimSpace(replaced)
}
