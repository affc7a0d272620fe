// Package enrich derives display values from a parsed CV record: the
// years-of-experience aggregation and the flat placeholder context handed
// to the document renderer.
package enrich

import (
	"strings"

	"cvforge/internal/errors"
	"cvforge/internal/location"
	"cvforge/internal/textfmt"
	"cvforge/internal/types"
)

// Years is the per-bucket experience breakdown. ForeignYears and
// TotalYears carry the override described on AggregateYears.
type Years struct {
	HomeMonths    int
	ForeignMonths int
	HomeYears     int
	ForeignYears  int
	TotalYears    int
}

// AggregateYears sums experience durations into home and foreign buckets
// and rounds each bucket up to whole years. Because independent rounding
// can exceed the rounded combined total, the foreign figure is recomputed
// as total minus home, then pushed back up to its independently-rounded
// value if that subtraction undershot it; the total follows. The displayed
// total therefore never understates either bucket.
//
// Invalid duration values count as zero with a warning; they never fail
// the aggregation.
func AggregateYears(record *types.CVRecord, logger *errors.Logger) Years {
	var y Years
	for _, exp := range record.Experiences() {
		months := exp.DurationInMonths.Int()
		if exp.DurationInMonths.Invalid && logger != nil {
			logger.Warn("unusable experience duration, counting as zero",
				"company", exp.Company,
				"raw_value", exp.DurationInMonths.Raw)
		}
		if exp.IsNZ {
			y.HomeMonths += months
		} else {
			y.ForeignMonths += months
		}
	}

	y.HomeYears = textfmt.RoundUpMonthsToYears(y.HomeMonths)
	foreignInitial := textfmt.RoundUpMonthsToYears(y.ForeignMonths)
	y.TotalYears = textfmt.RoundUpMonthsToYears(y.HomeMonths + y.ForeignMonths)

	y.ForeignYears = y.TotalYears - y.HomeYears
	if y.ForeignYears < foreignInitial {
		y.ForeignYears = foreignInitial
		y.TotalYears = y.HomeYears + y.ForeignYears
	}
	return y
}

// ContextBuilder turns an enriched CVRecord into the renderer's
// placeholder map.
type ContextBuilder struct {
	classifier   *location.Classifier
	logger       *errors.Logger
	homeLabel    string
	foreignLabel string
}

// NewContextBuilder wires a builder. Empty labels fall back to the
// defaults used in rendered documents.
func NewContextBuilder(classifier *location.Classifier, logger *errors.Logger, homeLabel, foreignLabel string) *ContextBuilder {
	if homeLabel == "" {
		homeLabel = "New Zealand"
	}
	if foreignLabel == "" {
		foreignLabel = "international markets"
	}
	return &ContextBuilder{
		classifier:   classifier,
		logger:       logger,
		homeLabel:    homeLabel,
		foreignLabel: foreignLabel,
	}
}

// Build computes the full placeholder context from a record whose IsNZ
// flags are already set, and persists the derived total years back onto
// the record's basics section.
func (b *ContextBuilder) Build(record *types.CVRecord) types.RenderContext {
	basics := record.Data.Profile.Basics
	ctx := types.RenderContext{}

	ctx["name"] = textfmt.PersonName(strings.TrimSpace(basics.FirstName + " " + basics.LastName))
	ctx["position"] = textfmt.Title(basics.Profession)
	ctx["blurb"] = record.Data.Profile.Blurb
	ctx["location"] = b.cityFromAddress(basics.Address)

	var homeEmployers, foreignEmployers []string
	var homePositions, foreignPositions []string
	for _, exp := range record.Experiences() {
		company := textfmt.CompanyName(exp.Company)
		if exp.IsNZ {
			homeEmployers = appendNonEmpty(homeEmployers, company)
			homePositions = appendNonEmpty(homePositions, exp.Title)
		} else {
			foreignEmployers = appendNonEmpty(foreignEmployers, company)
			foreignPositions = appendNonEmpty(foreignPositions, exp.Title)
		}
	}

	years := AggregateYears(record, b.logger)
	record.SetTotalExperienceYears(years.TotalYears)

	ctx["nzyears"] = textfmt.YearsSentence(years.HomeYears, b.homeLabel)
	ctx["internationalyears"] = textfmt.YearsSentence(years.ForeignYears, b.foreignLabel)
	ctx["nzemployers"] = textfmt.BulletList(homeEmployers)
	ctx["internationalemployers"] = textfmt.BulletList(foreignEmployers)
	ctx["nzpositions"] = textfmt.BulletList(homePositions)
	ctx["internationalpositions"] = textfmt.BulletList(foreignPositions)
	ctx["qualifications"] = formatQualifications(record.Data.Profile.Trainings)

	return ctx
}

func (b *ContextBuilder) cityFromAddress(address string) string {
	if b.classifier == nil {
		return address
	}
	return b.classifier.CityFromAddress(address)
}

func appendNonEmpty(list []string, s string) []string {
	if strings.TrimSpace(s) == "" {
		return list
	}
	return append(list, s)
}

// formatQualifications renders the trainings section as blank-line
// separated entries of description, issuer, and completion year.
func formatQualifications(trainings []types.Training) string {
	var entries []string
	for _, t := range trainings {
		var lines []string
		if t.Description != "" {
			lines = append(lines, t.Description)
		}
		if t.IssuingOrganization != "" {
			lines = append(lines, "Issued by "+t.IssuingOrganization)
		}
		if t.Year != "" {
			lines = append(lines, "Completed "+t.Year)
		}
		if len(lines) > 0 {
			entries = append(entries, strings.Join(lines, "\n"))
		}
	}
	if len(entries) == 0 {
		return "No qualifications listed in CV"
	}
	return strings.Join(entries, "\n\n")
}
