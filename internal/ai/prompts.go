package ai

import (
	"fmt"
	"strings"
)

// buildBlurbPrompt composes the career-summary prompt. The model is asked
// for two short paragraphs; the years figure is fixed afterwards (see
// FixYearsSentence) so minor model drift on numbers does not reach the
// document.
func buildBlurbPrompt(input BlurbInput) string {
	firstName := input.FirstName
	if firstName == "" {
		firstName = "The candidate"
	}
	profession := input.Profession
	if profession == "" {
		profession = "professional"
	}

	return fmt.Sprintf(
		"Write a professional career summary for %s, "+
			"a %s with %d years of experience, currently based in %s. "+
			"Structure this as exactly two paragraphs with a blank line between them:\n\n"+
			"Paragraph 1: Focus on their overall experience and expertise (2-3 sentences).\n\n"+
			"Paragraph 2: Highlight their key strengths and notable professional achievements (2-3 sentences).\n\n"+
			"Use UK English and write in third person. Total length should be approximately 150 words.",
		firstName, profession, input.TotalYears, input.Location)
}

// FixYearsSentence replaces the blurb's first sentence with a standardized
// one carrying the computed years figure, keeping the rest of the first
// paragraph and the paragraph structure intact. Models paraphrase numbers;
// the rendered document must not.
func FixYearsSentence(blurb, name string, years int) string {
	if blurb == "" {
		return blurb
	}

	paragraphs := strings.Split(blurb, "\n\n")
	for i := range paragraphs {
		paragraphs[i] = strings.TrimSpace(paragraphs[i])
	}

	first := paragraphs[0]
	if first != "" {
		standardized := fmt.Sprintf("%s is a seasoned professional with %d years of experience.", name, years)
		if end := strings.Index(first, "."); end != -1 {
			first = standardized + first[end+1:]
		} else {
			first = standardized
		}
		paragraphs[0] = strings.TrimSpace(first)
	}

	return strings.Join(paragraphs, "\n\n")
}
