// Package textfmt normalizes raw parsed CV strings into presentation-ready
// text: person names, company names, job titles, bullet lists, and
// years-of-experience arithmetic. All functions are pure; the only I/O is a
// one-time lazy load of the reference tables in tables.go.
package textfmt

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

// linkingWords are lowercased inside company names unless they lead the
// (sub-)string being formatted or follow a hyphen.
var linkingWords = map[string]struct{}{
	"and": {}, "of": {}, "the": {}, "in": {}, "on": {}, "at": {},
	"to": {}, "for": {}, "with": {}, "by": {}, "de": {}, "van": {},
	"der": {}, "den": {}, "von": {}, "und": {}, "les": {}, "la": {}, "el": {},
}

// titleLowercase extends the linking set with articles and conjunctions
// that job titles keep lowercase.
var titleLowercase = map[string]struct{}{
	"a": {}, "an": {}, "or": {}, "as": {}, "but": {},
}

// PersonName capitalizes each space-separated token of a name; hyphenated
// tokens capitalize each hyphen-segment independently ("jean-paul" becomes
// "Jean-Paul").
func PersonName(name string) string {
	if name == "" {
		return ""
	}
	words := strings.Fields(name)
	formatted := make([]string, 0, len(words))
	for _, w := range words {
		formatted = append(formatted, capitalizeHyphenated(w))
	}
	return strings.Join(formatted, " ")
}

// CompanyName normalizes a company name: canonical suffix spellings,
// acronym preservation, spaced hyphens, lowercased linking words, and
// parenthesized sub-scopes formatted independently. Malformed parentheses
// are tolerated; an unterminated "(" is dropped with everything after it.
func CompanyName(name string) string {
	if name == "" {
		return ""
	}
	t := tables()

	var parts []string
	var current strings.Builder
	flush := func(parenthesized bool) {
		if current.Len() == 0 {
			return
		}
		formatted := formatCompanyPart(current.String(), t)
		current.Reset()
		if formatted == "" {
			return
		}
		if parenthesized {
			formatted = "(" + formatted + ")"
		}
		parts = append(parts, formatted)
	}

	inParens := false
	for _, r := range name {
		switch {
		case r == '(' && !inParens:
			flush(false)
			inParens = true
		case r == ')' && inParens:
			flush(true)
			inParens = false
		case r == ')':
			// stray closer, ignore
		default:
			current.WriteRune(r)
		}
	}
	if !inParens {
		flush(false)
	}
	return strings.Join(parts, " ")
}

func formatCompanyPart(text string, t *tableSet) string {
	// Hyphens become standalone tokens so they end up space-surrounded.
	text = strings.ReplaceAll(text, "-", " - ")
	words := strings.Fields(text)
	formatted := make([]string, 0, len(words))

	afterHyphen := false
	i := 0
	for i < len(words) {
		word := words[i]
		if word == "-" {
			formatted = append(formatted, word)
			afterHyphen = true
			i++
			continue
		}

		if canonical, consumed := t.matchSuffix(words[i:]); consumed > 0 {
			formatted = append(formatted, canonical)
			i += consumed
			afterHyphen = false
			continue
		}

		lower := strings.ToLower(word)
		clean := strings.ReplaceAll(lower, ".", "")
		switch {
		case t.canonicalAcronym(word) != "":
			formatted = append(formatted, t.canonicalAcronym(word))
		case !afterHyphen && len(formatted) > 0 && isLinkingWord(lower):
			formatted = append(formatted, lower)
		case isShortAlpha(clean):
			// Short dictionary words keep their case (capitalized when
			// leading); anything else short is treated as initials.
			switch {
			case !t.isShortWord(lower):
				formatted = append(formatted, strings.ToUpper(word))
			case len(formatted) == 0 || afterHyphen:
				formatted = append(formatted, capitalize(word))
			default:
				formatted = append(formatted, word)
			}
		default:
			formatted = append(formatted, capitalize(word))
		}
		afterHyphen = false
		i++
	}
	return strings.Join(formatted, " ")
}

// Title capitalizes a job title, keeping articles and linking words
// lowercase after the first word. Hyphenated words capitalize each
// segment ("co-ordinator" becomes "Co-Ordinator").
func Title(title string) string {
	if title == "" {
		return ""
	}
	words := strings.Fields(title)
	formatted := make([]string, 0, len(words))
	for i, w := range words {
		lower := strings.ToLower(w)
		if i > 0 && isTitleLowercase(lower) {
			formatted = append(formatted, lower)
			continue
		}
		formatted = append(formatted, capitalizeHyphenated(w))
	}
	return strings.Join(formatted, " ")
}

// BulletList formats each item as a company name, deduplicates
// case-insensitively, sorts, and joins as a bullet-pointed block.
// Empty input yields the literal "None".
func BulletList(items []string) string {
	if len(items) == 0 {
		return "None"
	}
	seen := make(map[string]struct{}, len(items))
	formatted := make([]string, 0, len(items))
	for _, item := range items {
		f := CompanyName(item)
		if f == "" {
			continue
		}
		key := strings.ToLower(f)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		formatted = append(formatted, f)
	}
	if len(formatted) == 0 {
		return "None"
	}
	sort.Strings(formatted)
	return "• " + strings.Join(formatted, "\n• ")
}

// YearsSentence renders a years-of-experience figure as a sentence with
// correct pluralization.
func YearsSentence(years int, place string) string {
	if years == 0 {
		return fmt.Sprintf("No work experience in %s", place)
	}
	word := "years"
	if years == 1 {
		word = "year"
	}
	return fmt.Sprintf("%d %s work experience in %s", years, word, place)
}

// RoundUpMonthsToYears converts months to years, rounding up: 11 months is
// 1 year, 13 months is 2 years.
func RoundUpMonthsToYears(months int) int {
	if months <= 0 {
		return 0
	}
	return (months + 11) / 12
}

func isLinkingWord(lower string) bool {
	_, ok := linkingWords[lower]
	return ok
}

func isTitleLowercase(lower string) bool {
	if _, ok := linkingWords[lower]; ok {
		return true
	}
	_, ok := titleLowercase[lower]
	return ok
}

func isShortAlpha(clean string) bool {
	if clean == "" || len(clean) > 3 {
		return false
	}
	for _, r := range clean {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

func capitalize(word string) string {
	runes := []rune(strings.ToLower(word))
	if len(runes) == 0 {
		return ""
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func capitalizeHyphenated(word string) string {
	if !strings.Contains(word, "-") {
		return capitalize(word)
	}
	segments := strings.Split(word, "-")
	for i, s := range segments {
		segments[i] = capitalize(s)
	}
	return strings.Join(segments, "-")
}
