package textfmt

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
)

// TableConfig points the formatter at its external reference data. Every
// field is optional; a missing or unreadable file leaves the built-in
// default table in place.
type TableConfig struct {
	// SuffixPath is a JSON object mapping company-suffix spellings to
	// themselves (e.g. {"LLC": {...}, "Ltd": {...}}); keys are the
	// canonical spellings, matching is dot-stripped and case-insensitive.
	// A "status_words" key is ignored.
	SuffixPath string
	// ShortWordPath is a JSON array of ordinary short English words that
	// should keep their case instead of being uppercased as initials.
	ShortWordPath string
	// AcronymPath is a JSON object {"allow": [...], "deny": [...]} where
	// allow lists canonical acronym spellings and deny lists surnames that
	// must never be treated as acronyms.
	AcronymPath string
}

type tableSet struct {
	// dot-stripped lowercase form -> canonical spelling
	suffixes map[string]string
	// lowercase short words that keep their original case
	shortWords map[string]struct{}
	// dot-stripped lowercase form -> canonical acronym spelling
	acronyms map[string]string
	// dot-stripped uppercase surnames, never acronyms
	surnames map[string]struct{}
}

var (
	tablesOnce   sync.Once
	tableConfig  TableConfig
	loadedTables *tableSet
)

// Configure records the reference-table paths for the lazy one-time load.
// It has no effect once any formatter has run.
func Configure(cfg TableConfig) {
	tableConfig = cfg
}

// LoadTables forces the one-time table load and reports which external
// files could not be read. Formatting works either way; failures only mean
// the built-in defaults are serving instead.
func LoadTables() error {
	var loadErr error
	tablesOnce.Do(func() {
		loadedTables, loadErr = buildTables(tableConfig)
	})
	return loadErr
}

func tables() *tableSet {
	tablesOnce.Do(func() {
		loadedTables, _ = buildTables(tableConfig)
	})
	return loadedTables
}

func buildTables(cfg TableConfig) (*tableSet, error) {
	t := &tableSet{
		suffixes:   defaultSuffixes(),
		shortWords: defaultShortWords(),
		acronyms:   defaultAcronyms(),
		surnames:   defaultSurnames(),
	}

	var errs []error
	if cfg.SuffixPath != "" {
		if err := t.loadSuffixes(cfg.SuffixPath); err != nil {
			errs = append(errs, fmt.Errorf("suffix table %s: %w", cfg.SuffixPath, err))
		}
	}
	if cfg.ShortWordPath != "" {
		if err := t.loadShortWords(cfg.ShortWordPath); err != nil {
			errs = append(errs, fmt.Errorf("short-word list %s: %w", cfg.ShortWordPath, err))
		}
	}
	if cfg.AcronymPath != "" {
		if err := t.loadAcronyms(cfg.AcronymPath); err != nil {
			errs = append(errs, fmt.Errorf("acronym list %s: %w", cfg.AcronymPath, err))
		}
	}
	return t, errors.Join(errs...)
}

func (t *tableSet) loadSuffixes(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return err
	}
	suffixes := make(map[string]string, len(entries))
	for key := range entries {
		if key == "status_words" {
			continue
		}
		clean := strings.ToLower(strings.ReplaceAll(key, ".", ""))
		// Prefer the spelling that starts uppercase when variants collide.
		if existing, ok := suffixes[clean]; ok && startsUpper(existing) && !startsUpper(key) {
			continue
		}
		suffixes[clean] = key
	}
	// Dotted variants canonicalize to the same spellings as their plain forms.
	for clean, canonical := range defaultDottedSuffixes() {
		if _, ok := suffixes[clean]; !ok {
			suffixes[clean] = canonical
		}
	}
	t.suffixes = suffixes
	return nil
}

func (t *tableSet) loadShortWords(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var words []string
	if err := json.Unmarshal(raw, &words); err != nil {
		return err
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}
	t.shortWords = set
	return nil
}

func (t *tableSet) loadAcronyms(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var lists struct {
		Allow []string `json:"allow"`
		Deny  []string `json:"deny"`
	}
	if err := json.Unmarshal(raw, &lists); err != nil {
		return err
	}
	allow := make(map[string]string, len(lists.Allow))
	for _, a := range lists.Allow {
		allow[strings.ToLower(strings.ReplaceAll(a, ".", ""))] = a
	}
	deny := make(map[string]struct{}, len(lists.Deny))
	for _, d := range lists.Deny {
		deny[strings.ToUpper(strings.ReplaceAll(d, ".", ""))] = struct{}{}
	}
	t.acronyms = allow
	t.surnames = deny
	return nil
}

// matchSuffix tries 3-word, then 2-word, then 1-word windows against the
// suffix table so multi-word suffixes win over their own components.
// It returns the canonical spelling and how many words it consumed.
func (t *tableSet) matchSuffix(words []string) (string, int) {
	for n := min(3, len(words)); n > 0; n-- {
		window := strings.ToLower(strings.Join(words[:n], " "))
		if canonical, ok := t.suffixes[window]; ok {
			return canonical, n
		}
		clean := strings.ReplaceAll(window, ".", "")
		if canonical, ok := t.suffixes[clean]; ok {
			return canonical, n
		}
	}
	return "", 0
}

// canonicalAcronym returns the canonical spelling for a word the acronym
// rules accept, or "" when the word is not an acronym. Allow-list matches
// are case-insensitive with dots ignored; dotted all-uppercase words count
// as acronyms of themselves; deny-listed surnames never do.
func (t *tableSet) canonicalAcronym(word string) string {
	clean := strings.ReplaceAll(word, ".", "")
	if clean == "" {
		return ""
	}
	if _, denied := t.surnames[strings.ToUpper(clean)]; denied {
		return ""
	}
	if canonical, ok := t.acronyms[strings.ToLower(clean)]; ok {
		return canonical
	}
	if strings.Contains(word, ".") && isUpperDotted(word) {
		return word
	}
	return ""
}

func (t *tableSet) isShortWord(word string) bool {
	_, ok := t.shortWords[strings.ToLower(word)]
	return ok
}

func isUpperDotted(word string) bool {
	sawLetter := false
	for _, r := range word {
		switch {
		case r == '.':
		case r >= 'A' && r <= 'Z':
			sawLetter = true
		default:
			return false
		}
	}
	return sawLetter
}

func startsUpper(s string) bool {
	return s != "" && s[0] >= 'A' && s[0] <= 'Z'
}

func defaultSuffixes() map[string]string {
	base := map[string]string{
		"lp":   "LP",
		"llc":  "LLC",
		"ltd":  "Ltd",
		"inc":  "Inc",
		"corp": "Corp",
		"plc":  "PLC",
		"gmbh": "GmbH",
		"ag":   "AG",
		"nv":   "NV",
		"sa":   "SA",
		"pty":  "Pty",
		"co":   "Co",
		"wii":  "W.I.I",
	}
	for clean, canonical := range defaultDottedSuffixes() {
		base[clean] = canonical
	}
	return base
}

func defaultDottedSuffixes() map[string]string {
	return map[string]string{
		"w.i.i":     "W.I.I",
		"l.l.c":     "LLC",
		"p.l.c":     "PLC",
		"s.a":       "SA",
		"n.v":       "NV",
		"a.g":       "AG",
		"g.m.b.h":   "GmbH",
		"pty ltd":   "Pty Ltd",
		"co ltd":    "Co Ltd",
		"pty. ltd.": "Pty Ltd",
	}
}

func defaultAcronyms() map[string]string {
	canonical := []string{
		"AE", "IBM", "ANZ", "BNZ", "MSS", "LLC", "LTD", "INC", "PTY",
		"GmbH", "AG", "NV", "SA", "PLC", "CO", "W.I.I", "UAE", "KSA",
	}
	m := make(map[string]string, len(canonical))
	for _, a := range canonical {
		m[strings.ToLower(strings.ReplaceAll(a, ".", ""))] = a
	}
	return m
}

func defaultSurnames() map[string]struct{} {
	names := []string{
		"SMITH", "JONES", "BROWN", "WILSON", "TAYLOR", "JOHNSON",
		"WHITE", "MARTIN", "ANDERSON", "THOMPSON", "WOOD",
	}
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[n] = struct{}{}
	}
	return m
}

func defaultShortWords() map[string]struct{} {
	words := []string{
		"the", "and", "for", "of", "in", "on", "at", "to", "by", "as",
		"or", "an", "a", "up", "out", "new", "old", "big", "top", "all",
		"one", "two", "six", "ten", "air", "sea", "sky", "sun", "oil",
		"gas", "ice", "car", "van", "bus", "key", "box", "hub", "lab",
		"bay", "cap", "dog", "cat", "fox", "ant", "bee", "oak", "elm",
		"red", "day", "way", "art", "law", "tax", "pay", "job", "fit",
		"mix", "net", "web", "app", "eco", "pro", "max", "ace", "arc",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
