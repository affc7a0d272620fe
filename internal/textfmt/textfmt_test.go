package textfmt

import (
	"strings"
	"testing"
	"unicode"
)

func TestPersonName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"simple", "john doe", "John Doe"},
		{"already capitalized", "John Doe", "John Doe"},
		{"all caps", "JOHN DOE", "John Doe"},
		{"hyphenated", "jean-paul sartre", "Jean-Paul Sartre"},
		{"extra whitespace", "  mary   jane  ", "Mary Jane"},
		{"single name", "madonna", "Madonna"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PersonName(tt.input); got != tt.want {
				t.Errorf("PersonName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPersonNameTokensStartUppercase(t *testing.T) {
	inputs := []string{"john doe", "anna-marie van den berg", "LI WEI"}
	for _, input := range inputs {
		got := PersonName(input)
		if len(strings.Fields(got)) != len(strings.Fields(input)) {
			t.Errorf("PersonName(%q) changed token count: %q", input, got)
		}
		for _, token := range strings.Fields(got) {
			for _, segment := range strings.Split(token, "-") {
				first := []rune(segment)[0]
				if !unicode.IsUpper(first) {
					t.Errorf("PersonName(%q): segment %q does not start uppercase", input, segment)
				}
			}
		}
	}
}

func TestCompanyName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"suffix canonicalization", "stellar recruitment lp", "Stellar Recruitment LP"},
		{"hyphen spacing", "tech-corp solutions", "Tech - Corp Solutions"},
		{"hyphen from caps", "TECH-CORP SOLUTIONS", "Tech - Corp Solutions"},
		{"known acronym preserved", "IBM", "IBM"},
		{"acronym case restored", "ibm", "IBM"},
		{"acronym prefix", "ANZ Bank", "ANZ Bank"},
		{"acronym in caps sentence", "BNZ BANKING GROUP", "BNZ Banking Group"},
		{"linking word lowered", "ADVANCE ENGINEERING AND MAINTENANCE", "Advance Engineering and Maintenance"},
		{"linking word leads", "the warehouse group", "The Warehouse Group"},
		{"dotted suffix", "Advance Engineering AND Maintenance Company W.I.I", "Advance Engineering and Maintenance Company W.I.I"},
		{"parenthesized subscope", "MSS -mechanical Support System (stellar Recruitment Lp)", "MSS - Mechanical Support System (Stellar Recruitment LP)"},
		{"spaces inside parens stripped", "acme ( stellar recruitment )", "Acme (Stellar Recruitment)"},
		{"unterminated paren dropped", "acme holdings (stellar recruitment", "Acme Holdings"},
		{"stray closing paren ignored", ") acme holdings", "Acme Holdings"},
		{"surname not acronym", "WILSON CONSTRUCTION", "Wilson Construction"},
		{"short unknown token uppercased", "jvk services", "JVK Services"},
		{"ltd canonical", "acme trading ltd", "Acme Trading Ltd"},
		{"gmbh canonical", "siemens gmbh", "Siemens GmbH"},
		{"pty ltd multiword suffix", "outback mining pty ltd", "Outback Mining Pty Ltd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CompanyName(tt.input); got != tt.want {
				t.Errorf("CompanyName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCompanyNameSpacingInvariants(t *testing.T) {
	inputs := []string{
		"MSS -mechanical Support System (stellar Recruitment Lp)",
		"acme ( padded parens ) trailing",
		"a  lot   of    spaces ltd",
		"tech-corp (multi - hyphen) group",
	}
	for _, input := range inputs {
		got := CompanyName(input)
		if strings.Contains(got, "  ") {
			t.Errorf("CompanyName(%q) contains doubled spaces: %q", input, got)
		}
		if strings.Contains(got, " )") {
			t.Errorf("CompanyName(%q) contains space before closing paren: %q", input, got)
		}
	}
}

func TestTitle(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"simple", "site supervisor", "Site Supervisor"},
		{"article lowered", "head of operations", "Head of Operations"},
		{"leading article capitalized", "the big boss", "The Big Boss"},
		{"conjunction lowered", "fitter and turner", "Fitter and Turner"},
		{"hyphenated segments", "co-ordinator", "Co-Ordinator"},
		{"mixed case input", "SENIOR Project MANAGER", "Senior Project Manager"},
		{"or lowered", "welder or fabricator", "Welder or Fabricator"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Title(tt.input); got != tt.want {
				t.Errorf("Title(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestBulletList(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  string
	}{
		{"empty", nil, "None"},
		{"empty slice", []string{}, "None"},
		{"single item", []string{"acme ltd"}, "• Acme Ltd"},
		{"sorted output", []string{"zenith corp", "acme ltd"}, "• Acme Ltd\n• Zenith Corp"},
		{"case-insensitive dedupe", []string{"abc corp", "ABC Corp"}, "• ABC Corp"},
		{"blank items dropped", []string{"", "acme ltd"}, "• Acme Ltd"},
		{"all blank", []string{"", ""}, "None"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BulletList(tt.input); got != tt.want {
				t.Errorf("BulletList(%v) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestYearsSentence(t *testing.T) {
	tests := []struct {
		name  string
		years int
		place string
		want  string
	}{
		{"zero years", 0, "New Zealand", "No work experience in New Zealand"},
		{"one year", 1, "New Zealand", "1 year work experience in New Zealand"},
		{"many years", 5, "overseas", "5 years work experience in overseas"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := YearsSentence(tt.years, tt.place); got != tt.want {
				t.Errorf("YearsSentence(%d, %q) = %q, want %q", tt.years, tt.place, got, tt.want)
			}
		})
	}
}

func TestRoundUpMonthsToYears(t *testing.T) {
	tests := []struct {
		months int
		want   int
	}{
		{0, 0},
		{1, 1},
		{11, 1},
		{12, 1},
		{13, 2},
		{24, 2},
		{25, 3},
		{-3, 0},
	}

	for _, tt := range tests {
		if got := RoundUpMonthsToYears(tt.months); got != tt.want {
			t.Errorf("RoundUpMonthsToYears(%d) = %d, want %d", tt.months, got, tt.want)
		}
	}
}

func BenchmarkCompanyName(b *testing.B) {
	for b.Loop() {
		CompanyName("MSS -mechanical Support System (stellar Recruitment Lp)")
	}
}
