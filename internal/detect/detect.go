// Package detect recognizes a citation being typed at the caret.
//
// Detect runs on every text change, not only on "[" keystrokes, because the
// window it inspects slides with the caret.
package detect

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// strictRegex is the citation grammar: an unclosed bracket holding
	// alphanumerics and an optional ":page" suffix.
	strictRegex = regexp.MustCompile(`\[([A-Z0-9]*:?\d*)$`)

	// windowRegex is any unclosed bracket with no whitespace since it opened.
	windowRegex = regexp.MustCompile(`\[([^\[\]\s]*)$`)
)

// Result describes the citation context at the caret.
type Result struct {
	// InContext is true while the caret sits inside an unclosed "[".
	InContext bool `json:"in_context"`

	// Matched is true when the bracket content fits the citation grammar.
	// An in-context result that is not matched yields no candidates.
	Matched bool `json:"matched"`

	PartialExhibit   string `json:"partial_exhibit,omitempty"`
	HasPageSeparator bool   `json:"has_page_separator"`
	PartialPage      string `json:"partial_page,omitempty"`

	// Raw is the bracket content exactly as typed.
	Raw string `json:"raw,omitempty"`
}

// Detect inspects the text before the caret.
func Detect(textBeforeCaret string) Result {
	m := windowRegex.FindStringSubmatch(textBeforeCaret)
	if m == nil {
		return Result{}
	}
	raw := m[1]

	r := Result{
		InContext: true,
		Matched:   strictRegex.MatchString(textBeforeCaret),
		Raw:       raw,
	}
	exhibit, page, hasSep := strings.Cut(raw, ":")
	r.PartialExhibit = exhibit
	r.HasPageSeparator = hasSep
	r.PartialPage = page
	return r
}

// Span is the number of runes, bracket included, that a completion replaces.
func (r Result) Span() int {
	if !r.InContext {
		return 0
	}
	return 1 + utf8.RuneCountInString(r.Raw)
}

// Query is the text the ranker should match, empty when nothing should be
// suggested.
func (r Result) Query() string {
	if !r.InContext || !r.Matched {
		return ""
	}
	return r.PartialExhibit
}

// Page returns the typed page suffix as a number, 0 if absent.
func (r Result) Page() int {
	n := 0
	for _, c := range r.PartialPage {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
		if n > 1<<30 {
			return 0
		}
	}
	return n
}
