// Package citation defines the inline citation token and its serialized form.
//
// A token's identity is its exhibit ref plus optional page. CitationReference is
// the display form of that identity ("2B" or "2B:15") and is kept alongside it only
// so saved documents stay stable; New and WithReference are the only paths that set
// it, which keeps the two representations from drifting apart.
package citation

import (
	stderrors "errors"
	"regexp"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ReferenceSeparator splits the exhibit ref from the page in a citation reference.
const ReferenceSeparator = ":"

// exhibitRefRegex is the canonical exhibit grammar: digits then uppercase letters.
var exhibitRefRegex = regexp.MustCompile(`^\d+[A-Z]+$`)

// Token is one inline citation. Zero values mean "absent": pages are 1-based,
// so PageNumber 0 is no page, and empty FileID/Description are unset.
type Token struct {
	ExhibitRef        string `json:"exhibitRef"`
	PageNumber        int    `json:"pageNumber,omitempty"`
	CitationReference string `json:"citationReference"`
	FileID            string `json:"fileId,omitempty"`
	Description       string `json:"description,omitempty"`
}

// New creates a token. When citationReference is non-empty it is parsed and
// becomes the source of the exhibit ref and page; otherwise the reference is
// formatted from exhibitRef and pageNumber and parsed back, so the fields
// always match what the reference reads as.
func New(exhibitRef string, pageNumber int, description, fileID, citationReference string) Token {
	t := Token{
		FileID:      strings.TrimSpace(fileID),
		Description: description,
	}
	if strings.TrimSpace(citationReference) == "" {
		if pageNumber < 0 {
			pageNumber = 0
		}
		citationReference = FormatReference(strings.TrimSpace(exhibitRef), pageNumber)
	}
	return t.WithReference(citationReference)
}

// WithReference returns a copy whose identity is rewritten from ref.
func (t Token) WithReference(ref string) Token {
	t.ExhibitRef, t.PageNumber = ParseReference(ref)
	t.CitationReference = FormatReference(t.ExhibitRef, t.PageNumber)
	return t
}

// WithPage returns a copy pointing at page (0 clears it).
func (t Token) WithPage(page int) Token {
	if page < 0 {
		page = 0
	}
	t.PageNumber = page
	t.CitationReference = FormatReference(t.ExhibitRef, t.PageNumber)
	return t
}

// WithFileID returns a copy linked to fileID.
func (t Token) WithFileID(fileID string) Token {
	t.FileID = strings.TrimSpace(fileID)
	return t
}

// WithDescription returns a copy with a new tooltip annotation.
func (t Token) WithDescription(description string) Token {
	t.Description = description
	return t
}

// Text is how the token reads inside document text.
func (t Token) Text() string {
	return "[" + t.CitationReference + "]"
}

// HasPage reports whether the token points at a specific page or offset.
func (t Token) HasPage() bool {
	return t.PageNumber > 0
}

// Consistent reports whether CitationReference matches the exhibit ref and page.
func (t Token) Consistent() bool {
	return t.CitationReference == FormatReference(t.ExhibitRef, t.PageNumber)
}

// Validate checks the token against the exhibit grammar. Loading never calls
// this; it guards the surfaces where a user types a reference by hand.
func (t Token) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.ExhibitRef,
			validation.Required,
			validation.Match(exhibitRefRegex).Error("must be digits followed by uppercase letters"),
		),
		validation.Field(&t.PageNumber, validation.Min(0)),
	)
}

// ValidExhibitRef reports whether ref matches the exhibit grammar.
func ValidExhibitRef(ref string) bool {
	return exhibitRefRegex.MatchString(ref)
}

// FormatReference renders the display form of an exhibit ref and page.
func FormatReference(exhibitRef string, page int) string {
	if page > 0 {
		return exhibitRef + ReferenceSeparator + strconv.Itoa(page)
	}
	return exhibitRef
}

// ParseReference splits ref into exhibit ref and page. A reference that cannot
// be split sensibly is treated as a bare exhibit ref with no page; it never fails,
// so one broken citation cannot block loading a document.
func ParseReference(ref string) (string, int) {
	ref = strings.TrimSpace(ref)
	parts := strings.Split(ref, ReferenceSeparator)
	if len(parts) != 2 || parts[0] == "" {
		return ref, 0
	}
	page, err := parsePage(parts[1])
	if err != nil {
		return ref, 0
	}
	return parts[0], page
}

var errBadPage = stderrors.New("page must be a positive integer")

func parsePage(s string) (int, error) {
	if s == "" {
		return 0, errBadPage
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, errBadPage
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, errBadPage
	}
	return n, nil
}
