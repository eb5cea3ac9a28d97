// Package command is the citation command bus. Each command has one effect and
// runs synchronously inside a single editor transaction.
package command

import (
	"strings"

	"github.com/hpungsan/citelink/internal/citation"
)

// InsertCitation places a new citation at a collapsed caret.
type InsertCitation struct {
	ExhibitRef        string
	PageNumber        int
	CitationReference string
	Description       string
	FileID            string

	// FromSuggestion replaces the "[..." text being typed before the caret.
	// Manual entries insert fresh.
	FromSuggestion bool
}

// Token builds the token this command inserts.
func (c InsertCitation) Token() citation.Token {
	return citation.New(c.ExhibitRef, c.PageNumber, c.Description, c.FileID, c.CitationReference)
}

// CitationClicked reports that the user activated a citation. It never
// mutates the document.
type CitationClicked struct {
	ExhibitRef        string `json:"exhibitRef"`
	PageNumber        int    `json:"pageNumber,omitempty"`
	FileID            string `json:"fileId,omitempty"`
	CitationReference string `json:"citationReference"`
	Description       string `json:"description,omitempty"`
}

// Clicked builds the click payload for a token.
func Clicked(t citation.Token) CitationClicked {
	return CitationClicked{
		ExhibitRef:        t.ExhibitRef,
		PageNumber:        t.PageNumber,
		FileID:            t.FileID,
		CitationReference: t.CitationReference,
		Description:       t.Description,
	}
}

// ReferenceEdited rewrites the identity of the Index-th citation in the
// document from a hand-edited reference.
type ReferenceEdited struct {
	Index     int
	Reference string
}

// ExternalInsert is the insert request other panels send, in the same field
// names as the saved citation record.
type ExternalInsert struct {
	ExhibitID         string `json:"exhibitId"`
	PageNumber        int    `json:"pageNumber,omitempty"`
	CitationReference string `json:"citationReference,omitempty"`
	Description       string `json:"description,omitempty"`
	FileID            string `json:"fileId,omitempty"`
}

// Command converts the request into an InsertCitation.
func (e ExternalInsert) Command() InsertCitation {
	return InsertCitation{
		ExhibitRef:        strings.TrimSpace(e.ExhibitID),
		PageNumber:        e.PageNumber,
		CitationReference: e.CitationReference,
		Description:       e.Description,
		FileID:            e.FileID,
	}
}

// ClickListener receives citation clicks.
type ClickListener interface {
	CitationClicked(CitationClicked)
}

// ClickFunc adapts a function to ClickListener.
type ClickFunc func(CitationClicked)

// CitationClicked calls f(c).
func (f ClickFunc) CitationClicked(c CitationClicked) { f(c) }
