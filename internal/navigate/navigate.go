// Package navigate turns a clicked citation into a navigation intent for the
// viewer panel.
package navigate

import (
	"fmt"
	"strings"

	"github.com/hpungsan/citelink/internal/exhibit"
)

// DefaultTimestampLimit is the page number below which a citation into an
// audio or video file is read as a playback offset in seconds.
//
// TODO: an authored page 3601 and a one-hour offset are indistinguishable.
// Replace with an explicit offset field on the token once saved documents
// carry a record version that can hold it.
const DefaultTimestampLimit = 3600

// Payload is what a citation click carries.
type Payload struct {
	ExhibitRef        string `json:"exhibitRef"`
	PageNumber        int    `json:"pageNumber,omitempty"`
	FileID            string `json:"fileId,omitempty"`
	CitationReference string `json:"citationReference"`
	Description       string `json:"description,omitempty"`
}

// Intent tells the viewer what to show. An empty FileID means the exhibit has
// no linked file yet and the viewer shows a placeholder.
type Intent struct {
	FileID            string        `json:"fileId,omitempty"`
	TargetPage        int           `json:"targetPage,omitempty"`
	Timestamp         string        `json:"timestamp,omitempty"`
	ExhibitReference  string        `json:"exhibitReference"`
	SourceDescription string        `json:"sourceDescription,omitempty"`
	File              *exhibit.File `json:"file,omitempty"`
}

// Resolved reports whether the intent points at a concrete file.
func (i Intent) Resolved() bool { return i.FileID != "" }

// Resolver looks citations up in the current file collection.
type Resolver struct {
	// Files returns the file collection snapshot for one call.
	Files func() []exhibit.File

	// TimestampLimit overrides DefaultTimestampLimit when positive.
	TimestampLimit int
}

// NewResolver returns a resolver reading files from src.
func NewResolver(src exhibit.Source, timestampLimit int) *Resolver {
	return &Resolver{Files: src.Files, TimestampLimit: timestampLimit}
}

// Resolve finds the target file. A direct file id wins; otherwise the first
// file linked to the exhibit ref is used. It never fails.
func (r *Resolver) Resolve(p Payload) Intent {
	intent := Intent{
		ExhibitReference:  p.CitationReference,
		SourceDescription: p.Description,
		TargetPage:        max(p.PageNumber, 0),
	}
	if intent.ExhibitReference == "" {
		intent.ExhibitReference = p.ExhibitRef
	}

	var files []exhibit.File
	if r != nil && r.Files != nil {
		files = r.Files()
	}

	f, ok := exhibit.FileByID(files, strings.TrimSpace(p.FileID))
	if !ok {
		f, ok = exhibit.FileByExhibitRef(files, strings.TrimSpace(p.ExhibitRef))
	}
	if !ok {
		return intent
	}

	intent.FileID = f.ID
	intent.File = &f
	if f.Type.IsTimeBased() && p.PageNumber > 0 && p.PageNumber < r.limit() {
		intent.Timestamp = FormatTimestamp(p.PageNumber)
		intent.TargetPage = 0
	}
	return intent
}

func (r *Resolver) limit() int {
	if r.TimestampLimit > 0 {
		return r.TimestampLimit
	}
	return DefaultTimestampLimit
}

// FormatTimestamp renders seconds as zero-padded mm:ss. Minutes are not
// wrapped into hours.
func FormatTimestamp(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
