package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/citelink/internal/citation"
	"github.com/hpungsan/citelink/internal/config"
	"github.com/hpungsan/citelink/internal/db"
	"github.com/hpungsan/citelink/internal/errors"
	"github.com/hpungsan/citelink/internal/exhibit"
	"github.com/hpungsan/citelink/internal/history"
	"github.com/hpungsan/citelink/internal/navigate"
)

// ResolveInput contains parameters for the Resolve operation. At least one of
// Reference or FileID is required.
type ResolveInput struct {
	Project     string
	Reference   string // citation reference, e.g. "2B:15"
	FileID      string
	Description string
	Record      *bool // default: true
}

// ResolveOutput is the navigation intent for one citation.
type ResolveOutput struct {
	Project  string          `json:"project"`
	Citation citation.Token  `json:"citation"`
	Intent   navigate.Intent `json:"intent"`
	Resolved bool            `json:"resolved"`
	History  *history.Entry  `json:"history,omitempty"`
}

// Resolve turns a citation into a NavigationIntent against the project's file
// collection and, unless Record is false, logs the visit in history.
// An exhibit with no linked file is not an error; the intent has no file id
// and nothing is logged.
func Resolve(ctx context.Context, database *sql.DB, cfg *config.Config, input ResolveInput) (*ResolveOutput, error) {
	ref := strings.TrimSpace(input.Reference)
	fileID := strings.TrimSpace(input.FileID)
	if ref == "" && fileID == "" {
		return nil, errors.NewInvalidRequest("reference or file_id is required")
	}

	project, snap, err := LoadSource(ctx, database, cfg, input.Project)
	if err != nil {
		return nil, err
	}

	var tok citation.Token
	if ref != "" {
		tok = citation.Token{}.WithReference(ref)
		if err := tok.Validate(); err != nil {
			return nil, errors.NewInvalidCitation(ref, err)
		}
	} else {
		f, ok := exhibit.FileByID(snap.Files(), fileID)
		if !ok {
			return nil, errors.NewNotFound("file " + fileID)
		}
		if f.ExhibitRef == "" {
			return nil, errors.NewInvalidRequest("file " + fileID + " is not linked to an exhibit")
		}
		tok = citation.New(f.ExhibitRef, 0, "", "", "")
	}
	tok = tok.WithFileID(fileID).WithDescription(strings.TrimSpace(input.Description))

	limit := 0
	if cfg != nil {
		limit = cfg.TimestampLimitSeconds
	}
	intent := navigate.NewResolver(snap, limit).Resolve(navigate.Payload{
		ExhibitRef:        tok.ExhibitRef,
		PageNumber:        tok.PageNumber,
		FileID:            tok.FileID,
		CitationReference: tok.CitationReference,
		Description:       tok.Description,
	})

	out := &ResolveOutput{
		Project:  project,
		Citation: tok,
		Intent:   intent,
		Resolved: intent.Resolved(),
	}
	if intent.Resolved() && (input.Record == nil || *input.Record) {
		tracker := history.NewTracker(db.NewHistoryStore(database, project))
		entry, err := tracker.Record(ctx, tok.CitationReference, tok.ExhibitRef)
		if err != nil {
			return nil, err
		}
		out.History = &entry
	}
	return out, nil
}
