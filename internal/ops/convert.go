package ops

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/hpungsan/citelink/internal/config"
	"github.com/hpungsan/citelink/internal/document"
	"github.com/hpungsan/citelink/internal/errors"
	"github.com/hpungsan/citelink/internal/exhibit"
	"github.com/hpungsan/citelink/internal/scan"
)

// ConvertInput contains parameters for the Convert operation.
type ConvertInput struct {
	Project string
	Path    string // required; .md or .markdown
	Output  string // optional .json path; when empty the document is returned inline
}

// ConvertOutput contains the converted document or where it was written.
type ConvertOutput struct {
	Project   string          `json:"project"`
	Citations int             `json:"citations"`
	Unlinked  int             `json:"unlinked"`
	Output    string          `json:"output,omitempty"`
	Document  json.RawMessage `json:"document,omitempty"`
}

// Convert turns the bracketed citations of a Markdown brief into citation
// tokens inside a saved document. Surrounding text is kept verbatim. Each
// token is linked to a file through the project's directory when one exists.
func Convert(ctx context.Context, database *sql.DB, cfg *config.Config, input ConvertInput) (*ConvertOutput, error) {
	if strings.TrimSpace(input.Path) == "" {
		return nil, errors.NewInvalidRequest("path is required")
	}
	data, err := readValidated(input.Path, MarkdownExtensions, cfg)
	if err != nil {
		return nil, err
	}
	project, snap, err := LoadSource(ctx, database, cfg, input.Project)
	if err != nil {
		return nil, err
	}

	doc, citations, unlinked := buildDocument(data, scan.Find(data), snap)
	raw, err := document.Marshal(doc)
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	out := &ConvertOutput{Project: project, Citations: citations, Unlinked: unlinked}
	if input.Output == "" {
		out.Document = raw
		return out, nil
	}
	if err := writeValidated(input.Output, raw, DocumentExtensions, cfg); err != nil {
		return nil, err
	}
	out.Output = input.Output
	return out, nil
}

func buildDocument(source []byte, matches []scan.Match, src exhibit.Source) (document.Doc, int, int) {
	entries, files := src.Exhibits(), src.Files()

	var (
		nodes    []document.Node
		last     int
		unlinked int
	)
	for _, m := range matches {
		nodes = append(nodes, document.TextNode(string(source[last:m.Start])))

		tok := m.Token
		if e, ok := exhibit.EntryByRef(entries, tok.ExhibitRef); ok && e.FileID != "" {
			tok = tok.WithFileID(e.FileID)
		} else if f, ok := exhibit.FileByExhibitRef(files, tok.ExhibitRef); ok {
			tok = tok.WithFileID(f.ID)
		}
		if tok.FileID == "" {
			unlinked++
		}
		nodes = append(nodes, document.CitationNode(tok))
		last = m.End
	}
	nodes = append(nodes, document.TextNode(string(source[last:])))
	return document.New(nodes...), len(matches), unlinked
}
