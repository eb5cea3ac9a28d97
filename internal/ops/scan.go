package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/citelink/internal/config"
	"github.com/hpungsan/citelink/internal/errors"
	"github.com/hpungsan/citelink/internal/navigate"
	"github.com/hpungsan/citelink/internal/scan"
)

// ScanInput contains parameters for the Scan operation.
type ScanInput struct {
	Project string
	Path    string // required; .md or .markdown
}

// ScanItem is one citation found in the file with its resolution.
type ScanItem struct {
	scan.Match
	Intent   navigate.Intent `json:"intent"`
	Resolved bool            `json:"resolved"`
}

// ScanOutput lists every citation in a Markdown file.
type ScanOutput struct {
	Project    string     `json:"project"`
	Path       string     `json:"path"`
	Citations  []ScanItem `json:"citations"`
	Unresolved int        `json:"unresolved"`
}

// Scan finds the citations in a Markdown brief and resolves each against the
// project's files. Nothing is recorded in history.
func Scan(ctx context.Context, database *sql.DB, cfg *config.Config, input ScanInput) (*ScanOutput, error) {
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

	limit := 0
	if cfg != nil {
		limit = cfg.TimestampLimitSeconds
	}
	resolver := navigate.NewResolver(snap, limit)

	out := &ScanOutput{Project: project, Path: input.Path, Citations: []ScanItem{}}
	for _, m := range scan.Find(data) {
		intent := resolver.Resolve(navigate.Payload{
			ExhibitRef:        m.Token.ExhibitRef,
			PageNumber:        m.Token.PageNumber,
			CitationReference: m.Token.CitationReference,
		})
		item := ScanItem{Match: m, Intent: intent, Resolved: intent.Resolved()}
		if !item.Resolved {
			out.Unresolved++
		}
		out.Citations = append(out.Citations, item)
	}
	return out, nil
}
