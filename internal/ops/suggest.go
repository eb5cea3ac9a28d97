package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/citelink/internal/config"
	"github.com/hpungsan/citelink/internal/detect"
	"github.com/hpungsan/citelink/internal/suggest"
)

// SuggestInput contains parameters for the Suggest operation.
type SuggestInput struct {
	Project string
	Text    string // text before the caret
	Limit   int    // default: config max_suggestions, max: 8
}

// SuggestOutput contains the detection at the caret and ranked candidates.
type SuggestOutput struct {
	Project     string               `json:"project"`
	Detection   detect.Result        `json:"detection"`
	Suggestions []suggest.Suggestion `json:"suggestions"`
}

// Suggest runs the detector over Text and ranks the project's directory
// against the partial exhibit ref.
func Suggest(ctx context.Context, database *sql.DB, cfg *config.Config, input SuggestInput) (*SuggestOutput, error) {
	project, snap, err := LoadSource(ctx, database, cfg, input.Project)
	if err != nil {
		return nil, err
	}

	def := suggest.MaxResults
	if cfg != nil && cfg.MaxSuggestions > 0 {
		def = cfg.MaxSuggestions
	}
	limit := clampLimit(input.Limit, def, suggest.MaxResults)

	det := detect.Detect(input.Text)
	out := &SuggestOutput{
		Project:     project,
		Detection:   det,
		Suggestions: []suggest.Suggestion{},
	}
	if ranked := suggest.RankN(det.Query(), snap.Exhibits(), limit); len(ranked) > 0 {
		out.Suggestions = ranked
	}
	return out, nil
}
