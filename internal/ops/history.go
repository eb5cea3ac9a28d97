package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/citelink/internal/config"
	"github.com/hpungsan/citelink/internal/db"
	"github.com/hpungsan/citelink/internal/history"
)

// HistoryListInput contains parameters for the HistoryList operation.
type HistoryListInput struct {
	Project string
	Limit   int // default: config recent_history, max: 1000
}

// HistoryListOutput contains the most recent history entries.
type HistoryListOutput struct {
	Project string          `json:"project"`
	Items   []history.Entry `json:"items"`
	Total   int             `json:"total"`
}

// HistoryList returns a project's visited citations, most recent first.
func HistoryList(ctx context.Context, database *sql.DB, cfg *config.Config, input HistoryListInput) (*HistoryListOutput, error) {
	project, err := ResolveProject(input.Project, cfg)
	if err != nil {
		return nil, err
	}
	def := DefaultHistoryLimit
	if cfg != nil && cfg.RecentHistory > 0 {
		def = cfg.RecentHistory
	}
	limit := clampLimit(input.Limit, def, MaxHistoryLimit)

	all, err := history.NewTracker(db.NewHistoryStore(database, project)).List(ctx)
	if err != nil {
		return nil, err
	}
	out := &HistoryListOutput{
		Project: project,
		Items:   []history.Entry{},
		Total:   len(all),
	}
	if len(all) > limit {
		all = all[:limit]
	}
	out.Items = append(out.Items, all...)
	return out, nil
}

// HistoryClearInput contains parameters for the HistoryClear operation.
type HistoryClearInput struct {
	Project string
}

// HistoryClearOutput reports how many entries were removed.
type HistoryClearOutput struct {
	Project string `json:"project"`
	Cleared int    `json:"cleared"`
}

// HistoryClear empties a project's history. It cannot be undone.
func HistoryClear(ctx context.Context, database *sql.DB, cfg *config.Config, input HistoryClearInput) (*HistoryClearOutput, error) {
	project, err := ResolveProject(input.Project, cfg)
	if err != nil {
		return nil, err
	}
	tracker := history.NewTracker(db.NewHistoryStore(database, project))
	existing, err := tracker.List(ctx)
	if err != nil {
		return nil, err
	}
	if err := tracker.Clear(ctx); err != nil {
		return nil, err
	}
	return &HistoryClearOutput{Project: project, Cleared: len(existing)}, nil
}
