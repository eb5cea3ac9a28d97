// Package suggest ranks exhibit completions for a partial citation and keeps
// the state of the suggestion dropdown.
package suggest

import (
	"sort"
	"strings"

	"github.com/hpungsan/citelink/internal/exhibit"
)

// MaxResults caps the suggestion list. Ranking runs inside every keystroke's
// change notification, so the list stays short.
const MaxResults = 8

// Relevance scores, highest first.
const (
	ScoreExact         = 100
	ScorePrefix        = 90
	ScoreContains      = 70
	ScoreTitleContains = 50
)

// Suggestion is one ranked completion candidate.
type Suggestion struct {
	Entry exhibit.Entry `json:"entry"`
	Score int           `json:"score"`
}

// Rank returns at most MaxResults candidates for partial.
func Rank(partial string, entries []exhibit.Entry) []Suggestion {
	return RankN(partial, entries, MaxResults)
}

// RankN is Rank with a caller-supplied cap. A non-positive limit uses MaxResults.
func RankN(partial string, entries []exhibit.Entry, limit int) []Suggestion {
	if limit <= 0 {
		limit = MaxResults
	}
	query := strings.ToLower(strings.TrimSpace(partial))
	if query == "" || len(entries) == 0 {
		return nil
	}

	out := make([]Suggestion, 0, min(len(entries), limit))
	for _, e := range entries {
		if s := Score(query, e); s > 0 {
			out = append(out, Suggestion{Entry: e, Score: s})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Entry.ExhibitRef != b.Entry.ExhibitRef {
			return a.Entry.ExhibitRef < b.Entry.ExhibitRef
		}
		if a.Entry.Title != b.Entry.Title {
			return a.Entry.Title < b.Entry.Title
		}
		return a.Entry.FileID < b.Entry.FileID
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Score rates one entry against a lowercased, trimmed query. Zero means no match.
func Score(query string, e exhibit.Entry) int {
	ref := strings.ToLower(e.ExhibitRef)
	switch {
	case ref == query:
		return ScoreExact
	case strings.HasPrefix(ref, query):
		return ScorePrefix
	case strings.Contains(ref, query):
		return ScoreContains
	case strings.Contains(strings.ToLower(e.Title), query):
		return ScoreTitleContains
	}
	return 0
}
