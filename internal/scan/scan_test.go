package scan

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func refs(ms []Match) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Token.CitationReference)
	}
	return out
}

func TestFind_Prose(t *testing.T) {
	src := []byte("# Facts [1A]\n\nThe contract [2B:15] was signed.\nSee also [3C].\n")
	ms := Find(src)
	require.Equal(t, []string{"1A", "2B:15", "3C"}, refs(ms))

	require.Equal(t, 1, ms[0].Line)
	require.Equal(t, 3, ms[1].Line)
	require.Equal(t, 4, ms[2].Line)

	require.Equal(t, "[2B:15]", string(src[ms[1].Start:ms[1].End]))
	require.Equal(t, "2B", ms[1].Token.ExhibitRef)
	require.Equal(t, 15, ms[1].Token.PageNumber)
}

func TestFind_SkipsCode(t *testing.T) {
	src := []byte("Inline `[9Z]` code.\n\n```\n[8Y:1]\n```\n\n    [7X]\n\nReal [2B].\n")
	require.Equal(t, []string{"2B"}, refs(Find(src)))
}

func TestFind_SkipsLinksAndHTML(t *testing.T) {
	src := []byte("A [2B](http://example.com) link, <abbr title=\"[4D]\">tag</abbr>, then [5E].\n\n<div>\n[6F]\n</div>\n")
	require.Equal(t, []string{"5E"}, refs(Find(src)))
}

func TestFind_ListsAndQuotes(t *testing.T) {
	src := []byte("- first [1A]\n- second [1B:2]\n\n> quoted [6F]\n")
	require.Equal(t, []string{"1A", "1B:2", "6F"}, refs(Find(src)))
}

func TestFind_IgnoresNonCanonical(t *testing.T) {
	src := []byte("Not citations: [ab], [2b], [2B:], [2B:x], [B2], [ 2B ].\n")
	require.Empty(t, Find(src))
}

func TestFind_Empty(t *testing.T) {
	require.Empty(t, Find(nil))
}
