package ops

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/citelink/internal/errors"
)

const sampleBrief = "# Statement of facts\n\nThe contract [2B:15] was signed at the scene [1A].\n\nThe deposition [3C:90] contradicts it. See `[9Z]` and [7G].\n"

func TestScan_ResolvesEachCitation(t *testing.T) {
	database := setupTestDB(t)
	cfg, dir := testConfig(t)
	importSample(t, database, cfg, dir, "acme")

	path := filepath.Join(dir, "brief.md")
	writeFile(t, path, sampleBrief)

	out, err := Scan(context.Background(), database, cfg, ScanInput{Project: "acme", Path: path})
	require.NoError(t, err)
	require.Len(t, out.Citations, 4)

	got := make([]string, 0, len(out.Citations))
	for _, c := range out.Citations {
		got = append(got, c.Token.CitationReference)
	}
	require.Equal(t, []string{"2B:15", "1A", "3C:90", "7G"}, got)

	require.True(t, out.Citations[0].Resolved)
	require.Equal(t, "f1", out.Citations[0].Intent.FileID)
	require.Equal(t, 15, out.Citations[0].Intent.TargetPage)
	require.Equal(t, 3, out.Citations[0].Line)

	require.False(t, out.Citations[1].Resolved)
	require.Equal(t, "01:30", out.Citations[2].Intent.Timestamp)
	require.Equal(t, 2, out.Unresolved)
}

func TestScan_DoesNotRecordHistory(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)
	cfg, dir := testConfig(t)
	importSample(t, database, cfg, dir, "acme")

	path := filepath.Join(dir, "brief.md")
	writeFile(t, path, sampleBrief)
	_, err := Scan(ctx, database, cfg, ScanInput{Project: "acme", Path: path})
	require.NoError(t, err)

	list, err := HistoryList(ctx, database, cfg, HistoryListInput{Project: "acme"})
	require.NoError(t, err)
	require.Zero(t, list.Total)
}

func TestScan_PathRules(t *testing.T) {
	database := setupTestDB(t)
	cfg, dir := testConfig(t)
	ctx := context.Background()

	_, err := Scan(ctx, database, cfg, ScanInput{Project: "acme"})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest), "missing path: %v", err)

	path := filepath.Join(dir, "brief.txt")
	writeFile(t, path, sampleBrief)
	_, err = Scan(ctx, database, cfg, ScanInput{Project: "acme", Path: path})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest), "wrong extension: %v", err)
}
