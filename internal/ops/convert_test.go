package ops

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/citelink/internal/citation"
	"github.com/hpungsan/citelink/internal/document"
	"github.com/hpungsan/citelink/internal/errors"
)

func TestConvert_InlineDocument(t *testing.T) {
	database := setupTestDB(t)
	cfg, dir := testConfig(t)
	importSample(t, database, cfg, dir, "acme")

	path := filepath.Join(dir, "brief.md")
	writeFile(t, path, "The contract [2B:15] and the photo [1A].")

	out, err := Convert(context.Background(), database, cfg, ConvertInput{Project: "acme", Path: path})
	require.NoError(t, err)
	require.Equal(t, 2, out.Citations)
	require.Equal(t, 1, out.Unlinked)
	require.Empty(t, out.Output)

	doc, err := document.Unmarshal(out.Document)
	require.NoError(t, err)
	require.Equal(t, "The contract [2B:15] and the photo [1A].", doc.PlainText())

	toks := doc.Citations()
	require.Len(t, toks, 2)
	require.Equal(t, citation.Token{ExhibitRef: "2B", PageNumber: 15, CitationReference: "2B:15", FileID: "f1"}, toks[0])
	require.Equal(t, "", toks[1].FileID)
}

func TestConvert_LinksThroughFileCollection(t *testing.T) {
	database := setupTestDB(t)
	cfg, dir := testConfig(t)
	importSample(t, database, cfg, dir, "acme")

	path := filepath.Join(dir, "brief.md")
	writeFile(t, path, "[3C:20]")

	out, err := Convert(context.Background(), database, cfg, ConvertInput{Project: "acme", Path: path})
	require.NoError(t, err)
	doc, err := document.Unmarshal(out.Document)
	require.NoError(t, err)
	require.Equal(t, "f3", doc.Citations()[0].FileID)
}

func TestConvert_WritesOutputFile(t *testing.T) {
	database := setupTestDB(t)
	cfg, dir := testConfig(t)
	importSample(t, database, cfg, dir, "acme")

	in := filepath.Join(dir, "brief.md")
	writeFile(t, in, "See [2B].\n")
	outPath := filepath.Join(dir, "brief.json")

	out, err := Convert(context.Background(), database, cfg, ConvertInput{Project: "acme", Path: in, Output: outPath})
	require.NoError(t, err)
	require.Equal(t, outPath, out.Output)
	require.Nil(t, out.Document)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	doc, err := document.Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, "See [2B].\n", doc.PlainText())
}

func TestConvert_NoCitations(t *testing.T) {
	database := setupTestDB(t)
	cfg, dir := testConfig(t)

	path := filepath.Join(dir, "plain.md")
	writeFile(t, path, "Nothing cited here.")

	out, err := Convert(context.Background(), database, cfg, ConvertInput{Project: "acme", Path: path})
	require.NoError(t, err)
	require.Zero(t, out.Citations)
	doc, err := document.Unmarshal(out.Document)
	require.NoError(t, err)
	require.Equal(t, "Nothing cited here.", doc.PlainText())
}

func TestConvert_OutputExtension(t *testing.T) {
	database := setupTestDB(t)
	cfg, dir := testConfig(t)

	in := filepath.Join(dir, "brief.md")
	writeFile(t, in, "See [2B].")
	_, err := Convert(context.Background(), database, cfg, ConvertInput{Project: "acme", Path: in, Output: filepath.Join(dir, "brief.md")})
	require.True(t, errors.Is(err, errors.ErrInvalidRequest), "error = %v", err)
}
