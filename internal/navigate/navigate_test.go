package navigate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/citelink/internal/exhibit"
)

func testFiles() []exhibit.File {
	return []exhibit.File{
		{ID: "f1", Name: "contract.pdf", Type: exhibit.TypeDocument, ExhibitRef: "2B"},
		{ID: "f2", Name: "amendment.pdf", Type: exhibit.TypeDocument, ExhibitRef: "2C"},
		{ID: "v1", Name: "bodycam.mp4", Type: exhibit.TypeVideo, ExhibitRef: "5A"},
		{ID: "a1", Name: "call.mp3", Type: exhibit.TypeAudio, ExhibitRef: "6A"},
	}
}

func resolver() *Resolver {
	return &Resolver{Files: testFiles}
}

func TestResolve_ByExhibitRef(t *testing.T) {
	in := resolver().Resolve(Payload{ExhibitRef: "2B", CitationReference: "2B"})
	require.True(t, in.Resolved())
	require.Equal(t, "f1", in.FileID)
	require.Zero(t, in.TargetPage)
	require.Empty(t, in.Timestamp)
	require.Equal(t, "2B", in.ExhibitReference)
	require.NotNil(t, in.File)
	require.Equal(t, "contract.pdf", in.File.Name)
}

func TestResolve_FileIDWinsOverExhibitRef(t *testing.T) {
	// f2 belongs to 2C while the exhibit search for 2B would pick f1.
	in := resolver().Resolve(Payload{ExhibitRef: "2B", FileID: "f2", CitationReference: "2B"})
	require.Equal(t, "f2", in.FileID)
}

func TestResolve_StaleFileIDFallsBackToExhibitRef(t *testing.T) {
	in := resolver().Resolve(Payload{ExhibitRef: "2B", FileID: "gone", CitationReference: "2B"})
	require.Equal(t, "f1", in.FileID)
}

func TestResolve_UnresolvedIsPlaceholder(t *testing.T) {
	in := resolver().Resolve(Payload{ExhibitRef: "9Z", PageNumber: 3, CitationReference: "9Z:3", Description: "missing"})
	require.False(t, in.Resolved())
	require.Nil(t, in.File)
	require.Equal(t, 3, in.TargetPage)
	require.Equal(t, "9Z:3", in.ExhibitReference)
	require.Equal(t, "missing", in.SourceDescription)
}

func TestResolve_PagePassthroughForDocuments(t *testing.T) {
	in := resolver().Resolve(Payload{ExhibitRef: "2B", PageNumber: 15, CitationReference: "2B:15"})
	require.Equal(t, 15, in.TargetPage)
	require.Empty(t, in.Timestamp)
}

func TestResolve_TimestampForMedia(t *testing.T) {
	tests := []struct {
		name     string
		ref      string
		page     int
		wantTS   string
		wantPage int
	}{
		{"video seconds", "5A", 75, "01:15", 0},
		{"audio seconds", "6A", 5, "00:05", 0},
		{"just under limit", "6A", 3599, "59:59", 0},
		{"at limit stays page", "6A", 3600, "", 3600},
		{"above limit stays page", "5A", 7200, "", 7200},
		{"no page", "5A", 0, "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := resolver().Resolve(Payload{ExhibitRef: tt.ref, PageNumber: tt.page})
			require.Equal(t, tt.wantTS, in.Timestamp)
			require.Equal(t, tt.wantPage, in.TargetPage)
		})
	}
}

func TestResolve_CustomTimestampLimit(t *testing.T) {
	r := &Resolver{Files: testFiles, TimestampLimit: 60}
	in := r.Resolve(Payload{ExhibitRef: "5A", PageNumber: 75})
	require.Empty(t, in.Timestamp)
	require.Equal(t, 75, in.TargetPage)
}

func TestResolve_ExhibitReferenceFallsBackToRef(t *testing.T) {
	in := resolver().Resolve(Payload{ExhibitRef: "2B"})
	require.Equal(t, "2B", in.ExhibitReference)
}

func TestResolve_NilFiles(t *testing.T) {
	var r Resolver
	in := r.Resolve(Payload{ExhibitRef: "2B", CitationReference: "2B"})
	require.False(t, in.Resolved())
}

func TestNewResolver(t *testing.T) {
	src := exhibit.NewSnapshot(nil, testFiles())
	in := NewResolver(src, 0).Resolve(Payload{ExhibitRef: "6A", PageNumber: 61})
	require.Equal(t, "a1", in.FileID)
	require.Equal(t, "01:01", in.Timestamp)
}

func TestFormatTimestamp(t *testing.T) {
	tests := map[int]string{
		0:    "00:00",
		9:    "00:09",
		60:   "01:00",
		615:  "10:15",
		3599: "59:59",
		-4:   "00:00",
	}
	for in, want := range tests {
		if got := FormatTimestamp(in); got != want {
			t.Errorf("FormatTimestamp(%d) = %q, want %q", in, got, want)
		}
	}
}
