package ops

import (
	"context"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/hpungsan/citelink/internal/errors"
)

func boolPtr(b bool) *bool { return &b }

func TestResolve_ByReference(t *testing.T) {
	database := setupTestDB(t)
	cfg, dir := testConfig(t)
	importSample(t, database, cfg, dir, "acme")

	out, err := Resolve(context.Background(), database, cfg, ResolveInput{Project: "acme", Reference: "2B:15", Description: "signature page"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !out.Resolved || out.Intent.FileID != "f1" {
		t.Errorf("Intent = %+v, want f1", out.Intent)
	}
	if out.Intent.TargetPage != 15 || out.Intent.Timestamp != "" {
		t.Errorf("TargetPage = %d Timestamp = %q, want 15 and none", out.Intent.TargetPage, out.Intent.Timestamp)
	}
	if out.Intent.ExhibitReference != "2B:15" || out.Intent.SourceDescription != "signature page" {
		t.Errorf("Intent = %+v", out.Intent)
	}
	if out.Citation.ExhibitRef != "2B" || out.Citation.PageNumber != 15 {
		t.Errorf("Citation = %+v", out.Citation)
	}
	if out.History == nil || out.History.AccessCount != 1 || out.History.CitationReference != "2B:15" {
		t.Errorf("History = %+v, want first visit", out.History)
	}
}

func TestResolve_MediaTimestamp(t *testing.T) {
	database := setupTestDB(t)
	cfg, dir := testConfig(t)
	importSample(t, database, cfg, dir, "acme")

	out, err := Resolve(context.Background(), database, cfg, ResolveInput{Project: "acme", Reference: "3C:125"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if out.Intent.FileID != "f3" || out.Intent.Timestamp != "02:05" || out.Intent.TargetPage != 0 {
		t.Errorf("Intent = %+v, want f3 at 02:05", out.Intent)
	}

	cfg.TimestampLimitSeconds = 100
	out, err = Resolve(context.Background(), database, cfg, ResolveInput{Project: "acme", Reference: "3C:125"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if out.Intent.Timestamp != "" || out.Intent.TargetPage != 125 {
		t.Errorf("Intent = %+v, want page passthrough above limit", out.Intent)
	}
}

func TestResolve_UnlinkedExhibitIsPlaceholder(t *testing.T) {
	database := setupTestDB(t)
	cfg, dir := testConfig(t)
	importSample(t, database, cfg, dir, "acme")

	out, err := Resolve(context.Background(), database, cfg, ResolveInput{Project: "acme", Reference: "1A"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if out.Resolved || out.Intent.FileID != "" || out.Intent.ExhibitReference != "1A" {
		t.Errorf("Intent = %+v, want placeholder for 1A", out.Intent)
	}
	if out.History != nil {
		t.Errorf("History = %+v, want nil for an unresolved citation", out.History)
	}
	list, err := HistoryList(context.Background(), database, cfg, HistoryListInput{Project: "acme"})
	if err != nil {
		t.Fatalf("HistoryList() error = %v", err)
	}
	if list.Total != 0 {
		t.Errorf("history Total = %d, want 0", list.Total)
	}
}

func TestResolve_ByFileID(t *testing.T) {
	database := setupTestDB(t)
	cfg, dir := testConfig(t)
	importSample(t, database, cfg, dir, "acme")

	out, err := Resolve(context.Background(), database, cfg, ResolveInput{Project: "acme", FileID: "f3"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if out.Intent.FileID != "f3" || out.Citation.CitationReference != "3C" {
		t.Errorf("out = %+v, want f3 via 3C", out)
	}

	_, err = Resolve(context.Background(), database, cfg, ResolveInput{Project: "acme", FileID: "nope"})
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("unknown file: error = %v, want NOT_FOUND", err)
	}
}

func TestResolve_RepeatVisitsDedupe(t *testing.T) {
	database := setupTestDB(t)
	cfg, dir := testConfig(t)
	importSample(t, database, cfg, dir, "acme")

	var last *ResolveOutput
	for range 3 {
		out, err := Resolve(context.Background(), database, cfg, ResolveInput{Project: "acme", Reference: "2B"})
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		last = out
	}
	if last.History.AccessCount != 3 {
		t.Errorf("AccessCount = %d, want 3", last.History.AccessCount)
	}

	list, err := HistoryList(context.Background(), database, cfg, HistoryListInput{Project: "acme"})
	if err != nil {
		t.Fatalf("HistoryList() error = %v", err)
	}
	if list.Total != 1 {
		t.Errorf("Total = %d, want 1", list.Total)
	}
}

func TestResolve_RecordFalseSkipsHistory(t *testing.T) {
	database := setupTestDB(t)
	cfg, dir := testConfig(t)
	importSample(t, database, cfg, dir, "acme")

	out, err := Resolve(context.Background(), database, cfg, ResolveInput{Project: "acme", Reference: "2B", Record: boolPtr(false)})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if out.History != nil {
		t.Errorf("History = %+v, want nil", out.History)
	}
	list, err := HistoryList(context.Background(), database, cfg, HistoryListInput{Project: "acme"})
	if err != nil {
		t.Fatalf("HistoryList() error = %v", err)
	}
	if list.Total != 0 {
		t.Errorf("Total = %d, want 0", list.Total)
	}
}

func TestResolve_InvalidInput(t *testing.T) {
	database := setupTestDB(t)
	cfg, _ := testConfig(t)
	ctx := context.Background()

	if _, err := Resolve(ctx, database, cfg, ResolveInput{Project: "acme"}); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("empty: error = %v, want INVALID_REQUEST", err)
	}
	for _, ref := range []string{"2b", "B2", "2B:x", "2B:0"} {
		if _, err := Resolve(ctx, database, cfg, ResolveInput{Project: "acme", Reference: ref}); !errors.Is(err, errors.ErrInvalidCitation) {
			t.Errorf("Resolve(%q) error = %v, want INVALID_CITATION", ref, err)
		}
	}
}

func TestResolve_ConcurrentVisitsAllCounted(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)
	cfg, dir := testConfig(t)
	importSample(t, database, cfg, dir, "acme")

	const visits = 40
	var g errgroup.Group
	for range visits {
		g.Go(func() error {
			_, err := Resolve(ctx, database, cfg, ResolveInput{Project: "acme", Reference: "2B"})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	list, err := HistoryList(ctx, database, cfg, HistoryListInput{Project: "acme"})
	if err != nil {
		t.Fatalf("HistoryList() error = %v", err)
	}
	if list.Total != 1 {
		t.Fatalf("Total = %d, want 1", list.Total)
	}
	if got := list.Items[0].AccessCount; got != visits {
		t.Errorf("AccessCount = %d, want %d", got, visits)
	}
}
