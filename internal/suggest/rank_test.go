package suggest

import (
	"fmt"
	"testing"

	"github.com/hpungsan/citelink/internal/exhibit"
)

func testDirectory() []exhibit.Entry {
	return []exhibit.Entry{
		{ExhibitRef: "12B", Title: "Invoice", FileID: "f12"},
		{ExhibitRef: "2B", Title: "Contract", FileID: "f1"},
		{ExhibitRef: "2A", Title: "Email thread", FileID: "f2"},
		{ExhibitRef: "3C", Title: "Photo 2B annex", FileID: "f3"},
		{ExhibitRef: "4D", Title: "Deposition audio"},
	}
}

func refs(s []Suggestion) []string {
	out := make([]string, len(s))
	for i, x := range s {
		out[i] = x.Entry.ExhibitRef
	}
	return out
}

func TestRank_Scores(t *testing.T) {
	got := Rank("2b", testDirectory())

	want := []struct {
		ref   string
		score int
	}{
		{"2B", ScoreExact},
		{"12B", ScoreContains},
		{"3C", ScoreTitleContains},
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %d results", refs(got), len(want))
	}
	for i, w := range want {
		if got[i].Entry.ExhibitRef != w.ref || got[i].Score != w.score {
			t.Errorf("result[%d] = %s/%d, want %s/%d", i, got[i].Entry.ExhibitRef, got[i].Score, w.ref, w.score)
		}
	}
}

func TestRank_PrefixTiesSortedByRef(t *testing.T) {
	got := Rank("2", testDirectory())
	gotRefs := refs(got)

	want := []string{"2A", "2B", "12B", "3C"}
	if fmt.Sprint(gotRefs) != fmt.Sprint(want) {
		t.Errorf("order = %v, want %v", gotRefs, want)
	}
	if got[0].Score != ScorePrefix || got[1].Score != ScorePrefix {
		t.Errorf("prefix scores = %d,%d, want %d", got[0].Score, got[1].Score, ScorePrefix)
	}
}

func TestRank_TitleMatch(t *testing.T) {
	got := Rank("deposition", testDirectory())
	if len(got) != 1 || got[0].Entry.ExhibitRef != "4D" || got[0].Score != ScoreTitleContains {
		t.Errorf("got %+v", got)
	}
}

func TestRank_EmptyInput(t *testing.T) {
	for _, in := range []string{"", "   ", "\t"} {
		if got := Rank(in, testDirectory()); len(got) != 0 {
			t.Errorf("Rank(%q) = %v, want empty", in, refs(got))
		}
	}
}

func TestRank_EmptyDirectory(t *testing.T) {
	if got := Rank("2B", nil); len(got) != 0 {
		t.Errorf("got %v, want empty", got)
	}
}

func TestRank_NoMatch(t *testing.T) {
	if got := Rank("zzz", testDirectory()); len(got) != 0 {
		t.Errorf("got %v, want empty", refs(got))
	}
}

func TestRank_CapsResults(t *testing.T) {
	var dir []exhibit.Entry
	for i := 1; i <= 20; i++ {
		dir = append(dir, exhibit.Entry{ExhibitRef: fmt.Sprintf("%dA", i)})
	}

	got := Rank("A", dir)
	if len(got) != MaxResults {
		t.Fatalf("len = %d, want %d", len(got), MaxResults)
	}

	custom := RankN("A", dir, 3)
	if len(custom) != 3 {
		t.Errorf("RankN len = %d, want 3", len(custom))
	}
}

func TestRank_Deterministic(t *testing.T) {
	dir := testDirectory()
	reversed := make([]exhibit.Entry, len(dir))
	for i := range dir {
		reversed[len(dir)-1-i] = dir[i]
	}

	a := fmt.Sprint(refs(Rank("2", dir)))
	b := fmt.Sprint(refs(Rank("2", reversed)))
	if a != b {
		t.Errorf("order depends on input order: %s vs %s", a, b)
	}
}

func TestRank_DuplicateRefsTotalOrder(t *testing.T) {
	dir := []exhibit.Entry{
		{ExhibitRef: "2B", Title: "Zeta", FileID: "b"},
		{ExhibitRef: "2B", Title: "Alpha", FileID: "a"},
	}
	got := Rank("2B", dir)
	if got[0].Entry.Title != "Alpha" {
		t.Errorf("first = %q, want Alpha", got[0].Entry.Title)
	}
}
