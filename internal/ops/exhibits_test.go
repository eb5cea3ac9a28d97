package ops

import (
	"context"
	"encoding/json"
	"testing"
)

func TestExhibits_HappyPath(t *testing.T) {
	database := setupTestDB(t)
	cfg, dir := testConfig(t)
	importSample(t, database, cfg, dir, "acme")

	out, err := Exhibits(context.Background(), database, cfg, ExhibitsInput{Project: "ACME"})
	if err != nil {
		t.Fatalf("Exhibits() error = %v", err)
	}
	if out.Project != "acme" {
		t.Errorf("Project = %q, want acme", out.Project)
	}
	var refs []string
	for _, e := range out.Exhibits {
		refs = append(refs, e.ExhibitRef)
	}
	if len(refs) != 3 || refs[0] != "2B" || refs[1] != "1A" || refs[2] != "3C" {
		t.Errorf("exhibit order = %v, want [2B 1A 3C]", refs)
	}
	if len(out.Files) != 2 {
		t.Errorf("len(Files) = %d, want 2", len(out.Files))
	}
}

func TestExhibits_UnknownProjectIsEmptyArrays(t *testing.T) {
	database := setupTestDB(t)
	cfg, _ := testConfig(t)

	out, err := Exhibits(context.Background(), database, cfg, ExhibitsInput{Project: "nobody"})
	if err != nil {
		t.Fatalf("Exhibits() error = %v", err)
	}
	data, err := json.Marshal(out)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"project":"nobody","exhibits":[],"files":[]}`
	if string(data) != want {
		t.Errorf("json = %s, want %s", data, want)
	}
}

func TestProjects(t *testing.T) {
	database := setupTestDB(t)
	cfg, dir := testConfig(t)
	importSample(t, database, cfg, dir, "beta")
	importSample(t, database, cfg, dir, "acme")

	out, err := Projects(context.Background(), database)
	if err != nil {
		t.Fatalf("Projects() error = %v", err)
	}
	if len(out.Items) != 2 {
		t.Fatalf("len(Items) = %d, want 2", len(out.Items))
	}
	if out.Items[0].Project != "acme" || out.Items[0].Exhibits != 3 || out.Items[0].Files != 2 {
		t.Errorf("Items[0] = %+v", out.Items[0])
	}
}

func TestProjects_Empty(t *testing.T) {
	out, err := Projects(context.Background(), setupTestDB(t))
	if err != nil {
		t.Fatalf("Projects() error = %v", err)
	}
	if out.Items == nil || len(out.Items) != 0 {
		t.Errorf("Items = %#v, want empty slice", out.Items)
	}
}
