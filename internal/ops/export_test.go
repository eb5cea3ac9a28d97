package ops

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hpungsan/citelink/internal/db"
	"github.com/hpungsan/citelink/internal/errors"
)

func TestExport_RoundTripsThroughImport(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)
	cfg, dir := testConfig(t)
	importSample(t, database, cfg, dir, "acme")

	exportPath := filepath.Join(dir, "acme-export.jsonl")
	out, err := Export(ctx, database, cfg, ExportInput{Project: "acme", Path: exportPath})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if out.Path != exportPath {
		t.Errorf("Path = %q, want %q", out.Path, exportPath)
	}
	if out.Exhibits != 3 || out.Files != 2 {
		t.Errorf("counts = %d/%d, want 3/2", out.Exhibits, out.Files)
	}

	file, err := os.Open(exportPath)
	if err != nil {
		t.Fatalf("failed to open export file: %v", err)
	}
	defer file.Close()
	lines := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var rec map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("line %d is not JSON: %v", lines+1, err)
		}
		lines++
	}
	if lines != 5 {
		t.Errorf("lines = %d, want 5", lines)
	}

	imported, err := Import(ctx, database, cfg, ImportInput{Project: "copy", Path: exportPath})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if len(imported.Errors) != 0 {
		t.Fatalf("Import() rejected records: %+v", imported.Errors)
	}

	orig, err := db.LoadSnapshot(ctx, database, "acme")
	if err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}
	copied, err := db.LoadSnapshot(ctx, database, "copy")
	if err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}
	for i, e := range orig.Exhibits() {
		if got := copied.Exhibits()[i]; got != e {
			t.Errorf("exhibit %d = %+v, want %+v", i, got, e)
		}
	}
	for i, f := range orig.Files() {
		if got := copied.Files()[i]; got != f {
			t.Errorf("file %d = %+v, want %+v", i, got, f)
		}
	}
}

func TestExport_ReplacesExistingFile(t *testing.T) {
	database := setupTestDB(t)
	cfg, dir := testConfig(t)
	importSample(t, database, cfg, dir, "acme")

	exportPath := filepath.Join(dir, "acme.jsonl")
	writeFile(t, exportPath, "stale\n")
	if _, err := Export(context.Background(), database, cfg, ExportInput{Project: "acme", Path: exportPath}); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	data, err := os.ReadFile(exportPath)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if strings.Contains(string(data), "stale") {
		t.Error("existing file was not replaced")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestExport_PathRules(t *testing.T) {
	database := setupTestDB(t)
	cfg, dir := testConfig(t)
	importSample(t, database, cfg, dir, "acme")
	ctx := context.Background()

	_, err := Export(ctx, database, cfg, ExportInput{Project: "acme", Path: filepath.Join(dir, "acme.json")})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("wrong extension: error = %v, want INVALID_REQUEST", err)
	}

	_, err = Export(ctx, database, cfg, ExportInput{Project: "acme", Path: filepath.Join(t.TempDir(), "acme.jsonl")})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("outside allowed paths: error = %v, want INVALID_REQUEST", err)
	}

	_, err = Export(ctx, database, cfg, ExportInput{Path: filepath.Join(dir, "x.jsonl")})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("no project: error = %v, want INVALID_REQUEST", err)
	}
}

func TestExport_DefaultPath(t *testing.T) {
	base := t.TempDir()
	t.Setenv("CITELINK_HOME", base)

	now := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	got, err := defaultExportPath("smith-v-jones", now)
	if err != nil {
		t.Fatalf("defaultExportPath() error = %v", err)
	}
	want := filepath.Join(base, db.ImportsDir, "smith-v-jones-2026-03-04T050607.jsonl")
	if got != want {
		t.Errorf("defaultExportPath() = %q, want %q", got, want)
	}
}

func TestSanitizeForFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"acme", "acme"},
		{"smith-v-jones", "smith-v-jones"},
		{"a:b.c", "a_b_c"},
		{"", "project"},
	}
	for _, tt := range tests {
		if got := sanitizeForFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeForFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
