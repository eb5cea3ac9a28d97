package ops

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/hpungsan/citelink/internal/config"
	"github.com/hpungsan/citelink/internal/errors"
	"github.com/hpungsan/citelink/internal/exhibit"
)

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Project string
	Path    string // optional, default: ~/.citelink/imports/<project>-<timestamp>.jsonl
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Project  string `json:"project"`
	Path     string `json:"path"`
	Exhibits int    `json:"exhibits"`
	Files    int    `json:"files"`
}

// Export writes a project's exhibits and files as a JSONL file that Import
// reads back unchanged. The file is written to a temp name and renamed into
// place, so a failed export leaves any existing file intact.
func Export(ctx context.Context, database *sql.DB, cfg *config.Config, input ExportInput) (*ExportOutput, error) {
	project, snap, err := LoadSource(ctx, database, cfg, input.Project)
	if err != nil {
		return nil, err
	}

	exportPath := input.Path
	if exportPath == "" {
		exportPath, err = defaultExportPath(project, time.Now())
		if err != nil {
			return nil, err
		}
	}
	if err := ValidatePath(exportPath, PathCheckWrite, []string{".jsonl"}, cfg); err != nil {
		return nil, err
	}

	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := exportPath + "." + hex.EncodeToString(randBytes) + ".tmp"
	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	enc := json.NewEncoder(file)
	for _, e := range snap.Exhibits() {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewInternal(err)
		}
		if err := enc.Encode(exhibitRecord(e)); err != nil {
			return nil, errors.NewInternal(err)
		}
	}
	for _, f := range snap.Files() {
		if err := enc.Encode(fileRecord(f)); err != nil {
			return nil, errors.NewInternal(err)
		}
	}

	if err := file.Sync(); err != nil {
		return nil, errors.NewInternal(err)
	}
	// Close before rename (required on Windows).
	if err := file.Close(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to close export file: %w", err))
	}
	file = nil

	// os.Rename would follow a symlink at the destination
	if info, err := os.Lstat(exportPath); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return nil, errors.NewInvalidRequest("export path is a symlink")
	}
	if err := os.Rename(tempPath, exportPath); err != nil {
		if runtime.GOOS == "windows" {
			if _, statErr := os.Stat(exportPath); statErr == nil {
				return nil, errors.NewConflict("export destination already exists; choose a new path or delete the existing file")
			}
		}
		return nil, errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return &ExportOutput{
		Project:  project,
		Path:     exportPath,
		Exhibits: len(snap.Exhibits()),
		Files:    len(snap.Files()),
	}, nil
}

// exportRecord mirrors importRecord with empty fields dropped.
type exportRecord struct {
	Kind          string `json:"kind"`
	ExhibitRef    string `json:"exhibit_ref,omitempty"`
	Title         string `json:"title,omitempty"`
	ExhibitType   string `json:"exhibit_type,omitempty"`
	FileID        string `json:"file_id,omitempty"`
	IsKeyEvidence bool   `json:"is_key_evidence,omitempty"`
	ID            string `json:"id,omitempty"`
	Name          string `json:"name,omitempty"`
	Type          string `json:"type,omitempty"`
}

func exhibitRecord(e exhibit.Entry) exportRecord {
	return exportRecord{
		Kind:          KindExhibit,
		ExhibitRef:    e.ExhibitRef,
		Title:         e.Title,
		ExhibitType:   string(e.Type),
		FileID:        e.FileID,
		IsKeyEvidence: e.IsKeyEvidence,
	}
}

func fileRecord(f exhibit.File) exportRecord {
	return exportRecord{
		Kind:       KindFile,
		ID:         f.ID,
		Name:       f.Name,
		Type:       string(f.Type),
		ExhibitRef: f.ExhibitRef,
	}
}

// defaultExportPath puts exports in the imports directory so they can be
// imported back without touching allowed_paths.
func defaultExportPath(project string, now time.Time) (string, error) {
	dir, err := DefaultImportsDir()
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("%s-%s.jsonl", sanitizeForFilename(project), now.Format("2006-01-02T150405"))
	return filepath.Join(dir, name), nil
}

// sanitizeForFilename keeps letters, digits, '-' and '_'.
func sanitizeForFilename(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "project"
	}
	return b.String()
}
