package db

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/hpungsan/citelink/internal/errors"
	"github.com/hpungsan/citelink/internal/exhibit"
	"github.com/hpungsan/citelink/internal/history"
)

// ProjectSummary counts what a project holds.
type ProjectSummary struct {
	Project  string `json:"project"`
	Exhibits int    `json:"exhibits"`
	Files    int    `json:"files"`
}

// ReplaceProject swaps a project's exhibit directory and file collection for
// the given records in one transaction. Readers see either the old set or the
// new one.
func ReplaceProject(ctx context.Context, db *sql.DB, project string, exhibits []exhibit.Entry, files []exhibit.File) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM exhibits WHERE project = ?`, project); err != nil {
		return errors.NewInternal(err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE project = ?`, project); err != nil {
		return errors.NewInternal(err)
	}

	for i, e := range exhibits {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO exhibits (project, exhibit_ref, title, exhibit_type, file_id, is_key_evidence, position)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, project, e.ExhibitRef, e.Title, string(e.Type), toNullString(e.FileID), boolToInt(e.IsKeyEvidence), i)
		if err != nil {
			if isUniqueConstraintError(err) {
				return errors.NewConflict("duplicate exhibit_ref: " + e.ExhibitRef)
			}
			return errors.NewInternal(err)
		}
	}
	for i, f := range files {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO files (project, id, name, file_type, exhibit_ref, position)
			VALUES (?, ?, ?, ?, ?, ?)
		`, project, f.ID, f.Name, string(f.Type), toNullString(f.ExhibitRef), i)
		if err != nil {
			if isUniqueConstraintError(err) {
				return errors.NewConflict("duplicate file id: " + f.ID)
			}
			return errors.NewInternal(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// LoadSnapshot reads a project's directory and files in import order.
// A project with no rows yields an empty snapshot, not an error.
func LoadSnapshot(ctx context.Context, db *sql.DB, project string) (*exhibit.Snapshot, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT exhibit_ref, title, exhibit_type, file_id, is_key_evidence
		FROM exhibits
		WHERE project = ?
		ORDER BY position
	`, project)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	var exhibits []exhibit.Entry
	for rows.Next() {
		var (
			e      exhibit.Entry
			typ    string
			fileID sql.NullString
			key    int
		)
		if err := rows.Scan(&e.ExhibitRef, &e.Title, &typ, &fileID, &key); err != nil {
			rows.Close()
			return nil, errors.NewInternal(err)
		}
		e.Type = exhibit.Type(typ)
		e.FileID = fileID.String
		e.IsKeyEvidence = key != 0
		exhibits = append(exhibits, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, errors.NewInternal(err)
	}
	rows.Close()

	rows, err = db.QueryContext(ctx, `
		SELECT id, name, file_type, exhibit_ref
		FROM files
		WHERE project = ?
		ORDER BY position
	`, project)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()
	var files []exhibit.File
	for rows.Next() {
		var (
			f   exhibit.File
			typ string
			ref sql.NullString
		)
		if err := rows.Scan(&f.ID, &f.Name, &typ, &ref); err != nil {
			return nil, errors.NewInternal(err)
		}
		f.Type = exhibit.Type(typ)
		f.ExhibitRef = ref.String
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return exhibit.NewSnapshot(exhibits, files), nil
}

// ListProjects summarizes every project with at least one exhibit or file.
func ListProjects(ctx context.Context, db *sql.DB) ([]ProjectSummary, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT project, SUM(is_exhibit), SUM(1 - is_exhibit) FROM (
			SELECT project, 1 AS is_exhibit FROM exhibits
			UNION ALL
			SELECT project, 0 AS is_exhibit FROM files
		)
		GROUP BY project
		ORDER BY project
	`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var out []ProjectSummary
	for rows.Next() {
		var p ProjectSummary
		if err := rows.Scan(&p.Project, &p.Exhibits, &p.Files); err != nil {
			return nil, errors.NewInternal(err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

// HistoryStore is a history.Store scoped to one project.
type HistoryStore struct {
	db      *sql.DB
	project string
}

// NewHistoryStore returns the history store for project.
func NewHistoryStore(db *sql.DB, project string) *HistoryStore {
	return &HistoryStore{db: db, project: project}
}

var _ history.Store = (*HistoryStore)(nil)

// Get returns the entry for citationReference.
func (s *HistoryStore) Get(ctx context.Context, citationReference string) (history.Entry, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, exhibit_ref, citation_reference, last_accessed_at, access_count
		FROM history
		WHERE project = ? AND citation_reference = ?
	`, s.project, citationReference)
	e, err := scanHistory(row)
	if err == sql.ErrNoRows {
		return history.Entry{}, false, nil
	}
	if err != nil {
		return history.Entry{}, false, err
	}
	return e, true, nil
}

// Visit inserts e or, when the reference is already logged, bumps the stored
// row in the same statement so concurrent visits never lose a count.
func (s *HistoryStore) Visit(ctx context.Context, e history.Entry) (history.Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO history (id, project, exhibit_ref, citation_reference, last_accessed_at, access_count)
		VALUES (?, ?, ?, ?, ?, 1)
		ON CONFLICT(project, citation_reference) DO UPDATE SET
			exhibit_ref = CASE WHEN excluded.exhibit_ref <> '' THEN excluded.exhibit_ref ELSE history.exhibit_ref END,
			last_accessed_at = excluded.last_accessed_at,
			access_count = history.access_count + 1
		RETURNING id, exhibit_ref, citation_reference, last_accessed_at, access_count
	`, e.ID, s.project, e.ExhibitRef, e.CitationReference, e.LastAccessedAt.UnixNano())
	return scanHistory(row)
}

// List returns the project's entries, most recently accessed first.
func (s *HistoryStore) List(ctx context.Context) ([]history.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, exhibit_ref, citation_reference, last_accessed_at, access_count
		FROM history
		WHERE project = ?
		ORDER BY last_accessed_at DESC, citation_reference ASC
	`, s.project)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []history.Entry
	for rows.Next() {
		e, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Clear deletes the project's history.
func (s *HistoryStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM history WHERE project = ?`, s.project)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHistory(row rowScanner) (history.Entry, error) {
	var (
		e    history.Entry
		nano int64
	)
	if err := row.Scan(&e.ID, &e.ExhibitRef, &e.CitationReference, &nano, &e.AccessCount); err != nil {
		return history.Entry{}, err
	}
	e.LastAccessedAt = time.Unix(0, nano).UTC()
	return e, nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite returns "UNIQUE constraint failed: ..." for unique violations
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
