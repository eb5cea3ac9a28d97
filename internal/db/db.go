package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/citelink/internal/config"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// FileName is the database file inside the base directory.
const FileName = "citelink.db"

// ImportsDir is the default import directory inside the base directory.
const ImportsDir = "imports"

// Init initializes the SQLite database at baseDir/citelink.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.citelink.
func Init(baseDir string) (*sql.DB, error) {
	// Create base directory with restricted permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	// Explicit chmod (best-effort, may not work on all platforms)
	_ = os.Chmod(baseDir, 0700)

	// Imports are read from here unless allowed_paths says otherwise
	importsDir := filepath.Join(baseDir, ImportsDir)
	if err := os.MkdirAll(importsDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create imports directory: %w", err)
	}
	_ = os.Chmod(importsDir, 0700)

	// Open database with pragmas in connection string (applies to all connections)
	dbPath := filepath.Join(baseDir, FileName)
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify WAL mode is active
	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	// Run migrations (this creates the file if it doesn't exist)
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	// Set file permissions after file exists (best-effort)
	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
// Call after Init if you need to tune pool behavior for contention.
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: exhibit directory, file collection, citation history
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS exhibits (
		  project         TEXT NOT NULL,
		  exhibit_ref     TEXT NOT NULL,
		  title           TEXT NOT NULL,
		  exhibit_type    TEXT NOT NULL,
		  file_id         TEXT,
		  is_key_evidence INTEGER NOT NULL DEFAULT 0,
		  position        INTEGER NOT NULL,
		  PRIMARY KEY (project, exhibit_ref)
		);

		CREATE TABLE IF NOT EXISTS files (
		  project     TEXT NOT NULL,
		  id          TEXT NOT NULL,
		  name        TEXT NOT NULL,
		  file_type   TEXT NOT NULL,
		  exhibit_ref TEXT,
		  position    INTEGER NOT NULL,
		  PRIMARY KEY (project, id)
		);

		CREATE INDEX IF NOT EXISTS idx_files_project_exhibit
		ON files(project, exhibit_ref)
		WHERE exhibit_ref IS NOT NULL;

		CREATE TABLE IF NOT EXISTS history (
		  id                 TEXT PRIMARY KEY,
		  project            TEXT NOT NULL,
		  exhibit_ref        TEXT NOT NULL,
		  citation_reference TEXT NOT NULL,
		  last_accessed_at   INTEGER NOT NULL,
		  access_count       INTEGER NOT NULL
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_history_project_reference
		ON history(project, citation_reference);

		CREATE INDEX IF NOT EXISTS idx_history_project_accessed
		ON history(project, last_accessed_at DESC);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Future migrations go here:
	// if version < 2 { ... }

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
