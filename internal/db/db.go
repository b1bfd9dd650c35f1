package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"stencil/internal/config"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// DBTX is satisfied by both *sql.DB and *sql.Tx so queries compose into
// transactions where edits need atomicity.
type DBTX interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Init initializes the SQLite database at baseDir/stencil.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.stencil.
func Init(baseDir string) (*sql.DB, error) {
	// Create base directory with restricted permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	_ = os.Chmod(baseDir, 0700)

	// Exported PDFs land here
	exportsDir := filepath.Join(baseDir, "exports")
	if err := os.MkdirAll(exportsDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create exports directory: %w", err)
	}
	_ = os.Chmod(exportsDir, 0700)

	// Open database with pragmas in connection string (applies to all connections)
	dbPath := filepath.Join(baseDir, "stencil.db")
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
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

	// Migration 0 -> 1: Initial schema (v1)
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS templates (
		  id                TEXT PRIMARY KEY,
		  name              TEXT NOT NULL,
		  format            TEXT NOT NULL,
		  content_hash      TEXT NOT NULL,
		  body              TEXT NOT NULL,
		  placeholder_count INTEGER NOT NULL,
		  created_at        INTEGER NOT NULL,
		  updated_at        INTEGER NOT NULL
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_templates_name
		ON templates(name);

		CREATE INDEX IF NOT EXISTS idx_templates_content_hash
		ON templates(content_hash);

		CREATE TABLE IF NOT EXISTS documents (
		  id            TEXT PRIMARY KEY,
		  lineage_id    TEXT NOT NULL,
		  template_id   TEXT NOT NULL,
		  fields_json   TEXT NOT NULL,
		  status        TEXT NOT NULL,
		  output_ref    TEXT,
		  failure_code  TEXT,
		  generated_at  INTEGER NOT NULL,
		  current       INTEGER NOT NULL DEFAULT 1,
		  superseded_by TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_documents_lineage
		ON documents(lineage_id, generated_at);

		CREATE INDEX IF NOT EXISTS idx_documents_template
		ON documents(template_id);

		CREATE TABLE IF NOT EXISTS edit_records (
		  id                    TEXT PRIMARY KEY,
		  document_id           TEXT NOT NULL,
		  lineage_id            TEXT NOT NULL,
		  changed_keys_json     TEXT NOT NULL,
		  prior_fields_json     TEXT NOT NULL,
		  quota_before          INTEGER NOT NULL,
		  fee_cents             INTEGER NOT NULL,
		  resulting_document_id TEXT,
		  kind                  TEXT NOT NULL,
		  cycle                 TEXT NOT NULL,
		  created_at            INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_edit_records_lineage_cycle
		ON edit_records(lineage_id, cycle);

		CREATE INDEX IF NOT EXISTS idx_edit_records_document
		ON edit_records(document_id);
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
