package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

const (
	// CurrentSchemaVersion tracks the database schema version
	CurrentSchemaVersion = "1.0.0"
)

// Migration represents a database schema migration
type Migration struct {
	Version string
	Up      string
	Down    string
}

// AllMigrations contains all database migrations in order
var AllMigrations = []Migration{
	{
		Version: "1.0.0",
		Up:      migrationV1Up,
		Down:    migrationV1Down,
	},
}

const migrationV1Up = `
-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Documents table
CREATE TABLE IF NOT EXISTS documents (
    document_id TEXT PRIMARY KEY,
    content_hash BLOB NOT NULL,
    filename TEXT,
    original_location TEXT,
    source_system TEXT NOT NULL,
    document_type TEXT,
    metadata TEXT,
    indexed_at TIMESTAMP,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(content_hash, source_system)
);

CREATE INDEX IF NOT EXISTS idx_documents_source ON documents(source_system);
CREATE INDEX IF NOT EXISTS idx_documents_created ON documents(created_at);

-- Pages table
CREATE TABLE IF NOT EXISTS pages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    document_id TEXT NOT NULL,
    page_number INTEGER NOT NULL,
    text_content TEXT NOT NULL,
    FOREIGN KEY (document_id) REFERENCES documents(document_id) ON DELETE CASCADE,
    UNIQUE(document_id, page_number)
);

CREATE INDEX IF NOT EXISTS idx_pages_document ON pages(document_id);

-- Full-text search over page text
CREATE VIRTUAL TABLE IF NOT EXISTS pages_fts USING fts5(
    text_content,
    content='pages',
    content_rowid='id'
);

-- Triggers to keep FTS in sync
CREATE TRIGGER IF NOT EXISTS pages_ai AFTER INSERT ON pages BEGIN
    INSERT INTO pages_fts(rowid, text_content)
    VALUES (new.id, new.text_content);
END;

CREATE TRIGGER IF NOT EXISTS pages_ad AFTER DELETE ON pages BEGIN
    INSERT INTO pages_fts(pages_fts, rowid, text_content)
    VALUES ('delete', old.id, old.text_content);
END;

CREATE TRIGGER IF NOT EXISTS pages_au AFTER UPDATE ON pages BEGIN
    INSERT INTO pages_fts(pages_fts, rowid, text_content)
    VALUES ('delete', old.id, old.text_content);
    INSERT INTO pages_fts(rowid, text_content)
    VALUES (new.id, new.text_content);
END;

-- Citations ledger. No foreign key on document_id: citations are append-only
-- and may outlive the document they reference.
CREATE TABLE IF NOT EXISTS citations (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    analysis_id TEXT NOT NULL,
    document_id TEXT NOT NULL,
    page_number INTEGER NOT NULL,
    text_start INTEGER NOT NULL DEFAULT 0,
    text_end INTEGER NOT NULL DEFAULT 0,
    snippet TEXT,
    citation_rank INTEGER NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_citations_analysis ON citations(analysis_id);
CREATE INDEX IF NOT EXISTS idx_citations_document ON citations(document_id);

-- Municipal code sources
CREATE TABLE IF NOT EXISTS muni_sources (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    state TEXT NOT NULL,
    county TEXT NOT NULL,
    municipality TEXT NOT NULL,
    provider TEXT,
    base_url TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(state, county, municipality)
);

-- Municipal code sections
CREATE TABLE IF NOT EXISTS muni_code_sections (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    source_id INTEGER NOT NULL,
    section_citation TEXT NOT NULL,
    section_path TEXT,
    title TEXT,
    text_content TEXT NOT NULL,
    effective_date TEXT,
    last_updated TEXT,
    source_url TEXT,
    sha256 BLOB NOT NULL,
    retrieved_at TIMESTAMP NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (source_id) REFERENCES muni_sources(id) ON DELETE CASCADE,
    UNIQUE(source_id, section_citation)
);

CREATE INDEX IF NOT EXISTS idx_muni_sections_source ON muni_code_sections(source_id);
CREATE INDEX IF NOT EXISTS idx_muni_sections_retrieved ON muni_code_sections(retrieved_at);

-- Full-text search over municipal sections
CREATE VIRTUAL TABLE IF NOT EXISTS muni_sections_fts USING fts5(
    section_citation, title, text_content,
    content='muni_code_sections',
    content_rowid='id'
);

CREATE TRIGGER IF NOT EXISTS muni_sections_ai AFTER INSERT ON muni_code_sections BEGIN
    INSERT INTO muni_sections_fts(rowid, section_citation, title, text_content)
    VALUES (new.id, new.section_citation, new.title, new.text_content);
END;

CREATE TRIGGER IF NOT EXISTS muni_sections_ad AFTER DELETE ON muni_code_sections BEGIN
    INSERT INTO muni_sections_fts(muni_sections_fts, rowid, section_citation, title, text_content)
    VALUES ('delete', old.id, old.section_citation, old.title, old.text_content);
END;

CREATE TRIGGER IF NOT EXISTS muni_sections_au AFTER UPDATE ON muni_code_sections BEGIN
    INSERT INTO muni_sections_fts(muni_sections_fts, rowid, section_citation, title, text_content)
    VALUES ('delete', old.id, old.section_citation, old.title, old.text_content);
    INSERT INTO muni_sections_fts(rowid, section_citation, title, text_content)
    VALUES (new.id, new.section_citation, new.title, new.text_content);
END;
`

const migrationV1Down = `
-- Drop all tables in reverse order of dependencies
DROP TRIGGER IF EXISTS muni_sections_au;
DROP TRIGGER IF EXISTS muni_sections_ad;
DROP TRIGGER IF EXISTS muni_sections_ai;
DROP TRIGGER IF EXISTS pages_au;
DROP TRIGGER IF EXISTS pages_ad;
DROP TRIGGER IF EXISTS pages_ai;

DROP TABLE IF EXISTS muni_sections_fts;
DROP TABLE IF EXISTS muni_code_sections;
DROP TABLE IF EXISTS muni_sources;
DROP TABLE IF EXISTS citations;
DROP TABLE IF EXISTS pages_fts;
DROP TABLE IF EXISTS pages;
DROP TABLE IF EXISTS documents;
DROP TABLE IF EXISTS schema_version;
`

// ApplyMigrations runs all pending migrations
func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	// Check if schema_version table exists
	var tableName string
	err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableName)

	// Parse current version (default to 0.0.0 if no migrations applied or table doesn't exist)
	var currentVersion *semver.Version
	if err == sql.ErrNoRows {
		currentVersion = semver.MustParse("0.0.0")
	} else if err != nil {
		return fmt.Errorf("failed to check schema_version table: %w", err)
	} else {
		var currentVersionStr string
		err = db.QueryRowContext(ctx, "SELECT version FROM schema_version ORDER BY applied_at DESC LIMIT 1").Scan(&currentVersionStr)
		if err == sql.ErrNoRows || currentVersionStr == "" {
			currentVersion = semver.MustParse("0.0.0")
		} else if err != nil {
			return fmt.Errorf("failed to read schema_version: %w", err)
		} else {
			currentVersion, err = semver.NewVersion(currentVersionStr)
			if err != nil {
				return fmt.Errorf("invalid current schema version %s: %w", currentVersionStr, err)
			}
		}
	}

	// Run migrations in order
	for _, migration := range AllMigrations {
		migrationVersion, err := semver.NewVersion(migration.Version)
		if err != nil {
			return fmt.Errorf("invalid migration version %s: %w", migration.Version, err)
		}

		if !currentVersion.LessThan(migrationVersion) {
			continue // Already applied
		}

		if _, err := db.ExecContext(ctx, migration.Up); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration.Version, err)
		}

		if _, err := db.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", migration.Version); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", migration.Version, err)
		}

		currentVersion = migrationVersion
	}

	return nil
}

// RollbackMigration rolls back the most recent migration
func RollbackMigration(ctx context.Context, db *sql.DB) error {
	var currentVersion string
	err := db.QueryRowContext(ctx, "SELECT version FROM schema_version ORDER BY applied_at DESC LIMIT 1").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("no migrations to rollback: %w", err)
	}

	var migration *Migration
	for i := range AllMigrations {
		if AllMigrations[i].Version == currentVersion {
			migration = &AllMigrations[i]
			break
		}
	}

	if migration == nil {
		return fmt.Errorf("migration %s not found", currentVersion)
	}

	if _, err := db.ExecContext(ctx, migration.Down); err != nil {
		return fmt.Errorf("failed to rollback migration %s: %w", currentVersion, err)
	}

	if _, err := db.ExecContext(ctx, "DELETE FROM schema_version WHERE version = ?", currentVersion); err != nil {
		return fmt.Errorf("failed to remove migration record %s: %w", currentVersion, err)
	}

	return nil
}
