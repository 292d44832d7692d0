package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/casevault/lexindex/pkg/types"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Single connection: the core assumes single-writer-at-a-time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStore) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, store: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx    *sql.Tx
	store *SQLiteStore
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

func (t *sqliteTx) querier() querier {
	return t.tx
}

func (s *SQLiteStore) querier() querier {
	return s.db
}

// Document operations

func (s *SQLiteStore) insertDocumentWithQuerier(ctx context.Context, q querier, doc *Document) error {
	var metadata any
	if doc.Metadata != nil {
		blob, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode metadata: %w", err)
		}
		metadata = string(blob)
	}

	query := `
		INSERT INTO documents (document_id, content_hash, filename, original_location,
		                       source_system, document_type, metadata, indexed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	indexedAt := doc.IndexedAt
	if indexedAt.IsZero() {
		indexedAt = now
	}
	_, err := q.ExecContext(ctx, query,
		doc.DocumentID, doc.ContentHash[:], doc.Filename, doc.OriginalLocation,
		doc.SourceSystem, doc.DocumentType, metadata, indexedAt, now)
	if err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	doc.IndexedAt = indexedAt
	doc.CreatedAt = now
	return nil
}

func (s *SQLiteStore) InsertDocument(ctx context.Context, doc *Document) error {
	return s.insertDocumentWithQuerier(ctx, s.querier(), doc)
}

func scanDocument(row *sql.Row) (*Document, error) {
	var doc Document
	var hash []byte
	var filename, originalLocation, documentType, metadata sql.NullString
	var indexedAt sql.NullTime
	err := row.Scan(
		&doc.DocumentID, &hash, &filename, &originalLocation,
		&doc.SourceSystem, &documentType, &metadata, &indexedAt, &doc.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	copy(doc.ContentHash[:], hash)
	doc.Filename = filename.String
	doc.OriginalLocation = originalLocation.String
	doc.DocumentType = documentType.String
	if indexedAt.Valid {
		doc.IndexedAt = indexedAt.Time
	}
	if metadata.Valid && metadata.String != "" {
		var m types.Metadata
		if err := json.Unmarshal([]byte(metadata.String), &m); err != nil {
			return nil, fmt.Errorf("failed to decode metadata: %w", err)
		}
		doc.Metadata = m
	}
	return &doc, nil
}

const documentColumns = `document_id, content_hash, filename, original_location,
	       source_system, document_type, metadata, indexed_at, created_at`

func (s *SQLiteStore) getDocumentWithQuerier(ctx context.Context, q querier, documentID string) (*Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE document_id = ?`
	return scanDocument(q.QueryRowContext(ctx, query, documentID))
}

func (s *SQLiteStore) GetDocument(ctx context.Context, documentID string) (*Document, error) {
	return s.getDocumentWithQuerier(ctx, s.querier(), documentID)
}

func (s *SQLiteStore) getDocumentByHashWithQuerier(ctx context.Context, q querier, contentHash [32]byte, sourceSystem string) (*Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE content_hash = ? AND source_system = ?`
	return scanDocument(q.QueryRowContext(ctx, query, contentHash[:], sourceSystem))
}

func (s *SQLiteStore) GetDocumentByHash(ctx context.Context, contentHash [32]byte, sourceSystem string) (*Document, error) {
	return s.getDocumentByHashWithQuerier(ctx, s.querier(), contentHash, sourceSystem)
}

func (s *SQLiteStore) deleteDocumentWithQuerier(ctx context.Context, q querier, documentID string) (bool, error) {
	// Pages (and their FTS rows) go with the document via cascade + triggers
	result, err := q.ExecContext(ctx, `DELETE FROM documents WHERE document_id = ?`, documentID)
	if err != nil {
		return false, fmt.Errorf("failed to delete document: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *SQLiteStore) DeleteDocument(ctx context.Context, documentID string) (bool, error) {
	return s.deleteDocumentWithQuerier(ctx, s.querier(), documentID)
}

func (s *SQLiteStore) listDocumentsWithQuerier(ctx context.Context, q querier, sourceSystem string, limit int) ([]*DocumentSummary, error) {
	query := `
		SELECT d.document_id, d.filename, d.source_system, d.document_type,
		       COUNT(p.id), d.created_at
		FROM documents d
		LEFT JOIN pages p ON p.document_id = d.document_id
	`
	args := make([]interface{}, 0, 2)
	if sourceSystem != "" {
		query += " WHERE d.source_system = ?"
		args = append(args, sourceSystem)
	}
	query += " GROUP BY d.document_id ORDER BY d.created_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	summaries := make([]*DocumentSummary, 0)
	for rows.Next() {
		var sum DocumentSummary
		var filename, documentType sql.NullString
		err := rows.Scan(&sum.DocumentID, &filename, &sum.SourceSystem,
			&documentType, &sum.PageCount, &sum.CreatedAt)
		if err != nil {
			return nil, err
		}
		sum.Filename = filename.String
		sum.DocumentType = documentType.String
		summaries = append(summaries, &sum)
	}
	return summaries, rows.Err()
}

func (s *SQLiteStore) ListDocuments(ctx context.Context, sourceSystem string, limit int) ([]*DocumentSummary, error) {
	return s.listDocumentsWithQuerier(ctx, s.querier(), sourceSystem, limit)
}

// Page operations

func (s *SQLiteStore) insertPageWithQuerier(ctx context.Context, q querier, page *Page) error {
	query := `INSERT INTO pages (document_id, page_number, text_content) VALUES (?, ?, ?)`
	result, err := q.ExecContext(ctx, query, page.DocumentID, page.PageNumber, page.TextContent)
	if err != nil {
		return fmt.Errorf("failed to insert page %d: %w", page.PageNumber, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	page.ID = id
	return nil
}

func (s *SQLiteStore) InsertPage(ctx context.Context, page *Page) error {
	return s.insertPageWithQuerier(ctx, s.querier(), page)
}

func (s *SQLiteStore) listPagesWithQuerier(ctx context.Context, q querier, documentID string) ([]*Page, error) {
	query := `
		SELECT id, document_id, page_number, text_content
		FROM pages
		WHERE document_id = ?
		ORDER BY page_number
	`
	rows, err := q.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	pages := make([]*Page, 0)
	for rows.Next() {
		var page Page
		if err := rows.Scan(&page.ID, &page.DocumentID, &page.PageNumber, &page.TextContent); err != nil {
			return nil, err
		}
		pages = append(pages, &page)
	}
	return pages, rows.Err()
}

func (s *SQLiteStore) ListPages(ctx context.Context, documentID string) ([]*Page, error) {
	return s.listPagesWithQuerier(ctx, s.querier(), documentID)
}

// Citation operations

func (s *SQLiteStore) insertCitationWithQuerier(ctx context.Context, q querier, c *Citation) error {
	query := `
		INSERT INTO citations (analysis_id, document_id, page_number, text_start,
		                       text_end, snippet, citation_rank, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	result, err := q.ExecContext(ctx, query,
		c.AnalysisID, c.DocumentID, c.PageNumber, c.TextStart,
		c.TextEnd, c.Snippet, c.Rank, now)
	if err != nil {
		return fmt.Errorf("failed to insert citation: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = id
	c.CreatedAt = now
	return nil
}

func (s *SQLiteStore) InsertCitation(ctx context.Context, c *Citation) error {
	return s.insertCitationWithQuerier(ctx, s.querier(), c)
}

func (s *SQLiteStore) listCitationsWithQuerier(ctx context.Context, q querier, analysisID string) ([]*Citation, error) {
	query := `
		SELECT id, analysis_id, document_id, page_number, text_start, text_end,
		       snippet, citation_rank, created_at
		FROM citations
		WHERE analysis_id = ?
		ORDER BY citation_rank
	`
	rows, err := q.QueryContext(ctx, query, analysisID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	citations := make([]*Citation, 0)
	for rows.Next() {
		var c Citation
		var snippet sql.NullString
		err := rows.Scan(&c.ID, &c.AnalysisID, &c.DocumentID, &c.PageNumber,
			&c.TextStart, &c.TextEnd, &snippet, &c.Rank, &c.CreatedAt)
		if err != nil {
			return nil, err
		}
		c.Snippet = snippet.String
		citations = append(citations, &c)
	}
	return citations, rows.Err()
}

func (s *SQLiteStore) ListCitations(ctx context.Context, analysisID string) ([]*Citation, error) {
	return s.listCitationsWithQuerier(ctx, s.querier(), analysisID)
}

func (s *SQLiteStore) maxCitationRankWithQuerier(ctx context.Context, q querier, analysisID string) (int, error) {
	var maxRank int
	err := q.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(citation_rank), 0) FROM citations WHERE analysis_id = ?`,
		analysisID).Scan(&maxRank)
	if err != nil {
		return 0, err
	}
	return maxRank, nil
}

func (s *SQLiteStore) MaxCitationRank(ctx context.Context, analysisID string) (int, error) {
	return s.maxCitationRankWithQuerier(ctx, s.querier(), analysisID)
}

func (s *SQLiteStore) citationStatsWithQuerier(ctx context.Context, q querier, documentID string) (*types.CitationStats, error) {
	query := `
		SELECT COUNT(*), COUNT(DISTINCT analysis_id), MIN(created_at), MAX(created_at)
		FROM citations
		WHERE document_id = ?
	`
	stats := &types.CitationStats{DocumentID: documentID}
	var first, last sql.NullTime
	err := q.QueryRowContext(ctx, query, documentID).Scan(
		&stats.TotalCitations, &stats.AnalysesCount, &first, &last)
	if err != nil {
		return nil, err
	}
	if first.Valid {
		stats.FirstCited = first.Time
	}
	if last.Valid {
		stats.LastCited = last.Time
	}
	return stats, nil
}

func (s *SQLiteStore) CitationStats(ctx context.Context, documentID string) (*types.CitationStats, error) {
	return s.citationStatsWithQuerier(ctx, s.querier(), documentID)
}

// Municipal code operations

func (s *SQLiteStore) upsertMuniSourceWithQuerier(ctx context.Context, q querier, src *MuniSource) error {
	query := `
		INSERT INTO muni_sources (state, county, municipality, provider, base_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(state, county, municipality) DO UPDATE SET
			provider = excluded.provider,
			base_url = excluded.base_url
		RETURNING id, created_at
	`
	now := time.Now()
	err := q.QueryRowContext(ctx, query,
		src.State, src.County, src.Municipality, src.Provider, src.BaseURL, now,
	).Scan(&src.ID, &src.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert municipal source: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpsertMuniSource(ctx context.Context, src *MuniSource) error {
	return s.upsertMuniSourceWithQuerier(ctx, s.querier(), src)
}

func (s *SQLiteStore) getMuniSourceWithQuerier(ctx context.Context, q querier, state, county, municipality string) (*MuniSource, error) {
	query := `
		SELECT id, state, county, municipality, provider, base_url, created_at
		FROM muni_sources
		WHERE state = ? AND county = ? AND municipality = ?
	`
	var src MuniSource
	var provider, baseURL sql.NullString
	err := q.QueryRowContext(ctx, query, state, county, municipality).Scan(
		&src.ID, &src.State, &src.County, &src.Municipality,
		&provider, &baseURL, &src.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	src.Provider = provider.String
	src.BaseURL = baseURL.String
	return &src, nil
}

func (s *SQLiteStore) GetMuniSource(ctx context.Context, state, county, municipality string) (*MuniSource, error) {
	return s.getMuniSourceWithQuerier(ctx, s.querier(), state, county, municipality)
}

func (s *SQLiteStore) upsertMuniSectionWithQuerier(ctx context.Context, q querier, sec *MuniSection) error {
	// Row identity is preserved on conflict so citations pointing at the
	// section indirectly keep resolving across re-ingestions.
	query := `
		INSERT INTO muni_code_sections (
			source_id, section_citation, section_path, title, text_content,
			effective_date, last_updated, source_url, sha256, retrieved_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_id, section_citation) DO UPDATE SET
			section_path = excluded.section_path,
			title = excluded.title,
			text_content = excluded.text_content,
			effective_date = excluded.effective_date,
			last_updated = excluded.last_updated,
			source_url = excluded.source_url,
			sha256 = excluded.sha256,
			retrieved_at = excluded.retrieved_at
		RETURNING id, created_at
	`
	now := time.Now()
	sec.RetrievedAt = now
	err := q.QueryRowContext(ctx, query,
		sec.SourceID, sec.SectionCitation, sec.SectionPath, sec.Title, sec.Text,
		sec.EffectiveDate, sec.LastUpdated, sec.SourceURL, sec.SHA256[:], now, now,
	).Scan(&sec.ID, &sec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert municipal section: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpsertMuniSection(ctx context.Context, sec *MuniSection) error {
	return s.upsertMuniSectionWithQuerier(ctx, s.querier(), sec)
}

// Status operations

func (s *SQLiteStore) GetStatus(ctx context.Context) (*Status, error) {
	status := &Status{}

	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM documents", &status.DocumentCount},
		{"SELECT COUNT(*) FROM pages", &status.PageCount},
		{"SELECT COUNT(*) FROM citations", &status.CitationCount},
		{"SELECT COUNT(DISTINCT analysis_id) FROM citations", &status.AnalysisCount},
		{"SELECT COUNT(*) FROM muni_sources", &status.MuniSourceCount},
		{"SELECT COUNT(*) FROM muni_code_sections", &status.MuniSectionCount},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, err
		}
	}

	var pageCount, pageSize int
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.DBSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	status.Health = HealthStatus{
		DatabaseAccessible: true,
		FTSIndexBuilt:      true, // FTS tables are created with migrations
	}

	return status, nil
}

// Transaction implementations

func (t *sqliteTx) InsertDocument(ctx context.Context, doc *Document) error {
	return t.store.insertDocumentWithQuerier(ctx, t.querier(), doc)
}

func (t *sqliteTx) GetDocument(ctx context.Context, documentID string) (*Document, error) {
	return t.store.getDocumentWithQuerier(ctx, t.querier(), documentID)
}

func (t *sqliteTx) GetDocumentByHash(ctx context.Context, contentHash [32]byte, sourceSystem string) (*Document, error) {
	return t.store.getDocumentByHashWithQuerier(ctx, t.querier(), contentHash, sourceSystem)
}

func (t *sqliteTx) DeleteDocument(ctx context.Context, documentID string) (bool, error) {
	return t.store.deleteDocumentWithQuerier(ctx, t.querier(), documentID)
}

func (t *sqliteTx) ListDocuments(ctx context.Context, sourceSystem string, limit int) ([]*DocumentSummary, error) {
	return t.store.listDocumentsWithQuerier(ctx, t.querier(), sourceSystem, limit)
}

func (t *sqliteTx) InsertPage(ctx context.Context, page *Page) error {
	return t.store.insertPageWithQuerier(ctx, t.querier(), page)
}

func (t *sqliteTx) ListPages(ctx context.Context, documentID string) ([]*Page, error) {
	return t.store.listPagesWithQuerier(ctx, t.querier(), documentID)
}

func (t *sqliteTx) SearchPages(ctx context.Context, match string, filters *SearchFilters, limit int) ([]PageHit, error) {
	return searchPages(ctx, t.querier(), match, filters, limit)
}

func (t *sqliteTx) InsertCitation(ctx context.Context, c *Citation) error {
	return t.store.insertCitationWithQuerier(ctx, t.querier(), c)
}

func (t *sqliteTx) ListCitations(ctx context.Context, analysisID string) ([]*Citation, error) {
	return t.store.listCitationsWithQuerier(ctx, t.querier(), analysisID)
}

func (t *sqliteTx) MaxCitationRank(ctx context.Context, analysisID string) (int, error) {
	return t.store.maxCitationRankWithQuerier(ctx, t.querier(), analysisID)
}

func (t *sqliteTx) CitationStats(ctx context.Context, documentID string) (*types.CitationStats, error) {
	return t.store.citationStatsWithQuerier(ctx, t.querier(), documentID)
}

func (t *sqliteTx) UpsertMuniSource(ctx context.Context, src *MuniSource) error {
	return t.store.upsertMuniSourceWithQuerier(ctx, t.querier(), src)
}

func (t *sqliteTx) GetMuniSource(ctx context.Context, state, county, municipality string) (*MuniSource, error) {
	return t.store.getMuniSourceWithQuerier(ctx, t.querier(), state, county, municipality)
}

func (t *sqliteTx) UpsertMuniSection(ctx context.Context, sec *MuniSection) error {
	return t.store.upsertMuniSectionWithQuerier(ctx, t.querier(), sec)
}

func (t *sqliteTx) SearchMuniSections(ctx context.Context, match, county, municipality string, limit int) ([]*MuniSection, error) {
	return searchMuniSections(ctx, t.querier(), match, county, municipality, limit)
}

func (t *sqliteTx) ListMuniSections(ctx context.Context, county, municipality string, limit int) ([]*MuniSection, error) {
	return listMuniSections(ctx, t.querier(), county, municipality, limit)
}

func (t *sqliteTx) GetStatus(ctx context.Context) (*Status, error) {
	return t.store.GetStatus(ctx)
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	return nil, errors.New("nested transactions not supported")
}
