package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/casevault/lexindex/pkg/types"
)

// SearchPages runs a ranked full-text match over page text
func (s *SQLiteStore) SearchPages(ctx context.Context, match string, filters *SearchFilters, limit int) ([]PageHit, error) {
	return searchPages(ctx, s.querier(), match, filters, limit)
}

// SearchMuniSections runs a ranked full-text match over municipal code sections
func (s *SQLiteStore) SearchMuniSections(ctx context.Context, match, county, municipality string, limit int) ([]*MuniSection, error) {
	return searchMuniSections(ctx, s.querier(), match, county, municipality, limit)
}

// ListMuniSections lists sections most recently retrieved first
func (s *SQLiteStore) ListMuniSections(ctx context.Context, county, municipality string, limit int) ([]*MuniSection, error) {
	return listMuniSections(ctx, s.querier(), county, municipality, limit)
}

func searchPages(ctx context.Context, q querier, match string, filters *SearchFilters, limit int) ([]PageHit, error) {
	query := `
		SELECT p.id, p.document_id, p.page_number, p.text_content,
		       bm25(pages_fts) as score,
		       d.filename, d.document_type, d.source_system
		FROM pages_fts
		JOIN pages p ON p.id = pages_fts.rowid
		JOIN documents d ON d.document_id = p.document_id
		WHERE pages_fts MATCH ?
	`
	args := []interface{}{match}

	if filters != nil {
		if filters.SourceSystem != "" {
			query += " AND d.source_system = ?"
			args = append(args, filters.SourceSystem)
		}
		if filters.DocumentType != "" {
			query += " AND d.document_type = ?"
			args = append(args, filters.DocumentType)
		}
		if filters.DocumentID != "" {
			query += " AND p.document_id = ?"
			args = append(args, filters.DocumentID)
		}
	}

	query += " ORDER BY score LIMIT ?"
	args = append(args, limit)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: page search failed: %v", types.ErrIndexUnavailable, err)
	}
	defer func() { _ = rows.Close() }()

	hits := make([]PageHit, 0)
	for rows.Next() {
		var hit PageHit
		var filename, documentType sql.NullString
		err := rows.Scan(&hit.PageID, &hit.DocumentID, &hit.PageNumber,
			&hit.TextContent, &hit.Score, &filename, &documentType, &hit.SourceSystem)
		if err != nil {
			return nil, err
		}
		hit.Filename = filename.String
		hit.DocumentType = documentType.String
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: page search failed: %v", types.ErrIndexUnavailable, err)
	}
	return hits, nil
}

const muniSectionColumns = `s.id, s.source_id, s.section_citation, s.section_path, s.title,
	       s.text_content, s.effective_date, s.last_updated, s.source_url,
	       s.sha256, s.retrieved_at, s.created_at`

func scanMuniSections(rows *sql.Rows) ([]*MuniSection, error) {
	sections := make([]*MuniSection, 0)
	for rows.Next() {
		var sec MuniSection
		var hash []byte
		var sectionPath, title, effectiveDate, lastUpdated, sourceURL sql.NullString
		err := rows.Scan(&sec.ID, &sec.SourceID, &sec.SectionCitation, &sectionPath,
			&title, &sec.Text, &effectiveDate, &lastUpdated, &sourceURL,
			&hash, &sec.RetrievedAt, &sec.CreatedAt)
		if err != nil {
			return nil, err
		}
		copy(sec.SHA256[:], hash)
		sec.SectionPath = sectionPath.String
		sec.Title = title.String
		sec.EffectiveDate = effectiveDate.String
		sec.LastUpdated = lastUpdated.String
		sec.SourceURL = sourceURL.String
		sections = append(sections, &sec)
	}
	return sections, rows.Err()
}

func searchMuniSections(ctx context.Context, q querier, match, county, municipality string, limit int) ([]*MuniSection, error) {
	query := `
		SELECT ` + muniSectionColumns + `
		FROM muni_sections_fts
		JOIN muni_code_sections s ON s.id = muni_sections_fts.rowid
		JOIN muni_sources src ON src.id = s.source_id
		WHERE muni_sections_fts MATCH ?
	`
	args := []interface{}{match}
	if county != "" {
		query += " AND src.county = ?"
		args = append(args, county)
	}
	if municipality != "" {
		query += " AND src.municipality = ?"
		args = append(args, municipality)
	}
	query += " ORDER BY bm25(muni_sections_fts) LIMIT ?"
	args = append(args, limit)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: section search failed: %v", types.ErrIndexUnavailable, err)
	}
	defer func() { _ = rows.Close() }()

	sections, err := scanMuniSections(rows)
	if err != nil {
		return nil, fmt.Errorf("%w: section search failed: %v", types.ErrIndexUnavailable, err)
	}
	return sections, nil
}

func listMuniSections(ctx context.Context, q querier, county, municipality string, limit int) ([]*MuniSection, error) {
	query := `
		SELECT ` + muniSectionColumns + `
		FROM muni_code_sections s
		JOIN muni_sources src ON src.id = s.source_id
		WHERE 1=1
	`
	args := make([]interface{}, 0, 3)
	if county != "" {
		query += " AND src.county = ?"
		args = append(args, county)
	}
	if municipality != "" {
		query += " AND src.municipality = ?"
		args = append(args, municipality)
	}
	query += " ORDER BY s.retrieved_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanMuniSections(rows)
}

// ftsOperators are bare FTS5 keywords that act as operators unless quoted
var ftsOperators = map[string]bool{
	"AND":  true,
	"OR":   true,
	"NOT":  true,
	"NEAR": true,
}

// CleanMatchQuery sanitizes free text into a safe FTS5 MATCH expression.
// Characters with FTS5 syntax meaning are stripped, unbalanced quotes are
// dropped entirely, and bare operator keywords are quoted so they match as
// literal terms. Returns "" when nothing searchable remains.
func CleanMatchQuery(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case r == '"':
			b.WriteRune(r)
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			b.WriteRune(' ')
		case isAlphanumeric(r):
			b.WriteRune(r)
		default:
			// Punctuation becomes a separator so "state-of-the-art"
			// still matches its component terms
			b.WriteRune(' ')
		}
	}
	cleaned := b.String()

	if strings.Count(cleaned, `"`)%2 != 0 {
		cleaned = strings.ReplaceAll(cleaned, `"`, " ")
	}

	fields := strings.Fields(cleaned)
	for i, f := range fields {
		if ftsOperators[f] {
			fields[i] = `"` + f + `"`
		}
	}
	return strings.Join(fields, " ")
}

func isAlphanumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9') || r > 127
}
