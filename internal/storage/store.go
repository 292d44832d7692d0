package storage

import (
	"context"
	"time"

	"github.com/casevault/lexindex/pkg/types"
)

// Store defines the interface for persisting and querying the document corpus
type Store interface {
	// Document operations
	InsertDocument(ctx context.Context, doc *Document) error
	GetDocument(ctx context.Context, documentID string) (*Document, error)
	GetDocumentByHash(ctx context.Context, contentHash [32]byte, sourceSystem string) (*Document, error)
	DeleteDocument(ctx context.Context, documentID string) (bool, error)
	ListDocuments(ctx context.Context, sourceSystem string, limit int) ([]*DocumentSummary, error)

	// Page operations
	InsertPage(ctx context.Context, page *Page) error
	ListPages(ctx context.Context, documentID string) ([]*Page, error)

	// Ranked page search over the FTS index
	SearchPages(ctx context.Context, match string, filters *SearchFilters, limit int) ([]PageHit, error)

	// Citation operations
	InsertCitation(ctx context.Context, c *Citation) error
	ListCitations(ctx context.Context, analysisID string) ([]*Citation, error)
	MaxCitationRank(ctx context.Context, analysisID string) (int, error)
	CitationStats(ctx context.Context, documentID string) (*types.CitationStats, error)

	// Municipal code operations
	UpsertMuniSource(ctx context.Context, src *MuniSource) error
	GetMuniSource(ctx context.Context, state, county, municipality string) (*MuniSource, error)
	UpsertMuniSection(ctx context.Context, sec *MuniSection) error
	SearchMuniSections(ctx context.Context, match, county, municipality string, limit int) ([]*MuniSection, error)
	ListMuniSections(ctx context.Context, county, municipality string, limit int) ([]*MuniSection, error)

	// Status operations
	GetStatus(ctx context.Context) (*Status, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Store // Embed Store interface for transaction operations
}

// Document represents a stored legal document
type Document struct {
	DocumentID       string // Opaque, source-prefixed
	ContentHash      [32]byte
	Filename         string
	OriginalLocation string
	SourceSystem     string
	DocumentType     string
	Metadata         types.Metadata
	IndexedAt        time.Time
	CreatedAt        time.Time
}

// DocumentSummary is a listing row: document attributes plus page count
type DocumentSummary struct {
	DocumentID   string
	Filename     string
	SourceSystem string
	DocumentType string
	PageCount    int
	CreatedAt    time.Time
}

// Page represents one page of a document. Text is never empty; empty pages
// are dropped at ingestion.
type Page struct {
	ID          int64
	DocumentID  string
	PageNumber  int // 1-indexed, dense per document
	TextContent string
}

// SearchFilters narrows page search to exact-match document attributes.
// All set fields are combined as a conjunction.
type SearchFilters struct {
	SourceSystem string
	DocumentType string
	DocumentID   string
}

// PageHit is a raw ranked match from the FTS index. Score is the raw bm25()
// value where lower is better; normalization to the public contract happens
// in the retriever.
type PageHit struct {
	PageID       int64
	DocumentID   string
	PageNumber   int
	TextContent  string
	Score        float64
	Filename     string
	DocumentType string
	SourceSystem string
}

// Citation is one row of the append-only citation ledger
type Citation struct {
	ID         int64
	AnalysisID string
	DocumentID string
	PageNumber int
	TextStart  int
	TextEnd    int
	Snippet    string
	Rank       int
	CreatedAt  time.Time
}

// ToTypes converts a storage Citation to the public type
func (c *Citation) ToTypes() types.Citation {
	return types.Citation{
		ID:         c.ID,
		AnalysisID: c.AnalysisID,
		DocumentID: c.DocumentID,
		PageNumber: c.PageNumber,
		TextStart:  c.TextStart,
		TextEnd:    c.TextEnd,
		Snippet:    c.Snippet,
		Rank:       c.Rank,
		CreatedAt:  c.CreatedAt,
	}
}

// MuniSource identifies one municipal code publisher by its unique
// (state, county, municipality) triple
type MuniSource struct {
	ID           int64
	State        string
	County       string
	Municipality string
	Provider     string
	BaseURL      string
	CreatedAt    time.Time
}

// MuniSection is one section of a municipal code, upserted by
// (source_id, section_citation)
type MuniSection struct {
	ID              int64
	SourceID        int64
	SectionCitation string
	SectionPath     string
	Title           string
	Text            string
	EffectiveDate   string
	LastUpdated     string
	SourceURL       string
	SHA256          [32]byte
	RetrievedAt     time.Time
	CreatedAt       time.Time
}

// Status contains statistics about the stored corpus
type Status struct {
	DocumentCount    int
	PageCount        int
	CitationCount    int
	AnalysisCount    int
	MuniSourceCount  int
	MuniSectionCount int
	DBSizeMB         float64
	Health           HealthStatus
}

// HealthStatus represents the health of the store
type HealthStatus struct {
	DatabaseAccessible bool
	FTSIndexBuilt      bool
}
