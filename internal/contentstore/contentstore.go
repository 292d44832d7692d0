// Package contentstore ingests legal documents into the content-addressed
// corpus. Documents are stored page by page, deduplicated by content hash
// within each source system, and indexed for full-text search as a side
// effect of insertion.
package contentstore

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/casevault/lexindex/internal/storage"
	"github.com/casevault/lexindex/pkg/types"
)

// DefaultWindowSize is the page window size, in runes, used when ingesting
// unpaginated text
const DefaultWindowSize = 5000

// Store ingests and manages documents
type Store struct {
	db storage.Store
}

// New creates a content store backed by the given storage
func New(db storage.Store) *Store {
	return &Store{db: db}
}

// IngestRequest describes a document to ingest
type IngestRequest struct {
	Filename         string
	OriginalLocation string
	SourceSystem     types.SourceSystem
	DocumentType     string
	Metadata         types.Metadata

	// Pages holds pre-paginated text. When empty, Text is windowed into
	// synthetic pages instead.
	Pages []string
	Text  string

	// RawBytes, when set, is hashed for deduplication instead of the
	// normalized text. Use it when the original file bytes are available.
	RawBytes []byte
}

// IngestResult reports the outcome of an ingestion
type IngestResult struct {
	DocumentID    string
	PageCount     int
	ContentHash   [32]byte
	AlreadyExists bool
}

// Ingest stores a document and its pages in a single transaction. Whitespace
// only pages are dropped and the remainder renumbered densely from 1. A
// document whose content hash already exists under the same source system is
// not re-stored; the existing document is returned instead.
func (s *Store) Ingest(ctx context.Context, req *IngestRequest) (*IngestResult, error) {
	if !req.SourceSystem.Valid() {
		return nil, fmt.Errorf("invalid source system %q", req.SourceSystem)
	}

	pages := req.Pages
	if len(pages) == 0 && req.Text != "" {
		pages = windowText(req.Text, DefaultWindowSize)
	}
	pages = dropEmptyPages(pages)
	if len(pages) == 0 {
		return nil, types.ErrEmptyDocument
	}

	hash := contentHash(req.RawBytes, pages)

	existing, err := s.db.GetDocumentByHash(ctx, hash, string(req.SourceSystem))
	if err == nil {
		return s.existingResult(ctx, existing, hash)
	}
	if err != storage.ErrNotFound {
		return nil, err
	}

	documentID := fmt.Sprintf("%s-%s", req.SourceSystem, uuid.NewString())

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	doc := &storage.Document{
		DocumentID:       documentID,
		ContentHash:      hash,
		Filename:         req.Filename,
		OriginalLocation: req.OriginalLocation,
		SourceSystem:     string(req.SourceSystem),
		DocumentType:     req.DocumentType,
		Metadata:         req.Metadata,
	}
	if err := tx.InsertDocument(ctx, doc); err != nil {
		// A concurrent ingest of identical content can commit between the
		// hash lookup above and this insert, tripping
		// UNIQUE(content_hash, source_system). Release the transaction and
		// re-read: if the hash is now present, return the winner's document.
		_ = tx.Rollback()
		if existing, lookupErr := s.db.GetDocumentByHash(ctx, hash, string(req.SourceSystem)); lookupErr == nil {
			return s.existingResult(ctx, existing, hash)
		}
		return nil, err
	}

	for i, text := range pages {
		page := &storage.Page{
			DocumentID:  documentID,
			PageNumber:  i + 1,
			TextContent: text,
		}
		if err := tx.InsertPage(ctx, page); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &IngestResult{
		DocumentID:  documentID,
		PageCount:   len(pages),
		ContentHash: hash,
	}, nil
}

// existingResult builds the idempotent-hit result for an already stored
// document
func (s *Store) existingResult(ctx context.Context, doc *storage.Document, hash [32]byte) (*IngestResult, error) {
	pages, err := s.db.ListPages(ctx, doc.DocumentID)
	if err != nil {
		return nil, err
	}
	return &IngestResult{
		DocumentID:    doc.DocumentID,
		PageCount:     len(pages),
		ContentHash:   hash,
		AlreadyExists: true,
	}, nil
}

// Delete removes a document and its pages. Returns false when the document
// does not exist. Citations referencing the document are left in place.
func (s *Store) Delete(ctx context.Context, documentID string) (bool, error) {
	return s.db.DeleteDocument(ctx, documentID)
}

// Get returns a stored document by ID
func (s *Store) Get(ctx context.Context, documentID string) (*storage.Document, error) {
	return s.db.GetDocument(ctx, documentID)
}

// Pages returns the pages of a document in page order
func (s *Store) Pages(ctx context.Context, documentID string) ([]*storage.Page, error) {
	return s.db.ListPages(ctx, documentID)
}

// List lists stored documents, optionally restricted to a source system
func (s *Store) List(ctx context.Context, sourceSystem string, limit int) ([]*storage.DocumentSummary, error) {
	return s.db.ListDocuments(ctx, sourceSystem, limit)
}

// contentHash computes the deduplication hash. Raw bytes win when present;
// otherwise the page text is whitespace-normalized first so that formatting
// differences between extractions of the same document hash identically.
func contentHash(raw []byte, pages []string) [32]byte {
	if len(raw) > 0 {
		return sha256.Sum256(raw)
	}
	joined := strings.Join(pages, "\n")
	normalized := strings.Join(strings.Fields(joined), " ")
	return sha256.Sum256([]byte(normalized))
}

func dropEmptyPages(pages []string) []string {
	kept := make([]string, 0, len(pages))
	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return kept
}

// windowText splits unpaginated text into fixed-size rune windows
func windowText(text string, size int) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	pages := make([]string, 0, len(runes)/size+1)
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		pages = append(pages, string(runes[start:end]))
	}
	return pages
}
