// Package municode manages ingested municipal code sections. Sections are
// keyed by (source, citation) and re-ingestion updates them in place, unlike
// the immutable document corpus. Search prefers the full-text index and
// degrades to a literal substring scan when the index can't serve the query.
package municode

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"

	"github.com/casevault/lexindex/internal/storage"
	"github.com/casevault/lexindex/pkg/types"
)

// Search modes reported in results
const (
	ModeFTS       = "fts"
	ModeSubstring = "substring"
)

// Adapter manages municipal code sources and sections
type Adapter struct {
	db storage.Store
}

// New creates an adapter backed by the given store
func New(db storage.Store) *Adapter {
	return &Adapter{db: db}
}

// SourceRequest identifies a municipal code publisher
type SourceRequest struct {
	State        string
	County       string
	Municipality string
	Provider     string
	BaseURL      string
}

// EnsureSource registers a municipal code source, updating provider details
// if the (state, county, municipality) triple already exists
func (a *Adapter) EnsureSource(ctx context.Context, req *SourceRequest) (*storage.MuniSource, error) {
	if req.State == "" || req.Municipality == "" {
		return nil, fmt.Errorf("state and municipality are required")
	}
	src := &storage.MuniSource{
		State:        req.State,
		County:       req.County,
		Municipality: req.Municipality,
		Provider:     req.Provider,
		BaseURL:      req.BaseURL,
	}
	if err := a.db.UpsertMuniSource(ctx, src); err != nil {
		return nil, err
	}
	return src, nil
}

// SectionRequest describes one code section to store
type SectionRequest struct {
	SourceID        int64
	SectionCitation string
	SectionPath     string
	Title           string
	Text            string
	EffectiveDate   string
	LastUpdated     string
	SourceURL       string
}

// UpsertSection stores or refreshes a code section. The section's text hash
// is computed here so callers can detect unchanged content across refreshes.
func (a *Adapter) UpsertSection(ctx context.Context, req *SectionRequest) (*storage.MuniSection, error) {
	if req.SectionCitation == "" {
		return nil, fmt.Errorf("section citation is required")
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, types.ErrEmptyDocument
	}
	sec := &storage.MuniSection{
		SourceID:        req.SourceID,
		SectionCitation: req.SectionCitation,
		SectionPath:     req.SectionPath,
		Title:           req.Title,
		Text:            req.Text,
		EffectiveDate:   req.EffectiveDate,
		LastUpdated:     req.LastUpdated,
		SourceURL:       req.SourceURL,
		SHA256:          sha256.Sum256([]byte(req.Text)),
	}
	if err := a.db.UpsertMuniSection(ctx, sec); err != nil {
		return nil, err
	}
	return sec, nil
}

// SearchRequest scopes a section search
type SearchRequest struct {
	Query        string
	County       string
	Municipality string
	Limit        int
}

// SearchResult reports matched sections and which search path produced them
type SearchResult struct {
	Sections []*storage.MuniSection
	Mode     string
}

// Search finds code sections matching the query. The FTS index is tried
// first; if the index is unavailable, or the query sanitizes to nothing the
// index could match, a literal substring scan over recently retrieved
// sections answers instead.
func (a *Adapter) Search(ctx context.Context, req *SearchRequest) (*SearchResult, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}

	cleaned := storage.CleanMatchQuery(req.Query)
	if cleaned != "" {
		sections, err := a.db.SearchMuniSections(ctx, cleaned, req.County, req.Municipality, limit)
		if err == nil {
			return &SearchResult{Sections: sections, Mode: ModeFTS}, nil
		}
		if !errors.Is(err, types.ErrIndexUnavailable) {
			return nil, err
		}
	}

	return a.substringSearch(ctx, req, limit)
}

// substringSearch scans sections newest-retrieval-first for a literal,
// case-sensitive occurrence of the raw query
func (a *Adapter) substringSearch(ctx context.Context, req *SearchRequest, limit int) (*SearchResult, error) {
	if req.Query == "" {
		return &SearchResult{Sections: []*storage.MuniSection{}, Mode: ModeSubstring}, nil
	}

	all, err := a.db.ListMuniSections(ctx, req.County, req.Municipality, 0)
	if err != nil {
		return nil, err
	}

	matched := make([]*storage.MuniSection, 0, limit)
	for _, sec := range all {
		if strings.Contains(sec.Text, req.Query) ||
			strings.Contains(sec.Title, req.Query) ||
			strings.Contains(sec.SectionCitation, req.Query) {
			matched = append(matched, sec)
			if len(matched) >= limit {
				break
			}
		}
	}
	return &SearchResult{Sections: matched, Mode: ModeSubstring}, nil
}

// Sections lists stored sections for a municipality, most recently retrieved
// first
func (a *Adapter) Sections(ctx context.Context, county, municipality string, limit int) ([]*storage.MuniSection, error) {
	return a.db.ListMuniSections(ctx, county, municipality, limit)
}
