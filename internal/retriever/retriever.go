// Package retriever answers ranked full-text queries over the document
// corpus, producing passages with exact snippet offsets suitable for
// citation.
package retriever

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/casevault/lexindex/internal/storage"
	"github.com/casevault/lexindex/pkg/types"
)

const (
	// DefaultTopK is the result count when the request doesn't specify one
	DefaultTopK = 10

	// DefaultContextChars is the snippet context budget when the request
	// doesn't specify one
	DefaultContextChars = 150

	// MaxTopK caps result counts to keep response sizes bounded
	MaxTopK = 100

	cacheSize = 128
	cacheTTL  = 5 * time.Minute
)

// Request describes a retrieval query
type Request struct {
	Query        string
	Filters      *storage.SearchFilters
	TopK         int
	ContextChars int
	UseCache     bool
}

// Retriever executes search requests against the store
type Retriever struct {
	db    storage.Store
	cache *lru.Cache[string, cacheEntry]
}

type cacheEntry struct {
	passages []types.Passage
	storedAt time.Time
}

// New creates a retriever backed by the given store
func New(db storage.Store) (*Retriever, error) {
	cache, err := lru.New[string, cacheEntry](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Retriever{db: db, cache: cache}, nil
}

// Retrieve runs a ranked search and returns passages ordered best-first.
// Scores are normalized so that higher is better. A query with no searchable
// terms returns an empty result, not an error.
func (r *Retriever) Retrieve(ctx context.Context, req *Request) ([]types.Passage, error) {
	if req.TopK <= 0 {
		return nil, fmt.Errorf("top_k must be positive, got %d", req.TopK)
	}
	topK := req.TopK
	if topK > MaxTopK {
		topK = MaxTopK
	}
	contextChars := req.ContextChars
	if contextChars <= 0 {
		contextChars = DefaultContextChars
	}

	cleaned := storage.CleanMatchQuery(req.Query)
	if cleaned == "" {
		return []types.Passage{}, nil
	}

	key := cacheKey(cleaned, req.Filters, topK, contextChars)
	if req.UseCache {
		if entry, ok := r.cache.Get(key); ok {
			if time.Since(entry.storedAt) < cacheTTL {
				return entry.passages, nil
			}
			r.cache.Remove(key)
		}
	}

	hits, err := r.db.SearchPages(ctx, cleaned, req.Filters, topK)
	if err != nil {
		if errors.Is(err, types.ErrIndexUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("retrieval failed: %w", err)
	}

	terms := queryTerms(cleaned)
	passages := make([]types.Passage, 0, len(hits))
	for _, hit := range hits {
		snip := extractSnippet(hit.TextContent, terms, contextChars)
		passages = append(passages, types.Passage{
			DocumentID: hit.DocumentID,
			PageNumber: hit.PageNumber,
			TextStart:  snip.TextStart,
			TextEnd:    snip.TextEnd,
			Snippet:    snip.Snippet,
			// bm25() reports lower-is-better negatives; flip to a
			// higher-is-better magnitude for the public contract
			Score:        math.Abs(hit.Score),
			Filename:     hit.Filename,
			DocumentType: hit.DocumentType,
			SourceSystem: types.SourceSystem(hit.SourceSystem),
		})
	}

	if req.UseCache {
		r.cache.Add(key, cacheEntry{passages: passages, storedAt: time.Now()})
	}
	return passages, nil
}

// InvalidateCache drops all cached results. Call after any corpus mutation.
func (r *Retriever) InvalidateCache() {
	r.cache.Purge()
}

func cacheKey(cleaned string, filters *storage.SearchFilters, topK, contextChars int) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%d", cleaned, topK, contextChars)
	if filters != nil {
		fmt.Fprintf(h, "|%s|%s|%s", filters.SourceSystem, filters.DocumentType, filters.DocumentID)
	}
	return hex.EncodeToString(h.Sum(nil))
}
