// Package citeledger records which passages an analysis relied on. The
// ledger is append-only: citations are never updated or removed, and they
// survive deletion of the documents they point at.
package citeledger

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/casevault/lexindex/internal/storage"
	"github.com/casevault/lexindex/pkg/types"
)

// Ledger persists and reads citation records
type Ledger struct {
	db storage.Store
}

// New creates a ledger backed by the given store
func New(db storage.Store) *Ledger {
	return &Ledger{db: db}
}

// PersistResult reports what a Persist call recorded
type PersistResult struct {
	AnalysisID string
	Recorded   int
	FirstRank  int
	LastRank   int
}

// Persist appends the given passages as citations under an analysis. A blank
// analysisID mints a new one. Ranks continue from the analysis's current
// maximum, so repeated calls extend the record instead of overwriting it.
func (l *Ledger) Persist(ctx context.Context, analysisID string, passages []types.Passage) (*PersistResult, error) {
	if len(passages) == 0 {
		return nil, fmt.Errorf("no passages to record")
	}
	for i := range passages {
		if err := passages[i].Validate(); err != nil {
			return nil, fmt.Errorf("passage %d: %w", i, err)
		}
	}
	if analysisID == "" {
		analysisID = uuid.NewString()
	}

	tx, err := l.db.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	maxRank, err := tx.MaxCitationRank(ctx, analysisID)
	if err != nil {
		return nil, err
	}

	for i, p := range passages {
		c := &storage.Citation{
			AnalysisID: analysisID,
			DocumentID: p.DocumentID,
			PageNumber: p.PageNumber,
			TextStart:  p.TextStart,
			TextEnd:    p.TextEnd,
			Snippet:    p.Snippet,
			Rank:       maxRank + i + 1,
		}
		if err := tx.InsertCitation(ctx, c); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return &PersistResult{
		AnalysisID: analysisID,
		Recorded:   len(passages),
		FirstRank:  maxRank + 1,
		LastRank:   maxRank + len(passages),
	}, nil
}

// Citations returns all citations of an analysis in rank order
func (l *Ledger) Citations(ctx context.Context, analysisID string) ([]types.Citation, error) {
	rows, err := l.db.ListCitations(ctx, analysisID)
	if err != nil {
		return nil, err
	}
	citations := make([]types.Citation, 0, len(rows))
	for _, row := range rows {
		citations = append(citations, row.ToTypes())
	}
	return citations, nil
}

// Graph aggregates an analysis's citations into per-document nodes. Edges
// between documents are reserved for cross-reference analysis and are always
// empty today.
func (l *Ledger) Graph(ctx context.Context, analysisID string) (*types.CitationGraph, error) {
	rows, err := l.db.ListCitations(ctx, analysisID)
	if err != nil {
		return nil, err
	}

	byDoc := make(map[string]map[int]bool)
	order := make([]string, 0)
	counts := make(map[string]int)
	for _, row := range rows {
		if _, seen := byDoc[row.DocumentID]; !seen {
			byDoc[row.DocumentID] = make(map[int]bool)
			order = append(order, row.DocumentID)
		}
		byDoc[row.DocumentID][row.PageNumber] = true
		counts[row.DocumentID]++
	}

	nodes := make([]types.CitationNode, 0, len(order))
	for _, docID := range order {
		pages := make([]int, 0, len(byDoc[docID]))
		for page := range byDoc[docID] {
			pages = append(pages, page)
		}
		sort.Ints(pages)
		nodes = append(nodes, types.CitationNode{
			DocumentID:    docID,
			CitationCount: counts[docID],
			Pages:         pages,
		})
	}

	return &types.CitationGraph{
		AnalysisID: analysisID,
		Nodes:      nodes,
		Edges:      []types.CitationEdge{},
	}, nil
}

// StatsForDocument aggregates how often a document has been cited across all
// analyses
func (l *Ledger) StatsForDocument(ctx context.Context, documentID string) (*types.CitationStats, error) {
	return l.db.CitationStats(ctx, documentID)
}
