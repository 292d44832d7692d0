package types

import "time"

// Citation is one append-only ledger row: a passage a consumer session
// actually cited, in the order it was cited. Citations are immutable once
// written and may outlive the document they reference.
type Citation struct {
	ID         int64
	AnalysisID string
	DocumentID string
	PageNumber int
	TextStart  int
	TextEnd    int
	Snippet    string
	Rank       int // 1-indexed order within the analysis
	CreatedAt  time.Time
}

// CitationNode aggregates one cited document within a citation graph.
type CitationNode struct {
	DocumentID    string
	CitationCount int
	Pages         []int // distinct cited page numbers, ascending
}

// CitationEdge is reserved for co-citation relationships between documents.
// No edges are produced in this version.
type CitationEdge struct {
	From string
	To   string
}

// CitationGraph groups an analysis's citations by document. Edges is always
// empty for now; the field exists so the shape is stable when co-citation
// analysis lands.
type CitationGraph struct {
	AnalysisID string
	Nodes      []CitationNode
	Edges      []CitationEdge
}

// CitationStats aggregates citation history for a single document.
type CitationStats struct {
	DocumentID     string
	TotalCitations int
	AnalysesCount  int
	FirstCited     time.Time
	LastCited      time.Time
}
