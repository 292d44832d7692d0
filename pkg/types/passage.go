package types

// Passage is a transient retrieval result: a scored match region within a
// single stored page. TextStart and TextEnd are character offsets into the
// page's full text content, not into the snippet, so a consumer can re-locate
// the match region in the source page later.
type Passage struct {
	DocumentID string
	PageNumber int
	TextStart  int
	TextEnd    int
	Snippet    string

	// Score is non-negative with no fixed upper bound; higher is more
	// relevant. Compare scores only relatively, never against an absolute
	// threshold.
	Score float64

	// Denormalized document attributes for display.
	Filename     string
	DocumentType string
	SourceSystem SourceSystem
}

// Validate checks structural invariants on a passage before it is persisted
// as a citation.
func (p *Passage) Validate() error {
	if p.DocumentID == "" {
		return ErrMissingDocumentID
	}
	if p.PageNumber < 1 {
		return ErrInvalidPageNumber
	}
	if p.TextStart < 0 || p.TextEnd < p.TextStart {
		return ErrInvalidOffsets
	}
	if p.Score < 0 {
		return ErrInvalidScore
	}
	return nil
}
