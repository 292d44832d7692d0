package types

import (
	"errors"
	"fmt"
)

// Error taxonomy surfaced across component boundaries.
var (
	// ErrEmptyDocument means ingestion produced zero non-empty pages and
	// performed no writes. A data-quality issue, not a system fault.
	ErrEmptyDocument = errors.New("document has no non-empty pages")

	// ErrIndexUnavailable means the ranked-search backend is unreachable or
	// errored. The municipal-code adapter catches this and falls back to
	// substring search; all other callers must handle it explicitly.
	ErrIndexUnavailable = errors.New("full-text index unavailable")

	// ErrSizeLimitExceeded is the cause recorded on a TransportError when a
	// remote fetch exceeds its maximum byte count.
	ErrSizeLimitExceeded = errors.New("response size limit exceeded")
)

// Passage validation errors.
var (
	ErrMissingDocumentID = errors.New("passage missing document ID")
	ErrInvalidPageNumber = errors.New("page number must be >= 1")
	ErrInvalidOffsets    = errors.New("invalid passage text offsets")
	ErrInvalidScore      = errors.New("passage score must be non-negative")
)

// TransportError reports a failed remote document fetch with enough detail
// (cause, bytes read so far) for an external retry policy to decide. The core
// never retries automatically.
type TransportError struct {
	URL       string
	BytesRead int64
	Cause     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d bytes: %v", e.URL, e.BytesRead, e.Cause)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}
