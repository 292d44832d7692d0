// Package types defines the domain types shared across the lexindex core:
// documents, passages, citations, and the error taxonomy surfaced to callers.
package types
