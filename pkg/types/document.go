package types

// SourceSystem identifies which external system a document was ingested from.
type SourceSystem string

const (
	SourceCaseLibrary   SourceSystem = "case-library"
	SourceMunicipalCode SourceSystem = "municipal-code"
	SourceBWC           SourceSystem = "bwc"
	SourceOther         SourceSystem = "other"
)

// Valid reports whether s is one of the known source systems.
func (s SourceSystem) Valid() bool {
	switch s {
	case SourceCaseLibrary, SourceMunicipalCode, SourceBWC, SourceOther:
		return true
	}
	return false
}

// Metadata is an opaque key/value blob attached to a document. The core
// round-trips it verbatim and never interprets its contents.
type Metadata map[string]any
