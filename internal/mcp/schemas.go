package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// ingestDocumentTool returns the tool definition for ingest_document
func ingestDocumentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "ingest_document",
		Description: "Store a legal document page by page and index it for search",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"source_system": map[string]interface{}{
					"type":        "string",
					"description": "Originating system for the document",
					"enum":        []string{"case-library", "municipal-code", "bwc", "other"},
				},
				"filename": map[string]interface{}{
					"type":        "string",
					"description": "Original filename of the document",
				},
				"document_type": map[string]interface{}{
					"type":        "string",
					"description": "Document category (e.g. motion, order, transcript)",
				},
				"original_location": map[string]interface{}{
					"type":        "string",
					"description": "Path or URL the document came from",
				},
				"pages": map[string]interface{}{
					"type":        "array",
					"description": "Page texts in page order. Use this when pagination is known.",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Unpaginated full text; split into fixed-size pages automatically. Ignored when pages is set.",
				},
				"metadata": map[string]interface{}{
					"type":        "object",
					"description": "Arbitrary key/value metadata stored with the document",
				},
			},
			Required: []string{"source_system"},
		},
	}
}

// deleteDocumentTool returns the tool definition for delete_document
func deleteDocumentTool() mcp.Tool {
	return mcp.Tool{
		Name:        "delete_document",
		Description: "Remove a document and its pages. Citations that reference it are kept.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"document_id": map[string]interface{}{
					"type":        "string",
					"description": "ID of the document to delete",
				},
			},
			Required: []string{"document_id"},
		},
	}
}

// listDocumentsTool returns the tool definition for list_documents
func listDocumentsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_documents",
		Description: "List stored documents, newest first",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"source_system": map[string]interface{}{
					"type":        "string",
					"description": "Restrict to one source system",
					"enum":        []string{"case-library", "municipal-code", "bwc", "other"},
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of documents to return",
					"default":     50,
					"minimum":     1,
				},
			},
		},
	}
}

// searchDocumentsTool returns the tool definition for search_documents
func searchDocumentsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_documents",
		Description: "Full-text search over document pages, returning scored passages with exact offsets",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search terms",
				},
				"top_k": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of passages to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
				"context_chars": map[string]interface{}{
					"type":        "integer",
					"description": "Snippet context budget in characters",
					"default":     150,
					"minimum":     10,
				},
				"use_cache": map[string]interface{}{
					"type":        "boolean",
					"description": "Serve repeated queries from the result cache",
					"default":     true,
				},
				"filters": map[string]interface{}{
					"type":        "object",
					"description": "Optional exact-match filters, combined as a conjunction",
					"properties": map[string]interface{}{
						"source_system": map[string]interface{}{
							"type": "string",
							"enum": []string{"case-library", "municipal-code", "bwc", "other"},
						},
						"document_type": map[string]interface{}{
							"type": "string",
						},
						"document_id": map[string]interface{}{
							"type": "string",
						},
					},
				},
			},
			Required: []string{"query"},
		},
	}
}

// recordCitationsTool returns the tool definition for record_citations
func recordCitationsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "record_citations",
		Description: "Append passages to the citation ledger under an analysis. Omit analysis_id to start a new analysis.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"analysis_id": map[string]interface{}{
					"type":        "string",
					"description": "Analysis to extend; a new ID is minted when omitted",
				},
				"passages": map[string]interface{}{
					"type":        "array",
					"description": "Passages to record, in citation order",
					"items": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"document_id": map[string]interface{}{"type": "string"},
							"page_number": map[string]interface{}{"type": "integer", "minimum": 1},
							"text_start":  map[string]interface{}{"type": "integer", "minimum": 0},
							"text_end":    map[string]interface{}{"type": "integer", "minimum": 0},
							"snippet":     map[string]interface{}{"type": "string"},
							"score":       map[string]interface{}{"type": "number", "minimum": 0},
						},
						"required": []string{"document_id", "page_number"},
					},
				},
			},
			Required: []string{"passages"},
		},
	}
}

// getCitationGraphTool returns the tool definition for get_citation_graph
func getCitationGraphTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_citation_graph",
		Description: "Aggregate an analysis's citations into per-document nodes with cited pages",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"analysis_id": map[string]interface{}{
					"type":        "string",
					"description": "Analysis to aggregate",
				},
			},
			Required: []string{"analysis_id"},
		},
	}
}

// documentCitationStatsTool returns the tool definition for document_citation_stats
func documentCitationStatsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "document_citation_stats",
		Description: "How often a document has been cited across all analyses",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"document_id": map[string]interface{}{
					"type":        "string",
					"description": "Document to report on",
				},
			},
			Required: []string{"document_id"},
		},
	}
}

// resolveReferenceTool returns the tool definition for resolve_reference
func resolveReferenceTool() mcp.Tool {
	return mcp.Tool{
		Name:        "resolve_reference",
		Description: "Match a loosely remembered filename against candidate filenames on record",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"reference": map[string]interface{}{
					"type":        "string",
					"description": "The filename as referenced, possibly imprecise",
				},
				"candidates": map[string]interface{}{
					"type":        "array",
					"description": "Known filenames to match against",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
			},
			Required: []string{"reference", "candidates"},
		},
	}
}

// searchMunicipalCodeTool returns the tool definition for search_municipal_code
func searchMunicipalCodeTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_municipal_code",
		Description: "Search stored municipal code sections, with a literal-substring fallback when the index can't serve the query",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search terms or a section citation",
				},
				"county": map[string]interface{}{
					"type":        "string",
					"description": "Restrict to one county",
				},
				"municipality": map[string]interface{}{
					"type":        "string",
					"description": "Restrict to one municipality",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of sections to return",
					"default":     20,
					"minimum":     1,
				},
			},
			Required: []string{"query"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Corpus statistics and store health",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
