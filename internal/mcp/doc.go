// Package mcp implements the Model Context Protocol (MCP) server for lexindex.
//
// The server exposes the document corpus, retrieval engine, citation ledger,
// municipal code adapter, and reference reconciler as MCP tools:
//   - ingest_document: Store a legal document page by page
//   - delete_document: Remove a document and its pages
//   - list_documents: List stored documents
//   - search_documents: Ranked full-text search returning passages with offsets
//   - record_citations: Append passages to the citation ledger
//   - get_citation_graph: Per-document citation aggregation for an analysis
//   - document_citation_stats: Citation counts for a document across analyses
//   - resolve_reference: Match a loose filename reference against candidates
//   - search_municipal_code: Search stored municipal code sections
//   - get_status: Corpus statistics and store health
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// stdout is reserved for protocol messages; all logging goes to stderr.
//
// # Error Handling
//
// Tool failures are standard JSON-RPC error responses:
//
//	{
//	  "error": {
//	    "code": -32602,
//	    "message": "Invalid params",
//	    "data": {
//	      "param": "document_id",
//	      "reason": "missing or empty"
//	    }
//	  }
//	}
//
// Error codes:
//   - -32602: Invalid params (missing/invalid arguments)
//   - -32603: Internal error (database, filesystem, etc.)
//   - -32001: Document not found
//   - -32002: Document has no non-empty pages
//   - -32003: Full-text index unavailable
//   - -32004: Empty query
package mcp
