package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/casevault/lexindex/internal/contentstore"
	"github.com/casevault/lexindex/internal/municode"
	"github.com/casevault/lexindex/internal/reconciler"
	"github.com/casevault/lexindex/internal/retriever"
	"github.com/casevault/lexindex/internal/storage"
	"github.com/casevault/lexindex/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams    = -32602 // Invalid method parameters
	ErrorCodeInternalError    = -32603 // Internal JSON-RPC error
	ErrorCodeDocumentNotFound = -32001 // Referenced document does not exist
	ErrorCodeEmptyDocument    = -32002 // Document has no non-empty pages
	ErrorCodeIndexUnavailable = -32003 // Full-text index cannot serve queries
	ErrorCodeEmptyQuery       = -32004 // Query parameter is empty
)

// handleIngestDocument handles the ingest_document tool invocation
func (s *Server) handleIngestDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	sourceSystem, ok := args["source_system"].(string)
	if !ok || sourceSystem == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "source_system parameter is required", map[string]interface{}{
			"param":  "source_system",
			"reason": "missing or empty",
		})
	}
	if !types.SourceSystem(sourceSystem).Valid() {
		return nil, newMCPError(ErrorCodeInvalidParams, "unknown source_system", map[string]interface{}{
			"param":   "source_system",
			"value":   sourceSystem,
			"allowed": []string{"case-library", "municipal-code", "bwc", "other"},
		})
	}

	pages := getStringSlice(args, "pages")
	text := getStringDefault(args, "text", "")
	if len(pages) == 0 && text == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "either pages or text is required", nil)
	}

	var metadata types.Metadata
	if m, ok := args["metadata"].(map[string]interface{}); ok {
		metadata = types.Metadata(m)
	}

	result, err := s.content.Ingest(ctx, &contentstore.IngestRequest{
		Filename:         getStringDefault(args, "filename", ""),
		OriginalLocation: getStringDefault(args, "original_location", ""),
		SourceSystem:     types.SourceSystem(sourceSystem),
		DocumentType:     getStringDefault(args, "document_type", ""),
		Metadata:         metadata,
		Pages:            pages,
		Text:             text,
	})
	if errors.Is(err, types.ErrEmptyDocument) {
		return nil, newMCPError(ErrorCodeEmptyDocument, "document has no non-empty pages", nil)
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "ingestion failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if !result.AlreadyExists {
		s.retriever.InvalidateCache()
	}

	response := map[string]interface{}{
		"document_id":    result.DocumentID,
		"page_count":     result.PageCount,
		"content_hash":   fmt.Sprintf("%x", result.ContentHash),
		"already_exists": result.AlreadyExists,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleDeleteDocument handles the delete_document tool invocation
func (s *Server) handleDeleteDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	documentID, ok := args["document_id"].(string)
	if !ok || documentID == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "document_id parameter is required", map[string]interface{}{
			"param":  "document_id",
			"reason": "missing or empty",
		})
	}

	deleted, err := s.content.Delete(ctx, documentID)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "deletion failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if deleted {
		s.retriever.InvalidateCache()
	}

	response := map[string]interface{}{
		"document_id": documentID,
		"deleted":     deleted,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleListDocuments handles the list_documents tool invocation
func (s *Server) handleListDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		args = map[string]interface{}{}
	}

	limit := getIntDefault(args, "limit", 50)
	if limit < 1 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be positive", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	docs, err := s.content.List(ctx, getStringDefault(args, "source_system", ""), limit)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "listing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	items := make([]map[string]interface{}, 0, len(docs))
	for _, d := range docs {
		items = append(items, map[string]interface{}{
			"document_id":   d.DocumentID,
			"filename":      d.Filename,
			"source_system": d.SourceSystem,
			"document_type": d.DocumentType,
			"page_count":    d.PageCount,
			"created_at":    d.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	response := map[string]interface{}{
		"documents": items,
		"count":     len(items),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchDocuments handles the search_documents tool invocation
func (s *Server) handleSearchDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	topK := getIntDefault(args, "top_k", retriever.DefaultTopK)
	if topK < 1 || topK > retriever.MaxTopK {
		return nil, newMCPError(ErrorCodeInvalidParams, "top_k must be between 1 and 100", map[string]interface{}{
			"param": "top_k",
			"value": topK,
		})
	}

	var filters *storage.SearchFilters
	if f, ok := args["filters"].(map[string]interface{}); ok {
		filters = &storage.SearchFilters{
			SourceSystem: getStringDefault(f, "source_system", ""),
			DocumentType: getStringDefault(f, "document_type", ""),
			DocumentID:   getStringDefault(f, "document_id", ""),
		}
	}

	passages, err := s.retriever.Retrieve(ctx, &retriever.Request{
		Query:        query,
		Filters:      filters,
		TopK:         topK,
		ContextChars: getIntDefault(args, "context_chars", retriever.DefaultContextChars),
		UseCache:     getBoolDefault(args, "use_cache", true),
	})
	if errors.Is(err, types.ErrIndexUnavailable) {
		return nil, newMCPError(ErrorCodeIndexUnavailable, "full-text index unavailable", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"passages": passagesToJSON(passages),
		"count":    len(passages),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleRecordCitations handles the record_citations tool invocation
func (s *Server) handleRecordCitations(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	rawPassages, ok := args["passages"].([]interface{})
	if !ok || len(rawPassages) == 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "passages parameter is required and cannot be empty", map[string]interface{}{
			"param":  "passages",
			"reason": "missing or empty",
		})
	}

	passages := make([]types.Passage, 0, len(rawPassages))
	for i, raw := range rawPassages {
		obj, ok := raw.(map[string]interface{})
		if !ok {
			return nil, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("passage %d is not an object", i), nil)
		}
		passages = append(passages, types.Passage{
			DocumentID: getStringDefault(obj, "document_id", ""),
			PageNumber: getIntDefault(obj, "page_number", 0),
			TextStart:  getIntDefault(obj, "text_start", 0),
			TextEnd:    getIntDefault(obj, "text_end", 0),
			Snippet:    getStringDefault(obj, "snippet", ""),
			Score:      getFloatDefault(obj, "score", 0),
		})
	}

	result, err := s.ledger.Persist(ctx, getStringDefault(args, "analysis_id", ""), passages)
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "failed to record citations", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"analysis_id": result.AnalysisID,
		"recorded":    result.Recorded,
		"first_rank":  result.FirstRank,
		"last_rank":   result.LastRank,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetCitationGraph handles the get_citation_graph tool invocation
func (s *Server) handleGetCitationGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	analysisID, ok := args["analysis_id"].(string)
	if !ok || analysisID == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "analysis_id parameter is required", map[string]interface{}{
			"param":  "analysis_id",
			"reason": "missing or empty",
		})
	}

	graph, err := s.ledger.Graph(ctx, analysisID)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to build citation graph", map[string]interface{}{
			"error": err.Error(),
		})
	}

	nodes := make([]map[string]interface{}, 0, len(graph.Nodes))
	for _, n := range graph.Nodes {
		nodes = append(nodes, map[string]interface{}{
			"document_id":    n.DocumentID,
			"citation_count": n.CitationCount,
			"pages":          n.Pages,
		})
	}

	response := map[string]interface{}{
		"analysis_id": graph.AnalysisID,
		"nodes":       nodes,
		"edges":       []interface{}{},
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleDocumentCitationStats handles the document_citation_stats tool invocation
func (s *Server) handleDocumentCitationStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	documentID, ok := args["document_id"].(string)
	if !ok || documentID == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "document_id parameter is required", map[string]interface{}{
			"param":  "document_id",
			"reason": "missing or empty",
		})
	}

	stats, err := s.ledger.StatsForDocument(ctx, documentID)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get citation stats", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"document_id":     stats.DocumentID,
		"total_citations": stats.TotalCitations,
		"analyses_count":  stats.AnalysesCount,
	}
	if !stats.FirstCited.IsZero() {
		response["first_cited"] = stats.FirstCited.Format("2006-01-02T15:04:05Z07:00")
		response["last_cited"] = stats.LastCited.Format("2006-01-02T15:04:05Z07:00")
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleResolveReference handles the resolve_reference tool invocation
func (s *Server) handleResolveReference(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	reference, ok := args["reference"].(string)
	if !ok || reference == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "reference parameter is required", map[string]interface{}{
			"param":  "reference",
			"reason": "missing or empty",
		})
	}
	candidates := getStringSlice(args, "candidates")
	if len(candidates) == 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "candidates parameter is required and cannot be empty", map[string]interface{}{
			"param":  "candidates",
			"reason": "missing or empty",
		})
	}

	match, matched := reconciler.Resolve(reference, candidates)

	response := map[string]interface{}{
		"reference": reference,
		"matched":   matched,
	}
	if matched {
		response["candidate"] = match.Candidate
		response["index"] = match.Index
		response["score"] = match.Score
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchMunicipalCode handles the search_municipal_code tool invocation
func (s *Server) handleSearchMunicipalCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	result, err := s.muni.Search(ctx, &municode.SearchRequest{
		Query:        query,
		County:       getStringDefault(args, "county", ""),
		Municipality: getStringDefault(args, "municipality", ""),
		Limit:        getIntDefault(args, "limit", 20),
	})
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "municipal code search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	sections := make([]map[string]interface{}, 0, len(result.Sections))
	for _, sec := range result.Sections {
		sections = append(sections, map[string]interface{}{
			"section_citation": sec.SectionCitation,
			"title":            sec.Title,
			"text":             sec.Text,
			"source_url":       sec.SourceURL,
			"retrieved_at":     sec.RetrievedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	response := map[string]interface{}{
		"mode":     result.Mode,
		"sections": sections,
		"count":    len(sections),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	status, err := s.storage.GetStatus(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"statistics": map[string]interface{}{
			"documents":     status.DocumentCount,
			"pages":         status.PageCount,
			"citations":     status.CitationCount,
			"analyses":      status.AnalysisCount,
			"muni_sources":  status.MuniSourceCount,
			"muni_sections": status.MuniSectionCount,
			"db_size_mb":    fmt.Sprintf("%.2f", status.DBSizeMB),
		},
		"health": map[string]interface{}{
			"database_accessible": status.Health.DatabaseAccessible,
			"fts_index_built":     status.Health.FTSIndexBuilt,
		},
		"build": map[string]interface{}{
			"mode":   storage.BuildMode,
			"driver": storage.DriverName,
		},
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// passagesToJSON converts passages into response maps
func passagesToJSON(passages []types.Passage) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(passages))
	for _, p := range passages {
		out = append(out, map[string]interface{}{
			"document_id":   p.DocumentID,
			"page_number":   p.PageNumber,
			"text_start":    p.TextStart,
			"text_end":      p.TextEnd,
			"snippet":       p.Snippet,
			"score":         p.Score,
			"filename":      p.Filename,
			"document_type": p.DocumentType,
			"source_system": string(p.SourceSystem),
		})
	}
	return out
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getFloatDefault extracts a float parameter with a default value
func getFloatDefault(args map[string]interface{}, key string, defaultValue float64) float64 {
	if val, ok := args[key].(float64); ok {
		return val
	}
	if val, ok := args[key].(int); ok {
		return float64(val)
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getStringSlice extracts a []string parameter, tolerating JSON's []interface{}
func getStringSlice(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		if direct, ok := args[key].([]string); ok {
			return direct
		}
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
