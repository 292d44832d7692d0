package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/casevault/lexindex/internal/citeledger"
	"github.com/casevault/lexindex/internal/contentstore"
	"github.com/casevault/lexindex/internal/municode"
	"github.com/casevault/lexindex/internal/retriever"
	"github.com/casevault/lexindex/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "lexindex"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
	// DefaultDBPath is the default location for the database
	DefaultDBPath = "~/.lexindex"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp       *server.MCPServer
	storage   storage.Store
	content   *contentstore.Store
	retriever *retriever.Retriever
	ledger    *citeledger.Ledger
	muni      *municode.Adapter
}

// NewServer creates a new MCP server instance
func NewServer(dbPath string) (*Server, error) {
	// Expand home directory if needed
	if dbPath == "" || dbPath == DefaultDBPath {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".lexindex")
	}

	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dbFile := filepath.Join(dbPath, "lexindex.db")

	store, err := storage.NewSQLiteStore(dbFile)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	return newServerWithStore(store)
}

// newServerWithStore wires the server around an already-open store
func newServerWithStore(store storage.Store) (*Server, error) {
	ret, err := retriever.New(store)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize retriever: %w", err)
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
	)

	s := &Server{
		mcp:       mcpServer,
		storage:   store,
		content:   contentstore.New(store),
		retriever: ret,
		ledger:    citeledger.New(store),
		muni:      municode.New(store),
	}

	s.registerTools()

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.storage.Close() }()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(ingestDocumentTool(), s.handleIngestDocument)
	s.mcp.AddTool(deleteDocumentTool(), s.handleDeleteDocument)
	s.mcp.AddTool(listDocumentsTool(), s.handleListDocuments)
	s.mcp.AddTool(searchDocumentsTool(), s.handleSearchDocuments)
	s.mcp.AddTool(recordCitationsTool(), s.handleRecordCitations)
	s.mcp.AddTool(getCitationGraphTool(), s.handleGetCitationGraph)
	s.mcp.AddTool(documentCitationStatsTool(), s.handleDocumentCitationStats)
	s.mcp.AddTool(resolveReferenceTool(), s.handleResolveReference)
	s.mcp.AddTool(searchMunicipalCodeTool(), s.handleSearchMunicipalCode)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
