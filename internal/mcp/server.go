package mcp

import (
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sha1n/docindex/internal/render"
)

// ServerConfig contains configuration for creating an MCP server
type ServerConfig struct {
	Name    string
	Version string

	// Searcher backs the search tools. Tools are not registered when nil.
	Searcher Searcher
	// Format of tool results. Defaults to text.
	Format render.Format
	Logger *slog.Logger
}

// CreateServer creates and configures the MCP server
func CreateServer(cfg ServerConfig) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	if cfg.Searcher == nil {
		return s
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	format := cfg.Format
	if format == "" {
		format = render.FormatText
	}

	handler := NewSearchHandler(cfg.Searcher, format, logger)
	mcp.AddTool(s, &mcp.Tool{
		Name:        SearchToolName,
		Description: "Full-text search over indexed documents (docx, doc, xlsx, xls, pdf, csv). Matches file content and file names with typo tolerance and returns results ordered by relevance.",
	}, handler.HandleBasic)
	mcp.AddTool(s, &mcp.Tool{
		Name:        AdvancedSearchToolName,
		Description: "Search indexed documents with optional free text, file type and size filters, and explicit ordering by relevance_score, file_size or file_name.",
	}, handler.HandleAdvanced)

	return s
}
