package mcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sha1n/docindex/internal/domain"
	"github.com/sha1n/docindex/internal/render"
)

// Tool names.
const (
	SearchToolName         = "search_documents"
	AdvancedSearchToolName = "advanced_search_documents"
)

// Searcher runs validated search requests.
type Searcher interface {
	Search(ctx context.Context, req domain.SearchRequest) ([]domain.SearchResult, error)
}

// SearchArgument defines basic search parameters.
type SearchArgument struct {
	Query string `json:"query" jsonschema_description:"Free-text query matched against document content and file names"`
	Limit int    `json:"limit,omitempty" jsonschema_description:"Maximum number of results (default 10)"`
}

// AdvancedSearchArgument defines advanced search parameters.
type AdvancedSearchArgument struct {
	Query     string `json:"query,omitempty" jsonschema_description:"Optional free-text query; omit to match all documents"`
	FileType  string `json:"file_type,omitempty" jsonschema_description:"Filter by file type (docx, doc, xlsx, xls, pdf, csv)"`
	MinSize   *int64 `json:"min_size,omitempty" jsonschema_description:"Minimum file size in bytes (inclusive)"`
	MaxSize   *int64 `json:"max_size,omitempty" jsonschema_description:"Maximum file size in bytes (inclusive)"`
	SortBy    string `json:"sort_by,omitempty" jsonschema_description:"Sort field: relevance_score (default), file_size or file_name"`
	SortOrder string `json:"sort_order,omitempty" jsonschema_description:"Sort order: desc (default) or asc"`
	Limit     int    `json:"limit,omitempty" jsonschema_description:"Maximum number of results (default 10)"`
}

// SearchHandler handles the search MCP tools.
type SearchHandler struct {
	searcher Searcher
	format   render.Format
	logger   *slog.Logger
}

// NewSearchHandler creates a new search handler.
func NewSearchHandler(searcher Searcher, format render.Format, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		searcher: searcher,
		format:   format,
		logger:   logger,
	}
}

// HandleBasic executes a relevance-ordered text search.
func (h *SearchHandler) HandleBasic(ctx context.Context, req *mcp.CallToolRequest, args SearchArgument) (*mcp.CallToolResult, any, error) {
	if strings.TrimSpace(args.Query) == "" {
		return errorResult("Query cannot be empty"), nil, nil
	}

	query := args.Query
	results, err := h.searcher.Search(ctx, domain.SearchRequest{
		QueryText: &query,
		Limit:     args.Limit,
	})
	if err != nil {
		return h.failure(ctx, SearchToolName, err), nil, nil
	}

	var buf bytes.Buffer
	if err := render.New(&buf, h.format).SearchResults(query, results); err != nil {
		return errorResult(fmt.Sprintf("Failed to format results: %s", err)), nil, nil
	}
	return textResult(buf.String()), nil, nil
}

// HandleAdvanced executes a filtered and explicitly ordered search.
func (h *SearchHandler) HandleAdvanced(ctx context.Context, req *mcp.CallToolRequest, args AdvancedSearchArgument) (*mcp.CallToolResult, any, error) {
	searchReq, err := args.toRequest()
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}

	results, err := h.searcher.Search(ctx, searchReq)
	if err != nil {
		return h.failure(ctx, AdvancedSearchToolName, err), nil, nil
	}

	var buf bytes.Buffer
	if err := render.New(&buf, h.format).AdvancedResults(searchReq, results); err != nil {
		return errorResult(fmt.Sprintf("Failed to format results: %s", err)), nil, nil
	}
	return textResult(buf.String()), nil, nil
}

func (a AdvancedSearchArgument) toRequest() (domain.SearchRequest, error) {
	sortBy, err := domain.ParseSortField(a.SortBy)
	if err != nil {
		return domain.SearchRequest{}, err
	}
	sortOrder, err := domain.ParseSortOrder(a.SortOrder)
	if err != nil {
		return domain.SearchRequest{}, err
	}

	req := domain.SearchRequest{
		MinSize:   a.MinSize,
		MaxSize:   a.MaxSize,
		SortBy:    sortBy,
		SortOrder: sortOrder,
		Limit:     a.Limit,
	}
	if a.Query != "" {
		req.QueryText = domain.Ptr(a.Query)
	}
	if a.FileType != "" {
		req.FileType = domain.Ptr(a.FileType)
	}
	return req, nil
}

func (h *SearchHandler) failure(ctx context.Context, tool string, err error) *mcp.CallToolResult {
	if errors.Is(err, domain.ErrValidation) {
		return errorResult(err.Error())
	}
	h.logger.ErrorContext(ctx, "Search tool failed", "tool", tool, "error", err)
	return errorResult(fmt.Sprintf("Search failed: %s", err))
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
		IsError: true,
	}
}
