package app

import (
	"github.com/spf13/pflag"

	"github.com/sha1n/docindex/internal/domain"
)

// Flag names read directly by the commands rather than through settings.
const (
	FlagLimit     = "limit"
	FlagQuery     = "query"
	FlagType      = "type"
	FlagMinSize   = "min-size"
	FlagMaxSize   = "max-size"
	FlagSortBy    = "sort-by"
	FlagSortOrder = "sort-order"
)

// RegisterGlobalFlags registers the flags shared by every command.
// Defaults live in config so that unset flags never shadow env values.
func RegisterGlobalFlags(flags *pflag.FlagSet) {
	flags.StringP("engine", "e", "", "Search engine: elasticsearch or bleve (default elasticsearch)")
	flags.String("es-url", "", "Elasticsearch URL (default http://localhost:9200)")
	flags.String("es-username", "", "Elasticsearch username")
	flags.String("es-password", "", "Elasticsearch password")
	flags.Duration("es-timeout", 0, "Elasticsearch response timeout (default 30s)")
	flags.Bool("es-insecure-skip-verify", false, "Skip TLS certificate verification for Elasticsearch")
	flags.String("bleve-dir", "", "Directory for embedded bleve indexes (default ~/.docindex)")
	flags.StringP("index", "i", "", "Index name (default document_index)")
	flags.StringP("output", "o", "", "Output format: text, json or yaml (default text)")
	flags.String("log-level", "", "Log level: debug, info, warn or error (default info)")
}

// RegisterIngestFlags registers the ingest command flags.
func RegisterIngestFlags(flags *pflag.FlagSet) {
	flags.StringP("input-dir", "d", "", "Directory to ingest (default ./data)")
	flags.IntP("batch-size", "b", 0, "Documents per bulk request (default 100)")
	flags.Int64("max-file-size", 0, "Skip files larger than this many bytes, 0 disables the limit (default 64MiB)")
	flags.StringP("report", "r", "", "Write the ingestion report as JSON to this path")
}

// RegisterSearchFlags registers the search command flags.
func RegisterSearchFlags(flags *pflag.FlagSet) {
	flags.IntP(FlagLimit, "n", domain.DefaultLimit, "Maximum number of results")
}

// RegisterAdvancedSearchFlags registers the advanced-search command flags.
func RegisterAdvancedSearchFlags(flags *pflag.FlagSet) {
	flags.StringP(FlagQuery, "q", "", "Free-text query (omit to match all documents)")
	flags.StringP(FlagType, "t", "", "File type filter (docx, doc, xlsx, xls, pdf, csv)")
	flags.Int64(FlagMinSize, 0, "Minimum file size in bytes")
	flags.Int64(FlagMaxSize, 0, "Maximum file size in bytes")
	flags.StringP(FlagSortBy, "s", string(domain.SortByRelevance), "Sort by: relevance_score, file_size or file_name")
	flags.String(FlagSortOrder, string(domain.SortDescending), "Sort order: asc or desc")
	flags.IntP(FlagLimit, "n", domain.DefaultLimit, "Maximum number of results")
}

// RegisterServeFlags registers the serve command flags.
func RegisterServeFlags(flags *pflag.FlagSet) {
	flags.String("transport", "", "Transport type: stdio or sse")
	flags.StringP("host", "H", "", "Host for SSE transport")
	flags.IntP("port", "p", 0, "Port for SSE transport")
	flags.StringP("auth-type", "a", "", "Authentication type: none, basic, or apikey")
	flags.StringP("auth-basic-username", "u", "", "Basic auth username")
	flags.StringP("auth-basic-password", "P", "", "Basic auth password")
	flags.StringSliceP("auth-api-keys", "k", nil, "API keys (comma-separated)")
}

// AdvancedSearchRequest builds a search request from the advanced-search flags.
// Size bounds are set only when given explicitly, so 0 is a valid bound.
func AdvancedSearchRequest(flags *pflag.FlagSet) (domain.SearchRequest, error) {
	var req domain.SearchRequest

	if q, _ := flags.GetString(FlagQuery); q != "" {
		req.QueryText = &q
	}
	if ft, _ := flags.GetString(FlagType); ft != "" {
		req.FileType = &ft
	}
	if flags.Changed(FlagMinSize) {
		v, _ := flags.GetInt64(FlagMinSize)
		req.MinSize = &v
	}
	if flags.Changed(FlagMaxSize) {
		v, _ := flags.GetInt64(FlagMaxSize)
		req.MaxSize = &v
	}

	sortBy, _ := flags.GetString(FlagSortBy)
	field, err := domain.ParseSortField(sortBy)
	if err != nil {
		return domain.SearchRequest{}, err
	}
	req.SortBy = field

	sortOrder, _ := flags.GetString(FlagSortOrder)
	order, err := domain.ParseSortOrder(sortOrder)
	if err != nil {
		return domain.SearchRequest{}, err
	}
	req.SortOrder = order

	req.Limit, _ = flags.GetInt(FlagLimit)
	return req, nil
}
