package domain

import (
	"strings"
)

// Search request limits.
const (
	DefaultLimit = 10
	MaxLimit     = 10000
)

// SortField selects what search results are ordered by.
type SortField string

// Sort fields.
const (
	SortByRelevance SortField = "relevance_score"
	SortByFileSize  SortField = "file_size"
	SortByFileName  SortField = "file_name"
)

// ParseSortField parses a sort field name. The empty string yields relevance.
func ParseSortField(s string) (SortField, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "score", "relevance", string(SortByRelevance):
		return SortByRelevance, nil
	case string(SortByFileSize), "size":
		return SortByFileSize, nil
	case string(SortByFileName), "name":
		return SortByFileName, nil
	default:
		return "", NewValidationError("sort_by", "unknown sort field "+s)
	}
}

// IsValid reports whether f is a known sort field.
func (f SortField) IsValid() bool {
	switch f {
	case SortByRelevance, SortByFileSize, SortByFileName:
		return true
	}
	return false
}

// SortOrder is the direction of the result ordering.
type SortOrder string

// Sort orders.
const (
	SortAscending  SortOrder = "asc"
	SortDescending SortOrder = "desc"
)

// ParseSortOrder parses a sort order. The empty string yields descending.
func ParseSortOrder(s string) (SortOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(SortDescending), "descending":
		return SortDescending, nil
	case string(SortAscending), "ascending":
		return SortAscending, nil
	default:
		return "", NewValidationError("sort_order", "unknown sort order "+s)
	}
}

// IsValid reports whether o is a known sort order.
func (o SortOrder) IsValid() bool {
	return o == SortAscending || o == SortDescending
}

// SearchRequest describes one search call. Nil optional fields are absent.
type SearchRequest struct {
	QueryText *string
	FileType  *string
	MinSize   *int64
	MaxSize   *int64
	SortBy    SortField
	SortOrder SortOrder
	Limit     int
}

// WithDefaults returns a copy of r with unset fields defaulted.
// Blank query text and file type are treated as absent.
func (r SearchRequest) WithDefaults() SearchRequest {
	if r.QueryText != nil && strings.TrimSpace(*r.QueryText) == "" {
		r.QueryText = nil
	}
	if r.FileType != nil {
		ft := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(*r.FileType)), ".")
		if ft == "" {
			r.FileType = nil
		} else {
			r.FileType = &ft
		}
	}
	if r.SortBy == "" {
		r.SortBy = SortByRelevance
	}
	if r.SortOrder == "" {
		r.SortOrder = SortDescending
	}
	if r.Limit == 0 {
		r.Limit = DefaultLimit
	}
	return r
}

// Validate checks r after defaults have been applied.
func (r SearchRequest) Validate() error {
	if !r.SortBy.IsValid() {
		return NewValidationError("sort_by", "unknown sort field "+string(r.SortBy))
	}
	if !r.SortOrder.IsValid() {
		return NewValidationError("sort_order", "unknown sort order "+string(r.SortOrder))
	}
	if r.Limit <= 0 {
		return NewValidationError("limit", "must be positive")
	}
	if r.Limit > MaxLimit {
		return NewValidationError("limit", "must not exceed 10000")
	}
	if r.MinSize != nil && *r.MinSize < 0 {
		return NewValidationError("min_size", "must not be negative")
	}
	if r.MaxSize != nil && *r.MaxSize < 0 {
		return NewValidationError("max_size", "must not be negative")
	}
	if r.MinSize != nil && r.MaxSize != nil && *r.MinSize > *r.MaxSize {
		return NewValidationError("min_size", "must not exceed max_size")
	}
	return nil
}

// HasQueryText reports whether a non-blank free-text query is present.
func (r SearchRequest) HasQueryText() bool {
	return r.QueryText != nil && strings.TrimSpace(*r.QueryText) != ""
}

// HasSizeRange reports whether at least one size bound is present.
func (r SearchRequest) HasSizeRange() bool {
	return r.MinSize != nil || r.MaxSize != nil
}

// HasFilters reports whether any structural filter is present.
func (r SearchRequest) HasFilters() bool {
	return r.FileType != nil || r.HasSizeRange()
}

// SearchResult is a normalized search hit.
type SearchResult struct {
	DocumentRecord `yaml:",inline"`

	// Score is the relevance score. Nil when the engine did not score the hit,
	// which happens when sorting by a field other than relevance.
	Score *float64 `json:"score" yaml:"score"`

	// Highlights are matched content excerpts. Nil when the engine returned none.
	Highlights []string `json:"highlights,omitempty" yaml:"highlights,omitempty"`
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
