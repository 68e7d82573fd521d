// Package search builds engine search requests, normalizes engine responses
// and runs searches against an Engine.
package search

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/sha1n/docindex/internal/domain"
)

// TextFields are the fields matched by the free-text clause.
var TextFields = []string{domain.FieldContent, domain.FieldFileName}

// Clause is a single engine query clause, keyed by clause type.
type Clause map[string]any

// Request is the engine-native search request document.
type Request struct {
	Query     Clause                `json:"query"`
	Highlight *Highlight            `json:"highlight,omitempty"`
	Sort      []map[string]SortSpec `json:"sort"`
	Size      int                   `json:"size"`
}

// BoolQuery combines scoring and non-scoring clauses.
type BoolQuery struct {
	Must   []Clause `json:"must,omitempty"`
	Filter []Clause `json:"filter,omitempty"`
}

// MultiMatch is a best-match text query over several fields.
type MultiMatch struct {
	Query     string   `json:"query"`
	Fields    []string `json:"fields"`
	Fuzziness string   `json:"fuzziness"`
}

// RangeBounds holds inclusive bounds. Absent bounds are omitted.
type RangeBounds struct {
	GTE *int64 `json:"gte,omitempty"`
	LTE *int64 `json:"lte,omitempty"`
}

// Highlight requests matched snippets for the listed fields.
type Highlight struct {
	Fields map[string]HighlightField `json:"fields"`
}

// HighlightField holds per-field highlight options; the engine defaults apply.
type HighlightField struct{}

// SortSpec is the order applied to one sort field.
type SortSpec struct {
	Order domain.SortOrder `json:"order"`
}

// BuildRequest translates req into the engine search request document.
// Defaults are applied to req first.
func BuildRequest(req domain.SearchRequest) Request {
	req = req.WithDefaults()

	var text Clause
	if req.HasQueryText() {
		text = TextClause(*req.QueryText)
	}

	out := Request{
		Query: ComposeQuery(text, FilterClauses(req)),
		Sort: []map[string]SortSpec{
			{SortFieldFor(req.SortBy): {Order: req.SortOrder}},
		},
		Size: req.Limit,
	}

	if text != nil {
		out.Highlight = &Highlight{
			Fields: map[string]HighlightField{domain.FieldContent: {}},
		}
	}

	return out
}

// TextClause builds the fuzzy multi-field text clause.
func TextClause(queryText string) Clause {
	return Clause{
		"multi_match": MultiMatch{
			Query:     queryText,
			Fields:    TextFields,
			Fuzziness: FuzzinessAuto,
		},
	}
}

// FilterClauses builds the exact-match and range clauses of req.
func FilterClauses(req domain.SearchRequest) []Clause {
	var filters []Clause

	if req.FileType != nil {
		filters = append(filters, Clause{
			"term": map[string]string{domain.FieldFileType: *req.FileType},
		})
	}

	if req.HasSizeRange() {
		filters = append(filters, Clause{
			"range": map[string]RangeBounds{
				domain.FieldFileSize: {GTE: req.MinSize, LTE: req.MaxSize},
			},
		})
	}

	return filters
}

// ComposeQuery combines the optional text clause with the filter clauses.
// Filters never affect scoring: they go under "filter", the text clause under "must".
func ComposeQuery(text Clause, filters []Clause) Clause {
	switch {
	case text != nil && len(filters) > 0:
		return Clause{"bool": BoolQuery{Must: []Clause{text}, Filter: filters}}
	case text != nil:
		return Clause{"bool": BoolQuery{Must: []Clause{text}}}
	case len(filters) > 0:
		return Clause{"bool": BoolQuery{Filter: filters}}
	default:
		return Clause{"match_all": struct{}{}}
	}
}

// SortFieldFor resolves a sort field to the sortable engine field.
// file_name is tokenized, so its exact-match sibling is used instead.
func SortFieldFor(f domain.SortField) string {
	switch f {
	case domain.SortByFileName:
		return domain.FieldFileNameExact
	case domain.SortByFileSize:
		return domain.FieldFileSize
	default:
		return domain.FieldScore
	}
}

// Encode serializes the request document.
func (r Request) Encode() (*bytes.Reader, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode search request: %w", err)
	}
	return bytes.NewReader(data), nil
}
