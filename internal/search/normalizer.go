package search

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/sha1n/docindex/internal/domain"
)

// ResponseSchema identifies where a response carries the stored document of a hit.
type ResponseSchema int

const (
	// SchemaUnknown means no hit carried a recognizable document body.
	SchemaUnknown ResponseSchema = iota
	// SchemaSource is the current layout: the document is under "_source".
	SchemaSource
	// SchemaDocument is the legacy layout: the document is under "document".
	SchemaDocument
)

const (
	sourceKey    = "_source"
	documentKey  = "document"
	scoreKey     = "_score"
	highlightKey = "highlight"
)

func (s ResponseSchema) String() string {
	switch s {
	case SchemaSource:
		return "source"
	case SchemaDocument:
		return "document"
	default:
		return "unknown"
	}
}

// bodyKey returns the hit key holding the document under this schema.
func (s ResponseSchema) bodyKey() string {
	if s == SchemaDocument {
		return documentKey
	}
	return sourceKey
}

// Hit is the canonical form of one engine hit.
type Hit struct {
	Document  domain.DocumentRecord
	Score     *float64
	Highlight map[string][]string
}

type rawResponse struct {
	Hits struct {
		Hits []map[string]json.RawMessage `json:"hits"`
	} `json:"hits"`
}

// DetectSchema resolves the response schema from the first hit that carries
// a document body. A response without hits is treated as SchemaSource.
func DetectSchema(hits []map[string]json.RawMessage) ResponseSchema {
	if len(hits) == 0 {
		return SchemaSource
	}
	for _, hit := range hits {
		if _, ok := hit[sourceKey]; ok {
			return SchemaSource
		}
		if _, ok := hit[documentKey]; ok {
			return SchemaDocument
		}
	}
	return SchemaUnknown
}

// Decode reads an engine search response into canonical hits.
func Decode(r io.Reader) ([]Hit, ResponseSchema, error) {
	var raw rawResponse
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, SchemaUnknown, fmt.Errorf("%w: %v", domain.ErrUnexpectedResponse, err)
	}

	schema := DetectSchema(raw.Hits.Hits)
	if schema == SchemaUnknown {
		return nil, schema, fmt.Errorf("%w: hits carry no document body", domain.ErrUnexpectedResponse)
	}

	key := schema.bodyKey()
	hits := make([]Hit, 0, len(raw.Hits.Hits))
	for i, rawHit := range raw.Hits.Hits {
		var hit Hit

		body, ok := rawHit[key]
		if !ok {
			return nil, schema, fmt.Errorf("%w: hit %d has no %q", domain.ErrUnexpectedResponse, i, key)
		}
		if err := json.Unmarshal(body, &hit.Document); err != nil {
			return nil, schema, fmt.Errorf("%w: hit %d: %v", domain.ErrUnexpectedResponse, i, err)
		}

		if score, ok := rawHit[scoreKey]; ok {
			if err := json.Unmarshal(score, &hit.Score); err != nil {
				return nil, schema, fmt.Errorf("%w: hit %d score: %v", domain.ErrUnexpectedResponse, i, err)
			}
		}

		if hl, ok := rawHit[highlightKey]; ok {
			if err := json.Unmarshal(hl, &hit.Highlight); err != nil {
				return nil, schema, fmt.Errorf("%w: hit %d highlight: %v", domain.ErrUnexpectedResponse, i, err)
			}
		}

		hits = append(hits, hit)
	}

	return hits, schema, nil
}

// Normalize decodes an engine search response into search results.
func Normalize(r io.Reader) ([]domain.SearchResult, error) {
	hits, _, err := Decode(r)
	if err != nil {
		return nil, err
	}
	return NormalizeHits(hits), nil
}

// NormalizeHits maps canonical hits to search results in engine order.
// A nil score stays nil and missing content highlights leave Highlights nil.
func NormalizeHits(hits []Hit) []domain.SearchResult {
	results := make([]domain.SearchResult, 0, len(hits))
	for _, hit := range hits {
		res := domain.SearchResult{
			DocumentRecord: hit.Document,
			Score:          hit.Score,
		}
		if fragments, ok := hit.Highlight[domain.FieldContent]; ok {
			res.Highlights = fragments
		}
		results = append(results, res)
	}
	return results
}
