package localindex

import (
	"context"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/registry"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/sha1n/docindex/internal/domain"
	"github.com/sha1n/docindex/internal/search"
)

// storedFields are loaded for every hit.
var storedFields = []string{
	domain.FieldFileName,
	domain.FieldFilePath,
	domain.FieldFileType,
	domain.FieldContent,
	domain.FieldFileSize,
}

// Search runs req against the index.
func (i *Index) Search(ctx context.Context, req domain.SearchRequest) ([]domain.SearchResult, error) {
	req = req.WithDefaults()

	index, err := i.open(ctx, false)
	if err != nil {
		return nil, err
	}

	searchReq := bleve.NewSearchRequestOptions(buildQuery(req), req.Limit, 0, false)
	searchReq.Fields = storedFields
	searchReq.SortBy(sortOrder(req))
	if req.HasQueryText() {
		searchReq.Highlight = bleve.NewHighlight()
		searchReq.Highlight.AddField(domain.FieldContent)
	}

	res, err := index.SearchInContext(ctx, searchReq)
	if err != nil {
		return nil, domain.NewEngineError(opSearch, err)
	}

	// Hits are only scored when ordered by relevance.
	scored := req.SortBy == domain.SortByRelevance

	results := make([]domain.SearchResult, 0, len(res.Hits))
	for _, hit := range res.Hits {
		result := domain.SearchResult{
			DocumentRecord: domain.DocumentRecord{
				FileName: stringField(hit.Fields, domain.FieldFileName),
				FilePath: stringField(hit.Fields, domain.FieldFilePath),
				FileType: stringField(hit.Fields, domain.FieldFileType),
				Content:  stringField(hit.Fields, domain.FieldContent),
				FileSize: int64(numberField(hit.Fields, domain.FieldFileSize)),
			},
		}
		if scored {
			score := hit.Score
			result.Score = &score
		}
		if fragments, ok := hit.Fragments[domain.FieldContent]; ok {
			result.Highlights = fragments
		}
		results = append(results, result)
	}

	return results, nil
}

// buildQuery composes the Bleve query the same way search.BuildRequest
// composes the engine request: a fuzzy text clause combined with filters.
func buildQuery(req domain.SearchRequest) query.Query {
	var text query.Query
	if req.HasQueryText() {
		text = textQuery(*req.QueryText)
	}
	filters := filterQueries(req)

	switch {
	case text != nil && len(filters) > 0:
		return bleve.NewConjunctionQuery(append([]query.Query{text}, filters...)...)
	case text != nil:
		return text
	case len(filters) > 0:
		return bleve.NewConjunctionQuery(filters...)
	default:
		return bleve.NewMatchAllQuery()
	}
}

// textQuery matches any query token in any text field. Tokens come from the
// same analyzer the text fields are indexed with, and the edit distance of
// each token is chosen by search.AutoFuzziness.
func textQuery(queryText string) query.Query {
	var clauses []query.Query
	for _, token := range queryTokens(queryText) {
		fuzziness := search.AutoFuzziness(token)
		for _, field := range search.TextFields {
			if fuzziness == 0 {
				tq := bleve.NewTermQuery(token)
				tq.SetField(field)
				clauses = append(clauses, tq)
				continue
			}
			fq := bleve.NewFuzzyQuery(token)
			fq.SetField(field)
			fq.SetFuzziness(fuzziness)
			clauses = append(clauses, fq)
		}
	}
	if len(clauses) == 0 {
		return bleve.NewMatchNoneQuery()
	}
	return bleve.NewDisjunctionQuery(clauses...)
}

var textAnalyzer = sync.OnceValues(func() (analysis.Analyzer, error) {
	return registry.NewCache().AnalyzerNamed(standard.Name)
})

// queryTokens splits queryText into distinct analyzed tokens, falling back
// to whitespace terms if the analyzer is unavailable.
func queryTokens(queryText string) []string {
	analyzer, err := textAnalyzer()
	if err != nil {
		return search.Terms(queryText)
	}

	var tokens []string
	seen := make(map[string]bool)
	for _, word := range search.Terms(queryText) {
		for _, tok := range analyzer.Analyze([]byte(word)) {
			term := string(tok.Term)
			if seen[term] {
				continue
			}
			seen[term] = true
			tokens = append(tokens, term)
		}
	}
	return tokens
}

// filterQueries builds the file type and size range restrictions.
func filterQueries(req domain.SearchRequest) []query.Query {
	var filters []query.Query

	if req.FileType != nil {
		tq := bleve.NewTermQuery(*req.FileType)
		tq.SetField(domain.FieldFileType)
		filters = append(filters, tq)
	}

	if req.HasSizeRange() {
		inclusive := true
		var minSize, maxSize *float64
		if req.MinSize != nil {
			v := float64(*req.MinSize)
			minSize = &v
		}
		if req.MaxSize != nil {
			v := float64(*req.MaxSize)
			maxSize = &v
		}
		rq := bleve.NewNumericRangeInclusiveQuery(minSize, maxSize, &inclusive, &inclusive)
		rq.SetField(domain.FieldFileSize)
		filters = append(filters, rq)
	}

	return filters
}

// sortOrder resolves the request ordering, with the document id as tie-breaker.
func sortOrder(req domain.SearchRequest) []string {
	field := domain.FieldScore
	switch req.SortBy {
	case domain.SortByFileName:
		field = fileNameExactField
	case domain.SortByFileSize:
		field = domain.FieldFileSize
	}

	if req.SortOrder == domain.SortDescending {
		field = "-" + field
	}
	return []string{field, "_id"}
}

func stringField(fields map[string]interface{}, name string) string {
	if v, ok := fields[name].(string); ok {
		return v
	}
	return ""
}

func numberField(fields map[string]interface{}, name string) float64 {
	if v, ok := fields[name].(float64); ok {
		return v
	}
	return 0
}
