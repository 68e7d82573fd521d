package elastic

import (
	"context"

	"github.com/sha1n/docindex/internal/domain"
	"github.com/sha1n/docindex/internal/search"
)

// Search runs req as a single search request and normalizes the response.
func (c *Client) Search(ctx context.Context, req domain.SearchRequest) ([]domain.SearchResult, error) {
	body, err := search.BuildRequest(req).Encode()
	if err != nil {
		return nil, err
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(c.index),
		c.es.Search.WithBody(body),
	)
	if err != nil {
		return nil, connectivityError(opSearch, err)
	}
	defer closeBody(res.Body)

	if res.IsError() {
		return nil, responseError(opSearch, res.StatusCode, readError(res.StatusCode, res.Body))
	}

	results, err := search.Normalize(res.Body)
	if err != nil {
		return nil, domain.NewEngineError(opSearch, err)
	}
	return results, nil
}
