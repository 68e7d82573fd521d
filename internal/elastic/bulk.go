package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/sha1n/docindex/internal/domain"
)

type bulkAction struct {
	Index bulkMeta `json:"index"`
}

type bulkMeta struct {
	ID string `json:"_id"`
}

type bulkResponse struct {
	Errors bool                         `json:"errors"`
	Items  []map[string]bulkItemOutcome `json:"items"`
}

type bulkItemOutcome struct {
	ID     string      `json:"_id"`
	Status int         `json:"status"`
	Error  *errorCause `json:"error,omitempty"`
}

// encodeBulk renders docs as NDJSON index actions keyed by file path.
func encodeBulk(docs []domain.DocumentRecord) (*bytes.Buffer, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, doc := range docs {
		if err := enc.Encode(bulkAction{Index: bulkMeta{ID: doc.ID()}}); err != nil {
			return nil, fmt.Errorf("failed to encode bulk action: %w", err)
		}
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("failed to encode document %s: %w", doc.FilePath, err)
		}
	}
	return &buf, nil
}

// IndexDocuments upserts docs in one bulk request. Per-document rejections
// are reported in the result; only request-level failures return an error.
func (c *Client) IndexDocuments(ctx context.Context, docs []domain.DocumentRecord) (domain.BulkResult, error) {
	if len(docs) == 0 {
		return domain.BulkResult{}, nil
	}

	body, err := encodeBulk(docs)
	if err != nil {
		return domain.BulkResult{}, err
	}

	res, err := c.es.Bulk(
		body,
		c.es.Bulk.WithIndex(c.index),
		c.es.Bulk.WithRefresh(c.refresh),
		c.es.Bulk.WithContext(ctx),
	)
	if err != nil {
		return domain.BulkResult{}, connectivityError(opBulk, err)
	}
	defer closeBody(res.Body)

	if res.IsError() {
		return domain.BulkResult{}, responseError(opBulk, res.StatusCode, readError(res.StatusCode, res.Body))
	}

	var br bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&br); err != nil {
		return domain.BulkResult{}, domain.NewEngineError(opBulk, fmt.Errorf("%w: %v", domain.ErrUnexpectedResponse, err))
	}
	if len(br.Items) != len(docs) {
		return domain.BulkResult{}, domain.NewEngineError(opBulk,
			fmt.Errorf("%w: %d items for %d documents", domain.ErrUnexpectedResponse, len(br.Items), len(docs)))
	}

	var result domain.BulkResult
	for i, item := range br.Items {
		outcome := item["index"]
		if outcome.Error != nil || outcome.Status >= 300 {
			reason := fmt.Sprintf("status %d", outcome.Status)
			if outcome.Error != nil {
				reason = outcome.Error.Type + ": " + outcome.Error.Reason
			}
			c.logger.ErrorContext(ctx, "Failed to index document", "file_path", docs[i].FilePath, "reason", reason)
			result.Failed = append(result.Failed, domain.FailedDocument{Document: docs[i], Reason: reason})
			continue
		}
		result.Indexed++
	}

	return result, nil
}
