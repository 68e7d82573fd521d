package localindex

import (
	"context"
	"fmt"

	"github.com/sha1n/docindex/internal/domain"
)

// Operation names used in engine errors.
const (
	opOpen   = "open"
	opBatch  = "batch"
	opSearch = "search"
)

// IndexDocuments upserts docs in one batch keyed by file path. Documents the
// batch refuses are reported in the result; a failed commit returns an error.
func (i *Index) IndexDocuments(ctx context.Context, docs []domain.DocumentRecord) (domain.BulkResult, error) {
	if len(docs) == 0 {
		return domain.BulkResult{}, nil
	}
	if err := ctx.Err(); err != nil {
		return domain.BulkResult{}, err
	}

	index, err := i.open(ctx, true)
	if err != nil {
		return domain.BulkResult{}, err
	}

	var result domain.BulkResult
	batch := index.NewBatch()
	staged := 0

	for _, doc := range docs {
		if doc.FilePath == "" {
			result.Failed = append(result.Failed, domain.FailedDocument{Document: doc, Reason: "missing file path"})
			continue
		}
		if err := batch.Index(doc.ID(), doc); err != nil {
			i.logger.ErrorContext(ctx, "Failed to index document", "file_path", doc.FilePath, "error", err)
			result.Failed = append(result.Failed, domain.FailedDocument{Document: doc, Reason: err.Error()})
			continue
		}
		staged++
	}

	if staged > 0 {
		if err := index.Batch(batch); err != nil {
			return domain.BulkResult{}, domain.NewEngineError(opBatch, fmt.Errorf("batch index failed: %w", err))
		}
	}

	result.Indexed = staged
	return result, nil
}
