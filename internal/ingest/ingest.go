// Package ingest extracts a directory of documents and writes them to a
// search engine in batches.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sha1n/docindex/internal/domain"
	"github.com/sha1n/docindex/internal/extract"
	"github.com/sha1n/docindex/internal/metrics"
)

// DefaultBatchSize is the number of documents written per engine request.
const DefaultBatchSize = 100

// Indexer is the write side of a search engine.
type Indexer interface {
	Name() string
	// EnsureIndex creates the index with its mapping when it does not exist.
	EnsureIndex(ctx context.Context) error
	// IndexDocuments upserts docs keyed by file path.
	IndexDocuments(ctx context.Context, docs []domain.DocumentRecord) (domain.BulkResult, error)
}

// Ingestor runs extraction followed by batched indexing.
type Ingestor struct {
	engine    Indexer
	walker    *extract.Walker
	batchSize int
	logger    *slog.Logger
}

// New creates an Ingestor. A non-positive batchSize uses DefaultBatchSize.
func New(engine Indexer, walker *extract.Walker, batchSize int, logger *slog.Logger) *Ingestor {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Ingestor{
		engine:    engine,
		walker:    walker,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Run ingests every supported document under dir. The returned report is
// populated up to the point of failure when an error is returned.
func (i *Ingestor) Run(ctx context.Context, dir string) (*Report, error) {
	report := &Report{
		RunID:     uuid.New().String(),
		Engine:    i.engine.Name(),
		InputDir:  dir,
		StartedAt: time.Now().UTC(),
	}
	defer func() {
		report.FinishedAt = time.Now().UTC()
	}()

	i.logger.InfoContext(ctx, "Starting ingestion", "run_id", report.RunID, "input_dir", dir, "engine", report.Engine)

	walked, err := i.walker.Walk(ctx, dir)
	if walked != nil {
		report.FilesScanned = walked.FilesScanned
		report.Skipped = walked.Skipped
	}
	if err != nil {
		return report, fmt.Errorf("failed to walk %s: %w", dir, err)
	}
	report.DocumentsExtracted = len(walked.Documents)

	if len(walked.Documents) == 0 {
		i.logger.WarnContext(ctx, "No documents to index", "input_dir", dir)
		return report, nil
	}

	if err := i.engine.EnsureIndex(ctx); err != nil {
		return report, fmt.Errorf("failed to ensure index: %w", err)
	}

	result, err := i.Index(ctx, walked.Documents)
	report.DocumentsIndexed = result.Indexed
	for _, f := range result.Failed {
		report.Failed = append(report.Failed, Failure{FilePath: f.Document.FilePath, Reason: f.Reason})
	}
	if err != nil {
		return report, err
	}

	i.logger.InfoContext(ctx, "Ingestion complete",
		"run_id", report.RunID,
		"files_scanned", report.FilesScanned,
		"extracted", report.DocumentsExtracted,
		"indexed", report.DocumentsIndexed,
		"failed", len(report.Failed),
		"skipped", len(report.Skipped),
	)
	return report, nil
}

// Index writes docs in batches of the configured size. The index must exist.
// Per-document failures are collected; an engine error stops at the failing
// batch and returns what was written before it.
func (i *Ingestor) Index(ctx context.Context, docs []domain.DocumentRecord) (domain.BulkResult, error) {
	var total domain.BulkResult
	engineName := i.engine.Name()

	for start := 0; start < len(docs); start += i.batchSize {
		end := min(start+i.batchSize, len(docs))

		result, err := i.engine.IndexDocuments(ctx, docs[start:end])
		if err != nil {
			metrics.IngestDocumentsTotal.WithLabelValues(engineName, metrics.StatusError).Add(float64(end - start))
			return total, fmt.Errorf("failed to index batch %d-%d: %w", start, end, err)
		}

		metrics.IngestDocumentsTotal.WithLabelValues(engineName, metrics.StatusIndexed).Add(float64(result.Indexed))
		metrics.IngestDocumentsTotal.WithLabelValues(engineName, metrics.StatusFailed).Add(float64(len(result.Failed)))
		for _, f := range result.Failed {
			i.logger.WarnContext(ctx, "Document rejected by engine", "file_path", f.Document.FilePath, "reason", f.Reason)
		}

		total.Merge(result)
		i.logger.DebugContext(ctx, "Batch indexed", "from", start, "to", end, "indexed", result.Indexed, "failed", len(result.Failed))
	}

	return total, nil
}
