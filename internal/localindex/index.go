// Package localindex implements the search and ingestion engine contracts on
// an embedded Bleve index stored on local disk.
package localindex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	bolt "go.etcd.io/bbolt"

	"github.com/sha1n/docindex/internal/domain"
)

const (
	// EngineName identifies this engine in logs and metrics.
	EngineName = "bleve"

	// IndexSuffix is the suffix for index directories
	IndexSuffix = ".bleve"

	// Exact-match siblings of the full-text fields.
	fileNameExactField = "file_name_exact"
	filePathExactField = "file_path_exact"

	// DefaultOpenTimeout bounds the wait for another process's lock on the index.
	DefaultOpenTimeout = 5 * time.Second
)

// Index is a Bleve-backed engine bound to one index directory.
// The underlying index is opened on first use and kept open until Close.
type Index struct {
	path        string
	logger      *slog.Logger
	openTimeout time.Duration
	mu          sync.Mutex
	index       bleve.Index
}

// New creates an engine for the index named name under dir.
func New(dir, name string, logger *slog.Logger) (*Index, error) {
	if dir == "" {
		return nil, fmt.Errorf("index directory cannot be empty")
	}
	if name == "" {
		return nil, fmt.Errorf("index name cannot be empty")
	}
	return &Index{
		path:        filepath.Join(dir, name+IndexSuffix),
		logger:      logger,
		openTimeout: DefaultOpenTimeout,
	}, nil
}

// Name returns the engine name.
func (i *Index) Name() string {
	return EngineName
}

// Path returns the index directory.
func (i *Index) Path() string {
	return i.path
}

// CreateIndexMapping creates the Bleve index mapping for document records.
func CreateIndexMapping() mapping.IndexMapping {
	docMapping := bleve.NewDocumentMapping()

	// File name and path - analyzed for fuzzy search, plus a keyword sibling
	// for exact sorting and filtering
	for _, f := range []struct{ field, exact string }{
		{domain.FieldFileName, fileNameExactField},
		{domain.FieldFilePath, filePathExactField},
	} {
		textField := bleve.NewTextFieldMapping()
		textField.Analyzer = standard.Name
		textField.Store = true

		exactField := bleve.NewTextFieldMapping()
		exactField.Name = f.exact
		exactField.Analyzer = keyword.Name
		exactField.Store = false

		docMapping.AddFieldMappingsAt(f.field, textField, exactField)
	}

	// File type - keyword only
	typeField := bleve.NewTextFieldMapping()
	typeField.Analyzer = keyword.Name
	typeField.Store = true
	docMapping.AddFieldMappingsAt(domain.FieldFileType, typeField)

	// File size - numeric for range filters and sorting
	sizeField := bleve.NewNumericFieldMapping()
	sizeField.Store = true
	docMapping.AddFieldMappingsAt(domain.FieldFileSize, sizeField)

	// Content - analyzed, with term vectors for highlighting
	contentField := bleve.NewTextFieldMapping()
	contentField.Analyzer = standard.Name
	contentField.Store = true
	contentField.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt(domain.FieldContent, contentField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = standard.Name

	return indexMapping
}

// SetOpenTimeout sets how long opening waits for the index lock.
func (i *Index) SetOpenTimeout(d time.Duration) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.openTimeout = d
}

// Exists reports whether the index directory exists.
func (i *Index) Exists() bool {
	_, err := os.Stat(i.path)
	return err == nil
}

// EnsureIndex opens the index, creating it with CreateIndexMapping when absent.
func (i *Index) EnsureIndex(ctx context.Context) error {
	_, err := i.open(ctx, true)
	return err
}

// open returns the open index. A missing index is created when create is
// true and reported as domain.ErrIndexNotFound otherwise.
func (i *Index) open(ctx context.Context, create bool) (bleve.Index, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.index != nil {
		return i.index, nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if i.Exists() {
		index, err := i.openExisting(ctx)
		if err != nil {
			return nil, err
		}
		if create {
			i.logger.InfoContext(ctx, "Index already exists", "path", i.path)
		}
		i.index = index
		return index, nil
	}

	if !create {
		return nil, domain.NewEngineError(opOpen, fmt.Errorf("%w: %s", domain.ErrIndexNotFound, i.path))
	}

	if err := os.MkdirAll(filepath.Dir(i.path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	index, err := bleve.New(i.path, CreateIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	i.logger.InfoContext(ctx, "Index created", "path", i.path)
	i.index = index
	return index, nil
}

// openExisting opens the index on disk, giving up when the store lock is
// still held after the open timeout or the context deadline.
func (i *Index) openExisting(ctx context.Context) (bleve.Index, error) {
	timeout := i.openTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return nil, context.DeadlineExceeded
	}

	index, err := bleve.OpenUsing(i.path, map[string]interface{}{
		"bolt_timeout": timeout.String(),
	})
	if errors.Is(err, bolt.ErrTimeout) {
		i.logger.WarnContext(ctx, "Index is locked by another process", "path", i.path, "timeout", timeout)
		return nil, domain.NewEngineError(opOpen, fmt.Errorf("%w: %s", domain.ErrIndexBusy, i.path))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	return index, nil
}

// DocCount returns the number of documents in the index.
func (i *Index) DocCount(ctx context.Context) (uint64, error) {
	index, err := i.open(ctx, false)
	if err != nil {
		return 0, err
	}
	return index.DocCount()
}

// Close releases the index.
func (i *Index) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.index == nil {
		return nil
	}
	err := i.index.Close()
	i.index = nil
	if err != nil {
		return fmt.Errorf("failed to close index: %w", err)
	}
	return nil
}
