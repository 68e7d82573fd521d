// Package extract turns office documents into indexable text records.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sha1n/docindex/internal/domain"
	"github.com/sha1n/docindex/internal/metrics"
)

var (
	// ErrUnsupportedFormat is returned for files whose extension has no extractor.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrNoContent is returned when a file yields no text.
	ErrNoContent = errors.New("no content extracted")
)

// TextFunc extracts the text of the file at path.
type TextFunc func(path string) (string, error)

// Extractor maps files to document records by file type.
type Extractor struct {
	logger *slog.Logger
	funcs  map[string]TextFunc
}

// New creates an Extractor for every supported file type.
func New(logger *slog.Logger) *Extractor {
	e := &Extractor{logger: logger}
	e.funcs = map[string]TextFunc{
		domain.FileTypeDocx: extractDocx,
		domain.FileTypeDoc:  e.extractDoc,
		domain.FileTypeXlsx: extractXlsx,
		domain.FileTypeXls:  extractXls,
		domain.FileTypePDF:  extractPDF,
		domain.FileTypeCSV:  extractCSV,
	}
	return e
}

// Supports reports whether files of fileType can be extracted.
func (e *Extractor) Supports(fileType string) bool {
	_, ok := e.funcs[fileType]
	return ok
}

// Extract reads the file at path and returns its document record.
// It returns ErrUnsupportedFormat or ErrNoContent when the file yields no record.
func (e *Extractor) Extract(ctx context.Context, path string) (doc domain.DocumentRecord, err error) {
	fileType := FileType(path)
	defer func() {
		metrics.ExtractFilesTotal.WithLabelValues(e.metricsFileType(fileType), extractStatus(err)).Inc()
	}()

	if err := ctx.Err(); err != nil {
		return domain.DocumentRecord{}, err
	}

	fn, ok := e.funcs[fileType]
	if !ok {
		return domain.DocumentRecord{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}

	info, err := os.Stat(path)
	if err != nil {
		return domain.DocumentRecord{}, fmt.Errorf("failed to stat file: %w", err)
	}

	text, err := safeExtract(fn, path)
	if err != nil {
		return domain.DocumentRecord{}, fmt.Errorf("failed to extract %s text: %w", fileType, err)
	}
	if strings.TrimSpace(text) == "" {
		return domain.DocumentRecord{}, ErrNoContent
	}

	return domain.DocumentRecord{
		FileName: filepath.Base(path),
		FilePath: path,
		FileType: fileType,
		Content:  text,
		FileSize: info.Size(),
	}, nil
}

// safeExtract runs fn, converting a parser panic on malformed input into an error.
func safeExtract(fn TextFunc, path string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parser panic: %v", r)
		}
	}()
	return fn(path)
}

// metricsFileType keeps the label set bounded by folding unknown extensions into one value.
func (e *Extractor) metricsFileType(fileType string) string {
	if e.Supports(fileType) {
		return fileType
	}
	return metrics.FileTypeOther
}

func extractStatus(err error) string {
	switch {
	case err == nil:
		return metrics.StatusExtracted
	case errors.Is(err, ErrUnsupportedFormat):
		return metrics.StatusUnsupported
	case errors.Is(err, ErrNoContent):
		return metrics.StatusSkipped
	default:
		return metrics.StatusError
	}
}

// FileType returns the lower-case extension of path without the leading dot.
// Returns empty string if no extension.
func FileType(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}
