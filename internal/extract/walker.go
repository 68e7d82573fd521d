package extract

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/sha1n/docindex/internal/domain"
)

// WalkResult is the outcome of extracting a directory tree.
type WalkResult struct {
	// Documents are the records extracted, in walk order.
	Documents []domain.DocumentRecord

	// FilesScanned counts regular files considered for extraction.
	FilesScanned int

	// Skipped maps file paths to the reason they produced no record.
	Skipped map[string]string
}

func (r *WalkResult) skip(path, reason string) {
	if r.Skipped == nil {
		r.Skipped = make(map[string]string)
	}
	r.Skipped[path] = reason
}

// Walker extracts every eligible file under a directory.
type Walker struct {
	extractor *Extractor
	filter    *FileFilter
	logger    *slog.Logger
}

// NewWalker creates a Walker.
func NewWalker(extractor *Extractor, filter *FileFilter, logger *slog.Logger) *Walker {
	return &Walker{
		extractor: extractor,
		filter:    filter,
		logger:    logger,
	}
}

// Walk extracts the files under root recursively. Per-file failures are
// logged and recorded in Skipped; only an unreadable root or a canceled
// context stops the walk.
func (w *Walker) Walk(ctx context.Context, root string) (*WalkResult, error) {
	result := &WalkResult{}

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			w.logger.WarnContext(ctx, "Failed to access path", "path", path, "error", err)
			result.skip(path, err.Error())
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}

		if d.IsDir() {
			if relPath != "." && w.filter.ShouldExclude(relPath+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() || w.filter.ShouldExclude(relPath) {
			return nil
		}
		result.FilesScanned++

		info, err := d.Info()
		if err != nil {
			result.skip(path, err.Error())
			return nil
		}
		if w.filter.TooLarge(info.Size()) {
			w.logger.WarnContext(ctx, "File exceeds size limit", "file_path", path, "size", info.Size(), "max_file_size", w.filter.MaxFileSize())
			result.skip(path, "file too large")
			return nil
		}

		doc, err := w.extractor.Extract(ctx, path)
		switch {
		case err == nil:
			result.Documents = append(result.Documents, doc)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return err
		case errors.Is(err, ErrUnsupportedFormat):
			w.logger.WarnContext(ctx, "Unsupported file type", "file_path", path, "file_type", FileType(path))
			result.skip(path, err.Error())
		case errors.Is(err, ErrNoContent):
			w.logger.WarnContext(ctx, "No content extracted", "file_path", path)
			result.skip(path, err.Error())
		default:
			w.logger.ErrorContext(ctx, "Failed to extract file", "file_path", path, "error", err)
			result.skip(path, err.Error())
		}
		return nil
	})
	if err != nil {
		return result, err
	}

	w.logger.InfoContext(ctx, "Extraction complete",
		"root", root,
		"files_scanned", result.FilesScanned,
		"documents", len(result.Documents),
		"skipped", len(result.Skipped),
	)
	return result, nil
}
