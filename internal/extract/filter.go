package extract

import (
	"path/filepath"
	"strings"
)

// DefaultExcludePatterns contains file patterns to skip during a directory walk.
// These match version control metadata, office lock files and OS artifacts.
var DefaultExcludePatterns = []string{
	// Version control
	".git/**", ".svn/**", ".hg/**",

	// Office lock and temp files
	"~$*", ".~lock.*#", "*.tmp",

	// OS artifacts
	"__MACOSX/**", ".DS_Store", "Thumbs.db", "desktop.ini",
}

// FileFilter determines which files should be read during ingestion.
type FileFilter struct {
	patterns    []string
	maxFileSize int64
}

// NewFileFilter creates a new FileFilter with default exclusion patterns.
func NewFileFilter(maxFileSize int64) *FileFilter {
	return &FileFilter{
		patterns:    DefaultExcludePatterns,
		maxFileSize: maxFileSize,
	}
}

// NewFileFilterWithPatterns creates a FileFilter with custom patterns.
func NewFileFilterWithPatterns(patterns []string, maxFileSize int64) *FileFilter {
	return &FileFilter{
		patterns:    patterns,
		maxFileSize: maxFileSize,
	}
}

// ShouldExclude returns true if the given path matches any exclusion pattern.
// The path should be relative to the walked root.
func (f *FileFilter) ShouldExclude(relPath string) bool {
	relPath = filepath.ToSlash(relPath)

	for _, pattern := range f.patterns {
		if matchPattern(pattern, relPath) {
			return true
		}
	}
	return false
}

// TooLarge reports whether a file of size bytes exceeds the limit.
// A non-positive limit disables the check.
func (f *FileFilter) TooLarge(size int64) bool {
	return f.maxFileSize > 0 && size > f.maxFileSize
}

// MaxFileSize returns the maximum file size for ingestion.
func (f *FileFilter) MaxFileSize() int64 {
	return f.maxFileSize
}

// matchPattern matches a slash-separated path against a glob pattern.
// Supports a dir/** suffix for directories at any depth and * globs that are
// tried against the full path and the base name.
func matchPattern(pattern, path string) bool {
	if dir, ok := strings.CutSuffix(pattern, "/**"); ok {
		if path == dir || strings.HasPrefix(path, dir+"/") {
			return true
		}
		parts := strings.Split(path, "/")
		for i, part := range parts {
			if part == dir && i < len(parts)-1 {
				return true
			}
		}
		return false
	}

	return matchSimplePattern(pattern, path)
}

// matchSimplePattern matches a simple glob pattern (with * but not **).
func matchSimplePattern(pattern, name string) bool {
	if ext, ok := strings.CutPrefix(pattern, "*."); ok {
		return strings.HasSuffix(strings.ToLower(name), "."+strings.ToLower(ext))
	}

	if pattern == name {
		return true
	}

	if matched, _ := filepath.Match(pattern, name); matched {
		return true
	}

	matched, _ := filepath.Match(pattern, filepath.Base(name))
	return matched
}
