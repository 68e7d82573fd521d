package domain

// DocumentRecord represents a file whose text was extracted for indexing.
// It is the document body written to the search engine.
type DocumentRecord struct {
	// FileName is the base name of the file.
	// Example: "report.pdf"
	FileName string `json:"file_name" yaml:"file_name"`

	// FilePath is the path the file was read from. It is the document identity
	// in the engine, so re-ingesting the same path overwrites the old version.
	FilePath string `json:"file_path" yaml:"file_path"`

	// FileType is the lower-case extension without the leading dot.
	// Example: "pdf", "docx", "csv"
	FileType string `json:"file_type" yaml:"file_type"`

	// Content is the extracted text.
	Content string `json:"content" yaml:"content"`

	// FileSize is the file size in bytes.
	FileSize int64 `json:"file_size" yaml:"file_size"`
}

// ID returns the engine identity of the document.
func (d DocumentRecord) ID() string {
	return d.FilePath
}

// Field name constants shared by the engine mappings, the query builder and
// the result normalizer.
const (
	FieldFileName = "file_name"
	FieldFilePath = "file_path"
	FieldFileType = "file_type"
	FieldContent  = "content"
	FieldFileSize = "file_size"

	// ExactSuffix names the non-tokenized sibling of a full-text field.
	ExactSuffix = ".keyword"

	// FieldFileNameExact is the sortable sibling of FieldFileName.
	FieldFileNameExact = FieldFileName + ExactSuffix
	// FieldFilePathExact is the exact-match sibling of FieldFilePath.
	FieldFilePathExact = FieldFilePath + ExactSuffix

	// FieldScore is the engine's internal relevance score field.
	FieldScore = "_score"
)

// Supported file types.
const (
	FileTypeDocx = "docx"
	FileTypeDoc  = "doc"
	FileTypeXlsx = "xlsx"
	FileTypeXls  = "xls"
	FileTypePDF  = "pdf"
	FileTypeCSV  = "csv"
)

// SupportedFileTypes lists every file type the extractor understands.
var SupportedFileTypes = []string{
	FileTypeDocx, FileTypeDoc, FileTypeXlsx, FileTypeXls, FileTypePDF, FileTypeCSV,
}

// IsSupportedFileType reports whether t is one of SupportedFileTypes.
func IsSupportedFileType(t string) bool {
	for _, s := range SupportedFileTypes {
		if s == t {
			return true
		}
	}
	return false
}

// FailedDocument is a document the engine refused to index.
type FailedDocument struct {
	Document DocumentRecord `json:"document"`
	Reason   string         `json:"reason"`
}

// BulkResult partitions a batched write into indexed and failed documents.
type BulkResult struct {
	Indexed int              `json:"indexed"`
	Failed  []FailedDocument `json:"failed,omitempty"`
}

// Merge folds other into r.
func (r *BulkResult) Merge(other BulkResult) {
	r.Indexed += other.Indexed
	r.Failed = append(r.Failed, other.Failed...)
}
