package loader

import (
	"context"
	"errors"
	"path"
	"strings"
)

// ErrParse indicates a document could not be parsed into text. Batch
// callers record it per item and keep going.
var ErrParse = errors.New("loader: parse failed")

// DocumentFormat identifies how a document's bytes should be turned
// into text.
type DocumentFormat string

const (
	FormatPDF  DocumentFormat = "pdf"
	FormatDocx DocumentFormat = "docx"
	FormatText DocumentFormat = "text"
	FormatCSV  DocumentFormat = "csv"
	FormatHTML DocumentFormat = "html"
)

// DocumentFile represents a source document that can be turned into
// text for ingestion. The raw bytes are retrieved via the associated
// SourceLoader, which may read from disk, S3, or the web.
type DocumentFile struct {
	ID       string
	FilePath string
	Format   DocumentFormat
	Loader   SourceLoader
}

// NewDocumentFileParams defines the input parameters for creating a new
// DocumentFile.
type NewDocumentFileParams struct {
	ID       string
	FilePath string
	Format   DocumentFormat
	Loader   SourceLoader
}

// NewDocumentFile creates a DocumentFile. When Format is empty it is
// detected from the file extension.
func NewDocumentFile(params NewDocumentFileParams) DocumentFile {
	format := params.Format
	if format == "" {
		format = DetectFormat(params.FilePath)
	}
	return DocumentFile{
		ID:       params.ID,
		FilePath: params.FilePath,
		Format:   format,
		Loader:   params.Loader,
	}
}

// GetText retrieves the raw content of the file using its Loader.
func (f *DocumentFile) GetText(ctx context.Context) ([]byte, error) {
	return f.Loader.GetFileText(ctx, *f)
}

// SourceLoader defines the interface for loading the contents of a
// DocumentFile. Implementations may load files from disk, cloud
// storage, or the web.
type SourceLoader interface {
	GetFileText(ctx context.Context, file DocumentFile) ([]byte, error)
}

// DetectFormat maps a file path to a DocumentFormat by extension.
// Unknown extensions are treated as plain text.
func DetectFormat(filePath string) DocumentFormat {
	switch strings.ToLower(path.Ext(filePath)) {
	case ".pdf":
		return FormatPDF
	case ".docx", ".doc":
		return FormatDocx
	case ".csv":
		return FormatCSV
	case ".html", ".htm":
		return FormatHTML
	default:
		return FormatText
	}
}

// CacheKey generates a unique cache key for a DocumentFile based on its ID and path.
func CacheKey(file DocumentFile) string {
	return file.ID + ":" + file.FilePath
}
