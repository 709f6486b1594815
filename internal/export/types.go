// Package export renders documents to standalone HTML and PDF, optionally
// with the comment threads appended.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Format represents the export output format.
type Format string

const (
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
)

// ParseFormat validates a client-supplied format string.
func ParseFormat(s string) (Format, bool) {
	switch Format(s) {
	case FormatHTML, FormatPDF:
		return Format(s), true
	}
	return "", false
}

// Request contains parameters for an export operation.
type Request struct {
	DocumentID     string
	Version        string // "latest" or commit hash
	Format         Format
	IncludeThreads bool
}

// DocumentInfo holds the document metadata rendered into the export header.
type DocumentInfo struct {
	ID        string
	Title     string
	UpdatedBy string
	UpdatedAt time.Time
}

// ThreadInfo holds one comment thread for the export appendix.
type ThreadInfo struct {
	ID         string
	AnchorText string
	Resolved   bool
	Messages   []MessageInfo
}

// MessageInfo is one thread message. AI replies are Markdown and get rendered
// to HTML; user messages stay plain text.
type MessageInfo struct {
	Author string
	Body   string
	AI     bool
}

// DataStore is the data access surface the export service reads from.
type DataStore interface {
	GetExportDocument(ctx context.Context, documentID string) (DocumentInfo, error)
	GetExportContent(ctx context.Context, documentID, version string) (json.RawMessage, error)
	ListExportThreads(ctx context.Context, documentID string) ([]ThreadInfo, error)
}

// Result contains the export output.
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	// ErrContentUnavailable indicates document content could not be loaded for export.
	ErrContentUnavailable = errors.New("export content unavailable")
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
)
