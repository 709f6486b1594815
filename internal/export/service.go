package export

import (
	"context"
	"fmt"
	"html/template"

	"inkwell/api/internal/doc"
)

// Service provides document export.
type Service struct {
	store DataStore
}

func NewService(store DataStore) *Service {
	return &Service{store: store}
}

// Export generates an export in the requested format.
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	info, err := s.store.GetExportDocument(ctx, req.DocumentID)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}

	raw, err := s.store.GetExportContent(ctx, req.DocumentID, req.Version)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContentUnavailable, err)
	}
	parsed, err := doc.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContentUnavailable, err)
	}

	data := TemplateData{
		Title:       info.Title,
		ContentHTML: template.HTML(RenderHTML(parsed)),
		Author:      info.UpdatedBy,
		UpdatedAt:   info.UpdatedAt,
		Threads:     []TemplateThread{},
	}

	if req.IncludeThreads {
		threads, err := s.store.ListExportThreads(ctx, req.DocumentID)
		if err != nil {
			return nil, fmt.Errorf("list threads: %w", err)
		}
		for _, t := range threads {
			thread := TemplateThread{
				AnchorText: t.AnchorText,
				Resolved:   t.Resolved,
				Messages:   []TemplateMessage{},
			}
			for _, m := range t.Messages {
				thread.Messages = append(thread.Messages, TemplateMessage{
					Author:   m.Author,
					BodyHTML: renderMessageBody(m.Body, m.AI),
				})
			}
			data.Threads = append(data.Threads, thread)
		}
	}

	page, err := RenderDocumentHTML(data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	switch req.Format {
	case FormatHTML:
		return &Result{
			Data:     []byte(page),
			Filename: sanitizeFilename(info.Title) + ".html",
			MimeType: "text/html; charset=utf-8",
		}, nil
	case FormatPDF:
		return exportPDF(page, info.Title)
	default:
		return nil, fmt.Errorf("unsupported format: %s", req.Format)
	}
}
