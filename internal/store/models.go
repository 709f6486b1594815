package store

import "time"

// Document statuses.
const (
	StatusDraft    = "draft"
	StatusActive   = "active"
	StatusArchived = "archived"
)

// Document is the metadata row for one document. Content lives in the
// per-document git repository; Excerpt is a plain-text preview maintained on
// every content save.
type Document struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	Excerpt   string    `json:"excerpt"`
	UpdatedBy string    `json:"updatedBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// WorkspaceSettings is the single-row workspace configuration. Knowledge is
// the free-text project background handed to the assistant with every
// request.
type WorkspaceSettings struct {
	Name      string    `json:"name"`
	Knowledge string    `json:"knowledge"`
	UpdatedAt time.Time `json:"updatedAt"`
}
