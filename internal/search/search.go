// Package search provides workspace search: Meilisearch when available,
// PostgreSQL as the fallback.
package search

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultDocument ResultType = "document"
	ResultThread   ResultType = "thread"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type       ResultType `json:"type"`
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Snippet    string     `json:"snippet"`
	DocumentID string     `json:"documentId"`
}

// Query describes a search request.
type Query struct {
	Text       string
	FilterType ResultType // empty = all types
	Limit      int
	Offset     int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// DocumentRecord is the data we index for a document.
type DocumentRecord struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Excerpt string `json:"excerpt"`
	Status  string `json:"status"`
}

// ThreadRecord is the data we index for a comment thread.
type ThreadRecord struct {
	ID         string `json:"id"`
	Body       string `json:"body"`
	AnchorText string `json:"anchorText"`
	DocumentID string `json:"documentId"`
	Resolved   bool   `json:"resolved"`
}
