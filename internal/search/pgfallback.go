package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFallback answers searches from PostgreSQL when Meilisearch is down or not
// configured. Only documents are searchable here: threads live in the
// key-value store, so a degraded search returns documents only.
type PgFallback struct {
	db *sql.DB
}

func NewPgFallback(db *sql.DB) *PgFallback {
	return &PgFallback{db: db}
}

func (p *PgFallback) Search(q Query) ([]Result, int, error) {
	if q.FilterType == ResultThread {
		return []Result{}, 0, nil
	}
	limit := q.Limit
	if limit == 0 {
		limit = 20
	}

	rows, err := p.db.QueryContext(context.Background(), `
		SELECT id, title, excerpt
		FROM documents
		WHERE title ILIKE '%' || $1 || '%' OR excerpt ILIKE '%' || $1 || '%'
		ORDER BY updated_at DESC
		LIMIT $2 OFFSET $3
	`, q.Text, limit, q.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("fallback search: %w", err)
	}
	defer rows.Close()

	results := make([]Result, 0)
	for rows.Next() {
		var r Result
		r.Type = ResultDocument
		if err := rows.Scan(&r.ID, &r.Title, &r.Snippet); err != nil {
			return nil, 0, fmt.Errorf("scan fallback result: %w", err)
		}
		r.DocumentID = r.ID
		r.Snippet = trimSnippet(r.Snippet, q.Text)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate fallback results: %w", err)
	}
	return results, len(results), nil
}

// trimSnippet shortens a long excerpt around the first match of the query.
func trimSnippet(excerpt, query string) string {
	const window = 160
	if len(excerpt) <= window {
		return excerpt
	}
	idx := strings.Index(strings.ToLower(excerpt), strings.ToLower(query))
	if idx < 0 {
		idx = 0
	}
	start := idx - window/2
	if start < 0 {
		start = 0
	}
	end := start + window
	if end > len(excerpt) {
		end = len(excerpt)
		start = end - window
	}
	return excerpt[start:end]
}
