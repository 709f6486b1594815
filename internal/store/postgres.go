package store

import (
	"context"
	"database/sql"
	"fmt"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, status, excerpt, updated_by_name, created_at, updated_at
		FROM documents
		ORDER BY updated_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	items := make([]Document, 0)
	for rows.Next() {
		var item Document
		if err := rows.Scan(&item.ID, &item.Title, &item.Status, &item.Excerpt, &item.UpdatedBy, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetDocument(ctx context.Context, documentID string) (Document, error) {
	var item Document
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, status, excerpt, updated_by_name, created_at, updated_at
		FROM documents
		WHERE id=$1
	`, documentID).Scan(&item.ID, &item.Title, &item.Status, &item.Excerpt, &item.UpdatedBy, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return Document{}, err
	}
	return item, nil
}

func (s *PostgresStore) InsertDocument(ctx context.Context, item Document) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, title, status, excerpt, updated_by_name)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`, item.ID, item.Title, item.Status, item.Excerpt, item.UpdatedBy)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateDocument(ctx context.Context, item Document) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE documents
		SET title=$2, status=$3, excerpt=$4, updated_by_name=$5, updated_at=NOW()
		WHERE id=$1
	`, item.ID, item.Title, item.Status, item.Excerpt, item.UpdatedBy)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteDocument(ctx context.Context, documentID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id=$1`, documentID)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// SearchDocuments is the fallback used when Meilisearch is unavailable:
// a case-insensitive substring match over title and excerpt.
func (s *PostgresStore) SearchDocuments(ctx context.Context, query string, limit int) ([]Document, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, status, excerpt, updated_by_name, created_at, updated_at
		FROM documents
		WHERE title ILIKE '%' || $1 || '%' OR excerpt ILIKE '%' || $1 || '%'
		ORDER BY updated_at DESC
		LIMIT $2
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	defer rows.Close()

	items := make([]Document, 0)
	for rows.Next() {
		var item Document
		if err := rows.Scan(&item.ID, &item.Title, &item.Status, &item.Excerpt, &item.UpdatedBy, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search results: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) GetWorkspaceSettings(ctx context.Context) (WorkspaceSettings, error) {
	var settings WorkspaceSettings
	err := s.db.QueryRowContext(ctx, `
		SELECT name, knowledge, updated_at FROM workspace_settings WHERE id=1
	`).Scan(&settings.Name, &settings.Knowledge, &settings.UpdatedAt)
	if err != nil {
		return WorkspaceSettings{}, fmt.Errorf("read workspace settings: %w", err)
	}
	return settings, nil
}

func (s *PostgresStore) SaveWorkspaceSettings(ctx context.Context, settings WorkspaceSettings) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE workspace_settings SET name=$1, knowledge=$2, updated_at=NOW() WHERE id=1
	`, settings.Name, settings.Knowledge)
	if err != nil {
		return fmt.Errorf("save workspace settings: %w", err)
	}
	return nil
}
