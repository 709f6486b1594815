// Package kvstore provides the flat key-value persistence backing comment
// threads and AI patches: one JSON blob per document per namespace.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Namespaces carry a schema version in the key suffix so incompatible older
// formats never collide with current data.
const (
	NamespaceThreads = "threads:v2"
	NamespacePatches = "patches:v1"
)

// ErrNotFound is returned when a namespace holds no blob for a document.
var ErrNotFound = errors.New("kvstore: not found")

// Store is a Redis-backed blob store. Mutations are whole-blob
// read-modify-write cycles with last-write-wins semantics; the tool assumes a
// single active writer per document.
type Store struct {
	client *redis.Client
	prefix string
}

// New connects to Redis and verifies the connection.
func New(redisURL string) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &Store{client: client, prefix: "inkwell:"}, nil
}

// NewWithClient wraps an existing Redis client.
func NewWithClient(client *redis.Client) *Store {
	return &Store{client: client, prefix: "inkwell:"}
}

func (s *Store) key(namespace, documentID string) string {
	return s.prefix + namespace + ":" + documentID
}

// Load reads and decodes the blob for a document. Returns ErrNotFound when
// nothing has been stored yet.
func (s *Store) Load(ctx context.Context, namespace, documentID string, target any) error {
	raw, err := s.client.Get(ctx, s.key(namespace, documentID)).Result()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load %s blob: %w", namespace, err)
	}
	if err := json.Unmarshal([]byte(raw), target); err != nil {
		return fmt.Errorf("decode %s blob: %w", namespace, err)
	}
	return nil
}

// Save encodes and writes the blob for a document, replacing any previous
// value.
func (s *Store) Save(ctx context.Context, namespace, documentID string, value any) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s blob: %w", namespace, err)
	}
	if err := s.client.Set(ctx, s.key(namespace, documentID), payload, 0).Err(); err != nil {
		return fmt.Errorf("save %s blob: %w", namespace, err)
	}
	return nil
}

// Delete removes the blob for a document.
func (s *Store) Delete(ctx context.Context, namespace, documentID string) error {
	if err := s.client.Del(ctx, s.key(namespace, documentID)).Err(); err != nil {
		return fmt.Errorf("delete %s blob: %w", namespace, err)
	}
	return nil
}

// Ping checks if Redis is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}
