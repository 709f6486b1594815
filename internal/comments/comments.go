// Package comments manages comment threads and their messages: creation,
// replies, resolution, and orphan reconciliation against the live document.
package comments

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"inkwell/api/internal/doc"
	"inkwell/api/internal/kvstore"
	"inkwell/api/internal/util"
)

// Message authors.
const (
	AuthorUser = "user"
	AuthorAI   = "ai"
)

// Message statuses. Only AI-authored messages pass through pending.
const (
	StatusPending  = "pending"
	StatusComplete = "complete"
	StatusError    = "error"
)

// Thread modes. An AI-only thread has no anchor mark in the document and is
// exempt from orphan reconciliation.
const (
	ModeAnchored = ""
	ModeAIOnly   = "ai-only"
)

var (
	ErrThreadNotFound  = errors.New("comments: thread not found")
	ErrMessageNotFound = errors.New("comments: message not found")
	ErrNotEditable     = errors.New("comments: message is not user-editable")
)

// Message is one entry in a thread's conversation.
type Message struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Thread is a conversation anchored to a span of document text. AnchorText is
// the literal highlighted text snapshotted at creation time; the live anchor
// is the comment mark in the document carrying the thread id.
type Thread struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"documentId"`
	AnchorText string    `json:"anchorText"`
	Mode       string    `json:"mode,omitempty"`
	Resolved   bool      `json:"resolved"`
	Messages   []Message `json:"messages"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Store persists threads per document in the key-value store. Read failures
// degrade to an empty result and write failures to a logged no-op, so a
// broken storage backend never takes the editor down with it.
type Store struct {
	kv *kvstore.Store
}

func NewStore(kv *kvstore.Store) *Store {
	return &Store{kv: kv}
}

// List returns all threads for a document, oldest first.
func (s *Store) List(ctx context.Context, documentID string) []Thread {
	var threads []Thread
	err := s.kv.Load(ctx, kvstore.NamespaceThreads, documentID, &threads)
	if errors.Is(err, kvstore.ErrNotFound) {
		return []Thread{}
	}
	if err != nil {
		log.Printf("comments: load threads for %s: %v", documentID, err)
		return []Thread{}
	}
	if threads == nil {
		threads = []Thread{}
	}
	return threads
}

func (s *Store) save(ctx context.Context, documentID string, threads []Thread) {
	if err := s.kv.Save(ctx, kvstore.NamespaceThreads, documentID, threads); err != nil {
		log.Printf("comments: save threads for %s: %v", documentID, err)
	}
}

// Get returns one thread by id.
func (s *Store) Get(ctx context.Context, documentID, threadID string) (Thread, error) {
	for _, thread := range s.List(ctx, documentID) {
		if thread.ID == threadID {
			return thread, nil
		}
	}
	return Thread{}, ErrThreadNotFound
}

// Create stores a new thread with an initial user message.
func (s *Store) Create(ctx context.Context, documentID, anchorText, mode, body string) Thread {
	now := time.Now()
	thread := Thread{
		ID:         util.NewID("thr"),
		DocumentID: documentID,
		AnchorText: anchorText,
		Mode:       mode,
		Messages:   []Message{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if body != "" {
		thread.Messages = append(thread.Messages, Message{
			ID:        util.NewID("msg"),
			Author:    AuthorUser,
			Content:   body,
			Status:    StatusComplete,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	threads := append(s.List(ctx, documentID), thread)
	s.save(ctx, documentID, threads)
	return thread
}

// AppendMessage adds a message to a thread and returns it.
func (s *Store) AppendMessage(ctx context.Context, documentID, threadID, author, content, status string) (Message, error) {
	now := time.Now()
	message := Message{
		ID:        util.NewID("msg"),
		Author:    author,
		Content:   content,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.mutate(ctx, documentID, threadID, func(thread *Thread) error {
		thread.Messages = append(thread.Messages, message)
		return nil
	})
	if err != nil {
		return Message{}, err
	}
	return message, nil
}

// EditMessage updates the content of a completed user-authored message.
// AI messages and pending messages are never user-editable.
func (s *Store) EditMessage(ctx context.Context, documentID, threadID, messageID, content string) error {
	return s.mutate(ctx, documentID, threadID, func(thread *Thread) error {
		for i := range thread.Messages {
			if thread.Messages[i].ID != messageID {
				continue
			}
			if thread.Messages[i].Author != AuthorUser || thread.Messages[i].Status != StatusComplete {
				return ErrNotEditable
			}
			thread.Messages[i].Content = content
			thread.Messages[i].UpdatedAt = time.Now()
			return nil
		}
		return ErrMessageNotFound
	})
}

// CompleteMessage transitions a pending message to complete with its final
// content. Messages already out of pending are left untouched.
func (s *Store) CompleteMessage(ctx context.Context, documentID, threadID, messageID, content string) error {
	return s.settleMessage(ctx, documentID, threadID, messageID, StatusComplete, content)
}

// FailMessage transitions a pending message to error with a human-readable
// message.
func (s *Store) FailMessage(ctx context.Context, documentID, threadID, messageID, reason string) error {
	return s.settleMessage(ctx, documentID, threadID, messageID, StatusError, reason)
}

func (s *Store) settleMessage(ctx context.Context, documentID, threadID, messageID, status, content string) error {
	return s.mutate(ctx, documentID, threadID, func(thread *Thread) error {
		for i := range thread.Messages {
			if thread.Messages[i].ID != messageID {
				continue
			}
			if thread.Messages[i].Status != StatusPending {
				return fmt.Errorf("comments: message %s is %s, not pending", messageID, thread.Messages[i].Status)
			}
			thread.Messages[i].Status = status
			thread.Messages[i].Content = content
			thread.Messages[i].UpdatedAt = time.Now()
			return nil
		}
		return ErrMessageNotFound
	})
}

// SetResolved flips a thread's resolved flag.
func (s *Store) SetResolved(ctx context.Context, documentID, threadID string, resolved bool) error {
	return s.mutate(ctx, documentID, threadID, func(thread *Thread) error {
		thread.Resolved = resolved
		return nil
	})
}

// Delete removes a thread from the store.
func (s *Store) Delete(ctx context.Context, documentID, threadID string) error {
	threads := s.List(ctx, documentID)
	kept := threads[:0]
	found := false
	for _, thread := range threads {
		if thread.ID == threadID {
			found = true
			continue
		}
		kept = append(kept, thread)
	}
	if !found {
		return ErrThreadNotFound
	}
	s.save(ctx, documentID, kept)
	return nil
}

// DeleteAll drops every thread for a document. Used when the document itself
// is deleted.
func (s *Store) DeleteAll(ctx context.Context, documentID string) {
	if err := s.kv.Delete(ctx, kvstore.NamespaceThreads, documentID); err != nil && !errors.Is(err, kvstore.ErrNotFound) {
		log.Printf("comments: delete threads for %s: %v", documentID, err)
	}
}

func (s *Store) mutate(ctx context.Context, documentID, threadID string, fn func(*Thread) error) error {
	threads := s.List(ctx, documentID)
	for i := range threads {
		if threads[i].ID != threadID {
			continue
		}
		if err := fn(&threads[i]); err != nil {
			return err
		}
		threads[i].UpdatedAt = time.Now()
		s.save(ctx, documentID, threads)
		return nil
	}
	return ErrThreadNotFound
}

// Refresh reconciles the stored threads against the live annotated ranges:
// anchored threads whose mark has disappeared from the document are deleted
// silently, and survivors are returned sorted by document position. AI-only
// threads never have a mark and always survive, sorted after anchored ones.
func (s *Store) Refresh(ctx context.Context, documentID string, live map[string]doc.AnnotatedRange) []Thread {
	threads := s.List(ctx, documentID)
	kept := make([]Thread, 0, len(threads))
	removed := 0
	for _, thread := range threads {
		if thread.Mode != ModeAIOnly {
			if _, ok := live[thread.ID]; !ok {
				removed++
				continue
			}
		}
		kept = append(kept, thread)
	}
	if removed > 0 {
		s.save(ctx, documentID, kept)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		left, leftAnchored := live[kept[i].ID]
		right, rightAnchored := live[kept[j].ID]
		if leftAnchored != rightAnchored {
			return leftAnchored
		}
		if !leftAnchored {
			return kept[i].CreatedAt.Before(kept[j].CreatedAt)
		}
		return left.From < right.From
	})
	return kept
}
