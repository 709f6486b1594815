package comments

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"inkwell/api/internal/doc"
	"inkwell/api/internal/kvstore"
)

func setupTestStore(t *testing.T) *Store {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewStore(kvstore.NewWithClient(client))
}

func TestCreateAndList(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	created := store.Create(ctx, "doc-1", "some anchor", ModeAnchored, "first comment")
	if created.ID == "" || created.AnchorText != "some anchor" {
		t.Fatalf("unexpected thread %+v", created)
	}
	if len(created.Messages) != 1 || created.Messages[0].Author != AuthorUser {
		t.Fatalf("expected one user message, got %+v", created.Messages)
	}
	if created.Messages[0].Status != StatusComplete {
		t.Errorf("user messages are complete on creation, got %q", created.Messages[0].Status)
	}

	threads := store.List(ctx, "doc-1")
	if len(threads) != 1 || threads[0].ID != created.ID {
		t.Errorf("unexpected list %+v", threads)
	}
	if got := store.List(ctx, "doc-other"); len(got) != 0 {
		t.Errorf("expected empty list for other document, got %+v", got)
	}
}

func TestAppendAndSettleMessage(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	thread := store.Create(ctx, "doc-1", "anchor", ModeAnchored, "question")
	pending, err := store.AppendMessage(ctx, "doc-1", thread.ID, AuthorAI, "", StatusPending)
	if err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	if err := store.CompleteMessage(ctx, "doc-1", thread.ID, pending.ID, "an answer"); err != nil {
		t.Fatalf("CompleteMessage failed: %v", err)
	}

	got, err := store.Get(ctx, "doc-1", thread.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	last := got.Messages[len(got.Messages)-1]
	if last.Status != StatusComplete || last.Content != "an answer" {
		t.Errorf("unexpected settled message %+v", last)
	}

	// Settling is one-way: a completed message cannot go back to pending paths.
	if err := store.FailMessage(ctx, "doc-1", thread.ID, pending.ID, "late failure"); err == nil {
		t.Error("expected error settling a non-pending message")
	}
}

func TestFailMessage(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	thread := store.Create(ctx, "doc-1", "anchor", ModeAnchored, "question")
	pending, err := store.AppendMessage(ctx, "doc-1", thread.ID, AuthorAI, "", StatusPending)
	if err != nil {
		t.Fatalf("AppendMessage failed: %v", err)
	}

	if err := store.FailMessage(ctx, "doc-1", thread.ID, pending.ID, "provider unreachable"); err != nil {
		t.Fatalf("FailMessage failed: %v", err)
	}
	got, _ := store.Get(ctx, "doc-1", thread.ID)
	last := got.Messages[len(got.Messages)-1]
	if last.Status != StatusError || last.Content != "provider unreachable" {
		t.Errorf("unexpected failed message %+v", last)
	}
}

func TestEditMessageOnlyUserCompleted(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	thread := store.Create(ctx, "doc-1", "anchor", ModeAnchored, "original wording")
	userMsg := thread.Messages[0]
	aiMsg, _ := store.AppendMessage(ctx, "doc-1", thread.ID, AuthorAI, "reply", StatusComplete)

	if err := store.EditMessage(ctx, "doc-1", thread.ID, userMsg.ID, "new wording"); err != nil {
		t.Fatalf("EditMessage failed: %v", err)
	}
	got, _ := store.Get(ctx, "doc-1", thread.ID)
	if got.Messages[0].Content != "new wording" {
		t.Errorf("edit not applied: %+v", got.Messages[0])
	}

	if err := store.EditMessage(ctx, "doc-1", thread.ID, aiMsg.ID, "tamper"); !errors.Is(err, ErrNotEditable) {
		t.Errorf("expected ErrNotEditable for AI message, got %v", err)
	}
	if err := store.EditMessage(ctx, "doc-1", thread.ID, "msg-absent", "x"); !errors.Is(err, ErrMessageNotFound) {
		t.Errorf("expected ErrMessageNotFound, got %v", err)
	}
}

func TestResolveAndDelete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	thread := store.Create(ctx, "doc-1", "anchor", ModeAnchored, "question")
	if err := store.SetResolved(ctx, "doc-1", thread.ID, true); err != nil {
		t.Fatalf("SetResolved failed: %v", err)
	}
	got, _ := store.Get(ctx, "doc-1", thread.ID)
	if !got.Resolved {
		t.Error("expected thread to be resolved")
	}

	if err := store.Delete(ctx, "doc-1", thread.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "doc-1", thread.ID); !errors.Is(err, ErrThreadNotFound) {
		t.Errorf("expected ErrThreadNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, "doc-1", thread.ID); !errors.Is(err, ErrThreadNotFound) {
		t.Errorf("expected ErrThreadNotFound on second delete, got %v", err)
	}
}

func TestRefreshDeletesOrphans(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	live := store.Create(ctx, "doc-1", "still here", ModeAnchored, "a")
	orphan := store.Create(ctx, "doc-1", "deleted text", ModeAnchored, "b")
	aiOnly := store.Create(ctx, "doc-1", "", ModeAIOnly, "document question")

	ranges := map[string]doc.AnnotatedRange{
		live.ID: {Text: "still here", From: 10, To: 20},
	}
	kept := store.Refresh(ctx, "doc-1", ranges)

	ids := make([]string, 0, len(kept))
	for _, thread := range kept {
		ids = append(ids, thread.ID)
	}
	if len(kept) != 2 || kept[0].ID != live.ID || kept[1].ID != aiOnly.ID {
		t.Errorf("expected [%s %s], got %v", live.ID, aiOnly.ID, ids)
	}
	for _, thread := range kept {
		if thread.ID == orphan.ID {
			t.Error("orphaned thread survived refresh")
		}
	}

	// The deletion is persisted, not just filtered from the return value.
	if after := store.List(ctx, "doc-1"); len(after) != 2 {
		t.Errorf("expected 2 stored threads after refresh, got %d", len(after))
	}
}

func TestRefreshSortsByDocumentPosition(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	later := store.Create(ctx, "doc-1", "second span", ModeAnchored, "a")
	earlier := store.Create(ctx, "doc-1", "first span", ModeAnchored, "b")

	ranges := map[string]doc.AnnotatedRange{
		later.ID:   {Text: "second span", From: 40, To: 51},
		earlier.ID: {Text: "first span", From: 5, To: 15},
	}
	kept := store.Refresh(ctx, "doc-1", ranges)

	if len(kept) != 2 || kept[0].ID != earlier.ID || kept[1].ID != later.ID {
		t.Errorf("expected position order [%s %s], got %+v", earlier.ID, later.ID, kept)
	}
}
