package patch

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"inkwell/api/internal/comments"
	"inkwell/api/internal/doc"
	"inkwell/api/internal/kvstore"
)

func setupTest(t *testing.T) (*Store, *comments.Store, *Applier) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { client.Close() })

	kv := kvstore.NewWithClient(client)
	patches := NewStore(kv)
	threads := comments.NewStore(kv)
	return patches, threads, NewApplier(patches, threads)
}

// markedDocument builds "abc foo bar" with a comment mark for threadID on "foo".
func markedDocument(t *testing.T, threadID string) *doc.Document {
	t.Helper()
	d := doc.New("abc foo bar")
	r, ok := d.OffsetRange(4, 7)
	if !ok {
		t.Fatal("OffsetRange failed")
	}
	if err := d.ApplyMarkForID(r, threadID); err != nil {
		t.Fatalf("ApplyMarkForID failed: %v", err)
	}
	return d
}

func TestAcceptAppliesAtMark(t *testing.T) {
	patches, threads, applier := setupTest(t)
	ctx := context.Background()

	thread := threads.Create(ctx, "doc-1", "foo", comments.ModeAnchored, "tighten this")
	d := markedDocument(t, thread.ID)
	p := patches.Create(ctx, "doc-1", thread.ID, "foo", "quux")

	applied, err := applier.Accept(ctx, d, "doc-1", p.ID)
	if err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if applied.Status != StatusAccepted {
		t.Errorf("expected accepted, got %q", applied.Status)
	}
	if got := d.PlainText(); got != "abc quux bar" {
		t.Errorf("unexpected document text %q", got)
	}
	if _, ok := d.FindRangeForID(thread.ID); ok {
		t.Error("expected the anchor mark to be removed")
	}

	resolved, err := threads.Get(ctx, "doc-1", thread.ID)
	if err != nil {
		t.Fatalf("Get thread failed: %v", err)
	}
	if !resolved.Resolved {
		t.Error("expected the thread to be resolved after accept")
	}
}

func TestAcceptFallsBackToOriginalText(t *testing.T) {
	patches, _, applier := setupTest(t)
	ctx := context.Background()

	// No mark in the document: the literal original text is the only anchor.
	d := doc.New("abc foo bar")
	p := patches.Create(ctx, "doc-1", "thr_gone", "foo", "quux")

	if _, err := applier.Accept(ctx, d, "doc-1", p.ID); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if got := d.PlainText(); got != "abc quux bar" {
		t.Errorf("unexpected document text %q", got)
	}
}

func TestAcceptWithoutAnchorFails(t *testing.T) {
	patches, _, applier := setupTest(t)
	ctx := context.Background()

	d := doc.New("completely different content")
	p := patches.Create(ctx, "doc-1", "thr_gone", "foo", "quux")

	_, err := applier.Accept(ctx, d, "doc-1", p.ID)
	if !errors.Is(err, ErrAnchorNotFound) {
		t.Fatalf("expected ErrAnchorNotFound, got %v", err)
	}
	if got := d.PlainText(); got != "completely different content" {
		t.Errorf("document was mutated on failure: %q", got)
	}

	// The patch stays open so the user can retry after restoring the text.
	stored, _ := patches.Get(ctx, "doc-1", p.ID)
	if stored.Status != StatusOpen {
		t.Errorf("expected patch to stay open, got %q", stored.Status)
	}
}

func TestAcceptTerminalPatchIsNoOp(t *testing.T) {
	patches, threads, applier := setupTest(t)
	ctx := context.Background()

	thread := threads.Create(ctx, "doc-1", "foo", comments.ModeAnchored, "q")
	d := markedDocument(t, thread.ID)
	p := patches.Create(ctx, "doc-1", thread.ID, "foo", "quux")

	if _, err := applier.Accept(ctx, d, "doc-1", p.ID); err != nil {
		t.Fatalf("first Accept failed: %v", err)
	}
	again, err := applier.Accept(ctx, d, "doc-1", p.ID)
	if err != nil {
		t.Fatalf("second Accept failed: %v", err)
	}
	if again.Status != StatusAccepted {
		t.Errorf("expected accepted, got %q", again.Status)
	}
	// A second accept must not splice the replacement in twice.
	if got := d.PlainText(); got != "abc quux bar" {
		t.Errorf("document mutated twice: %q", got)
	}
}

func TestRejectNeverTouchesDocument(t *testing.T) {
	patches, threads, applier := setupTest(t)
	ctx := context.Background()

	thread := threads.Create(ctx, "doc-1", "foo", comments.ModeAnchored, "q")
	p := patches.Create(ctx, "doc-1", thread.ID, "foo", "quux")

	rejected, err := applier.Reject(ctx, "doc-1", p.ID)
	if err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	if rejected.Status != StatusRejected {
		t.Errorf("expected rejected, got %q", rejected.Status)
	}

	// Declining the suggestion ends the conversation, same as accepting it.
	resolved, err := threads.Get(ctx, "doc-1", thread.ID)
	if err != nil {
		t.Fatalf("Get thread failed: %v", err)
	}
	if !resolved.Resolved {
		t.Error("expected the thread to be resolved after reject")
	}

	// Rejecting again is a no-op, and an accepted patch cannot be rejected
	// back out of its terminal state.
	again, err := applier.Reject(ctx, "doc-1", p.ID)
	if err != nil || again.Status != StatusRejected {
		t.Errorf("expected stable rejected state, got %+v err=%v", again, err)
	}
}

func TestRejectWorksWhenAnchorIsGone(t *testing.T) {
	patches, _, applier := setupTest(t)
	ctx := context.Background()

	p := patches.Create(ctx, "doc-1", "thr_gone", "vanished text", "quux")
	rejected, err := applier.Reject(ctx, "doc-1", p.ID)
	if err != nil {
		t.Fatalf("Reject failed: %v", err)
	}
	if rejected.Status != StatusRejected {
		t.Errorf("expected rejected, got %q", rejected.Status)
	}
}

func TestRejectOpenRetiresOnlyThreadsOpenPatches(t *testing.T) {
	patches, threads, _ := setupTest(t)
	ctx := context.Background()

	thread := threads.Create(ctx, "doc-1", "foo", comments.ModeAnchored, "q")
	stale := patches.Create(ctx, "doc-1", thread.ID, "foo", "first try")
	other := patches.Create(ctx, "doc-1", "thr_other", "bar", "untouched")

	if n := patches.RejectOpen(ctx, "doc-1", thread.ID); n != 1 {
		t.Fatalf("expected 1 retired patch, got %d", n)
	}

	retired, _ := patches.Get(ctx, "doc-1", stale.ID)
	if retired.Status != StatusRejected {
		t.Errorf("expected rejected, got %q", retired.Status)
	}
	// Status only: the thread stays open for the next proposal.
	current, _ := threads.Get(ctx, "doc-1", thread.ID)
	if current.Resolved {
		t.Error("RejectOpen must not resolve the thread")
	}
	unrelated, _ := patches.Get(ctx, "doc-1", other.ID)
	if unrelated.Status != StatusOpen {
		t.Errorf("unrelated patch was touched: %q", unrelated.Status)
	}

	if n := patches.RejectOpen(ctx, "doc-1", thread.ID); n != 0 {
		t.Errorf("second RejectOpen should retire nothing, got %d", n)
	}
}

func TestFindByThread(t *testing.T) {
	patches, _, _ := setupTest(t)
	ctx := context.Background()

	patches.Create(ctx, "doc-1", "thr_a", "x", "y")
	patches.Create(ctx, "doc-1", "thr_b", "x", "y")
	patches.Create(ctx, "doc-1", "thr_a", "z", "w")

	if got := patches.FindByThread(ctx, "doc-1", "thr_a"); len(got) != 2 {
		t.Errorf("expected 2 patches for thr_a, got %d", len(got))
	}
	if got := patches.FindByThread(ctx, "doc-1", "thr_missing"); len(got) != 0 {
		t.Errorf("expected no patches, got %d", len(got))
	}
}

func TestGetMissingPatch(t *testing.T) {
	patches, _, _ := setupTest(t)
	if _, err := patches.Get(context.Background(), "doc-1", "pat_absent"); !errors.Is(err, ErrPatchNotFound) {
		t.Errorf("expected ErrPatchNotFound, got %v", err)
	}
}
