package kvstore

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func setupTestStore(t *testing.T) *Store {
	s := miniredis.RunT(t)
	store, err := New("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to create kv store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

type testRecord struct {
	ID   string `json:"id"`
	Body string `json:"body"`
}

func TestSaveAndLoad(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	saved := []testRecord{{ID: "a", Body: "first"}, {ID: "b", Body: "second"}}
	if err := store.Save(ctx, NamespaceThreads, "doc-1", saved); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	var loaded []testRecord
	if err := store.Load(ctx, NamespaceThreads, "doc-1", &loaded); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded) != 2 || loaded[0].ID != "a" || loaded[1].Body != "second" {
		t.Errorf("unexpected blob contents: %+v", loaded)
	}
}

func TestLoadMissingBlob(t *testing.T) {
	store := setupTestStore(t)

	var loaded []testRecord
	err := store.Load(context.Background(), NamespacePatches, "doc-absent", &loaded)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestNamespacesDoNotCollide(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, NamespaceThreads, "doc-1", []testRecord{{ID: "t"}}); err != nil {
		t.Fatalf("Save threads failed: %v", err)
	}
	if err := store.Save(ctx, NamespacePatches, "doc-1", []testRecord{{ID: "p"}}); err != nil {
		t.Fatalf("Save patches failed: %v", err)
	}

	var threads, patches []testRecord
	if err := store.Load(ctx, NamespaceThreads, "doc-1", &threads); err != nil {
		t.Fatalf("Load threads failed: %v", err)
	}
	if err := store.Load(ctx, NamespacePatches, "doc-1", &patches); err != nil {
		t.Fatalf("Load patches failed: %v", err)
	}
	if threads[0].ID != "t" || patches[0].ID != "p" {
		t.Errorf("namespace collision: threads=%+v patches=%+v", threads, patches)
	}
}

func TestSaveReplacesWholeBlob(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, NamespaceThreads, "doc-1", []testRecord{{ID: "a"}, {ID: "b"}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Save(ctx, NamespaceThreads, "doc-1", []testRecord{{ID: "c"}}); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	var loaded []testRecord
	if err := store.Load(ctx, NamespaceThreads, "doc-1", &loaded); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(loaded) != 1 || loaded[0].ID != "c" {
		t.Errorf("expected last write to win, got %+v", loaded)
	}
}

func TestDelete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, NamespaceThreads, "doc-1", []testRecord{{ID: "a"}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Delete(ctx, NamespaceThreads, "doc-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	var loaded []testRecord
	if err := store.Load(ctx, NamespaceThreads, "doc-1", &loaded); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}
