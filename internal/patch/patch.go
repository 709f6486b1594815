// Package patch manages AI-proposed text edits: their storage, lifecycle, and
// application against the live document.
package patch

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"inkwell/api/internal/comments"
	"inkwell/api/internal/doc"
	"inkwell/api/internal/kvstore"
	"inkwell/api/internal/util"
)

// Patch statuses. Open is the only non-terminal state.
const (
	StatusOpen     = "open"
	StatusAccepted = "accepted"
	StatusRejected = "rejected"
)

var (
	ErrPatchNotFound = errors.New("patch: not found")

	// ErrAnchorNotFound means neither the thread's comment mark nor the
	// patch's original text could be located in the current document, so the
	// edit has nowhere to land.
	ErrAnchorNotFound = errors.New("patch: anchor not found in document")
)

// Patch is a proposed replacement for a span of document text, produced by
// the assistant and tied to the thread it was suggested in.
type Patch struct {
	ID           string    `json:"id"`
	DocumentID   string    `json:"documentId"`
	ThreadID     string    `json:"threadId"`
	OriginalText string    `json:"originalText"`
	ProposedText string    `json:"proposedText"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Store persists patches per document in the key-value store, with the same
// degrade-and-log posture as the comments store.
type Store struct {
	kv *kvstore.Store
}

func NewStore(kv *kvstore.Store) *Store {
	return &Store{kv: kv}
}

// List returns all patches for a document, oldest first.
func (s *Store) List(ctx context.Context, documentID string) []Patch {
	var patches []Patch
	err := s.kv.Load(ctx, kvstore.NamespacePatches, documentID, &patches)
	if errors.Is(err, kvstore.ErrNotFound) {
		return []Patch{}
	}
	if err != nil {
		log.Printf("patch: load patches for %s: %v", documentID, err)
		return []Patch{}
	}
	if patches == nil {
		patches = []Patch{}
	}
	return patches
}

func (s *Store) save(ctx context.Context, documentID string, patches []Patch) {
	if err := s.kv.Save(ctx, kvstore.NamespacePatches, documentID, patches); err != nil {
		log.Printf("patch: save patches for %s: %v", documentID, err)
	}
}

// Get returns one patch by id.
func (s *Store) Get(ctx context.Context, documentID, patchID string) (Patch, error) {
	for _, p := range s.List(ctx, documentID) {
		if p.ID == patchID {
			return p, nil
		}
	}
	return Patch{}, ErrPatchNotFound
}

// FindByThread returns the patches attached to a thread.
func (s *Store) FindByThread(ctx context.Context, documentID, threadID string) []Patch {
	var matched []Patch
	for _, p := range s.List(ctx, documentID) {
		if p.ThreadID == threadID {
			matched = append(matched, p)
		}
	}
	return matched
}

// Create stores a new open patch.
func (s *Store) Create(ctx context.Context, documentID, threadID, originalText, proposedText string) Patch {
	now := time.Now()
	p := Patch{
		ID:           util.NewID("pat"),
		DocumentID:   documentID,
		ThreadID:     threadID,
		OriginalText: originalText,
		ProposedText: proposedText,
		Status:       StatusOpen,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	patches := append(s.List(ctx, documentID), p)
	s.save(ctx, documentID, patches)
	return p
}

// RejectOpen marks every still-open patch on a thread rejected, status only.
// Keeps the zero-or-one-open-patch-per-anchor rule: a newer proposal or a
// thread deletion retires whatever was still pending, without the thread
// side effects of Applier.Reject.
func (s *Store) RejectOpen(ctx context.Context, documentID, threadID string) int {
	patches := s.List(ctx, documentID)
	changed := 0
	for i := range patches {
		if patches[i].ThreadID != threadID || patches[i].Status != StatusOpen {
			continue
		}
		patches[i].Status = StatusRejected
		patches[i].UpdatedAt = time.Now()
		changed++
	}
	if changed > 0 {
		s.save(ctx, documentID, patches)
	}
	return changed
}

// DeleteAll drops every patch for a document. Used when the document itself
// is deleted.
func (s *Store) DeleteAll(ctx context.Context, documentID string) {
	if err := s.kv.Delete(ctx, kvstore.NamespacePatches, documentID); err != nil && !errors.Is(err, kvstore.ErrNotFound) {
		log.Printf("patch: delete patches for %s: %v", documentID, err)
	}
}

func (s *Store) setStatus(ctx context.Context, documentID, patchID, status string) (Patch, error) {
	patches := s.List(ctx, documentID)
	for i := range patches {
		if patches[i].ID != patchID {
			continue
		}
		patches[i].Status = status
		patches[i].UpdatedAt = time.Now()
		s.save(ctx, documentID, patches)
		return patches[i], nil
	}
	return Patch{}, ErrPatchNotFound
}

// Editor is the document surface the applier edits through. *doc.Document
// satisfies it.
type Editor interface {
	FindRangeForID(id string) (doc.Range, bool)
	PlainText() string
	OffsetRange(start, end int) (doc.Range, bool)
	ReplaceRange(r doc.Range, text string) error
	RemoveMarkForID(id string)
}

// Applier drives the patch lifecycle against a document. Accepting a patch
// also resolves its thread, so a reviewed suggestion leaves no open
// conversation behind.
type Applier struct {
	patches *Store
	threads *comments.Store
}

func NewApplier(patches *Store, threads *comments.Store) *Applier {
	return &Applier{patches: patches, threads: threads}
}

// Accept applies an open patch to the document and marks it accepted. The
// edit lands at the thread's comment mark when it still exists, falling back
// to the first occurrence of the patch's original text. Accepting a patch
// that is already terminal returns it unchanged without touching the
// document.
//
// The caller owns persisting the mutated document.
func (a *Applier) Accept(ctx context.Context, d Editor, documentID, patchID string) (Patch, error) {
	p, err := a.patches.Get(ctx, documentID, patchID)
	if err != nil {
		return Patch{}, err
	}
	if p.Status != StatusOpen {
		return p, nil
	}

	r, ok := a.resolve(d, p)
	if !ok {
		return Patch{}, ErrAnchorNotFound
	}
	if err := d.ReplaceRange(r, p.ProposedText); err != nil {
		return Patch{}, err
	}
	d.RemoveMarkForID(p.ThreadID)

	p, err = a.patches.setStatus(ctx, documentID, patchID, StatusAccepted)
	if err != nil {
		return Patch{}, err
	}
	if p.ThreadID != "" {
		if err := a.threads.SetResolved(ctx, documentID, p.ThreadID, true); err != nil && !errors.Is(err, comments.ErrThreadNotFound) {
			log.Printf("patch: resolve thread %s after accept: %v", p.ThreadID, err)
		}
	}
	return p, nil
}

// Reject marks an open patch rejected and resolves its thread, the same
// decision-ends-the-conversation rule Accept follows. The document is never
// touched, and a missing anchor is not an error: declining a suggestion must
// always work. Rejecting a patch that is already terminal returns it
// unchanged.
func (a *Applier) Reject(ctx context.Context, documentID, patchID string) (Patch, error) {
	p, err := a.patches.Get(ctx, documentID, patchID)
	if err != nil {
		return Patch{}, err
	}
	if p.Status != StatusOpen {
		return p, nil
	}
	p, err = a.patches.setStatus(ctx, documentID, patchID, StatusRejected)
	if err != nil {
		return Patch{}, err
	}
	if p.ThreadID != "" {
		if err := a.threads.SetResolved(ctx, documentID, p.ThreadID, true); err != nil && !errors.Is(err, comments.ErrThreadNotFound) {
			log.Printf("patch: resolve thread %s after reject: %v", p.ThreadID, err)
		}
	}
	return p, nil
}

// resolve locates where the patch should land: the thread's live mark first,
// then a literal search for the original text.
func (a *Applier) resolve(d Editor, p Patch) (doc.Range, bool) {
	if p.ThreadID != "" {
		if r, ok := d.FindRangeForID(p.ThreadID); ok {
			return r, true
		}
	}
	if p.OriginalText == "" {
		return doc.Range{}, false
	}
	text := d.PlainText()
	start := strings.Index(text, p.OriginalText)
	if start < 0 {
		return doc.Range{}, false
	}
	return d.OffsetRange(start, start+len(p.OriginalText))
}
