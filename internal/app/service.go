// Package app wires the document, comment, patch, assistant, search, and
// export subsystems together behind the HTTP API.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"inkwell/api/internal/assistant"
	"inkwell/api/internal/comments"
	"inkwell/api/internal/config"
	"inkwell/api/internal/doc"
	"inkwell/api/internal/docrepo"
	"inkwell/api/internal/export"
	"inkwell/api/internal/patch"
	"inkwell/api/internal/search"
	"inkwell/api/internal/store"
	"inkwell/api/internal/util"
)

const excerptLimit = 280

// DataStore is the metadata persistence surface the service needs.
type DataStore interface {
	Ping(ctx context.Context) error
	ListDocuments(ctx context.Context) ([]store.Document, error)
	GetDocument(ctx context.Context, documentID string) (store.Document, error)
	InsertDocument(ctx context.Context, item store.Document) error
	UpdateDocument(ctx context.Context, item store.Document) error
	DeleteDocument(ctx context.Context, documentID string) error
	GetWorkspaceSettings(ctx context.Context) (store.WorkspaceSettings, error)
	SaveWorkspaceSettings(ctx context.Context, settings store.WorkspaceSettings) error
}

// RepoService is the content history surface backed by per-document git
// repositories.
type RepoService interface {
	EnsureRepo(documentID string, initial docrepo.Content, author string) error
	Commit(documentID string, content docrepo.Content, author, message string) (docrepo.CommitInfo, error)
	Head(documentID string) (docrepo.Content, docrepo.CommitInfo, error)
	GetByHash(documentID, hash string) (docrepo.Content, docrepo.CommitInfo, error)
	History(documentID string, limit int) ([]docrepo.CommitInfo, error)
	Delete(documentID string) error
}

// SearchService abstracts the search facade.
type SearchService interface {
	Search(q search.Query) search.Response
	IndexDocument(doc search.DocumentRecord)
	IndexThread(t search.ThreadRecord)
	DeleteDocument(id string)
	DeleteThread(id string)
	ReindexAll(documents []search.DocumentRecord, threads []search.ThreadRecord)
}

// Service coordinates all the subsystems behind the API.
type Service struct {
	cfg       config.Config
	store     DataStore
	repos     RepoService
	threads   *comments.Store
	patches   *patch.Store
	applier   *patch.Applier
	search    SearchService
	assistant *assistant.Client
	exporter  *export.Service

	// syncAssistant makes assistant runs block instead of running in a
	// goroutine. Tests set it to observe the settled state.
	syncAssistant bool
}

func New(cfg config.Config, dataStore DataStore, repos RepoService, threads *comments.Store, patches *patch.Store, searchService SearchService, aiClient *assistant.Client) *Service {
	s := &Service{
		cfg:       cfg,
		store:     dataStore,
		repos:     repos,
		threads:   threads,
		patches:   patches,
		applier:   patch.NewApplier(patches, threads),
		search:    searchService,
		assistant: aiClient,
	}
	s.exporter = export.NewService(s)
	return s
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Bootstrap pushes existing documents and threads into the search index so a
// fresh Meilisearch instance catches up with the database.
func (s *Service) Bootstrap(ctx context.Context) error {
	documents, err := s.store.ListDocuments(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap list documents: %w", err)
	}
	docRecords := make([]search.DocumentRecord, 0, len(documents))
	var threadRecords []search.ThreadRecord
	for _, item := range documents {
		docRecords = append(docRecords, documentRecord(item))
		for _, thread := range s.threads.List(ctx, item.ID) {
			threadRecords = append(threadRecords, threadRecord(thread))
		}
	}
	s.search.ReindexAll(docRecords, threadRecords)
	return nil
}

// --- documents ---

func (s *Service) ListDocuments(ctx context.Context) ([]store.Document, error) {
	return s.store.ListDocuments(ctx)
}

func (s *Service) CreateDocument(ctx context.Context, title string) (store.Document, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return store.Document{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "title is required", nil)
	}

	now := time.Now()
	item := store.Document{
		ID:        util.NewID("doc"),
		Title:     title,
		Status:    store.StatusDraft,
		UpdatedBy: s.cfg.AuthorName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.InsertDocument(ctx, item); err != nil {
		return store.Document{}, err
	}

	empty, err := doc.New("").Bytes()
	if err != nil {
		return store.Document{}, err
	}
	if err := s.repos.EnsureRepo(item.ID, docrepo.Content{Title: title, Doc: empty}, s.cfg.AuthorName); err != nil {
		return store.Document{}, fmt.Errorf("init document repo: %w", err)
	}

	s.search.IndexDocument(documentRecord(item))
	return item, nil
}

func (s *Service) GetDocument(ctx context.Context, documentID string) (store.Document, error) {
	return s.store.GetDocument(ctx, documentID)
}

// UpdateDocumentMeta renames or changes the status of a document. Content is
// untouched.
func (s *Service) UpdateDocumentMeta(ctx context.Context, documentID, title, status string) (store.Document, error) {
	item, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return store.Document{}, err
	}
	if title = strings.TrimSpace(title); title != "" {
		item.Title = title
	}
	if status != "" {
		switch status {
		case store.StatusDraft, store.StatusActive, store.StatusArchived:
			item.Status = status
		default:
			return store.Document{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown status", nil)
		}
	}
	item.UpdatedBy = s.cfg.AuthorName
	if err := s.store.UpdateDocument(ctx, item); err != nil {
		return store.Document{}, err
	}
	s.search.IndexDocument(documentRecord(item))
	return item, nil
}

func (s *Service) DeleteDocument(ctx context.Context, documentID string) error {
	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		return err
	}
	for _, thread := range s.threads.List(ctx, documentID) {
		s.search.DeleteThread(thread.ID)
	}
	if err := s.store.DeleteDocument(ctx, documentID); err != nil {
		return err
	}
	if err := s.repos.Delete(documentID); err != nil {
		log.Printf("app: delete repo for %s: %v", documentID, err)
	}
	s.threads.DeleteAll(ctx, documentID)
	s.patches.DeleteAll(ctx, documentID)
	s.search.DeleteDocument(documentID)
	return nil
}

// SaveContent commits a new content revision from the editor.
func (s *Service) SaveContent(ctx context.Context, documentID string, raw json.RawMessage) (store.Document, docrepo.CommitInfo, error) {
	item, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return store.Document{}, docrepo.CommitInfo{}, err
	}
	parsed, err := doc.Parse(raw)
	if err != nil {
		return store.Document{}, docrepo.CommitInfo{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "invalid document content", err.Error())
	}

	content := docrepo.Content{
		Title:   item.Title,
		Doc:     raw,
		Excerpt: excerptOf(parsed.PlainText()),
	}
	head, headCommit, err := s.repos.Head(documentID)
	if err != nil {
		return store.Document{}, docrepo.CommitInfo{}, fmt.Errorf("read head: %w", err)
	}
	if !docrepo.HasChanges(head, content) {
		return item, headCommit, nil
	}

	commit, err := s.repos.Commit(documentID, content, s.cfg.AuthorName, "Edit document")
	if err != nil {
		return store.Document{}, docrepo.CommitInfo{}, fmt.Errorf("commit content: %w", err)
	}

	item.Excerpt = content.Excerpt
	item.UpdatedBy = s.cfg.AuthorName
	if err := s.store.UpdateDocument(ctx, item); err != nil {
		return store.Document{}, docrepo.CommitInfo{}, err
	}
	s.search.IndexDocument(documentRecord(item))
	return item, commit, nil
}

// --- workspace payload ---

// ThreadView is a thread plus its live anchor position. AI-only threads have
// no anchor and report From/To of -1.
type ThreadView struct {
	comments.Thread
	From     int    `json:"from"`
	To       int    `json:"to"`
	LiveText string `json:"liveText,omitempty"`
}

// WorkspacePayload is everything the editor needs to open a document.
type WorkspacePayload struct {
	Document store.Document     `json:"document"`
	Content  json.RawMessage    `json:"content"`
	Commit   docrepo.CommitInfo `json:"commit"`
	Threads  []ThreadView       `json:"threads"`
	Patches  []patch.Patch      `json:"patches"`
}

// Workspace assembles the payload for one document. Threads whose anchor has
// vanished from the content are deleted here, so every open is also a
// reconciliation pass.
func (s *Service) Workspace(ctx context.Context, documentID string) (WorkspacePayload, error) {
	item, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return WorkspacePayload{}, err
	}
	content, commit, err := s.repos.Head(documentID)
	if err != nil {
		return WorkspacePayload{}, fmt.Errorf("read head: %w", err)
	}
	parsed, err := doc.Parse(content.Doc)
	if err != nil {
		return WorkspacePayload{}, fmt.Errorf("parse head content: %w", err)
	}

	live := parsed.AnnotatedRanges()
	threads := s.threads.Refresh(ctx, documentID, live)

	views := make([]ThreadView, 0, len(threads))
	for _, thread := range threads {
		view := ThreadView{Thread: thread, From: -1, To: -1}
		if entry, ok := live[thread.ID]; ok {
			view.From = entry.From
			view.To = entry.To
			view.LiveText = entry.Text
		}
		views = append(views, view)
	}

	return WorkspacePayload{
		Document: item,
		Content:  content.Doc,
		Commit:   commit,
		Threads:  views,
		Patches:  s.patches.List(ctx, documentID),
	}, nil
}

// --- threads ---

// CreateThread anchors a new comment thread to the byte range [start, end) of
// the document's plain text and commits the mark. AI-only threads (aiOnly
// true) skip the anchor entirely.
func (s *Service) CreateThread(ctx context.Context, documentID string, start, end int, body string, aiOnly bool) (comments.Thread, error) {
	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		return comments.Thread{}, err
	}
	if strings.TrimSpace(body) == "" {
		return comments.Thread{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "message body is required", nil)
	}

	if aiOnly {
		thread := s.threads.Create(ctx, documentID, "", comments.ModeAIOnly, body)
		s.search.IndexThread(threadRecord(thread))
		return thread, nil
	}

	content, _, err := s.repos.Head(documentID)
	if err != nil {
		return comments.Thread{}, fmt.Errorf("read head: %w", err)
	}
	parsed, err := doc.Parse(content.Doc)
	if err != nil {
		return comments.Thread{}, fmt.Errorf("parse head content: %w", err)
	}

	text := parsed.PlainText()
	if start < 0 || end > len(text) || start >= end {
		return comments.Thread{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "selection out of range", nil)
	}
	r, ok := parsed.OffsetRange(start, end)
	if !ok {
		return comments.Thread{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "selection does not cover document text", nil)
	}

	thread := s.threads.Create(ctx, documentID, text[start:end], comments.ModeAnchored, body)
	if err := parsed.ApplyMarkForID(r, thread.ID); err != nil {
		_ = s.threads.Delete(ctx, documentID, thread.ID)
		return comments.Thread{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "selection cannot be annotated", err.Error())
	}
	if err := s.commitDoc(ctx, documentID, parsed, "Add comment"); err != nil {
		_ = s.threads.Delete(ctx, documentID, thread.ID)
		return comments.Thread{}, err
	}

	s.search.IndexThread(threadRecord(thread))
	return thread, nil
}

func (s *Service) GetThread(ctx context.Context, documentID, threadID string) (comments.Thread, error) {
	return s.threads.Get(ctx, documentID, threadID)
}

func (s *Service) ReplyToThread(ctx context.Context, documentID, threadID, body string) (comments.Message, error) {
	if strings.TrimSpace(body) == "" {
		return comments.Message{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "message body is required", nil)
	}
	message, err := s.threads.AppendMessage(ctx, documentID, threadID, comments.AuthorUser, body, comments.StatusComplete)
	if err != nil {
		return comments.Message{}, err
	}
	if thread, err := s.threads.Get(ctx, documentID, threadID); err == nil {
		s.search.IndexThread(threadRecord(thread))
	}
	return message, nil
}

func (s *Service) EditMessage(ctx context.Context, documentID, threadID, messageID, body string) error {
	if strings.TrimSpace(body) == "" {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "message body is required", nil)
	}
	return s.threads.EditMessage(ctx, documentID, threadID, messageID, body)
}

func (s *Service) ResolveThread(ctx context.Context, documentID, threadID string) error {
	return s.threads.SetResolved(ctx, documentID, threadID, true)
}

// ReopenThread reverses a resolve. A thread whose attached patch has already
// been accepted or rejected stays closed: the conversation ended with a
// decision.
func (s *Service) ReopenThread(ctx context.Context, documentID, threadID string) error {
	for _, p := range s.patches.FindByThread(ctx, documentID, threadID) {
		if p.Status != patch.StatusOpen {
			return domainError(http.StatusConflict, "THREAD_CLOSED", "thread has a decided suggestion and cannot be reopened", nil)
		}
	}
	return s.threads.SetResolved(ctx, documentID, threadID, false)
}

// DeleteThread removes the thread, its anchor mark, and its index entry.
func (s *Service) DeleteThread(ctx context.Context, documentID, threadID string) error {
	thread, err := s.threads.Get(ctx, documentID, threadID)
	if err != nil {
		return err
	}

	if thread.Mode != comments.ModeAIOnly {
		content, _, err := s.repos.Head(documentID)
		if err != nil {
			return fmt.Errorf("read head: %w", err)
		}
		parsed, err := doc.Parse(content.Doc)
		if err != nil {
			return fmt.Errorf("parse head content: %w", err)
		}
		if _, ok := parsed.FindRangeForID(threadID); ok {
			parsed.RemoveMarkForID(threadID)
			if err := s.commitDoc(ctx, documentID, parsed, "Remove comment"); err != nil {
				return err
			}
		}
	}

	if err := s.threads.Delete(ctx, documentID, threadID); err != nil {
		return err
	}
	s.patches.RejectOpen(ctx, documentID, threadID)
	s.search.DeleteThread(threadID)
	return nil
}

// --- assistant ---

// RunAssistant persists the user's prompt and a pending AI placeholder, then
// fires the provider call. The prompt row is durable before the placeholder,
// and the placeholder before any network traffic, so a crash can strand a
// pending message but never lose the user's words.
func (s *Service) RunAssistant(ctx context.Context, documentID, threadID, modeRaw, prompt string) (comments.Message, error) {
	if s.assistant == nil {
		return comments.Message{}, domainError(http.StatusServiceUnavailable, "ASSISTANT_UNAVAILABLE", "assistant is not configured", nil)
	}
	mode, err := assistant.ParseMode(modeRaw)
	if err != nil {
		return comments.Message{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
	}
	if strings.TrimSpace(prompt) == "" {
		return comments.Message{}, domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "prompt is required", nil)
	}
	thread, err := s.threads.Get(ctx, documentID, threadID)
	if err != nil {
		return comments.Message{}, err
	}

	req := assistant.Request{
		DocumentID: documentID,
		ThreadID:   threadID,
		Mode:       mode,
		Prompt:     prompt,
		AnchorText: thread.AnchorText,
	}
	if settings, err := s.store.GetWorkspaceSettings(ctx); err == nil {
		req.Knowledge = settings.Knowledge
	}
	if content, _, err := s.repos.Head(documentID); err == nil {
		if parsed, err := doc.Parse(content.Doc); err == nil {
			text := parsed.PlainText()
			winStart, winEnd := 0, 0
			if thread.AnchorText != "" {
				if idx := strings.Index(text, thread.AnchorText); idx >= 0 {
					winStart, winEnd = idx, idx+len(thread.AnchorText)
				}
			}
			req.Context = assistant.ContextWindow(text, winStart, winEnd, s.contextRadius())
		}
	}

	// Prompt first, placeholder second, network last.
	if _, err := s.threads.AppendMessage(ctx, documentID, threadID, comments.AuthorUser, prompt, comments.StatusComplete); err != nil {
		return comments.Message{}, err
	}
	pending, err := s.threads.AppendMessage(ctx, documentID, threadID, comments.AuthorAI, "", comments.StatusPending)
	if err != nil {
		return comments.Message{}, err
	}

	if s.syncAssistant {
		s.settleAssistant(context.Background(), documentID, threadID, pending.ID, req)
	} else {
		go s.settleAssistant(context.Background(), documentID, threadID, pending.ID, req)
	}
	return pending, nil
}

// settleAssistant runs the provider call and moves the placeholder to its
// terminal state. No retry: an error lands in the thread for the user to see.
func (s *Service) settleAssistant(ctx context.Context, documentID, threadID, messageID string, req assistant.Request) {
	reply, err := s.assistant.Run(ctx, req)
	if err != nil {
		log.Printf("assistant: thread %s: %v", threadID, err)
		if err := s.threads.FailMessage(ctx, documentID, threadID, messageID, assistant.ErrorText(err)); err != nil {
			log.Printf("assistant: fail message %s: %v", messageID, err)
		}
		return
	}

	if err := s.threads.CompleteMessage(ctx, documentID, threadID, messageID, reply.Message); err != nil {
		log.Printf("assistant: complete message %s: %v", messageID, err)
		return
	}
	if req.Mode == assistant.ModeSynthesize && reply.Replacement != "" && req.AnchorText != "" {
		// A newer proposal supersedes whatever is still pending on this
		// anchor; at most one patch per thread is ever open.
		if n := s.patches.RejectOpen(ctx, documentID, threadID); n > 0 {
			log.Printf("assistant: superseded %d open patch(es) on thread %s", n, threadID)
		}
		s.patches.Create(ctx, documentID, threadID, req.AnchorText, reply.Replacement)
	}
	if thread, err := s.threads.Get(ctx, documentID, threadID); err == nil {
		s.search.IndexThread(threadRecord(thread))
	}
}

func (s *Service) contextRadius() int {
	if s.cfg.AIContextRadius > 0 {
		return s.cfg.AIContextRadius
	}
	return 600
}

// --- patches ---

func (s *Service) ListPatches(ctx context.Context, documentID string) []patch.Patch {
	return s.patches.List(ctx, documentID)
}

// AcceptPatch applies a suggestion to the document and commits the result.
func (s *Service) AcceptPatch(ctx context.Context, documentID, patchID string) (patch.Patch, error) {
	item, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return patch.Patch{}, err
	}
	content, _, err := s.repos.Head(documentID)
	if err != nil {
		return patch.Patch{}, fmt.Errorf("read head: %w", err)
	}
	parsed, err := doc.Parse(content.Doc)
	if err != nil {
		return patch.Patch{}, fmt.Errorf("parse head content: %w", err)
	}

	before, err := parsed.Bytes()
	if err != nil {
		return patch.Patch{}, err
	}
	applied, err := s.applier.Accept(ctx, parsed, documentID, patchID)
	if errors.Is(err, patch.ErrAnchorNotFound) {
		return patch.Patch{}, domainError(http.StatusConflict, "ANCHOR_NOT_FOUND", "the suggested text no longer exists in the document", nil)
	}
	if err != nil {
		return patch.Patch{}, err
	}

	after, err := parsed.Bytes()
	if err != nil {
		return patch.Patch{}, err
	}
	if string(before) != string(after) {
		if err := s.commitDoc(ctx, documentID, parsed, "Apply suggestion"); err != nil {
			return patch.Patch{}, err
		}
		item.Excerpt = excerptOf(parsed.PlainText())
		item.UpdatedBy = s.cfg.AuthorName
		if err := s.store.UpdateDocument(ctx, item); err != nil {
			return patch.Patch{}, err
		}
		s.search.IndexDocument(documentRecord(item))
	}
	return applied, nil
}

func (s *Service) RejectPatch(ctx context.Context, documentID, patchID string) (patch.Patch, error) {
	return s.applier.Reject(ctx, documentID, patchID)
}

// --- search / history / export ---

func (s *Service) Search(q search.Query) search.Response {
	return s.search.Search(q)
}

func (s *Service) History(ctx context.Context, documentID string, limit int) ([]docrepo.CommitInfo, error) {
	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		return nil, err
	}
	return s.repos.History(documentID, limit)
}

func (s *Service) ContentAt(ctx context.Context, documentID, hash string) (docrepo.Content, docrepo.CommitInfo, error) {
	if _, err := s.store.GetDocument(ctx, documentID); err != nil {
		return docrepo.Content{}, docrepo.CommitInfo{}, err
	}
	return s.repos.GetByHash(documentID, hash)
}

func (s *Service) Export(ctx context.Context, req export.Request) (*export.Result, error) {
	return s.exporter.Export(ctx, req)
}

// --- workspace settings ---

func (s *Service) WorkspaceSettings(ctx context.Context) (store.WorkspaceSettings, error) {
	return s.store.GetWorkspaceSettings(ctx)
}

func (s *Service) SaveWorkspaceSettings(ctx context.Context, settings store.WorkspaceSettings) (store.WorkspaceSettings, error) {
	if err := s.store.SaveWorkspaceSettings(ctx, settings); err != nil {
		return store.WorkspaceSettings{}, err
	}
	return s.store.GetWorkspaceSettings(ctx)
}

// --- export.DataStore ---

func (s *Service) GetExportDocument(ctx context.Context, documentID string) (export.DocumentInfo, error) {
	item, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return export.DocumentInfo{}, err
	}
	return export.DocumentInfo{
		ID:        item.ID,
		Title:     item.Title,
		UpdatedBy: item.UpdatedBy,
		UpdatedAt: item.UpdatedAt,
	}, nil
}

func (s *Service) GetExportContent(ctx context.Context, documentID, version string) (json.RawMessage, error) {
	if version == "" || version == "latest" {
		content, _, err := s.repos.Head(documentID)
		if err != nil {
			return nil, err
		}
		return content.Doc, nil
	}
	content, _, err := s.repos.GetByHash(documentID, version)
	if err != nil {
		return nil, err
	}
	return content.Doc, nil
}

func (s *Service) ListExportThreads(ctx context.Context, documentID string) ([]export.ThreadInfo, error) {
	threads := s.threads.List(ctx, documentID)
	infos := make([]export.ThreadInfo, 0, len(threads))
	for _, thread := range threads {
		info := export.ThreadInfo{
			ID:         thread.ID,
			AnchorText: thread.AnchorText,
			Resolved:   thread.Resolved,
		}
		for _, m := range thread.Messages {
			if m.Status != comments.StatusComplete {
				continue
			}
			info.Messages = append(info.Messages, export.MessageInfo{
				Author: m.Author,
				Body:   m.Content,
				AI:     m.Author == comments.AuthorAI,
			})
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// --- helpers ---

func (s *Service) commitDoc(ctx context.Context, documentID string, parsed *doc.Document, message string) error {
	item, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}
	raw, err := parsed.Bytes()
	if err != nil {
		return err
	}
	content := docrepo.Content{
		Title:   item.Title,
		Doc:     raw,
		Excerpt: excerptOf(parsed.PlainText()),
	}
	if _, err := s.repos.Commit(documentID, content, s.cfg.AuthorName, message); err != nil {
		return fmt.Errorf("commit content: %w", err)
	}
	return nil
}

func excerptOf(text string) string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
	runes := []rune(text)
	if len(runes) <= excerptLimit {
		return text
	}
	return string(runes[:excerptLimit])
}

func documentRecord(item store.Document) search.DocumentRecord {
	return search.DocumentRecord{
		ID:      item.ID,
		Title:   item.Title,
		Excerpt: item.Excerpt,
		Status:  item.Status,
	}
}

func threadRecord(thread comments.Thread) search.ThreadRecord {
	var body strings.Builder
	for _, m := range thread.Messages {
		if m.Status != comments.StatusComplete {
			continue
		}
		if body.Len() > 0 {
			body.WriteString("\n")
		}
		body.WriteString(m.Content)
	}
	return search.ThreadRecord{
		ID:         thread.ID,
		Body:       body.String(),
		AnchorText: thread.AnchorText,
		DocumentID: thread.DocumentID,
		Resolved:   thread.Resolved,
	}
}
