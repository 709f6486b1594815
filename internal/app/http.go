package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"inkwell/api/internal/comments"
	"inkwell/api/internal/docrepo"
	"inkwell/api/internal/export"
	"inkwell/api/internal/patch"
	"inkwell/api/internal/search"
	"inkwell/api/internal/store"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"database": map[string]any{"status": "ok"},
		}

		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["database"] = map[string]any{
				"status": "error",
				"error":  err.Error(),
			}
		}

		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/search" {
		q := strings.TrimSpace(r.URL.Query().Get("q"))
		filterType := strings.TrimSpace(r.URL.Query().Get("type"))
		limit := 20
		if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit must be an integer", nil)
				return
			}
			limit = parsed
		}
		offset := 0
		if raw := strings.TrimSpace(r.URL.Query().Get("offset")); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "offset must be an integer", nil)
				return
			}
			offset = parsed
		}

		payload := s.service.Search(search.Query{
			Text:       q,
			FilterType: search.ResultType(filterType),
			Limit:      limit,
			Offset:     offset,
		})
		writeJSON(w, http.StatusOK, payload)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/workspace" {
		settings, err := s.service.WorkspaceSettings(r.Context())
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, settings)
		return
	}

	if r.Method == http.MethodPut && r.URL.Path == "/api/workspace" {
		var body struct {
			Name      string `json:"name"`
			Knowledge string `json:"knowledge"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		settings, err := s.service.SaveWorkspaceSettings(r.Context(), store.WorkspaceSettings{
			Name:      body.Name,
			Knowledge: body.Knowledge,
		})
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, settings)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/documents" {
		items, err := s.service.ListDocuments(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Could not list documents", nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"documents": items})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/documents" {
		var body struct {
			Title string `json:"title"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		item, err := s.service.CreateDocument(r.Context(), body.Title)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusCreated, item)
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) >= 3 && parts[0] == "api" && parts[1] == "documents" {
		s.handleDocuments(w, r, parts[2], parts[3:])
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleDocuments(w http.ResponseWriter, r *http.Request, documentID string, rest []string) {
	if len(rest) == 0 {
		switch r.Method {
		case http.MethodGet:
			payload, err := s.service.Workspace(r.Context(), documentID)
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, payload)
		case http.MethodPut:
			var body struct {
				Title  string `json:"title"`
				Status string `json:"status"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			item, err := s.service.UpdateDocumentMeta(r.Context(), documentID, body.Title, body.Status)
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, item)
		case http.MethodDelete:
			if err := s.service.DeleteDocument(r.Context(), documentID); err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	switch rest[0] {
	case "content":
		if len(rest) == 1 && r.Method == http.MethodPut {
			var body struct {
				Content json.RawMessage `json:"content"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			if len(body.Content) == 0 {
				writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "content is required", nil)
				return
			}
			item, commit, err := s.service.SaveContent(r.Context(), documentID, body.Content)
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"document": item, "commit": commit})
			return
		}

	case "history":
		if len(rest) == 1 && r.Method == http.MethodGet {
			limit := 0
			if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
				parsed, err := strconv.Atoi(raw)
				if err != nil {
					writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit must be an integer", nil)
					return
				}
				limit = parsed
			}
			items, err := s.service.History(r.Context(), documentID, limit)
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"commits": items})
			return
		}
		if len(rest) == 2 && r.Method == http.MethodGet {
			content, commit, err := s.service.ContentAt(r.Context(), documentID, rest[1])
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"content": content.Doc, "commit": commit})
			return
		}

	case "export":
		if len(rest) == 1 && r.Method == http.MethodGet {
			rawFormat := strings.TrimSpace(r.URL.Query().Get("format"))
			if rawFormat == "" {
				rawFormat = "html"
			}
			format, ok := export.ParseFormat(rawFormat)
			if !ok {
				writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "format must be html or pdf", nil)
				return
			}
			result, err := s.service.Export(r.Context(), export.Request{
				DocumentID:     documentID,
				Version:        strings.TrimSpace(r.URL.Query().Get("version")),
				Format:         format,
				IncludeThreads: r.URL.Query().Get("threads") == "true",
			})
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			w.Header().Set("Content-Type", result.MimeType)
			w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write(result.Data)
			return
		}

	case "threads":
		if len(rest) == 1 && r.Method == http.MethodPost {
			var body struct {
				Start  int    `json:"start"`
				End    int    `json:"end"`
				Body   string `json:"body"`
				AIOnly bool   `json:"aiOnly"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			thread, err := s.service.CreateThread(r.Context(), documentID, body.Start, body.End, body.Body, body.AIOnly)
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusCreated, thread)
			return
		}
		if len(rest) >= 2 {
			s.handleThread(w, r, documentID, rest[1], rest[2:])
			return
		}

	case "patches":
		if len(rest) == 1 && r.Method == http.MethodGet {
			writeJSON(w, http.StatusOK, map[string]any{"patches": s.service.ListPatches(r.Context(), documentID)})
			return
		}
		if len(rest) == 3 && r.Method == http.MethodPost {
			patchID := rest[1]
			var (
				applied patch.Patch
				err     error
			)
			switch rest[2] {
			case "accept":
				applied, err = s.service.AcceptPatch(r.Context(), documentID, patchID)
			case "reject":
				applied, err = s.service.RejectPatch(r.Context(), documentID, patchID)
			default:
				writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
				return
			}
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, applied)
			return
		}
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleThread(w http.ResponseWriter, r *http.Request, documentID, threadID string, rest []string) {
	if len(rest) == 0 {
		switch r.Method {
		case http.MethodGet:
			thread, err := s.service.GetThread(r.Context(), documentID, threadID)
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, thread)
		case http.MethodDelete:
			if err := s.service.DeleteThread(r.Context(), documentID, threadID); err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		default:
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		}
		return
	}

	switch rest[0] {
	case "messages":
		if len(rest) == 1 && r.Method == http.MethodPost {
			var body struct {
				Body string `json:"body"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			message, err := s.service.ReplyToThread(r.Context(), documentID, threadID, body.Body)
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusCreated, message)
			return
		}
		if len(rest) == 2 && r.Method == http.MethodPut {
			var body struct {
				Body string `json:"body"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			if err := s.service.EditMessage(r.Context(), documentID, threadID, rest[1], body.Body); err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
			return
		}

	case "resolve":
		if len(rest) == 1 && r.Method == http.MethodPost {
			if err := s.service.ResolveThread(r.Context(), documentID, threadID); err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
			return
		}

	case "reopen":
		if len(rest) == 1 && r.Method == http.MethodPost {
			if err := s.service.ReopenThread(r.Context(), documentID, threadID); err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
			return
		}

	case "assistant":
		if len(rest) == 1 && r.Method == http.MethodPost {
			var body struct {
				Mode   string `json:"mode"`
				Prompt string `json:"prompt"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			pending, err := s.service.RunAssistant(r.Context(), documentID, threadID, body.Mode, body.Prompt)
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusAccepted, pending)
			return
		}
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, sql.ErrNoRows) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	if errors.Is(err, comments.ErrThreadNotFound) || errors.Is(err, comments.ErrMessageNotFound) ||
		errors.Is(err, patch.ErrPatchNotFound) || errors.Is(err, docrepo.ErrVersionNotFound) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	if errors.Is(err, comments.ErrNotEditable) {
		return http.StatusConflict, "NOT_EDITABLE", "Message cannot be edited", nil
	}
	if errors.Is(err, patch.ErrAnchorNotFound) {
		return http.StatusConflict, "ANCHOR_NOT_FOUND", "The suggested text no longer exists in the document", nil
	}
	if errors.Is(err, export.ErrContentUnavailable) {
		return http.StatusNotFound, "NOT_FOUND", "Document content is unavailable", nil
	}
	if errors.Is(err, export.ErrPDFDependencyMissing) {
		return http.StatusServiceUnavailable, "PDF_UNAVAILABLE", "PDF rendering is not available on this host", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
