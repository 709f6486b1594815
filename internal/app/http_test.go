package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestServer(t *testing.T) (*httptest.Server, *Service) {
	t.Helper()
	svc, _, _, _ := setupService(t, nil)
	server := httptest.NewServer(NewHTTPServer(svc, "*").Handler())
	t.Cleanup(server.Close)
	return server, svc
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := newTestServer(t)
	resp, body := doJSON(t, http.MethodGet, server.URL+"/api/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	if body["ok"] != true {
		t.Errorf("unexpected body %v", body)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("missing request id header")
	}
}

func TestReadyEndpoint(t *testing.T) {
	server, _ := newTestServer(t)
	resp, body := doJSON(t, http.MethodGet, server.URL+"/api/ready", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	if body["status"] != "ready" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestPreflightRequest(t *testing.T) {
	server, _ := newTestServer(t)
	resp, _ := doJSON(t, http.MethodOptions, server.URL+"/api/documents", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}

func TestDocumentLifecycleOverHTTP(t *testing.T) {
	server, _ := newTestServer(t)

	resp, created := doJSON(t, http.MethodPost, server.URL+"/api/documents", map[string]any{"title": "Notes"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status %d", resp.StatusCode)
	}
	documentID, _ := created["id"].(string)
	if documentID == "" {
		t.Fatalf("no document id in %v", created)
	}

	resp, listed := doJSON(t, http.MethodGet, server.URL+"/api/documents", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status %d", resp.StatusCode)
	}
	if docs, ok := listed["documents"].([]any); !ok || len(docs) != 1 {
		t.Errorf("unexpected list %v", listed)
	}

	content := json.RawMessage(`{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"abc foo bar"}]}]}`)
	resp, _ = doJSON(t, http.MethodPut, server.URL+"/api/documents/"+documentID+"/content", map[string]any{"content": content})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save content status %d", resp.StatusCode)
	}

	resp, workspace := doJSON(t, http.MethodGet, server.URL+"/api/documents/"+documentID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("workspace status %d", resp.StatusCode)
	}
	if workspace["document"] == nil || workspace["content"] == nil {
		t.Errorf("incomplete workspace payload %v", workspace)
	}

	resp, _ = doJSON(t, http.MethodDelete, server.URL+"/api/documents/"+documentID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodGet, server.URL+"/api/documents/"+documentID, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("deleted document should 404, got %d", resp.StatusCode)
	}
}

func TestThreadRoutesOverHTTP(t *testing.T) {
	server, svc := newTestServer(t)
	ctx := context.Background()

	item, err := svc.CreateDocument(ctx, "Doc")
	if err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}
	if _, _, err := svc.SaveContent(ctx, item.ID, paragraphDoc("abc foo bar")); err != nil {
		t.Fatalf("SaveContent failed: %v", err)
	}

	resp, thread := doJSON(t, http.MethodPost, server.URL+"/api/documents/"+item.ID+"/threads",
		map[string]any{"start": 4, "end": 7, "body": "hm?"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create thread status %d: %v", resp.StatusCode, thread)
	}
	threadID, _ := thread["id"].(string)
	base := server.URL + "/api/documents/" + item.ID + "/threads/" + threadID

	resp, _ = doJSON(t, http.MethodPost, base+"/messages", map[string]any{"body": "reply"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("reply status %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodPost, base+"/resolve", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("resolve status %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodPost, base+"/reopen", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reopen status %d", resp.StatusCode)
	}

	// Assistant is not configured in this setup.
	resp, body := doJSON(t, http.MethodPost, base+"/assistant", map[string]any{"mode": "critique", "prompt": "hi"})
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("assistant status %d: %v", resp.StatusCode, body)
	}
	if body["code"] != "ASSISTANT_UNAVAILABLE" {
		t.Errorf("unexpected error code %v", body["code"])
	}

	resp, _ = doJSON(t, http.MethodDelete, base, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete thread status %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodDelete, base, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("deleting twice should 404, got %d", resp.StatusCode)
	}
}

func TestValidationErrorsOverHTTP(t *testing.T) {
	server, svc := newTestServer(t)
	ctx := context.Background()

	resp, body := doJSON(t, http.MethodPost, server.URL+"/api/documents", map[string]any{"title": ""})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("empty title status %d: %v", resp.StatusCode, body)
	}
	if body["code"] != "VALIDATION_ERROR" {
		t.Errorf("unexpected error code %v", body["code"])
	}

	item, _ := svc.CreateDocument(ctx, "Doc")
	_, _, _ = svc.SaveContent(ctx, item.ID, paragraphDoc("short"))

	resp, body = doJSON(t, http.MethodPost, server.URL+"/api/documents/"+item.ID+"/threads",
		map[string]any{"start": 2, "end": 99, "body": "x"})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("bad selection status %d: %v", resp.StatusCode, body)
	}

	req, _ := http.NewRequest(http.MethodPut, server.URL+"/api/documents/"+item.ID, strings.NewReader("{broken"))
	rawResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	rawResp.Body.Close()
	if rawResp.StatusCode != http.StatusBadRequest {
		t.Errorf("broken JSON status %d", rawResp.StatusCode)
	}
}

func TestUnknownRoutes(t *testing.T) {
	server, _ := newTestServer(t)
	for _, path := range []string{"/api/nope", "/api/documents/x/unknown", "/"} {
		resp, _ := doJSON(t, http.MethodGet, server.URL+path, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, resp.StatusCode)
		}
	}
}

func TestSearchEndpointValidation(t *testing.T) {
	server, _ := newTestServer(t)
	resp, _ := doJSON(t, http.MethodGet, server.URL+"/api/search?q=foo", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("search status %d", resp.StatusCode)
	}
	resp, body := doJSON(t, http.MethodGet, server.URL+"/api/search?q=foo&limit=abc", nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("bad limit status %d: %v", resp.StatusCode, body)
	}
}

func TestWorkspaceSettingsOverHTTP(t *testing.T) {
	server, _ := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPut, server.URL+"/api/workspace",
		map[string]any{"name": "Studio", "knowledge": "house style: terse"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("save settings status %d", resp.StatusCode)
	}

	resp, body := doJSON(t, http.MethodGet, server.URL+"/api/workspace", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get settings status %d", resp.StatusCode)
	}
	if body["name"] != "Studio" {
		t.Errorf("unexpected settings %v", body)
	}
}

func TestPatchRoutesOverHTTP(t *testing.T) {
	server, svc := newTestServer(t)
	ctx := context.Background()

	item, _ := svc.CreateDocument(ctx, "Doc")
	_, _, _ = svc.SaveContent(ctx, item.ID, paragraphDoc("abc foo bar"))
	thread, _ := svc.CreateThread(ctx, item.ID, 4, 7, "rewrite", false)
	p := svc.patches.Create(ctx, item.ID, thread.ID, "foo", "quux")

	base := fmt.Sprintf("%s/api/documents/%s/patches", server.URL, item.ID)

	resp, listed := doJSON(t, http.MethodGet, base, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list patches status %d", resp.StatusCode)
	}
	if patches, ok := listed["patches"].([]any); !ok || len(patches) != 1 {
		t.Errorf("unexpected patches %v", listed)
	}

	resp, accepted := doJSON(t, http.MethodPost, base+"/"+p.ID+"/accept", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("accept status %d: %v", resp.StatusCode, accepted)
	}
	if accepted["status"] != "accepted" {
		t.Errorf("unexpected patch %v", accepted)
	}

	resp, body := doJSON(t, http.MethodPost, base+"/missing/accept", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing patch status %d: %v", resp.StatusCode, body)
	}
}
