package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/globalfish/notes/internal/config"
	"github.com/globalfish/notes/internal/embedding"
	"github.com/globalfish/notes/internal/indexer"
	"github.com/globalfish/notes/internal/models"
	"github.com/globalfish/notes/internal/notes"
	"github.com/globalfish/notes/internal/rag"
	"github.com/globalfish/notes/internal/storage"
	"github.com/globalfish/notes/internal/vector"
)

type fakeChat struct {
	answer string
}

func (f *fakeChat) Complete(ctx context.Context, prompt string) (string, error) {
	return f.answer, nil
}

func (f *fakeChat) Close() error { return nil }

func newTestServer(t *testing.T, withChat bool) (*Server, *config.Config) {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.Config{}
	cfg.Notes.Dir = filepath.Join(dir, "notes")
	cfg.Notes.Extensions = []string{".md"}
	cfg.Storage.DatabasePath = filepath.Join(dir, "notes.db")
	cfg.Index.ChunkSize = 750
	cfg.Index.ChunkOverlap = 100
	cfg.Server.Host = "localhost"
	cfg.Server.Port = 0

	st, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	embedder := embedding.NewMockEmbedder(16)
	store, err := vector.NewMemoryStore(16)
	if err != nil {
		t.Fatal(err)
	}

	var model *fakeChat
	var pipeline *rag.Pipeline
	if withChat {
		model = &fakeChat{answer: "canned answer"}
		pipeline = rag.NewPipeline(embedder, store, model)
	} else {
		pipeline = rag.NewPipeline(embedder, store, nil)
	}

	idx := indexer.NewIndexer(st, notes.NewParser(), embedder, store, cfg)
	return NewServer(pipeline, idx, st, store, cfg, zap.NewNop()), cfg
}

func doRequest(t *testing.T, srv *Server, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	r := httptest.NewRequest(method, target, &buf)
	w := httptest.NewRecorder()
	srv.routes().ServeHTTP(w, r)
	return w
}

func TestHandleHealth(t *testing.T) {
	srv, _ := newTestServer(t, true)
	w := doRequest(t, srv, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Errorf("status: got %d", w.Code)
	}
}

func TestHandleAsk_emptyQuestion(t *testing.T) {
	srv, _ := newTestServer(t, true)
	w := doRequest(t, srv, http.MethodPost, "/api/v1/ask", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", w.Code)
	}
}

func TestHandleAsk_degradedWithoutChat(t *testing.T) {
	srv, _ := newTestServer(t, false)
	w := doRequest(t, srv, http.MethodPost, "/api/v1/ask",
		map[string]string{"question": "what happened?"})
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want 503", w.Code)
	}
}

func TestCreateIndexAskFlow(t *testing.T) {
	srv, cfg := newTestServer(t, true)

	// Author a note through the API.
	input := models.NoteInput{
		Title:     "Release Planning",
		Date:      "2025-06-10",
		Attendees: []string{"Alice", "Bob"},
		Notes:     "Agreed to ship in June.",
		ActionItems: []models.ActionItem{
			{Task: "Write changelog", DueDate: "2025-06-12"},
		},
	}
	w := doRequest(t, srv, http.MethodPost, "/api/v1/notes", input)
	if w.Code != http.StatusCreated {
		t.Fatalf("create note: got %d, body %s", w.Code, w.Body.String())
	}
	var created struct {
		Path   string `json:"path"`
		Chunks int    `json:"chunks"`
	}
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(created.Path); err != nil {
		t.Fatalf("note file not written: %v", err)
	}
	if filepath.Dir(created.Path) != cfg.Notes.Dir {
		t.Errorf("note written outside notes dir: %q", created.Path)
	}
	if created.Chunks < 1 {
		t.Errorf("expected at least 1 chunk, got %d", created.Chunks)
	}

	// The note is immediately listed.
	w = doRequest(t, srv, http.MethodGet, "/api/v1/notes?attendee=alice", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list notes: got %d", w.Code)
	}
	var listed struct {
		Notes []*models.MeetingRecord `json:"notes"`
		Count int                     `json:"count"`
	}
	if err := json.NewDecoder(w.Body).Decode(&listed); err != nil {
		t.Fatal(err)
	}
	if listed.Count != 1 {
		t.Fatalf("expected 1 note, got %d", listed.Count)
	}
	if listed.Notes[0].Title != "Release Planning" {
		t.Errorf("unexpected title: %q", listed.Notes[0].Title)
	}

	// Fetch it by ID.
	w = doRequest(t, srv, http.MethodGet, "/api/v1/notes/"+listed.Notes[0].FileID, nil)
	if w.Code != http.StatusOK {
		t.Errorf("get note: got %d", w.Code)
	}
	var fetched struct {
		Note       *models.MeetingRecord `json:"note"`
		ChunkCount int                   `json:"chunk_count"`
	}
	if err := json.NewDecoder(w.Body).Decode(&fetched); err != nil {
		t.Fatal(err)
	}
	if fetched.Note == nil || fetched.Note.Title != "Release Planning" {
		t.Errorf("get note: unexpected record %+v", fetched.Note)
	}
	if fetched.ChunkCount < 1 {
		t.Errorf("get note: chunk_count = %d, want >= 1", fetched.ChunkCount)
	}

	// And ask a question over it.
	w = doRequest(t, srv, http.MethodPost, "/api/v1/ask",
		map[string]string{"question": "When do we ship?"})
	if w.Code != http.StatusOK {
		t.Fatalf("ask: got %d, body %s", w.Code, w.Body.String())
	}
	var answer models.AskResponse
	if err := json.NewDecoder(w.Body).Decode(&answer); err != nil {
		t.Fatal(err)
	}
	if answer.Answer != "canned answer" {
		t.Errorf("unexpected answer: %q", answer.Answer)
	}
	if len(answer.Sources) == 0 {
		t.Error("expected sources in the answer")
	}
}

func TestHandleGetNote_notFound(t *testing.T) {
	srv, _ := newTestServer(t, true)
	w := doRequest(t, srv, http.MethodGet, "/api/v1/notes/absent", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", w.Code)
	}
}

func TestHandleCreateNote_actionLines(t *testing.T) {
	srv, _ := newTestServer(t, true)

	input := models.NoteInput{
		Title:       "Sprint Review",
		Date:        "2025-06-10",
		ActionLines: "Ship docs | 2025-06-12\nBook room",
	}
	w := doRequest(t, srv, http.MethodPost, "/api/v1/notes", input)
	if w.Code != http.StatusCreated {
		t.Fatalf("create note: got %d, body %s", w.Code, w.Body.String())
	}
	var created struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(created.Path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(raw)
	if !strings.Contains(content, "- [ ] Ship docs _(Due: 2025-06-12)_") {
		t.Errorf("missing explicit-due action item:\n%s", content)
	}
	// The dateless line gets the authoring-side default due date.
	tomorrow := time.Now().AddDate(0, 0, 1).Format("2006-01-02")
	if !strings.Contains(content, "- [ ] Book room _(Due: "+tomorrow+")_") {
		t.Errorf("missing defaulted action item:\n%s", content)
	}
}

func TestHandleCreateNote_traversalTitleStaysInNotesDir(t *testing.T) {
	srv, cfg := newTestServer(t, true)

	input := models.NoteInput{
		Title: "../../escape",
		Date:  "2025-06-10",
		Notes: "Should stay put.",
	}
	w := doRequest(t, srv, http.MethodPost, "/api/v1/notes", input)
	if w.Code != http.StatusCreated {
		t.Fatalf("create note: got %d, body %s", w.Code, w.Body.String())
	}
	var created struct {
		Path string `json:"path"`
	}
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}
	if filepath.Dir(created.Path) != cfg.Notes.Dir {
		t.Errorf("note written outside notes dir: %s", created.Path)
	}
}

func TestHandleCreateNote_requiresContent(t *testing.T) {
	srv, _ := newTestServer(t, true)
	w := doRequest(t, srv, http.MethodPost, "/api/v1/notes",
		models.NoteInput{Title: "Empty"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", w.Code)
	}
}

func TestHandleIndex(t *testing.T) {
	srv, cfg := newTestServer(t, true)

	if err := os.MkdirAll(cfg.Notes.Dir, 0o755); err != nil {
		t.Fatal(err)
	}
	note := "# Standup\n**Date:** 2025-06-10\n**Attendees:** Alice\n\n## Notes\n- On track\n"
	if err := os.WriteFile(filepath.Join(cfg.Notes.Dir, "standup.md"), []byte(note), 0o644); err != nil {
		t.Fatal(err)
	}

	w := doRequest(t, srv, http.MethodPost, "/api/v1/index", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out struct {
		Files   int    `json:"files"`
		Chunks  int    `json:"chunks"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Files != 1 {
		t.Errorf("expected 1 file, got %d", out.Files)
	}
	if out.Message == "" {
		t.Error("expected a scan message")
	}

	// Second run has nothing to do.
	w = doRequest(t, srv, http.MethodPost, "/api/v1/index", nil)
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Message != "No new or modified files." {
		t.Errorf("unexpected idle message: %q", out.Message)
	}
}

func TestHandleStatus(t *testing.T) {
	srv, _ := newTestServer(t, true)
	w := doRequest(t, srv, http.MethodGet, "/api/v1/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	var out map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"records", "chunks", "vector_entries", "config"} {
		if _, ok := out[key]; !ok {
			t.Errorf("status response missing %q", key)
		}
	}
	if bytes, ok := out["storage_bytes"].(float64); !ok || bytes <= 0 {
		t.Errorf("storage_bytes: got %v, want > 0", out["storage_bytes"])
	}
}
