package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"pdf-rag/internal/models"
	"pdf-rag/internal/rag"
)

type fakePipeline struct {
	ingestErr  error
	answerErr  error
	countErr   error
	ingested   []string
	lastQ      string
	lastK      int
	docs       []models.Document
	dirResults []rag.FileResult
	answer     string
	chunkCount int
}

func (p *fakePipeline) Ingest(_ context.Context, filename string, data []byte) (rag.IngestResult, error) {
	if p.ingestErr != nil {
		return rag.IngestResult{}, p.ingestErr
	}
	p.ingested = append(p.ingested, filename)
	return rag.IngestResult{
		Document: models.Document{ID: filename, Filename: filename, SizeBytes: int64(len(data)), ChunkCount: 3},
		Chunks:   3,
	}, nil
}

func (p *fakePipeline) IngestDir(_ context.Context, _ string) ([]rag.FileResult, error) {
	return p.dirResults, nil
}

func (p *fakePipeline) Answer(_ context.Context, q string, k int) (models.PromptResponse, error) {
	p.lastQ, p.lastK = q, k
	if p.answerErr != nil {
		return models.PromptResponse{}, p.answerErr
	}
	return models.PromptResponse{
		Question: q,
		Answer:   p.answer,
		Sources:  []models.SearchResult{{Chunk: models.Chunk{DocumentID: "a.pdf", Content: "ctx"}, Similarity: 0.9}},
	}, nil
}

func (p *fakePipeline) ListDocuments(_ context.Context) ([]models.Document, error) {
	return p.docs, nil
}

func (p *fakePipeline) ChunkCount(_ context.Context) (int, error) {
	return p.chunkCount, p.countErr
}

func newTestServer(t *testing.T, p *fakePipeline) (*gin.Engine, string) {
	t.Helper()
	dir := t.TempDir()
	return SetupRouter(NewHandler(p, dir), gin.TestMode), dir
}

func do(r http.Handler, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var body map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(content)
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/api/documents", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func newAskRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/ask", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHealth(t *testing.T) {
	p := &fakePipeline{chunkCount: 12}
	r, dir := newTestServer(t, p)
	os.WriteFile(filepath.Join(dir, "a.pdf"), []byte("x"), 0o644)

	w, body := do(r, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if body["status"] != "healthy" || body["pdf_count"] != float64(1) || body["chunk_count"] != float64(12) {
		t.Errorf("body = %v", body)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestHealth_StoreDown(t *testing.T) {
	r, _ := newTestServer(t, &fakePipeline{countErr: models.ErrRetrieval})
	w, body := do(r, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if w.Code != http.StatusServiceUnavailable || body["status"] != "unhealthy" {
		t.Fatalf("status = %d body = %v", w.Code, body)
	}
}

func TestUpload_SavesAndIngests(t *testing.T) {
	p := &fakePipeline{}
	r, dir := newTestServer(t, p)

	w, body := do(r, uploadRequest(t, "../Report 1.pdf", []byte("%PDF-1.4 fake")))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %v", w.Code, body)
	}
	if body["chunks"] != float64(3) {
		t.Errorf("body = %v", body)
	}
	if len(p.ingested) != 1 || p.ingested[0] != "Report_1.pdf" {
		t.Errorf("ingested = %v", p.ingested)
	}
	if _, err := os.Stat(filepath.Join(dir, "Report_1.pdf")); err != nil {
		t.Errorf("upload not saved: %v", err)
	}
}

func TestUpload_ParseErrorRemovesFile(t *testing.T) {
	p := &fakePipeline{ingestErr: fmt.Errorf("%w: not a pdf", models.ErrDocumentParse)}
	r, dir := newTestServer(t, p)

	w, body := do(r, uploadRequest(t, "bad.pdf", []byte("garbage")))
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", w.Code)
	}
	if body["status"] != "error" || !strings.Contains(body["message"].(string), "not a pdf") {
		t.Errorf("body = %v", body)
	}
	if _, err := os.Stat(filepath.Join(dir, "bad.pdf")); !os.IsNotExist(err) {
		t.Error("rejected upload left on disk")
	}
}

func TestUpload_RejectedReuploadKeepsIngestedFile(t *testing.T) {
	p := &fakePipeline{}
	r, dir := newTestServer(t, p)

	good := []byte("%PDF-1.4 good")
	if w, body := do(r, uploadRequest(t, "report.pdf", good)); w.Code != http.StatusCreated {
		t.Fatalf("first upload status = %d body = %v", w.Code, body)
	}

	p.ingestErr = fmt.Errorf("%w: not a pdf", models.ErrDocumentParse)
	if w, _ := do(r, uploadRequest(t, "report.pdf", []byte("garbage"))); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("second upload status = %d", w.Code)
	}

	data, err := os.ReadFile(filepath.Join(dir, "report.pdf"))
	if err != nil {
		t.Fatalf("ingested file lost: %v", err)
	}
	if !bytes.Equal(data, good) {
		t.Errorf("ingested file overwritten with %q", data)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("expected only report.pdf in %s, found %d entries", dir, len(entries))
	}
}

func TestUpload_MissingFile(t *testing.T) {
	r, _ := newTestServer(t, &fakePipeline{})
	req := httptest.NewRequest(http.MethodPost, "/api/documents", nil)
	w, _ := do(r, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestListDocuments(t *testing.T) {
	p := &fakePipeline{docs: []models.Document{{ID: "a.pdf"}, {ID: "b.pdf"}}}
	r, _ := newTestServer(t, p)
	w, body := do(r, httptest.NewRequest(http.MethodGet, "/api/documents", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	docs := body["documents"].([]any)
	if len(docs) != 2 || docs[1].(map[string]any)["id"] != "b.pdf" {
		t.Errorf("documents = %v", docs)
	}
}

func TestListDocuments_EmptyIsArray(t *testing.T) {
	r, _ := newTestServer(t, &fakePipeline{})
	w, _ := do(r, httptest.NewRequest(http.MethodGet, "/api/documents", nil))
	if !strings.Contains(w.Body.String(), `"documents":[]`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestProcessDocuments(t *testing.T) {
	p := &fakePipeline{dirResults: []rag.FileResult{
		{Filename: "a.pdf", Status: rag.StatusSuccess, Chunks: 4},
		{Filename: "b.pdf", Status: rag.StatusError, Error: "parse"},
	}}
	r, _ := newTestServer(t, p)
	w, body := do(r, httptest.NewRequest(http.MethodPost, "/api/process-documents", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if body["message"] != "Processed 1 of 2 documents into 4 chunks" {
		t.Errorf("message = %v", body["message"])
	}
	if len(body["details"].([]any)) != 2 {
		t.Errorf("details = %v", body["details"])
	}
}

func TestAsk(t *testing.T) {
	p := &fakePipeline{answer: "**yes**"}
	r, _ := newTestServer(t, p)
	w, body := do(r, newAskRequest(`{"question":"is it?","k":2}`))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %v", w.Code, body)
	}
	if body["answer"] != "**yes**" || len(body["sources"].([]any)) != 1 {
		t.Errorf("body = %v", body)
	}
	if _, ok := body["answer_html"]; ok {
		t.Error("answer_html only expected with format=html")
	}
	if p.lastQ != "is it?" || p.lastK != 2 {
		t.Errorf("pipeline got %q k=%d", p.lastQ, p.lastK)
	}
}

func TestAsk_QueryAliasAndHTML(t *testing.T) {
	p := &fakePipeline{answer: "**yes**"}
	r, _ := newTestServer(t, p)
	req := newAskRequest(`{"query":"legacy field"}`)
	req.URL.RawQuery = "format=html"
	w, body := do(r, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if p.lastQ != "legacy field" {
		t.Errorf("question = %q", p.lastQ)
	}
	if body["answer_html"] != "<p><strong>yes</strong></p>" {
		t.Errorf("answer_html = %v", body["answer_html"])
	}
}

func TestAsk_ErrorStatuses(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: empty", models.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("%w: empty store", models.ErrRetrieval), http.StatusServiceUnavailable},
		{fmt.Errorf("%w: 429", models.ErrModel), http.StatusBadGateway},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		r, _ := newTestServer(t, &fakePipeline{answerErr: tc.err})
		w, body := do(r, newAskRequest(`{"question":"q"}`))
		if w.Code != tc.want {
			t.Errorf("%v: status = %d, want %d", tc.err, w.Code, tc.want)
		}
		if body["status"] != "error" || body["message"] != tc.err.Error() {
			t.Errorf("%v: body = %v", tc.err, body)
		}
	}
}

func TestAsk_BadJSON(t *testing.T) {
	p := &fakePipeline{}
	r, _ := newTestServer(t, p)
	w, _ := do(r, newAskRequest(`{"question":`))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
	if p.lastQ != "" {
		t.Error("pipeline called for malformed body")
	}
}

func TestCORSPreflight(t *testing.T) {
	r, _ := newTestServer(t, &fakePipeline{})
	w, _ := do(r, httptest.NewRequest(http.MethodOptions, "/api/ask", nil))
	if w.Code != http.StatusNoContent || w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("status = %d headers = %v", w.Code, w.Header())
	}
}
