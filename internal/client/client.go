package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pdf-rag/internal/models"
	"pdf-rag/internal/rag"
)

// Client talks to the pdf-rag HTTP API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// APIError is a non-2xx response from the API
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Unwrap lets callers match the server side error kind with errors.Is
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return models.ErrValidation
	case http.StatusUnprocessableEntity:
		return models.ErrDocumentParse
	case http.StatusServiceUnavailable:
		return models.ErrRetrieval
	case http.StatusBadGateway:
		return models.ErrModel
	}
	return nil
}

type Health struct {
	Status       string `json:"status"`
	PDFDirectory string `json:"pdf_directory"`
	PDFCount     int    `json:"pdf_count"`
	ChunkCount   int    `json:"chunk_count"`
}

type AskResponse struct {
	Status     string                `json:"status"`
	Answer     string                `json:"answer"`
	AnswerHTML string                `json:"answer_html,omitempty"`
	Sources    []models.SearchResult `json:"sources"`
}

type UploadResponse struct {
	Status   string          `json:"status"`
	Document models.Document `json:"document"`
	Chunks   int             `json:"chunks"`
}

type ProcessResponse struct {
	Status  string           `json:"status"`
	Message string           `json:"message"`
	Details []rag.FileResult `json:"details"`
}

func (c *Client) Health(ctx context.Context) (*Health, error) {
	var out Health
	if err := c.doJSON(ctx, http.MethodGet, "/api/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Ask(ctx context.Context, question string, k int) (*AskResponse, error) {
	payload := map[string]any{"question": question}
	if k > 0 {
		payload["k"] = k
	}
	var out AskResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/ask", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListDocuments(ctx context.Context) ([]models.Document, error) {
	var out struct {
		Documents []models.Document `json:"documents"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/documents", nil, &out); err != nil {
		return nil, err
	}
	return out.Documents, nil
}

func (c *Client) ProcessDocuments(ctx context.Context) (*ProcessResponse, error) {
	var out ProcessResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/process-documents", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadFile sends the file at path as a multipart upload
func (c *Client) UploadFile(ctx context.Context, path string) (*UploadResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return c.Upload(ctx, filepath.Base(path), f)
}

func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (*UploadResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(fw, r); err != nil {
		return nil, fmt.Errorf("copy file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/documents", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out UploadResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	respBody, _ := io.ReadAll(resp.Body)
	var payload struct {
		Message string `json:"message"`
	}
	msg := strings.TrimSpace(string(respBody))
	if err := json.Unmarshal(respBody, &payload); err == nil && payload.Message != "" {
		msg = payload.Message
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}

// IsUnavailable reports whether err means the backend could not be reached
func IsUnavailable(err error) bool {
	var apiErr *APIError
	return err != nil && !errors.As(err, &apiErr)
}
