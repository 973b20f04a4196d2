package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"pdf-rag/internal/helper"
	"pdf-rag/internal/models"
	"pdf-rag/internal/parser"
	"pdf-rag/internal/rag"
)

// Pipeline is what the API needs from rag.RAG
type Pipeline interface {
	Ingest(ctx context.Context, filename string, data []byte) (rag.IngestResult, error)
	IngestDir(ctx context.Context, dir string) ([]rag.FileResult, error)
	Answer(ctx context.Context, question string, k int) (models.PromptResponse, error)
	ListDocuments(ctx context.Context) ([]models.Document, error)
	ChunkCount(ctx context.Context) (int, error)
}

type Handler struct {
	pipeline Pipeline
	pdfDir   string
}

func NewHandler(pipeline Pipeline, pdfDir string) *Handler {
	return &Handler{pipeline: pipeline, pdfDir: pdfDir}
}

func (h *Handler) Health(c *gin.Context) {
	files, _ := parser.ListPDFs(h.pdfDir)
	chunks, err := h.pipeline.ChunkCount(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":        "unhealthy",
			"pdf_directory": h.pdfDir,
			"message":       err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":        "healthy",
		"pdf_directory": h.pdfDir,
		"pdf_count":     len(files),
		"chunk_count":   chunks,
	})
}

// Upload ingests the multipart "file" and stores it in the PDF directory.
// The upload is staged under a temporary name and only replaces an existing
// file of the same name once ingestion succeeded.
func (h *Handler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		respondError(c, fmt.Errorf("%w: file is required", models.ErrValidation))
		return
	}
	defer file.Close()

	name := helper.SanitizeFilename(header.Filename)
	if name == "" {
		respondError(c, fmt.Errorf("%w: invalid filename %q", models.ErrValidation, header.Filename))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(c, fmt.Errorf("failed to read upload: %v", err))
		return
	}

	if err := helper.CreateFolder(h.pdfDir); err != nil {
		respondError(c, err)
		return
	}
	staged, err := stageUpload(h.pdfDir, name, data)
	if err != nil {
		respondError(c, err)
		return
	}

	res, err := h.pipeline.Ingest(c.Request.Context(), name, data)
	if err != nil {
		if rmErr := os.Remove(staged); rmErr != nil {
			log.Warn().Err(rmErr).Str("file", staged).Msg("Failed to remove rejected upload")
		}
		respondError(c, err)
		return
	}

	path := filepath.Join(h.pdfDir, name)
	if err := os.Rename(staged, path); err != nil {
		respondError(c, fmt.Errorf("failed to save upload: %v", err))
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":   rag.StatusSuccess,
		"document": res.Document,
		"chunks":   res.Chunks,
	})
}

// stageUpload writes data next to its final location under a name ListPDFs skips
func stageUpload(dir, name string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, "."+name+".*.part")
	if err != nil {
		return "", fmt.Errorf("failed to stage upload: %v", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to stage upload: %v", err)
	}
	if err := f.Chmod(0o644); err != nil {
		log.Warn().Err(err).Str("file", f.Name()).Msg("Failed to set upload permissions")
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to stage upload: %v", err)
	}
	return f.Name(), nil
}

func (h *Handler) ListDocuments(c *gin.Context) {
	docs, err := h.pipeline.ListDocuments(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if docs == nil {
		docs = []models.Document{}
	}
	c.JSON(http.StatusOK, gin.H{"status": rag.StatusSuccess, "documents": docs})
}

// ProcessDocuments ingests every PDF already sitting in the PDF directory
func (h *Handler) ProcessDocuments(c *gin.Context) {
	results, err := h.pipeline.IngestDir(c.Request.Context(), h.pdfDir)
	if err != nil {
		respondError(c, err)
		return
	}

	var ok, chunks int
	for _, r := range results {
		if r.Status == rag.StatusSuccess {
			ok++
			chunks += r.Chunks
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  rag.StatusSuccess,
		"message": fmt.Sprintf("Processed %d of %d documents into %d chunks", ok, len(results), chunks),
		"details": results,
	})
}

type askRequest struct {
	Question string `json:"question"`
	Query    string `json:"query"`
	K        int    `json:"k"`
}

func (h *Handler) Ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, fmt.Errorf("%w: invalid request body: %v", models.ErrValidation, err))
		return
	}
	question := req.Question
	if strings.TrimSpace(question) == "" {
		question = req.Query
	}

	resp, err := h.pipeline.Answer(c.Request.Context(), question, req.K)
	if err != nil {
		respondError(c, err)
		return
	}

	body := gin.H{
		"status":  rag.StatusSuccess,
		"answer":  resp.Answer,
		"sources": resp.Sources,
	}
	if c.Query("format") == "html" {
		rendered, err := helper.RenderMarkdown(resp.Answer)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to render answer")
		} else {
			body["answer_html"] = rendered
		}
	}
	c.JSON(http.StatusOK, body)
}
