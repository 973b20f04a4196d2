package rag

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/prompts"

	"pdf-rag/internal/embedding"
	"pdf-rag/internal/helper"
	"pdf-rag/internal/models"
	"pdf-rag/internal/parser"
)

// Embedder turns text into vectors. langchaingo's embeddings.EmbedderImpl satisfies it.
type Embedder = embedding.Embedder

// AnswerGenerator produces the final answer from a fully built prompt
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, prompt string) (string, error)
}

// VectorStore holds chunk embeddings. Search fails with ErrRetrieval when the store is empty.
type VectorStore interface {
	AddChunks(ctx context.Context, chunks []models.ChunkEmbedding) error
	Search(ctx context.Context, embedding []float32, k int) ([]models.SearchResult, error)
	Count(ctx context.Context) (int, error)
}

// Registry records ingested documents
type Registry interface {
	RecordIngestion(ctx context.Context, doc models.Document, chunkCount int) (models.Document, error)
	ListDocuments(ctx context.Context) ([]models.Document, error)
}

// Deps are the handles the pipeline works with. Loader, Splitter, TopK and
// PromptTemplate fall back to defaults when zero.
type Deps struct {
	Loader         parser.Loader
	Splitter       *parser.Splitter
	Embedder       Embedder
	Generator      AnswerGenerator
	Store          VectorStore
	Registry       Registry
	TopK           int
	PromptTemplate string
}

type RAG struct {
	loader    parser.Loader
	splitter  *parser.Splitter
	embedder  Embedder
	generator AnswerGenerator
	store     VectorStore
	registry  Registry
	topK      int
	prompt    prompts.PromptTemplate
}

func NewRAG(deps Deps) (*RAG, error) {
	if deps.Embedder == nil || deps.Generator == nil || deps.Store == nil || deps.Registry == nil {
		return nil, fmt.Errorf("%w: embedder, generator, store and registry are required", models.ErrConfig)
	}
	r := &RAG{
		loader:    deps.Loader,
		splitter:  deps.Splitter,
		embedder:  deps.Embedder,
		generator: deps.Generator,
		store:     deps.Store,
		registry:  deps.Registry,
		topK:      deps.TopK,
	}
	if r.loader == nil {
		r.loader = parser.PDFLoader{}
	}
	if r.splitter == nil {
		r.splitter = parser.NewSplitter(0, -1)
	}
	if r.topK <= 0 {
		r.topK = models.DefaultTopK
	}

	tmpl := deps.PromptTemplate
	if tmpl == "" {
		tmpl = models.AnswerPromptTemplate
	}
	r.prompt = prompts.NewPromptTemplate(tmpl, []string{"context", "question"})
	// catch template syntax errors at startup instead of on the first question
	if _, err := r.prompt.Format(map[string]any{"context": "", "question": ""}); err != nil {
		return nil, fmt.Errorf("%w: invalid prompt template: %v", models.ErrConfig, err)
	}
	return r, nil
}

// IngestResult is what one ingestion added
type IngestResult struct {
	Document models.Document `json:"document"`
	Chunks   int             `json:"chunks"`
}

// Ingest parses data as a PDF, stores its chunks and records the document.
// Calling it twice for the same file stores the chunks twice.
func (r *RAG) Ingest(ctx context.Context, filename string, data []byte) (IngestResult, error) {
	docID := helper.SanitizeFilename(filename)
	if docID == "" {
		return IngestResult{}, fmt.Errorf("%w: invalid filename %q", models.ErrValidation, filename)
	}
	start := time.Now()

	parsed, err := r.loader.Load(data)
	if err != nil {
		return IngestResult{}, err
	}

	chunks, err := r.splitter.Split(docID, parsed.Text)
	if err != nil {
		return IngestResult{}, fmt.Errorf("%w: %v", models.ErrDocumentParse, err)
	}

	records, err := embedding.GenerateEmbedding(ctx, r.embedder, chunks)
	if err != nil {
		return IngestResult{}, err
	}
	if err := r.store.AddChunks(ctx, records); err != nil {
		return IngestResult{}, err
	}

	hash, err := helper.FileHash(bytes.NewReader(data))
	if err != nil {
		return IngestResult{}, err
	}
	doc, err := r.registry.RecordIngestion(ctx, models.Document{
		ID:        docID,
		Filename:  docID,
		SizeBytes: int64(len(data)),
		Hash:      hash,
		Pages:     parsed.Pages,
	}, len(records))
	if err != nil {
		return IngestResult{}, wrapRetrieval(err)
	}

	log.Info().
		Str("document", docID).
		Int("pages", parsed.Pages).
		Int("chunks", len(records)).
		Dur("elapsed", time.Since(start)).
		Msg("Ingested document")
	return IngestResult{Document: doc, Chunks: len(records)}, nil
}

// IngestFile reads path from disk and ingests it under its base name
func (r *RAG) IngestFile(ctx context.Context, path string) (IngestResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return IngestResult{}, fmt.Errorf("failed to read %s: %v", path, err)
	}
	return r.Ingest(ctx, filepath.Base(path), data)
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// FileResult reports the outcome for one file of IngestDir
type FileResult struct {
	Filename string `json:"filename"`
	Status   string `json:"status"`
	Chunks   int    `json:"chunks,omitempty"`
	Pages    int    `json:"pages,omitempty"`
	Error    string `json:"error,omitempty"`
}

// IngestDir ingests every PDF directly inside dir. A failing file is reported
// in its FileResult and does not stop the others; only context cancellation does.
func (r *RAG) IngestDir(ctx context.Context, dir string) ([]FileResult, error) {
	files, err := parser.ListPDFs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %v", dir, err)
	}

	results := make([]FileResult, 0, len(files))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		name := filepath.Base(path)
		res, err := r.IngestFile(ctx, path)
		if err != nil {
			log.Error().Err(err).Str("file", name).Msg("Failed to ingest document")
			results = append(results, FileResult{Filename: name, Status: StatusError, Error: err.Error()})
			continue
		}
		results = append(results, FileResult{
			Filename: name,
			Status:   StatusSuccess,
			Chunks:   res.Chunks,
			Pages:    res.Document.Pages,
		})
	}
	return results, nil
}

// Answer retrieves the k chunks closest to question and asks the model to
// answer from them. k <= 0 uses the configured default.
func (r *RAG) Answer(ctx context.Context, question string, k int) (models.PromptResponse, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return models.PromptResponse{}, fmt.Errorf("%w: question must not be empty", models.ErrValidation)
	}
	if k <= 0 {
		k = r.topK
	}

	count, err := r.store.Count(ctx)
	if err != nil {
		return models.PromptResponse{}, wrapRetrieval(err)
	}
	if count == 0 {
		return models.PromptResponse{}, fmt.Errorf("%w: no documents have been ingested", models.ErrRetrieval)
	}

	queryEmbedding, err := embedding.EmbedQuery(ctx, r.embedder, question)
	if err != nil {
		return models.PromptResponse{}, err
	}

	sources, err := r.store.Search(ctx, queryEmbedding, k)
	if err != nil {
		return models.PromptResponse{}, wrapRetrieval(err)
	}

	prompt, err := r.buildPrompt(question, sources)
	if err != nil {
		return models.PromptResponse{}, err
	}

	answer, err := r.generator.GenerateAnswer(ctx, prompt)
	if err != nil {
		if !errors.Is(err, models.ErrModel) {
			err = fmt.Errorf("%w: %v", models.ErrModel, err)
		}
		return models.PromptResponse{}, err
	}

	log.Debug().Str("question", question).Int("sources", len(sources)).Msg("Answered question")
	return models.PromptResponse{Question: question, Answer: answer, Sources: sources}, nil
}

func (r *RAG) buildPrompt(question string, sources []models.SearchResult) (string, error) {
	parts := make([]string, len(sources))
	for i, s := range sources {
		parts[i] = s.Chunk.Content
	}
	prompt, err := r.prompt.Format(map[string]any{
		"context":  strings.Join(parts, models.ContextSeparator),
		"question": question,
	})
	if err != nil {
		return "", fmt.Errorf("failed to build prompt: %v", err)
	}
	return prompt, nil
}

func (r *RAG) ListDocuments(ctx context.Context) ([]models.Document, error) {
	docs, err := r.registry.ListDocuments(ctx)
	if err != nil {
		return nil, wrapRetrieval(err)
	}
	return docs, nil
}

// ChunkCount is the number of chunks currently in the vector store
func (r *RAG) ChunkCount(ctx context.Context) (int, error) {
	n, err := r.store.Count(ctx)
	if err != nil {
		return 0, wrapRetrieval(err)
	}
	return n, nil
}

func wrapRetrieval(err error) error {
	if errors.Is(err, models.ErrRetrieval) {
		return err
	}
	return fmt.Errorf("%w: %v", models.ErrRetrieval, err)
}
