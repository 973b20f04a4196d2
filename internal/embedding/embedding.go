package embedding

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"pdf-rag/internal/config"
	"pdf-rag/internal/models"
)

// Embedder is the subset of langchaingo's embeddings.Embedder the pipeline needs
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// NewEmbedder creates an embedder for the configured provider
func NewEmbedder(llmConfig *config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	log.Debug().Interface("config", map[string]string{
		"provider":        llmConfig.Provider,
		"base_url":        llmConfig.BaseURL,
		"embedding_model": llmConfig.Model,
	}).Msg("Creating embedder")

	var (
		client embeddings.EmbedderClient
		err    error
	)
	switch llmConfig.Provider {
	case config.ProviderOllama:
		client, err = newOllamaClient(llmConfig)
	case config.ProviderOpenAI, "":
		client, err = newOpenAIClient(llmConfig)
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", models.ErrConfig, llmConfig.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding client: %v", err)
	}

	opts := []embeddings.Option{embeddings.WithStripNewLines(false)}
	if llmConfig.BatchSize > 0 {
		opts = append(opts, embeddings.WithBatchSize(llmConfig.BatchSize))
	}
	embedder, err := embeddings.NewEmbedder(client, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %v", err)
	}
	return embedder, nil
}

func newOpenAIClient(llmConfig *config.LLMConfig) (*openai.LLM, error) {
	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(llmConfig.Key, "Bearer ")),
		openai.WithEmbeddingModel(llmConfig.Model),
		openai.WithHTTPClient(httpClient(llmConfig)),
	}
	if llmConfig.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(llmConfig.BaseURL))
	}
	return openai.New(opts...)
}

func newOllamaClient(llmConfig *config.LLMConfig) (*ollama.LLM, error) {
	opts := []ollama.Option{
		ollama.WithModel(llmConfig.Model),
		ollama.WithHTTPClient(httpClient(llmConfig)),
	}
	if llmConfig.BaseURL != "" {
		opts = append(opts, ollama.WithServerURL(llmConfig.BaseURL))
	}
	return ollama.New(opts...)
}

func httpClient(llmConfig *config.LLMConfig) *http.Client {
	client := &http.Client{}
	if llmConfig.TimeoutSecs > 0 {
		client.Timeout = time.Duration(llmConfig.TimeoutSecs) * time.Second
	}
	return client
}

// GenerateEmbedding embeds every chunk in one batched call and tags the
// results with a shared ingestion ID. Chunk IDs are fresh UUIDs so a second
// ingestion of the same document never overwrites the first.
func GenerateEmbedding(ctx context.Context, embedder Embedder, chunks []models.Chunk) ([]models.ChunkEmbedding, error) {
	if len(chunks) == 0 {
		log.Info().Msg("No chunks generated from content")
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	vectors, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to embed chunks: %v", models.ErrModel, err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: embedder returned %d vectors for %d chunks", models.ErrModel, len(vectors), len(chunks))
	}

	ingestionID := uuid.NewString()
	chunkEmbeddings := make([]models.ChunkEmbedding, len(chunks))
	for i, chunk := range chunks {
		chunkEmbeddings[i] = models.ChunkEmbedding{
			ID:          uuid.NewString(),
			IngestionID: ingestionID,
			Chunk:       chunk,
			Embedding:   vectors[i],
		}
	}
	return chunkEmbeddings, nil
}

// EmbedQuery embeds a single question
func EmbedQuery(ctx context.Context, embedder Embedder, query string) ([]float32, error) {
	vector, err := embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to embed query: %v", models.ErrModel, err)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: embedder returned an empty vector", models.ErrModel)
	}
	return vector, nil
}
