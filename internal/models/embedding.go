package models

import "time"

// Document is an ingested PDF as tracked by the document registry
type Document struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	SizeBytes  int64     `json:"size_bytes"`
	Hash       string    `json:"hash"`
	Pages      int       `json:"pages"`
	ChunkCount int       `json:"chunk_count"`
	Ingestions int       `json:"ingestions"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Chunk represents a parsed chunk with metadata
type Chunk struct {
	DocumentID string `json:"document_id"`
	Index      int    `json:"index"`
	Content    string `json:"content"`
}

// ChunkEmbedding is the record inserted into the vector store
type ChunkEmbedding struct {
	ID          string
	IngestionID string
	Chunk
	Embedding []float32
}

type SearchResult struct {
	Chunk      Chunk   `json:"chunk"`
	Similarity float32 `json:"similarity"`
}

type PromptResponse struct {
	Question string         `json:"question"`
	Answer   string         `json:"answer"`
	Sources  []SearchResult `json:"sources"`
}
