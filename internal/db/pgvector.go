package db

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"github.com/uptrace/bun"

	"pdf-rag/internal/models"
)

type ChunkRecord struct {
	bun.BaseModel `bun:"table:chunks,alias:c"`
	ID            string          `bun:"id,pk"`
	DocumentID    string          `bun:"document_id,notnull"`
	IngestionID   string          `bun:"ingestion_id,notnull"`
	ChunkIndex    int             `bun:"chunk_index,notnull"`
	Content       string          `bun:"content,notnull"`
	Embedding     pgvector.Vector `bun:"embedding,type:vector,notnull"`
	Distance      float64         `bun:"distance,scanonly"`
}

// PGVectorStore keeps chunk embeddings in Postgres with the pgvector extension
type PGVectorStore struct {
	db *bun.DB
}

func NewPGVectorStore(db *bun.DB) *PGVectorStore {
	return &PGVectorStore{db: db}
}

func (s *PGVectorStore) AddChunks(ctx context.Context, chunks []models.ChunkEmbedding) error {
	if len(chunks) == 0 {
		return nil
	}
	recs := make([]ChunkRecord, len(chunks))
	for i, ce := range chunks {
		recs[i] = ChunkRecord{
			ID:          ce.ID,
			DocumentID:  ce.DocumentID,
			IngestionID: ce.IngestionID,
			ChunkIndex:  ce.Index,
			Content:     ce.Content,
			Embedding:   pgvector.NewVector(ce.Embedding),
		}
	}
	if _, err := s.db.NewInsert().Model(&recs).Exec(ctx); err != nil {
		return fmt.Errorf("%w: failed to store chunks: %v", models.ErrRetrieval, err)
	}
	return nil
}

// Search orders by cosine distance; similarity is reported as 1 - distance
func (s *PGVectorStore) Search(ctx context.Context, embedding []float32, k int) ([]models.SearchResult, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("%w: query embedding must be provided", models.ErrRetrieval)
	}
	if k <= 0 {
		k = models.DefaultTopK
	}
	query := pgvector.NewVector(embedding)

	var recs []ChunkRecord
	err := s.db.NewSelect().
		Model(&recs).
		Column("id", "document_id", "ingestion_id", "chunk_index", "content").
		ColumnExpr("embedding <=> ? AS distance", query).
		OrderExpr("embedding <=> ?", query).
		Limit(k).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query by similarity: %v", models.ErrRetrieval, err)
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: vector store is empty", models.ErrRetrieval)
	}

	out := make([]models.SearchResult, len(recs))
	for i, rec := range recs {
		out[i] = models.SearchResult{
			Chunk: models.Chunk{
				DocumentID: rec.DocumentID,
				Index:      rec.ChunkIndex,
				Content:    rec.Content,
			},
			Similarity: float32(1 - rec.Distance),
		}
	}
	return out, nil
}

func (s *PGVectorStore) Count(ctx context.Context) (int, error) {
	n, err := s.db.NewSelect().Model((*ChunkRecord)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to count chunks: %v", models.ErrRetrieval, err)
	}
	return n, nil
}
