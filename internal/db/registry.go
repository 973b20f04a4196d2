package db

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"pdf-rag/internal/models"
)

type DocumentRecord struct {
	bun.BaseModel `bun:"table:documents,alias:d"`
	ID            string    `bun:"id,pk"`
	Filename      string    `bun:"filename,notnull"`
	SizeBytes     int64     `bun:"size_bytes,notnull"`
	Hash          string    `bun:"hash"`
	Pages         int       `bun:"pages,notnull"`
	ChunkCount    int       `bun:"chunk_count,notnull"`
	Ingestions    int       `bun:"ingestions,notnull"`
	CreatedAt     time.Time `bun:"created_at,notnull"`
	UpdatedAt     time.Time `bun:"updated_at,notnull"`
}

func (r *DocumentRecord) toModel() models.Document {
	return models.Document{
		ID:         r.ID,
		Filename:   r.Filename,
		SizeBytes:  r.SizeBytes,
		Hash:       r.Hash,
		Pages:      r.Pages,
		ChunkCount: r.ChunkCount,
		Ingestions: r.Ingestions,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

// Registry tracks which documents were ingested and how many chunks each contributed
type Registry struct {
	db  *bun.DB
	now func() time.Time
}

func NewRegistry(db *bun.DB) *Registry {
	return &Registry{db: db, now: time.Now}
}

// RecordIngestion adds chunkCount to the document's running total, creating
// the record on first ingestion. File metadata is refreshed every time. The
// upsert is a single statement so concurrent ingestions of one file add up.
func (r *Registry) RecordIngestion(ctx context.Context, doc models.Document, chunkCount int) (models.Document, error) {
	now := r.now().UTC().Truncate(time.Microsecond)
	rec := DocumentRecord{
		ID:         doc.ID,
		Filename:   doc.Filename,
		SizeBytes:  doc.SizeBytes,
		Hash:       doc.Hash,
		Pages:      doc.Pages,
		ChunkCount: chunkCount,
		Ingestions: 1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	_, err := r.db.NewInsert().
		Model(&rec).
		On("CONFLICT (id) DO UPDATE").
		Set("filename = EXCLUDED.filename").
		Set("size_bytes = EXCLUDED.size_bytes").
		Set("hash = EXCLUDED.hash").
		Set("pages = EXCLUDED.pages").
		Set("chunk_count = d.chunk_count + EXCLUDED.chunk_count").
		Set("ingestions = d.ingestions + 1").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return models.Document{}, fmt.Errorf("failed to record ingestion of %s: %v", doc.ID, err)
	}
	return rec.toModel(), nil
}

// ListDocuments returns every registered document ordered by ID
func (r *Registry) ListDocuments(ctx context.Context) ([]models.Document, error) {
	var recs []DocumentRecord
	if err := r.db.NewSelect().Model(&recs).Order("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list documents: %v", err)
	}
	docs := make([]models.Document, len(recs))
	for i := range recs {
		docs[i] = recs[i].toModel()
	}
	return docs, nil
}

func (r *Registry) Close() error {
	return r.db.Close()
}
