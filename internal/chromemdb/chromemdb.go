package chromemdb

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"
	"github.com/rs/zerolog/log"

	"pdf-rag/internal/models"
)

// VectorDBManager encapsulates the chromem-go database operations
type VectorDBManager struct {
	db            *chromem.DB
	collection    *chromem.Collection
	dbPath        string
	compress      bool
	encryptionKey string
}

// NewVectorDBManager opens (or creates) the persistent database at dbPath and
// the named collection. An empty dbPath gives an in-memory database.
func NewVectorDBManager(dbPath, collectionName string, compress bool, encryptionKey string) (*VectorDBManager, error) {
	var db *chromem.DB
	var err error
	if dbPath == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dbPath, compress)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to open vector database: %v", models.ErrRetrieval, err)
		}
	}

	m := &VectorDBManager{
		db:            db,
		dbPath:        dbPath,
		compress:      compress,
		encryptionKey: encryptionKey,
	}
	if _, err := m.GetOrCreateCollection(collectionName); err != nil {
		return nil, err
	}
	return m, nil
}

// create or read collection
func (m *VectorDBManager) GetOrCreateCollection(collectionName string) (*chromem.Collection, error) {
	// embeddings are always computed by the caller, chromem never embeds on its own
	c, err := m.db.GetOrCreateCollection(collectionName, nil, noEmbedding)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create/get collection: %v", models.ErrRetrieval, err)
	}
	m.collection = c
	return c, nil
}

func noEmbedding(_ context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("document %.20q has no precomputed embedding", text)
}

// AddChunks inserts chunk embeddings tagged with their source document
func (m *VectorDBManager) AddChunks(ctx context.Context, chunks []models.ChunkEmbedding) error {
	if len(chunks) == 0 {
		return nil
	}
	docs := make([]chromem.Document, len(chunks))
	for i, ce := range chunks {
		docs[i] = chromem.Document{
			ID:      ce.ID,
			Content: ce.Content,
			Metadata: map[string]string{
				models.MetaSource:      ce.DocumentID,
				models.MetaChunkIndex:  strconv.Itoa(ce.Index),
				models.MetaIngestionID: ce.IngestionID,
			},
			Embedding: ce.Embedding,
		}
	}

	if err := m.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("%w: failed to add documents: %v", models.ErrRetrieval, err)
	}
	log.Debug().Int("count", len(docs)).Str("collection", m.collection.Name).Msg("Added chunks")
	return nil
}

// Search returns the k chunks most similar to embedding. k larger than the
// collection is clamped, chromem rejects it otherwise.
func (m *VectorDBManager) Search(ctx context.Context, embedding []float32, k int) ([]models.SearchResult, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("%w: query embedding must be provided", models.ErrRetrieval)
	}
	count := m.collection.Count()
	if count == 0 {
		return nil, fmt.Errorf("%w: vector store is empty", models.ErrRetrieval)
	}
	if k <= 0 || k > count {
		k = count
	}

	results, err := m.collection.QueryEmbedding(ctx, embedding, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query by similarity: %v", models.ErrRetrieval, err)
	}

	out := make([]models.SearchResult, 0, len(results))
	for _, r := range results {
		index, _ := strconv.Atoi(r.Metadata[models.MetaChunkIndex])
		out = append(out, models.SearchResult{
			Chunk: models.Chunk{
				DocumentID: r.Metadata[models.MetaSource],
				Index:      index,
				Content:    r.Content,
			},
			Similarity: r.Similarity,
		})
	}
	return out, nil
}

// Count is the number of chunks in the collection
func (m *VectorDBManager) Count(_ context.Context) (int, error) {
	return m.collection.Count(), nil
}

// DeleteCollection removes the collection and its persisted documents
func (m *VectorDBManager) DeleteCollection() error {
	err := m.db.DeleteCollection(m.collection.Name)
	if err != nil {
		return fmt.Errorf("failed to drop collection: %v", err)
	}
	return nil
}

// Export writes the collection to a single (optionally encrypted) file
func (m *VectorDBManager) Export(filePath string) error {
	if filePath == "" {
		if m.dbPath == "" {
			return fmt.Errorf("export path is required for an in-memory database")
		}
		filePath = filepath.Join(m.dbPath, m.collection.Name+".chromem")
	}
	log.Debug().Str("collection", m.collection.Name).Str("file", filePath).Bool("compress", m.compress).Msg("Exporting collection")

	if err := m.db.ExportToFile(filePath, m.compress, m.encryptionKey, m.collection.Name); err != nil {
		return fmt.Errorf("failed to export database: %v", err)
	}
	return nil
}

// Import loads a file written by Export. Imported chunks replace any with the same ID.
func (m *VectorDBManager) Import(filePath string) error {
	name := m.collection.Name
	if err := m.db.ImportFromFile(filePath, m.encryptionKey, name); err != nil {
		return fmt.Errorf("failed to import database: %v", err)
	}
	// import swaps in a new collection object
	_, err := m.GetOrCreateCollection(name)
	return err
}
